package producer

import (
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/models"
)

func TestNewMessage(t *testing.T) {
	o := &models.Outcome{
		RunID:      "run-1",
		StationID:  "st1",
		Stage:      models.StageCoarse,
		Resolution: "1min",
		Status:     models.StatusMatched,
		Match:      &models.Match{Resolution: "1min", Lat: 45.008333, Lon: 10.008333, Area: 63},
		At:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	msg, err := NewMessage("lfcoords-outcomes", o)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}
	if string(msg.Key) != "st1" || *msg.TopicPartition.Topic != "lfcoords-outcomes" {
		t.Errorf("Expected key st1 on lfcoords-outcomes, got %s on %s", msg.Key, *msg.TopicPartition.Topic)
	}

	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["run_id"] != "run-1" || headers["stage"] != "coarse" || headers["status"] != "matched" {
		t.Errorf("Unexpected headers: %v", headers)
	}
	if headers["message_id"] == "" {
		t.Errorf("Expected a message id")
	}

	back, err := models.OutcomeFromJSON(msg.Value)
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if back.StationID != "st1" || back.Match == nil || back.Match.Area != 63 {
		t.Errorf("Unexpected payload: %+v", back)
	}
}

func TestConfigureSASL(t *testing.T) {
	cm := &kafka.ConfigMap{}
	if err := configureSASL(cm, &config.KafkaConfig{SASLMechanism: "PLAIN"}); err != nil {
		t.Fatalf("configureSASL failed: %v", err)
	}
	if _, ok := (*cm)["sasl.username"]; ok {
		t.Errorf("Expected no SASL keys without a username")
	}

	cfg := &config.KafkaConfig{SASLMechanism: "PLAIN", SASLUsername: "user", SASLPassword: "secret"}
	if err := configureSASL(cm, cfg); err != nil {
		t.Fatalf("configureSASL failed: %v", err)
	}
	if (*cm)["sasl.username"] != "user" || (*cm)["sasl.mechanism"] != "PLAIN" || (*cm)["sasl.password"] != "secret" {
		t.Errorf("Unexpected SASL settings: %v", *cm)
	}
}

func TestCloseTwice(t *testing.T) {
	cfg := config.NewKafkaConfig()
	cfg.BootstrapServers = "127.0.0.1:1"
	cfg.SASLUsername = ""
	kp, err := NewKafkaProducer(cfg)
	if err != nil {
		t.Fatalf("NewKafkaProducer failed: %v", err)
	}
	kp.Close()
	kp.Close()
}

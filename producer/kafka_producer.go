package producer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/models"
)

// KafkaProducer publishes station outcomes
type KafkaProducer struct {
	producer     *kafka.Producer
	config       *config.KafkaConfig
	deliveryChan chan kafka.Event

	// Metrics
	messagesSent   atomic.Int64
	messagesAcked  atomic.Int64
	messagesFailed atomic.Int64

	// Thread safety
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Retry configuration
	maxRetries  int
	baseBackoff time.Duration
}

// NewKafkaProducer creates a new thread-safe Kafka producer
func NewKafkaProducer(cfg *config.KafkaConfig) (*KafkaProducer, error) {
	producerConfig := &kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"security.protocol": cfg.SecurityProtocol,

		"compression.type":                      cfg.CompressionType,
		"acks":                                  cfg.Acks,
		"max.in.flight.requests.per.connection": cfg.MaxInFlight,
		"linger.ms":                             cfg.LingerMS,
		"batch.size":                            cfg.BatchSize,

		// Idempotence for exactly-once semantics
		"enable.idempotence": true,

		"request.timeout.ms":  30000,
		"delivery.timeout.ms": 120000,
	}
	if err := configureSASL(producerConfig, cfg); err != nil {
		return nil, err
	}

	p, err := kafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	kp := &KafkaProducer{
		producer:     p,
		config:       cfg,
		deliveryChan: make(chan kafka.Event, 10000),
		ctx:          ctx,
		cancel:       cancel,
		maxRetries:   5,
		baseBackoff:  100 * time.Millisecond,
	}

	// Start delivery report handler
	kp.wg.Add(1)
	go kp.handleDeliveryReports()

	log.Printf("✅ Kafka producer initialized - Topic: %s, Servers: %s", cfg.Topic, cfg.BootstrapServers)
	return kp, nil
}

// configureSASL adds the SASL credentials when the protocol asks for them
func configureSASL(cm *kafka.ConfigMap, cfg *config.KafkaConfig) error {
	if !cfg.UsesSASL() {
		return nil
	}
	for _, kv := range []struct{ key, value string }{
		{"sasl.mechanism", cfg.SASLMechanism},
		{"sasl.username", cfg.SASLUsername},
		{"sasl.password", cfg.SASLPassword},
	} {
		if err := cm.SetKey(kv.key, kv.value); err != nil {
			return fmt.Errorf("failed to configure SASL: %w", err)
		}
	}
	return nil
}

// handleDeliveryReports processes delivery confirmations in a separate goroutine
func (kp *KafkaProducer) handleDeliveryReports() {
	defer kp.wg.Done()

	for {
		select {
		case <-kp.ctx.Done():
			return
		case e := <-kp.deliveryChan:
			m, ok := e.(*kafka.Message)
			if !ok {
				continue
			}

			if m.TopicPartition.Error != nil {
				kp.messagesFailed.Add(1)
				log.Printf("❌ Delivery failed for %s: %v", m.Key, m.TopicPartition.Error)
			} else {
				kp.messagesAcked.Add(1)
				if kp.messagesAcked.Load()%1000 == 0 {
					log.Printf("✅ Outcomes delivered [%d/%d]", kp.messagesAcked.Load(), kp.messagesSent.Load())
				}
			}
		}
	}
}

// NewMessage builds the Kafka message of an outcome, keyed by station so
// that both stages of a station land in the same partition
func NewMessage(topic string, o *models.Outcome) (*kafka.Message, error) {
	payload, err := o.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize outcome: %w", err)
	}
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(o.StationID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(o.RunID)},
			{Key: "stage", Value: []byte(o.Stage)},
			{Key: "status", Value: []byte(o.Status)},
			{Key: "message_id", Value: []byte(uuid.New().String())},
		},
	}, nil
}

// SendOutcome publishes one outcome with retry logic
func (kp *KafkaProducer) SendOutcome(o *models.Outcome) error {
	message, err := NewMessage(kp.config.Topic, o)
	if err != nil {
		return err
	}

	// Exponential backoff retry
	var lastErr error
	for attempt := 0; attempt <= kp.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := kp.baseBackoff * time.Duration(1<<uint(attempt-1))
			log.Printf("🔄 Retry attempt %d/%d after %v", attempt, kp.maxRetries, backoff)
			time.Sleep(backoff)
		}

		err := kp.producer.Produce(message, kp.deliveryChan)
		if err == nil {
			kp.messagesSent.Add(1)
			return nil
		}

		lastErr = err

		if kafkaErr, ok := err.(kafka.Error); ok {
			if !kafkaErr.IsRetriable() {
				return fmt.Errorf("non-retriable error: %w", err)
			}
		}
	}

	kp.messagesFailed.Add(1)
	return fmt.Errorf("failed after %d retries: %w", kp.maxRetries, lastErr)
}

// SendOutcomeBatch publishes outcomes concurrently with a pool of workers
func (kp *KafkaProducer) SendOutcomeBatch(outcomes []models.Outcome, workerCount int) error {
	if len(outcomes) == 0 {
		return nil
	}
	if workerCount < 1 {
		workerCount = 1
	}

	log.Printf("📤 Sending batch of %d outcomes with %d workers", len(outcomes), workerCount)

	jobs := make(chan *models.Outcome, len(outcomes))
	errors := make(chan error, len(outcomes))

	var workerWg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		workerWg.Add(1)
		go func(workerID int) {
			defer workerWg.Done()
			for o := range jobs {
				if err := kp.SendOutcome(o); err != nil {
					errors <- fmt.Errorf("worker %d failed: %w", workerID, err)
				}
			}
		}(i)
	}

	for i := range outcomes {
		jobs <- &outcomes[i]
	}
	close(jobs)

	workerWg.Wait()
	close(errors)

	var errs []error
	for err := range errors {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("batch send completed with %d errors (first error: %v)", len(errs), errs[0])
	}

	log.Printf("✅ Batch send complete - %d messages queued", len(outcomes))
	return nil
}

// StreamFromChannel publishes outcomes as the run produces them, until the
// channel is closed
func (kp *KafkaProducer) StreamFromChannel(outcomes <-chan *models.Outcome, workerCount int) error {
	if workerCount < 1 {
		workerCount = 1
	}
	log.Printf("🚀 Streaming outcomes with %d workers", workerCount)

	var streamWg sync.WaitGroup
	var failed atomic.Int64

	for i := 0; i < workerCount; i++ {
		streamWg.Add(1)
		go func(workerID int) {
			defer streamWg.Done()
			for {
				select {
				case <-kp.ctx.Done():
					return
				case o, ok := <-outcomes:
					if !ok {
						return
					}
					if err := kp.SendOutcome(o); err != nil {
						failed.Add(1)
						log.Printf("⚠️  Worker %d: %v", workerID, err)
					}
				}
			}
		}(i)
	}

	streamWg.Wait()

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("stream completed with %d errors", n)
	}
	return nil
}

// Flush waits for all pending messages to be delivered
func (kp *KafkaProducer) Flush(timeout time.Duration) {
	log.Printf("🔄 Flushing producer (timeout: %v)...", timeout)
	remaining := kp.producer.Flush(int(timeout.Milliseconds()))
	if remaining > 0 {
		log.Printf("⚠️  %d messages still in queue after flush timeout", remaining)
	} else {
		log.Println("✅ All messages flushed successfully")
	}
}

// GetMetrics returns current producer metrics
func (kp *KafkaProducer) GetMetrics() map[string]int64 {
	return map[string]int64{
		"messages_sent":    kp.messagesSent.Load(),
		"messages_acked":   kp.messagesAcked.Load(),
		"messages_failed":  kp.messagesFailed.Load(),
		"messages_pending": kp.messagesSent.Load() - kp.messagesAcked.Load() - kp.messagesFailed.Load(),
	}
}

// LogMetrics prints current metrics
func (kp *KafkaProducer) LogMetrics() {
	metrics := kp.GetMetrics()
	log.Printf("📊 Metrics - Sent: %d | Acked: %d | Failed: %d | Pending: %d",
		metrics["messages_sent"],
		metrics["messages_acked"],
		metrics["messages_failed"],
		metrics["messages_pending"])
}

// Close flushes and shuts down the producer. Later calls do nothing.
func (kp *KafkaProducer) Close() {
	kp.closeOnce.Do(kp.close)
}

func (kp *KafkaProducer) close() {
	log.Println("🛑 Shutting down Kafka producer...")

	// Flush before stopping the delivery handler so acks are counted
	kp.Flush(30 * time.Second)
	kp.cancel()
	kp.wg.Wait()

	kp.producer.Close()

	kp.LogMetrics()
	log.Println("✅ Kafka producer closed")
}

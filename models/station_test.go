package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOutcomeSerialization(t *testing.T) {
	outcome := &Outcome{
		RunID:      "run-001",
		StationID:  "2345",
		Stage:      StageCoarse,
		Resolution: "1min",
		Status:     StatusMatched,
		At:         time.Now(),
		Match: &Match{
			Resolution: "1min",
			Lat:        45.008333,
			Lon:        10.025,
			Area:       118,
			ShapeScore: 0.91,
			Shifted:    true,
		},
	}

	jsonBytes, err := outcome.ToJSON()
	if err != nil {
		t.Fatalf("Serialization failed: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &raw); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if _, ok := raw["reason"]; ok {
		t.Errorf("Expected reason to be omitted for matched outcome")
	}

	parsed, err := OutcomeFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("Deserialization failed: %v", err)
	}
	if parsed.Match == nil || parsed.Match.Lat != 45.008333 {
		t.Errorf("Expected match lat 45.008333, got %v", parsed.Match)
	}
	if !parsed.Match.Shifted {
		t.Errorf("Expected shifted flag to survive round trip")
	}
}

func TestRecordFields(t *testing.T) {
	records := NewRecords([]Station{{ID: "a", Lat: 45, Lon: 10, Area: 120}})
	r := &records[0]

	f := r.Fields("3sec")
	if len(f) != 3 {
		t.Fatalf("Expected only reference fields before matching, got %v", f)
	}

	r.Matches["3sec"] = Match{Resolution: "3sec", Lat: 45.000417, Lon: 10.002083, Area: 118}
	f = r.Fields("3sec")
	if f["area_3sec"] != 118 {
		t.Errorf("Expected area_3sec 118, got %v", f["area_3sec"])
	}
	if f["lon_3sec"] != 10.002083 {
		t.Errorf("Expected lon_3sec 10.002083, got %v", f["lon_3sec"])
	}
	if f["area"] != 120 {
		t.Errorf("Reference area must not be overwritten, got %v", f["area"])
	}

	r.Matches["1min"] = Match{Resolution: "1min", Lat: 45.008333, Lon: 10.008333, Area: 121}
	f = r.Fields("3sec", "1min")
	if len(f) != 9 || f["area_3sec"] != 118 || f["area_1min"] != 121 {
		t.Errorf("Expected reference, 3sec and 1min fields, got %v", f)
	}
	if f = r.Fields(); len(f) != 3 {
		t.Errorf("Expected only reference fields without resolutions, got %v", f)
	}
}

func TestColumnAndRounding(t *testing.T) {
	if got := Column("lat", "5min"); got != "lat_5min" {
		t.Errorf("Expected lat_5min, got %s", got)
	}
	if got := Column("lat", ""); got != "lat" {
		t.Errorf("Expected bare column name, got %s", got)
	}
	if got := Round6(10.0000004999); got != 10 {
		t.Errorf("Expected 10, got %v", got)
	}
	if got := Round6(-0.1234567); got != -0.123457 {
		t.Errorf("Expected -0.123457, got %v", got)
	}
}

func TestExtraColumns(t *testing.T) {
	stations := []Station{
		{ID: "a", Extra: map[string]string{"river": "Po", "name": "Ponte"}},
		{ID: "b", Extra: map[string]string{"river": "Adige"}},
	}
	cols := ExtraColumns(stations)
	if len(cols) != 2 || cols[0] != "name" || cols[1] != "river" {
		t.Errorf("Expected [name river], got %v", cols)
	}
}

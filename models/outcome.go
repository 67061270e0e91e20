package models

import (
	"encoding/json"
	"time"
)

// Status of a station after one stage
type Status string

const (
	StatusMatched Status = "matched"
	StatusSkipped Status = "skipped"
)

// Reason tags why a station was skipped
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonInvalidArea   Reason = "invalid_area"
	ReasonBelowMinArea  Reason = "below_min_area"
	ReasonMissingFine   Reason = "missing_fine"
	ReasonConflict      Reason = "conflict"
	ReasonNoData        Reason = "no_data"
	ReasonDelineation   Reason = "delineation"
	ReasonVectorization Reason = "vectorization"
)

// Stage names
const (
	StageFine   = "fine"
	StageCoarse = "coarse"
)

// Outcome is the per-station, per-stage result of a run
type Outcome struct {
	RunID      string    `json:"run_id"`
	StationID  string    `json:"station_id"`
	Stage      string    `json:"stage"`
	Resolution string    `json:"resolution"`
	Status     Status    `json:"status"`
	Reason     Reason    `json:"reason,omitempty"`
	Message    string    `json:"message,omitempty"`
	Match      *Match    `json:"match,omitempty"`
	At         time.Time `json:"at"`
}

// ToJSON serializes the Outcome to JSON
func (o *Outcome) ToJSON() ([]byte, error) {
	return json.Marshal(o)
}

// OutcomeFromJSON deserializes JSON to Outcome
func OutcomeFromJSON(data []byte) (*Outcome, error) {
	var o Outcome
	err := json.Unmarshal(data, &o)
	return &o, err
}

package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hydrotools/lfcoords/models"
)

// Counts summarises a run
type Counts struct {
	Input           int `json:"input"`
	Dropped         int `json:"dropped"`
	FineMatched     int `json:"fine_matched"`
	FineSkipped     int `json:"fine_skipped"`
	CoarseMatched   int `json:"coarse_matched"`
	CoarseSkipped   int `json:"coarse_skipped"`
	FineConflicts   int `json:"fine_conflicts"`
	CoarseConflicts int `json:"coarse_conflicts"`
}

// Report holds one outcome per station per stage
type Report struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Fine     string           `json:"fine_resolution"`
	Coarse   string           `json:"coarse_resolution"`
	Counts   Counts           `json:"counts"`
	Outcomes []models.Outcome `json:"outcomes"`
}

func newReport(runID, fine, coarse string) *Report {
	return &Report{RunID: runID, Started: time.Now(), Fine: fine, Coarse: coarse}
}

func (r *Report) add(o models.Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	ok := o.Status == models.StatusMatched
	switch {
	case o.Stage == models.StageFine && ok:
		r.Counts.FineMatched++
	case o.Stage == models.StageFine:
		r.Counts.FineSkipped++
	case ok:
		r.Counts.CoarseMatched++
	default:
		r.Counts.CoarseSkipped++
	}
}

// Skipped returns the skipped outcomes of a stage
func (r *Report) Skipped(stage string) []models.Outcome {
	var out []models.Outcome
	for _, o := range r.Outcomes {
		if o.Stage == stage && o.Status == models.StatusSkipped {
			out = append(out, o)
		}
	}
	return out
}

// Log prints the run summary
func (r *Report) Log() {
	c := r.Counts
	log.Println("═══════════════════════════════════════════════════════════")
	log.Printf("📊 Run %s finished in %v", r.RunID, r.Finished.Sub(r.Started).Round(time.Millisecond))
	log.Printf("📊 Stations: %d read, %d dropped from the table", c.Input, c.Dropped)
	log.Printf("📊 %s grid: %d located, %d skipped, %d conflicts", r.Fine, c.FineMatched, c.FineSkipped, c.FineConflicts)
	log.Printf("📊 %s grid: %d located, %d skipped, %d conflicts", r.Coarse, c.CoarseMatched, c.CoarseSkipped, c.CoarseConflicts)
	log.Println("═══════════════════════════════════════════════════════════")
}

// WriteJSON writes report_<runid>.json into folder and returns its path
func (r *Report) WriteJSON(folder string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}
	path := filepath.Join(folder, "report_"+r.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// Package pipeline runs the two-stage coordinate correction over a station
// table: fine-grid search, fine conflicts, coarse-grid search, coarse
// conflicts.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosuri/uiprogress"
	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/conflicts"
	"github.com/hydrotools/lfcoords/flowdir"
	"github.com/hydrotools/lfcoords/locator"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/raster"
)

// ErrGridMismatch is returned when an upstream raster and its LDD do not
// share the same grid
var ErrGridMismatch = errors.New("pipeline: upstream and LDD grids differ")

// Inputs are the loaded station table and rasters. Upstream areas are in km2.
type Inputs struct {
	Stations []models.Station
	Dropped  int // rows removed from the table before the run

	UpstreamFine   *raster.Grid
	LDDFine        *flowdir.Network
	UpstreamCoarse *raster.Grid
	LDDCoarse      *flowdir.Network
}

// Validate checks that each upstream raster matches its LDD
func (in *Inputs) Validate() error {
	if len(in.Stations) == 0 {
		return errors.New("pipeline: no stations")
	}
	if in.UpstreamFine == nil || in.LDDFine == nil || in.UpstreamCoarse == nil || in.LDDCoarse == nil {
		return errors.New("pipeline: missing raster")
	}
	if !raster.SameGrid(in.UpstreamFine, in.LDDFine.Grid()) {
		return fmt.Errorf("%w: fine", ErrGridMismatch)
	}
	if !raster.SameGrid(in.UpstreamCoarse, in.LDDCoarse.Grid()) {
		return fmt.Errorf("%w: coarse", ErrGridMismatch)
	}
	return nil
}

// Runner holds the run settings
type Runner struct {
	Conditions config.ConditionsConfig
	Reservoirs bool

	// Progress shows a progress bar per stage
	Progress bool

	// Outcomes, when set, receives every outcome as soon as it is known.
	// The runner does not close it.
	Outcomes chan<- *models.Outcome
}

// NewRunner takes the thresholds from the run configuration
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{Conditions: cfg.Conditions, Reservoirs: cfg.Reservoirs}
}

// Result is everything a run produces
type Result struct {
	Report  *Report
	Records []models.Record

	Fine, Coarse                   raster.Resolution
	FineCatchments                 []models.Catchment
	CoarseCatchments               []models.Catchment
	FineConflicts, CoarseConflicts []models.ConflictGroup
}

// Run corrects every station on both grids. Per-station failures are
// recorded in the report and never abort the run.
func (r *Runner) Run(in Inputs) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Records: models.NewRecords(in.Stations),
		Fine:    raster.FineResolution(in.LDDFine.Grid()),
		Coarse:  raster.CoarseResolution(in.LDDCoarse.Grid()),
	}
	res.Report = newReport(uuid.New().String(), res.Fine.Label, res.Coarse.Label)
	res.Report.Counts.Input = len(in.Stations)
	res.Report.Counts.Dropped = in.Dropped

	log.Printf("📊 Run %s: %d stations, fine grid %s, coarse grid %s",
		res.Report.RunID, len(in.Stations), res.Fine.Label, res.Coarse.Label)

	fine := locator.NewFineLocator(in.UpstreamFine, in.LDDFine, res.Fine)
	polygons := r.fineStage(fine, res)
	res.FineConflicts = conflicts.Find(res.Records, res.Fine.Label)
	conflicts.Log(res.FineConflicts)

	coarse := &locator.CoarseLocator{
		Upstream:   in.UpstreamCoarse,
		Router:     in.LDDCoarse,
		Res:        res.Coarse,
		MinArea:    r.Conditions.MinArea,
		AbsError:   r.Conditions.AbsError,
		PctError:   r.Conditions.PctError,
		Reservoirs: r.Reservoirs,
	}
	r.coarseStage(coarse, polygons, conflicts.Members(res.FineConflicts), res)
	res.CoarseConflicts = conflicts.Find(res.Records, res.Coarse.Label)
	conflicts.Log(res.CoarseConflicts)

	res.Report.Counts.FineConflicts = len(res.FineConflicts)
	res.Report.Counts.CoarseConflicts = len(res.CoarseConflicts)
	res.Report.Finished = time.Now()
	res.Report.Log()
	return res, nil
}

// fineStage returns the fine catchment of every located station by id
func (r *Runner) fineStage(l *locator.FineLocator, res *Result) map[string]*models.Catchment {
	polygons := make(map[string]*models.Catchment)
	bar := r.newBar(models.StageFine, len(res.Records))
	defer bar.stop()

	for i := range res.Records {
		rec := &res.Records[i]
		st := rec.Station

		m, c, err := l.Locate(st)
		if err != nil {
			log.Printf("❌ Station %s could not be located in the %s grid: %v", st.ID, res.Fine.Label, err)
			r.record(res.Report, skipped(res.Report.RunID, st.ID, models.StageFine, res.Fine.Label, err))
			bar.incr()
			continue
		}

		rec.Matches[res.Fine.Label] = *m
		polygons[st.ID] = c
		res.FineCatchments = append(res.FineCatchments, *c)
		log.Printf("✅ Station %s located in the %s grid (stage %d, %.1f%% area error)", st.ID, res.Fine.Label, m.Stage, m.PctError)
		r.record(res.Report, matched(res.Report.RunID, st.ID, models.StageFine, m, ""))
		bar.incr()
	}
	return polygons
}

// coarseStage moves every fine match onto the coarse grid. Stations in a
// fine conflict are left out.
func (r *Runner) coarseStage(l *locator.CoarseLocator, polygons map[string]*models.Catchment, conflicting map[string]bool, res *Result) {
	bar := r.newBar(models.StageCoarse, len(res.Records))
	defer bar.stop()

	for i := range res.Records {
		rec := &res.Records[i]
		st := rec.Station

		fm, ok := rec.Matches[res.Fine.Label]
		fc := polygons[st.ID]
		if !ok || fc == nil {
			o := skipped(res.Report.RunID, st.ID, models.StageCoarse, res.Coarse.Label, nil)
			o.Reason = models.ReasonMissingFine
			o.Message = "no match in the " + res.Fine.Label + " grid"
			r.record(res.Report, o)
			bar.incr()
			continue
		}
		if conflicting[st.ID] {
			o := skipped(res.Report.RunID, st.ID, models.StageCoarse, res.Coarse.Label, nil)
			o.Reason = models.ReasonConflict
			o.Message = "shares its " + res.Fine.Label + " pixel with another station"
			log.Printf("⚠️  Station %s skipped in the %s grid: %s", st.ID, res.Coarse.Label, o.Message)
			r.record(res.Report, o)
			bar.incr()
			continue
		}

		m, c, err := l.Locate(st, fm, fc.Polygon)
		message := ""
		switch {
		case errors.Is(err, locator.ErrNoDownstream):
			message = err.Error()
			log.Printf("⚠️  Reservoir %s kept at the matched pixel: %v", st.ID, err)
		case errors.Is(err, locator.ErrBelowMinArea):
			log.Printf("⚠️  Station %s skipped in the %s grid: %v", st.ID, res.Coarse.Label, err)
			r.record(res.Report, skipped(res.Report.RunID, st.ID, models.StageCoarse, res.Coarse.Label, err))
			bar.incr()
			continue
		case err != nil:
			log.Printf("❌ Station %s could not be located in the %s grid: %v", st.ID, res.Coarse.Label, err)
			r.record(res.Report, skipped(res.Report.RunID, st.ID, models.StageCoarse, res.Coarse.Label, err))
			bar.incr()
			continue
		}

		rec.Matches[res.Coarse.Label] = *m
		res.CoarseCatchments = append(res.CoarseCatchments, *c)
		log.Printf("✅ Station %s located in the %s grid (shape score %.3f)", st.ID, res.Coarse.Label, m.ShapeScore)
		r.record(res.Report, matched(res.Report.RunID, st.ID, models.StageCoarse, m, message))
		bar.incr()
	}
}

func (r *Runner) record(rep *Report, o models.Outcome) {
	rep.add(o)
	if r.Outcomes != nil {
		r.Outcomes <- &o
	}
}

// progress is an optional bar over one stage
type progress struct {
	p   *uiprogress.Progress
	bar *uiprogress.Bar
}

func (r *Runner) newBar(stage string, n int) *progress {
	if !r.Progress || n == 0 {
		return &progress{}
	}
	p := uiprogress.New()
	p.Start()
	bar := p.AddBar(n).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return stage
	})
	return &progress{p: p, bar: bar}
}

func (pr *progress) incr() {
	if pr.bar != nil {
		pr.bar.Incr()
	}
}

func (pr *progress) stop() {
	if pr.p != nil {
		pr.p.Stop()
	}
}

func matched(runID, stationID, stage string, m *models.Match, message string) models.Outcome {
	return models.Outcome{
		RunID:      runID,
		StationID:  stationID,
		Stage:      stage,
		Resolution: m.Resolution,
		Status:     models.StatusMatched,
		Message:    message,
		Match:      m,
		At:         time.Now(),
	}
}

func skipped(runID, stationID, stage, resolution string, err error) models.Outcome {
	o := models.Outcome{
		RunID:      runID,
		StationID:  stationID,
		Stage:      stage,
		Resolution: resolution,
		Status:     models.StatusSkipped,
		Reason:     ReasonOf(err),
		At:         time.Now(),
	}
	if err != nil {
		o.Message = err.Error()
	}
	return o
}

// ReasonOf tags a locator error
func ReasonOf(err error) models.Reason {
	switch {
	case err == nil:
		return models.ReasonNone
	case errors.Is(err, locator.ErrInvalidArea):
		return models.ReasonInvalidArea
	case errors.Is(err, locator.ErrBelowMinArea):
		return models.ReasonBelowMinArea
	case errors.Is(err, locator.ErrDelineation):
		return models.ReasonDelineation
	case errors.Is(err, locator.ErrVectorization):
		return models.ReasonVectorization
	default:
		return models.ReasonNoData
	}
}

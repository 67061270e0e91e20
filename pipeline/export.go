package pipeline

import (
	"log"

	"github.com/hydrotools/lfcoords/export"
	"github.com/hydrotools/lfcoords/models"
)

// Export writes the layers of both resolutions and the report. stem is the
// base name of the station table. The coarse point table keeps the fine
// columns next to the coarse ones.
func Export(w *export.Writer, stem string, res *Result) error {
	layers := []struct {
		label       string
		resolutions []string
		catchments  []models.Catchment
		conflicts   []models.ConflictGroup
	}{
		{res.Fine.Label, []string{res.Fine.Label}, res.FineCatchments, res.FineConflicts},
		{res.Coarse.Label, []string{res.Fine.Label, res.Coarse.Label}, res.CoarseCatchments, res.CoarseConflicts},
	}
	for _, l := range layers {
		if err := w.Catchments("catchments_"+l.label, l.catchments); err != nil {
			return err
		}
		if err := w.Points(stem+"_"+l.label, res.Records, l.resolutions...); err != nil {
			return err
		}
		if len(l.conflicts) > 0 {
			if err := w.Conflicts("conflicts_"+l.label, l.conflicts); err != nil {
				return err
			}
		}
	}

	path, err := res.Report.WriteJSON(w.Folder)
	if err != nil {
		return err
	}
	log.Printf("✅ Report written to %s", path)
	return nil
}

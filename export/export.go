// Package export writes the corrected point tables, catchments and conflict
// groups as shapefiles and GeoJSON.
package export

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hydrotools/lfcoords/models"
)

// Output formats
const (
	FormatShapefile = "shp"
	FormatGeoJSON   = "geojson"
)

// Formats lists the supported output formats
var Formats = []string{FormatShapefile, FormatGeoJSON}

// Writer writes every layer into Folder in each of Formats
type Writer struct {
	Folder  string
	Formats []string
	CRS     string // WKT or EPSG code of the coordinates
}

// NewWriter creates the output folder if needed
func NewWriter(folder string, formats []string, crs string) (*Writer, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}
	if len(formats) == 0 {
		formats = []string{FormatShapefile}
	}
	return &Writer{Folder: folder, Formats: formats, CRS: crs}, nil
}

// Points writes one point per station with the matched columns of every
// resolution. The point sits at the corrected coordinate of the last
// resolution when the station has a match there and at the reference
// coordinate otherwise. Without resolutions it writes the reference table.
func (w *Writer) Points(name string, records []models.Record, resolutions ...string) error {
	table := pointTable(records, resolutions)
	return w.each(name, func(path, format string) error {
		switch format {
		case FormatGeoJSON:
			return writePointsGeoJSON(path, table)
		default:
			return writePointsShapefile(path, table, w.CRS)
		}
	})
}

// Catchments writes the catchment polygons with their attributes
func (w *Writer) Catchments(name string, catchments []models.Catchment) error {
	return w.each(name, func(path, format string) error {
		switch format {
		case FormatGeoJSON:
			return writeCatchmentsGeoJSON(path, catchments)
		default:
			return writeCatchmentsShapefile(path, catchments, w.CRS)
		}
	})
}

// Conflicts writes one point per conflict group
func (w *Writer) Conflicts(name string, groups []models.ConflictGroup) error {
	return w.each(name, func(path, format string) error {
		switch format {
		case FormatGeoJSON:
			return writeConflictsGeoJSON(path, groups)
		default:
			return writeConflictsShapefile(path, groups, w.CRS)
		}
	})
}

func (w *Writer) each(name string, write func(path, format string) error) error {
	for _, format := range w.Formats {
		path := filepath.Join(w.Folder, name+"."+format)
		if err := write(path, format); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		log.Printf("✅ Wrote %s", path)
	}
	return nil
}

// table is the attribute view of a point layer
type table struct {
	strings []string // id first, then extra columns
	numbers []string // sorted
	rows    []row
}

type row struct {
	x, y    float64
	strings map[string]string
	numbers map[string]float64
}

func pointTable(records []models.Record, resolutions []string) table {
	stations := make([]models.Station, len(records))
	for i, r := range records {
		stations[i] = r.Station
	}
	t := table{strings: append([]string{"id"}, models.ExtraColumns(stations)...)}

	seen := make(map[string]bool)
	for i := range records {
		r := &records[i]
		x, y := r.Station.Lon, r.Station.Lat
		if n := len(resolutions); n > 0 {
			if m, ok := r.Matches[resolutions[n-1]]; ok {
				x, y = m.Lon, m.Lat
			}
		}
		fields := r.Fields(resolutions...)
		for k := range fields {
			if !seen[k] {
				seen[k] = true
				t.numbers = append(t.numbers, k)
			}
		}
		strs := map[string]string{"id": r.Station.ID}
		for k, v := range r.Station.Extra {
			strs[k] = v
		}
		t.rows = append(t.rows, row{x: x, y: y, strings: strs, numbers: fields})
	}
	sort.Strings(t.numbers)
	return t
}

// isMatchedArea reports whether a column holds a modeled area, written as
// an integer
func isMatchedArea(name string) bool {
	return strings.HasPrefix(name, "area_")
}

func attribute(name string, v float64) interface{} {
	if isMatchedArea(name) {
		return int(math.Round(v))
	}
	return v
}

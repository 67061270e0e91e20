package models

import (
	"encoding/json"
	"math"
	"sort"
)

// Station represents a single gauging station from the input table
type Station struct {
	ID string `json:"id"`

	// Reference location and drainage area (km2)
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Area float64 `json:"area"`

	// Any other columns of the input table, carried through to the outputs
	Extra map[string]string `json:"extra,omitempty"`
}

// ToJSON serializes the Station to JSON
func (s *Station) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// ExtraColumns returns the sorted names of the extra columns found in stations
func ExtraColumns(stations []Station) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, s := range stations {
		for k := range s.Extra {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// Column builds a resolution-suffixed column name, e.g. Column("area", "3sec") = "area_3sec"
func Column(name, resolution string) string {
	if resolution == "" {
		return name
	}
	return name + "_" + resolution
}

// Round6 rounds a coordinate to the precision written to the output tables
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

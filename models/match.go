package models

import (
	"sort"

	"github.com/ctessum/geom"
)

// Match is the corrected location of a station at one grid resolution
type Match struct {
	Resolution string `json:"resolution"`

	// Recorded coordinate, rounded to 6 decimals. For reservoirs on the coarse
	// grid this is one cell downstream of the matched pixel.
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	// Modeled upstream area (km2) at the matched pixel
	Area     float64 `json:"area"`
	PctError float64 `json:"pct_error"`

	// Fine search stage that accepted the pixel (1-based)
	Stage int `json:"stage,omitempty"`

	// Intersection-over-union against the fine catchment (coarse only)
	ShapeScore float64 `json:"shape_score,omitempty"`
	Centre     bool    `json:"centre,omitempty"`
	Shifted    bool    `json:"shifted,omitempty"`
}

// Catchment is the vectorized basin of a matched pixel
type Catchment struct {
	StationID  string       `json:"id"`
	Resolution string       `json:"resolution"`
	Polygon    geom.Polygon `json:"-"`

	// Reference and matched values side by side, keyed by column name
	// (area, lat, lon, area_3sec, lat_3sec, ...)
	Fields map[string]float64 `json:"fields"`
}

// FieldNames returns the sorted attribute names of the catchments
func FieldNames(catchments []Catchment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range catchments {
		for k := range c.Fields {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Record is one row of the corrected point table
type Record struct {
	Station Station `json:"station"`

	// Corrections keyed by resolution label; absent when the station was
	// not located at that resolution
	Matches map[string]Match `json:"matches"`
}

// NewRecords wraps stations into records without any correction
func NewRecords(stations []Station) []Record {
	records := make([]Record, len(stations))
	for i, s := range stations {
		records[i] = Record{Station: s, Matches: make(map[string]Match)}
	}
	return records
}

// Fields returns the station reference values and its match at each of
// resolutions
func (r *Record) Fields(resolutions ...string) map[string]float64 {
	f := map[string]float64{
		"area": r.Station.Area,
		"lat":  r.Station.Lat,
		"lon":  r.Station.Lon,
	}
	for _, res := range resolutions {
		if m, ok := r.Matches[res]; ok {
			f[Column("area", res)] = m.Area
			f[Column("lat", res)] = m.Lat
			f[Column("lon", res)] = m.Lon
		}
	}
	return f
}

// ConflictGroup lists stations that share a corrected coordinate
type ConflictGroup struct {
	Resolution string   `json:"resolution"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	StationIDs []string `json:"station_ids"`
}

// Package conflicts finds stations that were moved onto the same pixel.
package conflicts

import (
	"log"

	"github.com/hydrotools/lfcoords/models"
)

type key struct{ lat, lon float64 }

// Find groups the corrected coordinates at resolution and returns every
// coordinate shared by more than one station, in table order. Stations
// without a match at resolution are ignored.
func Find(records []models.Record, resolution string) []models.ConflictGroup {
	index := make(map[key]int)
	var groups []models.ConflictGroup
	for _, r := range records {
		m, ok := r.Matches[resolution]
		if !ok {
			continue
		}
		k := key{m.Lat, m.Lon}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.ConflictGroup{
				Resolution: resolution,
				Lat:        m.Lat,
				Lon:        m.Lon,
			})
		}
		groups[i].StationIDs = append(groups[i].StationIDs, r.Station.ID)
	}

	conflicts := groups[:0]
	for _, g := range groups {
		if len(g.StationIDs) > 1 {
			conflicts = append(conflicts, g)
		}
	}
	return conflicts
}

// Members returns the ids of every station involved in a conflict
func Members(groups []models.ConflictGroup) map[string]bool {
	ids := make(map[string]bool)
	for _, g := range groups {
		for _, id := range g.StationIDs {
			ids[id] = true
		}
	}
	return ids
}

// Log writes one warning per conflict group
func Log(groups []models.ConflictGroup) {
	if len(groups) == 0 {
		return
	}
	log.Printf("⚠️  %d conflicting coordinate(s) at %s", len(groups), groups[0].Resolution)
	for _, g := range groups {
		log.Printf("⚠️  (%.6f, %.6f) shared by %v", g.Lat, g.Lon, g.StationIDs)
	}
}

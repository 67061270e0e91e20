package export

import (
	"os"

	"github.com/ctessum/geom"
	"github.com/hydrotools/lfcoords/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func writeFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writePointsGeoJSON(path string, t table) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range t.rows {
		f := geojson.NewFeature(orb.Point{r.x, r.y})
		for k, v := range r.strings {
			f.Properties[k] = v
		}
		for k, v := range r.numbers {
			f.Properties[k] = attribute(k, v)
		}
		fc.Append(f)
	}
	return writeFeatureCollection(path, fc)
}

func writeCatchmentsGeoJSON(path string, catchments []models.Catchment) error {
	fc := geojson.NewFeatureCollection()
	for _, c := range catchments {
		f := geojson.NewFeature(Geometry(c.Polygon))
		f.Properties["id"] = c.StationID
		f.Properties["resolution"] = c.Resolution
		for k, v := range c.Fields {
			f.Properties[k] = attribute(k, v)
		}
		fc.Append(f)
	}
	return writeFeatureCollection(path, fc)
}

func writeConflictsGeoJSON(path string, groups []models.ConflictGroup) error {
	fc := geojson.NewFeatureCollection()
	for _, g := range groups {
		f := geojson.NewFeature(orb.Point{g.Lon, g.Lat})
		f.Properties["resolution"] = g.Resolution
		f.Properties["station_ids"] = g.StationIDs
		f.Properties["count"] = len(g.StationIDs)
		fc.Append(f)
	}
	return writeFeatureCollection(path, fc)
}

// Geometry converts a catchment into a GeoJSON polygon, or a multipolygon
// when cells touching at a corner produced several outer rings. Outer rings
// are counter-clockwise and holes clockwise.
func Geometry(p geom.Polygon) orb.Geometry {
	var outers []orb.Polygon
	var holes []orb.Ring
	for _, path := range p {
		if len(path) == 0 {
			continue
		}
		ring := make(orb.Ring, 0, len(path)+1)
		for _, pt := range path {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		if ring.Orientation() == orb.CW {
			holes = append(holes, ring)
			continue
		}
		outers = append(outers, orb.Polygon{ring})
	}
	if len(outers) == 0 {
		return orb.Polygon{}
	}

	for _, h := range holes {
		i := 0
		hb := h.Bound()
		for j, o := range outers {
			if b := o[0].Bound(); b.Contains(hb.Min) && b.Contains(hb.Max) {
				i = j
				break
			}
		}
		outers[i] = append(outers[i], h)
	}

	if len(outers) == 1 {
		return outers[0]
	}
	return orb.MultiPolygon(outers)
}

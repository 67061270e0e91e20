package export

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/raster"
	shp "github.com/jonas-p/go-shp"
)

// wgs84WKT is the ESRI flavour written to .prj files for EPSG:4326
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// dBase limits
const (
	maxFieldName = 10
	maxString    = 254
)

// fieldNames truncates column names to the dBase limit, numbering clashes
func fieldNames(names []string) []string {
	used := make(map[string]bool)
	out := make([]string, len(names))
	for i, n := range names {
		f := n
		if len(f) > maxFieldName {
			f = f[:maxFieldName]
		}
		for k := 1; used[f]; k++ {
			suffix := fmt.Sprint(k)
			base := n
			if len(base) > maxFieldName-len(suffix) {
				base = base[:maxFieldName-len(suffix)]
			}
			f = base + suffix
		}
		used[f] = true
		out[i] = f
	}
	return out
}

func numberField(name, column string) shp.Field {
	switch {
	case isMatchedArea(column):
		return shp.NumberField(name, 12)
	case column == "lat" || column == "lon" || strings.HasPrefix(column, "lat_") || strings.HasPrefix(column, "lon_"):
		return shp.FloatField(name, 12, 6)
	default:
		return shp.FloatField(name, 18, 3)
	}
}

func stringField(name string, values []string) shp.Field {
	n := 1
	for _, v := range values {
		if len(v) > n {
			n = len(v)
		}
	}
	if n > maxString {
		n = maxString
	}
	return shp.StringField(name, uint8(n))
}

func clip(s string) string {
	if len(s) > maxString {
		return s[:maxString]
	}
	return s
}

// blank fills a missing value so the record holds no stray bytes
func blank(f shp.Field) string {
	return strings.Repeat(" ", int(f.Size))
}

func text(f shp.Field, s string) string {
	if s == "" {
		return blank(f)
	}
	return clip(s)
}

// writePrj writes the projection sidecar of a shapefile
func writePrj(path, crs string) error {
	wkt := crs
	switch {
	case crs == "" || crs == raster.WGS84:
		wkt = wgs84WKT
	case !strings.HasPrefix(crs, "GEOGCS") && !strings.HasPrefix(crs, "PROJCS"):
		log.Printf("⚠️  No WKT for %s, skipping %s", crs, path)
		return nil
	}
	return os.WriteFile(path, []byte(wkt), 0644)
}

func prjPath(path string) string {
	return strings.TrimSuffix(path, ".shp") + ".prj"
}

func writePointsShapefile(path string, t table, crs string) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return err
	}
	defer w.Close()

	columns := append(append([]string{}, t.strings...), t.numbers...)
	names := fieldNames(columns)
	fields := make([]shp.Field, len(columns))
	for i, col := range t.strings {
		values := make([]string, len(t.rows))
		for j, r := range t.rows {
			values[j] = r.strings[col]
		}
		fields[i] = stringField(names[i], values)
	}
	for i, col := range t.numbers {
		k := len(t.strings) + i
		fields[k] = numberField(names[k], col)
	}
	if err := w.SetFields(fields); err != nil {
		return err
	}

	for _, r := range t.rows {
		n := int(w.Write(&shp.Point{X: r.x, Y: r.y}))
		for i, col := range t.strings {
			if err := w.WriteAttribute(n, i, text(fields[i], r.strings[col])); err != nil {
				return err
			}
		}
		for i, col := range t.numbers {
			k := len(t.strings) + i
			var value interface{} = blank(fields[k])
			if v, ok := r.numbers[col]; ok {
				value = attribute(col, v)
			}
			if err := w.WriteAttribute(n, k, value); err != nil {
				return err
			}
		}
	}
	return writePrj(prjPath(path), crs)
}

// shapefileParts closes every ring and reverses it: shapefile outer rings
// run clockwise
func shapefileParts(p geom.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(p))
	for _, ring := range p {
		if len(ring) == 0 {
			continue
		}
		part := make([]shp.Point, 0, len(ring)+1)
		for i := len(ring) - 1; i >= 0; i-- {
			part = append(part, shp.Point{X: ring[i].X, Y: ring[i].Y})
		}
		if part[0] != part[len(part)-1] {
			part = append(part, part[0])
		}
		parts = append(parts, part)
	}
	return parts
}

func writeCatchmentsShapefile(path string, catchments []models.Catchment, crs string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer w.Close()

	columns := models.FieldNames(catchments)
	names := fieldNames(append([]string{"id"}, columns...))
	ids := make([]string, len(catchments))
	for i, c := range catchments {
		ids[i] = c.StationID
	}
	fields := []shp.Field{stringField(names[0], ids)}
	for i, col := range columns {
		fields = append(fields, numberField(names[i+1], col))
	}
	if err := w.SetFields(fields); err != nil {
		return err
	}

	for _, c := range catchments {
		poly := shp.Polygon(*shp.NewPolyLine(shapefileParts(c.Polygon)))
		n := int(w.Write(&poly))
		if err := w.WriteAttribute(n, 0, text(fields[0], c.StationID)); err != nil {
			return err
		}
		for i, col := range columns {
			var value interface{} = blank(fields[i+1])
			if v, ok := c.Fields[col]; ok {
				value = attribute(col, v)
			}
			if err := w.WriteAttribute(n, i+1, value); err != nil {
				return err
			}
		}
	}
	return writePrj(prjPath(path), crs)
}

func writeConflictsShapefile(path string, groups []models.ConflictGroup, crs string) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return err
	}
	defer w.Close()

	ids := make([]string, len(groups))
	for i, g := range groups {
		sorted := append([]string{}, g.StationIDs...)
		sort.Strings(sorted)
		ids[i] = strings.Join(sorted, ",")
	}
	fields := []shp.Field{
		stringField("ids", ids),
		shp.NumberField("count", 6),
		shp.FloatField("lat", 12, 6),
		shp.FloatField("lon", 12, 6),
	}
	if err := w.SetFields(fields); err != nil {
		return err
	}

	for i, g := range groups {
		n := int(w.Write(&shp.Point{X: g.Lon, Y: g.Lat}))
		values := []interface{}{text(fields[0], ids[i]), len(g.StationIDs), g.Lat, g.Lon}
		for f, v := range values {
			if err := w.WriteAttribute(n, f, v); err != nil {
				return err
			}
		}
	}
	return writePrj(prjPath(path), crs)
}

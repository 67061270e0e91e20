// Package geotiff reads single-band GeoTIFF (or any GDAL-readable) rasters
// into raster.Grid values.
package geotiff

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/hydrotools/lfcoords/raster"
)

var register sync.Once

// Read opens fp with GDAL and loads its first band
func Read(fp string) (*raster.Grid, error) {
	register.Do(godal.RegisterAll)

	ds, err := godal.Open(fp)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", fp, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return nil, fmt.Errorf("raster %s has no bands", fp)
	}
	if st.NBands > 1 {
		return nil, fmt.Errorf("raster %s has %d bands, expected a single band", fp, st.NBands)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("raster %s has no geotransform: %w", fp, err)
	}

	g := raster.NewGrid(st.SizeY, st.SizeX, raster.FromGDAL(gt))
	if wkt := ds.Projection(); wkt != "" {
		g.CRS = wkt
	}

	band := ds.Bands()[0]
	if nd, ok := band.NoData(); ok {
		g.NoData, g.HasNoData = nd, true
	}
	if err := band.Read(0, 0, g.Data, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("failed to read raster %s: %w", fp, err)
	}
	return g, g.Validate()
}

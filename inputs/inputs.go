// Package inputs loads the station table and the rasters named by a run
// configuration.
package inputs

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/flowdir"
	"github.com/hydrotools/lfcoords/ingestion"
	"github.com/hydrotools/lfcoords/pipeline"
	"github.com/hydrotools/lfcoords/raster"
)

// ErrNoGeoTIFF is returned for a non-ASCII raster when no GeoTIFF reader is set
var ErrNoGeoTIFF = errors.New("inputs: no reader for non-ASCII rasters")

// Loader reads the inputs of a run
type Loader struct {
	// GeoTIFF reads every raster that is not an ESRI ASCII grid (.asc)
	GeoTIFF func(path string) (*raster.Grid, error)
}

// ReadGrid picks the reader from the file extension
func (l Loader) ReadGrid(path string) (*raster.Grid, error) {
	if strings.EqualFold(filepath.Ext(path), ".asc") {
		return raster.ReadASCII(path)
	}
	if l.GeoTIFF == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoGeoTIFF, path)
	}
	return l.GeoTIFF(path)
}

// Load reads the table, both LDD rasters and both upstream rasters. Upstream
// areas are converted to km2.
func (l Loader) Load(cfg *config.Config) (pipeline.Inputs, error) {
	var in pipeline.Inputs
	start := time.Now()

	stations, dropped, err := ingestion.NewCSVReader(cfg.Input.Points).ReadAll()
	if err != nil {
		return in, err
	}
	in.Stations, in.Dropped = stations, dropped

	in.LDDFine, err = l.network(cfg.Input.LDDFine, cfg.FineType())
	if err != nil {
		return in, err
	}
	in.UpstreamFine, err = l.upstream(cfg.Input.UpstreamFine, cfg.Input.UpstreamFineUnits)
	if err != nil {
		return in, err
	}
	in.LDDCoarse, err = l.network(cfg.Input.LDDCoarse, cfg.CoarseType())
	if err != nil {
		return in, err
	}
	in.UpstreamCoarse, err = l.upstream(cfg.Input.UpstreamCoarse, cfg.Input.UpstreamCoarseUnits)
	if err != nil {
		return in, err
	}

	if err := in.Validate(); err != nil {
		return in, err
	}
	log.Printf("✅ Inputs loaded in %v", time.Since(start).Round(time.Millisecond))
	return in, nil
}

func (l Loader) network(path string, t flowdir.Type) (*flowdir.Network, error) {
	g, err := l.ReadGrid(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read LDD: %w", err)
	}
	n, err := flowdir.New(g, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Printf("✅ LDD %s: %dx%d, %s encoding", filepath.Base(path), g.Rows, g.Cols, t)
	return n, nil
}

func (l Loader) upstream(path, units string) (*raster.Grid, error) {
	g, err := l.ReadGrid(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream area: %w", err)
	}
	if f := config.UnitFactor(units); f != 1 {
		g.Scale(f)
	}
	log.Printf("✅ Upstream area %s: %dx%d, %s", filepath.Base(path), g.Rows, g.Cols, units)
	return g, nil
}

// Stem is the base name of the station table, used to name the point layers
func Stem(cfg *config.Config) string {
	base := filepath.Base(cfg.Input.Points)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

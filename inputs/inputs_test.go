package inputs

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hydrotools/lfcoords/config"
	"github.com/hydrotools/lfcoords/raster"
)

func writeGrid(t *testing.T, dir, name string, n int, cs, value float64) string {
	t.Helper()
	g := raster.NewGrid(n, n, raster.Transform{X0: 10, DX: cs, Y0: 45, DY: -cs})
	for i := range g.Data {
		g.Data[i] = value
	}
	path := filepath.Join(dir, name)
	if err := raster.WriteASCII(path, g); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	points := filepath.Join(dir, "gauges.csv")
	if err := os.WriteFile(points, []byte("ID,lat,lon,area\nst1,44.99,10.01,120\nst2,44.98,10.02,\n"), 0644); err != nil {
		t.Fatalf("Failed to create test CSV: %v", err)
	}

	cfg := config.Default()
	cfg.Input.Points = points
	cfg.Input.LDDFine = writeGrid(t, dir, "ldd_fine.asc", 8, 0.0025, 5)
	cfg.Input.UpstreamFine = writeGrid(t, dir, "ups_fine.asc", 8, 0.0025, 3)
	cfg.Input.LDDCoarse = writeGrid(t, dir, "ldd_coarse.asc", 2, 0.01, 5)
	cfg.Input.UpstreamCoarse = writeGrid(t, dir, "ups_coarse.asc", 2, 0.01, 2.5e6)
	cfg.Input.LDDFineType = "ldd"
	return &cfg
}

func TestLoad(t *testing.T) {
	cfg := testConfig(t)
	in, err := Loader{}.Load(cfg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(in.Stations) != 1 || in.Dropped != 1 {
		t.Errorf("Expected 1 station and 1 dropped row, got %d and %d", len(in.Stations), in.Dropped)
	}
	if in.UpstreamFine.At(0, 0) != 3 {
		t.Errorf("Expected fine upstream kept in km2, got %v", in.UpstreamFine.At(0, 0))
	}
	if math.Abs(in.UpstreamCoarse.At(1, 1)-2.5) > 1e-9 {
		t.Errorf("Expected coarse upstream converted from m2, got %v", in.UpstreamCoarse.At(1, 1))
	}
	if in.LDDFine.Grid().Rows != 8 || in.LDDCoarse.Grid().Rows != 2 {
		t.Errorf("Unexpected LDD shapes")
	}
	if Stem(cfg) != "gauges" {
		t.Errorf("Expected stem gauges, got %s", Stem(cfg))
	}
}

func TestLoadRejectsMismatchedGrids(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.UpstreamFine = cfg.Input.UpstreamCoarse
	if _, err := (Loader{}).Load(cfg); err == nil {
		t.Errorf("Expected an error for an upstream grid that does not match its LDD")
	}
}

func TestReadGridNeedsGeoTIFFReader(t *testing.T) {
	if _, err := (Loader{}).ReadGrid("ldd.tif"); !errors.Is(err, ErrNoGeoTIFF) {
		t.Errorf("Expected ErrNoGeoTIFF, got %v", err)
	}

	called := ""
	l := Loader{GeoTIFF: func(path string) (*raster.Grid, error) {
		called = path
		return raster.NewGrid(1, 1, raster.Transform{DX: 1, DY: -1}), nil
	}}
	if _, err := l.ReadGrid("ldd.tif"); err != nil || called != "ldd.tif" {
		t.Errorf("Expected the GeoTIFF reader to be used, got %q %v", called, err)
	}
}

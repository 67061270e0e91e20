package locator

import (
	"errors"
	"math"
	"testing"

	"github.com/hydrotools/lfcoords/flowdir"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/raster"
)

const arcsec3 = 1.0 / 1200

// fineGrids returns an upstream grid of size n x n filled with 1 km2 whose
// centre cell is centred on (10, 45), and a network where every cell is a pit
func fineGrids(t *testing.T, n int) (*raster.Grid, *flowdir.Network) {
	t.Helper()
	half := float64(n) / 2
	tr := raster.Transform{X0: 10 - half*arcsec3, DX: arcsec3, Y0: 45 + half*arcsec3, DY: -arcsec3}

	ups := raster.NewGrid(n, n, tr)
	ldd := raster.NewGrid(n, n, tr)
	for i := range ups.Data {
		ups.Data[i] = 1
		ldd.Data[i] = 5
	}
	net, err := flowdir.New(ldd, flowdir.LDD)
	if err != nil {
		t.Fatalf("flowdir.New failed: %v", err)
	}
	return ups, net
}

func TestFineLocateTwoCellsEast(t *testing.T) {
	ups, net := fineGrids(t, 61)
	ups.Set(30, 32, 118)

	l := NewFineLocator(ups, net, raster.FineResolution(ups))
	st := models.Station{ID: "st1", Lat: 45.0, Lon: 10.0, Area: 120}

	m, c, err := l.Locate(st)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if m.Stage != 1 {
		t.Errorf("Expected a match in stage 1, got stage %d", m.Stage)
	}
	if math.Abs(m.PctError-100*2.0/120) > 1e-9 {
		t.Errorf("Expected pct error 1.67, got %v", m.PctError)
	}
	row, col, err := ups.Cell(m.Lon, m.Lat)
	if err != nil || row != 30 || col != 32 {
		t.Errorf("Expected the pixel 2 cells east (30,32), got (%d,%d) %v", row, col, err)
	}
	if m.Lat != 45 || m.Lon != 10.001667 {
		t.Errorf("Expected (45, 10.001667), got (%v, %v)", m.Lat, m.Lon)
	}
	if m.Resolution != "3sec" || m.Area != 118 {
		t.Errorf("Expected 118 km2 at 3sec, got %v at %s", m.Area, m.Resolution)
	}

	if c.StationID != "st1" || c.Fields["area"] != 120 || c.Fields["area_3sec"] != 118 {
		t.Errorf("Expected reference and matched attributes side by side, got %v", c.Fields)
	}
	if a := c.Polygon.Area(); math.Abs(a-arcsec3*arcsec3) > 1e-11 {
		t.Errorf("Expected a one-cell catchment, got area %v", a)
	}
}

func TestFineSearchWidens(t *testing.T) {
	ups, net := fineGrids(t, 121)
	// 40 cells east: outside the first window, inside the second
	ups.Set(60, 100, 120)

	l := NewFineLocator(ups, net, raster.FineResolution(ups))
	cand, pct, stage, err := l.Search(models.Station{ID: "st2", Lat: 45, Lon: 10, Area: 120})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if stage != 2 {
		t.Errorf("Expected stage 2, got %d", stage)
	}
	if cand.Row != 60 || cand.Col != 100 || pct != 0 {
		t.Errorf("Expected exact match at (60,100), got (%d,%d) with %v%%", cand.Row, cand.Col, pct)
	}
}

func TestFineSearchLastStageAlwaysAccepts(t *testing.T) {
	ups, net := fineGrids(t, 201)
	l := NewFineLocator(ups, net, raster.FineResolution(ups))

	cand, pct, stage, err := l.Search(models.Station{ID: "st3", Lat: 45, Lon: 10, Area: 500})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if stage != len(DefaultStages()) {
		t.Errorf("Expected the last stage, got %d", stage)
	}
	if pct < 0 || math.Abs(pct-99.8) > 1e-9 {
		t.Errorf("Expected pct error 99.8, got %v", pct)
	}
	if abs(cand.Row-100) > 75 || abs(cand.Col-100) > 75 {
		t.Errorf("Expected a pixel inside the largest window, got (%d,%d)", cand.Row, cand.Col)
	}
}

func TestFindPixelClipsWindowAtGridEdge(t *testing.T) {
	ups, net := fineGrids(t, 11)
	ups.Set(0, 10, 50)
	l := NewFineLocator(ups, net, raster.FineResolution(ups))

	cand, pct, err := l.FindPixel(10, 45, 50, DefaultStages()[0])
	if err != nil {
		t.Fatalf("FindPixel failed: %v", err)
	}
	if cand.Row != 0 || cand.Col != 10 || pct != 0 {
		t.Errorf("Expected (0,10) with 0%%, got (%d,%d) with %v%%", cand.Row, cand.Col, pct)
	}
}

func TestFineLocateErrors(t *testing.T) {
	ups, net := fineGrids(t, 11)
	l := NewFineLocator(ups, net, raster.FineResolution(ups))

	if _, _, err := l.Locate(models.Station{ID: "zero", Lat: 45, Lon: 10, Area: 0}); !errors.Is(err, ErrInvalidArea) {
		t.Errorf("Expected ErrInvalidArea, got %v", err)
	}
	if _, _, err := l.Locate(models.Station{ID: "far", Lat: 0, Lon: 0, Area: 10}); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}

	ups.HasNoData, ups.NoData = true, 1
	if _, _, err := l.Locate(models.Station{ID: "nodata", Lat: 45, Lon: 10, Area: 10}); !errors.Is(err, ErrNoData) {
		t.Errorf("Expected ErrNoData on an all-nodata window, got %v", err)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

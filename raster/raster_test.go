package raster

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeASCII(t *testing.T) {
	content := `ncols 3
nrows 2
xllcorner 10.0
yllcorner 44.0
cellsize 0.5
NODATA_value -9999
1 2 3
4 -9999 6`

	g, err := DecodeASCII(strings.NewReader(content))
	if err != nil {
		t.Fatalf("DecodeASCII failed: %v", err)
	}
	if g.Rows != 2 || g.Cols != 3 {
		t.Fatalf("Expected 2x3 grid, got %dx%d", g.Rows, g.Cols)
	}
	if g.Transform.Y0 != 45.0 || g.Transform.DY != -0.5 {
		t.Errorf("Expected top edge 45 and dy -0.5, got %v", g.Transform)
	}
	if g.At(1, 2) != 6 {
		t.Errorf("Expected 6 at (1,2), got %v", g.At(1, 2))
	}
	if g.Valid(g.At(1, 1)) {
		t.Errorf("Expected nodata at (1,1)")
	}

	lon, lat := g.Center(0, 0)
	if lon != 10.25 || lat != 44.75 {
		t.Errorf("Expected centre (10.25, 44.75), got (%v, %v)", lon, lat)
	}
	v, err := g.ValueAt(11.2, 44.1)
	if err != nil || v != 6 {
		t.Errorf("Expected 6 at (11.2, 44.1), got %v (%v)", v, err)
	}
}

func TestDecodeASCIIErrors(t *testing.T) {
	cases := map[string]string{
		"missing header": "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\n1 2",
		"short data":     "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3",
		"bad value":      "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 x",
	}
	for name, content := range cases {
		if _, err := DecodeASCII(strings.NewReader(content)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestASCIIRoundTripWithPrj(t *testing.T) {
	tmpDir := t.TempDir()
	fp := filepath.Join(tmpDir, "ups.asc")

	g := NewGrid(2, 2, Transform{X0: 5, DX: 0.25, Y0: 40, DY: -0.25})
	copy(g.Data, []float64{1, 2.5, 1e6, 0})
	if err := WriteASCII(fp, g); err != nil {
		t.Fatalf("WriteASCII failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "ups.prj"), []byte("GEOGCS[\"WGS 84\"]\n"), 0644); err != nil {
		t.Fatalf("Failed to write prj: %v", err)
	}

	read, err := ReadASCII(fp)
	if err != nil {
		t.Fatalf("ReadASCII failed: %v", err)
	}
	if read.Transform != g.Transform {
		t.Errorf("Expected transform %v, got %v", g.Transform, read.Transform)
	}
	if read.At(1, 0) != 1e6 {
		t.Errorf("Expected 1e6 at (1,0), got %v", read.At(1, 0))
	}
	if read.CRS != `GEOGCS["WGS 84"]` {
		t.Errorf("Expected CRS from prj, got %q", read.CRS)
	}
}

func TestCellOutside(t *testing.T) {
	g := NewGrid(2, 2, Transform{X0: 0, DX: 1, Y0: 2, DY: -1})
	if _, _, err := g.Cell(-0.5, 1); !errors.Is(err, ErrOutside) {
		t.Errorf("Expected ErrOutside, got %v", err)
	}
	if v, err := g.ValueAt(5, 5); err == nil || !math.IsNaN(v) {
		t.Errorf("Expected NaN and error outside the grid")
	}
}

func TestScaleSkipsNoData(t *testing.T) {
	g := NewGrid(1, 3, Transform{DX: 1, DY: -1})
	g.HasNoData, g.NoData = true, -1
	copy(g.Data, []float64{2e6, -1, math.NaN()})
	g.Scale(1e-6)
	if g.Data[0] != 2 {
		t.Errorf("Expected 2 km2, got %v", g.Data[0])
	}
	if g.Data[1] != -1 {
		t.Errorf("Expected nodata untouched, got %v", g.Data[1])
	}
}

func TestResolutionLabels(t *testing.T) {
	fine := NewGrid(10, 10, Transform{X0: 10, DX: 1.0 / 1200, Y0: 45, DY: -1.0 / 1200})
	if res := FineResolution(fine); res.Label != "3sec" {
		t.Errorf("Expected 3sec, got %s", res.Label)
	}

	coarse := NewGrid(10, 10, Transform{X0: 10, DX: 0.0166666666, Y0: 45, DY: -0.0166666666})
	res := CoarseResolution(coarse)
	if res.Label != "1min" {
		t.Errorf("Expected 1min, got %s", res.Label)
	}
	if res.CellSize != 0.016667 {
		t.Errorf("Expected cell size rounded to 0.016667, got %v", res.CellSize)
	}
}

func TestTransformInvert(t *testing.T) {
	tr := Transform{X0: 3, DX: 0.5, RX: 0.1, Y0: 7, RY: -0.05, DY: -0.5}
	x, y := tr.Apply(4, 6)
	row, col := tr.Invert(x, y)
	if math.Abs(row-4) > 1e-9 || math.Abs(col-6) > 1e-9 {
		t.Errorf("Expected (4, 6), got (%v, %v)", row, col)
	}
}

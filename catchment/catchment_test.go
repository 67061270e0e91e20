package catchment

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/hydrotools/lfcoords/raster"
)

func mask(rows, cols int, cells ...int) *raster.Mask {
	m := &raster.Mask{
		Rows:      rows,
		Cols:      cols,
		Cells:     make([]bool, rows*cols),
		Transform: raster.Transform{X0: 0, DX: 1, Y0: float64(rows), DY: -1},
	}
	for _, i := range cells {
		m.Cells[i] = true
	}
	return m
}

func TestVectorizeSingleCell(t *testing.T) {
	p, err := Vectorize(mask(1, 1, 0))
	if err != nil {
		t.Fatalf("Vectorize failed: %v", err)
	}
	if len(p) != 1 || len(p[0]) != 4 {
		t.Fatalf("Expected one ring of 4 corners, got %v", p)
	}
	if p[0][0] != (geom.Point{X: 0, Y: 1}) {
		t.Errorf("Expected ring to start at the top-left corner, got %v", p[0][0])
	}
	if a := p.Area(); math.Abs(a-1) > 1e-12 {
		t.Errorf("Expected area 1, got %v", a)
	}
}

func TestVectorizeShapes(t *testing.T) {
	cases := []struct {
		name    string
		m       *raster.Mask
		rings   int
		corners int
		area    float64
	}{
		// X X
		// X .
		{"L-shape", mask(2, 2, 0, 1, 2), 1, 6, 3},
		// X .
		// . X
		{"corner contact", mask(2, 2, 0, 3), 2, 8, 2},
		// X X X
		// X . X
		// X X X
		{"hole", mask(3, 3, 0, 1, 2, 3, 5, 6, 7, 8), 2, 8, 8},
		// X X X X
		{"straight run", mask(1, 4, 0, 1, 2, 3), 1, 4, 4},
	}
	for _, tc := range cases {
		p, err := Vectorize(tc.m)
		if err != nil {
			t.Fatalf("%s: Vectorize failed: %v", tc.name, err)
		}
		if len(p) != tc.rings {
			t.Errorf("%s: expected %d rings, got %d", tc.name, tc.rings, len(p))
		}
		n := 0
		for _, r := range p {
			n += len(r)
		}
		if n != tc.corners {
			t.Errorf("%s: expected %d corners, got %d (%v)", tc.name, tc.corners, n, p)
		}
		if a := Area(p); math.Abs(a-tc.area) > 1e-9 {
			t.Errorf("%s: expected area %v, got %v", tc.name, tc.area, a)
		}
	}
}

func TestVectorizeEmpty(t *testing.T) {
	if _, err := Vectorize(mask(2, 2)); !errors.Is(err, ErrEmptyMask) {
		t.Errorf("Expected ErrEmptyMask, got %v", err)
	}
}

func TestShapeScore(t *testing.T) {
	a, _ := Vectorize(mask(2, 3, 0, 1, 3, 4))
	if s := ShapeScore(a, a); s != 1 {
		t.Errorf("Expected identical shapes to score 1, got %v", s)
	}

	far := geom.Polygon{{{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 11}, {X: 10, Y: 11}}}
	if s := ShapeScore(a, far); s != 0 {
		t.Errorf("Expected disjoint shapes to score 0, got %v", s)
	}

	// [0,2]x[0,1] against [1,3]x[0,1]: one shared cell out of three
	left, _ := Vectorize(mask(1, 3, 0, 1))
	right, _ := Vectorize(mask(1, 3, 1, 2))
	s := ShapeScore(left, right)
	if math.Abs(s-1.0/3) > 1e-9 {
		t.Errorf("Expected 1/3, got %v", s)
	}
	if r := ShapeScore(right, left); math.Abs(r-s) > 1e-12 {
		t.Errorf("Expected symmetric score, got %v and %v", s, r)
	}

	if s := ShapeScore(nil, a); s != 0 {
		t.Errorf("Expected empty shape to score 0, got %v", s)
	}
}

func TestAreaRatio(t *testing.T) {
	if r := AreaRatio(50, 100); r != 0.5 {
		t.Errorf("Expected 0.5, got %v", r)
	}
	if AreaRatio(50, 100) != AreaRatio(100, 50) {
		t.Errorf("Expected symmetric ratio")
	}
	for _, a := range []float64{0, 1, 1e6} {
		if r := AreaRatio(a, 0); r != 0 {
			t.Errorf("Expected 0 for zero area, got %v", r)
		}
	}
	if r := AreaRatio(-3, 3); r != 0 {
		t.Errorf("Expected 0 for negative area, got %v", r)
	}
	if r := AreaRatio(7, 7); r != 1 {
		t.Errorf("Expected 1 for equal areas, got %v", r)
	}
}

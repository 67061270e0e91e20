package catchment

import (
	"math"

	"github.com/ctessum/geom"
)

// ShapeScore is the intersection-over-union of two catchments: 1 for
// identical shapes, 0 for disjoint ones
func ShapeScore(a, b geom.Polygon) float64 {
	if len(a) == 0 || len(b) == 0 || !overlaps(a, b) {
		return 0
	}
	if equal(a, b) {
		return 1
	}
	inter := a.Intersection(b).Area()
	if inter <= 0 {
		return 0
	}
	union := Area(a) + Area(b) - inter
	if union <= 0 {
		return 0
	}
	return math.Min(inter/union, 1)
}

// Area of a polygon whose outer rings run counter-clockwise and whose holes
// run clockwise, as produced by Vectorize
func Area(p geom.Polygon) float64 {
	a := 0.
	for _, r := range p {
		n := len(r)
		for i := range r {
			j := (i + 1) % n
			a += r[i].X*r[j].Y - r[j].X*r[i].Y
		}
	}
	return math.Abs(a / 2)
}

// AreaRatio is min(a,b)/max(a,b), or 0 when either area is not positive
func AreaRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a < b {
		return a / b
	}
	return b / a
}

func overlaps(a, b geom.Polygon) bool {
	ba, bb := a.Bounds(), b.Bounds()
	return ba.Min.X < bb.Max.X && bb.Min.X < ba.Max.X &&
		ba.Min.Y < bb.Max.Y && bb.Min.Y < ba.Max.Y
}

// equal reports whether both polygons have the same rings in the same order
func equal(a, b geom.Polygon) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

// Package catchment turns basin masks into polygons and scores how well two
// catchments agree.
package catchment

import (
	"errors"

	"github.com/ctessum/geom"
	"github.com/hydrotools/lfcoords/raster"
)

// ErrEmptyMask is returned when a mask holds no cells
var ErrEmptyMask = errors.New("catchment: empty basin mask")

// edge directions, counter-clockwise order
const (
	east = iota
	north
	west
	south
)

type vertex struct{ r, c int }

type edge struct {
	to   vertex
	dir  int
	used bool
}

// Vectorize traces the boundary of the mask cells into a polygon in the
// mask's coordinate system. Outer rings run counter-clockwise and holes
// clockwise; cells touching only at a corner end up in separate rings.
func Vectorize(m *raster.Mask) (geom.Polygon, error) {
	if m == nil || m.Count() == 0 {
		return nil, ErrEmptyMask
	}

	out := make(map[vertex][]*edge)
	add := func(from, to vertex, dir int) {
		out[from] = append(out[from], &edge{to: to, dir: dir})
	}
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			if !m.In(r, c) {
				continue
			}
			// rows grow southwards, so the interior stays on the left
			if !m.In(r+1, c) {
				add(vertex{r + 1, c}, vertex{r + 1, c + 1}, east)
			}
			if !m.In(r, c+1) {
				add(vertex{r + 1, c + 1}, vertex{r, c + 1}, north)
			}
			if !m.In(r-1, c) {
				add(vertex{r, c + 1}, vertex{r, c}, west)
			}
			if !m.In(r, c-1) {
				add(vertex{r, c}, vertex{r + 1, c}, south)
			}
		}
	}

	var poly geom.Polygon
	for r := 0; r <= m.Rows; r++ {
		for c := 0; c <= m.Cols; c++ {
			start := vertex{r, c}
			for _, e := range out[start] {
				if e.used {
					continue
				}
				poly = append(poly, trace(m, out, start, e))
			}
		}
	}
	return poly, nil
}

// trace follows unused edges from start, always taking the leftmost turn,
// and keeps only the corners of the ring
func trace(m *raster.Mask, out map[vertex][]*edge, start vertex, e *edge) geom.Path {
	var ring geom.Path
	at, first, prev := start, e.dir, -1
	for e != nil && !e.used {
		if e.dir != prev {
			x, y := m.Vertex(at.r, at.c)
			ring = append(ring, geom.Point{X: x, Y: y})
		}
		e.used = true
		prev = e.dir
		at = e.to
		e = next(out[at], e.dir)
	}
	// the start is not a corner when the ring closes on a straight run
	if prev == first && len(ring) > 1 {
		ring = ring[1:]
	}
	return ring
}

// next picks the outgoing edge turning left first, then straight, then right
func next(edges []*edge, dir int) *edge {
	for _, turn := range []int{1, 0, 3} {
		want := (dir + turn) % 4
		for _, e := range edges {
			if e.dir == want {
				return e
			}
		}
	}
	return nil
}

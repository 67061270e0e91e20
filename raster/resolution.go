package raster

import (
	"fmt"
	"math"
)

// Resolution describes one of the two grids a run works on
type Resolution struct {
	CellSize  float64 // degrees
	Label     string  // e.g. "3sec" or "1min"
	Transform Transform
	CRS       string
}

// FineResolution labels a grid by its cell size in arc-seconds
func FineResolution(g *Grid) Resolution {
	cs := g.CellSize()
	return Resolution{
		CellSize:  cs,
		Label:     fmt.Sprintf("%dsec", int(math.Round(cs*3600))),
		Transform: g.Transform,
		CRS:       g.CRS,
	}
}

// CoarseResolution labels a grid by its cell size in arc-minutes
func CoarseResolution(g *Grid) Resolution {
	cs := math.Round(g.CellSize()*1e6) / 1e6
	return Resolution{
		CellSize:  cs,
		Label:     fmt.Sprintf("%dmin", int(math.Round(cs*60))),
		Transform: g.Transform,
		CRS:       g.CRS,
	}
}

// SameGrid reports whether two grids share shape and transform
func SameGrid(a, b *Grid) bool {
	return a.Rows == b.Rows && a.Cols == b.Cols && a.Transform == b.Transform
}

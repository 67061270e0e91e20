// Package raster holds single-band grids aligned to an affine transform.
package raster

import (
	"errors"
	"fmt"
	"math"
)

// WGS84 is the CRS assumed when a raster carries no projection
const WGS84 = "EPSG:4326"

// ErrOutside is returned for coordinates that fall outside a grid
var ErrOutside = errors.New("raster: coordinate outside grid")

// Transform is a GDAL-ordered affine geotransform:
// x = X0 + col*DX + row*RX, y = Y0 + col*RY + row*DY
type Transform struct {
	X0, DX, RX float64
	Y0, RY, DY float64
}

// FromGDAL builds a Transform from a GDAL geotransform array
func FromGDAL(gt [6]float64) Transform {
	return Transform{X0: gt[0], DX: gt[1], RX: gt[2], Y0: gt[3], RY: gt[4], DY: gt[5]}
}

// Apply returns the coordinate of a fractional (row, col) position
func (t Transform) Apply(row, col float64) (x, y float64) {
	return t.X0 + col*t.DX + row*t.RX, t.Y0 + col*t.RY + row*t.DY
}

// Invert returns the fractional (row, col) position of a coordinate
func (t Transform) Invert(x, y float64) (row, col float64) {
	det := t.DX*t.DY - t.RX*t.RY
	dx, dy := x-t.X0, y-t.Y0
	col = (dx*t.DY - dy*t.RX) / det
	row = (dy*t.DX - dx*t.RY) / det
	return row, col
}

// Grid is a single-band 2D array in row-major order
type Grid struct {
	Rows, Cols int
	Data       []float64
	Transform  Transform
	CRS        string
	NoData     float64
	HasNoData  bool
}

// NewGrid allocates a grid filled with zeros
func NewGrid(rows, cols int, t Transform) *Grid {
	return &Grid{
		Rows:      rows,
		Cols:      cols,
		Data:      make([]float64, rows*cols),
		Transform: t,
		CRS:       WGS84,
	}
}

// Validate checks the shape and the transform
func (g *Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("raster: invalid shape %dx%d", g.Rows, g.Cols)
	}
	if len(g.Data) != g.Rows*g.Cols {
		return fmt.Errorf("raster: %d values for a %dx%d grid", len(g.Data), g.Rows, g.Cols)
	}
	if g.Transform.DX*g.Transform.DY-g.Transform.RX*g.Transform.RY == 0 {
		return errors.New("raster: singular geotransform")
	}
	return nil
}

// Index returns the flat index of (row, col)
func (g *Grid) Index(row, col int) int {
	return row*g.Cols + col
}

// Contains reports whether (row, col) lies inside the grid
func (g *Grid) Contains(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// At returns the value at (row, col)
func (g *Grid) At(row, col int) float64 {
	return g.Data[row*g.Cols+col]
}

// Set stores v at (row, col)
func (g *Grid) Set(row, col int, v float64) {
	g.Data[row*g.Cols+col] = v
}

// Valid reports whether v is a data value
func (g *Grid) Valid(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return !g.HasNoData || v != g.NoData
}

// Cell returns the cell containing the coordinate (nearest cell centre)
func (g *Grid) Cell(lon, lat float64) (row, col int, err error) {
	r, c := g.Transform.Invert(lon, lat)
	row, col = int(math.Floor(r)), int(math.Floor(c))
	if !g.Contains(row, col) {
		return row, col, fmt.Errorf("%w: (%.6f, %.6f)", ErrOutside, lat, lon)
	}
	return row, col, nil
}

// Center returns the coordinate of the centre of (row, col)
func (g *Grid) Center(row, col int) (lon, lat float64) {
	return g.Transform.Apply(float64(row)+0.5, float64(col)+0.5)
}

// ValueAt returns the value of the cell containing the coordinate
func (g *Grid) ValueAt(lon, lat float64) (float64, error) {
	row, col, err := g.Cell(lon, lat)
	if err != nil {
		return math.NaN(), err
	}
	return g.At(row, col), nil
}

// Scale multiplies every data value by f, e.g. 1e-6 to turn m2 into km2
func (g *Grid) Scale(f float64) {
	for i, v := range g.Data {
		if g.Valid(v) {
			g.Data[i] = v * f
		}
	}
}

// CellSize is the column spacing of the grid in CRS units
func (g *Grid) CellSize() float64 {
	return math.Abs(g.Transform.DX)
}

// Bounds returns lonMin, latMin, lonMax, latMax
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	x0, y0 := g.Transform.Apply(0, 0)
	x1, y1 := g.Transform.Apply(float64(g.Rows), float64(g.Cols))
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// Mask is a boolean basin map cropped to its bounding box
type Mask struct {
	// Offset of the crop within the parent grid
	Row0, Col0 int
	Rows, Cols int
	Cells      []bool
	Transform  Transform
	CRS        string
}

// In reports whether local (row, col) belongs to the mask
func (m *Mask) In(row, col int) bool {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		return false
	}
	return m.Cells[row*m.Cols+col]
}

// Count returns the number of cells in the mask
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Cells {
		if v {
			n++
		}
	}
	return n
}

// Vertex returns the coordinate of the local cell corner (row, col)
func (m *Mask) Vertex(row, col int) (x, y float64) {
	return m.Transform.Apply(float64(m.Row0+row), float64(m.Col0+col))
}

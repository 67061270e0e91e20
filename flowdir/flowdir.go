// Package flowdir builds a flow network from a local drainage direction
// raster and answers basin and downstream queries on it.
package flowdir

import (
	"errors"
	"fmt"
	"math"

	"github.com/hydrotools/lfcoords/raster"
)

// Type is the encoding of the drainage direction raster
type Type string

const (
	// LDD is the PCRaster keypad encoding (1-9, 5 = pit)
	LDD Type = "ldd"
	// D8 is the ESRI power-of-two encoding (1 = E ... 128 = NE, 0 = pit)
	D8 Type = "d8"
)

const (
	pit    = -1
	nodata = -2
)

var (
	ErrNoData = errors.New("flowdir: cell has no drainage direction")
	ErrPit    = errors.New("flowdir: cell is a pit or drains off the grid")
)

type offset struct{ dr, dc int }

var lddOffsets = map[int]offset{
	1: {1, -1}, 2: {1, 0}, 3: {1, 1},
	4: {0, -1}, 6: {0, 1},
	7: {-1, -1}, 8: {-1, 0}, 9: {-1, 1},
}

var d8Offsets = map[int]offset{
	1: {0, 1}, 2: {1, 1}, 4: {1, 0}, 8: {1, -1},
	16: {0, -1}, 32: {-1, -1}, 64: {-1, 0}, 128: {-1, 1},
}

// ParseType validates a drainage encoding name
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case LDD, D8:
		return Type(s), nil
	}
	return "", fmt.Errorf("flowdir: unknown drainage encoding %q (expected ldd or d8)", s)
}

// Network is the downstream topology of a drainage direction raster
type Network struct {
	grid *raster.Grid
	ds   []int32 // downstream cell, pit or nodata

	// upstream adjacency in compressed row form
	usOff []int32
	usIdx []int32
}

// New builds the network of g, whose values are drainage codes of type t.
// Cells that drain off the grid are treated as outlets.
func New(g *raster.Grid, t Type) (*Network, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	var offsets map[int]offset
	pitCode := 0
	switch t {
	case LDD:
		offsets, pitCode = lddOffsets, 5
	case D8:
		offsets, pitCode = d8Offsets, 0
	default:
		return nil, fmt.Errorf("flowdir: unknown drainage encoding %q", t)
	}

	n := &Network{grid: g, ds: make([]int32, len(g.Data))}
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			i := g.Index(r, c)
			v := g.Data[i]
			if !g.Valid(v) || v != math.Trunc(v) {
				n.ds[i] = nodata
				continue
			}
			code := int(v)
			if code == pitCode {
				n.ds[i] = pit
				continue
			}
			o, ok := offsets[code]
			if !ok {
				n.ds[i] = nodata
				continue
			}
			rr, cc := r+o.dr, c+o.dc
			if !g.Contains(rr, cc) {
				n.ds[i] = pit
				continue
			}
			n.ds[i] = int32(g.Index(rr, cc))
		}
	}
	n.buildUpslopes()
	return n, nil
}

func (n *Network) buildUpslopes() {
	cnt := make([]int32, len(n.ds)+1)
	for _, d := range n.ds {
		if d >= 0 {
			cnt[d+1]++
		}
	}
	for i := 1; i < len(cnt); i++ {
		cnt[i] += cnt[i-1]
	}
	n.usOff = cnt
	n.usIdx = make([]int32, cnt[len(cnt)-1])
	fill := make([]int32, len(n.ds))
	for i, d := range n.ds {
		if d >= 0 {
			n.usIdx[n.usOff[d]+fill[d]] = int32(i)
			fill[d]++
		}
	}
}

// Grid returns the drainage raster the network was built from
func (n *Network) Grid() *raster.Grid {
	return n.grid
}

// upstream returns the cells draining directly into i
func (n *Network) upstream(i int32) []int32 {
	return n.usIdx[n.usOff[i]:n.usOff[i+1]]
}

func (n *Network) cell(lon, lat float64) (int32, error) {
	r, c, err := n.grid.Cell(lon, lat)
	if err != nil {
		return 0, err
	}
	i := int32(n.grid.Index(r, c))
	if n.ds[i] == nodata {
		return i, fmt.Errorf("%w: (%.6f, %.6f)", ErrNoData, lat, lon)
	}
	return i, nil
}

// Basin delineates every cell draining through the cell containing
// (lon, lat), outlet included
func (n *Network) Basin(lon, lat float64) (*raster.Mask, error) {
	outlet, err := n.cell(lon, lat)
	if err != nil {
		return nil, err
	}

	g := n.grid
	cells := []int32{outlet}
	seen := map[int32]bool{outlet: true}
	rmin, rmax := int(outlet)/g.Cols, int(outlet)/g.Cols
	cmin, cmax := int(outlet)%g.Cols, int(outlet)%g.Cols
	for k := 0; k < len(cells); k++ {
		for _, u := range n.upstream(cells[k]) {
			if seen[u] {
				continue
			}
			seen[u] = true
			cells = append(cells, u)
			r, c := int(u)/g.Cols, int(u)%g.Cols
			rmin, rmax = min(rmin, r), max(rmax, r)
			cmin, cmax = min(cmin, c), max(cmax, c)
		}
	}

	m := &raster.Mask{
		Row0:      rmin,
		Col0:      cmin,
		Rows:      rmax - rmin + 1,
		Cols:      cmax - cmin + 1,
		Transform: g.Transform,
		CRS:       g.CRS,
	}
	m.Cells = make([]bool, m.Rows*m.Cols)
	for _, i := range cells {
		r, c := int(i)/g.Cols-rmin, int(i)%g.Cols-cmin
		m.Cells[r*m.Cols+c] = true
	}
	return m, nil
}

// Downstream returns the centre of the cell one flow step below the cell
// containing (lon, lat). ErrPit is returned, together with the centre of the
// cell itself, when there is no downstream cell.
func (n *Network) Downstream(lon, lat float64) (float64, float64, error) {
	i, err := n.cell(lon, lat)
	if err != nil {
		return lon, lat, err
	}
	g := n.grid
	d := n.ds[i]
	if d < 0 {
		x, y := g.Center(int(i)/g.Cols, int(i)%g.Cols)
		return x, y, fmt.Errorf("%w: (%.6f, %.6f)", ErrPit, lat, lon)
	}
	x, y := g.Center(int(d)/g.Cols, int(d)%g.Cols)
	return x, y, nil
}

// UpstreamCells counts the cells draining through the cell containing (lon, lat)
func (n *Network) UpstreamCells(lon, lat float64) (int, error) {
	m, err := n.Basin(lon, lat)
	if err != nil {
		return 0, err
	}
	return m.Count(), nil
}

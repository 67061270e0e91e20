package locator

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/hydrotools/lfcoords/catchment"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/raster"
	"gonum.org/v1/gonum/floats"
)

// searchRange is the half-width, in coarse cells, of the candidate grid
const searchRange = 2

// CoarseLocator matches the fine-grid catchment of a station on the coarse
// grid by shape
type CoarseLocator struct {
	Upstream *raster.Grid // km2
	Router   Router
	Res      raster.Resolution

	MinArea  float64 // km2
	AbsError float64 // km2
	PctError float64 // %

	// Reservoirs moves the recorded coordinate one cell downstream
	Reservoirs bool
}

// Scored is a coarse candidate with its shape score against the fine catchment
type Scored struct {
	Candidate
	Score float64
	Err   error // delineation or vectorization failure, scored 0
}

// Candidates scores the 5x5 cells around (lon, lat), south to north and west
// to east, so the unperturbed centre is element 12
func (l *CoarseLocator) Candidates(lon, lat float64, fine geom.Polygon) []Scored {
	cs := l.Res.CellSize
	if cs == 0 {
		cs = l.Upstream.CellSize()
	}
	n := 2*searchRange + 1
	out := make([]Scored, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := lon + float64(j-searchRange)*cs
			y := lat + float64(i-searchRange)*cs
			s := Scored{Candidate: Candidate{Lon: x, Lat: y, Area: math.NaN()}}
			if r, c, err := l.Upstream.Cell(x, y); err == nil {
				s.Row, s.Col = r, c
				if v := l.Upstream.At(r, c); l.Upstream.Valid(v) {
					s.Area = v
				}
			}
			s.Score, s.Err = l.shapeScore(x, y, fine)
			out = append(out, s)
		}
	}
	return out
}

func (l *CoarseLocator) shapeScore(lon, lat float64, fine geom.Polygon) (float64, error) {
	mask, err := l.Router.Basin(lon, lat)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDelineation, err)
	}
	poly, err := catchment.Vectorize(mask)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrVectorization, err)
	}
	return catchment.ShapeScore(fine, poly), nil
}

// PreferCentre reports whether the unperturbed centre should replace the
// best-shape candidate because both modeled areas are practically the same
func PreferCentre(areaShape, areaCentre, absError, pctError float64) bool {
	if areaShape == areaCentre {
		return true
	}
	abs := math.Abs(areaShape - areaCentre)
	pct := math.Inf(1)
	if areaShape != 0 {
		pct = 100 * math.Abs(1-areaCentre/areaShape)
	}
	return abs <= absError && pct <= pctError
}

// Select returns the index of the chosen candidate: the highest shape score,
// first one on ties, unless the centre is practically as good in area
func (l *CoarseLocator) Select(cands []Scored) int {
	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = c.Score
	}
	best := floats.MaxIdx(scores)
	centre := len(cands) / 2
	if PreferCentre(cands[best].Area, cands[centre].Area, l.AbsError, l.PctError) {
		return centre
	}
	return best
}

// Locate moves a station from its fine-grid match to the coarse grid.
// fineCatchment is the polygon derived at the fine match.
func (l *CoarseLocator) Locate(st models.Station, fine models.Match, fineCatchment geom.Polygon) (*models.Match, *models.Catchment, error) {
	if st.Area < l.MinArea || fine.Area < l.MinArea {
		return nil, nil, fmt.Errorf("%w: reference %.1f km2, fine %.1f km2, minimum %.1f km2",
			ErrBelowMinArea, st.Area, fine.Area, l.MinArea)
	}

	cands := l.Candidates(fine.Lon, fine.Lat, fineCatchment)
	i := l.Select(cands)
	chosen := cands[i]

	row, col, err := l.Upstream.Cell(chosen.Lon, chosen.Lat)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}
	area := l.Upstream.At(row, col)
	if !l.Upstream.Valid(area) {
		return nil, nil, fmt.Errorf("%w: (%.6f, %.6f)", ErrNoData, chosen.Lat, chosen.Lon)
	}
	lon, lat := l.Upstream.Center(row, col)

	mask, err := l.Router.Basin(lon, lat)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDelineation, err)
	}
	poly, err := catchment.Vectorize(mask)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrVectorization, err)
	}

	res := l.Res.Label
	m := &models.Match{
		Resolution: res,
		Lat:        models.Round6(lat),
		Lon:        models.Round6(lon),
		Area:       area,
		ShapeScore: chosen.Score,
		Centre:     i == len(cands)/2,
	}
	if st.Area > 0 {
		m.PctError = PctError(area, st.Area)
	}
	c := &models.Catchment{
		StationID:  st.ID,
		Resolution: res,
		Polygon:    poly,
		Fields: map[string]float64{
			"area":                                 st.Area,
			"lat":                                  st.Lat,
			"lon":                                  st.Lon,
			models.Column("area", fine.Resolution): fine.Area,
			models.Column("lat", fine.Resolution):  fine.Lat,
			models.Column("lon", fine.Resolution):  fine.Lon,
			models.Column("area", res):             m.Area,
			models.Column("lat", res):              m.Lat,
			models.Column("lon", res):              m.Lon,
		},
	}

	if l.Reservoirs {
		x, y, err := l.Router.Downstream(lon, lat)
		if err != nil {
			return m, c, fmt.Errorf("%w: %v", ErrNoDownstream, err)
		}
		m.Lat, m.Lon, m.Shifted = models.Round6(y), models.Round6(x), true
	}
	return m, c, nil
}

package locator

import (
	"fmt"
	"math"

	"github.com/hydrotools/lfcoords/catchment"
	"github.com/hydrotools/lfcoords/models"
	"github.com/hydrotools/lfcoords/raster"
	"gonum.org/v1/gonum/floats"
)

// Stage is one round of the expanding fine-grid search. A pixel scores
// Penalty*relativeAreaError + Factor*pixelDistance; the lowest score wins.
type Stage struct {
	Window   int     // side of the square window, in pixels
	Penalty  float64 // weight of the relative area error
	Factor   float64 // weight of the distance to the reference pixel
	MaxError float64 // acceptable pct error, +Inf accepts anything
}

// DefaultStages widens the window from 55 to 151 pixels, giving less
// weight to distance each time. The last stage always accepts.
func DefaultStages() []Stage {
	return []Stage{
		{Window: 55, Penalty: 500, Factor: 2, MaxError: 50},
		{Window: 101, Penalty: 500, Factor: 0.5, MaxError: 80},
		{Window: 151, Penalty: 1000, Factor: 0.25, MaxError: math.Inf(1)},
	}
}

// FineLocator matches stations on the fine grid by upstream area
type FineLocator struct {
	Upstream *raster.Grid // km2
	Router   Router
	Res      raster.Resolution
	Stages   []Stage
}

// NewFineLocator uses the default stages
func NewFineLocator(upstream *raster.Grid, router Router, res raster.Resolution) *FineLocator {
	return &FineLocator{
		Upstream: upstream,
		Router:   router,
		Res:      res,
		Stages:   DefaultStages(),
	}
}

// FindPixel scores every pixel in the stage window around (lon, lat) and
// returns the best one with its pct area error
func (l *FineLocator) FindPixel(lon, lat, area float64, s Stage) (Candidate, float64, error) {
	g := l.Upstream
	row0, col0, err := g.Cell(lon, lat)
	if err != nil {
		return Candidate{}, math.NaN(), fmt.Errorf("%w: %v", ErrNoData, err)
	}

	radius := s.Window / 2
	side := 2*radius + 1
	scores := make([]float64, side*side)
	for i := range scores {
		dr, dc := i/side-radius, i%side-radius
		r, c := row0+dr, col0+dc
		if !g.Contains(r, c) || !g.Valid(g.At(r, c)) {
			scores[i] = math.Inf(1)
			continue
		}
		relErr := math.Abs(g.At(r, c)-area) / area
		dist := math.Hypot(float64(dr), float64(dc))
		scores[i] = s.Penalty*relErr + s.Factor*dist
	}

	best := floats.MinIdx(scores)
	if math.IsInf(scores[best], 1) {
		return Candidate{}, math.NaN(), ErrNoData
	}
	r, c := row0+best/side-radius, col0+best%side-radius
	x, y := g.Center(r, c)
	cand := Candidate{Row: r, Col: c, Lon: x, Lat: y, Area: g.At(r, c)}
	return cand, PctError(cand.Area, area), nil
}

// Search runs the stages in order until one finds an acceptable pixel.
// It returns the pixel, its pct error and the 1-based stage.
func (l *FineLocator) Search(st models.Station) (Candidate, float64, int, error) {
	if !(st.Area > 0) {
		return Candidate{}, math.NaN(), 0, fmt.Errorf("%w: %v", ErrInvalidArea, st.Area)
	}
	var (
		cand Candidate
		pct  float64
		err  error
	)
	for i, s := range l.Stages {
		cand, pct, err = l.FindPixel(st.Lon, st.Lat, st.Area, s)
		if err != nil {
			return cand, pct, i + 1, err
		}
		if pct <= s.MaxError || i == len(l.Stages)-1 {
			return cand, pct, i + 1, nil
		}
	}
	return cand, pct, len(l.Stages), fmt.Errorf("%w: no search stages configured", ErrNoData)
}

// Locate finds the fine-grid pixel of a station and vectorizes its catchment
func (l *FineLocator) Locate(st models.Station) (*models.Match, *models.Catchment, error) {
	cand, pct, stage, err := l.Search(st)
	if err != nil {
		return nil, nil, err
	}

	mask, err := l.Router.Basin(cand.Lon, cand.Lat)
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
		Lat:        models.Round6(cand.Lat),
		Lon:        models.Round6(cand.Lon),
		Area:       cand.Area,
		PctError:   pct,
		Stage:      stage,
	}
	c := &models.Catchment{
		StationID:  st.ID,
		Resolution: res,
		Polygon:    poly,
		Fields: map[string]float64{
			"area":                     st.Area,
			"lat":                      st.Lat,
			"lon":                      st.Lon,
			models.Column("area", res): m.Area,
			models.Column("lat", res):  m.Lat,
			models.Column("lon", res):  m.Lon,
		},
	}
	return m, c, nil
}

// Package locator snaps station coordinates onto the pixels of a flow
// routing grid whose modeled catchment best matches a reference.
package locator

import (
	"errors"
	"math"

	"github.com/hydrotools/lfcoords/raster"
)

var (
	ErrInvalidArea   = errors.New("locator: reference area must be positive")
	ErrBelowMinArea  = errors.New("locator: catchment area below the minimum")
	ErrNoData        = errors.New("locator: no upstream area data around the station")
	ErrDelineation   = errors.New("locator: basin delineation failed")
	ErrVectorization = errors.New("locator: catchment vectorization failed")

	// ErrNoDownstream comes with an unshifted match when a reservoir sits
	// on a pit or on the grid edge
	ErrNoDownstream = errors.New("locator: no downstream cell for reservoir shift")
)

// Router delineates basins and follows flow directions on one grid
type Router interface {
	Basin(lon, lat float64) (*raster.Mask, error)
	Downstream(lon, lat float64) (float64, float64, error)
}

// Candidate is a pixel considered during a search
type Candidate struct {
	Row, Col int
	Lon, Lat float64
	Area     float64 // km2
}

// PctError is the absolute difference between a modeled and a reference
// area, as a percentage of the reference
func PctError(modeled, reference float64) float64 {
	return 100 * math.Abs(modeled-reference) / reference
}

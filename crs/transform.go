package crs

import (
	"fmt"

	"github.com/twpayne/go-proj/v11"
)

// Transform reprojects coordinates from a source to a target CRS. It
// wraps a PROJ pipeline; construction fails if either CRS is unknown to
// the PROJ database.
type Transform struct {
	pj *proj.PJ
}

// NewTransform builds a transform between two EPSG-identified CRSs.
func NewTransform(srcEPSG, dstEPSG int) (*Transform, error) {
	pj, err := proj.NewCRSToCRS(fmt.Sprintf("epsg:%d", srcEPSG), fmt.Sprintf("epsg:%d", dstEPSG), nil)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve transform epsg:%d to epsg:%d: %w", srcEPSG, dstEPSG, err)
	}
	return &Transform{pj: pj}, nil
}

// Forward reprojects a geodetic coordinate into the target CRS, returning
// projected (x, y). PROJ expects geographic coordinates in authority
// order, latitude first.
func (t *Transform) Forward(lon, lat float64) (x, y float64, err error) {
	coord, err := t.pj.Forward(proj.NewCoord(lat, lon, 0, 0))
	if err != nil {
		return 0, 0, fmt.Errorf("transform undefined at (%f, %f): %w", lat, lon, err)
	}
	return coord.X(), coord.Y(), nil
}

// Inverse reprojects a projected (x, y) back to a geodetic coordinate.
func (t *Transform) Inverse(x, y float64) (lon, lat float64, err error) {
	coord, err := t.pj.Inverse(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, fmt.Errorf("inverse transform undefined at (%f, %f): %w", x, y, err)
	}
	return coord.Y(), coord.X(), nil
}

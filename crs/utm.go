// Package crs derives UTM coordinate reference systems from geodetic
// coordinates and reprojects coordinates between EPSG-identified systems.
package crs

import (
	"errors"
	"fmt"
	"math"
)

// GeodeticEPSG is the WGS84 geographic CRS all input coordinates are
// expressed in.
const GeodeticEPSG = 4326

// Hemisphere identifies which side of the equator a coordinate falls on.
type Hemisphere string

const (
	North Hemisphere = "N"
	South Hemisphere = "S"
)

var (
	// ErrInvalidZone is returned for UTM zone numbers outside [1, 60].
	ErrInvalidZone = errors.New("utm zone must be between 1 and 60")

	// ErrInvalidHemisphere is returned for hemisphere values other than
	// North and South.
	ErrInvalidHemisphere = errors.New("hemisphere must be N or S")
)

// UTMZone returns the UTM zone number covering a longitude in decimal
// degrees. Zones are six degrees wide starting at -180; longitude 180
// wraps around to zone 1. Callers supply longitude within [-180, 180].
func UTMZone(longitude float64) int {
	zone := int(math.Floor((longitude+180)/6)) + 1
	if zone > 60 {
		zone = 1
	}
	return zone
}

// HemisphereFor returns the hemisphere for a latitude, with the equator
// counted as North.
func HemisphereFor(latitude float64) Hemisphere {
	if latitude >= 0 {
		return North
	}
	return South
}

// EPSGCode returns the EPSG code of the WGS84/UTM CRS for a zone and
// hemisphere: 32600+zone in the north, 32700+zone in the south.
func EPSGCode(zone int, hemisphere Hemisphere) (int, error) {
	if zone < 1 || zone > 60 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidZone, zone)
	}
	switch hemisphere {
	case North:
		return 32600 + zone, nil
	case South:
		return 32700 + zone, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrInvalidHemisphere, string(hemisphere))
	}
}

// EPSGForCoordinate returns the EPSG code of the UTM CRS covering a
// geodetic coordinate.
func EPSGForCoordinate(latitude, longitude float64) (int, error) {
	return EPSGCode(UTMZone(longitude), HemisphereFor(latitude))
}

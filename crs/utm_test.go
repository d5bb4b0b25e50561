// crs/utm_test.go

package crs

import (
	"errors"
	"testing"
)

func TestUTMZone(t *testing.T) {
	testCases := []struct {
		name      string
		longitude float64
		want      int
	}{
		{"western edge", -180, 1},
		{"inside first zone", -177, 1},
		{"first zone boundary", -174, 2},
		{"greenwich", 0, 31},
		{"east of greenwich", 3, 31},
		{"zone boundary at 6E", 6, 32},
		{"us east coast", -77.03, 18},
		{"new zealand", 174.76, 60},
		{"near antimeridian", 179.999, 60},
		{"antimeridian wraps to first zone", 180, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UTMZone(tc.longitude); got != tc.want {
				t.Errorf("UTMZone(%v) = %d, want %d", tc.longitude, got, tc.want)
			}
		})
	}
}

func TestUTMZoneMonotonic(t *testing.T) {
	// Walking eastward through zone centers must visit every zone once.
	for zone := 1; zone <= 60; zone++ {
		center := -180 + float64(zone-1)*6 + 3
		if got := UTMZone(center); got != zone {
			t.Fatalf("UTMZone(%v) = %d, want %d", center, got, zone)
		}
	}
}

func TestHemisphereFor(t *testing.T) {
	if got := HemisphereFor(45); got != North {
		t.Errorf("HemisphereFor(45) = %q, want N", got)
	}
	if got := HemisphereFor(0); got != North {
		t.Errorf("HemisphereFor(0) = %q, want N (equator counts as north)", got)
	}
	if got := HemisphereFor(-0.001); got != South {
		t.Errorf("HemisphereFor(-0.001) = %q, want S", got)
	}
}

func TestEPSGCode(t *testing.T) {
	testCases := []struct {
		name       string
		zone       int
		hemisphere Hemisphere
		want       int
		wantErr    error
	}{
		{"first zone north", 1, North, 32601, nil},
		{"first zone south", 1, South, 32701, nil},
		{"mid zone north", 18, North, 32618, nil},
		{"mid zone south", 33, South, 32733, nil},
		{"last zone north", 60, North, 32660, nil},
		{"last zone south", 60, South, 32760, nil},
		{"zone too small", 0, North, 0, ErrInvalidZone},
		{"zone too large", 61, South, 0, ErrInvalidZone},
		{"bad hemisphere", 10, Hemisphere("X"), 0, ErrInvalidHemisphere},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EPSGCode(tc.zone, tc.hemisphere)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("EPSGCode(%d, %q) = %d, want %d", tc.zone, tc.hemisphere, got, tc.want)
			}
		})
	}
}

func TestEPSGForCoordinate(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lon float64
		want     int
	}{
		{"seattle", 47.6, -122.3, 32610},
		{"sydney", -33.87, 151.21, 32756},
		{"equator greenwich", 0, 0, 32631},
		{"cape town", -33.92, 18.42, 32734},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EPSGForCoordinate(tc.lat, tc.lon)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("EPSGForCoordinate(%v, %v) = %d, want %d", tc.lat, tc.lon, got, tc.want)
			}
		})
	}
}

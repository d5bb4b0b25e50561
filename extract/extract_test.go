// extract/extract_test.go

package extract

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ahmadhojati/geoextract/raster"
	"github.com/ahmadhojati/geoextract/raster/rastertest"
)

// floatEquals compares two float64 values with a small tolerance.
func floatEquals(a, b float64) bool {
	const epsilon = 1e-4
	return math.Abs(a-b) < epsilon
}

// testRaster writes a 10x10 single-band raster in EPSG:4326 covering
// lon [0, 10] and lat [0, 10] at one degree per pixel, with value
// col*10+row, nodata -9999 at pixel (2,3) and NaN at pixel (4,4).
func testRaster(t *testing.T) string {
	t.Helper()
	return rastertest.WriteFile(t, t.TempDir(), rastertest.Spec{
		Width: 10, Height: 10,
		OriginX: 0, OriginY: 10,
		EPSG:   4326,
		NoData: "-9999",
		Sample: func(col, row, _ int) float32 {
			switch {
			case col == 2 && row == 3:
				return -9999
			case col == 4 && row == 4:
				return rastertest.NaN32()
			default:
				return float32(col*10 + row)
			}
		},
	})
}

func TestExtractValue(t *testing.T) {
	source := testRaster(t)
	e := New()

	testCases := []struct {
		name        string
		lat, lon    float64
		want        float64
		wantMissing bool
	}{
		{"pixel interior", 4.5, 5.5, 55, false},
		{"top left pixel", 9.9, 0.1, 0, false},
		{"bottom right pixel", 0.1, 9.9, 99, false},
		{"east of footprint", 5, 50, 0, true},
		{"south of footprint", -40, 5, 0, true},
		{"nodata pixel", 6.5, 2.5, 0, true},
		{"nan pixel", 5.5, 4.5, 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := e.ExtractValue(context.Background(), source, Coordinate{Lat: tc.lat, Lon: tc.lon})
			if err != nil {
				t.Fatalf("ExtractValue: %v", err)
			}
			if v.IsMissing() != tc.wantMissing {
				t.Fatalf("IsMissing = %v, want %v", v.IsMissing(), tc.wantMissing)
			}
			if f, ok := v.Float64(); ok && !floatEquals(f, tc.want) {
				t.Errorf("value = %v, want %v", f, tc.want)
			}
		})
	}
}

func TestExtractValueInvalidCoordinate(t *testing.T) {
	source := testRaster(t)
	e := New()

	coords := []Coordinate{
		{Lat: 91, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: 0, Lon: -181},
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.NaN()},
	}
	for _, c := range coords {
		if _, err := e.ExtractValue(context.Background(), source, c); !errors.Is(err, ErrInvalidCoordinate) {
			t.Errorf("ExtractValue(%+v) error = %v, want ErrInvalidCoordinate", c, err)
		}
	}
}

func TestExtractValueMissingSource(t *testing.T) {
	e := New()
	if _, err := e.ExtractValue(context.Background(), "/nonexistent/raster.tif", Coordinate{Lat: 1, Lon: 1}); err == nil {
		t.Error("ExtractValue with missing source succeeded, want error")
	}
}

func TestValuesAtCoordinate(t *testing.T) {
	source := rastertest.WriteFile(t, t.TempDir(), rastertest.Spec{
		Width: 10, Height: 10, Bands: 3,
		OriginX: 0, OriginY: 10,
		EPSG:   4326,
		NoData: "-9999",
		Sample: func(col, row, band int) float32 {
			if band == 1 && col == 5 && row == 5 {
				return -9999
			}
			return float32(band*1000 + col*10 + row)
		},
	})
	e := New()

	// Pixel (5,5): band 1 is nodata, bands 0 and 2 are present.
	values, err := e.ValuesAtCoordinate(context.Background(), source, Coordinate{Lat: 4.5, Lon: 5.5})
	if err != nil {
		t.Fatalf("ValuesAtCoordinate: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("got %d values, want one per band (3)", len(values))
	}
	if f, ok := values[0].Float64(); !ok || !floatEquals(f, 55) {
		t.Errorf("band 0 = %v, %v, want 55", f, ok)
	}
	if !values[1].IsMissing() {
		t.Error("band 1 should be missing at the nodata pixel")
	}
	if f, ok := values[2].Float64(); !ok || !floatEquals(f, 2055) {
		t.Errorf("band 2 = %v, %v, want 2055", f, ok)
	}

	// Outside the footprint every entry is missing but the band count is
	// preserved.
	values, err = e.ValuesAtCoordinate(context.Background(), source, Coordinate{Lat: 4.5, Lon: 120})
	if err != nil {
		t.Fatalf("ValuesAtCoordinate: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("got %d values outside footprint, want 3", len(values))
	}
	for band, v := range values {
		if !v.IsMissing() {
			t.Errorf("band %d outside footprint is present", band)
		}
	}
}

func TestResampleAndExtractValue(t *testing.T) {
	source := testRaster(t)
	e := New()
	c := Coordinate{Lat: 4.5, Lon: 5.5}

	// Equal resolutions reproduce the direct extraction.
	v, err := e.ResampleAndExtractValue(context.Background(), source, c, 30, 30)
	if err != nil {
		t.Fatalf("ResampleAndExtractValue: %v", err)
	}
	if f, ok := v.Float64(); !ok || !floatEquals(f, 55) {
		t.Errorf("identity resample value = %v, %v, want 55", f, ok)
	}

	// Upscaling keeps the footprint, so the coordinate still resolves.
	v, err = e.ResampleAndExtractValue(context.Background(), source, c, 30, 15)
	if err != nil {
		t.Fatalf("ResampleAndExtractValue upscale: %v", err)
	}
	if v.IsMissing() {
		t.Error("upscaled extraction is missing inside the footprint")
	}

	if _, err := e.ResampleAndExtractValue(context.Background(), source, c, 0, 30); !errors.Is(err, raster.ErrInvalidResolution) {
		t.Errorf("error = %v, want ErrInvalidResolution", err)
	}
}

func TestResampleAndExtractUniform(t *testing.T) {
	source := rastertest.WriteFile(t, t.TempDir(), rastertest.Spec{
		Width: 10, Height: 10,
		OriginX: 0, OriginY: 10,
		EPSG:   4326,
		Sample: func(col, row, _ int) float32 { return 42 },
	})
	e := New()

	// Interpolation over a uniform field cannot change the value, at any
	// rescaling factor.
	for _, newRes := range []float64{10, 15, 45, 90} {
		v, err := e.ResampleAndExtractValue(context.Background(), source, Coordinate{Lat: 5, Lon: 5}, 30, newRes)
		if err != nil {
			t.Fatalf("ResampleAndExtractValue(30, %v): %v", newRes, err)
		}
		if f, ok := v.Float64(); !ok || !floatEquals(f, 42) {
			t.Errorf("value at new resolution %v = %v, %v, want 42", newRes, f, ok)
		}
	}
}

func TestCoordinateValidate(t *testing.T) {
	valid := []Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 90, Lon: 180},
		{Lat: -90, Lon: -180},
	}
	for _, c := range valid {
		if err := c.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", c, err)
		}
	}
	if err := (Coordinate{Lat: 90.0001, Lon: 0}).Validate(); !errors.Is(err, ErrInvalidCoordinate) {
		t.Error("latitude beyond the pole validated")
	}
}

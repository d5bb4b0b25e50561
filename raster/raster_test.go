// raster/raster_test.go

package raster

import (
	"bytes"
	"math"
	"testing"

	"github.com/ahmadhojati/geoextract/raster/rastertest"
)

// floatEquals compares two float64 values with a small tolerance.
func floatEquals(a, b float64) bool {
	const epsilon = 1e-4
	return math.Abs(a-b) < epsilon
}

func openTest(t *testing.T, spec rastertest.Spec) *Dataset {
	t.Helper()
	d, err := Open(bytes.NewReader(rastertest.Bytes(spec)), 1024, 100)
	if err != nil {
		t.Fatalf("failed to open raster: %v", err)
	}
	return d
}

func TestOpenMetadata(t *testing.T) {
	d := openTest(t, rastertest.Spec{
		Width: 100, Height: 80, Bands: 2,
		PixelScaleX: 0.5, PixelScaleY: 0.25,
		OriginX: 10, OriginY: 50,
		EPSG:   4326,
		NoData: "-9999",
	})

	if d.Width() != 100 || d.Height() != 80 {
		t.Errorf("dimensions = %dx%d, want 100x80", d.Width(), d.Height())
	}
	if d.Bands() != 2 {
		t.Errorf("bands = %d, want 2", d.Bands())
	}
	if d.EPSG() != 4326 {
		t.Errorf("epsg = %d, want 4326", d.EPSG())
	}
	nd, ok := d.NoData()
	if !ok || nd != -9999 {
		t.Errorf("nodata = %v, %v, want -9999, true", nd, ok)
	}

	tr := d.Transform()
	if tr.OriginX != 10 || tr.OriginY != 50 {
		t.Errorf("origin = (%v, %v), want (10, 50)", tr.OriginX, tr.OriginY)
	}
	if tr.ScaleX != 0.5 || tr.ScaleY != -0.25 {
		t.Errorf("scale = (%v, %v), want (0.5, -0.25)", tr.ScaleX, tr.ScaleY)
	}
}

func TestOpenProjectedEPSG(t *testing.T) {
	d := openTest(t, rastertest.Spec{Width: 4, Height: 4, EPSG: 32610})
	if d.EPSG() != 32610 {
		t.Errorf("epsg = %d, want 32610", d.EPSG())
	}
}

func TestOpenNoGeoKeys(t *testing.T) {
	d := openTest(t, rastertest.Spec{Width: 4, Height: 4})
	if d.EPSG() != 0 {
		t.Errorf("epsg = %d, want 0 for undeclared CRS", d.EPSG())
	}
	if _, ok := d.NoData(); ok {
		t.Error("NoData reported a sentinel for a raster that declares none")
	}
}

func TestSampleAcrossTiles(t *testing.T) {
	// 70x70 with 32x32 tiles spans a 3x3 tile layout with clipped edge
	// tiles. Encode the pixel position in the value so misaddressed tiles
	// show up immediately.
	d := openTest(t, rastertest.Spec{
		Width: 70, Height: 70,
		Sample: func(col, row, _ int) float32 { return float32(col*1000 + row) },
	})

	testCases := []struct {
		name     string
		col, row int
	}{
		{"first tile", 0, 0},
		{"tile interior", 10, 20},
		{"tile boundary right", 31, 5},
		{"tile boundary crossing", 32, 5},
		{"middle tile", 40, 40},
		{"clipped edge tile", 69, 69},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := d.Sample(tc.col, tc.row, 0)
			if err != nil {
				t.Fatalf("Sample(%d, %d): %v", tc.col, tc.row, err)
			}
			want := float64(tc.col*1000 + tc.row)
			if !floatEquals(got, want) {
				t.Errorf("Sample(%d, %d) = %v, want %v", tc.col, tc.row, got, want)
			}
		})
	}
}

func TestSampleBandInterleave(t *testing.T) {
	d := openTest(t, rastertest.Spec{
		Width: 8, Height: 8, Bands: 3,
		Sample: func(col, row, band int) float32 {
			return float32(band*100 + col*10 + row)
		},
	})

	for band := 0; band < 3; band++ {
		got, err := d.Sample(3, 5, band)
		if err != nil {
			t.Fatalf("Sample band %d: %v", band, err)
		}
		want := float64(band*100 + 35)
		if !floatEquals(got, want) {
			t.Errorf("Sample(3, 5, %d) = %v, want %v", band, got, want)
		}
	}
}

func TestSampleFormatsAndCompression(t *testing.T) {
	// 40x40 with two bands and 32x32 tiles crosses tile edges in both
	// axes, so every decode path also exercises tile addressing.
	value := func(col, row, band int) float32 {
		return float32(band*100000 + col*1000 + row)
	}

	testCases := []struct {
		name         string
		sampleFormat uint16
		compression  uint16
		predictor    uint16
		bigTIFF      bool
	}{
		{"float32 deflate", 3, 8, 1, false},
		{"int32 uncompressed", 2, 1, 1, false},
		{"int32 deflate", 2, 8, 1, false},
		{"int32 with horizontal predictor", 2, 1, 2, false},
		{"int32 deflate with horizontal predictor", 2, 8, 2, false},
		{"bigtiff float32 deflate", 3, 8, 1, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := openTest(t, rastertest.Spec{
				Width: 40, Height: 40, Bands: 2,
				Sample:       value,
				SampleFormat: tc.sampleFormat,
				Compression:  tc.compression,
				Predictor:    tc.predictor,
				BigTIFF:      tc.bigTIFF,
			})
			for _, p := range [][3]int{{0, 0, 0}, {5, 7, 1}, {31, 31, 0}, {32, 33, 1}, {39, 39, 0}} {
				col, row, band := p[0], p[1], p[2]
				got, err := d.Sample(col, row, band)
				if err != nil {
					t.Fatalf("Sample(%d, %d, %d): %v", col, row, band, err)
				}
				if want := float64(value(col, row, band)); !floatEquals(got, want) {
					t.Errorf("Sample(%d, %d, %d) = %v, want %v", col, row, band, got, want)
				}
			}
		})
	}
}

func TestUndoHorizontalPrediction(t *testing.T) {
	testCases := []struct {
		name                        string
		data                        []int32
		rowWidth, tileHeight, bands int
		want                        []int32
	}{
		{
			name: "single band",
			data: []int32{5, 2, -1, 4}, rowWidth: 4, tileHeight: 1, bands: 1,
			want: []int32{5, 7, 6, 10},
		},
		{
			// Differencing runs within each band: the interleaved pixels
			// (10,100) and (12,103) are stored as deltas (2,3).
			name: "two interleaved bands",
			data: []int32{10, 100, 2, 3}, rowWidth: 4, tileHeight: 1, bands: 2,
			want: []int32{10, 100, 12, 103},
		},
		{
			name: "accumulation resets per row",
			data: []int32{1, 1, 2, 2}, rowWidth: 2, tileHeight: 2, bands: 1,
			want: []int32{1, 2, 2, 4},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := append([]int32(nil), tc.data...)
			undoHorizontalPredictionForInt32(data, tc.rowWidth, tc.tileHeight, tc.bands)
			for i := range tc.want {
				if data[i] != tc.want[i] {
					t.Fatalf("data = %v, want %v", data, tc.want)
				}
			}
		})
	}
}

func TestSampleOutOfRange(t *testing.T) {
	d := openTest(t, rastertest.Spec{Width: 4, Height: 4})

	if _, err := d.Sample(4, 0, 0); err == nil {
		t.Error("Sample outside image width succeeded, want error")
	}
	if _, err := d.Sample(0, -1, 0); err == nil {
		t.Error("Sample at negative row succeeded, want error")
	}
	if _, err := d.Sample(0, 0, 1); err == nil {
		t.Error("Sample of nonexistent band succeeded, want error")
	}
}

func TestValueAtPolicy(t *testing.T) {
	d := openTest(t, rastertest.Spec{
		Width: 6, Height: 6,
		NoData: "-9999",
		Sample: func(col, row, _ int) float32 {
			switch {
			case col == 1 && row == 1:
				return -9999
			case col == 2 && row == 2:
				return rastertest.NaN32()
			default:
				return 7.5
			}
		},
	})

	testCases := []struct {
		name        string
		col, row    int
		band        int
		wantMissing bool
		want        float64
	}{
		{"valid pixel", 0, 0, 0, false, 7.5},
		{"nodata pixel", 1, 1, 0, true, 0},
		{"nan pixel", 2, 2, 0, true, 0},
		{"outside width", 6, 0, 0, true, 0},
		{"outside height", 0, 6, 0, true, 0},
		{"negative index", -1, 0, 0, true, 0},
		{"band out of range", 0, 0, 1, true, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ValueAt(d, tc.col, tc.row, tc.band)
			if err != nil {
				t.Fatalf("ValueAt: %v", err)
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

func TestNoDataNaNSentinel(t *testing.T) {
	// "nan" is a legal GDAL_NODATA value; the sentinel itself never
	// compares equal, but NaN samples are caught by the NaN branch.
	d := openTest(t, rastertest.Spec{
		Width: 4, Height: 4,
		NoData: "nan",
		Sample: func(col, row, _ int) float32 {
			if col == 1 && row == 1 {
				return rastertest.NaN32()
			}
			return 3
		},
	})

	nd, ok := d.NoData()
	if !ok || !math.IsNaN(nd) {
		t.Fatalf("NoData = %v, %v, want NaN, true", nd, ok)
	}

	v, err := ValueAt(d, 1, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsMissing() {
		t.Error("NaN pixel under a nan sentinel is present, want missing")
	}
	v, err = ValueAt(d, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := v.Float64(); !ok || !floatEquals(f, 3) {
		t.Errorf("valid pixel = %v, %v, want 3", f, ok)
	}
}

func TestFieldTypeBytesUnknown(t *testing.T) {
	// Unknown and reserved field types must report zero bytes so readTags
	// skips them instead of indexing past the size table.
	for _, f := range []fieldType{0, 13, 15, 19, 200} {
		if got := f.bytes(); got != 0 {
			t.Errorf("fieldType(%d).bytes() = %d, want 0", f, got)
		}
	}
	if got := DOUBLE.bytes(); got != 8 {
		t.Errorf("DOUBLE bytes = %d, want 8", got)
	}
}

func TestValueJSON(t *testing.T) {
	b, err := Some(12.5).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "12.5" {
		t.Errorf("present value encoded as %s, want 12.5", b)
	}

	b, err = Missing.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "null" {
		t.Errorf("missing value encoded as %s, want null", b)
	}
}

func TestAffinePixel(t *testing.T) {
	a := Affine{OriginX: 100, OriginY: 50, ScaleX: 0.5, ScaleY: -0.5}

	testCases := []struct {
		name             string
		x, y             float64
		wantCol, wantRow int
	}{
		{"origin corner", 100, 50, 0, 0},
		{"pixel interior", 100.3, 49.8, 0, 0},
		{"next pixel", 100.5, 50, 1, 0},
		{"second row", 100, 49.4, 0, 1},
		{"left of raster", 99.9, 50, -1, 0},
		{"above raster", 100, 50.1, 0, -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			col, row := a.Pixel(tc.x, tc.y)
			if col != tc.wantCol || row != tc.wantRow {
				t.Errorf("Pixel(%v, %v) = (%d, %d), want (%d, %d)",
					tc.x, tc.y, col, row, tc.wantCol, tc.wantRow)
			}
		})
	}
}

func TestAffineRoundTrip(t *testing.T) {
	a := Affine{OriginX: -10, OriginY: 20, ScaleX: 0.25, ScaleY: -0.25}
	for _, p := range [][2]int{{0, 0}, {3, 7}, {39, 39}} {
		x, y := a.Coord(p[0], p[1])
		col, row := a.Pixel(x, y)
		if col != p[0] || row != p[1] {
			t.Errorf("round trip (%d, %d) -> (%v, %v) -> (%d, %d)", p[0], p[1], x, y, col, row)
		}
	}
}

func TestAffineBounds(t *testing.T) {
	a := Affine{OriginX: 0, OriginY: 10, ScaleX: 1, ScaleY: -1}
	minX, minY, maxX, maxY := a.Bounds(10, 10)
	if minX != 0 || minY != 0 || maxX != 10 || maxY != 10 {
		t.Errorf("Bounds = (%v, %v, %v, %v), want (0, 0, 10, 10)", minX, minY, maxX, maxY)
	}
}

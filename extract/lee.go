package extract

import (
	"context"
	"fmt"

	"github.com/ahmadhojati/geoextract/raster"
)

// noiseVariance is the assumed additive noise variance of the speckle
// model. The adaptive weight is variance/(variance+noiseVariance), so a
// flat window (zero variance) passes the local mean through unchanged
// while a high-contrast window preserves the center value.
const noiseVariance = 1.0

// LeeFilter applies a locally-adaptive Lee speckle filter over a square
// window of first-band samples centered on the pixel the coordinate
// resolves to, and returns the single denoised value.
//
// The window is clipped at the raster edges rather than zero-padded, and
// nodata/NaN samples are excluded from the statistics. Even window sizes
// are floor-centered: the extra row and column fall on the bottom/right
// side. The result is missing when the resolved center pixel is outside
// the raster, when the center sample itself is missing, or when the
// window holds no valid sample.
func (e *Extractor) LeeFilter(ctx context.Context, windowSize int, source string, c Coordinate) (raster.Value, error) {
	if windowSize < 1 {
		return raster.Missing, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowSize)
	}
	if err := c.Validate(); err != nil {
		return raster.Missing, err
	}

	ds, closer, err := raster.OpenSource(ctx, source, e.cacheSize, e.itemsToPrune)
	if err != nil {
		return raster.Missing, err
	}
	defer closer.Close()

	col, row, err := locate(ds, c)
	if err != nil {
		return raster.Missing, err
	}
	// Out-of-bounds center short-circuits before any windowing.
	if col < 0 || col >= ds.Width() || row < 0 || row >= ds.Height() {
		return raster.Missing, nil
	}
	return leeWindow(ds, col, row, windowSize)
}

// leeWindow computes the filtered value for the window centered on
// (col, row). The filter estimate is mean + weight*(center-mean), which
// the weight keeps between the local mean and the raw center value.
func leeWindow(src raster.Source, col, row, size int) (raster.Value, error) {
	center, err := raster.ValueAt(src, col, row, 0)
	if err != nil {
		return raster.Missing, err
	}
	centerValue, ok := center.Float64()
	if !ok {
		return raster.Missing, nil
	}

	lo := (size - 1) / 2
	hi := size / 2

	var sum, sumSq float64
	var n int
	for r := row - lo; r <= row+hi; r++ {
		for cc := col - lo; cc <= col+hi; cc++ {
			v, err := raster.ValueAt(src, cc, r, 0)
			if err != nil {
				return raster.Missing, err
			}
			f, ok := v.Float64()
			if !ok {
				continue
			}
			sum += f
			sumSq += f * f
			n++
		}
	}
	if n == 0 {
		return raster.Missing, nil
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		// Guard against catastrophic cancellation on near-uniform windows.
		variance = 0
	}
	weight := variance / (variance + noiseVariance)
	return raster.Some(mean + weight*(centerValue-mean)), nil
}

package raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidResolution is returned by Resample for non-positive
// resolutions.
var ErrInvalidResolution = errors.New("resolution must be positive")

// Grid is an in-memory raster, typically the product of resampling a
// file-backed Dataset. It carries its own georeferencing and inherits the
// CRS and nodata declaration of its source. Missing samples are stored as
// NaN, which ValueAt reports as Missing.
type Grid struct {
	width, height int
	bands         int
	epsg          int
	nodata        *float64
	transform     Affine

	// planes holds one row-major float64 plane per band.
	planes [][]float64
}

// NewGrid allocates an empty grid with every sample set to NaN.
func NewGrid(width, height, bands int, transform Affine) *Grid {
	g := &Grid{
		width:     width,
		height:    height,
		bands:     bands,
		transform: transform,
		planes:    make([][]float64, bands),
	}
	for b := range g.planes {
		plane := make([]float64, width*height)
		for i := range plane {
			plane[i] = math.NaN()
		}
		g.planes[b] = plane
	}
	return g
}

func (g *Grid) Width() int        { return g.width }
func (g *Grid) Height() int       { return g.height }
func (g *Grid) Bands() int        { return g.bands }
func (g *Grid) EPSG() int         { return g.epsg }
func (g *Grid) Transform() Affine { return g.transform }

func (g *Grid) NoData() (float64, bool) {
	if g.nodata == nil {
		return 0, false
	}
	return *g.nodata, true
}

// Sample returns the raw stored value at the pixel.
func (g *Grid) Sample(col, row, band int) (float64, error) {
	if col < 0 || col >= g.width || row < 0 || row >= g.height {
		return 0, errors.New("pixel lies outside grid")
	}
	if band < 0 || band >= g.bands {
		return 0, fmt.Errorf("band %d out of range (grid has %d)", band, g.bands)
	}
	return g.planes[band][row*g.width+col], nil
}

// Set stores a value at the pixel. Out-of-range indices are ignored.
func (g *Grid) Set(col, row, band int, v float64) {
	if col < 0 || col >= g.width || row < 0 || row >= g.height || band < 0 || band >= g.bands {
		return
	}
	g.planes[band][row*g.width+col] = v
}

var _ Source = (*Grid)(nil)

// Resample rescales a raster from its original ground resolution to a new
// one, producing an in-memory grid over the same footprint. The scale
// factor oldResolution/newResolution is applied to both axes with
// round-to-nearest dimensions (minimum 1); the top-left origin is
// preserved and the pixel scale shrinks or grows accordingly.
//
// Interpolation is bilinear with pixel-center alignment. Neighbors that
// are missing (out of bounds, nodata, NaN) are dropped and the remaining
// weights renormalized; a neighborhood with no valid sample produces a
// missing output pixel. When the two resolutions are equal the output
// reproduces the source values exactly.
func Resample(src Source, oldResolution, newResolution float64) (*Grid, error) {
	if oldResolution <= 0 {
		return nil, fmt.Errorf("%w: old resolution %v", ErrInvalidResolution, oldResolution)
	}
	if newResolution <= 0 {
		return nil, fmt.Errorf("%w: new resolution %v", ErrInvalidResolution, newResolution)
	}

	scale := oldResolution / newResolution
	newWidth := int(math.Round(float64(src.Width()) * scale))
	newHeight := int(math.Round(float64(src.Height()) * scale))
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	t := src.Transform()
	g := NewGrid(newWidth, newHeight, src.Bands(), Affine{
		OriginX: t.OriginX,
		OriginY: t.OriginY,
		ScaleX:  t.ScaleX / scale,
		ScaleY:  t.ScaleY / scale,
	})
	g.epsg = src.EPSG()
	if nd, ok := src.NoData(); ok {
		v := nd
		g.nodata = &v
	}

	for band := 0; band < g.bands; band++ {
		for row := 0; row < newHeight; row++ {
			// Source position of the output pixel center.
			sy := (float64(row)+0.5)/scale - 0.5
			y0 := int(math.Floor(sy))
			fy := sy - float64(y0)
			for col := 0; col < newWidth; col++ {
				sx := (float64(col)+0.5)/scale - 0.5
				x0 := int(math.Floor(sx))
				fx := sx - float64(x0)

				v, err := bilinear(src, x0, y0, fx, fy, band)
				if err != nil {
					return nil, err
				}
				if f, ok := v.Float64(); ok {
					g.Set(col, row, band, f)
				}
			}
		}
	}
	return g, nil
}

// bilinear interpolates among the four pixels surrounding the fractional
// position (x0+fx, y0+fy), skipping missing neighbors and renormalizing.
func bilinear(src Source, x0, y0 int, fx, fy float64, band int) (Value, error) {
	neighbors := [4]struct {
		dx, dy int
		w      float64
	}{
		{0, 0, (1 - fx) * (1 - fy)},
		{1, 0, fx * (1 - fy)},
		{0, 1, (1 - fx) * fy},
		{1, 1, fx * fy},
	}

	var sum, weight float64
	for _, n := range neighbors {
		if n.w == 0 {
			continue
		}
		v, err := ValueAt(src, x0+n.dx, y0+n.dy, band)
		if err != nil {
			return Missing, err
		}
		f, ok := v.Float64()
		if !ok {
			continue
		}
		sum += f * n.w
		weight += n.w
	}
	if weight == 0 {
		return Missing, nil
	}
	return Some(sum / weight), nil
}

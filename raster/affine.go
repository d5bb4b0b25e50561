package raster

import "math"

// Affine is the georeferencing transform of a north-up raster: the
// projected coordinate of the top-left corner plus the per-axis pixel
// scale. ScaleY is negative, matching the GeoTIFF convention for
// north-up images. Rotated rasters are not represented.
type Affine struct {
	OriginX float64
	OriginY float64
	ScaleX  float64
	ScaleY  float64
}

// Pixel inverts the transform, mapping a projected coordinate to the
// integer indices of the pixel containing it. Both axes round with floor,
// consistent with the top-left raster origin: a coordinate anywhere inside
// a pixel's footprint maps to that pixel. No bounds check is applied;
// bounds are enforced where samples are read.
func (a Affine) Pixel(x, y float64) (col, row int) {
	col = int(math.Floor((x - a.OriginX) / a.ScaleX))
	row = int(math.Floor((y - a.OriginY) / a.ScaleY))
	return col, row
}

// Coord returns the projected coordinate of the top-left corner of the
// pixel at (col, row).
func (a Affine) Coord(col, row int) (x, y float64) {
	return a.OriginX + float64(col)*a.ScaleX, a.OriginY + float64(row)*a.ScaleY
}

// Bounds returns the projected footprint of a w by h raster under this
// transform as (minX, minY, maxX, maxY).
func (a Affine) Bounds(w, h int) (minX, minY, maxX, maxY float64) {
	x0, y0 := a.OriginX, a.OriginY
	x1 := a.OriginX + float64(w)*a.ScaleX
	y1 := a.OriginY + float64(h)*a.ScaleY
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

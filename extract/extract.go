// Package extract resolves geodetic coordinates to raster pixels and
// refines the measurements found there: direct per-band extraction,
// extraction after resolution rescaling, and Lee speckle filtering.
//
// Each public operation opens its own raster handle from the source
// string, uses it for the duration of the call and releases it on every
// exit path. Calls share no state and may run concurrently.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ahmadhojati/geoextract/crs"
	"github.com/ahmadhojati/geoextract/raster"
)

var (
	// ErrInvalidCoordinate is returned for latitudes outside [-90, 90] or
	// longitudes outside [-180, 180].
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	// ErrInvalidWindow is returned for non-positive Lee filter window
	// sizes.
	ErrInvalidWindow = errors.New("window size must be positive")
)

// Coordinate is a geodetic WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks the coordinate against the WGS84 domain.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Extractor runs extraction operations against raster sources. The zero
// value is not usable; construct with New.
type Extractor struct {
	cacheSize    int64
	itemsToPrune uint32
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTileCache sets the per-handle tile cache size and prune batch.
func WithTileCache(maxSize int64, itemsToPrune uint32) Option {
	return func(e *Extractor) {
		e.cacheSize = maxSize
		e.itemsToPrune = itemsToPrune
	}
}

// New returns an Extractor with a modest default tile cache.
func New(opts ...Option) *Extractor {
	e := &Extractor{cacheSize: 1024, itemsToPrune: 100}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// locate resolves the pixel containing the coordinate in the source's own
// CRS. Rasters declaring a geographic CRS (or none) are indexed by
// lon/lat directly; rasters declaring a projected CRS have the coordinate
// reprojected into the UTM CRS derived from the coordinate itself before
// the affine transform is inverted. No bounds check is applied here.
func locate(src raster.Source, c Coordinate) (col, row int, err error) {
	x, y := c.Lon, c.Lat
	if epsg := src.EPSG(); epsg != 0 && epsg != crs.GeodeticEPSG {
		target, err := crs.EPSGForCoordinate(c.Lat, c.Lon)
		if err != nil {
			return 0, 0, err
		}
		tr, err := crs.NewTransform(crs.GeodeticEPSG, target)
		if err != nil {
			return 0, 0, err
		}
		x, y, err = tr.Forward(c.Lon, c.Lat)
		if err != nil {
			return 0, 0, err
		}
	}
	col, row = src.Transform().Pixel(x, y)
	return col, row, nil
}

// ExtractValue returns the first-band measurement at the coordinate, or a
// missing value for coordinates outside the raster footprint and for
// nodata/NaN pixels.
func (e *Extractor) ExtractValue(ctx context.Context, source string, c Coordinate) (raster.Value, error) {
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
	return raster.ValueAt(ds, col, row, 0)
}

// ValuesAtCoordinate resolves the pixel once and returns one entry per
// declared band, in band order. Unavailable positions are reported as
// missing values; the slice length always equals the band count, so
// callers can correlate entries with bands.
func (e *Extractor) ValuesAtCoordinate(ctx context.Context, source string, c Coordinate) ([]raster.Value, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ds, closer, err := raster.OpenSource(ctx, source, e.cacheSize, e.itemsToPrune)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	col, row, err := locate(ds, c)
	if err != nil {
		return nil, err
	}

	values := make([]raster.Value, ds.Bands())
	for band := range values {
		v, err := raster.ValueAt(ds, col, row, band)
		if err != nil {
			return nil, err
		}
		values[band] = v
	}
	return values, nil
}

// ResampleAndExtractValue rescales the raster from oldResolution to
// newResolution (both in ground meters) and extracts the first-band value
// at the coordinate from the resampled grid.
func (e *Extractor) ResampleAndExtractValue(ctx context.Context, source string, c Coordinate, oldResolution, newResolution float64) (raster.Value, error) {
	if err := c.Validate(); err != nil {
		return raster.Missing, err
	}
	ds, closer, err := raster.OpenSource(ctx, source, e.cacheSize, e.itemsToPrune)
	if err != nil {
		return raster.Missing, err
	}
	defer closer.Close()

	grid, err := raster.Resample(ds, oldResolution, newResolution)
	if err != nil {
		return raster.Missing, err
	}

	col, row, err := locate(grid, c)
	if err != nil {
		return raster.Missing, err
	}
	return raster.ValueAt(grid, col, row, 0)
}

package raster

import (
	"encoding/json"
	"math"
)

// Value is a sample measurement that may be absent. The zero value is the
// missing state, so a legitimate 0.0 reading is never confused with a gap
// in the data.
type Value struct {
	v  float64
	ok bool
}

// Missing is the absent-data marker returned for out-of-bounds pixels,
// nodata sentinel matches and NaN samples.
var Missing = Value{}

// Some wraps a present measurement.
func Some(v float64) Value { return Value{v: v, ok: true} }

// Float64 returns the measurement and whether it is present.
func (v Value) Float64() (float64, bool) { return v.v, v.ok }

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return !v.ok }

// MarshalJSON encodes a present value as a JSON number and a missing value
// as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}

// Source is the read-only raster view shared by file-backed datasets and
// in-memory grids. Sample returns the raw stored value without nodata
// interpretation; callers wanting missing-data semantics go through
// ValueAt.
type Source interface {
	Width() int
	Height() int
	Bands() int

	// EPSG returns the declared CRS code, or 0 when the raster does not
	// declare one.
	EPSG() int

	// NoData returns the declared nodata sentinel, if any.
	NoData() (float64, bool)

	// Transform returns the affine georeferencing transform.
	Transform() Affine

	// Sample returns the raw stored value at the pixel. The pixel must be
	// in bounds; an error indicates a read failure, not missing data.
	Sample(col, row, band int) (float64, error)
}

// ValueAt reads one sample and applies the missing-data policy: a pixel
// outside the raster or band range, a value equal to the nodata sentinel,
// or a NaN all yield Missing. Every extraction path in this module reads
// through here so the policy cannot drift between call sites. A non-nil
// error reports an I/O failure and never a data gap.
func ValueAt(src Source, col, row, band int) (Value, error) {
	if col < 0 || col >= src.Width() || row < 0 || row >= src.Height() {
		return Missing, nil
	}
	if band < 0 || band >= src.Bands() {
		return Missing, nil
	}
	raw, err := src.Sample(col, row, band)
	if err != nil {
		return Missing, err
	}
	if math.IsNaN(raw) {
		return Missing, nil
	}
	if nd, ok := src.NoData(); ok && raw == nd {
		return Missing, nil
	}
	return Some(raw), nil
}

// Package rastertest builds small tiled GeoTIFFs in memory for tests.
// The generated files are little-endian single-IFD TIFFs (classic or
// BigTIFF) with chunky-interleaved float32 or int32 samples, optionally
// DEFLATE-compressed and horizontally differenced.
package rastertest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Spec describes the raster to generate. Zero-value fields fall back to
// sensible defaults (32x32 tiles, one band, pixel scale 1, origin 0/0,
// uncompressed float32, classic TIFF).
type Spec struct {
	Width  int
	Height int
	Bands  int

	TileWidth  int
	TileHeight int

	// PixelScaleX/Y are the positive model units per pixel.
	PixelScaleX float64
	PixelScaleY float64

	// OriginX/Y anchor pixel (0,0) at its top-left corner.
	OriginX float64
	OriginY float64

	// EPSG is written to the GeoKeyDirectory when non-zero. 4326 is
	// declared as a geographic CS, anything else as a projected CS.
	EPSG int

	// NoData, when non-empty, is written verbatim as the GDAL_NODATA
	// ASCII tag.
	NoData string

	// SampleFormat is the TIFF sample format: 3 (IEEE float, default) or
	// 2 (signed int). Int samples are the Sample value truncated.
	SampleFormat uint16

	// Compression is 1 (none, default) or 8 (DEFLATE).
	Compression uint16

	// Predictor is 1 (none, default) or 2 (horizontal differencing,
	// applied per component; int samples only).
	Predictor uint16

	// BigTIFF emits the 64-bit header and IFD layout.
	BigTIFF bool

	// Sample supplies pixel values. Nil means all zeros.
	Sample func(col, row, band int) float32
}

func (s *Spec) defaults() {
	if s.Bands == 0 {
		s.Bands = 1
	}
	if s.TileWidth == 0 {
		s.TileWidth = 32
	}
	if s.TileHeight == 0 {
		s.TileHeight = 32
	}
	if s.PixelScaleX == 0 {
		s.PixelScaleX = 1
	}
	if s.PixelScaleY == 0 {
		s.PixelScaleY = 1
	}
	if s.SampleFormat == 0 {
		s.SampleFormat = 3
	}
	if s.Compression == 0 {
		s.Compression = 1
	}
	if s.Predictor == 0 {
		s.Predictor = 1
	}
	if s.Sample == nil {
		s.Sample = func(int, int, int) float32 { return 0 }
	}
}

type ifdEntry struct {
	tag   uint16
	ftype uint16
	count uint32
	data  []byte
}

const (
	ftASCII  = 2
	ftShort  = 3
	ftLong   = 4
	ftDouble = 12
)

func shortEntry(tag uint16, vals ...uint16) ifdEntry {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, vals)
	return ifdEntry{tag: tag, ftype: ftShort, count: uint32(len(vals)), data: buf.Bytes()}
}

func longEntry(tag uint16, vals ...uint32) ifdEntry {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, vals)
	return ifdEntry{tag: tag, ftype: ftLong, count: uint32(len(vals)), data: buf.Bytes()}
}

func doubleEntry(tag uint16, vals ...float64) ifdEntry {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, vals)
	return ifdEntry{tag: tag, ftype: ftDouble, count: uint32(len(vals)), data: buf.Bytes()}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	data := append([]byte(s), 0)
	return ifdEntry{tag: tag, ftype: ftASCII, count: uint32(len(data)), data: data}
}

func pad2(n uint32) uint32 { return n + n%2 }

// buildTiles serializes every tile payload in row-major tile order,
// applying the predictor and compression the spec asks for. Edge tiles
// are padded with zeros past the image.
func buildTiles(spec Spec, tilesAcross, tilesDown int) [][]byte {
	rowWidth := spec.TileWidth * spec.Bands
	var tiles [][]byte
	for ty := 0; ty < tilesDown; ty++ {
		for tx := 0; tx < tilesAcross; tx++ {
			var buf bytes.Buffer
			if spec.SampleFormat == 2 {
				tile := make([]int32, rowWidth*spec.TileHeight)
				fillTile(spec, tx, ty, func(i int, v float32) { tile[i] = int32(v) })
				if spec.Predictor == 2 {
					for j := 0; j < spec.TileHeight; j++ {
						row := tile[j*rowWidth : (j+1)*rowWidth]
						for x := rowWidth - 1; x >= spec.Bands; x-- {
							row[x] -= row[x-spec.Bands]
						}
					}
				}
				binary.Write(&buf, binary.LittleEndian, tile)
			} else {
				tile := make([]float32, rowWidth*spec.TileHeight)
				fillTile(spec, tx, ty, func(i int, v float32) { tile[i] = v })
				binary.Write(&buf, binary.LittleEndian, tile)
			}

			payload := buf.Bytes()
			if spec.Compression == 8 {
				var z bytes.Buffer
				zw := zlib.NewWriter(&z)
				zw.Write(payload)
				zw.Close()
				payload = z.Bytes()
			}
			tiles = append(tiles, payload)
		}
	}
	return tiles
}

func fillTile(spec Spec, tx, ty int, set func(i int, v float32)) {
	for j := 0; j < spec.TileHeight; j++ {
		for i := 0; i < spec.TileWidth; i++ {
			col := tx*spec.TileWidth + i
			row := ty*spec.TileHeight + j
			if col >= spec.Width || row >= spec.Height {
				continue
			}
			for b := 0; b < spec.Bands; b++ {
				set((j*spec.TileWidth+i)*spec.Bands+b, spec.Sample(col, row, b))
			}
		}
	}
}

// Bytes serializes the spec into a complete GeoTIFF byte slice.
func Bytes(spec Spec) []byte {
	spec.defaults()

	tilesAcross := (spec.Width + spec.TileWidth - 1) / spec.TileWidth
	tilesDown := (spec.Height + spec.TileHeight - 1) / spec.TileHeight
	numTiles := tilesAcross * tilesDown

	tiles := buildTiles(spec, tilesAcross, tilesDown)
	byteCounts := make([]uint32, numTiles)
	for i, p := range tiles {
		byteCounts[i] = uint32(len(p))
	}

	shorts := func(n int, v uint16) []uint16 {
		s := make([]uint16, n)
		for i := range s {
			s[i] = v
		}
		return s
	}

	entries := []ifdEntry{
		longEntry(256, uint32(spec.Width)),
		longEntry(257, uint32(spec.Height)),
		shortEntry(258, shorts(spec.Bands, 32)...),
		shortEntry(259, spec.Compression),
		shortEntry(277, uint16(spec.Bands)),
		shortEntry(317, spec.Predictor),
		longEntry(322, uint32(spec.TileWidth)),
		longEntry(323, uint32(spec.TileHeight)),
		longEntry(324, make([]uint32, numTiles)...), // bound after layout
		longEntry(325, byteCounts...),
		shortEntry(339, shorts(spec.Bands, spec.SampleFormat)...),
		doubleEntry(33550, spec.PixelScaleX, spec.PixelScaleY, 0),
		doubleEntry(33922, 0, 0, 0, spec.OriginX, spec.OriginY, 0),
	}
	if spec.EPSG != 0 {
		modelType, csKey := uint16(1), uint16(3072)
		if spec.EPSG == 4326 {
			modelType, csKey = 2, 2048
		}
		entries = append(entries, shortEntry(34735,
			1, 1, 0, 2,
			1024, 0, 1, modelType,
			csKey, 0, 1, uint16(spec.EPSG),
		))
	}
	if spec.NoData != "" {
		entries = append(entries, asciiEntry(42113, spec.NoData))
	}

	// Layout: header, IFD, external tag payloads, tile data. Values that
	// fit the entry's value field are packed inline instead. BigTIFF
	// widens the header, the entries and the inline capacity.
	headerSize, entrySize, ifdOverhead, inline := 8, 12, 2+4, 4
	if spec.BigTIFF {
		headerSize, entrySize, ifdOverhead, inline = 16, 20, 8+8, 8
	}
	ifdSize := ifdOverhead + entrySize*len(entries)
	cursor := pad2(uint32(headerSize + ifdSize))
	offsets := make([]uint32, len(entries)) // 0 = inline
	for i, e := range entries {
		if len(e.data) > inline {
			offsets[i] = cursor
			cursor = pad2(cursor + uint32(len(e.data)))
		}
	}
	tileOffsets := make([]uint32, numTiles)
	for i, p := range tiles {
		tileOffsets[i] = cursor
		cursor = pad2(cursor + uint32(len(p)))
	}
	for i, e := range entries {
		if e.tag == 324 {
			entries[i] = longEntry(324, tileOffsets...)
		}
	}

	var out bytes.Buffer
	out.Write([]byte{'I', 'I'})
	if spec.BigTIFF {
		binary.Write(&out, binary.LittleEndian, uint16(43))
		binary.Write(&out, binary.LittleEndian, uint16(8))
		binary.Write(&out, binary.LittleEndian, uint16(0))
		binary.Write(&out, binary.LittleEndian, uint64(headerSize))
		binary.Write(&out, binary.LittleEndian, uint64(len(entries)))
	} else {
		binary.Write(&out, binary.LittleEndian, uint16(42))
		binary.Write(&out, binary.LittleEndian, uint32(headerSize))
		binary.Write(&out, binary.LittleEndian, uint16(len(entries)))
	}
	for i, e := range entries {
		binary.Write(&out, binary.LittleEndian, e.tag)
		binary.Write(&out, binary.LittleEndian, e.ftype)
		if spec.BigTIFF {
			binary.Write(&out, binary.LittleEndian, uint64(e.count))
		} else {
			binary.Write(&out, binary.LittleEndian, e.count)
		}
		valueField := make([]byte, inline)
		if offsets[i] != 0 {
			binary.LittleEndian.PutUint32(valueField, offsets[i])
		} else {
			copy(valueField, e.data)
		}
		out.Write(valueField)
	}
	if spec.BigTIFF {
		binary.Write(&out, binary.LittleEndian, uint64(0)) // no further IFDs
	} else {
		binary.Write(&out, binary.LittleEndian, uint32(0))
	}

	for i, e := range entries {
		if offsets[i] == 0 {
			continue
		}
		for out.Len() < int(offsets[i]) {
			out.WriteByte(0)
		}
		out.Write(e.data)
	}
	for i, p := range tiles {
		for out.Len() < int(tileOffsets[i]) {
			out.WriteByte(0)
		}
		out.Write(p)
	}

	return out.Bytes()
}

// WriteFile writes the generated raster under dir and returns its path.
func WriteFile(t *testing.T, dir string, spec Spec) string {
	t.Helper()
	path := filepath.Join(dir, "raster.tif")
	if err := os.WriteFile(path, Bytes(spec), 0o644); err != nil {
		t.Fatalf("writing test raster: %v", err)
	}
	return path
}

// NaN32 is a convenience for Sample funcs that want missing cells.
func NaN32() float32 { return float32(math.NaN()) }

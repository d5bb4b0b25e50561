// Package raster reads georeferenced raster values from GeoTIFF sources
// and provides the resampling and missing-data machinery built on top of
// them. File decoding is self-contained: tiled TIFF and BigTIFF layouts,
// uncompressed and DEFLATE tiles, float32 and int32 samples.
package raster

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"
)

// head represents the TIFF file header information
type head struct {
	byteOrder binary.ByteOrder
	isBigTIFF bool
	ifdOffset uint64
}

// iFDEntry represents a single entry in an Image File Directory (IFD)
type iFDEntry struct {
	Tag         Tag
	FType       fieldType
	Count       uint64
	ValueOffset uint64
	ValueBytes  []byte // inline value data for small values
}

// tagData holds the parsed data for a TIFF tag in various typed formats
type tagData struct {
	fType      fieldType
	length     uint32
	byteData   []uint8
	asciiData  string
	shortData  []uint16
	longData   []uint32
	floatData  []float32
	doubleData []float64
	uint64Data []uint64
}

type Tags map[Tag]tagData

type Tag uint16

// Dataset is a parsed GeoTIFF raster opened for the duration of one
// extraction call. It is read-only and safe for concurrent sampling.
type Dataset struct {
	// reader is the underlying source for the raster data. It must also
	// implement io.ReaderAt so tiles can be fetched concurrently.
	reader io.ReadSeeker

	byteOrder binary.ByteOrder
	tags      Tags
	isBigTIFF bool

	width  int
	height int
	bands  int

	// Tiled layout. Tiling is required; strip-organized TIFFs are not
	// supported by this reader.
	tileWidth      int
	tileLength     int
	tileOffsets    []uint64
	tileByteCounts []uint64
	tilesAcross    int

	bitsPerSample uint16
	sampleFormat  uint16
	compression   uint16
	predictor     uint16

	// transform maps pixel indices to the declared CRS, anchored at the
	// ModelTiepoint and scaled by ModelPixelScale.
	transform Affine

	// epsg is the declared CRS from the GeoKeyDirectory, 0 when absent.
	epsg int

	// nodata is the sentinel parsed from the GDAL_NODATA tag, nil when
	// the raster declares none.
	nodata *float64

	// tileCache stores processed tile data as ready-to-index typed slices
	// ([]float32 or []int32) rather than raw bytes, so repeated window
	// reads over the same tile cost one decode. The cache lives and dies
	// with the Dataset; there is no process-wide state.
	tileCache *ccache.Cache[any]

	// inflightData deduplicates concurrent fetches of the same tile.
	inflightData singleflight.Group

	// inflightPrefetch ensures neighbor prefetching for a given tile is
	// triggered at most once per interval.
	inflightPrefetch singleflight.Group
}

// fieldTypeLen is the length of every field type in bytes
var fieldTypeLen = [...]uint32{
	zeroByte, oneByte, oneByte, twoByte, // 0-3
	fourByte, eightByte, oneByte, oneByte, // 4-7
	twoByte, fourByte, eightByte, fourByte, // 8-11
	eightByte, // 12 (DOUBLE)
	0, 0, 0,   // 13-15 (Reserved)
	eightByte, eightByte, eightByte, // 16-18 (LONG8, SLONG8, IFD8)
}

var fieldTypeToLabel = map[fieldType]string{
	BYTE:      "BYTE",
	ASCII:     "ASCII",
	SHORT:     "SHORT",
	LONG:      "LONG",
	RATIONAL:  "RATIONAL",
	SBYTE:     "SBYTE",
	UNDEFINED: "UNDEFINED",
	SSHORT:    "SSHORT",
	SLONG:     "SLONG",
	SRATIONAL: "SRATIONAL",
	FLOAT:     "FLOAT",
	DOUBLE:    "DOUBLE",
}

func (f fieldType) String() string {
	v, ok := fieldTypeToLabel[f]
	if !ok {
		return fmt.Sprintf("unrecognized field type %d", f)
	}
	return v
}

// bytes returns the number of bytes in each data type
//
// returns 0 if unrecognized
func (f fieldType) bytes() uint32 {
	if f == 0 || int(f) >= len(fieldTypeLen) {
		return fieldTypeLen[0]
	}
	return fieldTypeLen[int(f)]
}

func (t Tag) String() string {
	v, ok := tagToLabel[t]
	if !ok {
		return fmt.Sprintf("%d", t)
	}
	return v
}

// Open parses a GeoTIFF from the provided io.ReadSeeker and returns a
// Dataset with the metadata needed for coordinate-addressed sampling.
// cacheSize and itemsToPrune configure the per-dataset tile cache.
func Open(r io.ReadSeeker, cacheSize int64, itemsToPrune uint32) (*Dataset, error) {
	gTags, header, err := readTags(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tiff tags: %w", err)
	}

	d := &Dataset{
		reader:    r,
		tags:      gTags,
		byteOrder: header.byteOrder,
		isBigTIFF: header.isBigTIFF,
		tileCache: ccache.New(ccache.Configure[any]().MaxSize(cacheSize).ItemsToPrune(itemsToPrune)),
	}

	// Required image dimensions.
	if width, ok := d.getUint(ImageWidth); ok {
		d.width = int(width)
	} else {
		return nil, errors.New("missing or invalid tag: ImageWidth")
	}
	if length, ok := d.getUint(ImageLength); ok {
		d.height = int(length)
	} else {
		return nil, errors.New("missing or invalid tag: ImageLength")
	}

	// Required tile dimensions.
	if tWidth, ok := d.getUint(TileWidth); ok {
		d.tileWidth = int(tWidth)
	} else {
		return nil, errors.New("missing or invalid tag: TileWidth")
	}
	if tLength, ok := d.getUint(TileLength); ok {
		d.tileLength = int(tLength)
	} else {
		return nil, errors.New("missing or invalid tag: TileLength")
	}
	if d.tileWidth > 0 {
		d.tilesAcross = (d.width + d.tileWidth - 1) / d.tileWidth
	}

	// Sample layout with defaults.
	if spp, ok := d.getUint(SamplesPerPixel); ok {
		d.bands = int(spp)
	} else {
		d.bands = 1
	}
	if bps, ok := d.getUint(BitsPerSample); ok {
		d.bitsPerSample = uint16(bps)
	} else {
		d.bitsPerSample = 32
	}
	if sf, ok := d.getUint(SampleFormat); ok {
		d.sampleFormat = uint16(sf)
	} else {
		d.sampleFormat = SampleFormatFloat
	}
	if comp, ok := d.getUint(Compression); ok {
		d.compression = uint16(comp)
	} else {
		d.compression = Uncompressed
	}
	if pred, ok := d.getUint(Predictor); ok {
		d.predictor = uint16(pred)
	} else {
		d.predictor = PredictorNone
	}

	// Tile location and size information.
	if offsets, ok := d.get64bitSlice(TileOffsets); ok {
		d.tileOffsets = offsets
	} else {
		return nil, errors.New("missing or invalid tag: TileOffsets")
	}
	if counts, ok := d.get64bitSlice(TileByteCounts); ok {
		d.tileByteCounts = counts
	} else {
		return nil, errors.New("missing or invalid tag: TileByteCounts")
	}

	if err := d.readGeoreferencing(); err != nil {
		return nil, err
	}
	d.readNoData()
	d.readGeoKeys()

	return d, nil
}

// readGeoreferencing builds the affine transform from the ModelPixelScale
// and ModelTiepoint tags. The tiepoint anchors an arbitrary pixel, not
// necessarily (0,0), so the origin is backed out from it.
func (d *Dataset) readGeoreferencing() error {
	pixelScale, ok := d.tags[ModelPixelScale]
	if !ok {
		return errors.New("missing tag: ModelPixelScale")
	}
	scaleValues, ok := pixelScale.doubleDataValue()
	if !ok || len(scaleValues) < 2 {
		return errors.New("invalid ModelPixelScale tag")
	}
	scaleX, scaleY := scaleValues[0], scaleValues[1]
	// North-up convention: Y scale is negative.
	if scaleY > 0 {
		scaleY = -scaleY
	}

	tiePointTag, ok := d.tags[ModelTiepoint]
	if !ok {
		return errors.New("missing tag: ModelTiepoint")
	}
	tiePointValues, ok := tiePointTag.doubleDataValue()
	if !ok || len(tiePointValues) < 6 {
		return errors.New("invalid ModelTiepoint tag")
	}
	tieI, tieJ := tiePointValues[0], tiePointValues[1]
	tieX, tieY := tiePointValues[3], tiePointValues[4]

	d.transform = Affine{
		OriginX: tieX - tieI*scaleX,
		OriginY: tieY - tieJ*scaleY,
		ScaleX:  scaleX,
		ScaleY:  scaleY,
	}
	return nil
}

// readNoData parses the GDAL_NODATA ASCII tag. The tag value is a decimal
// string; "nan" is accepted and collapses into the NaN missing check.
func (d *Dataset) readNoData() {
	t, ok := d.tags[GDALNoData]
	if !ok || t.fType != ASCII {
		return
	}
	s := strings.TrimSpace(t.asciiData)
	if s == "" {
		return
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		slog.Warn("unparseable GDAL_NODATA tag, ignoring", "value", s)
		return
	}
	d.nodata = &v
}

// readGeoKeys extracts the declared CRS from the GeoKeyDirectory. The
// directory is a SHORT array: a 4-value header followed by 4-value key
// entries (keyID, tagLocation, count, value). Only inline (tagLocation 0)
// CS keys are read; ProjectedCSTypeGeoKey wins over GeographicTypeGeoKey.
func (d *Dataset) readGeoKeys() {
	t, ok := d.tags[GeoKeyDirectory]
	if !ok || t.fType != SHORT || len(t.shortData) < 4 {
		return
	}
	keys := t.shortData
	numKeys := int(keys[3])
	for k := 0; k < numKeys; k++ {
		base := 4 + k*4
		if base+3 >= len(keys) {
			break
		}
		keyID, loc, value := keys[base], keys[base+1], keys[base+3]
		if loc != 0 {
			continue
		}
		switch keyID {
		case geoKeyProjectedCS:
			d.epsg = int(value)
		case geoKeyGeographicCS:
			if d.epsg == 0 {
				d.epsg = int(value)
			}
		}
	}
}

// Width returns the image width in pixels.
func (d *Dataset) Width() int { return d.width }

// Height returns the image height in pixels.
func (d *Dataset) Height() int { return d.height }

// Bands returns the declared number of samples per pixel.
func (d *Dataset) Bands() int { return d.bands }

// EPSG returns the declared CRS code, or 0 when the raster declares none.
func (d *Dataset) EPSG() int { return d.epsg }

// NoData returns the declared nodata sentinel, if any.
func (d *Dataset) NoData() (float64, bool) {
	if d.nodata == nil {
		return 0, false
	}
	return *d.nodata, true
}

// Transform returns the affine georeferencing transform.
func (d *Dataset) Transform() Affine { return d.transform }

// readHeader parses the TIFF file header to determine byte order, file
// format, and IFD location.
func readHeader(r io.Reader) (head, error) {
	var h head

	var byteOrderBytes uint16
	if err := binary.Read(r, binary.BigEndian, &byteOrderBytes); err != nil {
		return h, err
	}
	switch byteOrderBytes {
	case littleEndian:
		h.byteOrder = binary.LittleEndian
	case bigEndian:
		h.byteOrder = binary.BigEndian
	default:
		return h, errors.New("invalid byte order")
	}

	var identifier uint16
	if err := binary.Read(r, h.byteOrder, &identifier); err != nil {
		return h, err
	}

	switch identifier {
	case tiffIdentifier:
		// Standard TIFF, 32-bit offsets.
		h.isBigTIFF = false
		var offset32 uint32
		if err := binary.Read(r, h.byteOrder, &offset32); err != nil {
			return h, err
		}
		h.ifdOffset = uint64(offset32)
	case bigTiffIdentifier:
		// BigTIFF, 64-bit offsets for files larger than 4GB.
		h.isBigTIFF = true

		var bytesize, reserved uint16
		if err := binary.Read(r, h.byteOrder, &bytesize); err != nil {
			return h, err
		}
		if bytesize != bigTiffBytesize {
			return h, errors.New("invalid BigTIFF bytesize")
		}
		if err := binary.Read(r, h.byteOrder, &reserved); err != nil {
			return h, err
		}
		if err := binary.Read(r, h.byteOrder, &h.ifdOffset); err != nil {
			return h, err
		}
	default:
		return h, fmt.Errorf("invalid tiff identifier: %d", identifier)
	}
	return h, nil
}

func readTags(r io.ReadSeeker) (Tags, head, error) {
	tags := make(Tags)
	h, err := readHeader(r)
	if err != nil {
		return nil, h, err
	}

	// Only the first IFD carries the full-resolution image; subsequent
	// IFDs in a COG are overviews and are skipped.
	ifdOffset := h.ifdOffset
	if ifdOffset == 0 {
		return nil, h, errors.New("file contains no IFDs")
	}

	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return nil, h, err
	}

	var numEntries uint64
	if h.isBigTIFF {
		if err := binary.Read(r, h.byteOrder, &numEntries); err != nil {
			return nil, h, err
		}
	} else {
		var numEntries16 uint16
		if err := binary.Read(r, h.byteOrder, &numEntries16); err != nil {
			return nil, h, err
		}
		numEntries = uint64(numEntries16)
	}

	entryLen := 12
	if h.isBigTIFF {
		entryLen = 20
	}
	ifdBlock := make([]byte, entryLen*int(numEntries))
	if _, err := io.ReadFull(r, ifdBlock); err != nil {
		return nil, h, fmt.Errorf("failed to read IFD block: %w", err)
	}
	ifdReader := bytes.NewReader(ifdBlock)

	for i := uint64(0); i < numEntries; i++ {
		var entry iFDEntry
		var tag, ftype uint16
		binary.Read(ifdReader, h.byteOrder, &tag)
		binary.Read(ifdReader, h.byteOrder, &ftype)
		entry.Tag = Tag(tag)
		entry.FType = fieldType(ftype)
		if entry.FType.bytes() == 0 {
			slog.Warn("unrecognized tag, skipping", "tag", entry.Tag, "field_type", ftype)
			ifdReader.Seek(int64(entryLen-4), io.SeekCurrent)
			continue
		}

		offsetBytes := make([]byte, 8)
		if h.isBigTIFF {
			binary.Read(ifdReader, h.byteOrder, &entry.Count)
			ifdReader.Read(offsetBytes)
			entry.ValueOffset = h.byteOrder.Uint64(offsetBytes)
		} else {
			var count32, offset32 uint32
			binary.Read(ifdReader, h.byteOrder, &count32)
			binary.Read(ifdReader, h.byteOrder, &offset32)
			entry.Count = uint64(count32)
			entry.ValueOffset = uint64(offset32)
			// For inline data compatibility, put the 4-byte value/offset
			// into the 8-byte slice.
			h.byteOrder.PutUint32(offsetBytes, offset32)
		}

		inlineDataSize := uint64(4)
		if h.isBigTIFF {
			inlineDataSize = 8
		}
		if totalBytes := uint64(entry.FType.bytes()) * entry.Count; totalBytes <= inlineDataSize {
			entry.ValueBytes = offsetBytes[:totalBytes]
		}

		tagvalue, err := entry.value(r, h.byteOrder)
		if err != nil {
			return nil, h, err
		}
		tags[entry.Tag] = *tagvalue
	}

	return tags, h, nil
}

func (ifd *iFDEntry) value(r io.ReadSeeker, byteOrder binary.ByteOrder) (*tagData, error) {
	t := tagData{fType: ifd.FType, length: uint32(ifd.Count)}
	var reader io.Reader
	if len(ifd.ValueBytes) > 0 {
		reader = bytes.NewReader(ifd.ValueBytes)
	} else {
		readerAt, ok := r.(io.ReaderAt)
		if !ok {
			return nil, errors.New("reader does not implement io.ReaderAt")
		}
		reader = io.NewSectionReader(readerAt, int64(ifd.ValueOffset), int64(ifd.FType.bytes())*int64(ifd.Count))
	}
	switch ifd.FType {
	case BYTE:
		t.byteData = make([]uint8, ifd.Count)
		if err := binary.Read(reader, byteOrder, &t.byteData); err != nil {
			return nil, err
		}
	case ASCII:
		p := make([]uint8, ifd.Count)
		if err := binary.Read(reader, byteOrder, p); err != nil {
			return nil, err
		}
		t.asciiData = string(bytes.Trim(p, "\x00"))
	case SHORT:
		t.shortData = make([]uint16, ifd.Count)
		if err := binary.Read(reader, byteOrder, &t.shortData); err != nil {
			return nil, err
		}
	case LONG:
		t.longData = make([]uint32, ifd.Count)
		if err := binary.Read(reader, byteOrder, &t.longData); err != nil {
			return nil, err
		}
	case FLOAT:
		t.floatData = make([]float32, ifd.Count)
		if err := binary.Read(reader, byteOrder, t.floatData); err != nil {
			return nil, err
		}
	case DOUBLE:
		t.doubleData = make([]float64, ifd.Count)
		if err := binary.Read(reader, byteOrder, &t.doubleData); err != nil {
			return nil, err
		}
	case LONG8, IFD8:
		t.uint64Data = make([]uint64, ifd.Count)
		if err := binary.Read(reader, byteOrder, &t.uint64Data); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported type for value reading: %d", ifd.FType)
	}
	return &t, nil
}

// Sample returns the raw stored value at (col, row) for the given
// zero-based band. Samples are chunky-interleaved within a tile. The
// caller is responsible for bounds; out-of-range indices are an error
// here, not a missing value (ValueAt applies that policy).
func (d *Dataset) Sample(col, row, band int) (float64, error) {
	if col < 0 || col >= d.width || row < 0 || row >= d.height {
		return 0, errors.New("pixel lies outside image")
	}
	if band < 0 || band >= d.bands {
		return 0, fmt.Errorf("band %d out of range (raster has %d)", band, d.bands)
	}

	tileX := col / d.tileWidth
	tileY := row / d.tileLength
	tileNum := d.tilesAcross*tileY + tileX

	processedTile, err := d.getTileData(tileNum)
	if err != nil {
		return 0, fmt.Errorf("failed to get data for tile %d: %w", tileNum, err)
	}

	// Kick a non-blocking prefetch of the neighboring tiles; window reads
	// around a resolved pixel frequently cross tile edges.
	prefetchKey := fmt.Sprintf("prefetch-%d", tileNum)
	go d.inflightPrefetch.Do(prefetchKey, func() (interface{}, error) {
		d.prefetchNeighbors(tileNum)
		time.AfterFunc(1*time.Minute, func() {
			d.inflightPrefetch.Forget(prefetchKey)
		})
		return nil, nil
	})

	idI := col % d.tileWidth
	idJ := row % d.tileLength
	sampleIndex := (idJ*d.tileWidth+idI)*d.bands + band

	switch data := processedTile.(type) {
	case []float32:
		if sampleIndex >= len(data) {
			return 0, fmt.Errorf("sample index %d out of tile bounds (%d)", sampleIndex, len(data))
		}
		return float64(data[sampleIndex]), nil
	case []int32:
		if sampleIndex >= len(data) {
			return 0, fmt.Errorf("sample index %d out of tile bounds (%d)", sampleIndex, len(data))
		}
		return float64(data[sampleIndex]), nil
	default:
		return 0, fmt.Errorf("unexpected data type in cache: %T", processedTile)
	}
}

// getTileData retrieves a tile, processes it into a typed slice, and
// caches the result.
func (d *Dataset) getTileData(tileNum int) (any, error) {
	key := strconv.Itoa(tileNum)
	item := d.tileCache.Get(key)
	if item != nil && !item.Expired() {
		return item.Value(), nil
	}

	// On a miss, singleflight ensures only one goroutine fetches and
	// processes the tile while concurrent requests wait for the result.
	v, err, _ := d.inflightData.Do(key, func() (interface{}, error) {
		decompressedBytes, fetchErr := d.fetchAndDecompressTile(tileNum)
		if fetchErr != nil {
			return nil, fetchErr
		}

		var processedData any
		var processingErr error

		switch d.sampleFormat {
		case SampleFormatFloat:
			if d.bitsPerSample != 32 {
				return nil, fmt.Errorf("unsupported bit depth for float: %d", d.bitsPerSample)
			}
			tileData := make([]float32, len(decompressedBytes)/4)
			if err := binary.Read(bytes.NewReader(decompressedBytes), d.byteOrder, &tileData); err != nil {
				processingErr = err
			} else {
				processedData = tileData
			}
		case SampleFormatInt:
			if d.bitsPerSample != 32 {
				return nil, fmt.Errorf("unsupported bit depth for int: %d", d.bitsPerSample)
			}
			tileData := make([]int32, len(decompressedBytes)/4)
			if err := binary.Read(bytes.NewReader(decompressedBytes), d.byteOrder, &tileData); err != nil {
				processingErr = err
			} else {
				if d.predictor == PredictorHorizontal {
					undoHorizontalPredictionForInt32(tileData, d.tileWidth*d.bands, d.tileLength, d.bands)
				}
				processedData = tileData
			}
		default:
			processingErr = fmt.Errorf("unsupported sample format (SampleFormat: %d, BitsPerSample: %d)", d.sampleFormat, d.bitsPerSample)
		}

		if processingErr != nil {
			return nil, processingErr
		}

		d.tileCache.Set(key, processedData, 10*time.Minute)
		return processedData, nil
	})

	if err != nil {
		return nil, err
	}
	return v, nil
}

// fetchAndDecompressTile performs the I/O to read and decompress a single
// tile.
func (d *Dataset) fetchAndDecompressTile(tileNum int) ([]byte, error) {
	if tileNum < 0 || uint64(tileNum) >= uint64(len(d.tileOffsets)) {
		return nil, fmt.Errorf("tile index %d out of bounds", tileNum)
	}

	offset := d.tileOffsets[tileNum]
	byteCount := d.tileByteCounts[tileNum]
	tileBytes := make([]byte, byteCount)

	readerAt, ok := d.reader.(io.ReaderAt)
	if !ok {
		return nil, errors.New("reader does not support ReadAt for tile fetching")
	}
	if _, err := readerAt.ReadAt(tileBytes, int64(offset)); err != nil {
		return nil, fmt.Errorf("failed to read tile %d from source: %w", tileNum, err)
	}

	switch d.compression {
	case Uncompressed:
		return tileBytes, nil
	case DEFLATE, oldDEFLATE:
		z, err := zlib.NewReader(bytes.NewReader(tileBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader for tile: %w", err)
		}
		defer z.Close()
		decompressed, err := io.ReadAll(z)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress tile data: %w", err)
		}
		return decompressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %d", d.compression)
	}
}

// prefetchNeighbors fetches the eight neighboring tiles into the cache. It
// does not trigger further prefetching.
func (d *Dataset) prefetchNeighbors(tileNum int) {
	if d.tilesAcross == 0 {
		return
	}

	tileY := tileNum / d.tilesAcross
	tileX := tileNum % d.tilesAcross
	totalRows := (d.height + d.tileLength - 1) / d.tileLength

	var wg sync.WaitGroup
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			if i == 0 && j == 0 {
				continue
			}
			neighborX := tileX + i
			neighborY := tileY + j
			if neighborX >= 0 && neighborX < d.tilesAcross && neighborY >= 0 && neighborY < totalRows {
				neighborTileNum := neighborY*d.tilesAcross + neighborX
				wg.Add(1)
				go func(num int) {
					defer wg.Done()
					// Populate the cache; failures surface on the demand path.
					d.getTileData(num)
				}(neighborTileNum)
			}
		}
	}
	wg.Wait()
}

func (d *Dataset) getUint(tag Tag) (uint64, bool) {
	t, ok := d.tags[tag]
	if !ok {
		return 0, false
	}
	if t.fType == SHORT && len(t.shortData) > 0 {
		return uint64(t.shortData[0]), true
	}
	if t.fType == LONG && len(t.longData) > 0 {
		return uint64(t.longData[0]), true
	}
	return 0, false
}

func (d *Dataset) get64bitSlice(tag Tag) ([]uint64, bool) {
	t, ok := d.tags[tag]
	if !ok {
		return nil, false
	}
	if t.fType == LONG8 || t.fType == IFD8 {
		return t.uint64Data, true
	}
	if t.fType == LONG {
		res := make([]uint64, len(t.longData))
		for i, v := range t.longData {
			res[i] = uint64(v)
		}
		return res, true
	}
	return nil, false
}

func (td tagData) doubleDataValue() ([]float64, bool) {
	if td.fType == DOUBLE {
		return td.doubleData, true
	}
	return nil, false
}

// undoHorizontalPredictionForInt32 reverses the horizontal differencing
// predictor. It must be called on the int32 slice after decompression.
// rowWidth is the number of samples per tile row (tile width times bands).
// Differencing is per component: each sample accumulates against the same
// band of the previous pixel, so the stride is the band count.
func undoHorizontalPredictionForInt32(data []int32, rowWidth, tileHeight, bands int) {
	if rowWidth == 0 || tileHeight == 0 || bands < 1 {
		return
	}
	for y := 0; y < tileHeight; y++ {
		rowStart := y * rowWidth
		if rowStart+rowWidth > len(data) {
			break
		}
		for x := bands; x < rowWidth; x++ {
			data[rowStart+x] += data[rowStart+x-bands]
		}
	}
}

var _ Source = (*Dataset)(nil)

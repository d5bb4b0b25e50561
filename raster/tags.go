package raster

// TIFF header magic values.
const (
	littleEndian = 0x4949 // "II"
	bigEndian    = 0x4D4D // "MM"

	tiffIdentifier    = 42
	bigTiffIdentifier = 43
	bigTiffBytesize   = 8
)

// fieldType is the data type of an IFD entry.
type fieldType uint16

const (
	BYTE      fieldType = 1
	ASCII     fieldType = 2
	SHORT     fieldType = 3
	LONG      fieldType = 4
	RATIONAL  fieldType = 5
	SBYTE     fieldType = 6
	UNDEFINED fieldType = 7
	SSHORT    fieldType = 8
	SLONG     fieldType = 9
	SRATIONAL fieldType = 10
	FLOAT     fieldType = 11
	DOUBLE    fieldType = 12
	LONG8     fieldType = 16
	SLONG8    fieldType = 17
	IFD8      fieldType = 18
)

// Field type sizes in bytes.
const (
	zeroByte  = 0
	oneByte   = 1
	twoByte   = 2
	fourByte  = 4
	eightByte = 8
)

// Tags read by this package. Baseline TIFF tags, the GeoTIFF georeferencing
// tags (ModelPixelScale, ModelTiepoint, GeoKeyDirectory) and the GDAL
// nodata extension tag.
const (
	ImageWidth      Tag = 256
	ImageLength     Tag = 257
	BitsPerSample   Tag = 258
	Compression     Tag = 259
	SamplesPerPixel Tag = 277
	Predictor       Tag = 317
	TileWidth       Tag = 322
	TileLength      Tag = 323
	TileOffsets     Tag = 324
	TileByteCounts  Tag = 325
	SampleFormat    Tag = 339
	ModelPixelScale Tag = 33550
	ModelTiepoint   Tag = 33922
	GeoKeyDirectory Tag = 34735
	GDALNoData      Tag = 42113
)

// GeoKeyDirectory key IDs.
const (
	geoKeyGeographicCS = 2048
	geoKeyProjectedCS  = 3072
)

// SampleFormat values.
const (
	SampleFormatUint  = 1
	SampleFormatInt   = 2
	SampleFormatFloat = 3
)

// Compression values. DEFLATE is the Adobe-style code; oldDEFLATE is the
// deprecated code some writers still emit for the same codec.
const (
	Uncompressed = 1
	DEFLATE      = 8
	oldDEFLATE   = 32946
)

// Predictor values.
const (
	PredictorNone       = 1
	PredictorHorizontal = 2
)

var tagToLabel = map[Tag]string{
	ImageWidth:      "ImageWidth",
	ImageLength:     "ImageLength",
	BitsPerSample:   "BitsPerSample",
	Compression:     "Compression",
	SamplesPerPixel: "SamplesPerPixel",
	Predictor:       "Predictor",
	TileWidth:       "TileWidth",
	TileLength:      "TileLength",
	TileOffsets:     "TileOffsets",
	TileByteCounts:  "TileByteCounts",
	SampleFormat:    "SampleFormat",
	ModelPixelScale: "ModelPixelScale",
	ModelTiepoint:   "ModelTiepoint",
	GeoKeyDirectory: "GeoKeyDirectory",
	GDALNoData:      "GDALNoData",
}

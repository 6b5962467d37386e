package exify

import (
	"time"

	"github.com/jrm-1535/exify/internal/jpeg"
)

// Optional holds a value that may be missing from the file.
type Optional[T any] struct {
	value T
	valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, valid: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.valid
}

// Valid reports whether the value is present.
func (o Optional[T]) Valid() bool {
	return o.valid
}

// Record is the metadata of one JPEG file. Numeric fields at zero were not
// found in the file; fields for which zero is a meaningful reading are
// Optional.
type Record struct {
	FileName string
	FileSize int64
	FileTime time.Time

	Width, Height uint
	IsColor       Optional[bool] // absent when the file has no frame header
	Process       uint           // SOFn marker code, 0xc0..0xcf

	Make     string
	Model    string
	DateTime string

	Orientation          Optional[int]
	FlashUsed            Optional[int] // EXIF flash bitfield
	FocalLength          float64       // mm
	FocalLength35mmEquiv int           // mm
	DigitalZoomRatio     float64       // meaningful above 1
	CCDWidth             float64       // mm
	ExposureTime         float64       // seconds
	ApertureFNumber      float64
	Distance             float64 // meters, negative for infinity
	ISOEquivalent        int
	ExposureBias         float64
	WhiteBalance         Optional[int]
	LightSource          int
	MeteringMode         Optional[int]
	ExposureProgram      int
	ExposureMode         int
	DistanceRange        int

	GPSInfoPresent bool
	GPSLatitude    string
	GPSLongitude   string
	GPSAltitude    string

	QualityGuess int

	Comments          []byte
	CommentWidthChars int // UTF-16LE units in Comments, 0 for narrow text

	ThumbnailOffset uint32 // relative to the TIFF header of the EXIF segment
	ThumbnailSize   uint32
}

// sentinel for fields where 0 is a valid reading
const unset = -1

func optionalCode(v int) Optional[int] {
	if v == unset {
		return Optional[int]{}
	}
	return Some(v)
}

// newRecord converts the decoder output, replacing sentinels with Optional.
func newRecord(info *jpeg.ImageInfo) *Record {
	rec := &Record{
		FileName:             info.FileName,
		FileSize:             info.FileSize,
		FileTime:             info.FileTime,
		Width:                info.Width,
		Height:               info.Height,
		Process:              info.Process,
		Make:                 info.Make,
		Model:                info.Model,
		DateTime:             info.DateTime,
		Orientation:          optionalCode(info.Orientation),
		FlashUsed:            optionalCode(info.FlashUsed),
		FocalLength:          info.FocalLength,
		FocalLength35mmEquiv: info.FocalLength35mmEquiv,
		DigitalZoomRatio:     info.DigitalZoomRatio,
		CCDWidth:             info.CCDWidth,
		ExposureTime:         info.ExposureTime,
		ApertureFNumber:      info.ApertureFNumber,
		Distance:             info.Distance,
		ISOEquivalent:        info.ISOEquivalent,
		ExposureBias:         info.ExposureBias,
		WhiteBalance:         optionalCode(info.WhiteBalance),
		LightSource:          info.LightSource,
		MeteringMode:         optionalCode(info.MeteringMode),
		ExposureProgram:      info.ExposureProgram,
		ExposureMode:         info.ExposureMode,
		DistanceRange:        info.DistanceRange,
		GPSInfoPresent:       info.GPSInfoPresent,
		GPSLatitude:          info.GPSLatitude,
		GPSLongitude:         info.GPSLongitude,
		GPSAltitude:          info.GPSAltitude,
		QualityGuess:         info.QualityGuess,
		Comments:             info.Comments,
		CommentWidthChars:    info.CommentWidthChars,
		ThumbnailOffset:      info.ThumbnailOffset,
		ThumbnailSize:        info.ThumbnailSize,
	}
	if info.Process != 0 {
		rec.IsColor = Some(info.IsColor != 0)
	}
	return rec
}

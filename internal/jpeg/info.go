package jpeg

import "time"

// ImageInfo is the record filled by Parse. Numeric fields left at zero were
// not found in the file. The caller presets Orientation, FlashUsed,
// MeteringMode and WhiteBalance to -1 since 0 is a valid reading for them.
type ImageInfo struct {
	FileName string
	FileSize int64
	FileTime time.Time

	Width, Height uint // from the last SOFn
	IsColor       int  // 1 if the frame has 3 components
	Process       uint // SOFn marker low byte (0xc0..0xcf), 0 if no frame

	Make     string
	Model    string
	DateTime string

	Orientation          int
	FlashUsed            int
	FocalLength          float64 // mm
	FocalLength35mmEquiv int     // mm
	DigitalZoomRatio     float64
	CCDWidth             float64 // mm
	ExposureTime         float64 // seconds
	ApertureFNumber      float64
	Distance             float64 // meters, negative for infinity
	ISOEquivalent        int
	ExposureBias         float64
	WhiteBalance         int
	LightSource          int
	MeteringMode         int
	ExposureProgram      int
	ExposureMode         int
	DistanceRange        int

	GPSInfoPresent bool
	GPSLatitude    string
	GPSLongitude   string
	GPSAltitude    string

	QualityGuess int

	Comments          []byte
	CommentWidthChars int // number of UTF-16LE units in Comments, 0 for narrow text

	ThumbnailOffset uint32 // relative to the TIFF header in the EXIF section
	ThumbnailSize   uint32
}

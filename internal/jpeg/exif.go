package jpeg

// support for the EXIF attributes carried in APP1

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifAttributes wraps the decoded tags with lookups that report absence
// instead of errors.
type exifAttributes struct {
	x *exif.Exif
}

func (ea exifAttributes) tag(name exif.FieldName) *tiff.Tag {
	t, err := ea.x.Get(name)
	if err != nil {
		return nil
	}
	return t
}

func (ea exifAttributes) has(name exif.FieldName) bool {
	return ea.tag(name) != nil
}

func (ea exifAttributes) str(name exif.FieldName) string {
	t := ea.tag(name)
	if t == nil {
		return ""
	}
	s, err := t.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(s, "\x00 ")
}

func (ea exifAttributes) integer(name exif.FieldName) (int, bool) {
	t := ea.tag(name)
	if t == nil || t.Count == 0 {
		return 0, false
	}
	switch t.Format() {
	case tiff.IntVal:
		v, err := t.Int(0)
		return v, err == nil
	case tiff.RatVal, tiff.FloatVal:
		f, ok := tagFloat(t, 0)
		return int(f), ok
	}
	return 0, false
}

func (ea exifAttributes) float(name exif.FieldName) (float64, bool) {
	t := ea.tag(name)
	if t == nil || t.Count == 0 {
		return 0, false
	}
	return tagFloat(t, 0)
}

// tagFloat converts the i'th value of any numeric tag. A rational with a zero
// denominator converts to 0.
func tagFloat(t *tiff.Tag, i int) (float64, bool) {
	switch t.Format() {
	case tiff.RatVal:
		num, den, err := t.Rat2(i)
		if err != nil {
			return 0, false
		}
		if den == 0 {
			return 0, true
		}
		return float64(num) / float64(den), true
	case tiff.IntVal:
		v, err := t.Int64(i)
		return float64(v), err == nil
	case tiff.FloatVal:
		v, err := t.Float(i)
		return v, err == nil
	}
	return 0, false
}

// focal plane resolution unit codes to millimeters
func focalPlaneUnits(code int) float64 {
	switch code {
	case 1, 2: // inch; 2 is documented as meter but cameras write inches
		return 25.4
	case 3: // centimeter
		return 10
	case 4: // millimeter
		return 1
	case 5: // micrometer
		return 0.001
	}
	return 0
}

const subjectDistanceInfinity = 0xffffffff

// processExif decodes the TIFF structure that follows the EXIF header and
// stores the attributes of interest in the record.
func (jpg *Desc) processExif(tiffData []byte) error {
	x, err := exif.Decode(bytes.NewReader(tiffData))
	if err != nil {
		if x == nil || exif.IsCriticalError(err) {
			return jpgForwardError("processExif", err)
		}
		jpg.warn("incomplete EXIF data", slog.String("error", err.Error()))
	}
	ea := exifAttributes{x}
	info := jpg.info

	info.Make = ea.str(exif.Make)
	info.Model = ea.str(exif.Model)
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime, exif.DateTimeDigitized} {
		if info.DateTime = ea.str(name); info.DateTime != "" {
			break
		}
	}

	if v, ok := ea.integer(exif.Orientation); ok {
		if v < 0 || v > 8 {
			jpg.warn("undefined rotation value", slog.Int("orientation", v))
		}
		info.Orientation = v
	}
	if v, ok := ea.integer(exif.Flash); ok {
		info.FlashUsed = v
	}
	if v, ok := ea.integer(exif.WhiteBalance); ok {
		info.WhiteBalance = v
	}
	if v, ok := ea.integer(exif.MeteringMode); ok {
		info.MeteringMode = v
	}
	info.LightSource, _ = ea.integer(exif.LightSource)
	info.ExposureProgram, _ = ea.integer(exif.ExposureProgram)
	info.ExposureMode, _ = ea.integer(exif.ExposureMode)
	info.DistanceRange, _ = ea.integer(exif.SubjectDistanceRange)

	info.FocalLength, _ = ea.float(exif.FocalLength)
	info.FocalLength35mmEquiv, _ = ea.integer(exif.FocalLengthIn35mmFilm)
	info.DigitalZoomRatio, _ = ea.float(exif.DigitalZoomRatio)
	info.ExposureBias, _ = ea.float(exif.ExposureBiasValue)

	info.ExposureTime, _ = ea.float(exif.ExposureTime)
	if info.ExposureTime == 0 {
		if v, ok := ea.float(exif.ShutterSpeedValue); ok {
			info.ExposureTime = math.Exp2(-v)
		}
	}

	info.ApertureFNumber, _ = ea.float(exif.FNumber)
	if info.ApertureFNumber == 0 {
		for _, name := range []exif.FieldName{exif.ApertureValue, exif.MaxApertureValue} {
			if v, ok := ea.float(name); ok {
				info.ApertureFNumber = math.Exp2(v / 2)
				break
			}
		}
	}

	if t := ea.tag(exif.SubjectDistance); t != nil && t.Count > 0 {
		if num, _, err := t.Rat2(0); err == nil && num == subjectDistanceInfinity {
			info.Distance = -1
		} else {
			info.Distance, _ = tagFloat(t, 0)
		}
	}

	if iso, ok := ea.integer(exif.ISOSpeedRatings); ok {
		if iso < 50 { // some older cameras store the value divided by 200
			iso *= 200
		}
		info.ISOEquivalent = iso
	}

	jpg.sensorWidth(ea)

	if len(info.Comments) == 0 {
		if t := ea.tag(exif.UserComment); t != nil {
			info.Comments, info.CommentWidthChars = userComment(t.Val, x.Tiff.Order)
		}
	}

	if ea.has(exif.GPSInfoIFDPointer) {
		info.GPSInfoPresent = true
		info.GPSLatitude = formatGPSCoordinate(ea.str(exif.GPSLatitudeRef), ea.tag(exif.GPSLatitude))
		info.GPSLongitude = formatGPSCoordinate(ea.str(exif.GPSLongitudeRef), ea.tag(exif.GPSLongitude))
		altRef, _ := ea.integer(exif.GPSAltitudeRef)
		info.GPSAltitude = formatGPSAltitude(altRef, ea.tag(exif.GPSAltitude))
	}

	if v, ok := ea.integer(exif.ThumbJPEGInterchangeFormat); ok && v > 0 {
		info.ThumbnailOffset = uint32(v)
	}
	if v, ok := ea.integer(exif.ThumbJPEGInterchangeFormatLength); ok && v > 0 {
		info.ThumbnailSize = uint32(v)
	}
	return nil
}

// sensorWidth computes the CCD width from the focal plane resolution and,
// when the camera did not record it, the 35mm equivalent focal length.
func (jpg *Desc) sensorWidth(ea exifAttributes) {
	info := jpg.info
	width, _ := ea.integer(exif.PixelXDimension)
	if h, _ := ea.integer(exif.PixelYDimension); h > width {
		width = h // portrait pictures
	}
	xRes, _ := ea.float(exif.FocalPlaneXResolution)
	unitCode, _ := ea.integer(exif.FocalPlaneResolutionUnit)
	units := focalPlaneUnits(unitCode)
	if xRes == 0 || width == 0 || units == 0 {
		return
	}
	info.CCDWidth = float64(width) * units / xRes
	if info.FocalLength != 0 && info.FocalLength35mmEquiv == 0 && info.CCDWidth > 0 {
		info.FocalLength35mmEquiv = int(info.FocalLength/info.CCDWidth*36 + 0.5)
	}
}

// userComment interprets the 8-byte character code that starts an EXIF user
// comment. UNICODE text is returned as UTF-16LE along with its length in
// units; any other text is returned as is.
func userComment(val []byte, order binary.ByteOrder) ([]byte, int) {
	if len(val) > maxCommentSize-1 {
		val = val[:maxCommentSize-1]
	}
	if len(val) > 8 && bytes.HasPrefix(val, []byte("UNICODE\x00")) {
		units := (len(val) - 8) / 2
		text := make([]byte, units*2)
		for i := 0; i < units; i++ {
			binary.LittleEndian.PutUint16(text[2*i:], order.Uint16(val[8+2*i:]))
		}
		for units > 0 {
			u := binary.LittleEndian.Uint16(text[2*units-2:])
			if u != 0 && u != ' ' {
				break
			}
			units--
		}
		if units == 0 {
			return nil, 0
		}
		return text[:units*2], units
	}

	val = bytes.TrimRight(val, " ")
	if len(val) > 5 && bytes.HasPrefix(val, []byte("ASCII")) {
		for i := 5; i < 10 && i < len(val); i++ {
			if c := val[i]; c != 0 && c != ' ' {
				return append([]byte(nil), val[i:]...), 0
			}
		}
		return nil, 0
	}
	return append([]byte(nil), val...), 0
}

package exify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/unicode"
)

// Entry is one labelled value of the metadata description.
type Entry struct {
	Label string
	Value string
}

// Info is the ordered description of a Record, as produced by Describe.
type Info []Entry

// Get returns the value for label and whether it was emitted.
func (inf Info) Get(label string) (string, bool) {
	for _, e := range inf {
		if e.Label == label {
			return e.Value, true
		}
	}
	return "", false
}

// Labels returns the emitted labels in order.
func (inf Info) Labels() []string {
	labels := make([]string, len(inf))
	for i, e := range inf {
		labels[i] = e.Label
	}
	return labels
}

// MarshalJSON encodes Info as a JSON object whose keys keep the entry order.
func (inf Info) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range inf {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type describer struct {
	info Info
}

// add appends an entry, unless value is empty.
func (d *describer) add(label, value string) {
	if value == "" {
		return
	}
	d.info = append(d.info, Entry{Label: label, Value: value})
}

func (d *describer) addf(label, f string, a ...any) {
	d.add(label, fmt.Sprintf(f, a...))
}

// addCode appends the table name for code, or nothing if code is unmatched.
func (d *describer) addCode(label string, t codeTable, code int) {
	if name, ok := t.lookup(code); ok {
		d.add(label, name)
	}
}

// LabelFileName labels the name of the described file.
const LabelFileName = "File Name"

// Describe turns a Record into labelled human readable values. Fields that
// are absent, zero or unmatched are left out; Describe never fails.
func Describe(rec *Record) Info {
	d := &describer{info: make(Info, 0, 32)}

	d.add(LabelFileName, rec.FileName)
	d.add("File Size", strconv.FormatInt(rec.FileSize, 10))
	d.add("Camera Make", rec.Make)
	d.add("Camera Model", rec.Model)
	d.add("Date/Time", rec.DateTime)

	d.addf("Resolution", "%d x %d", rec.Width, rec.Height)
	d.addf("Width", "%d", rec.Width)
	d.addf("Height", "%d", rec.Height)

	if o, ok := rec.Orientation.Get(); ok {
		d.addCode("Orientation", orientationNames, o)
	}
	if color, ok := rec.IsColor.Get(); ok && !color {
		d.add("Color/B&W", "Black and White")
	}
	if flash, ok := rec.FlashUsed.Get(); ok && flash >= 0 {
		d.add("Flash Used", flashText(flash))
	}

	if rec.FocalLength != 0 {
		v := fmt.Sprintf("%4.1fmm", rec.FocalLength)
		if rec.FocalLength35mmEquiv != 0 {
			v += fmt.Sprintf(" (35mm equivalent: %dmm)", rec.FocalLength35mmEquiv)
		}
		d.add("Focal Length", v)
	}
	if rec.DigitalZoomRatio > 1 {
		d.addf("Digital Zoom", "%1.3fx", rec.DigitalZoomRatio)
	}
	if rec.CCDWidth != 0 {
		d.addf("CCD Width", "%4.2fmm", rec.CCDWidth)
	}
	if rec.ExposureTime != 0 {
		d.add("Exposure Time", exposureText(rec.ExposureTime))
	}
	if rec.ApertureFNumber != 0 {
		d.addf("Aperture", "f/%3.1f", rec.ApertureFNumber)
	}
	if rec.Distance != 0 {
		if rec.Distance < 0 {
			d.add("Focus Distance", "Infinite")
		} else {
			d.addf("Focus Distance", "%4.2fm", rec.Distance)
		}
	}
	if rec.ISOEquivalent != 0 {
		d.addf("ISO Equivalent", "%2d", rec.ISOEquivalent)
	}
	if rec.ExposureBias != 0 {
		d.addf("Exposure Bias", "%4.2f", rec.ExposureBias)
	}

	// an unknown white balance is reported as Manual
	if wb, ok := rec.WhiteBalance.Get(); ok && wb == 0 {
		d.add("White Balance", "Auto")
	} else {
		d.add("White Balance", "Manual")
	}
	d.addCode("Light Source", lightSourceNames, rec.LightSource)
	if mm, ok := rec.MeteringMode.Get(); ok && mm > 0 {
		if name, ok := meteringModeNames.lookup(mm); ok {
			d.add("Metering Mode", name)
		} else {
			d.addf("Metering Mode", "Unknown (%d)", mm)
		}
	}
	if rec.ExposureProgram != 0 {
		d.addCode("Exposure", exposureProgramNames, rec.ExposureProgram)
	}
	if rec.ExposureMode != 0 {
		d.addCode("Exposure Mode", exposureModeNames, rec.ExposureMode)
	}
	if rec.DistanceRange != 0 {
		d.addCode("Focus Range", distanceRangeNames, rec.DistanceRange)
	}

	if name, ok := processNames.lookup(int(rec.Process)); ok {
		d.add("JPEG Process", name)
	} else {
		d.add("JPEG Process", "Unknown")
	}

	if rec.GPSInfoPresent {
		d.add("GPS Latitude", rec.GPSLatitude)
		d.add("GPS Longitude", rec.GPSLongitude)
		d.add("GPS Altitude", rec.GPSAltitude)
	}
	if rec.QualityGuess != 0 {
		d.addf("JPEG Quality", "%d", rec.QualityGuess)
	}
	if len(rec.Comments) > 0 && rec.Comments[0] != 0 {
		d.add("Comments", commentText(rec.Comments, rec.CommentWidthChars))
	}
	return d.info
}

func flashText(flash int) string {
	if flash&1 != 0 {
		if name, ok := flashFiredNames.lookup(flash); ok {
			return name
		}
		return "Yes"
	}
	if flash == flashAutoNotFired {
		return "No (auto)"
	}
	return "No"
}

func exposureText(t float64) string {
	f := "%5.3f s"
	if t < 0.010 {
		f = "%6.4f s"
	}
	if t > 0.5 {
		return fmt.Sprintf(f, t)
	}
	if n, ok := reciprocal(t); ok {
		return fmt.Sprintf(f+" (1/%d)", t, n)
	}
	return fmt.Sprintf(f, t)
}

// reciprocal rounds 1/t, reporting false when the result is not a positive
// int64.
func reciprocal(t float64) (int64, bool) {
	r := math.Round(1 / t)
	if math.IsNaN(r) || r < 1 || r >= math.MaxInt64 {
		return 0, false
	}
	return int64(r), true
}

// commentText decodes wideChars UTF-16LE units when wideChars is set, or the
// narrow text up to the first NUL.
func commentText(c []byte, wideChars int) string {
	if wideChars <= 0 {
		if i := bytes.IndexByte(c, 0); i >= 0 {
			c = c[:i]
		}
		return string(c)
	}
	n := wideChars * 2
	if n > len(c) {
		n = len(c) &^ 1
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	text, err := dec.Bytes(c[:n])
	if err != nil {
		return ""
	}
	return string(bytes.TrimRight(text, "\x00"))
}

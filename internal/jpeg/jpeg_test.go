package jpeg

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/jrm-1535/exify/internal/jpegtest"
)

// sampleTIFF returns the EXIF data of a typical camera picture.
func sampleTIFF(order binary.ByteOrder) *jpegtest.TIFF {
	t := jpegtest.NewTIFF(order)
	t.IFD0 = []jpegtest.Tag{
		t.ASCII(0x010f, "Canon"),
		t.ASCII(0x0110, "Canon EOS 5D"),
		t.Short(0x0112, 6),
		t.ASCII(0x0132, "2020:01:01 00:00:00"),
	}
	t.Exif = []jpegtest.Tag{
		t.Rational(0x829a, 1, 250),
		t.Rational(0x829d, 28, 10),
		t.Short(0x8822, 2),
		t.Short(0x8827, 100),
		t.ASCII(0x9003, "2019:07:04 12:30:00"),
		t.SRational(0x9204, -1, 3),
		t.Rational(0x9206, 0xffffffff, 1),
		t.Short(0x9207, 5),
		t.Short(0x9208, 1),
		t.Short(0x9209, 0x19),
		t.Rational(0x920a, 50, 1),
		t.Undefined(0x9286, []byte("ASCII\x00\x00\x00hello exif")),
		t.Long(0xa002, 4000),
		t.Long(0xa003, 3000),
		t.Rational(0xa20e, 4000, 36),
		t.Short(0xa210, 4),
		t.Short(0xa402, 1),
		t.Short(0xa403, 0),
		t.Rational(0xa404, 2, 1),
		t.Short(0xa40c, 2),
	}
	t.GPS = []jpegtest.Tag{
		t.ASCII(1, "N"),
		t.Rational(2, 37, 1, 48, 1, 3025, 100),
		t.ASCII(3, "W"),
		t.Rational(4, 122, 1, 25, 1, 0, 1),
		t.Byte(5, 1),
		t.Rational(6, 1234, 10),
	}
	t.Thumbnail = []byte{0xff, 0xd8, 1, 2, 3, 0xff, 0xd9}
	return t
}

func stdTable(scale uint16) [64]byte {
	var v [64]byte
	for i, q := range stdLuminanceQuantization {
		v[i] = byte(q * scale)
	}
	return v
}

func newInfo() *ImageInfo {
	return &ImageInfo{Orientation: -1, FlashUsed: -1, MeteringMode: -1, WhiteBalance: -1}
}

func sectionNames(d *Desc) []string {
	var names []string
	for _, s := range d.Sections() {
		names = append(names, s.Name)
	}
	return names
}

func TestParse_Metadata(t *testing.T) {
	data := jpegtest.JPEG(
		jpegtest.JFIF(),
		jpegtest.EXIF(sampleTIFF(binary.LittleEndian).Bytes()),
		jpegtest.DQT(0, stdTable(1)),
		jpegtest.SOF(0xc2, 640, 480, 3),
		jpegtest.Scan(),
	)
	info := newInfo()
	d, err := Parse(data, info, ReadMetadata, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.IsComplete() {
		t.Error("IsComplete = true after a metadata only walk")
	}
	want := []string{"JFIF", "EXIF", "DQT", "SOF2", "SOS"}
	if got := sectionNames(d); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sections = %v, want %v", got, want)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"Make", info.Make, "Canon"},
		{"Model", info.Model, "Canon EOS 5D"},
		{"DateTime", info.DateTime, "2019:07:04 12:30:00"},
		{"Orientation", info.Orientation, 6},
		{"Width", info.Width, uint(640)},
		{"Height", info.Height, uint(480)},
		{"IsColor", info.IsColor, 1},
		{"Process", info.Process, uint(0xc2)},
		{"FlashUsed", info.FlashUsed, 0x19},
		{"MeteringMode", info.MeteringMode, 5},
		{"WhiteBalance", info.WhiteBalance, 0},
		{"LightSource", info.LightSource, 1},
		{"ExposureProgram", info.ExposureProgram, 2},
		{"ExposureMode", info.ExposureMode, 1},
		{"DistanceRange", info.DistanceRange, 2},
		{"ISOEquivalent", info.ISOEquivalent, 100},
		{"FocalLength35mmEquiv", info.FocalLength35mmEquiv, 50},
		{"Distance", info.Distance, -1.0},
		{"QualityGuess", info.QualityGuess, 50},
		{"Comments", string(info.Comments), "hello exif"},
		{"CommentWidthChars", info.CommentWidthChars, 0},
		{"GPSInfoPresent", info.GPSInfoPresent, true},
		{"GPSLatitude", info.GPSLatitude, "N 37d 48m 30.25s"},
		{"GPSLongitude", info.GPSLongitude, "W 122d 25m  0s"},
		{"GPSAltitude", info.GPSAltitude, "-123.40m"},
		{"ThumbnailSize", info.ThumbnailSize, uint32(7)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %#v, want %#v", c.name, c.got, c.want)
		}
	}

	floats := []struct {
		name      string
		got, want float64
	}{
		{"ExposureTime", info.ExposureTime, 0.004},
		{"ApertureFNumber", info.ApertureFNumber, 2.8},
		{"ExposureBias", info.ExposureBias, -1.0 / 3},
		{"FocalLength", info.FocalLength, 50},
		{"DigitalZoomRatio", info.DigitalZoomRatio, 2},
		{"CCDWidth", info.CCDWidth, 36},
	}
	for _, f := range floats {
		if math.Abs(f.got-f.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", f.name, f.got, f.want)
		}
	}

	exif := d.FindSection(SectionEXIF)
	if exif == nil {
		t.Fatal("no EXIF section")
	}
	start := int(info.ThumbnailOffset) + exifTIFFOffset
	thumb := exif.Data[start : start+int(info.ThumbnailSize)]
	if !bytes.Equal(thumb, []byte{0xff, 0xd8, 1, 2, 3, 0xff, 0xd9}) {
		t.Errorf("thumbnail at recorded offset = % x", thumb)
	}
}

func TestParse_BigEndianUnicodeComment(t *testing.T) {
	tf := jpegtest.NewTIFF(binary.BigEndian)
	tf.IFD0 = []jpegtest.Tag{tf.ASCII(0x010f, "NIKON")}
	tf.Exif = []jpegtest.Tag{
		tf.Undefined(0x9286, []byte("UNICODE\x00\x00H\x00i\x00 \x00\x00")),
		tf.Short(0x9207, 0),
	}
	data := jpegtest.JPEG(jpegtest.EXIF(tf.Bytes()), jpegtest.SOF(0xc0, 8, 8, 1), jpegtest.Scan())

	info := newInfo()
	if _, err := Parse(data, info, ReadMetadata, nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if info.Make != "NIKON" {
		t.Errorf("Make = %q", info.Make)
	}
	if !bytes.Equal(info.Comments, []byte("H\x00i\x00")) || info.CommentWidthChars != 2 {
		t.Errorf("Comments = %q (%d chars)", info.Comments, info.CommentWidthChars)
	}
	if info.MeteringMode != 0 {
		t.Errorf("MeteringMode = %d, want 0", info.MeteringMode)
	}
	if info.FlashUsed != -1 || info.WhiteBalance != -1 {
		t.Errorf("sentinels overwritten: flash %d, white balance %d", info.FlashUsed, info.WhiteBalance)
	}
	if info.IsColor != 0 || info.Process != 0xc0 {
		t.Errorf("IsColor = %d, Process = %#x", info.IsColor, info.Process)
	}
	if info.GPSInfoPresent {
		t.Error("GPSInfoPresent without GPS IFD")
	}
}

func TestParse_CommentSegment(t *testing.T) {
	data := jpegtest.JPEG(
		jpegtest.EXIF(sampleTIFF(binary.LittleEndian).Bytes()),
		jpegtest.COM("line 1\r\nline 2\x01"),
		jpegtest.COM("second comment"),
		jpegtest.SOF(0xc0, 8, 8, 3),
		jpegtest.Scan(),
	)
	info := newInfo()
	d, err := Parse(data, info, ReadMetadata, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := string(info.Comments); got != "line 1\nline 2?" {
		t.Errorf("Comments = %q, want the first COM segment", got)
	}
	if got := strings.Join(sectionNames(d), ","); got != "EXIF,COM,COM,SOF0,SOS" {
		t.Errorf("sections = %s", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "not a JPEG file"},
		{"gif", []byte("GIF89a"), "not a JPEG file"},
		{"no image", jpegtest.JPEG(), "no image in jpeg"},
		{"premature end", []byte{0xff, 0xd8, 0xff, 0xe0}, "premature end of data"},
		{"truncated", append([]byte{0xff, 0xd8}, jpegtest.COM("abc")[:6]...), "truncated segment"},
		{"bad length", []byte{0xff, 0xd8, 0xff, 0xfe, 0, 1, 0xff, 0xd9}, "invalid COM segment length"},
		{"restart", []byte{0xff, 0xd8, 0xff, 0xd0, 0xff, 0xd9}, "should not happen"},
		{"not a marker", []byte{0xff, 0xd8, 0x12, 0x34}, "invalid marker"},
		{"short frame", jpegtest.JPEG(jpegtest.Segment(0xc0, []byte{8, 0})), "wrong SOF0 header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data, newInfo(), ReadMetadata, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParse_CorruptExifIsNotFatal(t *testing.T) {
	data := jpegtest.JPEG(
		jpegtest.Segment(0xe1, []byte("Exif\x00\x00garbage")),
		jpegtest.SOF(0xc0, 16, 16, 3),
		jpegtest.Scan(),
	)
	info := newInfo()
	d, err := Parse(data, info, ReadMetadata, &Control{Warn: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.FindSection(SectionEXIF) == nil {
		t.Error("corrupt EXIF section not kept")
	}
	if info.Make != "" || info.Width != 16 {
		t.Errorf("Make = %q, Width = %d", info.Make, info.Width)
	}
}

func TestParse_ApplicationSegments(t *testing.T) {
	tiff := sampleTIFF(binary.LittleEndian).Bytes()
	data := jpegtest.JPEG(
		jpegtest.EXIF(tiff),
		jpegtest.XMP("<x:xmpmeta/>"),
		jpegtest.EXIF(tiff),
		jpegtest.Segment(0xe2, []byte("ICC_PROFILE\x00")),
		jpegtest.SOF(0xc0, 16, 16, 3),
		jpegtest.Scan(),
	)
	d, err := Parse(data, newInfo(), ReadMetadata, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "EXIF,XMP,APP1,APP2,SOF0,SOS"
	if got := strings.Join(sectionNames(d), ","); got != want {
		t.Errorf("sections = %s, want %s", got, want)
	}
}

func TestParse_ReadAllComplete(t *testing.T) {
	minimal := jpegtest.JPEG(jpegtest.SOF(0xc0, 16, 16, 3), jpegtest.Scan())
	for name, data := range map[string][]byte{
		"minimal":       minimal,
		"trailing junk": append(append([]byte{}, minimal...), "junk"...),
	} {
		d, err := Parse(data, newInfo(), ReadAll, nil)
		if err != nil {
			t.Errorf("%s: Parse: %v", name, err)
			continue
		}
		if !d.IsComplete() {
			t.Errorf("%s: IsComplete = false", name)
		}
	}
}

func TestParse_ReadAll(t *testing.T) {
	data := jpegtest.JPEG(
		jpegtest.JFIF(),
		jpegtest.DQT(0, stdTable(2)),
		jpegtest.SOF(0xc0, 16, 16, 3),
		jpegtest.Scan(),
	)
	info := newInfo()
	d, err := Parse(data, info, ReadAll, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !d.IsComplete() {
		t.Error("IsComplete = false")
	}
	if info.QualityGuess != 25 {
		t.Errorf("QualityGuess = %d, want 25", info.QualityGuess)
	}

	var buf bytes.Buffer
	if _, err := d.FormatSegments(&buf); err != nil {
		t.Fatalf("FormatSegments: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"SOI", "APP0   length     16 (JFIF)", "estimated quality 25", "16 lines", "EOI"} {
		if !strings.Contains(out, s) {
			t.Errorf("FormatSegments output lacks %q:\n%s", s, out)
		}
	}

	// missing EOI is tolerated once the scan started
	if _, err := Parse(data[:len(data)-2], newInfo(), ReadAll, nil); err != nil {
		t.Errorf("Parse without EOI: %v", err)
	}
}

func TestEstimateQuality(t *testing.T) {
	var ones [64]uint16
	for i := range ones {
		ones[i] = 1
	}
	half := stdLuminanceQuantization
	for i := range half {
		half[i] = (half[i] + 1) / 2
	}
	tests := []struct {
		name   string
		values [64]uint16
		want   int
	}{
		{"all ones", ones, 100},
		{"standard", stdLuminanceQuantization, 50},
		{"doubled", func() [64]uint16 {
			v := stdLuminanceQuantization
			for i := range v {
				v[i] *= 2
			}
			return v
		}(), 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := estimateQuality(&tt.values, &stdLuminanceQuantization); got != tt.want {
				t.Errorf("estimateQuality = %d, want %d", got, tt.want)
			}
		})
	}
	if got := estimateQuality(&half, &stdLuminanceQuantization); got < 74 || got > 76 {
		t.Errorf("estimateQuality(half) = %d, want about 75", got)
	}
}

func TestUserComment(t *testing.T) {
	tests := []struct {
		name  string
		val   string
		order binary.ByteOrder
		want  string
		units int
	}{
		{"ascii", "ASCII\x00\x00\x00some text  ", binary.LittleEndian, "some text", 0},
		{"ascii padded", "ASCII   \x00\x00", binary.LittleEndian, "", 0},
		{"raw", "plain comment ", binary.LittleEndian, "plain comment", 0},
		{"unicode le", "UNICODE\x00O\x00K\x00", binary.LittleEndian, "O\x00K\x00", 2},
		{"unicode be", "UNICODE\x00\x00O\x00K", binary.BigEndian, "O\x00K\x00", 2},
		{"unicode blank", "UNICODE\x00\x00\x00 \x00", binary.LittleEndian, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, units := userComment([]byte(tt.val), tt.order)
			if string(got) != tt.want || units != tt.units {
				t.Errorf("userComment = %q, %d; want %q, %d", got, units, tt.want, tt.units)
			}
		})
	}
}

func TestGPSDigits(t *testing.T) {
	for den, want := range map[int64]int{0: 0, 1: 0, 10: 1, 100: 2, 1000000: 6, 100000000: 6} {
		if got := gpsDigits(den); got != want {
			t.Errorf("gpsDigits(%d) = %d, want %d", den, got, want)
		}
	}
}

func TestParser_Lifecycle(t *testing.T) {
	data := jpegtest.JPEG(
		jpegtest.EXIF(sampleTIFF(binary.LittleEndian).Bytes()),
		jpegtest.SOF(0xc0, 16, 16, 3),
		jpegtest.Scan(),
	)
	path := jpegtest.WriteFile(t, "sample.jpg", data)

	p := NewParser(nil)
	p.Discard() // nothing decoded yet
	if err := p.Decode(path, newInfo(), ReadMetadata); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.FindSection(SectionEXIF) == nil {
		t.Fatal("EXIF section not found after Decode")
	}
	p.Discard()
	p.Discard()
	if p.FindSection(SectionEXIF) != nil || p.Desc() != nil {
		t.Error("sections still reachable after Discard")
	}

	if err := p.Decode(path+".missing", newInfo(), ReadMetadata); err == nil {
		t.Error("Decode of a missing file succeeded")
	}
	p.Reset()
	if p.Desc() != nil {
		t.Error("Desc not cleared by Reset")
	}
}

func TestFormatExif_NoExif(t *testing.T) {
	data := jpegtest.JPEG(jpegtest.SOF(0xc0, 16, 16, 3), jpegtest.Scan())
	d, err := Parse(data, nil, ReadMetadata, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := d.FormatExif(&bytes.Buffer{}); err == nil {
		t.Error("FormatExif without EXIF succeeded")
	}
}

func TestFormatExif(t *testing.T) {
	tf := jpegtest.NewTIFF(binary.LittleEndian)
	tf.IFD0 = []jpegtest.Tag{tf.ASCII(0x010f, "Canon"), tf.ASCII(0x0110, "Canon EOS 5D")}
	tf.Exif = []jpegtest.Tag{tf.Rational(0x829a, 1, 250), tf.Rational(0x829d, 28, 10)}
	tf.Thumbnail = []byte{0xff, 0xd8, 1, 2, 3, 0xff, 0xd9}
	data := jpegtest.JPEG(jpegtest.EXIF(tf.Bytes()), jpegtest.SOF(0xc0, 16, 16, 3), jpegtest.Scan())

	d, err := Parse(data, newInfo(), ReadAll, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := d.FormatExif(&buf); err != nil {
		t.Fatalf("FormatExif: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Structure: valid\n",
		"Thumbnail: size 7 at offset ",
		"Thumbnail Image data",
		"Make",
		`"Canon"`,
		"ExposureTime",
		`"1/250"`,
		"FNumber",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump lacks %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "ExposureTime") > strings.Index(out, "Make") {
		t.Errorf("tags not sorted by name:\n%s", out)
	}
}

func TestFormatExif_InvalidStructure(t *testing.T) {
	tf := jpegtest.NewTIFF(binary.BigEndian)
	tf.IFD0 = []jpegtest.Tag{tf.ASCII(0x010f, "Canon"), tf.Short(0x9999, 1)}
	tf.Thumbnail = []byte{0xff, 0xd8, 0xff, 0xd9}
	data := jpegtest.JPEG(jpegtest.EXIF(tf.Bytes()), jpegtest.SOF(0xc0, 16, 16, 3), jpegtest.Scan())

	d, err := Parse(data, newInfo(), ReadMetadata, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var buf bytes.Buffer
	if err := d.FormatExif(&buf); err != nil {
		t.Fatalf("FormatExif: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Structure: valid") || !strings.Contains(out, "unknown or unsupported tag") {
		t.Errorf("unknown tag not reported:\n%s", out)
	}
	if !strings.Contains(out, `"Canon"`) {
		t.Errorf("tags missing after a failed check:\n%s", out)
	}
}

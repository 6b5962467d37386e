// Package jpegtest builds small JPEG files with EXIF metadata for tests.
package jpegtest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// TIFF field types
const (
	TypeByte      = 1
	TypeASCII     = 2
	TypeShort     = 3
	TypeLong      = 4
	TypeRational  = 5
	TypeUndefined = 7
	TypeSRational = 10
)

// Tag is one IFD entry. Value is encoded in the byte order of the TIFF that
// will hold it.
type Tag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Value []byte
}

// TIFF describes the TIFF structure embedded in an EXIF segment. Pointer tags
// to the Exif and GPS IFDs and the IFD1 thumbnail tags are added by Bytes.
type TIFF struct {
	Order     binary.ByteOrder
	IFD0      []Tag
	Exif      []Tag
	GPS       []Tag
	Thumbnail []byte

	// when non-zero, recorded as the thumbnail length instead of the real one
	ThumbnailLength uint32
	// added to the recorded thumbnail offset
	ThumbnailShift uint32
}

// NewTIFF returns an empty TIFF with the given byte order.
func NewTIFF(order binary.ByteOrder) *TIFF {
	return &TIFF{Order: order}
}

// ASCII returns a NUL terminated string tag.
func (t *TIFF) ASCII(id uint16, s string) Tag {
	v := append([]byte(s), 0)
	return Tag{ID: id, Type: TypeASCII, Count: uint32(len(v)), Value: v}
}

// Short returns a tag of 16-bit values.
func (t *TIFF) Short(id uint16, vals ...uint16) Tag {
	v := make([]byte, 2*len(vals))
	for i, s := range vals {
		t.Order.PutUint16(v[2*i:], s)
	}
	return Tag{ID: id, Type: TypeShort, Count: uint32(len(vals)), Value: v}
}

// Long returns a tag of 32-bit values.
func (t *TIFF) Long(id uint16, vals ...uint32) Tag {
	v := make([]byte, 4*len(vals))
	for i, l := range vals {
		t.Order.PutUint32(v[4*i:], l)
	}
	return Tag{ID: id, Type: TypeLong, Count: uint32(len(vals)), Value: v}
}

// Rational returns an unsigned rational tag from numerator, denominator
// pairs.
func (t *TIFF) Rational(id uint16, pairs ...uint32) Tag {
	v := make([]byte, 4*len(pairs))
	for i, l := range pairs {
		t.Order.PutUint32(v[4*i:], l)
	}
	return Tag{ID: id, Type: TypeRational, Count: uint32(len(pairs) / 2), Value: v}
}

// SRational returns a signed rational tag from numerator, denominator pairs.
func (t *TIFF) SRational(id uint16, pairs ...int32) Tag {
	v := make([]byte, 4*len(pairs))
	for i, l := range pairs {
		t.Order.PutUint32(v[4*i:], uint32(l))
	}
	return Tag{ID: id, Type: TypeSRational, Count: uint32(len(pairs) / 2), Value: v}
}

// Byte returns a tag of 8-bit values.
func (t *TIFF) Byte(id uint16, vals ...byte) Tag {
	return Tag{ID: id, Type: TypeByte, Count: uint32(len(vals)), Value: slices.Clone(vals)}
}

// Undefined returns an opaque tag holding b.
func (t *TIFF) Undefined(id uint16, b []byte) Tag {
	return Tag{ID: id, Type: TypeUndefined, Count: uint32(len(b)), Value: slices.Clone(b)}
}

// pointer and thumbnail tags
const (
	tagCompression      = 0x0103
	tagExifIFDPointer   = 0x8769
	tagGPSIFDPointer    = 0x8825
	tagThumbnailOffset  = 0x0201
	tagThumbnailLength  = 0x0202
	compressionOldJPEG  = 6
	tiffHeaderSize      = 8
	ifdEntrySize        = 12
	ifdCountAndNextSize = 6
)

func dataSize(tags []Tag) int {
	n := 0
	for _, tag := range tags {
		if l := len(tag.Value); l > 4 {
			n += l + l&1
		}
	}
	return n
}

func ifdSize(tags []Tag) int {
	if len(tags) == 0 {
		return 0
	}
	return ifdCountAndNextSize + ifdEntrySize*len(tags) + dataSize(tags)
}

// Bytes lays out the TIFF header, IFD0, the Exif and GPS IFDs, IFD1 and the
// thumbnail, in that order.
func (t *TIFF) Bytes() []byte {
	ifd0 := slices.Clone(t.IFD0)
	if len(t.Exif) > 0 {
		ifd0 = append(ifd0, t.Long(tagExifIFDPointer, 0))
	}
	if len(t.GPS) > 0 {
		ifd0 = append(ifd0, t.Long(tagGPSIFDPointer, 0))
	}
	var ifd1 []Tag
	if t.Thumbnail != nil {
		ifd1 = []Tag{
			t.Short(tagCompression, compressionOldJPEG),
			t.Long(tagThumbnailOffset, 0),
			t.Long(tagThumbnailLength, 0),
		}
	}

	off0 := tiffHeaderSize
	offExif := off0 + ifdSize(ifd0)
	offGPS := offExif + ifdSize(t.Exif)
	off1 := offGPS + ifdSize(t.GPS)
	offThumb := off1 + ifdSize(ifd1)

	for i := range ifd0 {
		switch ifd0[i].ID {
		case tagExifIFDPointer:
			ifd0[i] = t.Long(tagExifIFDPointer, uint32(offExif))
		case tagGPSIFDPointer:
			ifd0[i] = t.Long(tagGPSIFDPointer, uint32(offGPS))
		}
	}
	if ifd1 != nil {
		length := uint32(len(t.Thumbnail))
		if t.ThumbnailLength != 0 {
			length = t.ThumbnailLength
		}
		ifd1[1] = t.Long(tagThumbnailOffset, uint32(offThumb)+t.ThumbnailShift)
		ifd1[2] = t.Long(tagThumbnailLength, length)
	}

	buf := make([]byte, 0, offThumb+len(t.Thumbnail))
	if t.Order == binary.ByteOrder(binary.BigEndian) {
		buf = append(buf, 'M', 'M', 0, 42)
	} else {
		buf = append(buf, 'I', 'I', 42, 0)
	}
	buf = t.appendUint32(buf, uint32(off0))

	next := 0
	if ifd1 != nil {
		next = off1
	}
	buf = t.appendIFD(buf, ifd0, next)
	buf = t.appendIFD(buf, t.Exif, 0)
	buf = t.appendIFD(buf, t.GPS, 0)
	buf = t.appendIFD(buf, ifd1, 0)
	return append(buf, t.Thumbnail...)
}

// appendIFD writes an IFD at the end of buf, followed by its values that do
// not fit in an entry.
func (t *TIFF) appendIFD(buf []byte, tags []Tag, next int) []byte {
	if len(tags) == 0 {
		return buf
	}
	tags = slices.Clone(tags)
	slices.SortStableFunc(tags, func(a, b Tag) int { return int(a.ID) - int(b.ID) })

	dataOffset := len(buf) + ifdCountAndNextSize + ifdEntrySize*len(tags)
	var data []byte
	buf = t.appendUint16(buf, uint16(len(tags)))
	for _, tag := range tags {
		buf = t.appendUint16(buf, tag.ID)
		buf = t.appendUint16(buf, tag.Type)
		buf = t.appendUint32(buf, tag.Count)
		if len(tag.Value) <= 4 {
			var v [4]byte
			copy(v[:], tag.Value)
			buf = append(buf, v[:]...)
			continue
		}
		buf = t.appendUint32(buf, uint32(dataOffset+len(data)))
		data = append(data, tag.Value...)
		if len(tag.Value)&1 != 0 {
			data = append(data, 0)
		}
	}
	buf = t.appendUint32(buf, uint32(next))
	return append(buf, data...)
}

func (t *TIFF) appendUint16(b []byte, v uint16) []byte {
	var s [2]byte
	t.Order.PutUint16(s[:], v)
	return append(b, s[:]...)
}

func (t *TIFF) appendUint32(b []byte, v uint32) []byte {
	var s [4]byte
	t.Order.PutUint32(s[:], v)
	return append(b, s[:]...)
}

// Segment returns a marker segment 0xFF marker, length, payload.
func Segment(marker byte, payload []byte) []byte {
	s := []byte{0xff, marker, 0, 0}
	binary.BigEndian.PutUint16(s[2:], uint16(len(payload)+2))
	return append(s, payload...)
}

// EXIF returns an APP1 segment holding the given TIFF data.
func EXIF(tiff []byte) []byte {
	return Segment(0xe1, append([]byte("Exif\x00\x00"), tiff...))
}

// JFIF returns a version 1.01 APP0 segment.
func JFIF() []byte {
	return Segment(0xe0, []byte{'J', 'F', 'I', 'F', 0, 1, 1, 0, 0, 1, 0, 1, 0, 0})
}

// XMP returns an APP1 segment with an XMP packet.
func XMP(packet string) []byte {
	return Segment(0xe1, append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...))
}

// COM returns a comment segment.
func COM(text string) []byte {
	return Segment(0xfe, []byte(text))
}

// DQT returns a quantization table segment with 8-bit values for table tq.
func DQT(tq byte, values [64]byte) []byte {
	return Segment(0xdb, append([]byte{tq}, values[:]...))
}

// SOF returns a frame header for marker 0xc0..0xcf with the given number of
// components.
func SOF(marker byte, width, height uint16, components int) []byte {
	p := []byte{8, byte(height >> 8), byte(height), byte(width >> 8), byte(width), byte(components)}
	for c := 1; c <= components; c++ {
		p = append(p, byte(c), 0x11, 0)
	}
	return Segment(marker, p)
}

// Scan returns a single component SOS segment followed by a few bytes of
// entropy coded data, including a stuffed 0xff and a restart marker.
func Scan() []byte {
	s := Segment(0xda, []byte{1, 1, 0, 0, 63, 0})
	return append(s, 0x12, 0xff, 0x00, 0x34, 0xff, 0xd0, 0x56)
}

// JPEG wraps segments between SOI and EOI.
func JPEG(segments ...[]byte) []byte {
	data := []byte{0xff, 0xd8}
	for _, s := range segments {
		data = append(data, s...)
	}
	return append(data, 0xff, 0xd9)
}

// WriteFile stores data in a fresh temporary directory and returns its path.
func WriteFile(tb testing.TB, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

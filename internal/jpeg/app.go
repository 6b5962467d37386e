package jpeg

// support for JPEG application segments (JFIF in APP0, EXIF and XMP in APP1)

import (
	"bytes"
	"log/slog"
)

const (
	_APP0_JFIF = iota
	_APP0_JFXX
)

func markerAPP0discriminator(h5 []byte) int {
	if bytes.Equal(h5, []byte("JFIF\x00")) {
		return _APP0_JFIF
	}
	if bytes.Equal(h5, []byte("JFXX\x00")) {
		return _APP0_JFXX
	}
	return -1
}

func (jpg *Desc) app0(marker, sLen uint) error {
	name := getJPEGmarkerName(marker)
	if sLen >= 7 {
		offset := jpg.offset + 4 // points 1 byte after length
		switch markerAPP0discriminator(jpg.data[offset : offset+5]) {
		case _APP0_JFIF:
			name = SectionJFIF
		case _APP0_JFXX:
			name = "JFXX"
		}
	}
	if jpg.state != _APPLICATION {
		jpg.warn("APP0 out of sequence", slog.String("state", jpg.getJPEGStateName()))
	}
	jpg.addSection(marker, sLen, name)
	return nil
}

const (
	_APP1_EXIF = iota
	_APP1_XMP
)

const (
	exifHeader = "Exif\x00\x00"
	xmpHeader  = "http://ns.adobe.com/xap/1.0/\x00"
)

func markerAPP1discriminator(header []byte) int {
	if bytes.HasPrefix(header, []byte(exifHeader)) {
		return _APP1_EXIF
	}
	if bytes.HasPrefix(header, []byte(xmpHeader)) {
		return _APP1_XMP
	}
	return -1
}

// exifTIFFOffset is the offset of the TIFF header in the Data of an EXIF
// section: 2 length bytes followed by "Exif\0\0".
const exifTIFFOffset = markerLengthSize + len(exifHeader)

func (jpg *Desc) app1(marker, sLen uint) error {
	offset := jpg.offset + 4 // points 1 byte after length
	payload := jpg.data[offset : jpg.offset+markerLengthSize+sLen]

	switch markerAPP1discriminator(payload) {
	case _APP1_EXIF:
		if jpg.exifDone { // only the first EXIF segment describes the picture
			jpg.addSection(marker, sLen, getJPEGmarkerName(marker))
			return nil
		}
		jpg.exifDone = true
		s := jpg.addSection(marker, sLen, SectionEXIF)
		if err := jpg.processExif(s.Data[exifTIFFOffset:]); err != nil {
			jpg.warn("ignoring corrupt EXIF data", slog.String("error", err.Error()))
		}
	case _APP1_XMP:
		jpg.addSection(marker, sLen, SectionXMP)
	default:
		jpg.addSection(marker, sLen, getJPEGmarkerName(marker))
	}
	return nil
}

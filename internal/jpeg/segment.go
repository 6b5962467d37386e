package jpeg

import (
	"fmt"
	"math"
)

const (
	markerLengthSize       = 2 // the length field following a marker
	fixedFrameHeaderSize   = 8 // length, precision, lines, samples/line, nComponents
	frameComponentSpecSize = 3 // id, sampling factors, quantization selector
	maxCommentSize         = 2000
)

// ----------- Frame

func (jpg *Desc) startOfFrame(marker uint, sLen uint) error {
	if sLen < fixedFrameHeaderSize {
		return fmt.Errorf("startOfFrame: wrong SOF%d header (len %d)", marker&0x0f, sLen)
	}
	offset := jpg.offset + markerLengthSize + 2 // skip marker and length
	nComponents := uint(jpg.data[offset+5])
	if sLen < fixedFrameHeaderSize+nComponents*frameComponentSpecSize {
		return fmt.Errorf("startOfFrame: wrong SOF%d header (len %d for %d components)",
			marker&0x0f, sLen, nComponents)
	}

	info := jpg.info
	info.Height = uint(jpg.data[offset+1])<<8 + uint(jpg.data[offset+2])
	info.Width = uint(jpg.data[offset+3])<<8 + uint(jpg.data[offset+4])
	if nComponents == 3 {
		info.IsColor = 1
	} else {
		info.IsColor = 0
	}
	info.Process = marker & 0xff

	jpg.addSection(marker, sLen, getJPEGmarkerName(marker))
	jpg.state = _SCAN
	return nil
}

// ------------------ Quantization

// Standard luminance table (JPEG Annex K.1) in zig-zag order, as it appears
// in DQT segments.
var stdLuminanceQuantization = [64]uint16{
	16, 11, 12, 14, 12, 10, 16, 14,
	13, 14, 18, 17, 16, 19, 24, 40,
	26, 24, 22, 22, 24, 49, 35, 37,
	29, 40, 58, 51, 61, 60, 57, 51,
	56, 55, 64, 72, 92, 78, 64, 68,
	87, 69, 55, 56, 80, 109, 81, 87,
	95, 98, 103, 104, 103, 62, 77, 113,
	121, 112, 100, 120, 92, 101, 103, 99,
}

// estimateQuality compares a table with a standard table and returns the
// libjpeg quality setting that would have produced it.
func estimateQuality(values *[64]uint16, ref *[64]uint16) int {
	var cumsf float64
	allOnes := true
	for i, v := range values {
		cumsf += 100.0 * float64(v) / float64(ref[i])
		if v != 1 {
			allOnes = false
		}
	}
	cumsf /= 64.0

	var quality float64
	switch {
	case allOnes:
		quality = 100.0
	case cumsf <= 100.0:
		quality = (200.0 - cumsf) / 2.0
	default:
		quality = 5000.0 / cumsf
	}
	return int(math.Floor(quality + 0.5))
}

func (jpg *Desc) defineQuantizationTable(marker, sLen uint) error {
	end := jpg.offset + markerLengthSize + sLen
	offset := jpg.offset + markerLengthSize + 2

	for offset < end { // multiple tables can be combined in a single DQT
		pq := uint(jpg.data[offset]) >> 4   // 0 => 8-bit values, 1 => 16-bit values
		tq := uint(jpg.data[offset]) & 0x0f // destination [0-3]
		if pq > 1 {
			return fmt.Errorf("defineQuantizationTable: wrong precision (%d)", pq)
		}
		if tq > 3 {
			return fmt.Errorf("defineQuantizationTable: wrong destination (%d)", tq)
		}
		offset++
		if offset+64*(pq+1) > end {
			return fmt.Errorf("defineQuantizationTable: invalid DQT length %d", sLen)
		}

		var values [64]uint16
		for i := 0; i < 64; i++ {
			values[i] = uint16(jpg.data[offset])
			offset++
			if pq != 0 {
				values[i] = values[i]<<8 + uint16(jpg.data[offset])
				offset++
			}
		}
		if tq == 0 {
			jpg.info.QualityGuess = estimateQuality(&values, &stdLuminanceQuantization)
		}
	}
	jpg.addSection(marker, sLen, SectionDQT)
	return nil
}

// -------------- comment segment

// commentSegment keeps the printable text of the first COM segment. A comment
// segment takes precedence over an EXIF user comment.
func (jpg *Desc) commentSegment(marker, sLen uint) error {
	s := jpg.addSection(marker, sLen, SectionCOM)
	if jpg.comDone {
		return nil
	}
	jpg.comDone = true
	text := s.Data[markerLengthSize:]
	if len(text) > maxCommentSize-markerLengthSize {
		text = text[:maxCommentSize-markerLengthSize]
	}

	comment := make([]byte, 0, len(text))
	for i, c := range text {
		if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			continue
		}
		if c >= 32 || c == '\n' || c == '\t' {
			comment = append(comment, c)
		} else {
			comment = append(comment, '?')
		}
	}
	jpg.info.Comments = comment
	jpg.info.CommentWidthChars = 0
	return nil
}

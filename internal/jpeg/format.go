package jpeg

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	exifcheck "github.com/jrm-1535/exif"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// cumulative formatted writer
type cumulativeWriter struct {
	w     io.Writer
	count int
	err   error
}

func newCumulativeWriter(w io.Writer) *cumulativeWriter {
	return &cumulativeWriter{w: w}
}

func (cw *cumulativeWriter) format(f string, a ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, f, a...)
	cw.err = err
	cw.count += n
}

func (cw *cumulativeWriter) result() (int, error) {
	return cw.count, cw.err
}

func (s *Section) format(cw *cumulativeWriter, info *ImageInfo) {
	marker := getJPEGmarkerName(s.Marker)
	cw.format("0x%08x %-6s length %6d", s.Offset, marker, len(s.Data))
	if s.Name != marker {
		cw.format(" (%s)", s.Name)
	}
	switch {
	case isSOFn(s.Marker) && len(s.Data) >= fixedFrameHeaderSize:
		cw.format(" %d-bit, %d lines, %d samples/line, %d components",
			s.Data[2], uint(s.Data[3])<<8+uint(s.Data[4]),
			uint(s.Data[5])<<8+uint(s.Data[6]), s.Data[7])
	case s.Name == SectionDQT && info != nil && info.QualityGuess != 0:
		cw.format(" estimated quality %d", info.QualityGuess)
	case s.Name == SectionCOM:
		cw.format(" %q", s.Data[markerLengthSize:])
	}
	cw.format("\n")
}

// FormatSegments prints out all the sections found in the file, in order.
func (jpg *Desc) FormatSegments(w io.Writer) (n int, err error) {
	cw := newCumulativeWriter(w)
	cw.format("0x%08x %-6s\n", 0, "SOI")
	for i := range jpg.sections {
		jpg.sections[i].format(cw, jpg.info)
	}
	if jpg.IsComplete() {
		cw.format("0x%08x %-6s\n", jpg.offset-2, "EOI")
	}
	n, err = cw.result()
	if err != nil {
		err = jpgForwardError("FormatSegments", err)
	}
	return
}

// exifStructure runs the strict IFD checks over an EXIF section: every tag of
// the primary, thumbnail, Exif, Interoperability and GPS IFDs must be known and
// well typed.
func exifStructure(s *Section) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("corrupt IFD: %v", r)
		}
	}()
	// the exif package expects the segment length, which is the size of Data
	_, err = exifcheck.Parse(s.Data, markerLengthSize, uint(len(s.Data)), &exifcheck.Control{})
	return err
}

type exifTag struct {
	name  exif.FieldName
	value string
}

type exifTagList []exifTag

func (l *exifTagList) Walk(name exif.FieldName, tag *tiff.Tag) error {
	*l = append(*l, exifTag{name, tag.String()})
	return nil
}

// FormatExif prints the EXIF metadata: the result of the IFD structure check,
// the thumbnail location and every decoded tag, sorted by name.
func (jpg *Desc) FormatExif(w io.Writer) error {
	s := jpg.FindSection(SectionEXIF)
	if s == nil {
		return fmt.Errorf("FormatExif: no EXIF metadata")
	}
	x, err := exif.Decode(bytes.NewReader(s.Data[exifTIFFOffset:]))
	if x == nil {
		return jpgForwardError("FormatExif", err)
	}

	cw := newCumulativeWriter(w)
	if err := exifStructure(s); err != nil {
		cw.format("Structure: %s\n", strings.TrimSpace(err.Error()))
	} else {
		cw.format("Structure: valid\n")
	}
	if info := jpg.info; info != nil && info.ThumbnailSize != 0 {
		cw.format("Thumbnail: size %d at offset %d in %s\n",
			info.ThumbnailSize, info.ThumbnailOffset, exifcheck.IfdNames[1])
	}

	var tags exifTagList
	if err := x.Walk(&tags); err != nil {
		return jpgForwardError("FormatExif", err)
	}
	slices.SortFunc(tags, func(a, b exifTag) int { return strings.Compare(string(a.name), string(b.name)) })
	for _, t := range tags {
		cw.format("  %-28s %s\n", t.name, t.value)
	}
	if _, err := cw.result(); err != nil {
		return jpgForwardError("FormatExif", err)
	}
	return nil
}

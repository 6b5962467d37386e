// Package jpeg walks the marker segments of a JPEG file and collects the
// metadata that describes the picture: frame geometry and encoding process,
// quantization quality, comments and the EXIF attributes carried in APP1.
package jpeg

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
)

/*  A JPEG document starts with SOI (0xffd8) and ends with EOI (0xffd9):

    SOI <tables> SOFn <tables> SOS <entropy coded data> [<tables> SOS <ecs>]... EOI

Tables are APPn (JFIF in APP0, EXIF or XMP in APP1), DQT, DHT, DAC, DRI and
COM. Every marker except SOI, EOI, TEM and RSTn is followed by a 2-byte big
endian length that includes the length bytes themselves. Any number of 0xff
fill bytes may precede a marker.

Metadata always precedes the first scan, so in ReadMetadata mode the walk stops
at the first SOS. In ReadAll mode the entropy coded data is skipped until the
next marker that is not a RSTn, and the walk goes on until EOI.
*/

const ( // parsing state
	_INIT        = iota // expecting SOI
	_APPLICATION        // after SOI, expecting APPn or tables
	_FRAME              // after any table other than APPn
	_SCAN               // after SOFn
	_SCAN_ECS           // after SOS
	_FINAL              // after EOI
)

var stateNames = [...]string{
	"initial", "application", "frame", "scan", "scan encoded segment", "final",
}

func (jpg *Desc) getJPEGStateName() string {
	if jpg.state > _FINAL {
		return "Unknown state"
	}
	return stateNames[jpg.state]
}

const ( // JPEG markers
	_TEM = 0xff01 // temporary use in arithmetic coding

	_SOF0  = 0xffc0 // baseline DCT
	_SOF1  = 0xffc1 // extended sequential DCT
	_SOF2  = 0xffc2 // progressive DCT
	_SOF3  = 0xffc3 // lossless
	_DHT   = 0xffc4 // define Huffman table
	_SOF5  = 0xffc5 // differential sequential DCT
	_SOF6  = 0xffc6 // differential progressive DCT
	_SOF7  = 0xffc7 // differential lossless
	_JPG   = 0xffc8 // reserved for JPEG extensions
	_SOF9  = 0xffc9 // extended sequential DCT, arithmetic coding
	_SOF10 = 0xffca // progressive DCT, arithmetic coding
	_SOF11 = 0xffcb // lossless, arithmetic coding
	_DAC   = 0xffcc // define arithmetic coding conditioning
	_SOF13 = 0xffcd // differential sequential DCT, arithmetic coding
	_SOF14 = 0xffce // differential progressive DCT, arithmetic coding
	_SOF15 = 0xffcf // differential lossless, arithmetic coding

	_RST0 = 0xffd0 // restart #0
	_RST7 = 0xffd7 // restart #7
	_SOI  = 0xffd8 // start of image
	_EOI  = 0xffd9 // end of image
	_SOS  = 0xffda // start of scan
	_DQT  = 0xffdb // define quantization table
	_DNL  = 0xffdc // define number of lines
	_DRI  = 0xffdd // define restart interval
	_DHP  = 0xffde // define hierarchical progression
	_EXP  = 0xffdf // expand reference components

	_APP0  = 0xffe0 // JFIF
	_APP1  = 0xffe1 // EXIF, XMP
	_APP15 = 0xffef

	_COM = 0xfffe // comment
)

var markerNames = [...]string{
	"SOF0", "SOF1", "SOF2", "SOF3", "DHT", "SOF5", "SOF6", "SOF7",
	"JPG", "SOF9", "SOF10", "SOF11", "DAC", "SOF13", "SOF14", "SOF15",
	"RST0", "RST1", "RST2", "RST3", "RST4", "RST5", "RST6", "RST7",
	"SOI", "EOI", "SOS", "DQT", "DNL", "DRI", "DHP", "EXP",
	"APP0", "APP1", "APP2", "APP3", "APP4", "APP5", "APP6", "APP7",
	"APP8", "APP9", "APP10", "APP11", "APP12", "APP13", "APP14", "APP15",
	"RES0", "RES1", "RES2", "RES3", "RES4", "RES5", "RES6", "RES7",
	"RES8", "RES9", "RES10", "RES11", "RES12", "RES13",
	"COM",
}

func getJPEGmarkerName(marker uint) string {
	if marker == _TEM {
		return "TEM"
	}
	if marker < _SOF0 || marker > _COM {
		return "RES"
	}
	return markerNames[marker-_SOF0]
}

func isSOFn(marker uint) bool {
	if marker < _SOF0 || marker > _SOF15 {
		return false
	}
	switch marker {
	case _DHT, _JPG, _DAC:
		return false
	}
	return true
}

func jpgForwardError(prefix string, err error) error {
	return fmt.Errorf(prefix+": %w", err)
}

// Section names used in the section table.
const (
	SectionEXIF = "EXIF"
	SectionXMP  = "XMP"
	SectionJFIF = "JFIF"
	SectionCOM  = "COM"
	SectionDQT  = "DQT"
	SectionSOS  = "SOS"
)

// Section is a raw segment located in the file. Data starts at the 2-byte
// segment length, so it holds length+payload bytes.
type Section struct {
	Marker uint   // full 16-bit marker
	Name   string // EXIF, XMP, JFIF, COM, SOF0..SOF15, DQT, APPn ...
	Offset uint   // file offset of the marker
	Data   []byte
}

// ReadMode tells how far Parse goes into the file.
type ReadMode int

const (
	ReadMetadata ReadMode = iota // stop at the first scan
	ReadAll                      // walk every segment up to EOI
)

// Control holds parsing options.
type Control struct {
	Warn   bool         // log recoverable inconsistencies
	Logger *slog.Logger // defaults to slog.Default()
}

func (c *Control) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Desc is the result of a marker walk: the raw data, the section table and the
// record being filled.
type Desc struct {
	data     []byte
	offset   uint // current offset in data, always at a marker
	state    int
	mode     ReadMode
	sections []Section
	info     *ImageInfo
	exifDone bool // first EXIF section already decoded
	comDone  bool // first COM section already stored

	Control
}

func (jpg *Desc) warn(msg string, args ...any) {
	if jpg.Warn {
		jpg.logger().Warn(msg, args...)
	}
}

func (jpg *Desc) addSection(marker, sLen uint, name string) *Section {
	jpg.sections = append(jpg.sections, Section{
		Marker: marker,
		Name:   name,
		Offset: jpg.offset,
		Data:   jpg.data[jpg.offset+2 : jpg.offset+2+sLen],
	})
	return &jpg.sections[len(jpg.sections)-1]
}

// Parse walks the JPEG data and fills info with the metadata found on the way.
// The returned Desc is usable even when err is not nil, but it may then be
// incomplete.
func Parse(data []byte, info *ImageInfo, mode ReadMode, toDo *Control) (*Desc, error) {
	jpg := &Desc{data: data, mode: mode, info: info}
	if toDo != nil {
		jpg.Control = *toDo
	}
	if info == nil {
		jpg.info = new(ImageInfo)
	}

	if len(data) < 2 || !bytes.Equal(data[0:2], []byte{0xff, 0xd8}) {
		return jpg, fmt.Errorf("Parse: not a JPEG file")
	}

	tLen := uint(len(data))
	i := uint(0)
	for {
		for i < tLen && data[i] == 0xff && i+1 < tLen && data[i+1] == 0xff {
			i++ // fill bytes
		}
		if i+2 > tLen {
			break
		}
		if data[i] != 0xff {
			return jpg, fmt.Errorf("Parse: invalid marker 0x%02x%02x at offset 0x%x",
				data[i], data[i+1], i)
		}
		marker := uint(data[i])<<8 + uint(data[i+1])
		jpg.offset = i

		switch {
		case marker == _SOI:
			if jpg.state != _INIT {
				return jpg, fmt.Errorf("Parse: wrong sequence %s in state %s",
					getJPEGmarkerName(marker), jpg.getJPEGStateName())
			}
			jpg.state = _APPLICATION
			i += 2
			continue

		case marker == _EOI:
			if jpg.state != _SCAN_ECS {
				return jpg, fmt.Errorf("Parse: no image in jpeg")
			}
			jpg.state = _FINAL
			jpg.offset = i + 2
			return jpg, nil // ignore trailing junk

		case marker == _TEM || (marker >= _RST0 && marker <= _RST7):
			return jpg, fmt.Errorf("Parse: marker %s should not happen in top level segments",
				getJPEGmarkerName(marker))
		}

		if i+4 > tLen {
			break
		}
		sLen := uint(data[i+2])<<8 + uint(data[i+3])
		if sLen < 2 {
			return jpg, fmt.Errorf("Parse: invalid %s segment length %d",
				getJPEGmarkerName(marker), sLen)
		}
		if i+2+sLen > tLen {
			return jpg, fmt.Errorf("Parse: truncated segment %s (length %d, %d bytes left)",
				getJPEGmarkerName(marker), sLen, tLen-i-2)
		}

		var err error
		toFrame := true
		switch {
		case marker == _APP0:
			err = jpg.app0(marker, sLen)
			toFrame = false
		case marker == _APP1:
			err = jpg.app1(marker, sLen)
			toFrame = false
		case marker > _APP1 && marker <= _APP15:
			jpg.addSection(marker, sLen, getJPEGmarkerName(marker))
			toFrame = false
		case isSOFn(marker):
			err = jpg.startOfFrame(marker, sLen)
		case marker == _DQT:
			err = jpg.defineQuantizationTable(marker, sLen)
		case marker == _COM:
			err = jpg.commentSegment(marker, sLen)
			toFrame = false
		case marker == _SOS:
			jpg.addSection(marker, sLen, SectionSOS)
			jpg.state = _SCAN_ECS
			if jpg.mode == ReadMetadata {
				return jpg, nil
			}
			i = jpg.skipEntropyCodedData(i + 2 + sLen)
			continue
		default: // DHT, DAC, DRI, DNL, DHP, EXP, JPG, RESn
			jpg.addSection(marker, sLen, getJPEGmarkerName(marker))
		}
		if err != nil {
			return jpg, jpgForwardError("Parse", err)
		}
		if jpg.state == _APPLICATION && toFrame {
			jpg.state = _FRAME
		}
		i += sLen + 2
	}

	if jpg.state == _SCAN_ECS && jpg.mode == ReadAll {
		jpg.warn("missing EOI marker", slog.Uint64("offset", uint64(i)))
		return jpg, nil
	}
	return jpg, fmt.Errorf("Parse: premature end of data")
}

// skipEntropyCodedData returns the offset of the first marker following the
// entropy coded segment that starts at offset, ignoring stuffed bytes and RSTn.
func (jpg *Desc) skipEntropyCodedData(offset uint) uint {
	tLen := uint(len(jpg.data))
	for i := offset; i+1 < tLen; i++ {
		if jpg.data[i] != 0xff {
			continue
		}
		next := jpg.data[i+1]
		if next == 0x00 || next == 0xff || (next >= 0xd0 && next <= 0xd7) {
			continue
		}
		return i
	}
	return tLen
}

// IsComplete returns true if the walk went from SOI to EOI.
func (jpg *Desc) IsComplete() bool {
	return jpg.state == _FINAL
}

// Sections returns the section table in file order.
func (jpg *Desc) Sections() []Section {
	return jpg.sections
}

// FindSection returns the first section with the given name, or nil.
func (jpg *Desc) FindSection(name string) *Section {
	for i := range jpg.sections {
		if jpg.sections[i].Name == name {
			return &jpg.sections[i]
		}
	}
	return nil
}

// Info returns the record filled during the walk.
func (jpg *Desc) Info() *ImageInfo {
	return jpg.info
}

// Read reads a JPEG file in memory and parses it. If the file cannot be read
// the returned Desc is nil.
func Read(path string, info *ImageInfo, mode ReadMode, toDo *Control) (*Desc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Read: unable to read file %s: %w", path, err)
	}
	return Parse(data, info, mode, toDo)
}

// Parser is a reusable parsing context. It keeps the Desc of the last Decode
// until Reset or Discard.
type Parser struct {
	Control
	desc *Desc
}

// NewParser returns a Parser using the given options.
func NewParser(toDo *Control) *Parser {
	p := new(Parser)
	if toDo != nil {
		p.Control = *toDo
	}
	return p
}

// Reset clears the state left by a previous Decode.
func (p *Parser) Reset() {
	p.desc = nil
}

// Decode reads and parses the file at path, filling info.
func (p *Parser) Decode(path string, info *ImageInfo, mode ReadMode) error {
	desc, err := Read(path, info, mode, &p.Control)
	p.desc = desc
	return err
}

// FindSection looks up a section of the last decoded file.
func (p *Parser) FindSection(name string) *Section {
	if p.desc == nil {
		return nil
	}
	return p.desc.FindSection(name)
}

// Desc returns the last decoded file, or nil.
func (p *Parser) Desc() *Desc {
	return p.desc
}

// Discard releases the data and sections of the last decoded file. It can be
// called any number of times.
func (p *Parser) Discard() {
	if p.desc != nil {
		p.desc.data = nil
		p.desc.sections = nil
		p.desc.info = nil
	}
	p.desc = nil
}

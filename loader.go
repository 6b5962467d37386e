package exify

import (
	"os"
	"unicode/utf8"

	"github.com/jrm-1535/exify/internal/jpeg"
)

// decoder is the parsing context owned by a Reader. *jpeg.Parser implements
// it.
type decoder interface {
	Reset()
	Decode(path string, info *jpeg.ImageInfo, mode jpeg.ReadMode) error
	FindSection(name string) *jpeg.Section
	Discard()
}

// maxPathLen is PATH_MAX minus the terminating NUL.
const maxPathLen = 4095

// truncatePath cuts name to maxPathLen bytes without splitting a UTF-8
// sequence.
func truncatePath(name string) string {
	if len(name) <= maxPathLen {
		return name
	}
	cut := maxPathLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// load decodes the metadata of the file at path. On failure no record is
// returned; the caller still owns the decoder state and must Discard it.
func load(dec decoder, path string) (*Record, error) {
	dec.Reset()

	info := jpeg.ImageInfo{
		Orientation:  unset,
		FlashUsed:    unset,
		MeteringMode: unset,
		WhiteBalance: unset,
	}
	if st, err := os.Stat(path); err == nil {
		info.FileSize = st.Size()
		info.FileTime = st.ModTime()
	}
	info.FileName = truncatePath(path)

	if err := dec.Decode(path, &info, jpeg.ReadMetadata); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return newRecord(&info), nil
}

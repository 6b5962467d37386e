// Package exify extracts the metadata of JPEG files: camera settings, GPS
// position, comments and the embedded EXIF thumbnail.
//
// A Reader owns one parsing context and serializes its calls. The
// package-level GetImageInfo and GetThumbnail share a default Reader, so they
// are safe for concurrent use but never run in parallel.
package exify

import (
	"log/slog"
	"sync"

	"github.com/jrm-1535/exify/internal/jpeg"
)

// Options control a Reader.
type Options struct {
	Warn   bool         // log recoverable inconsistencies found in files
	Logger *slog.Logger // defaults to slog.Default()
}

// Reader reads JPEG metadata, one file at a time.
type Reader struct {
	mu  sync.Mutex
	dec decoder
}

// NewReader returns a Reader with its own parsing context. opts may be nil.
func NewReader(opts *Options) *Reader {
	ctl := jpeg.Control{}
	if opts != nil {
		ctl.Warn = opts.Warn
		ctl.Logger = opts.Logger
	}
	return &Reader{dec: jpeg.NewParser(&ctl)}
}

// GetImageInfo returns the ordered description of the metadata of the file
// at path. The error is a *DecodeError if the file cannot be read or parsed.
func (r *Reader) GetImageInfo(path string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.dec.Discard()

	rec, err := load(r.dec, path)
	if err != nil {
		return nil, err
	}
	return Describe(rec), nil
}

// GetThumbnail returns a copy of the thumbnail embedded in the EXIF metadata
// of the file at path, or nil if there is none. The error is a *DecodeError
// if the file cannot be parsed, or a *BoundsError if the thumbnail lies
// outside of the EXIF segment.
func (r *Reader) GetThumbnail(path string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.dec.Discard()

	rec, err := load(r.dec, path)
	if err != nil {
		return nil, err
	}
	s := r.dec.FindSection(jpeg.SectionEXIF)
	if s == nil {
		return nil, nil
	}
	return ExtractThumbnail(rec, s.Data)
}

var defaultReader = NewReader(nil)

// GetImageInfo describes the file at path using the default Reader.
func GetImageInfo(path string) (Info, error) {
	return defaultReader.GetImageInfo(path)
}

// GetThumbnail extracts the thumbnail of the file at path using the default
// Reader.
func GetThumbnail(path string) ([]byte, error) {
	return defaultReader.GetThumbnail(path)
}

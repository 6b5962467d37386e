package exify

import "fmt"

// DecodeError reports a file that could not be read or is not a parseable
// JPEG.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to read jpeg file %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// BoundsError reports a thumbnail whose offset and size, as recorded in the
// file, point outside of the EXIF segment.
type BoundsError struct {
	Offset uint32 // thumbnail offset relative to the TIFF header
	Size   uint32
	Len    int // EXIF segment length
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("thumbnail [%d, %d) exceeds EXIF segment of %d bytes",
		uint64(e.Offset)+thumbnailDataOffset,
		uint64(e.Offset)+thumbnailDataOffset+uint64(e.Size), e.Len)
}

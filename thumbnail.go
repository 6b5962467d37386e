package exify

// thumbnailDataOffset is where the TIFF header starts in EXIF segment data:
// 2 length bytes and "Exif\0\0". Thumbnail offsets are relative to it.
const thumbnailDataOffset = 8

// ExtractThumbnail copies the embedded thumbnail out of the EXIF segment data.
// It returns nil without error when exif is nil (no EXIF segment) or when the
// record has no thumbnail. The range recorded in the file is checked against
// the segment before anything is read.
func ExtractThumbnail(rec *Record, exif []byte) ([]byte, error) {
	if exif == nil || rec.ThumbnailSize == 0 {
		return nil, nil
	}
	start := uint64(rec.ThumbnailOffset) + thumbnailDataOffset
	end := start + uint64(rec.ThumbnailSize)
	if end > uint64(len(exif)) {
		return nil, &BoundsError{Offset: rec.ThumbnailOffset, Size: rec.ThumbnailSize, Len: len(exif)}
	}
	thumb := make([]byte, rec.ThumbnailSize)
	copy(thumb, exif[start:end])
	return thumb, nil
}

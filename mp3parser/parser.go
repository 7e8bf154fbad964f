// Package mp3parser to parse MP3 streams into frames, tags and out-of-band data
package mp3parser

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxRetries bounds how many byte positions ReadFrame tries before
// giving up on a range.
const DefaultMaxRetries = 4096

// ReadFrame consumes the frame at the current position. A header that does
// not validate is retried one byte further on, at most maxRetries times.
func ReadFrame(rs io.ReadSeeker, maxRetries int) (*Frame, error) {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	buf := make([]byte, MinFrameHeaderSize+CRCSize)
	for attempt := 0; attempt < maxRetries; attempt++ {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}

		if _, err := io.ReadFull(rs, buf[:MinFrameHeaderSize]); err != nil {
			return nil, truncated(err, "frame header", start)
		}
		h, err := ParseFrameHeader(buf[:MinFrameHeaderSize])
		if err != nil {
			return nil, err
		}

		// Skip CRC data
		if h.CRC {
			if _, err := io.ReadFull(rs, buf[MinFrameHeaderSize:]); err != nil {
				return nil, truncated(err, "frame CRC", start)
			}
			h.Raw = append(h.Raw, buf[MinFrameHeaderSize:]...)
		}

		if !IsSync(buf) || !h.Valid() {
			if _, err := rs.Seek(start+1, io.SeekStart); err != nil {
				return nil, err
			}
			continue
		}

		audio := make([]byte, h.AudioSize)
		if _, err := io.ReadFull(rs, audio); err != nil {
			return nil, truncated(err, "frame audio", start)
		}
		return &Frame{Header: h, Audio: audio}, nil
	}

	return nil, ErrNoValidFrame
}

// ReadTag consumes the ID3v2 tag at the current position. The body is
// skipped, never loaded.
func ReadTag(rs io.ReadSeeker) (*TagHeader, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, TagHeaderSize)
	if _, err := io.ReadFull(rs, buf); err != nil {
		return nil, truncated(err, "tag header", start)
	}
	tag, err := ParseTagHeader(buf)
	if err != nil {
		return nil, err
	}

	if _, err := rs.Seek(int64(tag.TotalSize()-TagHeaderSize), io.SeekCurrent); err != nil {
		return nil, fmt.Errorf("failed to skip tag body: %w", err)
	}
	return tag, nil
}

// SkipObject consumes the object the scanner just reported.
func SkipObject(rs io.ReadSeeker, kind ObjectKind, maxRetries int) error {
	switch kind {
	case ObjectMP3Frame:
		_, err := ReadFrame(rs, maxRetries)
		return err
	case ObjectID3v2Tag:
		_, err := ReadTag(rs)
		return err
	}
	return nil
}

func truncated(err error, what string, offset int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s at offset %d", ErrTruncated, what, offset)
	}
	return fmt.Errorf("failed to read %s at offset %d: %w", what, offset, err)
}

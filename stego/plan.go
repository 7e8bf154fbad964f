// Package stego spreads a payload across the gaps between MP3 frames, where a
// later scan reports it as out-of-band data.
package stego

import (
	"errors"
	"fmt"
	"io"

	"mp3nema/mp3parser"
)

// DefaultGuardFrames keeps the payload away from the start of the file.
const DefaultGuardFrames = 2

// Span is the byte range of one frame or tag.
type Span struct {
	Kind  mp3parser.ObjectKind
	Start int64
	End   int64
}

// Plan says how a payload is cut into blocks for one destination.
type Plan struct {
	PayloadSize int64
	Frames      int
	Objects     int
	Guard       int
	BlockCount  int
	BlockSize   int64
	Remainder   int64
}

// PlanInjection cuts n payload bytes into blocks for a destination with the
// given frame and object (frames plus tags) counts. A block goes after each
// object whose index is past the guard, so at most objects-guard-1 blocks
// fit. Without any slot the whole payload follows the last object and
// BlockCount is 0.
func PlanInjection(n int64, frames, objects, guard int) Plan {
	guard = max(guard, 0)
	p := Plan{
		PayloadSize: n,
		Frames:      frames,
		Objects:     objects,
		Guard:       guard,
	}

	blockCount := n / int64(max(frames-guard, 1))
	var blockSize int64
	if blockCount > 0 {
		blockSize = n / blockCount
	}
	if blockCount == 0 || blockSize == 0 {
		blockCount, blockSize = 1, n
	}

	slots := int64(max(objects-guard-1, 0))
	switch {
	case slots == 0:
		blockCount, blockSize = 0, 0
	case blockCount > slots:
		blockCount = slots
		blockSize = n / blockCount
	}

	p.BlockCount = int(blockCount)
	p.BlockSize = blockSize
	p.Remainder = n - blockCount*blockSize
	return p
}

// BlockLen is the length of block i. The last block carries the remainder.
func (p Plan) BlockLen(i int) int64 {
	if i == p.BlockCount-1 {
		return p.BlockSize + p.Remainder
	}
	return p.BlockSize
}

// CountObjects scans rs from the start and returns the span of every frame
// and tag plus the number of frames. A truncated final object is left out;
// its bytes are trailing data.
func CountObjects(rs io.ReadSeeker, maxRetries int) ([]Span, int, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	s := mp3parser.NewScanner(rs, mp3parser.ScanOptions{})
	var spans []Span
	frames := 0
	for {
		obj, err := s.Next()
		if err != nil {
			return nil, 0, err
		}
		if obj.Kind == mp3parser.ObjectUnknown {
			return spans, frames, nil
		}

		if err := mp3parser.SkipObject(rs, obj.Kind, maxRetries); err != nil {
			if errors.Is(err, mp3parser.ErrTruncated) {
				return spans, frames, nil
			}
			return nil, 0, fmt.Errorf("failed to read %s at offset %d: %w", obj.Kind, obj.Offset, err)
		}
		end, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, err
		}
		if end > size {
			// tag claims more bytes than the file has
			return spans, frames, nil
		}

		spans = append(spans, Span{Kind: obj.Kind, Start: obj.Offset, End: end})
		if obj.Kind == mp3parser.ObjectMP3Frame {
			frames++
		}
	}
}

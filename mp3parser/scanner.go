package mp3parser

import (
	"bytes"
	"fmt"
	"io"
)

// OOBFunc receives each batch of out-of-band bytes together with the stream
// offset of its first byte.
type OOBFunc func(offset int64, oob []byte)

// ScanOptions configures where out-of-band bytes are reported.
type ScanOptions struct {
	Sink  io.Writer // raw OOB bytes, e.g. an extraction file
	OnOOB OOBFunc
}

// Read sizes of the file scanner. A scan starts small since it usually sits
// on a frame, and grows while it walks through out-of-band data.
const (
	minScanBlock = 64
	maxScanBlock = 64 << 10
)

// Scanner finds frames and tags in a seekable stream. Every byte it steps
// over that belongs to neither is out-of-band.
type Scanner struct {
	rs   io.ReadSeeker
	opts ScanOptions
	oob  bytes.Buffer
	buf  []byte
}

func NewScanner(rs io.ReadSeeker, opts ScanOptions) *Scanner {
	return &Scanner{rs: rs, opts: opts}
}

// Next scans forward from the current position. On a hit the source is left
// at the first byte of the object. ObjectUnknown means fewer than 3 bytes
// remain; calling Next again keeps returning it.
func (s *Scanner) Next() (Object, error) {
	start, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return Object{}, err
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Object{}, err
	}

	s.oob.Reset()
	oobStart := int64(-1)
	kind := ObjectUnknown
	pos := start
	size := minScanBlock

scan:
	for pos+3 <= end {
		b, err := s.readBlock(pos, end, size)
		if err != nil {
			return Object{}, err
		}
		size = min(2*size, maxScanBlock)

		// a header needs 4 bytes, so a block that is not the tail of the
		// input is only examined up to its last 3 bytes
		tail := pos+int64(len(b)) == end
		i := 0
		for i+3 <= len(b) {
			if !tail && i+MinFrameHeaderSize > len(b) {
				break
			}
			v := b[i:min(len(b), i+MinFrameHeaderSize)]

			if len(v) == MinFrameHeaderSize && IsSync(v) {
				if h, _ := ParseFrameHeader(v); h.Valid() {
					kind = ObjectMP3Frame
					pos += int64(i)
					break scan
				}
			}
			if IsTag(v) {
				kind = ObjectID3v2Tag
				pos += int64(i)
				break scan
			}

			// ID3v1 trailer, never reported
			if v[0] == 'T' && v[1] == 'A' && v[2] == 'G' && pos+int64(i) == end-LegacyTagSize {
				i += LegacyTagSize
				continue
			}

			if oobStart < 0 {
				oobStart = pos + int64(i)
			}
			s.oob.WriteByte(v[0])
			i++
		}
		pos += int64(i)
	}

	if pos > end {
		pos = end
	}
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return Object{}, err
	}

	obj := Object{Kind: kind, Offset: pos}
	if s.oob.Len() > 0 {
		obj.OOB = append([]byte(nil), s.oob.Bytes()...)
		if err := s.report(oobStart, obj.OOB); err != nil {
			return obj, err
		}
	}
	return obj, nil
}

// readBlock reads up to size bytes at pos, never past end.
func (s *Scanner) readBlock(pos, end int64, size int) ([]byte, error) {
	if len(s.buf) < size {
		s.buf = make([]byte, size)
	}
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return nil, err
	}
	n, err := io.ReadFull(s.rs, s.buf[:min(int64(size), end-pos)])
	if err != nil {
		return nil, fmt.Errorf("failed to read at offset %d: %w", pos, err)
	}
	return s.buf[:n], nil
}

func (s *Scanner) report(offset int64, oob []byte) error {
	if s.opts.OnOOB != nil {
		s.opts.OnOOB(offset, oob)
	}
	if s.opts.Sink != nil {
		if _, err := s.opts.Sink.Write(oob); err != nil {
			return fmt.Errorf("failed to write OOB data: %w", err)
		}
	}
	return nil
}

// ScanWindow classifies the first object in an in-memory window whose
// logical end is len(buf). A sync pattern too close to the end to be
// validated stops the scan unless final is set, in which case it is treated
// like a file scan at end of input. The returned Offset of an ObjectUnknown
// is the first byte that was not examined.
func ScanWindow(buf []byte, final bool) Object {
	var oob []byte
	end := len(buf)
	i := 0

	for i+3 <= end {
		v := buf[i:]
		if IsSync(v) {
			if i+MinFrameHeaderSize > end {
				if !final {
					break
				}
			} else if h, _ := ParseFrameHeader(v[:min(len(v), MinFrameHeaderSize+CRCSize)]); h.Valid() {
				return Object{Kind: ObjectMP3Frame, Offset: int64(i), OOB: oob}
			}
		}
		if IsTag(v) {
			return Object{Kind: ObjectID3v2Tag, Offset: int64(i), OOB: oob}
		}
		oob = append(oob, buf[i])
		i++
	}

	return Object{Kind: ObjectUnknown, Offset: int64(i), OOB: oob}
}

package stream

import (
	"errors"
	"fmt"
	"io"

	"mp3nema/mp3parser"
)

var (
	ErrWindowOverflow  = errors.New("chunk overflows reassembly window")
	ErrZeroLengthFrame = errors.New("frame header claims zero length")
)

const (
	DesyncOverflow   = "overflow"
	DesyncZeroLength = "zero-length-frame"
)

// Event is one object recognized in the stream. Offset counts bytes from the
// start of the stream.
type Event struct {
	Kind   mp3parser.ObjectKind
	Offset int64
	Size   int
	Frame  *mp3parser.FrameHeader
	Tag    *mp3parser.TagHeader
}

// ReassemblerOptions configures a Reassembler. Threshold defaults to
// Capacity minus one eighth of it.
type ReassemblerOptions struct {
	Capacity       int
	Threshold      int
	IgnoreFirstOOB bool
	OnObject       func(Event)
	OnOOB          mp3parser.OOBFunc
	OOBSink        io.Writer
	OnDesync       func(reason string, dropped int)
}

// Reassembler feeds a chunked byte stream through the window scanner.
// OOB bytes are held until the next object (or Flush) so they are reported
// in the same batches a contiguous file scan would produce. A run longer
// than the window is released in window sized batches.
type Reassembler struct {
	opts   ReassemblerOptions
	window []byte
	filled int
	base   int64 // stream offset of window[0]

	pending   []byte
	pendingAt int64
	ignoreOOB bool

	skip int // bytes of an oversize object still to discard
}

func NewReassembler(opts ReassemblerOptions) (*Reassembler, error) {
	if opts.Capacity < 2*mp3parser.TagHeaderSize {
		return nil, fmt.Errorf("window capacity too small: %d", opts.Capacity)
	}
	if opts.Threshold <= 0 || opts.Threshold > opts.Capacity {
		opts.Threshold = opts.Capacity - opts.Capacity/8
	}
	return &Reassembler{
		opts:      opts,
		window:    make([]byte, opts.Capacity),
		ignoreOOB: opts.IgnoreFirstOOB,
	}, nil
}

// Filled is the number of bytes waiting in the window.
func (r *Reassembler) Filled() int {
	return r.filled
}

// Offset is the stream offset of the next byte Feed will accept.
func (r *Reassembler) Offset() int64 {
	return r.base + int64(r.filled)
}

// Feed appends one chunk. A chunk that does not fit resets the window and
// returns ErrWindowOverflow; the stream can keep being fed after that.
func (r *Reassembler) Feed(chunk []byte) error {
	if r.skip > 0 {
		n := min(r.skip, len(chunk))
		r.skip -= n
		r.base += int64(n)
		chunk = chunk[n:]
	}
	if len(chunk) == 0 {
		return nil
	}

	if r.filled+len(chunk) > len(r.window) {
		if err := r.drain(false); err != nil {
			return err
		}
	}
	if r.filled+len(chunk) > len(r.window) {
		r.reset(DesyncOverflow, len(chunk))
		return fmt.Errorf("%w: %d + %d > %d bytes", ErrWindowOverflow, r.filled, len(chunk), len(r.window))
	}

	copy(r.window[r.filled:], chunk)
	r.filled += len(chunk)

	if r.filled >= r.opts.Threshold {
		return r.drain(false)
	}
	return nil
}

// Flush classifies whatever is left at the end of the stream, the way a
// file scan treats end of file.
func (r *Reassembler) Flush() error {
	if err := r.drain(true); err != nil {
		return err
	}
	if err := r.flushOOB(); err != nil {
		return err
	}
	r.compact(r.filled)
	return nil
}

func (r *Reassembler) drain(final bool) error {
	for {
		if r.skip > 0 {
			n := min(r.skip, r.filled)
			r.compact(n)
			r.skip -= n
			if r.skip > 0 {
				return nil
			}
		}

		obj := mp3parser.ScanWindow(r.window[:r.filled], final)
		if err := r.addOOB(obj.OOB); err != nil {
			return err
		}
		off := int(obj.Offset)

		ev := Event{Kind: obj.Kind, Offset: r.base + int64(off)}
		switch obj.Kind {
		case mp3parser.ObjectUnknown:
			r.compact(off)
			return nil

		case mp3parser.ObjectMP3Frame:
			h, err := mp3parser.ParseFrameHeader(r.window[off:min(r.filled, off+mp3parser.MinFrameHeaderSize+mp3parser.CRCSize)])
			if err != nil {
				return err
			}
			ev.Frame = h
			ev.Size = h.FrameLength()
			if ev.Size <= 0 {
				r.reset(DesyncZeroLength, r.filled)
				return ErrZeroLengthFrame
			}

		case mp3parser.ObjectID3v2Tag:
			if off+mp3parser.TagHeaderSize > r.filled {
				if final {
					r.compact(r.filled)
					return nil
				}
				r.compact(off)
				return nil
			}
			t, err := mp3parser.ParseTagHeader(r.window[off : off+mp3parser.TagHeaderSize])
			if err != nil {
				return err
			}
			ev.Tag = t
			ev.Size = t.TotalSize()
		}

		// too big to ever sit in the window: report it now and discard
		// its bytes as they arrive
		if ev.Size > r.opts.Threshold {
			if err := r.emit(ev); err != nil {
				return err
			}
			r.compact(off)
			n := min(ev.Size, r.filled)
			r.compact(n)
			r.skip = ev.Size - n
			continue
		}

		if off+ev.Size > r.filled {
			if final {
				// truncated by end of stream
				r.compact(r.filled)
				return nil
			}
			r.compact(off)
			return nil
		}

		if err := r.emit(ev); err != nil {
			return err
		}
		r.compact(off + ev.Size)
	}
}

func (r *Reassembler) emit(ev Event) error {
	if err := r.flushOOB(); err != nil {
		return err
	}
	if r.opts.OnObject != nil {
		r.opts.OnObject(ev)
	}
	return nil
}

func (r *Reassembler) addOOB(oob []byte) error {
	if len(oob) == 0 {
		return nil
	}
	if len(r.pending) == 0 {
		r.pendingAt = r.base
	}
	r.pending = append(r.pending, oob...)
	if len(r.pending) >= len(r.window) {
		return r.flushOOB()
	}
	return nil
}

func (r *Reassembler) flushOOB() error {
	oob, at := r.pending, r.pendingAt
	r.pending = nil

	ignore := r.ignoreOOB
	r.ignoreOOB = false
	if len(oob) == 0 || ignore {
		return nil
	}

	if r.opts.OnOOB != nil {
		r.opts.OnOOB(at, oob)
	}
	if r.opts.OOBSink != nil {
		if _, err := r.opts.OOBSink.Write(oob); err != nil {
			return fmt.Errorf("failed to write OOB data: %w", err)
		}
	}
	return nil
}

// compact drops n bytes from the front of the window.
func (r *Reassembler) compact(n int) {
	if n <= 0 {
		return
	}
	copy(r.window, r.window[n:r.filled])
	r.filled -= n
	r.base += int64(n)
}

// reset throws away the window after a desync. The dropped bytes still count
// towards stream offsets.
func (r *Reassembler) reset(reason string, extra int) {
	dropped := r.filled + extra
	if r.opts.OnDesync != nil {
		r.opts.OnDesync(reason, dropped)
	}
	r.base += int64(dropped)
	r.filled = 0
	r.pending = nil
	r.skip = 0
	r.ignoreOOB = r.opts.IgnoreFirstOOB
}

package stego

import (
	"errors"
	"fmt"
	"io"

	"mp3nema/mp3parser"
)

var ErrShortPayload = errors.New("payload ended early")

// Options tunes a single injection.
type Options struct {
	Guard           int
	MaxFrameRetries int
}

func DefaultOptions() Options {
	return Options{
		Guard:           DefaultGuardFrames,
		MaxFrameRetries: mp3parser.DefaultMaxRetries,
	}
}

// Result describes one finished injection.
type Result struct {
	Plan       Plan
	Injected   int64
	OutputSize int64
}

// Inject copies dst to out and writes n bytes read from payload between its
// objects. Every frame and tag is copied byte for byte, together with the
// OOB bytes in front of it, so the output is exactly n bytes longer than
// dst and scans to the same objects.
func Inject(dst io.ReadSeeker, payload io.Reader, out io.Writer, n int64, opts Options) (*Result, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative payload size %d", n)
	}

	spans, frames, err := CountObjects(dst, opts.MaxFrameRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to scan destination: %w", err)
	}
	size, err := dst.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	res := &Result{Plan: PlanInjection(n, frames, len(spans), opts.Guard)}
	plan := res.Plan

	var pos int64
	block := 0
	for i, sp := range spans {
		if err := copyDst(out, dst, sp.End-pos, res); err != nil {
			return res, err
		}
		pos = sp.End

		if i > plan.Guard && block < plan.BlockCount {
			if err := copyPayload(out, payload, plan.BlockLen(block), res); err != nil {
				return res, err
			}
			block++
		}
	}

	if plan.BlockCount == 0 {
		if err := copyPayload(out, payload, n, res); err != nil {
			return res, err
		}
	}

	// trailing OOB and legacy trailer
	if err := copyDst(out, dst, size-pos, res); err != nil {
		return res, err
	}
	return res, nil
}

func copyDst(out io.Writer, dst io.Reader, n int64, res *Result) error {
	if n <= 0 {
		return nil
	}
	written, err := io.CopyN(out, dst, n)
	res.OutputSize += written
	if err != nil {
		return fmt.Errorf("failed to copy destination bytes: %w", err)
	}
	return nil
}

func copyPayload(out io.Writer, payload io.Reader, n int64, res *Result) error {
	if n <= 0 {
		return nil
	}
	written, err := io.CopyN(out, payload, n)
	res.OutputSize += written
	res.Injected += written
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: wanted %d more bytes, got %d", ErrShortPayload, n, written)
	}
	if err != nil {
		return fmt.Errorf("failed to copy payload: %w", err)
	}
	return nil
}

package stego

import (
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// Pack compresses r into a temporary file positioned at its start. The
// caller removes the file.
func Pack(r io.Reader) (*os.File, error) {
	tmp, err := os.CreateTemp("", "mp3nema-payload-*.lz4")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	fail := func(err error) (*os.File, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	zw := lz4.NewWriter(tmp)
	if _, err := io.Copy(zw, r); err != nil {
		return fail(fmt.Errorf("failed to compress payload: %w", err))
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("failed to compress payload: %w", err))
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fail(err)
	}
	return tmp, nil
}

// Unpack decompresses an LZ4 frame, e.g. a payload recovered from OOB data.
func Unpack(r io.Reader, w io.Writer) (int64, error) {
	zr := lz4.NewReader(r)
	n, err := io.Copy(w, zr)
	if err != nil {
		return n, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return n, nil
}

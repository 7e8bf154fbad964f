package stego

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mp3nema/metrics"
	"mp3nema/output"
)

var ErrNoDestinations = errors.New("no destination files found")

// Destination is one file the payload can be spread into.
type Destination struct {
	Path   string
	Size   int64
	Frames int
}

// LoadDestinations returns target itself when it is a file, or every file in
// the directory whose name contains ext, sorted by name. Each one is scanned
// once for its frame count. Files that cannot be scanned are skipped.
func LoadDestinations(target, ext string, maxRetries int) ([]Destination, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("could not open '%s': %w", target, err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, fmt.Errorf("could not list '%s': %w", target, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && strings.Contains(e.Name(), ext) {
				paths = append(paths, filepath.Join(target, e.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{target}
	}

	var dests []Destination
	for _, path := range paths {
		d, err := loadDestination(path, maxRetries)
		if err != nil {
			log.Printf("Skipping destination: %v", err)
			continue
		}
		dests = append(dests, d)
	}

	if len(dests) == 0 {
		return nil, fmt.Errorf("%w in '%s'", ErrNoDestinations, target)
	}
	return dests, nil
}

func loadDestination(path string, maxRetries int) (Destination, error) {
	f, err := os.Open(path)
	if err != nil {
		return Destination{}, fmt.Errorf("could not open '%s': %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Destination{}, err
	}
	_, frames, err := CountObjects(f, maxRetries)
	if err != nil {
		return Destination{}, fmt.Errorf("could not scan '%s': %w", path, err)
	}
	return Destination{Path: path, Size: info.Size(), Frames: frames}, nil
}

// BatchOptions configures InjectAll.
type BatchOptions struct {
	Options
	MediaExt  string
	OutputDir string
	// LZ4 compresses the payload before it is spread.
	LZ4     bool
	Metrics *metrics.Metrics
}

// Injection is the outcome for one destination.
type Injection struct {
	Destination Destination
	Output      string
	Result      *Result
	Err         error
}

// InjectAll spreads the payload file across every destination under target.
// Each destination gets remaining/destinations-left bytes, the last one
// whatever is left. A destination that fails keeps its share in the pool.
func InjectAll(target, payloadPath string, opts BatchOptions) ([]Injection, error) {
	payload, err := os.Open(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("could not open payload '%s': %w", payloadPath, err)
	}
	defer payload.Close()

	if opts.LZ4 {
		packed, err := Pack(payload)
		if err != nil {
			return nil, err
		}
		defer func() {
			packed.Close()
			os.Remove(packed.Name())
		}()
		payload = packed
	}

	info, err := payload.Stat()
	if err != nil {
		return nil, err
	}

	if opts.MediaExt == "" {
		opts.MediaExt = ".mp3"
	}
	dests, err := LoadDestinations(target, opts.MediaExt, opts.MaxFrameRetries)
	if err != nil {
		return nil, err
	}

	var offset int64
	remaining := info.Size()
	results := make([]Injection, 0, len(dests))
	for i, d := range dests {
		share := remaining / int64(len(dests)-i)
		if i == len(dests)-1 {
			share = remaining
		}

		inj := injectOne(target, d, i, io.NewSectionReader(payload, offset, share), share, opts)
		if opts.Metrics != nil {
			var injected int64
			if inj.Result != nil {
				injected = inj.Result.Injected
			}
			opts.Metrics.RecordInjection(injected, inj.Err)
		}
		if inj.Err != nil {
			log.Printf("Injection into '%s' failed: %v", d.Path, inj.Err)
		} else {
			offset += share
			remaining -= share
		}
		results = append(results, inj)
	}
	return results, nil
}

func injectOne(target string, d Destination, i int, payload io.Reader, share int64, opts BatchOptions) Injection {
	inj := Injection{Destination: d}

	src, err := os.Open(d.Path)
	if err != nil {
		inj.Err = fmt.Errorf("could not open destination: %w", err)
		return inj
	}
	defer src.Close()

	ext := strings.TrimPrefix(opts.MediaExt, ".")
	out, err := output.Create(opts.OutputDir, target, fmt.Sprintf("injected-%d", i+1), ext, false)
	if err != nil {
		inj.Err = err
		return inj
	}
	inj.Output = out.Name()

	inj.Result, inj.Err = Inject(src, payload, out, share, opts.Options)
	if err := out.Close(); err != nil && inj.Err == nil {
		inj.Err = fmt.Errorf("failed to close output: %w", err)
	}
	if inj.Err != nil {
		os.Remove(inj.Output)
		inj.Output = ""
	}
	return inj
}

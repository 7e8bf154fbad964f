// Package analyzer counts the frames, tags and out-of-band data of an MP3
// file or upload.
package analyzer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"mp3nema/metrics"
	"mp3nema/mp3parser"
)

// Options controls one analysis run. A nil Metrics disables recording.
type Options struct {
	MaxFrameRetries int
	// Regions splits Layer III payloads to count ancillary bytes.
	Regions  bool
	Reporter *Reporter
	// OOBSink receives the raw out-of-band bytes (extraction).
	OOBSink io.Writer
	Metrics *metrics.Metrics
	Source  string
}

// Analyze scans rs from its current position to the end. A truncated final
// object ends the scan and is flagged in the report, not returned as an error.
func Analyze(rs io.ReadSeeker, opts Options) (*Report, error) {
	if opts.Source == "" {
		opts.Source = metrics.SourceFile
	}
	report := &Report{Versions: map[string]int{}}

	scanner := mp3parser.NewScanner(rs, mp3parser.ScanOptions{
		Sink: opts.OOBSink,
		OnOOB: func(offset int64, oob []byte) {
			report.addOOB(offset, len(oob))
			opts.Reporter.OOB(offset, oob)
			if opts.Metrics != nil {
				opts.Metrics.RecordOOB(opts.Source, len(oob))
			}
		},
	})

	for {
		obj, err := scanner.Next()
		if err != nil {
			return report, err
		}

		switch obj.Kind {
		case mp3parser.ObjectMP3Frame:
			frame, err := mp3parser.ReadFrame(rs, opts.MaxFrameRetries)
			if err != nil {
				return report, stopOn(report, err)
			}
			report.Frames++
			report.Versions[frame.Header.Version.String()+" "+frame.Header.Layer.String()]++
			if opts.Regions && frame.Header.Layer == mp3parser.Layer3 {
				if regions, err := mp3parser.AnalyzeFrameData(frame.Header, frame.Audio); err == nil {
					report.AncillaryBytes += len(regions.AncillaryData)
				}
			}

		case mp3parser.ObjectID3v2Tag:
			if _, err := mp3parser.ReadTag(rs); err != nil {
				return report, stopOn(report, err)
			}
			report.Tags++

		default:
			return report, nil
		}

		if opts.Metrics != nil {
			opts.Metrics.RecordObject(opts.Source, obj.Kind.String())
		}
	}
}

func stopOn(report *Report, err error) error {
	if errors.Is(err, mp3parser.ErrTruncated) {
		log.Printf("Warning: %v", err)
		report.Truncated = true
		return nil
	}
	return err
}

// AnalyzeFile opens path and analyzes it from the start.
func AnalyzeFile(path string, opts Options) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open '%s': %w", path, err)
	}
	defer f.Close()

	return Analyze(f, opts)
}

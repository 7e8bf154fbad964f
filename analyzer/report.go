package analyzer

import (
	"fmt"
	"io"
)

// Prefix starts every line of user facing output.
const Prefix = "[mp3nema]"

// Region is one contiguous run of out-of-band bytes.
type Region struct {
	Offset int64 `json:"offset"`
	Size   int   `json:"size"`
}

// Report summarizes a scanned source.
type Report struct {
	Frames         int            `json:"frames"`
	Tags           int            `json:"tags"`
	OOBBytes       int64          `json:"oob_bytes"`
	OOBRegions     []Region       `json:"oob_regions,omitempty"`
	AncillaryBytes int            `json:"ancillary_bytes,omitempty"`
	Versions       map[string]int `json:"versions,omitempty"`
	Truncated      bool           `json:"truncated"`
}

func (r *Report) addOOB(offset int64, n int) {
	r.OOBBytes += int64(n)
	r.OOBRegions = append(r.OOBRegions, Region{Offset: offset, Size: n})
}

// Print writes the frame and tag totals.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "%s Frames: %d\n", Prefix, r.Frames)
	fmt.Fprintf(w, "%s ID3v2 Tags: %d\n", Prefix, r.Tags)
	if r.Truncated {
		fmt.Fprintf(w, "%s Last object truncated\n", Prefix)
	}
}

// Reporter prints OOB batches as they are found. Verbose mode dumps every
// byte, otherwise only the batch size is printed.
type Reporter struct {
	Out     io.Writer
	Verbose bool
}

func (r *Reporter) OOB(offset int64, oob []byte) {
	if r == nil || r.Out == nil || len(oob) == 0 {
		return
	}
	if !r.Verbose {
		fmt.Fprintf(r.Out, "%s %d bytes out-of-frame\n", Prefix, len(oob))
		return
	}

	fmt.Fprintf(r.Out, "--OOB Data Found: %d bytes at offset %d--\n", len(oob), offset)
	for _, b := range oob {
		c := byte(' ')
		if b > 31 && b < 127 {
			c = b
		}
		fmt.Fprintf(r.Out, "0x%.2x(%c) ", b, c)
	}
	fmt.Fprint(r.Out, "\n----------------------------\n\n")
}

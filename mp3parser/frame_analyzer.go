package mp3parser

import (
	"fmt"
	"io"
)

// FrameRegions splits a Layer III frame payload. The split is approximate:
// main data may begin in an earlier frame (bit reservoir).
type FrameRegions struct {
	SideInfo      []byte
	MainData      []byte
	AncillaryData []byte
	Padding       []byte
}

type BitReader struct {
	data []byte
	pos  int // bit position
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

func (br *BitReader) ReadBits(n int) (uint32, error) {
	if n <= 0 || n > 32 {
		return 0, fmt.Errorf("invalid bit count")
	}
	var val uint32
	for i := 0; i < n; i++ {
		bytePos := br.pos / 8
		if bytePos >= len(br.data) {
			return 0, io.EOF
		}
		bitPos := 7 - (br.pos % 8)
		bit := (br.data[bytePos] >> bitPos) & 1
		val = (val << 1) | uint32(bit)
		br.pos++
	}
	return val, nil
}

type GranuleChannelInfo struct {
	Part23Length uint32
	BigValues    uint32
	GlobalGain   uint32
}

func mono(h *FrameHeader) bool {
	return h.ChannelMode == 3
}

func sideInfoSize(h *FrameHeader) int {
	switch {
	case h.Version == MPEG1 && mono(h):
		return 17
	case h.Version == MPEG1:
		return 32
	case mono(h):
		return 9
	}
	return 17
}

func ParseSideInfo(h *FrameHeader, sideInfo []byte) ([][]GranuleChannelInfo, error) {
	br := NewBitReader(sideInfo)

	// main_data_begin
	if h.Version == MPEG1 {
		_, _ = br.ReadBits(9)
	} else {
		_, _ = br.ReadBits(8)
	}

	// Skip private bits, and scfsi for MPEG-1
	switch {
	case h.Version == MPEG1 && mono(h):
		_, _ = br.ReadBits(5 + 4)
	case h.Version == MPEG1:
		_, _ = br.ReadBits(3 + 8)
	case mono(h):
		_, _ = br.ReadBits(1)
	default:
		_, _ = br.ReadBits(2)
	}

	// Granule count: MPEG-1 = 2, MPEG-2/2.5 = 1
	granules := 1
	if h.Version == MPEG1 {
		granules = 2
	}
	channels := 2
	if mono(h) {
		channels = 1
	}

	result := make([][]GranuleChannelInfo, granules)
	for gr := 0; gr < granules; gr++ {
		result[gr] = make([]GranuleChannelInfo, channels)
		for ch := 0; ch < channels; ch++ {
			p23, err := br.ReadBits(12)
			if err != nil {
				return nil, fmt.Errorf("side info too short: %w", err)
			}
			bv, _ := br.ReadBits(9)
			gg, _ := br.ReadBits(8)
			result[gr][ch] = GranuleChannelInfo{
				Part23Length: p23,
				BigValues:    bv,
				GlobalGain:   gg,
			}
			// rest of the granule: 59 bits in total (MPEG-1) or 63 bits
			if h.Version == MPEG1 {
				_, _ = br.ReadBits(30)
			} else {
				_, _ = br.ReadBits(32)
				_, _ = br.ReadBits(2)
			}
		}
	}
	return result, nil
}

// AnalyzeFrameData splits the audio payload (everything after the header and
// CRC) of a Layer III frame.
func AnalyzeFrameData(h *FrameHeader, audio []byte) (*FrameRegions, error) {
	if h.Layer != Layer3 {
		return nil, fmt.Errorf("region analysis needs Layer III, got %s", h.Layer)
	}
	if len(audio) < 4 {
		return nil, fmt.Errorf("frame data too short")
	}

	regions := &FrameRegions{}

	size := sideInfoSize(h)
	if size >= len(audio) {
		regions.SideInfo = audio
		return regions, nil
	}

	regions.SideInfo = audio[:size]
	remaining := audio[size:]

	granules, err := ParseSideInfo(h, regions.SideInfo)
	if err != nil {
		return nil, err
	}

	// Sum part2_3_length (bits → bytes)
	mainBits := 0
	for _, gr := range granules {
		for _, ch := range gr {
			mainBits += int(ch.Part23Length)
		}
	}
	mainBytes := (mainBits + 7) / 8
	if mainBytes > len(remaining) {
		mainBytes = len(remaining)
	}

	regions.MainData = remaining[:mainBytes]
	rest := remaining[mainBytes:]

	// Split ancillary vs padding
	paddingStart := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		if rest[i] == 0x00 {
			paddingStart = i
		} else {
			break
		}
	}

	regions.AncillaryData = rest[:paddingStart]
	regions.Padding = rest[paddingStart:]

	return regions, nil
}

package mp3parser

import "fmt"

// bitrateTable holds kbit/s values.
// Row: bitrate index from the header. Column: version/layer combination,
// see bitrateColumn.
var bitrateTable = [16][5]int{
	/* 0000 */ {0, 0, 0, 0, 0},
	/* 0001 */ {32, 32, 32, 32, 8},
	/* 0010 */ {64, 48, 40, 48, 16},
	/* 0011 */ {96, 56, 48, 56, 24},
	/* 0100 */ {128, 64, 56, 64, 32},
	/* 0101 */ {160, 80, 64, 80, 40},
	/* 0110 */ {192, 96, 80, 96, 48},
	/* 0111 */ {224, 112, 96, 112, 56},
	/* 1000 */ {256, 128, 112, 128, 64},
	/* 1001 */ {288, 160, 128, 144, 80},
	/* 1010 */ {320, 192, 160, 160, 96},
	/* 1011 */ {352, 224, 192, 176, 112},
	/* 1100 */ {384, 256, 224, 192, 128},
	/* 1101 */ {416, 320, 256, 224, 144},
	/* 1110 */ {448, 384, 320, 256, 160},
	/* 1111 */ {-1, -1, -1, -1, -1},
}

// sampleRateTable is indexed by [samplerate index][MPEG1, MPEG2, MPEG2.5].
var sampleRateTable = [4][3]int{
	/* 00 */ {44100, 22050, 11025},
	/* 01 */ {48000, 24000, 12000},
	/* 10 */ {32000, 16000, 8000},
	/* 11 */ {0, 0, 0},
}

// IsSync reports whether b starts with the 11 bit frame sync pattern.
func IsSync(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}

// ParseFrameHeader decodes the header fields from raw bytes.
// Bits: AAAAAAAA AAABBCCD EEEEFFGH IIJJKLMM
// A = sync, B = version, C = layer, D = protection, E = bitrate index,
// F = samplerate index, G = padding, H = private, I = channel mode
func ParseFrameHeader(b []byte) (*FrameHeader, error) {
	if len(b) < MinFrameHeaderSize {
		return nil, fmt.Errorf("frame header too short: %d bytes", len(b))
	}

	h := &FrameHeader{
		Version:         Version((b[1] & 0x18) >> 3),
		Layer:           Layer((b[1] & 0x06) >> 1),
		CRC:             b[1]&0x01 == 0,
		BitrateIndex:    int((b[2] & 0xF0) >> 4),
		SampleRateIndex: int((b[2] & 0x0C) >> 2),
		Padding:         (b[2]&0x02)>>1 == 1,
		ChannelMode:     int((b[3] & 0xC0) >> 6),
		HeaderSize:      MinFrameHeaderSize,
	}
	if h.CRC {
		h.HeaderSize += CRCSize
	}

	n := MinFrameHeaderSize
	if h.CRC && len(b) >= h.HeaderSize {
		n = h.HeaderSize
	}
	h.Raw = append([]byte(nil), b[:n]...)
	h.AudioSize = frameLength(h) - h.HeaderSize

	return h, nil
}

// Valid is the predicate a sync match must pass before it is accepted.
func (h *FrameHeader) Valid() bool {
	return !(h.SampleRateIndex == 0x3 || h.BitrateIndex == 0xF || h.AudioSize < 0)
}

// Bitrate returns bits per second, or 0 for unsupported combinations.
func (h *FrameHeader) Bitrate() int {
	col := bitrateColumn(h.Version, h.Layer)
	if col < 0 {
		return 0
	}
	rate := bitrateTable[h.BitrateIndex][col] * 1000
	if rate < 0 {
		return 0
	}
	return rate
}

// SampleRate returns Hz, or 0 for unsupported combinations.
func (h *FrameHeader) SampleRate() int {
	var col int
	switch h.Version {
	case MPEG1:
		col = 0
	case MPEG2:
		col = 1
	case MPEG25:
		col = 2
	default:
		return 0
	}
	return sampleRateTable[h.SampleRateIndex][col]
}

// bitrateColumn maps version/layer to a bitrateTable column, -1 when the
// combination is reserved. MPEG2.5 shares the MPEG2 columns.
func bitrateColumn(v Version, l Layer) int {
	if v == VersionReserved || l == LayerReserved {
		return -1
	}
	if v == MPEG25 {
		v = MPEG2
	}

	var col int
	switch {
	case v == MPEG2 && (l == Layer2 || l == Layer3):
		col = 4
	case v == MPEG2 && l == Layer1:
		col = 3
	default:
		col = int(v) - int(l)
	}
	if col < 0 || col >= len(bitrateTable[0]) {
		return -1
	}
	return col
}

// frameLength returns the total frame length in bytes, or 0 when the
// bitrate or samplerate is unsupported.
func frameLength(h *FrameHeader) int {
	bitrate := h.Bitrate()
	if bitrate <= 0 {
		return 0
	}
	sampleRate := h.SampleRate()
	if sampleRate == 0 {
		return 0
	}

	padding := btoi(h.Padding)
	if h.Layer == Layer1 {
		return (12*bitrate/sampleRate + padding) * 4
	}
	return 144*bitrate/sampleRate + padding
}

// read syncsafe int for ID3v2 size
func syncSafeToInt(b []byte) int {
	return int(b[0]&0x7F)<<21 |
		int(b[1]&0x7F)<<14 |
		int(b[2]&0x7F)<<7 |
		int(b[3]&0x7F)
}

// IsTag reports whether b starts with the ID3v2 signature.
func IsTag(b []byte) bool {
	return len(b) >= 3 && b[0] == 'I' && b[1] == 'D' && b[2] == '3'
}

// ParseTagHeader decodes a 10 byte ID3v2 header.
func ParseTagHeader(b []byte) (*TagHeader, error) {
	if len(b) < TagHeaderSize {
		return nil, fmt.Errorf("tag header too short: %d bytes", len(b))
	}
	if !IsTag(b) {
		return nil, ErrNotATag
	}
	return &TagHeader{
		Version:        [2]byte{b[3], b[4]},
		ExtendedHeader: b[5]&0x40 != 0,
		Footer:         b[5]&0x10 != 0,
		Size:           syncSafeToInt(b[6:10]),
	}, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

package mp3parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameHeader_Lengths(t *testing.T) {
	tests := []struct {
		name       string
		header     []byte
		version    Version
		layer      Layer
		bitrate    int
		sampleRate int
		length     int
		headerSize int
	}{
		{"mpeg1 layer3", []byte{0xFF, 0xFB, 0x90, 0x00}, MPEG1, Layer3, 128000, 44100, 417, 4},
		{"mpeg1 layer3 padded", []byte{0xFF, 0xFB, 0x92, 0x00}, MPEG1, Layer3, 128000, 44100, 418, 4},
		{"mpeg1 layer3 crc", []byte{0xFF, 0xFA, 0x90, 0x00}, MPEG1, Layer3, 128000, 44100, 417, 6},
		{"mpeg1 layer2", []byte{0xFF, 0xFD, 0x90, 0x00}, MPEG1, Layer2, 160000, 44100, 522, 4},
		{"mpeg1 layer1", []byte{0xFF, 0xFF, 0x90, 0x00}, MPEG1, Layer1, 288000, 44100, 312, 4},
		{"mpeg2 layer3", []byte{0xFF, 0xF3, 0x90, 0x00}, MPEG2, Layer3, 80000, 22050, 522, 4},
		{"mpeg2 layer1", []byte{0xFF, 0xF7, 0x90, 0x00}, MPEG2, Layer1, 144000, 22050, 312, 4},
		{"mpeg2.5 layer3", []byte{0xFF, 0xE3, 0x90, 0x00}, MPEG25, Layer3, 80000, 11025, 1044, 4},
		{"mpeg1 layer3 48k", []byte{0xFF, 0xFB, 0x94, 0x00}, MPEG1, Layer3, 128000, 48000, 384, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseFrameHeader(tt.header)
			require.NoError(t, err)

			assert.Equal(t, tt.version, h.Version)
			assert.Equal(t, tt.layer, h.Layer)
			assert.Equal(t, tt.bitrate, h.Bitrate())
			assert.Equal(t, tt.sampleRate, h.SampleRate())
			assert.Equal(t, tt.length, h.FrameLength())
			assert.Equal(t, tt.headerSize, h.HeaderSize)
			assert.True(t, h.Valid())
		})
	}
}

func TestParseFrameHeader_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"reserved bitrate", []byte{0xFF, 0xFB, 0xF0, 0x00}},
		{"reserved samplerate", []byte{0xFF, 0xFB, 0x9C, 0x00}},
		{"free format bitrate", []byte{0xFF, 0xFB, 0x00, 0x00}},
		{"reserved layer", []byte{0xFF, 0xF9, 0x90, 0x00}},
		{"reserved version", []byte{0xFF, 0xEB, 0x90, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseFrameHeader(tt.header)
			require.NoError(t, err)
			assert.False(t, h.Valid())
		})
	}
}

func TestParseFrameHeader_TooShort(t *testing.T) {
	_, err := ParseFrameHeader([]byte{0xFF, 0xFB, 0x90})
	assert.Error(t, err)
}

func TestParseFrameHeader_Idempotent(t *testing.T) {
	for b1 := 0xE0; b1 <= 0xFF; b1++ {
		for b2 := 0; b2 <= 0xFF; b2++ {
			raw := []byte{0xFF, byte(b1), byte(b2), 0x44, 0x12, 0x34}
			first, err := ParseFrameHeader(raw)
			require.NoError(t, err)

			again, err := ParseFrameHeader(first.Raw)
			require.NoError(t, err)
			assert.Equal(t, first.FrameLength(), again.FrameLength())
			assert.Equal(t, first.Valid(), again.Valid())
			assert.Equal(t, first.Raw, again.Raw)
		}
	}
}

func TestParseFrameHeader_CRCBytesKept(t *testing.T) {
	h, err := ParseFrameHeader([]byte{0xFF, 0xFA, 0x90, 0x00, 0xAB, 0xCD})
	require.NoError(t, err)
	assert.True(t, h.CRC)
	assert.Equal(t, []byte{0xFF, 0xFA, 0x90, 0x00, 0xAB, 0xCD}, h.Raw)
	assert.Equal(t, 411, h.AudioSize)
}

func TestSyncSafeToInt(t *testing.T) {
	assert.Equal(t, 127, syncSafeToInt([]byte{0, 0, 0, 0x7F}))
	assert.Equal(t, 128, syncSafeToInt([]byte{0, 0, 1, 0}))
	assert.Equal(t, 16384, syncSafeToInt([]byte{0, 1, 0, 0}))
	assert.Equal(t, 1<<28-1, syncSafeToInt([]byte{0x7F, 0x7F, 0x7F, 0x7F}))
	// the high bit of every byte is ignored
	assert.Equal(t, 127, syncSafeToInt([]byte{0x80, 0x80, 0x80, 0xFF}))
}

func TestParseTagHeader(t *testing.T) {
	h, err := ParseTagHeader([]byte{'I', 'D', '3', 4, 0, 0x50, 0, 0, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, [2]byte{4, 0}, h.Version)
	assert.True(t, h.ExtendedHeader)
	assert.True(t, h.Footer)
	assert.Equal(t, 128, h.Size)
	assert.Equal(t, 148, h.TotalSize())

	h, err = ParseTagHeader([]byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0x7F})
	require.NoError(t, err)
	assert.False(t, h.Footer)
	assert.Equal(t, 127, h.Size)
	assert.Equal(t, 137, h.TotalSize())

	_, err = ParseTagHeader([]byte("TAG0000000"))
	assert.ErrorIs(t, err, ErrNotATag)

	_, err = ParseTagHeader([]byte("ID3"))
	assert.Error(t, err)
}

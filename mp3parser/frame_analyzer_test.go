package mp3parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader(t *testing.T) {
	br := NewBitReader([]byte{0b10110010, 0xFF})

	v, err := br.ReadBits(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b101), v)

	v, err = br.ReadBits(9)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b100101111), v)

	_, err = br.ReadBits(5)
	assert.Error(t, err)

	_, err = br.ReadBits(0)
	assert.Error(t, err)
}

func TestAnalyzeFrameData(t *testing.T) {
	h, err := ParseFrameHeader([]byte{0xFF, 0xFB, 0x90, 0xC0}) // mono
	require.NoError(t, err)

	audio := make([]byte, h.AudioSize)
	// part2_3_length of granule 0 = 800 bits (100 bytes), granule 1 = 0
	// side info layout: 9 main_data_begin, 5 private, 4 scfsi, then 12 bits
	audio[2] = 0x0C
	audio[3] = 0x80
	for i := 17 + 100; i < 17+150; i++ {
		audio[i] = 0xAA
	}

	regions, err := AnalyzeFrameData(h, audio)
	require.NoError(t, err)
	assert.Len(t, regions.SideInfo, 17)
	assert.Len(t, regions.MainData, 100)
	assert.Len(t, regions.AncillaryData, 50)
	assert.Len(t, regions.Padding, h.AudioSize-17-150)
}

func TestAnalyzeFrameData_RejectsOtherLayers(t *testing.T) {
	h, err := ParseFrameHeader([]byte{0xFF, 0xFD, 0x90, 0x00})
	require.NoError(t, err)

	_, err = AnalyzeFrameData(h, make([]byte, h.AudioSize))
	assert.Error(t, err)
}

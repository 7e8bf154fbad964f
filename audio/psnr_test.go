package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"mp3nema/models"
)

func pcm(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestCalculatePSNR(t *testing.T) {
	a := pcm(100, -200, 300, -400)
	assert.True(t, math.IsInf(CalculatePSNR(a, a), 1))

	// one sample off by 2: MSE = 4/4 = 1
	b := pcm(100, -200, 302, -400)
	assert.InDelta(t, 20*math.Log10(32767), CalculatePSNR(a, b), 1e-9)

	assert.Zero(t, CalculatePSNR(a, pcm(1, 2)))
	assert.Zero(t, CalculatePSNR(nil, nil))
}

func TestValidatePSNR(t *testing.T) {
	assert.True(t, ValidatePSNR(math.Inf(1), 60))
	assert.True(t, ValidatePSNR(61, 60))
	assert.False(t, ValidatePSNR(59.9, 60))
}

func TestCompare(t *testing.T) {
	meta := &models.AudioMetadata{SampleRate: 44100, Channels: 1, BitDepth: 16}
	a := pcm(1, 2, 3, 4)

	v := compare(a, a, meta, meta, DefaultPSNRThreshold)
	assert.True(t, v.Transparent)
	assert.True(t, v.SameLength)

	v = compare(a, pcm(1, 2, 3), meta, meta, DefaultPSNRThreshold)
	assert.False(t, v.Transparent)
	assert.False(t, v.SameLength)

	v = compare(a, pcm(-30000, 30000, -30000, 30000), meta, meta, DefaultPSNRThreshold)
	assert.False(t, v.Transparent)
}

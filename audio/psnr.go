package audio

import (
	"encoding/binary"
	"math"
)

// CalculatePSNR compares two little-endian 16-bit PCM buffers. Buffers of
// different length cannot be compared and give 0.
func CalculatePSNR(original, modified []byte) float64 {
	if len(original) != len(modified) || len(original) < 2 {
		return 0.0
	}

	n := len(original) / 2
	var mse float64
	for i := 0; i < n; i++ {
		a := int16(binary.LittleEndian.Uint16(original[i*2:]))
		b := int16(binary.LittleEndian.Uint16(modified[i*2:]))
		diff := float64(a) - float64(b)
		mse += diff * diff
	}
	mse /= float64(n)

	// If MSE is 0, signals are identical
	if mse == 0 {
		return math.Inf(1)
	}

	// PSNR = 20 * log10(MAX / sqrt(MSE)), MAX for 16-bit samples
	maxSignalValue := float64(math.MaxInt16)
	return 20 * math.Log10(maxSignalValue/math.Sqrt(mse))
}

func ValidatePSNR(psnr float64, threshold float64) bool {
	if math.IsInf(psnr, 1) {
		return true // Infinite PSNR is always good
	}
	return psnr >= threshold
}

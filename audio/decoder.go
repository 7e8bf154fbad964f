// Package audio decodes MP3 data to check that an injected file still sounds
// like its carrier.
package audio

import (
	"errors"
	"fmt"

	"github.com/tosone/minimp3"

	"mp3nema/models"
)

// DefaultPSNRThreshold is the lowest PSNR (dB) Verify accepts as unchanged
// audio.
const DefaultPSNRThreshold = 60.0

var ErrNoAudio = errors.New("no decodable audio")

// Decode turns MP3 bytes into 16-bit PCM. The decoder resynchronizes on its
// own, so OOB bytes between frames are skipped.
func Decode(mp3Data []byte) ([]byte, *models.AudioMetadata, error) {
	decoder, data, err := minimp3.DecodeFull(mp3Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer decoder.Close()

	if len(data) == 0 || decoder.Channels == 0 || decoder.SampleRate == 0 {
		return nil, nil, ErrNoAudio
	}

	samplesPerChannel := len(data) / 2 / decoder.Channels // 2 bytes per 16-bit sample
	metadata := &models.AudioMetadata{
		SampleRate: decoder.SampleRate,
		Channels:   decoder.Channels,
		BitDepth:   16,
		Duration:   float64(samplesPerChannel) / float64(decoder.SampleRate),
		TotalBytes: len(data),
	}
	return data, metadata, nil
}

// Verify decodes both files and compares their PCM.
func Verify(original, injected []byte, threshold float64) (*models.Verification, error) {
	origPCM, origMeta, err := Decode(original)
	if err != nil {
		return nil, fmt.Errorf("original: %w", err)
	}
	injPCM, injMeta, err := Decode(injected)
	if err != nil {
		return nil, fmt.Errorf("injected: %w", err)
	}
	return compare(origPCM, injPCM, origMeta, injMeta, threshold), nil
}

func compare(origPCM, injPCM []byte, origMeta, injMeta *models.AudioMetadata, threshold float64) *models.Verification {
	psnr := CalculatePSNR(origPCM, injPCM)
	return &models.Verification{
		Original:    origMeta,
		Injected:    injMeta,
		PSNR:        psnr,
		SameLength:  len(origPCM) == len(injPCM),
		Transparent: len(origPCM) == len(injPCM) && ValidatePSNR(psnr, threshold),
		ThresholdDB: threshold,
	}
}

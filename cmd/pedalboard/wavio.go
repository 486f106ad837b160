package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// readWAV decodes a WAV file into per-channel float64 samples in [-1, 1].
func readWAV(path string) ([][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, 0, fmt.Errorf("no channels in %s", path)
	}

	scale := 1.0 / float64(int(1)<<(decoder.BitDepth-1))
	frames := len(buf.Data) / numChannels

	channels := make([][]float64, numChannels)
	for ch := range channels {
		channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			channels[ch][i] = float64(buf.Data[i*numChannels+ch]) * scale
		}
	}

	return channels, buf.Format.SampleRate, nil
}

// writeWAV encodes per-channel float64 samples as 16-bit PCM.
func writeWAV(path string, channels [][]float64, sampleRate int) error {
	if len(channels) == 0 {
		return fmt.Errorf("no channels to write")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	numChannels := len(channels)
	frames := len(channels[0])

	enc := wav.NewEncoder(f, sampleRate, 16, numChannels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*numChannels),
		SourceBitDepth: 16,
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			buf.Data[i*numChannels+ch] = int(sampleToInt16(channels[ch][i]))
		}
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// sampleToInt16 clamps a float64 sample and scales it to 16-bit PCM.
func sampleToInt16(x float64) int16 {
	if x > 1 {
		x = 1
	}
	if x < -1 {
		x = -1
	}
	return int16(x * 32767)
}

// adaptChannels converts decoded channels to the requested count: extra
// channels are mixed down, a missing right channel is duplicated.
func adaptChannels(channels [][]float64, want int) [][]float64 {
	if len(channels) == want {
		return channels
	}

	if want == 1 {
		frames := len(channels[0])
		mono := make([]float64, frames)
		for i := range mono {
			sum := 0.0
			for ch := range channels {
				sum += channels[ch][i]
			}
			mono[i] = sum / float64(len(channels))
		}
		return [][]float64{mono}
	}

	left := channels[0]
	right := make([]float64, len(left))
	copy(right, left)
	return [][]float64{left, right}
}

package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when an engine configuration is rejected at
// construction.
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Mode selects mono or stereo processing.
type Mode int

const (
	// ModeMono processes a single channel.
	ModeMono Mode = iota
	// ModeStereo processes synchronized left/right channels.
	ModeStereo
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMono:
		return "mono"
	case ModeStereo:
		return "stereo"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Channels returns the channel count for the mode.
func (m Mode) Channels() int {
	if m == ModeStereo {
		return 2
	}
	return 1
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "mono":
		return ModeMono, nil
	case "stereo":
		return ModeStereo, nil
	default:
		return 0, fmt.Errorf("%w: audio mode must be mono or stereo: %q", ErrInvalidConfig, s)
	}
}

// Config holds the fixed audio format of an engine. All fields are set at
// construction and never change while the engine exists.
type Config struct {
	// SampleRate is the stream rate in Hz.
	SampleRate int
	// BufferSize is the period length in frames. Lower values reduce
	// latency and raise overrun risk.
	BufferSize int
	// Mode selects mono or stereo processing.
	Mode Mode
}

// Validate rejects non-positive rates or sizes and unknown modes.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be > 0: %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be > 0: %d", ErrInvalidConfig, c.BufferSize)
	}
	if c.Mode != ModeMono && c.Mode != ModeStereo {
		return fmt.Errorf("%w: audio mode is invalid: %d", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// LatencyMS returns the period latency in milliseconds.
func (c Config) LatencyMS() float64 {
	return float64(c.BufferSize) / float64(c.SampleRate) * 1000
}

package pedal

import (
	"fmt"
	"math"
)

// Declared parameter names for the tremolo pedal.
const (
	ParamRate     = "rate"
	ParamDepth    = "depth"
	ParamWaveform = "waveform"
)

// TremoloWaveform selects the modulation shape.
type TremoloWaveform int

const (
	// TremoloWaveformSine modulates with a sine LFO.
	TremoloWaveformSine TremoloWaveform = iota
	// TremoloWaveformSquare modulates with a square LFO.
	TremoloWaveformSquare
	// TremoloWaveformTriangle modulates with a triangle LFO.
	TremoloWaveformTriangle
)

const (
	defaultTremoloRateHz = 5.0
	defaultTremoloDepth  = 0.5

	minTremoloRateHz = 0.1
	maxTremoloRateHz = 20.0
)

// TremoloOption mutates construction-time parameters.
type TremoloOption func(*Tremolo) error

// WithTremoloRate sets the modulation rate in [0.1, 20] Hz.
func WithTremoloRate(rateHz float64) TremoloOption {
	return func(t *Tremolo) error { return t.SetParameter(ParamRate, rateHz) }
}

// WithTremoloDepth sets the modulation depth in [0, 1].
func WithTremoloDepth(depth float64) TremoloOption {
	return func(t *Tremolo) error { return t.SetParameter(ParamDepth, depth) }
}

// WithTremoloWaveform selects the LFO shape.
func WithTremoloWaveform(waveform TremoloWaveform) TremoloOption {
	return func(t *Tremolo) error {
		if waveform < TremoloWaveformSine || waveform > TremoloWaveformTriangle {
			return fmt.Errorf("tremolo waveform is invalid: %d", waveform)
		}
		return t.SetParameter(ParamWaveform, float64(waveform))
	}
}

// Tremolo applies LFO amplitude modulation. The LFO phase accumulator
// persists across buffer boundaries so the modulation stays continuous.
type Tremolo struct {
	base

	rate     *param
	depth    *param
	waveform *param

	phase float64
}

// NewTremolo creates a tremolo pedal with the stock settings.
func NewTremolo(opts ...TremoloOption) (*Tremolo, error) {
	t := &Tremolo{
		rate:     newParam(ParamRate, minTremoloRateHz, maxTremoloRateHz, defaultTremoloRateHz),
		depth:    newParam(ParamDepth, 0, 1, defaultTremoloDepth),
		waveform: newParam(ParamWaveform, float64(TremoloWaveformSine), float64(TremoloWaveformTriangle), float64(TremoloWaveformSine)),
	}
	t.base = newBase("Tremolo", t.rate, t.depth, t.waveform)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Stereo reports false: both channels share the mono LFO.
func (t *Tremolo) Stereo() bool { return false }

// Process modulates buf in place. A disabled pedal leaves the buffer and
// its LFO phase untouched.
func (t *Tremolo) Process(buf []float64, sampleRate float64) {
	if !t.Enabled() {
		return
	}

	rate := t.rate.load()
	depth := t.depth.load()
	waveform := TremoloWaveform(math.Round(t.waveform.load()))

	increment := 2 * math.Pi * rate / sampleRate

	for i, x := range buf {
		var modulation float64
		switch waveform {
		case TremoloWaveformSquare:
			if math.Sin(t.phase) > 0 {
				modulation = 1
			} else {
				modulation = -1
			}
		case TremoloWaveformTriangle:
			modulation = 2 * math.Asin(math.Sin(t.phase)) / math.Pi
		default:
			modulation = math.Sin(t.phase)
		}

		buf[i] = x * (1 + depth*modulation) / 2

		t.phase += increment
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
	}
}

// ProcessStereo processes each channel independently through the shared
// LFO phase.
func (t *Tremolo) ProcessStereo(left, right []float64, sampleRate float64) {
	t.Process(left, sampleRate)
	t.Process(right, sampleRate)
}

// Reset rewinds the LFO phase.
func (t *Tremolo) Reset() {
	t.phase = 0
}

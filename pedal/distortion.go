package pedal

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DistortionMode selects the clipping transfer function.
type DistortionMode int

const (
	// DistortionModeSoft clips with an elementwise tanh.
	DistortionModeSoft DistortionMode = iota
	// DistortionModeHard clamps to [-0.7, 0.7] and renormalizes to ±1.
	DistortionModeHard
	// DistortionModeTube clips asymmetrically, tube style.
	DistortionModeTube
)

const (
	defaultDistortionDrive = 2.0
	defaultDistortionLevel = 0.5
	defaultDistortionTone  = 0.5

	minDistortionDrive = 1.0
	maxDistortionDrive = 10.0

	hardClipThreshold = 0.7
	toneCoeffScale    = 0.9
)

// DistortionOption mutates construction-time parameters.
type DistortionOption func(*Distortion) error

// WithDistortionDrive sets input drive in [1, 10].
func WithDistortionDrive(drive float64) DistortionOption {
	return func(d *Distortion) error { return d.SetParameter(ParamDrive, drive) }
}

// WithDistortionLevel sets output level in [0, 1].
func WithDistortionLevel(level float64) DistortionOption {
	return func(d *Distortion) error { return d.SetParameter(ParamLevel, level) }
}

// WithDistortionTone sets the tone control in [0, 1].
func WithDistortionTone(tone float64) DistortionOption {
	return func(d *Distortion) error { return d.SetParameter(ParamTone, tone) }
}

// WithDistortionMode selects the clipping mode.
func WithDistortionMode(mode DistortionMode) DistortionOption {
	return func(d *Distortion) error {
		if mode < DistortionModeSoft || mode > DistortionModeTube {
			return fmt.Errorf("distortion mode is invalid: %d", mode)
		}
		return d.SetParameter(ParamMode, float64(mode))
	}
}

// Declared parameter names.
const (
	ParamDrive = "drive"
	ParamLevel = "level"
	ParamTone  = "tone"
	ParamMode  = "mode"
)

// Distortion is an overdrive pedal with soft, hard and tube clipping and a
// one-pole tone filter whose memory survives buffer boundaries.
type Distortion struct {
	base

	drive *param
	level *param
	tone  *param
	mode  *param

	// toneCoeff is derived from tone and recomputed on every tone write,
	// so the audio path reads a single finished value.
	toneCoeff atomic.Uint64

	toneFilter onePole
}

// NewDistortion creates a distortion pedal with the stock settings.
func NewDistortion(opts ...DistortionOption) (*Distortion, error) {
	d := &Distortion{
		drive: newParam(ParamDrive, minDistortionDrive, maxDistortionDrive, defaultDistortionDrive),
		level: newParam(ParamLevel, 0, 1, defaultDistortionLevel),
		tone:  newParam(ParamTone, 0, 1, defaultDistortionTone),
		mode:  newParam(ParamMode, float64(DistortionModeSoft), float64(DistortionModeTube), float64(DistortionModeSoft)),
	}
	d.base = newBase("Distortion", d.drive, d.level, d.tone, d.mode)
	d.updateToneCoeff()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// SetParameter stores a validated parameter value. Writing tone recomputes
// the filter coefficient immediately; other parameters take effect on the
// next processed sample.
func (d *Distortion) SetParameter(name string, value float64) error {
	if err := d.base.SetParameter(name, value); err != nil {
		return err
	}
	if name == ParamTone {
		d.updateToneCoeff()
	}
	return nil
}

func (d *Distortion) updateToneCoeff() {
	d.toneCoeff.Store(math.Float64bits(d.tone.load() * toneCoeffScale))
}

// Stereo reports false: both channels run through the shared mono state.
func (d *Distortion) Stereo() bool { return false }

// Process applies drive, clipping, tone filtering and output level in place.
// A disabled pedal leaves the buffer and its own state untouched.
func (d *Distortion) Process(buf []float64, _ float64) {
	if !d.Enabled() {
		return
	}

	drive := d.drive.load()
	level := d.level.load()
	mode := DistortionMode(math.Round(d.mode.load()))
	coeff := math.Float64frombits(d.toneCoeff.Load())

	for i, x := range buf {
		clipped := clipSample(x*drive, mode)
		buf[i] = d.toneFilter.process(clipped, coeff) * level
	}
}

// ProcessStereo processes each channel independently through the shared
// mono state.
func (d *Distortion) ProcessStereo(left, right []float64, sampleRate float64) {
	d.Process(left, sampleRate)
	d.Process(right, sampleRate)
}

// Reset clears the tone filter memory.
func (d *Distortion) Reset() {
	d.toneFilter.reset()
}

func clipSample(x float64, mode DistortionMode) float64 {
	switch mode {
	case DistortionModeHard:
		return clamp(x, -hardClipThreshold, hardClipThreshold) / hardClipThreshold
	case DistortionModeTube:
		if x > 0 {
			return math.Tanh(x * 0.7)
		}
		return math.Tanh(x*1.2) * 0.8
	default:
		return math.Tanh(x)
	}
}

package pedal

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-pedalboard/dsp/delayline"
)

// Declared parameter names for the reverb pedal.
const (
	ParamRoomSize = "room_size"
	ParamDamping  = "damping"
	ParamPreDelay = "pre_delay"
)

const (
	reverbNumCombs = 4

	// Comb tap times in seconds, calibrated at 44.1 kHz and rescaled to
	// the live sample rate at construction.
	reverbCombTap1 = 0.0297
	reverbCombTap2 = 0.0371
	reverbCombTap3 = 0.0411
	reverbCombTap4 = 0.0437

	reverbAllpassTap1 = 0.005
	reverbAllpassTap2 = 0.0067
	reverbAllpassGain = 0.5

	reverbMaxPreDelayMs = 100.0
	reverbCombGain      = 0.5

	defaultReverbRoomSize   = 0.5
	defaultReverbDamping    = 0.3
	defaultReverbMix        = 0.2
	defaultReverbPreDelayMs = 10.0

	// Decorrelation factor applied to room_size for the right channel.
	reverbStereoRoomScale = 1.05
)

// ReverbOption mutates construction-time parameters.
type ReverbOption func(*Reverb) error

// WithReverbRoomSize sets the virtual room size in [0, 1].
func WithReverbRoomSize(size float64) ReverbOption {
	return func(r *Reverb) error { return r.SetParameter(ParamRoomSize, size) }
}

// WithReverbDamping sets high-frequency damping in [0, 1].
func WithReverbDamping(damping float64) ReverbOption {
	return func(r *Reverb) error { return r.SetParameter(ParamDamping, damping) }
}

// WithReverbMix sets the dry/wet mix in [0, 1].
func WithReverbMix(mix float64) ReverbOption {
	return func(r *Reverb) error { return r.SetParameter(ParamMix, mix) }
}

// WithReverbPreDelay sets the pre-delay in milliseconds, up to 100.
func WithReverbPreDelay(ms float64) ReverbOption {
	return func(r *Reverb) error { return r.SetParameter(ParamPreDelay, ms) }
}

// reverbLineSamples converts a tap time to samples, floored at one so the
// network stays valid at sample rates where a tap rounds down to nothing.
func reverbLineSamples(sampleRate, seconds float64) int {
	n := int(sampleRate * seconds)
	if n < 1 {
		n = 1
	}
	return n
}

type reverbComb struct {
	buffer    []float64
	index     int
	dampState float64
}

func newReverbComb(size int) reverbComb {
	return reverbComb{buffer: make([]float64, size)}
}

// process reads the delayed value, damps it, writes the fed-back value into
// the same slot and advances the cursor.
func (c *reverbComb) process(input, damping, feedback float64) float64 {
	delayed := c.buffer[c.index]
	c.dampState = delayed*(1-damping) + c.dampState*damping
	if math.Abs(c.dampState) < 1e-23 {
		c.dampState = 0
	}
	damped := c.dampState

	c.buffer[c.index] = input + damped*feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return damped
}

func (c *reverbComb) reset() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
	c.index = 0
	c.dampState = 0
}

type reverbAllpass struct {
	buffer []float64
	index  int
}

func newReverbAllpass(size int) reverbAllpass {
	return reverbAllpass{buffer: make([]float64, size)}
}

func (a *reverbAllpass) process(input float64) float64 {
	delayed := a.buffer[a.index]
	output := delayed - input*reverbAllpassGain
	a.buffer[a.index] = input + delayed*reverbAllpassGain
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}

func (a *reverbAllpass) reset() {
	for i := range a.buffer {
		a.buffer[i] = 0
	}
	a.index = 0
}

// Reverb is a Schroeder-style pedal: four parallel damped comb lines fed
// through a pre-delay, averaged and diffused by two serial all-pass stages.
//
// The stereo variant reuses the single network for both channels, running
// the right channel with room_size transiently scaled by 1.05. That is a
// decorrelation approximation, not a true dual network, and is preserved
// as such.
type Reverb struct {
	base

	roomSize *param
	damping  *param
	mix      *param
	preDelay *param

	stereo bool

	combs    [reverbNumCombs]reverbComb
	allpass1 reverbAllpass
	allpass2 reverbAllpass
	pre      *delayline.Line
}

// NewReverb creates a reverb pedal with line lengths rescaled to the given
// sample rate. When stereo is true the pedal declares true-stereo
// processing with per-channel decorrelation.
func NewReverb(sampleRate float64, stereo bool, opts ...ReverbOption) (*Reverb, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0 and finite: %f", sampleRate)
	}

	pre, err := delayline.NewDuration(reverbMaxPreDelayMs, sampleRate)
	if err != nil {
		return nil, err
	}

	r := &Reverb{
		roomSize: newParam(ParamRoomSize, 0, 1, defaultReverbRoomSize),
		damping:  newParam(ParamDamping, 0, 1, defaultReverbDamping),
		mix:      newParam(ParamMix, 0, 1, defaultReverbMix),
		preDelay: newParam(ParamPreDelay, 0, reverbMaxPreDelayMs, defaultReverbPreDelayMs),
		stereo:   stereo,
		combs: [reverbNumCombs]reverbComb{
			newReverbComb(reverbLineSamples(sampleRate, reverbCombTap1)),
			newReverbComb(reverbLineSamples(sampleRate, reverbCombTap2)),
			newReverbComb(reverbLineSamples(sampleRate, reverbCombTap3)),
			newReverbComb(reverbLineSamples(sampleRate, reverbCombTap4)),
		},
		allpass1: newReverbAllpass(reverbLineSamples(sampleRate, reverbAllpassTap1)),
		allpass2: newReverbAllpass(reverbLineSamples(sampleRate, reverbAllpassTap2)),
		pre:      pre,
	}
	r.base = newBase("Reverb", r.roomSize, r.damping, r.mix, r.preDelay)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Stereo reports whether the pedal declares true-stereo processing.
func (r *Reverb) Stereo() bool { return r.stereo }

// Process runs the reverb over buf in place. A disabled pedal leaves the
// buffer and its own state untouched.
func (r *Reverb) Process(buf []float64, sampleRate float64) {
	if !r.Enabled() {
		return
	}
	r.processBlock(buf, sampleRate, 1)
}

// ProcessStereo runs the left channel normally and the right channel with
// a transiently scaled room size for channel decorrelation.
func (r *Reverb) ProcessStereo(left, right []float64, sampleRate float64) {
	if !r.Enabled() {
		return
	}
	if !r.stereo {
		r.processBlock(left, sampleRate, 1)
		r.processBlock(right, sampleRate, 1)
		return
	}
	r.processBlock(left, sampleRate, 1)
	r.processBlock(right, sampleRate, reverbStereoRoomScale)
}

func (r *Reverb) processBlock(buf []float64, sampleRate, roomScale float64) {
	roomSize := r.roomSize.load() * roomScale
	damping := r.damping.load()
	mix := r.mix.load()

	preSamples, _ := r.pre.ClampDelay(int(sampleRate * r.preDelay.load() / 1000))

	feedback := roomSize * reverbCombGain

	for i, x := range buf {
		preDelayed := r.pre.Read(preSamples)
		r.pre.Write(x)

		var sum float64
		for j := range r.combs {
			sum += r.combs[j].process(preDelayed, damping, feedback)
		}
		sum /= reverbNumCombs

		sum = r.allpass1.process(sum)
		sum = r.allpass2.process(sum)

		buf[i] = x*(1-mix) + sum*mix
	}
}

// Reset zeroes every comb line, all-pass line, the pre-delay line and all
// filter and cursor state.
func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	r.allpass1.reset()
	r.allpass2.reset()
	r.pre.Reset()
}

package pedal

import "math"

const (
	phaserNumStages = 4

	defaultPhaserRateHz   = 0.5
	defaultPhaserDepth    = 1.0
	defaultPhaserFeedback = 0.7
	defaultPhaserMix      = 0.5

	minPhaserRateHz = 0.1
	maxPhaserRateHz = 10.0

	maxPhaserFeedback = 0.9

	// The swept all-pass coefficient runs from 0.2 up to 0.9 at full depth.
	phaserCoeffBase  = 0.2
	phaserCoeffSweep = 0.7
)

// PhaserOption mutates construction-time parameters.
type PhaserOption func(*Phaser) error

// WithPhaserRate sets the sweep rate in [0.1, 10] Hz.
func WithPhaserRate(rateHz float64) PhaserOption {
	return func(p *Phaser) error { return p.SetParameter(ParamRate, rateHz) }
}

// WithPhaserDepth sets the sweep depth in [0, 1].
func WithPhaserDepth(depth float64) PhaserOption {
	return func(p *Phaser) error { return p.SetParameter(ParamDepth, depth) }
}

// WithPhaserFeedback sets the feedback amount in [0, 0.9].
func WithPhaserFeedback(feedback float64) PhaserOption {
	return func(p *Phaser) error { return p.SetParameter(ParamFeedback, feedback) }
}

// WithPhaserMix sets the dry/wet mix in [0, 1].
func WithPhaserMix(mix float64) PhaserOption {
	return func(p *Phaser) error { return p.SetParameter(ParamMix, mix) }
}

// Phaser sweeps four cascaded first-order all-pass stages with a sine LFO,
// producing moving notches. The LFO phase and the per-stage filter states
// persist across buffer boundaries.
type Phaser struct {
	base

	rate     *param
	depth    *param
	feedback *param
	mix      *param

	phase  float64
	states [phaserNumStages]float64
}

// NewPhaser creates a phaser pedal with the stock settings.
func NewPhaser(opts ...PhaserOption) (*Phaser, error) {
	p := &Phaser{
		rate:     newParam(ParamRate, minPhaserRateHz, maxPhaserRateHz, defaultPhaserRateHz),
		depth:    newParam(ParamDepth, 0, 1, defaultPhaserDepth),
		feedback: newParam(ParamFeedback, 0, maxPhaserFeedback, defaultPhaserFeedback),
		mix:      newParam(ParamMix, 0, 1, defaultPhaserMix),
	}
	p.base = newBase("Phaser", p.rate, p.depth, p.feedback, p.mix)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Stereo reports false: both channels run through the shared stage states.
func (p *Phaser) Stereo() bool { return false }

// Process sweeps the all-pass cascade over buf in place. A disabled pedal
// leaves the buffer and its own state untouched.
func (p *Phaser) Process(buf []float64, sampleRate float64) {
	if !p.Enabled() {
		return
	}

	rate := p.rate.load()
	depth := p.depth.load()
	feedback := p.feedback.load()
	mix := p.mix.load()

	increment := 2 * math.Pi * rate / sampleRate

	for i, x := range buf {
		lfo := (math.Sin(p.phase) + 1) / 2
		coeff := phaserCoeffBase + phaserCoeffSweep*lfo*depth

		filtered := x
		for stage := 0; stage < phaserNumStages; stage++ {
			temp := filtered - p.states[stage]*coeff
			filtered = -filtered + coeff*temp + p.states[stage]
			p.states[stage] = temp
		}

		filtered += x * feedback
		buf[i] = x*(1-mix) + filtered*mix

		p.phase += increment
		if p.phase >= 2*math.Pi {
			p.phase -= 2 * math.Pi
		}
	}
}

// ProcessStereo processes each channel independently through the shared
// stage states.
func (p *Phaser) ProcessStereo(left, right []float64, sampleRate float64) {
	p.Process(left, sampleRate)
	p.Process(right, sampleRate)
}

// Reset rewinds the LFO phase and zeroes every stage state.
func (p *Phaser) Reset() {
	p.phase = 0
	for i := range p.states {
		p.states[i] = 0
	}
}

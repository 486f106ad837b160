package pedal

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-pedalboard/dsp/delayline"
)

// Declared parameter names shared by the time-based pedals.
const (
	ParamDelayTime   = "delay_time"
	ParamFeedback    = "feedback"
	ParamMix         = "mix"
	ParamStereoWidth = "stereo_width"
)

const (
	defaultDelayMaxMs    = 2000.0
	defaultDelayTimeMs   = 250.0
	defaultDelayFeedback = 0.3
	defaultDelayMix      = 0.3

	maxDelayFeedback = 0.9

	// Fixed low-pass coefficient in the mono feedback path.
	feedbackFilterCoeff = 0.7
)

// DelayOption mutates construction-time parameters.
type DelayOption func(*Delay) error

// WithDelayTime sets the delay time in milliseconds.
func WithDelayTime(ms float64) DelayOption {
	return func(d *Delay) error { return d.SetParameter(ParamDelayTime, ms) }
}

// WithDelayFeedback sets the feedback amount in [0, 0.9].
func WithDelayFeedback(feedback float64) DelayOption {
	return func(d *Delay) error { return d.SetParameter(ParamFeedback, feedback) }
}

// WithDelayMix sets the dry/wet mix in [0, 1].
func WithDelayMix(mix float64) DelayOption {
	return func(d *Delay) error { return d.SetParameter(ParamMix, mix) }
}

// WithDelayStereoWidth sets the ping-pong cross-feedback amount in [0, 1].
func WithDelayStereoWidth(width float64) DelayOption {
	return func(d *Delay) error { return d.SetParameter(ParamStereoWidth, width) }
}

// Delay is a digital delay pedal with feedback, dry/wet mix and an optional
// ping-pong stereo mode.
//
// The mono path low-pass filters the feedback term with a fixed one-pole
// (coefficient 0.7). The stereo ping-pong path deliberately does not: the
// cross-fed feedback is written back unfiltered. The asymmetry is part of
// the pedal's sound and is covered by tests.
type Delay struct {
	base

	delayTime   *param
	feedback    *param
	mix         *param
	stereoWidth *param

	maxDelayMs float64
	stereo     bool

	left  *delayline.Line
	right *delayline.Line

	feedbackFilter onePole
}

// NewDelay creates a delay pedal whose line capacities are sized for
// maxDelayMs at the given sample rate and fixed afterwards. When stereo is
// true the pedal declares true-stereo (ping-pong) processing.
func NewDelay(sampleRate float64, maxDelayMs float64, stereo bool, opts ...DelayOption) (*Delay, error) {
	if maxDelayMs < 1 || math.IsNaN(maxDelayMs) || math.IsInf(maxDelayMs, 0) {
		return nil, fmt.Errorf("delay max time must be >= 1 ms: %f", maxDelayMs)
	}

	left, err := delayline.NewDuration(maxDelayMs, sampleRate)
	if err != nil {
		return nil, err
	}
	right, err := delayline.NewDuration(maxDelayMs, sampleRate)
	if err != nil {
		return nil, err
	}

	d := &Delay{
		delayTime:   newParam(ParamDelayTime, 1, maxDelayMs, math.Min(defaultDelayTimeMs, maxDelayMs)),
		feedback:    newParam(ParamFeedback, 0, maxDelayFeedback, defaultDelayFeedback),
		mix:         newParam(ParamMix, 0, 1, defaultDelayMix),
		stereoWidth: newParam(ParamStereoWidth, 0, 1, 0),
		maxDelayMs:  maxDelayMs,
		stereo:      stereo,
		left:        left,
		right:       right,
	}
	d.base = newBase("Delay", d.delayTime, d.feedback, d.mix, d.stereoWidth)

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

// MaxDelayMs returns the time bound the lines were sized for.
func (d *Delay) MaxDelayMs() float64 { return d.maxDelayMs }

// Stereo reports whether the pedal runs the true-stereo ping-pong path.
func (d *Delay) Stereo() bool { return d.stereo }

// delaySamples converts the live delay-time parameter to samples, bounded
// by the fixed line capacity.
func (d *Delay) delaySamples(sampleRate float64) int {
	n := int(sampleRate * d.delayTime.load() / 1000)
	if n < 1 {
		n = 1
	}
	n, _ = d.left.ClampDelay(n)
	return n
}

// Process runs the mono delay over buf in place. A disabled pedal leaves
// the buffer and its own state untouched.
func (d *Delay) Process(buf []float64, sampleRate float64) {
	if !d.Enabled() {
		return
	}

	delay := d.delaySamples(sampleRate)
	feedback := d.feedback.load()
	mix := d.mix.load()

	for i, x := range buf {
		delayed := d.left.Read(delay)
		filtered := d.feedbackFilter.process(delayed*feedback, feedbackFilterCoeff)
		d.left.Write(x + filtered)
		buf[i] = x*(1-mix) + delayed*mix
	}
}

// ProcessStereo runs the stereo delay in place. With stereo_width > 0 the
// feedback partially crosses channels, bouncing echoes left and right.
func (d *Delay) ProcessStereo(left, right []float64, sampleRate float64) {
	if !d.Enabled() {
		return
	}
	if !d.stereo {
		d.Process(left, sampleRate)
		d.Process(right, sampleRate)
		return
	}

	delay := d.delaySamples(sampleRate)
	feedback := d.feedback.load()
	mix := d.mix.load()
	width := d.stereoWidth.load()

	for i := range left {
		delayedL := d.left.Read(delay)
		delayedR := d.right.Read(delay)

		feedbackL := delayedL
		feedbackR := delayedR
		if width > 0 {
			feedbackL = delayedL*(1-width) + delayedR*width
			feedbackR = delayedR*(1-width) + delayedL*width
		}

		d.left.Write(left[i] + feedbackL*feedback)
		d.right.Write(right[i] + feedbackR*feedback)

		left[i] = left[i]*(1-mix) + delayedL*mix
		right[i] = right[i]*(1-mix) + delayedR*mix
	}
}

// Reset clears both delay lines and the feedback filter memory.
func (d *Delay) Reset() {
	d.left.Reset()
	d.right.Reset()
	d.feedbackFilter.reset()
}

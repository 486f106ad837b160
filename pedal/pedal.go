package pedal

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrUnknownParameter is returned when a parameter name is not declared for
// an effect type.
var ErrUnknownParameter = errors.New("unknown parameter")

// Effect is the capability contract shared by all pedals.
//
// Process and ProcessStereo transform buffers in place and may update the
// effect's persistent runtime state (delay lines, filter memory, phase).
// They run on the audio context and must not allocate. All other methods
// belong to the control context; parameter values and the enabled flag are
// each held in a single atomically assigned word, so the two contexts never
// need a shared lock.
type Effect interface {
	// Name returns the effect's display name.
	Name() string

	// Process transforms a mono buffer in place.
	Process(buf []float64, sampleRate float64)

	// ProcessStereo transforms a stereo pair in place. Effects without true
	// stereo support process each channel independently through the shared
	// mono state.
	ProcessStereo(left, right []float64, sampleRate float64)

	// Stereo reports whether ProcessStereo implements true stereo
	// processing rather than the independent per-channel default.
	Stereo() bool

	// SetParameter stores a validated parameter value, applied from the
	// next processed sample onward. Undeclared names fail with
	// ErrUnknownParameter.
	SetParameter(name string, value float64) error

	// Parameter returns the current value of a declared parameter.
	Parameter(name string) (float64, error)

	// Parameters returns a snapshot of all declared parameters.
	Parameters() map[string]float64

	// Enabled reports whether the processing path applies this effect.
	Enabled() bool

	// SetEnabled sets the enabled flag.
	SetEnabled(enabled bool)

	// Toggle flips the enabled flag.
	Toggle()

	// Reset zeroes transient buffers, filter memory and phase without
	// touching parameter values or capacities.
	Reset()
}

// param is one declared effect parameter: a fixed name, a legal range and a
// value held in a single atomic word. The control context is the only
// writer; the audio context only loads.
type param struct {
	name string
	min  float64
	max  float64
	bits atomic.Uint64
}

func newParam(name string, min, max, value float64) *param {
	p := &param{name: name, min: min, max: max}
	p.bits.Store(math.Float64bits(value))
	return p
}

func (p *param) load() float64 {
	return math.Float64frombits(p.bits.Load())
}

func (p *param) set(value float64) error {
	if value < p.min || value > p.max || math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("parameter %s must be in [%g, %g]: %f", p.name, p.min, p.max, value)
	}
	p.bits.Store(math.Float64bits(value))
	return nil
}

// base carries the state every effect shares: name, enabled flag and the
// declared parameter set.
type base struct {
	name    string
	enabled atomic.Bool
	params  []*param
}

func newBase(name string, params ...*param) base {
	b := base{name: name, params: params}
	b.enabled.Store(true)
	return b
}

func (b *base) lookup(name string) *param {
	for _, p := range b.params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Name returns the effect's display name.
func (b *base) Name() string { return b.name }

// SetParameter stores a validated value for a declared parameter.
func (b *base) SetParameter(name string, value float64) error {
	p := b.lookup(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return p.set(value)
}

// Parameter returns the current value of a declared parameter.
func (b *base) Parameter(name string) (float64, error) {
	p := b.lookup(name)
	if p == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	return p.load(), nil
}

// Parameters returns a snapshot of all declared parameters.
func (b *base) Parameters() map[string]float64 {
	out := make(map[string]float64, len(b.params))
	for _, p := range b.params {
		out[p.name] = p.load()
	}
	return out
}

// Enabled reports whether the processing path applies this effect.
func (b *base) Enabled() bool { return b.enabled.Load() }

// SetEnabled sets the enabled flag.
func (b *base) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// Toggle flips the enabled flag.
func (b *base) Toggle() {
	for {
		old := b.enabled.Load()
		if b.enabled.CompareAndSwap(old, !old) {
			return
		}
	}
}

// onePole is the first-order smoothing recurrence
// y[n] = x[n]*(1-c) + y[n-1]*c. State persists across buffer boundaries.
type onePole struct {
	state float64
}

func (f *onePole) process(x, coeff float64) float64 {
	f.state = x*(1-coeff) + f.state*coeff
	return f.state
}

func (f *onePole) reset() {
	f.state = 0
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

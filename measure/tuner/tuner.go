// Package tuner estimates the pitch of accumulated audio and maps it to the
// nearest equal-tempered note.
package tuner

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	defaultWindowSize = 4096
	defaultLowerHz    = 40.0
	defaultUpperHz    = 2000.0

	referenceA4Hz       = 440.0
	referenceA4Midi     = 69
	centsPerSemitone    = 100.0
	semitonesPerOctave  = 12.0
	detectionFloorRatio = 1e-6
)

// ErrInvalidWindow is returned when the analysis window size is rejected.
var ErrInvalidWindow = errors.New("invalid tuner window size")

var noteNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// Config holds pitch detection parameters.
type Config struct {
	SampleRate float64
	// WindowSize is the FFT length in samples. Must be a power of two.
	WindowSize int
	// LowerHz and UpperHz bound the detection range.
	LowerHz float64
	UpperHz float64
}

// Result is one pitch estimate.
type Result struct {
	// Detected reports whether the window held enough signal to estimate.
	Detected bool
	// FrequencyHz is the interpolated fundamental estimate.
	FrequencyHz float64
	// Note is the nearest equal-tempered note name, e.g. "A4".
	Note string
	// Cents is the signed deviation from the named note, in [-50, 50).
	Cents float64
}

// Tuner accumulates samples on the control path and produces pitch
// estimates once a full window is available. It is not safe for concurrent
// use; feed it from a single goroutine.
type Tuner struct {
	cfg     Config
	plan    *algofft.Plan[complex128]
	window  []float64
	samples []float64
	filled  int

	scratch []float64
	inData  []complex128
	outData []complex128
	mags    []float64
}

// New creates a tuner. The window size must be a power of two.
func New(cfg Config) (*Tuner, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidWindow, cfg.SampleRate)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	if cfg.WindowSize&(cfg.WindowSize-1) != 0 {
		return nil, fmt.Errorf("%w: size must be a power of two: %d", ErrInvalidWindow, cfg.WindowSize)
	}
	if cfg.LowerHz <= 0 {
		cfg.LowerHz = defaultLowerHz
	}
	if cfg.UpperHz <= cfg.LowerHz {
		cfg.UpperHz = defaultUpperHz
	}

	plan, err := algofft.NewPlan64(cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("tuner: create FFT plan: %w", err)
	}

	return &Tuner{
		cfg:     cfg,
		plan:    plan,
		window:  hannWindow(cfg.WindowSize),
		samples: make([]float64, cfg.WindowSize),
		scratch: make([]float64, cfg.WindowSize),
		inData:  make([]complex128, cfg.WindowSize),
		outData: make([]complex128, cfg.WindowSize),
		mags:    make([]float64, cfg.WindowSize/2+1),
	}, nil
}

// Feed appends samples to the analysis window. Returns true once a full
// window has accumulated and Estimate will produce a fresh result.
func (t *Tuner) Feed(buf []float64) bool {
	for _, x := range buf {
		if t.filled == len(t.samples) {
			// Slide by half a window so successive estimates overlap.
			half := len(t.samples) / 2
			copy(t.samples, t.samples[half:])
			t.filled = half
		}
		t.samples[t.filled] = x
		t.filled++
	}
	return t.filled == len(t.samples)
}

// Ready reports whether a full window has accumulated.
func (t *Tuner) Ready() bool {
	return t.filled == len(t.samples)
}

// Reset discards accumulated samples.
func (t *Tuner) Reset() {
	t.filled = 0
}

// Estimate analyzes the current window. Detected is false when the window
// is not yet full or the signal is too weak to locate a fundamental.
func (t *Tuner) Estimate() Result {
	if !t.Ready() {
		return Result{}
	}

	vecmath.MulBlock(t.scratch, t.samples, t.window)
	for i, v := range t.scratch {
		t.inData[i] = complex(v, 0)
	}

	if err := t.plan.Forward(t.outData, t.inData); err != nil {
		return Result{}
	}

	for i := range t.mags {
		x := t.outData[i]
		t.mags[i] = math.Hypot(real(x), imag(x))
	}

	binHz := t.cfg.SampleRate / float64(len(t.samples))
	lowerBin := int(math.Ceil(t.cfg.LowerHz / binHz))
	upperBin := int(math.Floor(t.cfg.UpperHz / binHz))
	if lowerBin < 1 {
		lowerBin = 1
	}
	if upperBin > len(t.mags)-2 {
		upperBin = len(t.mags) - 2
	}
	if upperBin < lowerBin {
		return Result{}
	}

	peakBin := lowerBin
	peakVal := -1.0
	total := 0.0
	for i := lowerBin; i <= upperBin; i++ {
		total += t.mags[i]
		if t.mags[i] > peakVal {
			peakVal = t.mags[i]
			peakBin = i
		}
	}
	if peakVal <= 0 || peakVal < total*detectionFloorRatio {
		return Result{}
	}

	freq := (float64(peakBin) + parabolicOffset(t.mags, peakBin)) * binHz
	note, cents := nearestNote(freq)

	return Result{
		Detected:    true,
		FrequencyHz: freq,
		Note:        note,
		Cents:       cents,
	}
}

// parabolicOffset refines a spectral peak location by fitting a parabola
// through the bin and its neighbors. The offset is in [-0.5, 0.5].
func parabolicOffset(mags []float64, bin int) float64 {
	if bin <= 0 || bin >= len(mags)-1 {
		return 0
	}
	a := mags[bin-1]
	b := mags[bin]
	c := mags[bin+1]
	denom := a - 2*b + c
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (a - c) / denom
	if offset < -0.5 {
		return -0.5
	}
	if offset > 0.5 {
		return 0.5
	}
	return offset
}

// nearestNote maps a frequency to the closest equal-tempered note name and
// the signed deviation from it in cents.
func nearestNote(freq float64) (string, float64) {
	if freq <= 0 {
		return "", 0
	}

	semis := semitonesPerOctave*math.Log2(freq/referenceA4Hz) + referenceA4Midi
	midi := int(math.Round(semis))
	cents := (semis - float64(midi)) * centsPerSemitone

	name := noteNames[((midi%12)+12)%12]
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", name, octave), cents
}

func hannWindow(n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return coeffs
}

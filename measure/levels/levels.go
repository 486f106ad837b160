// Package levels provides allocation-free block metering for the audio
// callback and deadline diagnostics for the control surface.
package levels

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"
)

// ampTodB converts an amplitude value to decibels: 20 * log10(|value|).
// Returns -Inf for zero values.
func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}

// Meter tracks peak and RMS of the most recent block. Observe runs on the
// audio context and stores each value as a single atomic word; the getters
// run on the control context.
type Meter struct {
	peakBits atomic.Uint64
	rmsBits  atomic.Uint64
}

// Observe updates the meter from one block. O(len(buf)), no allocation.
func (m *Meter) Observe(buf []float64) {
	if len(buf) == 0 {
		return
	}
	peak := vecmath.MaxAbs(buf)
	rms := math.Sqrt(vecmath.DotProduct(buf, buf) / float64(len(buf)))
	m.peakBits.Store(math.Float64bits(peak))
	m.rmsBits.Store(math.Float64bits(rms))
}

// Peak returns the last block's peak amplitude.
func (m *Meter) Peak() float64 {
	return math.Float64frombits(m.peakBits.Load())
}

// RMS returns the last block's RMS amplitude.
func (m *Meter) RMS() float64 {
	return math.Float64frombits(m.rmsBits.Load())
}

// PeakDB returns the last block's peak level in dBFS.
func (m *Meter) PeakDB() float64 {
	return ampTodB(m.Peak())
}

// RMSDB returns the last block's RMS level in dBFS.
func (m *Meter) RMSDB() float64 {
	return ampTodB(m.RMS())
}

// Reset clears the meter.
func (m *Meter) Reset() {
	m.peakBits.Store(0)
	m.rmsBits.Store(0)
}

// TimingReport summarizes recent callback durations.
type TimingReport struct {
	Count  int
	MeanMS float64
	P95MS  float64
	MaxMS  float64
}

// Timing records recent callback durations in a fixed ring. The audio
// context is the single writer and never blocks: every slot is one atomic
// word. Report snapshots the ring and summarizes it with gonum.
type Timing struct {
	ring     []atomic.Uint64
	observed atomic.Uint64
}

// NewTiming creates a timing recorder holding the last capacity durations.
func NewTiming(capacity int) *Timing {
	if capacity < 1 {
		capacity = 1
	}
	return &Timing{ring: make([]atomic.Uint64, capacity)}
}

// Observe records one callback duration. Lock-free, no allocation.
func (t *Timing) Observe(d time.Duration) {
	n := t.observed.Load()
	slot := int(n % uint64(len(t.ring)))
	t.ring[slot].Store(math.Float64bits(float64(d) / float64(time.Millisecond)))
	t.observed.Store(n + 1)
}

// Report summarizes the recorded durations. Count is 0 when nothing has
// been observed yet.
func (t *Timing) Report() TimingReport {
	n := int(t.observed.Load())
	if n > len(t.ring) {
		n = len(t.ring)
	}
	if n == 0 {
		return TimingReport{}
	}

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Float64frombits(t.ring[i].Load())
	}

	sort.Float64s(samples)
	return TimingReport{
		Count:  n,
		MeanMS: stat.Mean(samples, nil),
		P95MS:  stat.Quantile(0.95, stat.Empirical, samples, nil),
		MaxMS:  samples[n-1],
	}
}

// Reset discards all recorded durations.
func (t *Timing) Reset() {
	for i := range t.ring {
		t.ring[i].Store(0)
	}
	t.observed.Store(0)
}

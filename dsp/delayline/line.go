package delayline

import (
	"errors"
	"fmt"
	"math"
)

// ErrCapacityExceeded is returned when a requested delay does not fit the
// line's fixed capacity.
var ErrCapacityExceeded = errors.New("delay exceeds line capacity")

// Line is a circular delay line with a capacity fixed at construction.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size in samples.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay line size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// NewDuration returns a delay line sized for maxMs milliseconds at the given
// sample rate. The capacity never changes afterwards.
func NewDuration(maxMs, sampleRate float64) (*Line, error) {
	if maxMs <= 0 || math.IsNaN(maxMs) || math.IsInf(maxMs, 0) {
		return nil, fmt.Errorf("delay line duration must be > 0 and finite: %f", maxMs)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay line sample rate must be > 0 and finite: %f", sampleRate)
	}
	return New(int(sampleRate * maxMs / 1000))
}

// Len returns the capacity in samples.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write stores one sample at the cursor and advances it.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read returns the sample written delay steps ago, relative to the current
// cursor. Delays outside [0, Len()] are clamped.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if delay < 0 {
		delay = 0
	}
	if delay > size {
		delay = size
	}
	readPos := d.writePos - delay
	if readPos < 0 {
		readPos += size
	}
	if readPos == size {
		readPos = 0
	}
	return d.buffer[readPos]
}

// ClampDelay bounds a requested delay in samples to the line capacity,
// reporting ErrCapacityExceeded when clamping was needed. The error is the
// bare sentinel so callers on the audio path can clamp without allocating.
func (d *Line) ClampDelay(delay int) (int, error) {
	if delay <= len(d.buffer) {
		return delay, nil
	}
	return len(d.buffer), ErrCapacityExceeded
}

// Reset clears all stored samples and rewinds the cursor.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

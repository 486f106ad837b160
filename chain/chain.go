// Package chain runs an ordered sequence of pedals over audio buffers.
package chain

import (
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-pedalboard/pedal"
)

// Chain is an ordered effect sequence. Insertion order is processing order;
// the chain never reorders effects and never mutates their parameters.
//
// The audio context reads the sequence through an atomically published
// snapshot, so control-path mutation (Add, Remove, Clear) is never observed
// mid-iteration. Mutations copy the slice and swap the pointer.
type Chain struct {
	mu      sync.Mutex
	effects atomic.Pointer[[]pedal.Effect]
}

// New creates an empty chain.
func New() *Chain {
	c := &Chain{}
	empty := make([]pedal.Effect, 0)
	c.effects.Store(&empty)
	return c
}

// Add appends an effect to the end of the chain.
func (c *Chain) Add(e pedal.Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := *c.effects.Load()
	next := make([]pedal.Effect, len(old)+1)
	copy(next, old)
	next[len(old)] = e
	c.effects.Store(&next)
}

// Remove deletes the first effect whose name matches, reporting whether one
// was found.
func (c *Chain) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := *c.effects.Load()
	for i, e := range old {
		if e.Name() != name {
			continue
		}
		next := make([]pedal.Effect, 0, len(old)-1)
		next = append(next, old[:i]...)
		next = append(next, old[i+1:]...)
		c.effects.Store(&next)
		return true
	}
	return false
}

// RemoveEffect deletes the given effect instance, reporting whether it was
// in the chain. Unlike Remove it never confuses two effects of the same
// type.
func (c *Chain) RemoveEffect(e pedal.Effect) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := *c.effects.Load()
	for i, have := range old {
		if have != e {
			continue
		}
		next := make([]pedal.Effect, 0, len(old)-1)
		next = append(next, old[:i]...)
		next = append(next, old[i+1:]...)
		c.effects.Store(&next)
		return true
	}
	return false
}

// Clear empties the chain.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	empty := make([]pedal.Effect, 0)
	c.effects.Store(&empty)
}

// Effects returns the currently published snapshot. Callers must not
// modify it.
func (c *Chain) Effects() []pedal.Effect {
	return *c.effects.Load()
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int {
	return len(*c.effects.Load())
}

// Reset resets every effect's transient state.
func (c *Chain) Reset() {
	for _, e := range c.Effects() {
		e.Reset()
	}
}

// Process threads a mono buffer through every enabled effect in order.
// Disabled effects are skipped entirely; their state does not advance.
func (c *Chain) Process(buf []float64, sampleRate float64) {
	for _, e := range *c.effects.Load() {
		if !e.Enabled() {
			continue
		}
		e.Process(buf, sampleRate)
	}
}

// ProcessStereo threads a stereo pair through every enabled effect in
// order, using true-stereo processing for effects that declare it and
// independent per-channel processing otherwise.
func (c *Chain) ProcessStereo(left, right []float64, sampleRate float64) {
	for _, e := range *c.effects.Load() {
		if !e.Enabled() {
			continue
		}
		if e.Stereo() {
			e.ProcessStereo(left, right, sampleRate)
			continue
		}
		e.Process(left, sampleRate)
		e.Process(right, sampleRate)
	}
}

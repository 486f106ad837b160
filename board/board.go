// Package board exposes a named pedal registry over an engine's chain for
// the control surface.
package board

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-pedalboard/engine"
	"github.com/cwbudde/algo-pedalboard/pedal"
)

// ErrUnknownPedal is returned when a control operation names an
// unregistered pedal.
var ErrUnknownPedal = errors.New("unknown pedal")

// ErrDuplicatePedal is returned when a pedal id is registered twice.
var ErrDuplicatePedal = errors.New("duplicate pedal")

// PedalStatus describes one registered pedal.
type PedalStatus struct {
	Name       string
	Enabled    bool
	Parameters map[string]float64
}

// Status is a control-surface snapshot of the whole board.
type Status struct {
	Running    bool
	Mode       string
	SampleRate int
	BufferSize int
	// LatencyMS is the period latency; LatencySet is false while the
	// engine is stopped.
	LatencyMS  float64
	LatencySet bool
	Underruns  uint64
	Overruns   uint64
	Pedals     map[string]PedalStatus
}

// Board manages named pedals on an engine's chain. All methods are
// control-path operations; the audio context only sees the chain's
// published snapshot.
type Board struct {
	eng *engine.Engine

	mu     sync.Mutex
	pedals map[string]pedal.Effect
}

// New creates a board over the given engine.
func New(eng *engine.Engine) *Board {
	return &Board{
		eng:    eng,
		pedals: make(map[string]pedal.Effect),
	}
}

// Engine returns the underlying engine.
func (b *Board) Engine() *engine.Engine { return b.eng }

// Add registers a pedal under id and appends it to the chain.
func (b *Board) Add(id string, e pedal.Effect) error {
	if id == "" {
		return fmt.Errorf("%w: empty pedal id", ErrUnknownPedal)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pedals[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePedal, id)
	}

	b.pedals[id] = e
	b.eng.Chain().Add(e)

	logrus.WithFields(logrus.Fields{
		"pedal": id,
		"name":  e.Name(),
	}).Info("Added pedal")

	return nil
}

// Remove unregisters a pedal and deletes it from the chain.
func (b *Board) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.pedals[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPedal, id)
	}

	delete(b.pedals, id)
	b.eng.Chain().RemoveEffect(e)

	logrus.WithField("pedal", id).Info("Removed pedal")
	return nil
}

// Pedal returns the pedal registered under id.
func (b *Board) Pedal(id string) (pedal.Effect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.pedals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPedal, id)
	}
	return e, nil
}

// SetParameter validates and stores a parameter value on a registered
// pedal. Failures leave the pedal untouched.
func (b *Board) SetParameter(id, name string, value float64) error {
	e, err := b.Pedal(id)
	if err != nil {
		return err
	}
	if err := e.SetParameter(name, value); err != nil {
		return fmt.Errorf("pedal %s: %w", id, err)
	}
	return nil
}

// Toggle flips a registered pedal's enabled flag.
func (b *Board) Toggle(id string) error {
	e, err := b.Pedal(id)
	if err != nil {
		return err
	}
	e.Toggle()

	logrus.WithFields(logrus.Fields{
		"pedal":   id,
		"enabled": e.Enabled(),
	}).Info("Toggled pedal")

	return nil
}

// Clear unregisters every pedal and empties the chain.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pedals = make(map[string]pedal.Effect)
	b.eng.Chain().Clear()

	logrus.Info("Cleared all pedals")
}

// ResetAll clears every pedal's transient state, leaving parameters and
// chain membership alone.
func (b *Board) ResetAll() {
	b.eng.Chain().Reset()
}

// IDs returns the registered pedal ids in sorted order.
func (b *Board) IDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.pedals))
	for id := range b.pedals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start starts the engine against the given audio device.
func (b *Board) Start(dev engine.Device) error {
	return b.eng.Start(dev)
}

// Stop stops the engine.
func (b *Board) Stop() error {
	return b.eng.Stop()
}

// Status snapshots the board for the control surface.
func (b *Board) Status() Status {
	b.mu.Lock()
	pedals := make(map[string]PedalStatus, len(b.pedals))
	for id, e := range b.pedals {
		pedals[id] = PedalStatus{
			Name:       e.Name(),
			Enabled:    e.Enabled(),
			Parameters: e.Parameters(),
		}
	}
	b.mu.Unlock()

	cfg := b.eng.Config()
	latency, ok := b.eng.Latency()

	return Status{
		Running:    b.eng.Running(),
		Mode:       cfg.Mode.String(),
		SampleRate: cfg.SampleRate,
		BufferSize: cfg.BufferSize,
		LatencyMS:  latency,
		LatencySet: ok,
		Underruns:  b.eng.Underruns(),
		Overruns:   b.eng.Overruns(),
		Pedals:     pedals,
	}
}

// SetupDefault builds the stock distortion → delay → reverb board with the
// time-based pedals initially disabled.
func (b *Board) SetupDefault() error {
	cfg := b.eng.Config()
	stereo := cfg.Mode == engine.ModeStereo
	sampleRate := float64(cfg.SampleRate)

	distortion, err := pedal.NewDistortion()
	if err != nil {
		return err
	}

	delay, err := pedal.NewDelay(sampleRate, 2000, stereo)
	if err != nil {
		return err
	}
	delay.SetEnabled(false)

	reverb, err := pedal.NewReverb(sampleRate, stereo)
	if err != nil {
		return err
	}
	reverb.SetEnabled(false)

	if err := b.Add("distortion", distortion); err != nil {
		return err
	}
	if err := b.Add("delay", delay); err != nil {
		return err
	}
	if err := b.Add("reverb", reverb); err != nil {
		return err
	}

	logrus.WithField("mode", cfg.Mode.String()).Info("Default pedalboard setup complete")
	return nil
}

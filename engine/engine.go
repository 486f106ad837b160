// Package engine drives an effect chain from a periodic audio callback.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-pedalboard/chain"
	"github.com/cwbudde/algo-pedalboard/measure/levels"
)

// StreamStatus is what the audio boundary reports alongside each period.
// A missed deadline has already happened by the time it is reported; the
// engine counts it and keeps processing.
type StreamStatus struct {
	Underrun bool
	Overrun  bool
}

// Callback is invoked by the audio boundary once per period. It must fill
// exactly frames output samples per channel before returning.
type Callback func(in, out [][]float64, frames int, status StreamStatus)

// Stream is a bound, startable audio stream.
type Stream interface {
	Start() error
	Close() error
}

// Device is the external audio capture/playback boundary. Open binds a
// callback to a stream without starting it.
type Device interface {
	Open(cfg Config, cb Callback) (Stream, error)
}

const timingWindow = 256

// Engine owns the effect chain and the working buffers the audio callback
// runs in. The callback path never allocates and never fails; all
// validation happens on the control path before values reach it.
type Engine struct {
	cfg Config
	ch  *chain.Chain

	// Working buffers, preallocated at construction and reused by every
	// callback invocation.
	workLeft  []float64
	workRight []float64

	meter  levels.Meter
	timing *levels.Timing

	underruns atomic.Uint64
	overruns  atomic.Uint64

	mu      sync.Mutex
	running bool
	stream  Stream
}

// New creates a stopped engine with an empty chain.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		ch:        chain.New(),
		workLeft:  make([]float64, cfg.BufferSize),
		workRight: make([]float64, cfg.BufferSize),
		timing:    levels.NewTiming(timingWindow),
	}, nil
}

// Config returns the fixed engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Chain returns the engine's effect chain.
func (e *Engine) Chain() *chain.Chain { return e.ch }

// Meter returns the output level meter.
func (e *Engine) Meter() *levels.Meter { return &e.meter }

// Timing returns the callback duration recorder.
func (e *Engine) Timing() *levels.Timing { return e.timing }

// Running reports whether the engine is bound to a started stream.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Latency returns the period latency in milliseconds and whether it is
// set. It is unset while the engine is stopped.
func (e *Engine) Latency() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return 0, false
	}
	return e.cfg.LatencyMS(), true
}

// Underruns returns the number of reported underruns since start.
func (e *Engine) Underruns() uint64 { return e.underruns.Load() }

// Overruns returns the number of reported overruns since start.
func (e *Engine) Overruns() uint64 { return e.overruns.Load() }

// Start binds the chain to the device's callback and starts the stream.
// Starting a running engine is a logged no-op.
func (e *Engine) Start(dev Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		logrus.WithFields(logrus.Fields{
			"sample_rate": e.cfg.SampleRate,
			"buffer_size": e.cfg.BufferSize,
		}).Warn("Audio engine is already running")
		return nil
	}

	stream, err := dev.Open(e.cfg, e.Callback)
	if err != nil {
		return fmt.Errorf("engine: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("engine: start stream: %w", err)
	}

	e.stream = stream
	e.running = true

	logrus.WithFields(logrus.Fields{
		"mode":        e.cfg.Mode.String(),
		"sample_rate": e.cfg.SampleRate,
		"buffer_size": e.cfg.BufferSize,
		"latency_ms":  e.cfg.LatencyMS(),
	}).Info("Audio engine started")

	return nil
}

// Stop tears the stream down. Stopping a stopped engine is a logged no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		logrus.Warn("Audio engine is not running")
		return nil
	}

	err := e.stream.Close()
	e.stream = nil
	e.running = false

	if err != nil {
		return fmt.Errorf("engine: close stream: %w", err)
	}

	logrus.Info("Audio engine stopped")
	return nil
}

// Callback processes one period synchronously. It copies the input into
// the preallocated working buffers, threads them through the chain and
// fills exactly frames output samples per channel. Boundary status is
// counted, never raised; a missed period is gone and is not retried.
func (e *Engine) Callback(in, out [][]float64, frames int, status StreamStatus) {
	started := time.Now()

	if status.Underrun {
		e.underruns.Add(1)
	}
	if status.Overrun {
		e.overruns.Add(1)
	}

	if frames > e.cfg.BufferSize {
		frames = e.cfg.BufferSize
	}

	left := e.workLeft[:frames]
	fillChannel(left, in, 0)

	if e.cfg.Mode == ModeStereo {
		right := e.workRight[:frames]
		fillChannel(right, in, 1)

		e.ch.ProcessStereo(left, right, float64(e.cfg.SampleRate))

		writeChannel(out, 0, left)
		writeChannel(out, 1, right)
		e.meter.Observe(left)
	} else {
		e.ch.Process(left, float64(e.cfg.SampleRate))
		writeChannel(out, 0, left)
		e.meter.Observe(left)
	}

	e.timing.Observe(time.Since(started))
}

// fillChannel copies input channel ch into dst, zero-filling when the
// boundary supplies no data for it.
func fillChannel(dst []float64, in [][]float64, ch int) {
	if ch < len(in) && len(in[ch]) >= len(dst) {
		copy(dst, in[ch][:len(dst)])
		return
	}
	for i := range dst {
		dst[i] = 0
	}
}

// writeChannel copies src into output channel ch when the boundary
// provided one.
func writeChannel(out [][]float64, ch int, src []float64) {
	if ch < len(out) && len(out[ch]) >= len(src) {
		copy(out[ch], src)
	}
}

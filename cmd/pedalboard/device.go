package main

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-pedalboard/engine"
)

// renderDevice drives the engine callback over a fixed source as fast as
// possible. Start returns once the whole source has been processed; the
// result is collected from Rendered.
type renderDevice struct {
	src      [][]float64
	rendered [][]float64
}

func (d *renderDevice) Open(cfg engine.Config, cb engine.Callback) (engine.Stream, error) {
	return &renderStream{dev: d, cfg: cfg, cb: cb}, nil
}

// Rendered returns the processed channels after the stream has run.
func (d *renderDevice) Rendered() [][]float64 { return d.rendered }

type renderStream struct {
	dev *renderDevice
	cfg engine.Config
	cb  engine.Callback
}

func (s *renderStream) Start() error {
	channels := s.cfg.Mode.Channels()
	total := len(s.dev.src[0])

	out := make([][]float64, channels)
	rendered := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, s.cfg.BufferSize)
		rendered[ch] = make([]float64, total)
	}
	in := make([][]float64, channels)

	for pos := 0; pos < total; pos += s.cfg.BufferSize {
		frames := s.cfg.BufferSize
		if pos+frames > total {
			frames = total - pos
		}
		for ch := range in {
			in[ch] = s.dev.src[ch][pos : pos+frames]
		}

		s.cb(in, out, frames, engine.StreamStatus{})

		for ch := range rendered {
			copy(rendered[ch][pos:pos+frames], out[ch][:frames])
		}
	}

	s.dev.rendered = rendered
	return nil
}

func (s *renderStream) Close() error { return nil }

// otoDevice plays a fixed source through the engine callback on the
// default audio output. Open stores the stream so the caller can wait for
// the source to drain.
type otoDevice struct {
	src        [][]float64
	lastStream *otoStream
}

func (d *otoDevice) Open(cfg engine.Config, cb engine.Callback) (engine.Stream, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Mode.Channels(),
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	reader := newCallbackReader(cfg, cb, d.src)
	player := ctx.NewPlayer(reader)

	stream := &otoStream{player: player, reader: reader}
	d.lastStream = stream
	return stream, nil
}

type otoStream struct {
	player *oto.Player
	reader *callbackReader
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Close() error {
	return s.player.Close()
}

// Wait blocks until the source has been fully consumed.
func (s *otoStream) Wait() {
	<-s.reader.done
}

// callbackReader feeds the player. Each Read pulls one period through the
// engine callback and hands back interleaved 16-bit little-endian PCM.
type callbackReader struct {
	cfg engine.Config
	cb  engine.Callback
	src [][]float64

	pos     int
	in      [][]float64
	out     [][]float64
	pending []byte
	done    chan struct{}
	closed  bool
}

func newCallbackReader(cfg engine.Config, cb engine.Callback, src [][]float64) *callbackReader {
	channels := cfg.Mode.Channels()
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, cfg.BufferSize)
	}
	return &callbackReader{
		cfg:  cfg,
		cb:   cb,
		src:  src,
		in:   make([][]float64, channels),
		out:  out,
		done: make(chan struct{}),
	}
}

func (r *callbackReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *callbackReader) fill() error {
	total := len(r.src[0])
	if r.pos >= total {
		if !r.closed {
			r.closed = true
			close(r.done)
		}
		return io.EOF
	}

	frames := r.cfg.BufferSize
	if r.pos+frames > total {
		frames = total - r.pos
	}
	for ch := range r.in {
		r.in[ch] = r.src[ch][r.pos : r.pos+frames]
	}
	r.pos += frames

	r.cb(r.in, r.out, frames, engine.StreamStatus{})

	channels := len(r.out)
	buf := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := uint16(sampleToInt16(r.out[ch][i]))
			binary.LittleEndian.PutUint16(buf[(i*channels+ch)*2:], v)
		}
	}
	r.pending = buf
	return nil
}

// Command pedalboard runs a WAV file (or a generated test tone) through a
// distortion/delay/reverb pedal chain and writes or plays the result.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-pedalboard/board"
	"github.com/cwbudde/algo-pedalboard/engine"
	"github.com/cwbudde/algo-pedalboard/measure/tuner"
	"github.com/cwbudde/algo-pedalboard/pedal"
)

const (
	defaultSampleRate = 44100
	defaultBufferSize = 256
	testToneHz        = 440.0
	testToneSeconds   = 2.0
	testToneAmplitude = 0.5
)

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		inPath   = flag.String("in", "", "input WAV file (a test tone is generated when empty)")
		outPath  = flag.String("out", "", "output WAV file")
		play     = flag.Bool("play", false, "play the processed audio on the default output")
		modeName = flag.String("mode", "stereo", "audio mode: mono or stereo")
		bufSize  = flag.Int("buffer", defaultBufferSize, "period size in frames")
		tremolo  = flag.Bool("tremolo", false, "append a tremolo pedal to the chain")
		phaser   = flag.Bool("phaser", false, "append a phaser pedal to the chain")
		tune     = flag.Bool("tune", false, "report the detected pitch of the input")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
		sets     stringList
		toggles  stringList
	)
	flag.Var(&sets, "set", "set a pedal parameter, e.g. -set distortion.drive=4 (repeatable)")
	flag.Var(&toggles, "toggle", "toggle a pedal on or off, e.g. -toggle delay (repeatable)")
	flag.Parse()

	if err := run(*inPath, *outPath, *play, *modeName, *bufSize, *tremolo, *phaser, *tune, *logLevel, sets, toggles); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, play bool, modeName string, bufSize int,
	addTremolo, addPhaser, tune bool, logLevel string, sets, toggles stringList,
) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logrus.SetLevel(level)

	mode, err := engine.ParseMode(modeName)
	if err != nil {
		return err
	}

	source, sampleRate, err := loadSource(inPath, mode)
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Config{
		SampleRate: sampleRate,
		BufferSize: bufSize,
		Mode:       mode,
	})
	if err != nil {
		return err
	}

	brd := board.New(eng)
	if err := brd.SetupDefault(); err != nil {
		return err
	}
	if addTremolo {
		trem, err := pedal.NewTremolo()
		if err != nil {
			return err
		}
		if err := brd.Add("tremolo", trem); err != nil {
			return err
		}
	}
	if addPhaser {
		phas, err := pedal.NewPhaser()
		if err != nil {
			return err
		}
		if err := brd.Add("phaser", phas); err != nil {
			return err
		}
	}

	for _, s := range sets {
		id, name, value, err := parseSet(s)
		if err != nil {
			return err
		}
		if err := brd.SetParameter(id, name, value); err != nil {
			return err
		}
	}
	for _, id := range toggles {
		if err := brd.Toggle(id); err != nil {
			return err
		}
	}

	if tune {
		if err := reportPitch(source[0], sampleRate); err != nil {
			return err
		}
	}

	if outPath != "" {
		rendered, err := renderThrough(brd, source)
		if err != nil {
			return err
		}
		if err := writeWAV(outPath, rendered, sampleRate); err != nil {
			return err
		}
		logrus.WithField("path", outPath).Info("Wrote processed audio")
		brd.ResetAll()
	}

	if play {
		if err := playThrough(brd, source); err != nil {
			return err
		}
	}

	printStatus(brd)
	return nil
}

// loadSource decodes the input WAV, or synthesizes a test tone when no
// input was given, adapted to the engine's channel count.
func loadSource(inPath string, mode engine.Mode) ([][]float64, int, error) {
	if inPath == "" {
		return testTone(mode.Channels()), defaultSampleRate, nil
	}

	channels, sampleRate, err := readWAV(inPath)
	if err != nil {
		return nil, 0, err
	}
	return adaptChannels(channels, mode.Channels()), sampleRate, nil
}

func testTone(channels int) [][]float64 {
	frames := int(testToneSeconds * defaultSampleRate)
	src := make([][]float64, channels)
	tone := make([]float64, frames)
	for i := range tone {
		tone[i] = testToneAmplitude * math.Sin(2*math.Pi*testToneHz*float64(i)/defaultSampleRate)
	}
	src[0] = tone
	for ch := 1; ch < channels; ch++ {
		src[ch] = make([]float64, frames)
		copy(src[ch], tone)
	}
	return src
}

// parseSet splits "pedal.param=value" into its parts.
func parseSet(s string) (id, name string, value float64, err error) {
	target, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid -set %q: want pedal.param=value", s)
	}
	id, name, ok = strings.Cut(target, ".")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid -set %q: want pedal.param=value", s)
	}
	value, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid -set value %q: %w", raw, err)
	}
	return id, name, value, nil
}

// renderThrough processes the whole source offline through the board's
// engine and returns the rendered channels.
func renderThrough(brd *board.Board, source [][]float64) ([][]float64, error) {
	dev := &renderDevice{src: source}
	if err := brd.Start(dev); err != nil {
		return nil, err
	}
	if err := brd.Stop(); err != nil {
		return nil, err
	}
	return dev.Rendered(), nil
}

// playThrough streams the source through the board's engine to the default
// audio output, blocking until playback finishes.
func playThrough(brd *board.Board, source [][]float64) error {
	dev := &otoDevice{src: source}
	if err := brd.Start(dev); err != nil {
		return err
	}

	eng := brd.Engine()
	if latency, ok := eng.Latency(); ok {
		logrus.WithField("latency_ms", latency).Info("Playback started")
	}

	// The stream is owned by the engine; waiting happens on the concrete
	// type handed out by the device.
	dev.lastStream.Wait()
	return brd.Stop()
}

func reportPitch(samples []float64, sampleRate int) error {
	t, err := tuner.New(tuner.Config{SampleRate: float64(sampleRate)})
	if err != nil {
		return err
	}
	t.Feed(samples)
	result := t.Estimate()
	if !result.Detected {
		fmt.Println("pitch: not detected")
		return nil
	}
	fmt.Printf("pitch: %.2f Hz (%s %+.1f cents)\n", result.FrequencyHz, result.Note, result.Cents)
	return nil
}

func printStatus(brd *board.Board) {
	status := brd.Status()
	fmt.Printf("mode=%s sample_rate=%d buffer=%d underruns=%d overruns=%d\n",
		status.Mode, status.SampleRate, status.BufferSize, status.Underruns, status.Overruns)

	for _, id := range brd.IDs() {
		ps := status.Pedals[id]
		fmt.Printf("  %-12s enabled=%-5v %v\n", id, ps.Enabled, ps.Parameters)
	}

	eng := brd.Engine()
	fmt.Printf("  peak=%.1f dBFS rms=%.1f dBFS\n", eng.Meter().PeakDB(), eng.Meter().RMSDB())

	report := eng.Timing().Report()
	if report.Count > 0 {
		fmt.Printf("  callback mean=%.3f ms p95=%.3f ms max=%.3f ms over %d periods\n",
			report.MeanMS, report.P95MS, report.MaxMS, report.Count)
	}
}

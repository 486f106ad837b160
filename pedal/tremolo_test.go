package pedal

import (
	"math"
	"testing"
)

const tremoloTestRate = 1000.0

func TestNewTremoloValidation(t *testing.T) {
	if _, err := NewTremolo(WithTremoloRate(0)); err == nil {
		t.Fatal("expected error for rate below 0.1")
	}
	if _, err := NewTremolo(WithTremoloRate(25)); err == nil {
		t.Fatal("expected error for rate above 20")
	}
	if _, err := NewTremolo(WithTremoloWaveform(TremoloWaveform(7))); err == nil {
		t.Fatal("expected error for invalid waveform")
	}
}

func TestTremoloZeroDepthIsHalfGain(t *testing.T) {
	trem, err := NewTremolo(WithTremoloDepth(0))
	if err != nil {
		t.Fatal(err)
	}

	buf := []float64{1, -0.5, 0.25, 0.8}
	trem.Process(buf, tremoloTestRate)

	want := []float64{0.5, -0.25, 0.125, 0.4}
	for i := range buf {
		if !approxEqual(buf[i], want[i], 1e-12) {
			t.Fatalf("sample %d: got %v want %v", i, buf[i], want[i])
		}
	}
}

func TestTremoloSineModulation(t *testing.T) {
	trem, err := NewTremolo(
		WithTremoloRate(5),
		WithTremoloDepth(1),
	)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]float64, 100)
	for i := range buf {
		buf[i] = 1
	}
	trem.Process(buf, tremoloTestRate)

	increment := 2 * math.Pi * 5 / tremoloTestRate
	for i := range buf {
		want := (1 + math.Sin(float64(i)*increment)) / 2
		if !approxEqual(buf[i], want, 1e-12) {
			t.Fatalf("sample %d: got %v want %v", i, buf[i], want)
		}
	}
}

func TestTremoloSquareAlternates(t *testing.T) {
	trem, err := NewTremolo(
		WithTremoloRate(5),
		WithTremoloDepth(1),
		WithTremoloWaveform(TremoloWaveformSquare),
	)
	if err != nil {
		t.Fatal(err)
	}

	// At 5 Hz and 1000 Hz sample rate the half period is 100 samples.
	buf := make([]float64, 200)
	for i := range buf {
		buf[i] = 1
	}
	trem.Process(buf, tremoloTestRate)

	// sin(0) = 0 is not > 0, so the square starts low.
	if !approxEqual(buf[0], 0, 1e-12) {
		t.Fatalf("sample 0: got %v want 0", buf[0])
	}
	if !approxEqual(buf[50], 1, 1e-12) {
		t.Fatalf("sample 50: got %v want 1", buf[50])
	}
	if !approxEqual(buf[150], 0, 1e-12) {
		t.Fatalf("sample 150: got %v want 0", buf[150])
	}
}

func TestTremoloPhaseSurvivesBufferBoundary(t *testing.T) {
	whole, err := NewTremolo(WithTremoloRate(3), WithTremoloDepth(0.7))
	if err != nil {
		t.Fatal(err)
	}
	split, err := NewTremolo(WithTremoloRate(3), WithTremoloDepth(0.7))
	if err != nil {
		t.Fatal(err)
	}

	bufWhole := make([]float64, 100)
	first := make([]float64, 50)
	second := make([]float64, 50)
	for i := range bufWhole {
		bufWhole[i] = 1
	}
	for i := range first {
		first[i] = 1
		second[i] = 1
	}

	whole.Process(bufWhole, tremoloTestRate)
	split.Process(first, tremoloTestRate)
	split.Process(second, tremoloTestRate)

	got := append(first, second...)
	for i := range bufWhole {
		if !approxEqual(got[i], bufWhole[i], 1e-12) {
			t.Fatalf("sample %d: split %v whole %v", i, got[i], bufWhole[i])
		}
	}
}

func TestTremoloResetRewindsPhase(t *testing.T) {
	trem, err := NewTremolo(WithTremoloDepth(1))
	if err != nil {
		t.Fatal(err)
	}

	warm := make([]float64, 37)
	for i := range warm {
		warm[i] = 1
	}
	trem.Process(warm, tremoloTestRate)
	trem.Reset()

	buf := []float64{1}
	trem.Process(buf, tremoloTestRate)

	// Phase 0 with a sine LFO gives exactly half gain.
	if !approxEqual(buf[0], 0.5, 1e-12) {
		t.Fatalf("after reset: got %v want 0.5", buf[0])
	}
}

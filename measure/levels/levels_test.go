package levels

import (
	"math"
	"testing"
	"time"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// --- Meter ---

func TestMeterObserve(t *testing.T) {
	var m Meter
	m.Observe([]float64{0.5, -1, 0.25})

	if m.Peak() != 1 {
		t.Fatalf("Peak: got %v want 1", m.Peak())
	}

	wantRMS := math.Sqrt((0.25 + 1 + 0.0625) / 3)
	if !approxEqual(m.RMS(), wantRMS, 1e-12) {
		t.Fatalf("RMS: got %v want %v", m.RMS(), wantRMS)
	}
}

func TestMeterDecibels(t *testing.T) {
	var m Meter
	m.Observe([]float64{1, -1})

	if m.PeakDB() != 0 {
		t.Fatalf("PeakDB at full scale: got %v want 0", m.PeakDB())
	}

	m.Observe([]float64{0.5, -0.5})
	if !approxEqual(m.PeakDB(), 20*math.Log10(0.5), 1e-12) {
		t.Fatalf("PeakDB at half scale: got %v", m.PeakDB())
	}
}

func TestMeterSilenceIsMinusInf(t *testing.T) {
	var m Meter
	m.Observe([]float64{0, 0, 0})

	if !math.IsInf(m.PeakDB(), -1) {
		t.Fatalf("PeakDB of silence: got %v want -Inf", m.PeakDB())
	}
	if !math.IsInf(m.RMSDB(), -1) {
		t.Fatalf("RMSDB of silence: got %v want -Inf", m.RMSDB())
	}
}

func TestMeterEmptyBlockIgnored(t *testing.T) {
	var m Meter
	m.Observe([]float64{0.5})
	m.Observe(nil)

	if m.Peak() != 0.5 {
		t.Fatalf("empty block must not clear the meter: got %v", m.Peak())
	}
}

func TestMeterReset(t *testing.T) {
	var m Meter
	m.Observe([]float64{1})
	m.Reset()

	if m.Peak() != 0 || m.RMS() != 0 {
		t.Fatalf("after reset: peak %v rms %v", m.Peak(), m.RMS())
	}
}

// --- Timing ---

func TestTimingReportEmpty(t *testing.T) {
	tm := NewTiming(8)
	report := tm.Report()

	if report.Count != 0 {
		t.Fatalf("Count: got %d want 0", report.Count)
	}
}

func TestTimingReportStats(t *testing.T) {
	tm := NewTiming(8)
	tm.Observe(1 * time.Millisecond)
	tm.Observe(2 * time.Millisecond)
	tm.Observe(3 * time.Millisecond)

	report := tm.Report()
	if report.Count != 3 {
		t.Fatalf("Count: got %d want 3", report.Count)
	}
	if !approxEqual(report.MeanMS, 2, 1e-9) {
		t.Fatalf("MeanMS: got %v want 2", report.MeanMS)
	}
	if !approxEqual(report.MaxMS, 3, 1e-9) {
		t.Fatalf("MaxMS: got %v want 3", report.MaxMS)
	}
	if report.P95MS < report.MeanMS || report.P95MS > report.MaxMS {
		t.Fatalf("P95MS out of range: %v", report.P95MS)
	}
}

func TestTimingRingWraps(t *testing.T) {
	tm := NewTiming(4)
	for i := 0; i < 10; i++ {
		tm.Observe(time.Duration(i) * time.Millisecond)
	}

	report := tm.Report()
	if report.Count != 4 {
		t.Fatalf("Count: got %d want 4", report.Count)
	}
	// Only the last four observations (6..9 ms) survive.
	if report.MaxMS < 6 {
		t.Fatalf("MaxMS: got %v want >= 6", report.MaxMS)
	}
}

func TestTimingReset(t *testing.T) {
	tm := NewTiming(4)
	tm.Observe(time.Millisecond)
	tm.Reset()

	if got := tm.Report().Count; got != 0 {
		t.Fatalf("Count after reset: got %d want 0", got)
	}
}

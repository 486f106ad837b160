package pedal

import (
	"testing"
)

// pedalFactories builds a fresh, identically configured pedal per call so
// tests can compare instances against each other.
func pedalFactories(t *testing.T) map[string]func() Effect {
	t.Helper()

	must := func(e Effect, err error) Effect {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	return map[string]func() Effect{
		"distortion": func() Effect { return must(NewDistortion()) },
		"delay":      func() Effect { return must(NewDelay(44100, 2000, true)) },
		"reverb":     func() Effect { return must(NewReverb(44100, true)) },
		"tremolo":    func() Effect { return must(NewTremolo()) },
		"phaser":     func() Effect { return must(NewPhaser()) },
	}
}

func allPedals(t *testing.T) map[string]Effect {
	t.Helper()

	pedals := make(map[string]Effect)
	for id, build := range pedalFactories(t) {
		pedals[id] = build()
	}
	return pedals
}

func TestParameterRoundTrip(t *testing.T) {
	for id, e := range allPedals(t) {
		for name, current := range e.Parameters() {
			if err := e.SetParameter(name, current); err != nil {
				t.Fatalf("%s: rewriting %s=%v failed: %v", id, name, current, err)
			}
			got, err := e.Parameter(name)
			if err != nil {
				t.Fatalf("%s: reading %s failed: %v", id, name, err)
			}
			if got != current {
				t.Fatalf("%s: %s round trip: got %v want %v", id, name, got, current)
			}
		}
	}
}

func TestParametersSnapshotIsDetached(t *testing.T) {
	d, err := NewDistortion()
	if err != nil {
		t.Fatal(err)
	}

	snapshot := d.Parameters()
	snapshot[ParamDrive] = 99

	if got, _ := d.Parameter(ParamDrive); got != 2.0 {
		t.Fatalf("mutating the snapshot changed the pedal: got %v", got)
	}
}

func TestEnableToggle(t *testing.T) {
	for id, e := range allPedals(t) {
		if !e.Enabled() {
			t.Fatalf("%s: new pedal should be enabled", id)
		}

		e.Toggle()
		if e.Enabled() {
			t.Fatalf("%s: toggle should disable", id)
		}

		e.SetEnabled(true)
		if !e.Enabled() {
			t.Fatalf("%s: SetEnabled(true) should enable", id)
		}
	}
}

func TestDisabledPedalIsBitExactBypass(t *testing.T) {
	for id, e := range allPedals(t) {
		e.SetEnabled(false)

		input := []float64{0.9, -0.9, 0.1, 0.5, -0.25, 1, -1, 0}
		left := append([]float64(nil), input...)
		right := append([]float64(nil), input...)

		e.Process(left, 44100)
		e.ProcessStereo(left, right, 44100)

		for i := range input {
			if left[i] != input[i] || right[i] != input[i] {
				t.Fatalf("%s: disabled pedal changed sample %d", id, i)
			}
		}
	}
}

func TestDisabledPedalFreezesState(t *testing.T) {
	// A disabled pedal must not advance LFO phases, delay cursors or filter
	// memory: after re-enabling, its output must match a fresh twin's
	// output sample for sample.
	for id, build := range pedalFactories(t) {
		used := build()
		fresh := build()

		used.SetEnabled(false)
		garbageL := []float64{1, -1, 0.5, -0.5, 0.25, 0.9, -0.9, 0.1}
		garbageR := append([]float64(nil), garbageL...)
		for round := 0; round < 8; round++ {
			used.Process(garbageL, 44100)
			used.ProcessStereo(garbageL, garbageR, 44100)
		}
		used.SetEnabled(true)

		input := []float64{0.9, -0.9, 0.1, 0.5, -0.25, 1, -1, 0}
		gotL := append([]float64(nil), input...)
		gotR := append([]float64(nil), input...)
		wantL := append([]float64(nil), input...)
		wantR := append([]float64(nil), input...)

		used.ProcessStereo(gotL, gotR, 44100)
		fresh.ProcessStereo(wantL, wantR, 44100)

		for i := range input {
			if gotL[i] != wantL[i] || gotR[i] != wantR[i] {
				t.Fatalf("%s: state advanced while disabled: sample %d got (%v, %v) want (%v, %v)",
					id, i, gotL[i], gotR[i], wantL[i], wantR[i])
			}
		}
	}
}

func TestEffectNames(t *testing.T) {
	want := map[string]string{
		"distortion": "Distortion",
		"delay":      "Delay",
		"reverb":     "Reverb",
		"tremolo":    "Tremolo",
		"phaser":     "Phaser",
	}
	for id, e := range allPedals(t) {
		if e.Name() != want[id] {
			t.Fatalf("%s: Name: got %q want %q", id, e.Name(), want[id])
		}
	}
}

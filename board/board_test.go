package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-pedalboard/engine"
	"github.com/cwbudde/algo-pedalboard/pedal"
)

func newTestBoard(t *testing.T, mode engine.Mode) *Board {
	t.Helper()

	eng, err := engine.New(engine.Config{
		SampleRate: 44100,
		BufferSize: 64,
		Mode:       mode,
	})
	require.NoError(t, err)
	return New(eng)
}

// --- registry ---

func TestAddRemovePedal(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)

	dist, err := pedal.NewDistortion()
	require.NoError(t, err)

	require.NoError(t, b.Add("drive", dist))
	assert.Equal(t, 1, b.Engine().Chain().Len())

	got, err := b.Pedal("drive")
	require.NoError(t, err)
	assert.Same(t, pedal.Effect(dist), got)

	err = b.Add("drive", dist)
	assert.ErrorIs(t, err, ErrDuplicatePedal)

	require.NoError(t, b.Remove("drive"))
	assert.Equal(t, 0, b.Engine().Chain().Len())

	err = b.Remove("drive")
	assert.ErrorIs(t, err, ErrUnknownPedal)
}

func TestAddRejectsEmptyID(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)

	dist, err := pedal.NewDistortion()
	require.NoError(t, err)

	assert.Error(t, b.Add("", dist))
}

func TestUnknownPedalOperations(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)

	_, err := b.Pedal("ghost")
	assert.ErrorIs(t, err, ErrUnknownPedal)
	assert.ErrorIs(t, b.Toggle("ghost"), ErrUnknownPedal)
	assert.ErrorIs(t, b.SetParameter("ghost", "drive", 1), ErrUnknownPedal)
}

// --- parameters ---

func TestSetParameter(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	require.NoError(t, b.SetParameter("distortion", pedal.ParamDrive, 4))

	p, err := b.Pedal("distortion")
	require.NoError(t, err)
	got, err := p.Parameter(pedal.ParamDrive)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)
}

func TestSetParameterUnknownName(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	err := b.SetParameter("distortion", "resonance", 1)
	assert.ErrorIs(t, err, pedal.ErrUnknownParameter)
}

func TestSetParameterOutOfRangeLeavesValue(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	assert.Error(t, b.SetParameter("distortion", pedal.ParamDrive, 100))

	p, err := b.Pedal("distortion")
	require.NoError(t, err)
	got, err := p.Parameter(pedal.ParamDrive)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got, "rejected write must not change the value")
}

// --- default setup ---

func TestSetupDefault(t *testing.T) {
	b := newTestBoard(t, engine.ModeStereo)
	require.NoError(t, b.SetupDefault())

	assert.Equal(t, []string{"delay", "distortion", "reverb"}, b.IDs())
	assert.Equal(t, 3, b.Engine().Chain().Len())

	status := b.Status()
	assert.True(t, status.Pedals["distortion"].Enabled)
	assert.False(t, status.Pedals["delay"].Enabled)
	assert.False(t, status.Pedals["reverb"].Enabled)

	// Chain order is distortion first, regardless of id sort order.
	effects := b.Engine().Chain().Effects()
	require.Len(t, effects, 3)
	assert.Equal(t, "Distortion", effects[0].Name())
	assert.Equal(t, "Delay", effects[1].Name())
	assert.Equal(t, "Reverb", effects[2].Name())
}

func TestSetupDefaultStereoPedals(t *testing.T) {
	b := newTestBoard(t, engine.ModeStereo)
	require.NoError(t, b.SetupDefault())

	delay, err := b.Pedal("delay")
	require.NoError(t, err)
	assert.True(t, delay.Stereo())

	reverb, err := b.Pedal("reverb")
	require.NoError(t, err)
	assert.True(t, reverb.Stereo())

	mono := newTestBoard(t, engine.ModeMono)
	require.NoError(t, mono.SetupDefault())

	delay, err = mono.Pedal("delay")
	require.NoError(t, err)
	assert.False(t, delay.Stereo())
}

// --- toggle and clear ---

func TestToggle(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	require.NoError(t, b.Toggle("delay"))
	status := b.Status()
	assert.True(t, status.Pedals["delay"].Enabled)

	require.NoError(t, b.Toggle("delay"))
	status = b.Status()
	assert.False(t, status.Pedals["delay"].Enabled)
}

func TestClear(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	b.Clear()
	assert.Empty(t, b.IDs())
	assert.Equal(t, 0, b.Engine().Chain().Len())
}

// --- status ---

func TestStatusStopped(t *testing.T) {
	b := newTestBoard(t, engine.ModeStereo)
	require.NoError(t, b.SetupDefault())

	status := b.Status()
	assert.False(t, status.Running)
	assert.False(t, status.LatencySet)
	assert.Equal(t, "stereo", status.Mode)
	assert.Equal(t, 44100, status.SampleRate)
	assert.Equal(t, 64, status.BufferSize)
	assert.Len(t, status.Pedals, 3)

	params := status.Pedals["distortion"].Parameters
	assert.Equal(t, 2.0, params[pedal.ParamDrive])
}

// --- reset fan-out ---

func TestResetAllKeepsParameters(t *testing.T) {
	b := newTestBoard(t, engine.ModeMono)
	require.NoError(t, b.SetupDefault())

	require.NoError(t, b.SetParameter("distortion", pedal.ParamDrive, 7))
	b.ResetAll()

	p, err := b.Pedal("distortion")
	require.NoError(t, err)
	got, err := p.Parameter(pedal.ParamDrive)
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)

	assert.Equal(t, 3, b.Engine().Chain().Len(), "reset must not change membership")
}

package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyvario/pkg/clock"
)

type beepCall struct {
	waveform Waveform
	hz       float64
	duration time.Duration
}

type recordingVoice struct {
	waveform Waveform
	freqs    []float64
	stopped  bool
}

func (v *recordingVoice) SetFrequency(hz float64) { v.freqs = append(v.freqs, hz) }
func (v *recordingVoice) Stop()                   { v.stopped = true }

type recordingDevice struct {
	now       float64
	opens     int
	suspends  int
	gains     []float64
	voices    []*recordingVoice
	beeps     []beepCall
	openError error
}

func (d *recordingDevice) Open() error {
	d.opens++
	return d.openError
}
func (d *recordingDevice) Suspend()             { d.suspends++ }
func (d *recordingDevice) Now() float64         { return d.now }
func (d *recordingDevice) SetGain(gain float64) { d.gains = append(d.gains, gain) }

func (d *recordingDevice) StartTone(w Waveform, hz float64) Voice {
	v := &recordingVoice{waveform: w, freqs: []float64{hz}}
	d.voices = append(d.voices, v)
	return v
}

func (d *recordingDevice) Beep(w Waveform, hz float64, dur time.Duration) {
	d.beeps = append(d.beeps, beepCall{w, hz, dur})
}

func (d *recordingDevice) lastGain() float64 {
	if len(d.gains) == 0 {
		return -1
	}
	return d.gains[len(d.gains)-1]
}

func newTestSynth(t *testing.T) (*Synthesizer, *recordingDevice, *clock.Fake) {
	t.Helper()
	dev := &recordingDevice{now: 10}
	clk := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s := NewSynthesizer(dev, clk, DefaultConfig())
	require.NoError(t, s.Start())
	return s, dev, clk
}

func TestToneMapping(t *testing.T) {
	tests := []struct {
		vs        float64
		sinkHz    float64
		liftPitch float64
		liftRate  float64
	}{
		{-3, 240, 50, -5},
		{-8, 150, -700, -15},
		{2, 340, 800, 5},
		{0.5, 310, 575, 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.sinkHz, SinkToneFrequency(tt.vs), 1e-9, "sink %v", tt.vs)
		assert.InDelta(t, tt.liftPitch, LiftBeepPitch(tt.vs), 1e-9, "pitch %v", tt.vs)
		assert.InDelta(t, tt.liftRate, LiftBeepRate(tt.vs), 1e-9, "rate %v", tt.vs)
	}
}

func TestSynthesizer_SinkTone(t *testing.T) {
	s, dev, _ := newTestSynth(t)

	fb := s.Update(-3)
	assert.Equal(t, ModeSink, fb.Mode)
	assert.Equal(t, 240.0, fb.ToneHz)
	require.Len(t, dev.voices, 1)
	assert.Equal(t, Sawtooth, dev.voices[0].waveform)

	fb = s.Update(-8)
	assert.Equal(t, 150.0, fb.ToneHz)
	require.Len(t, dev.voices, 1, "existing voice is retuned")
	assert.Equal(t, []float64{240, 150}, dev.voices[0].freqs)

	fb = s.Update(0.05)
	assert.Equal(t, ModeSilent, fb.Mode)
	assert.True(t, dev.voices[0].stopped)
	assert.Empty(t, dev.beeps)
}

func TestSynthesizer_ThresholdsAreExclusive(t *testing.T) {
	s, dev, _ := newTestSynth(t)

	assert.Equal(t, ModeSilent, s.Update(-2.0).Mode)
	assert.Equal(t, ModeSilent, s.Update(0.2).Mode)
	assert.Empty(t, dev.voices)
	assert.Empty(t, dev.beeps)
}

func TestSynthesizer_ZeroThresholdHonored(t *testing.T) {
	dev := &recordingDevice{now: 10}
	s := NewSynthesizer(dev, clock.NewFake(time.Now()), Config{SinkThreshold: 0, LiftThreshold: 0, MuteCooldown: time.Second})
	require.NoError(t, s.Start())

	assert.Equal(t, ModeLift, s.Update(0.1).Mode)
	assert.Len(t, dev.beeps, 1)
	assert.Equal(t, ModeSilent, s.Update(0).Mode)
	assert.Equal(t, ModeSink, s.Update(-0.1).Mode)
}

func TestSynthesizer_LiftBeeps(t *testing.T) {
	s, dev, _ := newTestSynth(t)

	steps := []struct {
		now    float64
		beeped bool
	}{
		{10.00, true},
		{10.10, false},
		{10.20, false}, // strictly after the interval
		{10.25, true},
		{10.30, false},
		{10.50, true},
	}
	for _, st := range steps {
		dev.now = st.now
		fb := s.Update(2)
		assert.Equal(t, ModeLift, fb.Mode)
		assert.Equal(t, 800.0, fb.BeepPitch)
		assert.Equal(t, 5.0, fb.BeepRate)
		assert.Equal(t, st.beeped, fb.Beeped, "at %v", st.now)
	}

	require.Len(t, dev.beeps, 3)
	assert.Equal(t, beepCall{Sine, 800, BeepDuration}, dev.beeps[0])
}

func TestSynthesizer_LiftStopsSinkTone(t *testing.T) {
	s, dev, _ := newTestSynth(t)

	s.Update(-4)
	s.Update(1)
	require.Len(t, dev.voices, 1)
	assert.True(t, dev.voices[0].stopped)

	s.Update(-4)
	assert.Len(t, dev.voices, 2, "sink after lift starts a fresh voice")
}

func TestSynthesizer_Muted(t *testing.T) {
	s, dev, _ := newTestSynth(t)
	assert.Equal(t, masterGain, dev.lastGain())

	s.SetMuted(true)
	assert.Equal(t, 0.0, dev.lastGain())

	fb := s.Update(3)
	assert.Equal(t, ModeMuted, fb.Mode)
	assert.Empty(t, dev.beeps)

	assert.False(t, s.ToggleMute())
	assert.Equal(t, masterGain, dev.lastGain())
	assert.True(t, s.Update(3).Beeped)
}

func TestSynthesizer_NotRunning(t *testing.T) {
	dev := &recordingDevice{now: 10}
	s := NewSynthesizer(dev, clock.NewFake(time.Now()), Config{})

	assert.Equal(t, ModeOff, s.Update(3).Mode)
	s.SetMuted(true)
	assert.Empty(t, dev.gains, "gain is applied on start")

	require.NoError(t, s.Start())
	assert.Equal(t, []float64{0}, dev.gains)
}

func TestSynthesizer_StopKeepsPreference(t *testing.T) {
	s, dev, _ := newTestSynth(t)
	s.SetMuted(true)
	s.Update(-5)
	s.Stop()

	assert.Equal(t, 1, dev.suspends)
	assert.True(t, s.IsMuted())
	assert.Equal(t, ModeOff, s.Update(-5).Mode)
}

func TestSynthesizer_ProximityDebounce(t *testing.T) {
	s, _, clk := newTestSynth(t)

	assert.False(t, s.HandleProximity(false), "far is ignored")
	assert.False(t, s.IsMuted())

	assert.True(t, s.HandleProximity(true))
	assert.True(t, s.IsMuted())
	assert.True(t, s.IsActionPending())

	clk.Advance(200 * time.Millisecond)
	assert.False(t, s.HandleProximity(true), "second wave inside cooldown")
	assert.True(t, s.IsMuted())

	clk.Advance(900 * time.Millisecond)
	assert.False(t, s.IsActionPending())
	assert.True(t, s.HandleProximity(true))
	assert.False(t, s.IsMuted())
}

func TestSynthesizer_StopClearsPendingAction(t *testing.T) {
	s, _, clk := newTestSynth(t)

	require.True(t, s.HandleProximity(true))
	s.Stop()
	assert.False(t, s.IsActionPending())
	assert.Equal(t, 0, clk.Pending())

	require.NoError(t, s.Start())
	clk.Advance(500 * time.Millisecond)
	require.True(t, s.HandleProximity(true))

	clk.Advance(700 * time.Millisecond)
	assert.True(t, s.IsActionPending(), "only the newest window clears the latch")

	clk.Advance(300 * time.Millisecond)
	assert.False(t, s.IsActionPending())
}

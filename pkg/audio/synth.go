// Package audio sonifies vertical speed: a continuous sink tone, lift beeps
// whose rate follows the climb rate, and silence in between.
package audio

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"skyvario/pkg/clock"
)

const (
	DefaultSinkThreshold = -2.0 // m/s
	DefaultLiftThreshold = 0.2  // m/s
	DefaultMuteCooldown  = time.Second

	masterGain = 0.5

	sinkBaseHz  = 300.0
	sinkSlopeHz = 20.0
	sinkFloorHz = 150.0

	liftBasePitch  = 500.0
	liftPitchSlope = 150.0
	liftBaseRate   = 1.0
	liftRateSlope  = 2.0

	// BeepDuration is the length of one lift beep.
	BeepDuration = 100 * time.Millisecond
)

// Mode is the feedback regime chosen for a vertical speed.
type Mode string

const (
	ModeSilent Mode = "silent"
	ModeSink   Mode = "sink"
	ModeLift   Mode = "lift"
	ModeMuted  Mode = "muted"
	ModeOff    Mode = "off"
)

// Feedback describes what one Update did.
type Feedback struct {
	Mode      Mode
	ToneHz    float64 // sink tone frequency
	BeepPitch float64 // lift beep pitch
	BeepRate  float64 // lift beeps per second
	Beeped    bool    // a beep was emitted by this update
}

// Config holds the synthesizer thresholds.
type Config struct {
	SinkThreshold float64
	LiftThreshold float64
	MuteCooldown  time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		SinkThreshold: DefaultSinkThreshold,
		LiftThreshold: DefaultLiftThreshold,
		MuteCooldown:  DefaultMuteCooldown,
	}
}

// SinkToneFrequency is the continuous tone pitch for a sink rate: deeper as
// sink increases, floored at 150 Hz.
func SinkToneFrequency(verticalSpeed float64) float64 {
	return math.Max(sinkFloorHz, sinkBaseHz+verticalSpeed*sinkSlopeHz)
}

// LiftBeepPitch is the beep pitch for a climb rate.
func LiftBeepPitch(verticalSpeed float64) float64 {
	return liftBasePitch + verticalSpeed*liftPitchSlope
}

// LiftBeepRate is the number of beeps per second for a climb rate.
func LiftBeepRate(verticalSpeed float64) float64 {
	return liftBaseRate + verticalSpeed*liftRateSlope
}

// Synthesizer maps vertical speed onto a ToneDevice and owns the mute state.
type Synthesizer struct {
	mu  sync.Mutex
	dev ToneDevice
	clk clock.Clock
	cfg Config

	running       bool
	muted         bool
	actionPending bool
	lastBeepTime  float64
	tone          Voice

	cooldown      clock.Timer
	cooldownEpoch uint64
}

// NewSynthesizer creates a synthesizer. cfg is used as given; start from
// DefaultConfig for the stock thresholds.
func NewSynthesizer(dev ToneDevice, clk clock.Clock, cfg Config) *Synthesizer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Synthesizer{dev: dev, clk: clk, cfg: cfg}
}

// Start opens the tone device and applies the current mute state.
func (s *Synthesizer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dev.Open(); err != nil {
		return err
	}
	s.running = true
	s.applyGainLocked()
	slog.Debug("Audio: synthesizer started", "muted", s.muted)
	return nil
}

// Stop silences the continuous voice, suspends the device and clears the
// proximity debounce latch. The mute preference is kept.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopToneLocked()
	if s.running {
		s.dev.Suspend()
	}
	s.running = false

	if s.cooldown != nil {
		s.cooldown.Stop()
		s.cooldown = nil
	}
	s.cooldownEpoch++
	s.actionPending = false
}

// Update drives the device for the current vertical speed.
func (s *Synthesizer) Update(verticalSpeed float64) Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return Feedback{Mode: ModeOff}
	}
	if s.muted {
		return Feedback{Mode: ModeMuted}
	}

	now := s.dev.Now()

	switch {
	case verticalSpeed < s.cfg.SinkThreshold:
		hz := SinkToneFrequency(verticalSpeed)
		if s.tone == nil {
			s.tone = s.dev.StartTone(Sawtooth, hz)
		} else {
			s.tone.SetFrequency(hz)
		}
		return Feedback{Mode: ModeSink, ToneHz: hz}

	case verticalSpeed > s.cfg.LiftThreshold:
		fb := Feedback{
			Mode:      ModeLift,
			BeepPitch: LiftBeepPitch(verticalSpeed),
			BeepRate:  LiftBeepRate(verticalSpeed),
		}
		if now > s.lastBeepTime+1/fb.BeepRate {
			s.lastBeepTime = now
			s.dev.Beep(Sine, fb.BeepPitch, BeepDuration)
			fb.Beeped = true
		}
		s.stopToneLocked()
		return fb

	default:
		s.stopToneLocked()
		return Feedback{Mode: ModeSilent}
	}
}

// SetMuted sets the mute preference.
func (s *Synthesizer) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	s.applyGainLocked()
}

// IsMuted returns the mute preference.
func (s *Synthesizer) IsMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// ToggleMute flips the mute preference and returns the new value.
func (s *Synthesizer) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggleLocked()
	return s.muted
}

// IsActionPending reports whether a proximity toggle is cooling down.
func (s *Synthesizer) IsActionPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actionPending
}

// HandleProximity toggles mute on a "near" event unless a previous toggle is
// still within its cooldown window. It reports whether mute was toggled.
// The latch clears once per window regardless of how many events arrive.
func (s *Synthesizer) HandleProximity(near bool) bool {
	if !near {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.actionPending {
		return false
	}
	s.actionPending = true
	s.toggleLocked()

	s.cooldownEpoch++
	epoch := s.cooldownEpoch
	s.cooldown = s.clk.AfterFunc(s.cfg.MuteCooldown, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cooldownEpoch != epoch {
			return
		}
		s.actionPending = false
		s.cooldown = nil
	})
	return true
}

func (s *Synthesizer) toggleLocked() {
	s.muted = !s.muted
	s.applyGainLocked()
	slog.Info("Audio: mute toggled", "muted", s.muted)
}

func (s *Synthesizer) applyGainLocked() {
	if !s.running {
		return
	}
	if s.muted {
		s.dev.SetGain(0)
	} else {
		s.dev.SetGain(masterGain)
	}
}

func (s *Synthesizer) stopToneLocked() {
	if s.tone != nil {
		s.tone.Stop()
		s.tone = nil
	}
}

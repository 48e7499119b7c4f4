package audio

import (
	"sync"
	"time"

	"skyvario/pkg/clock"
)

// Waveform selects the timbre of a voice.
type Waveform int

const (
	// Sine is a pure tone.
	Sine Waveform = iota
	// Sawtooth is a harsh, buzzy tone.
	Sawtooth
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Sawtooth:
		return "sawtooth"
	default:
		return "unknown"
	}
}

// Voice is a running continuous tone.
type Voice interface {
	// SetFrequency retargets the tone. Devices may glide towards the new pitch.
	SetFrequency(hz float64)
	// Stop silences the voice for good.
	Stop()
}

// ToneDevice is the oscillator hardware the synthesizer drives.
type ToneDevice interface {
	// Open creates the output on first use and resumes it when suspended.
	Open() error
	// Suspend pauses output without releasing the device.
	Suspend()
	// Now returns the device clock in seconds.
	Now() float64
	// SetGain sets the master output gain (0..1).
	SetGain(gain float64)
	// StartTone starts a continuous voice.
	StartTone(w Waveform, hz float64) Voice
	// Beep plays a short tone with an exponential decay over d.
	Beep(w Waveform, hz float64, d time.Duration)
}

// NullDevice is a silent ToneDevice for hosts without audio output.
// Its clock follows the supplied Clock.
type NullDevice struct {
	mu     sync.Mutex
	clk    clock.Clock
	origin time.Time
	opened bool
	gain   float64
}

// NewNullDevice creates a silent device.
func NewNullDevice(clk clock.Clock) *NullDevice {
	if clk == nil {
		clk = clock.Real()
	}
	return &NullDevice{clk: clk, origin: clk.Now()}
}

func (d *NullDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *NullDevice) Suspend() {}

func (d *NullDevice) Now() float64 {
	return d.clk.Now().Sub(d.origin).Seconds()
}

func (d *NullDevice) SetGain(gain float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gain = gain
}

// Gain returns the last master gain set.
func (d *NullDevice) Gain() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gain
}

func (d *NullDevice) StartTone(Waveform, float64) Voice {
	return nullVoice{}
}

func (d *NullDevice) Beep(Waveform, float64, time.Duration) {}

type nullVoice struct{}

func (nullVoice) SetFrequency(float64) {}
func (nullVoice) Stop()                {}

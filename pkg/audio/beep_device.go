package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	DefaultSampleRate = beep.SampleRate(48000)

	// sinkGlide smooths sink tone pitch changes.
	sinkGlide = 50 * time.Millisecond
	// gainRamp keeps mute/unmute free of clicks.
	gainRamp = 20 * time.Millisecond

	beepDecayFloor = 0.0001
)

// BeepOptions configures the speaker-backed device.
type BeepOptions struct {
	SampleRate beep.SampleRate
	Headset    bool
	LowCutoff  float64
	HighCutoff float64
}

// BeepDevice renders voices through the system speaker using gopxl/beep.
// All voices share one mixer behind a master gain stage.
type BeepDevice struct {
	mu        sync.Mutex
	opts      BeepOptions
	opened    bool
	suspended bool
	origin    time.Time
	mixer     *beep.Mixer
	master    *SmoothVolume
}

// NewBeepDevice creates a device. The speaker is initialized lazily on Open.
func NewBeepDevice(opts BeepOptions) *BeepDevice {
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultSampleRate
	}
	return &BeepDevice{opts: opts}
}

func (d *BeepDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		sr := d.opts.SampleRate
		if err := speaker.Init(sr, sr.N(time.Second/20)); err != nil {
			return fmt.Errorf("audio: init speaker: %w", err)
		}
		d.mixer = &beep.Mixer{}
		// keeps the mixer streaming between voices
		d.mixer.Add(beep.Silence(-1))

		var out beep.Streamer = d.mixer
		if d.opts.Headset {
			out = NewHeadsetFilter(out, float64(sr), d.opts.LowCutoff, d.opts.HighCutoff)
			slog.Debug("Audio: Headset effect applied", "low", d.opts.LowCutoff, "high", d.opts.HighCutoff)
		}
		d.master = NewSmoothVolume(out, 0)
		speaker.Play(d.master)

		d.origin = time.Now()
		d.opened = true
		slog.Debug("Audio: speaker initialized", "sample_rate", int(sr))
		return nil
	}

	if d.suspended {
		if err := speaker.Resume(); err != nil {
			return fmt.Errorf("audio: resume speaker: %w", err)
		}
		d.suspended = false
	}
	return nil
}

func (d *BeepDevice) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened || d.suspended {
		return
	}
	if err := speaker.Suspend(); err != nil {
		slog.Warn("Audio: failed to suspend speaker", "error", err)
		return
	}
	d.suspended = true
}

func (d *BeepDevice) Now() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return 0
	}
	return time.Since(d.origin).Seconds()
}

func (d *BeepDevice) SetGain(gain float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return
	}
	speaker.Lock()
	d.master.SetTarget(gain, float64(d.opts.SampleRate), gainRamp)
	speaker.Unlock()
}

func (d *BeepDevice) StartTone(w Waveform, hz float64) Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nullVoice{}
	}
	osc := NewOscillator(d.opts.SampleRate, w, hz, sinkGlide)
	speaker.Lock()
	d.mixer.Add(osc)
	speaker.Unlock()
	return &speakerVoice{osc: osc}
}

func (d *BeepDevice) Beep(w Waveform, hz float64, dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return
	}
	sr := d.opts.SampleRate
	osc := NewOscillator(sr, w, hz, 0)
	env := NewDecay(osc, sr, 1, beepDecayFloor, dur)
	speaker.Lock()
	d.mixer.Add(beep.Take(sr.N(dur), env))
	speaker.Unlock()
}

type speakerVoice struct {
	osc *Oscillator
}

func (v *speakerVoice) SetFrequency(hz float64) {
	speaker.Lock()
	v.osc.SetFrequency(hz)
	speaker.Unlock()
}

func (v *speakerVoice) Stop() {
	speaker.Lock()
	v.osc.Stop()
	speaker.Unlock()
}

package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// Oscillator generates a periodic waveform. Frequency changes glide
// exponentially with the configured time constant.
//
// Like SmoothVolume, Oscillator is not synchronized; when played through the
// speaker, mutate it under speaker.Lock().
type Oscillator struct {
	waveform   Waveform
	sampleRate float64
	freq       float64
	target     float64
	glide      float64 // per-sample approach factor, 1 means jump
	phase      float64
	stopped    bool
}

// NewOscillator creates an oscillator at hz. glide is the time constant used
// when the frequency is retargeted; zero makes changes instant.
func NewOscillator(sr beep.SampleRate, w Waveform, hz float64, glide time.Duration) *Oscillator {
	o := &Oscillator{
		waveform:   w,
		sampleRate: float64(sr),
		freq:       hz,
		target:     hz,
		glide:      1,
	}
	if glide > 0 {
		o.glide = 1 - math.Exp(-1/(glide.Seconds()*o.sampleRate))
	}
	return o
}

// SetFrequency retargets the oscillator.
func (o *Oscillator) SetFrequency(hz float64) {
	o.target = hz
}

// Frequency returns the instantaneous frequency.
func (o *Oscillator) Frequency() float64 {
	return o.freq
}

// Stop ends the stream; the mixer drops it on the next pass.
func (o *Oscillator) Stop() {
	o.stopped = true
}

func (o *Oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	if o.stopped {
		return 0, false
	}
	for i := range samples {
		if o.freq != o.target {
			o.freq += (o.target - o.freq) * o.glide
			if math.Abs(o.target-o.freq) < 1e-3 {
				o.freq = o.target
			}
		}
		v := o.sample()
		samples[i][0] = v
		samples[i][1] = v

		o.phase += o.freq / o.sampleRate
		o.phase -= math.Floor(o.phase)
	}
	return len(samples), true
}

func (o *Oscillator) Err() error { return nil }

func (o *Oscillator) sample() float64 {
	switch o.waveform {
	case Sawtooth:
		return 2*o.phase - 1
	default:
		return math.Sin(2 * math.Pi * o.phase)
	}
}

// Decay multiplies a streamer by an exponential envelope falling from `from`
// to `to` over d, then holds `to`.
type Decay struct {
	Streamer beep.Streamer

	gain  float64
	floor float64
	ratio float64
}

// NewDecay wraps s with an exponential decay envelope.
func NewDecay(s beep.Streamer, sr beep.SampleRate, from, to float64, d time.Duration) *Decay {
	n := float64(sr.N(d))
	if n < 1 {
		n = 1
	}
	return &Decay{
		Streamer: s,
		gain:     from,
		floor:    to,
		ratio:    math.Pow(to/from, 1/n),
	}
}

func (e *Decay) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		samples[i][0] *= e.gain
		samples[i][1] *= e.gain
		if e.gain > e.floor {
			e.gain = math.Max(e.floor, e.gain*e.ratio)
		}
	}
	return n, ok
}

func (e *Decay) Err() error {
	return e.Streamer.Err()
}

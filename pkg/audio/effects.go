package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// BiquadFilter implements a basic Biquad digital filter.
type BiquadFilter struct {
	streamer beep.Streamer

	b0, b1, b2 float64 // normalized by a0
	a1, a2     float64

	x1, x2 [2]float64
	y1, y2 [2]float64
}

// NewLowPass creates a LowPass Biquad filter.
func NewLowPass(streamer beep.Streamer, sampleRate, cutoff, q float64) *BiquadFilter {
	cs, alpha := biquadTerms(sampleRate, cutoff, q)
	return newBiquad(streamer, (1-cs)/2, 1-cs, (1-cs)/2, 1+alpha, -2*cs, 1-alpha)
}

// NewHighPass creates a HighPass Biquad filter.
func NewHighPass(streamer beep.Streamer, sampleRate, cutoff, q float64) *BiquadFilter {
	cs, alpha := biquadTerms(sampleRate, cutoff, q)
	return newBiquad(streamer, (1+cs)/2, -(1 + cs), (1+cs)/2, 1+alpha, -2*cs, 1-alpha)
}

func biquadTerms(sampleRate, cutoff, q float64) (cs, alpha float64) {
	omega := 2 * math.Pi * cutoff / sampleRate
	return math.Cos(omega), math.Sin(omega) / (2 * q)
}

func newBiquad(s beep.Streamer, b0, b1, b2, a0, a1, a2 float64) *BiquadFilter {
	return &BiquadFilter{
		streamer: s,
		b0:       b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

func (f *BiquadFilter) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		for ch := 0; ch < 2; ch++ {
			x := samples[i][ch]
			y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]

			f.x2[ch], f.x1[ch] = f.x1[ch], x
			f.y2[ch], f.y1[ch] = f.y1[ch], y
			samples[i][ch] = y
		}
	}
	return n, ok
}

func (f *BiquadFilter) Err() error {
	return f.streamer.Err()
}

// NewHeadsetFilter creates a bandpass suited to small speakers and headsets.
func NewHeadsetFilter(streamer beep.Streamer, sampleRate, lowCutoff, highCutoff float64) beep.Streamer {
	// Q=0.707 is a Butterworth response
	hp := NewHighPass(streamer, sampleRate, lowCutoff, 0.707)
	return NewLowPass(hp, sampleRate, highCutoff, 0.707)
}

// SmoothVolume ramps gain changes linearly to avoid clicks.
//
// SmoothVolume is NOT internally synchronized. When played through the
// speaker, SetTarget must be called while holding speaker.Lock().
type SmoothVolume struct {
	Streamer beep.Streamer

	target  float64
	current float64
	step    float64
}

// NewSmoothVolume creates a new SmoothVolume streamer.
func NewSmoothVolume(s beep.Streamer, gain float64) *SmoothVolume {
	return &SmoothVolume{Streamer: s, target: gain, current: gain}
}

func (s *SmoothVolume) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = s.Streamer.Stream(samples)
	for i := 0; i < n; i++ {
		switch {
		case s.current < s.target:
			s.current = math.Min(s.target, s.current+s.step)
		case s.current > s.target:
			s.current = math.Max(s.target, s.current-s.step)
		}
		samples[i][0] *= s.current
		samples[i][1] *= s.current
	}
	return n, ok
}

func (s *SmoothVolume) Err() error {
	return s.Streamer.Err()
}

// Gain returns the gain currently applied.
func (s *SmoothVolume) Gain() float64 {
	return s.current
}

// SetTarget ramps towards gain over d. A non-positive d jumps.
func (s *SmoothVolume) SetTarget(gain, sampleRate float64, d time.Duration) {
	if gain < 0 {
		gain = 0
	}
	s.target = gain
	diff := math.Abs(s.target - s.current)
	if d <= 0 || diff == 0 {
		s.step = math.Max(diff, 1)
		return
	}
	s.step = diff / (sampleRate * d.Seconds())
}

package vario

// DefaultAlpha is the EMA weight given to each new altitude sample.
const DefaultAlpha = 0.2

// Smoother is an exponential moving average over altitude samples.
// The first sample initializes the average instead of warming up from zero.
type Smoother struct {
	alpha  float64
	value  float64
	primed bool
}

// NewSmoother creates a smoother. Alpha outside (0, 1] falls back to DefaultAlpha.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Smoother{alpha: alpha}
}

// Update feeds one sample and returns the new smoothed value.
func (s *Smoother) Update(v float64) float64 {
	if !s.primed {
		s.value = v
		s.primed = true
		return s.value
	}
	s.value = s.alpha*v + (1-s.alpha)*s.value
	return s.value
}

// Value returns the current smoothed value and whether any sample was seen.
func (s *Smoother) Value() (float64, bool) {
	return s.value, s.primed
}

// Alpha returns the configured weight.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Reset clears the smoother state.
func (s *Smoother) Reset() {
	s.value = 0
	s.primed = false
}

package vario

// DefaultHistorySize is the number of vertical speed samples kept for trend display.
const DefaultHistorySize = 30

// HistoryPoint is one vertical speed sample.
type HistoryPoint struct {
	Time int64   `json:"time"` // ms since epoch
	VZ   float64 `json:"vz"`   // m/s
}

// History is a fixed-capacity FIFO of vertical speed samples, oldest first.
type History struct {
	samples  []HistoryPoint
	capacity int
}

// NewHistory creates a history with the given capacity (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		samples:  make([]HistoryPoint, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest one when full.
func (h *History) Push(p HistoryPoint) {
	if len(h.samples) == h.capacity {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:len(h.samples)-1]
	}
	h.samples = append(h.samples, p)
}

// Points returns a copy of the samples in arrival order.
func (h *History) Points() []HistoryPoint {
	out := make([]HistoryPoint, len(h.samples))
	copy(out, h.samples)
	return out
}

// Len returns the number of samples held.
func (h *History) Len() int {
	return len(h.samples)
}

// Capacity returns the maximum number of samples held.
func (h *History) Capacity() int {
	return h.capacity
}

// Reset clears the history.
func (h *History) Reset() {
	h.samples = h.samples[:0]
}

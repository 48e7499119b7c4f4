// Package tracker counts delivery outcomes per telemetry sink.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks publish statistics per sink.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*SinkStats
}

// SinkStats holds counters for one sink.
// Counter fields are accessed atomically; LastError is guarded by the tracker lock.
type SinkStats struct {
	Published int64     `json:"published"`
	Failures  int64     `json:"failures"`
	Skipped   int64     `json:"skipped"`
	LastError string    `json:"last_error,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitzero"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*SinkStats),
	}
}

// getStats returns the stats object for a sink, creating it if needed.
func (t *Tracker) getStats(sink string) *SinkStats {
	t.mu.RLock()
	s, ok := t.stats[sink]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[sink]; ok {
		return s
	}
	s = &SinkStats{}
	t.stats[sink] = s
	return s
}

// TrackPublish records a successful delivery.
func (t *Tracker) TrackPublish(sink string) {
	s := t.getStats(sink)
	atomic.AddInt64(&s.Published, 1)
	t.mu.Lock()
	s.LastSeen = time.Now()
	t.mu.Unlock()
}

// TrackFailure records a failed delivery and keeps its message.
func (t *Tracker) TrackFailure(sink string, err error) {
	s := t.getStats(sink)
	atomic.AddInt64(&s.Failures, 1)
	if err != nil {
		t.mu.Lock()
		s.LastError = err.Error()
		t.mu.Unlock()
	}
}

// TrackSkip records a delivery skipped while the sink is backing off.
func (t *Tracker) TrackSkip(sink string) {
	atomic.AddInt64(&t.getStats(sink).Skipped, 1)
}

// Reset zeroes all counters but keeps known sinks listed.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &SinkStats{}
	}
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]SinkStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]SinkStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = SinkStats{
			Published: atomic.LoadInt64(&v.Published),
			Failures:  atomic.LoadInt64(&v.Failures),
			Skipped:   atomic.LoadInt64(&v.Skipped),
			LastError: v.LastError,
			LastSeen:  v.LastSeen,
		}
	}
	return result
}

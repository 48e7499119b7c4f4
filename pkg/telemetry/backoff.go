package telemetry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// backoff tracks exponential retry windows per sink.
type backoff struct {
	mu        sync.Mutex
	sinks     map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failureCount int
	nextAllowed  time.Time
}

func newBackoff(baseDelay, maxDelay time.Duration) *backoff {
	return &backoff{
		sinks:     make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// allowed reports whether sink may be tried at now.
func (b *backoff) allowed(sink string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.sinks[sink]
	if !ok {
		return true
	}
	return !now.Before(state.nextAllowed)
}

func (b *backoff) recordFailure(sink string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.sinks[sink]
	if !ok {
		state = &backoffState{}
		b.sinks[sink] = state
	}
	state.failureCount++
	state.nextAllowed = now.Add(b.delay(state.failureCount))
}

// recordSuccess clears the window; a broker that answers again is healthy.
func (b *backoff) recordSuccess(sink string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, sink)
}

func (b *backoff) state(sink string) (failures int, nextAllowed time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sinks[sink]; ok {
		return s.failureCount, s.nextAllowed
	}
	return 0, time.Time{}
}

// delay is baseDelay * 2^(failures-1), capped, plus up to 10% jitter.
func (b *backoff) delay(failures int) time.Duration {
	d := time.Duration(float64(b.baseDelay) * math.Pow(2, float64(failures-1)))
	if d > b.maxDelay {
		d = b.maxDelay
	}
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}

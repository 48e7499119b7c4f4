package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"skyvario/pkg/clock"
	"skyvario/pkg/flight"
	"skyvario/pkg/geo"
)

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(s *flight.Snapshot) bool
	Run(ctx context.Context, s *flight.Snapshot)
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

func (b *BaseJob) isRunning() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// DistanceJob fires when the distance from the last firing position exceeds
// threshold. Snapshots without a position fix are ignored.
type DistanceJob struct {
	BaseJob
	mu        sync.Mutex
	lastPos   geo.Point
	threshold float64 // meters
	action    func(context.Context, flight.Snapshot)
	firstRun  atomic.Bool
}

func NewDistanceJob(name string, thresholdMeters float64, action func(context.Context, flight.Snapshot)) *DistanceJob {
	j := &DistanceJob{
		BaseJob:   NewBaseJob(name),
		threshold: thresholdMeters,
		action:    action,
	}
	j.firstRun.Store(true)
	return j
}

func (j *DistanceJob) ShouldFire(s *flight.Snapshot) bool {
	if j.isRunning() || !hasPosition(s) {
		return false
	}

	if j.firstRun.Load() {
		return true
	}

	j.mu.Lock()
	last := j.lastPos
	j.mu.Unlock()
	dist := geo.Distance(last, geo.Point{Lat: s.Latitude, Lon: s.Longitude})
	return dist >= j.threshold
}

func (j *DistanceJob) Run(ctx context.Context, s *flight.Snapshot) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.mu.Lock()
	j.lastPos = geo.Point{Lat: s.Latitude, Lon: s.Longitude}
	j.mu.Unlock()
	j.firstRun.Store(false)

	j.action(ctx, *s)
}

// ResetSession forgets the reference position so the next fix starts a new leg.
func (j *DistanceJob) ResetSession(ctx context.Context) {
	j.firstRun.Store(true)
}

func hasPosition(s *flight.Snapshot) bool {
	return s.Latitude != 0 || s.Longitude != 0
}

// TickJob fires on every scheduler tick unless its previous run is still going.
type TickJob struct {
	BaseJob
	action func(context.Context, flight.Snapshot)
}

func NewTickJob(name string, action func(context.Context, flight.Snapshot)) *TickJob {
	return &TickJob{BaseJob: NewBaseJob(name), action: action}
}

func (j *TickJob) ShouldFire(s *flight.Snapshot) bool {
	return !j.isRunning()
}

func (j *TickJob) Run(ctx context.Context, s *flight.Snapshot) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()
	j.action(ctx, *s)
}

// TimeJob fires when time elapsed reaches threshold. The fire time is taken
// when ShouldFire says yes, not when the run goroutine gets scheduled, and a
// tenth of the threshold is allowed as tick jitter.
type TimeJob struct {
	BaseJob
	clk       clock.Clock
	mu        sync.Mutex
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context, flight.Snapshot)
	firstRun  bool
}

func NewTimeJob(name string, threshold time.Duration, action func(context.Context, flight.Snapshot)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		clk:       clock.Real(),
		threshold: threshold,
		action:    action,
		firstRun:  true,
	}
}

// WithClock replaces the wall clock, for tests.
func (j *TimeJob) WithClock(c clock.Clock) *TimeJob {
	j.clk = c
	return j
}

func (j *TimeJob) ShouldFire(s *flight.Snapshot) bool {
	if j.isRunning() {
		return false
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.clk.Now()
	if !j.firstRun && now.Sub(j.lastTime) < j.threshold-j.threshold/10 {
		return false
	}
	j.lastTime = now
	j.firstRun = false
	return true
}

func (j *TimeJob) Run(ctx context.Context, s *flight.Snapshot) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.action(ctx, *s)
}

package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skyvario/pkg/config"
	"skyvario/pkg/flight"
)

// Scheduler manages the central heartbeat and scheduled jobs.
type Scheduler struct {
	cfg  *config.Config
	src  FlightSource
	sink SnapshotSink

	mu          sync.Mutex
	jobs        []Job
	lastSession string
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg *config.Config, src FlightSource, sink SnapshotSink) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		src:  src,
		sink: sink,
		jobs: []Job{},
	}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := time.Duration(s.cfg.Ticker.Interval)
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	active := s.src.Active()
	if s.sink != nil {
		s.sink.UpdateState(active)
	}

	if !active {
		return
	}

	snap := s.src.Snapshot()
	s.checkSession(ctx, &snap)

	if s.sink != nil {
		s.sink.Update(&snap)
	}

	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		if job.ShouldFire(&snap) {
			// Fire and forget
			go job.Run(ctx, &snap)
		}
	}
}

// checkSession resets per-flight job state when a new session id shows up.
func (s *Scheduler) checkSession(ctx context.Context, snap *flight.Snapshot) {
	s.mu.Lock()
	changed := snap.SessionID != s.lastSession
	s.lastSession = snap.SessionID
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	if !changed {
		return
	}
	slog.Debug("Scheduler: new flight session", "session", snap.SessionID)
	for _, job := range jobs {
		if r, ok := job.(SessionResettable); ok {
			r.ResetSession(ctx)
		}
	}
}

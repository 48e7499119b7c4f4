package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"skyvario/pkg/flight"
	"skyvario/pkg/logging"
)

// NewTrackJob records one track point per scheduler tick while a session is active.
func NewTrackJob(rec TrackRecorder) *TickJob {
	return NewTickJob("Track", func(ctx context.Context, s flight.Snapshot) {
		if err := rec.RecordTrackPoint(); err != nil && !errors.Is(err, flight.ErrNotActive) {
			slog.Warn("TrackJob: failed to record point", "error", err)
		}
	})
}

// NewPublishJob forwards the snapshot to pub at most once per interval.
func NewPublishJob(pub Publisher, every time.Duration) *TimeJob {
	return NewTimeJob("Publish", every, func(ctx context.Context, s flight.Snapshot) {
		if err := pub.Publish(ctx, &s); err != nil {
			slog.Debug("PublishJob: publish failed", "error", err)
		}
	})
}

// MilestoneJob writes a flight event every step meters of ground covered.
type MilestoneJob struct {
	*DistanceJob
	step float64
	legs atomic.Int64
}

func NewMilestoneJob(stepMeters float64) *MilestoneJob {
	m := &MilestoneJob{step: stepMeters}
	m.DistanceJob = NewDistanceJob("Milestone", stepMeters, m.fire)
	return m
}

func (m *MilestoneJob) fire(ctx context.Context, s flight.Snapshot) {
	legs := m.legs.Add(1) - 1
	if legs == 0 {
		return
	}
	logging.LogEvent(&logging.Event{
		Time:    time.UnixMilli(s.Timestamp),
		Type:    "milestone",
		Title:   fmt.Sprintf("%.1f km covered", float64(legs)*m.step/1000),
		Summary: fmt.Sprintf("alt %.0f m, vz %+.1f m/s", max(s.AltitudeBaro, s.AltitudeGPS), s.VerticalSpeed),
	})
}

// Legs returns the number of completed steps in the current session.
func (m *MilestoneJob) Legs() int {
	return int(max(m.legs.Load()-1, 0))
}

func (m *MilestoneJob) ResetSession(ctx context.Context) {
	m.DistanceJob.ResetSession(ctx)
	m.legs.Store(0)
}

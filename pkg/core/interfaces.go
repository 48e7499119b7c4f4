package core

import (
	"context"

	"skyvario/pkg/flight"
)

// SessionResettable is implemented by jobs that keep per-flight state and
// must start over when a new session begins.
type SessionResettable interface {
	ResetSession(ctx context.Context)
}

// FlightSource is the instrument the scheduler samples on every tick.
type FlightSource interface {
	Active() bool
	Snapshot() flight.Snapshot
}

// SnapshotSink consumes the per-tick snapshot stream (the API hub).
type SnapshotSink interface {
	Update(s *flight.Snapshot)
	UpdateState(active bool)
}

// TrackRecorder appends the current position to the flight track.
type TrackRecorder interface {
	RecordTrackPoint() error
}

// Publisher forwards snapshots to an external consumer.
type Publisher interface {
	Publish(ctx context.Context, s *flight.Snapshot) error
}

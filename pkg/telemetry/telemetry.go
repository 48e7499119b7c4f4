// Package telemetry forwards instrument snapshots to message brokers so
// ground crews and loggers can follow a flight live.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skyvario/pkg/clock"
	"skyvario/pkg/config"
	"skyvario/pkg/flight"
	"skyvario/pkg/tracker"
)

// Sink is a single broker destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, s *flight.Snapshot) error
	Close()
}

const (
	retryBase = 2 * time.Second
	retryMax  = time.Minute
)

// Fanout publishes each snapshot to every sink. One failing sink does not
// stop delivery to the others, and a failing sink is rested with
// exponential backoff before it is tried again.
type Fanout struct {
	sinks   []Sink
	stats   *tracker.Tracker
	backoff *backoff
	clk     clock.Clock
}

// NewFanout combines sinks; nil entries are skipped.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{
		stats:   tracker.New(),
		backoff: newBackoff(retryBase, retryMax),
		clk:     clock.Real(),
	}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// WithClock replaces the time source used for retry windows.
func (f *Fanout) WithClock(c clock.Clock) *Fanout {
	f.clk = c
	return f
}

// Stats returns the per-sink delivery counters.
func (f *Fanout) Stats() *tracker.Tracker { return f.stats }

// Len returns the number of attached sinks.
func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Publish(ctx context.Context, s *flight.Snapshot) error {
	var errs []error
	for _, sink := range f.sinks {
		name := sink.Name()
		if !f.backoff.allowed(name, f.clk.Now()) {
			f.stats.TrackSkip(name)
			continue
		}
		if err := sink.Publish(ctx, s); err != nil {
			f.backoff.recordFailure(name, f.clk.Now())
			f.stats.TrackFailure(name, err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		f.backoff.recordSuccess(name)
		f.stats.TrackPublish(name)
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() {
	for _, sink := range f.sinks {
		sink.Close()
	}
}

// Open connects every sink enabled in cfg. A broker that cannot be reached is
// logged and left out; telemetry is never required for flying.
func Open(cfg *config.TelemetryConfig) *Fanout {
	var sinks []Sink
	if cfg.MQTT.Enabled {
		s, err := DialMQTT(cfg.MQTT)
		if err != nil {
			slog.Warn("Telemetry: MQTT unavailable", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.NATS.Enabled {
		s, err := DialNATS(cfg.NATS)
		if err != nil {
			slog.Warn("Telemetry: NATS unavailable", "url", cfg.NATS.URL, "error", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return NewFanout(sinks...)
}

func encode(s *flight.Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

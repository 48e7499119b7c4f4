package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"skyvario/pkg/config"
	"skyvario/pkg/flight"
)

type natsPublisher interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSSink publishes snapshots as JSON on <prefix>.snapshot.
type NATSSink struct {
	conn    natsPublisher
	subject string
}

// DialNATS connects to the configured server.
func DialNATS(cfg config.NATSConfig) (*NATSSink, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("skyvario"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("Telemetry: NATS connected", "url", cfg.URL)
	return newNATSSink(nc, cfg.SubjectPrefix), nil
}

func newNATSSink(conn natsPublisher, prefix string) *NATSSink {
	return &NATSSink{conn: conn, subject: prefix + ".snapshot"}
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the snapshot subject.
func (s *NATSSink) Subject() string { return s.subject }

func (s *NATSSink) Publish(ctx context.Context, snap *flight.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

func (s *NATSSink) Close() {
	if err := s.conn.Drain(); err != nil {
		slog.Debug("Telemetry: NATS drain failed", "error", err)
	}
}

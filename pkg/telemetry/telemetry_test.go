package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skyvario/pkg/clock"
	"skyvario/pkg/config"
	"skyvario/pkg/flight"
	"skyvario/pkg/vario"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, complete bool) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	if complete {
		close(t.done)
	}
	return t
}

func (t *doneToken) Wait() bool                       { <-t.done; return true }
func (t *doneToken) WaitTimeout(d time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}            { return t.done }
func (t *doneToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	msgs         []published
	err          error
	hang         bool
	disconnected bool
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic, qos, retained, payload.([]byte)})
	return newToken(f.err, !f.hang)
}

func (f *fakeMQTT) Disconnect(quiesce uint) { f.disconnected = true }

type fakeNATS struct {
	subjects []string
	data     [][]byte
	err      error
	drained  bool
}

func (f *fakeNATS) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.data = append(f.data, data)
	return nil
}

func (f *fakeNATS) Drain() error {
	f.drained = true
	return nil
}

func sampleSnapshot() *flight.Snapshot {
	return &flight.Snapshot{
		SessionID:     "abc",
		VerticalSpeed: 1.5,
		AltitudeBaro:  1820,
		Latitude:      46.6863,
		Longitude:     7.8632,
		Source:        vario.SourceBarometer,
	}
}

func TestMQTTSink_Publish(t *testing.T) {
	client := &fakeMQTT{}
	sink := newMQTTSink(client, "skyvario")

	require.NoError(t, sink.Publish(context.Background(), sampleSnapshot()))
	require.Len(t, client.msgs, 1)

	msg := client.msgs[0]
	assert.Equal(t, "skyvario/snapshot", msg.topic)
	assert.Equal(t, byte(0), msg.qos)
	assert.True(t, msg.retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, 1.5, got["vertical_speed"])
	assert.Equal(t, "barometer", got["source"])

	sink.Close()
	assert.True(t, client.disconnected)
}

func TestMQTTSink_Errors(t *testing.T) {
	tests := []struct {
		name    string
		client  *fakeMQTT
		ctx     func() context.Context
		wantErr error
	}{
		{
			name:    "broker error",
			client:  &fakeMQTT{err: errors.New("not connected")},
			ctx:     context.Background,
			wantErr: nil,
		},
		{
			name:   "context cancelled while waiting",
			client: &fakeMQTT{hang: true},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErr: context.Canceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newMQTTSink(tt.client, "p").Publish(tt.ctx(), sampleSnapshot())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNATSSink_Publish(t *testing.T) {
	conn := &fakeNATS{}
	sink := newNATSSink(conn, "skyvario")

	require.NoError(t, sink.Publish(context.Background(), sampleSnapshot()))
	assert.Equal(t, []string{"skyvario.snapshot"}, conn.subjects)
	assert.Contains(t, string(conn.data[0]), `"session_id":"abc"`)

	conn.err = errors.New("slow consumer")
	assert.ErrorContains(t, sink.Publish(context.Background(), sampleSnapshot()), "slow consumer")

	sink.Close()
	assert.True(t, conn.drained)
}

func TestFanout(t *testing.T) {
	m := &fakeMQTT{err: errors.New("offline")}
	n := &fakeNATS{}
	f := NewFanout(newMQTTSink(m, "a"), nil, newNATSSink(n, "b"))
	assert.Equal(t, 2, f.Len())

	err := f.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mqtt: offline")
	assert.Len(t, n.subjects, 1, "NATS still receives the snapshot")

	stats := f.Stats().Snapshot()
	assert.Equal(t, int64(1), stats["mqtt"].Failures)
	assert.Equal(t, "offline", stats["mqtt"].LastError)
	assert.Equal(t, int64(1), stats["nats"].Published)

	f.Close()
	assert.True(t, m.disconnected)
	assert.True(t, n.drained)
}

func TestFanout_Backoff(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	m := &fakeMQTT{err: errors.New("offline")}
	f := NewFanout(newMQTTSink(m, "a")).WithClock(clk)

	require.Error(t, f.Publish(context.Background(), sampleSnapshot()))
	assert.Len(t, m.msgs, 1)

	// Inside the first retry window the sink is not tried.
	clk.Advance(time.Second)
	assert.NoError(t, f.Publish(context.Background(), sampleSnapshot()))
	assert.Len(t, m.msgs, 1)

	// Window is 2s plus at most 10% jitter.
	clk.Advance(2 * time.Second)
	m.err = nil
	assert.NoError(t, f.Publish(context.Background(), sampleSnapshot()))
	assert.Len(t, m.msgs, 2)

	stats := f.Stats().Snapshot()["mqtt"]
	assert.Equal(t, int64(1), stats.Failures)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, int64(1), stats.Published)

	fails, _ := f.backoff.state("mqtt")
	assert.Zero(t, fails, "success clears the backoff")
}

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		failures int
		min, max time.Duration
	}{
		{1, 2 * time.Second, 2200 * time.Millisecond},
		{2, 4 * time.Second, 4400 * time.Millisecond},
		{3, 8 * time.Second, 8800 * time.Millisecond},
		{10, time.Minute, 66 * time.Second},
	}
	for _, tt := range tests {
		b := newBackoff(retryBase, retryMax)
		now := time.Now()
		for i := 0; i < tt.failures; i++ {
			b.recordFailure("x", now)
		}
		fails, next := b.state("x")
		assert.Equal(t, tt.failures, fails)
		d := next.Sub(now)
		assert.GreaterOrEqual(t, d, tt.min)
		assert.LessOrEqual(t, d, tt.max)
		assert.False(t, b.allowed("x", now))
		assert.True(t, b.allowed("x", now.Add(tt.max)))
	}
}

func TestOpen_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	f := Open(&cfg.Telemetry)
	assert.Equal(t, 0, f.Len())
	assert.NoError(t, f.Publish(context.Background(), sampleSnapshot()))
}

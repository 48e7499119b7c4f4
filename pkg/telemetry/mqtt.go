package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"skyvario/pkg/config"
	"skyvario/pkg/flight"
)

const mqttTimeout = 2 * time.Second

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes snapshots as retained QoS 0 JSON messages on
// <prefix>/snapshot.
type MQTTSink struct {
	client mqttPublisher
	topic  string
}

// DialMQTT connects to the configured broker.
func DialMQTT(cfg config.MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	} else if token.Error() != nil {
		return nil, token.Error()
	}
	slog.Info("Telemetry: MQTT connected", "broker", cfg.Broker)
	return newMQTTSink(client, cfg.TopicPrefix), nil
}

func newMQTTSink(client mqttPublisher, prefix string) *MQTTSink {
	return &MQTTSink{client: client, topic: prefix + "/snapshot"}
}

func (s *MQTTSink) Name() string { return "mqtt" }

// Topic returns the snapshot topic.
func (s *MQTTSink) Topic() string { return s.topic }

func (s *MQTTSink) Publish(ctx context.Context, snap *flight.Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 0, true, data)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

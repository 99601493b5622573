package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/models"
	"github.com/benmeehan/ecobee-ts/pkg/mqtt"
)

// MQTTSink publishes each batch as a JSON array to <topic>/<identifier>.
type MQTTSink struct {
	client      mqtt.MQTTClient
	topic       string
	qos         byte
	retained    bool
	publishWait time.Duration
	logger      zerolog.Logger
}

// NewMQTTSink wraps a connected client.
func NewMQTTSink(client mqtt.MQTTClient, topic string, qos int, retained bool, logger zerolog.Logger) *MQTTSink {
	return &MQTTSink{
		client:      client,
		topic:       strings.TrimRight(topic, "/"),
		qos:         byte(qos),
		retained:    retained,
		publishWait: 10 * time.Second,
		logger:      logger,
	}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Write(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}

	payload, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to serialize points: %w", err)
	}

	topic := s.topic
	if key := batchKey(points); key != "" {
		topic = topic + "/" + key
	}

	token := s.client.Publish(topic, s.qos, s.retained, payload)
	if !token.WaitTimeout(s.publishWait) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	s.logger.Debug().Str("topic", topic).Int("points", len(points)).Msg("Points published successfully")
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

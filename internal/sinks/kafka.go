package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink produces one message per batch, keyed by thermostat identifier so
// a thermostat's batches stay on one partition.
type KafkaSink struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaSink creates a writer for topic on brokers.
func NewKafkaSink(brokers []string, topic string, logger zerolog.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}

	value, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to serialize points: %w", err)
	}

	newest := points[0].Time()
	for _, p := range points[1:] {
		if p.Time().After(newest) {
			newest = p.Time()
		}
	}

	key := batchKey(points)
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value, Time: newest}); err != nil {
		return fmt.Errorf("kafka write failed for %s: %w", key, err)
	}

	s.logger.Debug().Str("thermostat", key).Int("points", len(points)).Msg("Points produced to Kafka")
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

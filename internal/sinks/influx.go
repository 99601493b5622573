package sinks

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// InfluxOptions addresses an InfluxDB 2.x bucket.
type InfluxOptions struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Timeout time.Duration
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes points through the blocking write API.
type InfluxSink struct {
	client  influxdb2.Client
	writer  pointWriter
	timeout time.Duration
	logger  zerolog.Logger
}

// NewInfluxSink connects to InfluxDB and checks its health before returning.
func NewInfluxSink(ctx context.Context, o InfluxOptions, logger zerolog.Logger) (*InfluxSink, error) {
	if o.Timeout <= 0 {
		o.Timeout = 3 * time.Second
	}

	client := influxdb2.NewClient(o.URL, o.Token)

	hctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	health, err := client.Health(hctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check InfluxDB health: %w", err)
	}
	if health.Status != domain.HealthCheckStatusPass {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		client.Close()
		return nil, fmt.Errorf("InfluxDB did not pass health check: status %s; message %q", health.Status, msg)
	}

	logger.Info().Str("url", o.URL).Str("bucket", o.Bucket).Msg("Connected to InfluxDB")
	return &InfluxSink{
		client:  client,
		writer:  client.WriteAPIBlocking(o.Org, o.Bucket),
		timeout: o.Timeout,
		logger:  logger,
	}, nil
}

func (s *InfluxSink) Name() string { return "influxdb" }

// Write sends the batch in a single request.
func (s *InfluxSink) Write(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}

	converted := make([]*write.Point, 0, len(points))
	for _, p := range points {
		converted = append(converted, toInfluxPoint(p))
	}

	wctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.writer.WritePoint(wctx, converted...); err != nil {
		return fmt.Errorf("failed to write %d points to InfluxDB: %w", len(points), err)
	}

	s.logger.Debug().Int("points", len(points)).Str("thermostat", batchKey(points)).Msg("Wrote points to InfluxDB")
	return nil
}

func (s *InfluxSink) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}

// toInfluxPoint converts a point. Line protocol tags are strings only.
func toInfluxPoint(p models.Point) *write.Point {
	tags := p.Tags()
	stringTags := make(map[string]string, len(tags))
	for k, v := range tags {
		stringTags[k] = fmt.Sprint(v)
	}
	return influxdb2.NewPoint(p.Measurement(), stringTags, p.Fields(), p.Time())
}

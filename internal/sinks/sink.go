package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// Sink consumes the points decoded from one thermostat. The poll loop makes one
// Write call per thermostat per cycle.
type Sink interface {
	Name() string
	Write(ctx context.Context, points []models.Point) error
	Close() error
}

// JSONSink writes each batch as one JSON array per line.
type JSONSink struct {
	mu  sync.Mutex
	out io.Writer
	enc *json.Encoder
}

// NewJSONSink returns a sink writing to out, normally stdout.
func NewJSONSink(out io.Writer) *JSONSink {
	return &JSONSink{out: out, enc: json.NewEncoder(out)}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(ctx context.Context, points []models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if points == nil {
		points = []models.Point{}
	}
	if err := s.enc.Encode(points); err != nil {
		return fmt.Errorf("failed to write points as json: %w", err)
	}
	return nil
}

func (s *JSONSink) Close() error { return nil }

// batchKey returns the thermostat identifier shared by the batch.
func batchKey(points []models.Point) string {
	if len(points) == 0 {
		return ""
	}
	if v, ok := points[0].Tag("identifier"); ok {
		return fmt.Sprint(v)
	}
	return ""
}

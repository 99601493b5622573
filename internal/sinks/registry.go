package sinks

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/config"
	"github.com/benmeehan/ecobee-ts/pkg/file"
	"github.com/benmeehan/ecobee-ts/pkg/mqtt"
)

// Factory opens a sink from the loaded configuration.
type Factory func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Sink, error)

// Registry maps output type names to the factories that build them.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry knows every built-in output type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("json", newJSONSinkFromConfig)
	r.Register("influxdb", newInfluxSinkFromConfig)
	r.Register("mqtt", newMQTTSinkFromConfig)
	r.Register("kafka", newKafkaSinkFromConfig)
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(name)] = f
}

// Names returns the registered output types in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build opens the sink named by cfg.OutputType.
func (r *Registry) Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Sink, error) {
	f, ok := r.factories[strings.ToLower(cfg.OutputType)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown output type %q (expected one of %s)",
			config.ErrConfiguration, cfg.OutputType, strings.Join(r.Names(), ", "))
	}

	sink, err := f(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s output: %w", cfg.OutputType, err)
	}
	return sink, nil
}

func newJSONSinkFromConfig(_ context.Context, _ *config.Config, _ zerolog.Logger) (Sink, error) {
	return NewJSONSink(os.Stdout), nil
}

func newInfluxSinkFromConfig(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Sink, error) {
	return NewInfluxSink(ctx, InfluxOptions{
		URL:     cfg.Influx.URL,
		Token:   cfg.Influx.Token,
		Org:     cfg.Influx.Org,
		Bucket:  cfg.Influx.Bucket,
		Timeout: cfg.Influx.Timeout,
	}, logger)
}

func newMQTTSinkFromConfig(_ context.Context, cfg *config.Config, logger zerolog.Logger) (Sink, error) {
	client := mqtt.NewMqttService(file.NewFileService())
	clientID := fmt.Sprintf("%s-%s", cfg.MQTT.ClientIDPrefix, uuid.NewString())

	if err := client.Initialize(mqtt.Options{
		Broker:        cfg.MQTT.Broker,
		ClientID:      clientID,
		Username:      cfg.MQTT.Username,
		Password:      cfg.MQTT.Password,
		CACertificate: cfg.MQTT.CACertificate,
	}); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	logger.Info().Str("broker", cfg.MQTT.Broker).Str("client_id", clientID).Msg("Connected to MQTT broker")
	return NewMQTTSink(client, cfg.MQTT.Topic, cfg.MQTT.QOS, false, logger), nil
}

func newKafkaSinkFromConfig(_ context.Context, cfg *config.Config, logger zerolog.Logger) (Sink, error) {
	return NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger), nil
}

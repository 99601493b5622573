package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/benmeehan/ecobee-ts/pkg/file"
)

// ErrConfiguration marks invalid or missing settings.
var ErrConfiguration = errors.New("configuration error")

const (
	DefaultTokenFile = "~/.ecobeets"
	DefaultBaseURL   = "https://api.ecobee.com"
	DefaultInterval  = 300 * time.Second
	DefaultInfluxURL = "http://localhost:9999"
	DefaultScope     = "smartRead"
)

// Config represents the monitor settings. Values are layered defaults, then the
// YAML file, then ECOBEETS_* environment variables, then command line flags.
type Config struct {
	TokenFile  string        `yaml:"token_file" env:"ECOBEETS_TOKEN_FILE, overwrite"`
	BaseURL    string        `yaml:"base_url" env:"ECOBEETS_BASE_URL, overwrite"`
	Count      int           `yaml:"count" env:"ECOBEETS_COUNT, overwrite"`       // 0 polls forever
	Interval   time.Duration `yaml:"interval" env:"ECOBEETS_INTERVAL, overwrite"` // sleep between cycles
	OutputType string        `yaml:"output_type" env:"ECOBEETS_OUTPUT_TYPE, overwrite"`

	Log struct {
		Level  string `yaml:"level" env:"ECOBEETS_LOG_LEVEL, overwrite"`
		Format string `yaml:"format" env:"ECOBEETS_LOG_FORMAT, overwrite"` // json or text
	} `yaml:"log"`

	Influx struct {
		URL     string        `yaml:"url" env:"ECOBEETS_INFLUX_URL, overwrite"`
		Token   string        `yaml:"token" env:"ECOBEETS_INFLUX_TOKEN, overwrite"`
		Org     string        `yaml:"org" env:"ECOBEETS_INFLUX_ORG, overwrite"`
		Bucket  string        `yaml:"bucket" env:"ECOBEETS_INFLUX_BUCKET, overwrite"`
		Timeout time.Duration `yaml:"timeout" env:"ECOBEETS_INFLUX_TIMEOUT, overwrite"`
	} `yaml:"influxdb"`

	MQTT struct {
		Broker         string `yaml:"broker" env:"ECOBEETS_MQTT_BROKER, overwrite"`
		Topic          string `yaml:"topic" env:"ECOBEETS_MQTT_TOPIC, overwrite"`
		ClientIDPrefix string `yaml:"client_id_prefix" env:"ECOBEETS_MQTT_CLIENT_ID_PREFIX, overwrite"`
		QOS            int    `yaml:"qos" env:"ECOBEETS_MQTT_QOS, overwrite"`
		Username       string `yaml:"username" env:"ECOBEETS_MQTT_USERNAME, overwrite"`
		Password       string `yaml:"password" env:"ECOBEETS_MQTT_PASSWORD, overwrite"`
		CACertificate  string `yaml:"ca_certificate" env:"ECOBEETS_MQTT_CA_CERTIFICATE, overwrite"`
	} `yaml:"mqtt"`

	Kafka struct {
		Brokers []string `yaml:"brokers" env:"ECOBEETS_KAFKA_BROKERS, overwrite"`
		Topic   string   `yaml:"topic" env:"ECOBEETS_KAFKA_TOPIC, overwrite"`
	} `yaml:"kafka"`
}

// Default returns the built-in settings.
func Default() *Config {
	c := &Config{
		TokenFile:  DefaultTokenFile,
		BaseURL:    DefaultBaseURL,
		Interval:   DefaultInterval,
		OutputType: "json",
	}
	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Influx.URL = DefaultInfluxURL
	c.Influx.Timeout = 3 * time.Second
	c.MQTT.Topic = "ecobee"
	c.MQTT.ClientIDPrefix = "ecobeets"
	c.MQTT.QOS = 1
	c.Kafka.Topic = "ecobee-telemetry"
	return c
}

// LoadConfig applies the YAML file at filename (if any) and the environment on
// top of the defaults.
func LoadConfig(ctx context.Context, filename string, fileClient file.FileOperations) (*Config, error) {
	return load(ctx, filename, fileClient, envconfig.OsLookuper())
}

func load(ctx context.Context, filename string, fileClient file.FileOperations, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := Default()

	if filename != "" {
		path, err := file.ExpandPath(filename)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		if err := fileClient.ReadYamlFile(path, cfg); err != nil {
			return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, filename, err)
		}
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("%w: invalid environment: %w", ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks the settings needed by the selected output.
func (c *Config) Validate() error {
	if c.TokenFile == "" {
		return fmt.Errorf("%w: token file must be set", ErrConfiguration)
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count must not be negative", ErrConfiguration)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval must not be negative", ErrConfiguration)
	}

	switch strings.ToLower(c.OutputType) {
	case "json":
	case "influxdb":
		if c.Influx.URL == "" || c.Influx.Bucket == "" {
			return fmt.Errorf("%w: influxdb output needs url and bucket", ErrConfiguration)
		}
	case "mqtt":
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return fmt.Errorf("%w: mqtt output needs broker and topic", ErrConfiguration)
		}
		if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
			return fmt.Errorf("%w: mqtt qos must be 0, 1 or 2", ErrConfiguration)
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka output needs brokers and topic", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown output type %q", ErrConfiguration, c.OutputType)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrConfiguration, c.Log.Format)
	}

	return nil
}

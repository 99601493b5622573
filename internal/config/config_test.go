package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/ecobee-ts/internal/mocks"
	"github.com/benmeehan/ecobee-ts/pkg/file"
)

const sampleYaml = `
token_file: /var/lib/ecobeets/token
count: 3
interval: 60s
output_type: influxdb
log:
  level: debug
influxdb:
  url: http://influx:8086
  bucket: ecobee
  org: home
kafka:
  brokers:
    - "k1:9092"
    - "k2:9092"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYaml), 0o600))
	return path
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	cfg, err := load(context.Background(), "", file.NewFileService(), envconfig.MapLookuper(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultTokenFile, cfg.TokenFile)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultInfluxURL, cfg.Influx.URL)
	assert.Equal(t, "json", cfg.OutputType)
	assert.Equal(t, 0, cfg.Count)
}

func TestLoadConfig_YamlOverridesDefaults(t *testing.T) {
	cfg, err := load(context.Background(), writeConfig(t), file.NewFileService(), envconfig.MapLookuper(nil))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ecobeets/token", cfg.TokenFile)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, "influxdb", cfg.OutputType)
	assert.Equal(t, "http://influx:8086", cfg.Influx.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched by the file
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvOverridesYaml(t *testing.T) {
	env := envconfig.MapLookuper(map[string]string{
		"ECOBEETS_COUNT":         "7",
		"ECOBEETS_INFLUX_BUCKET": "other",
		"ECOBEETS_KAFKA_BROKERS": "k3:9092",
	})

	cfg, err := load(context.Background(), writeConfig(t), file.NewFileService(), env)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Count)
	assert.Equal(t, "other", cfg.Influx.Bucket)
	assert.Equal(t, []string{"k3:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "home", cfg.Influx.Org)
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	env := envconfig.MapLookuper(map[string]string{"ECOBEETS_COUNT": "many"})

	_, err := load(context.Background(), "", file.NewFileService(), env)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestLoadConfig_FileError(t *testing.T) {
	fileOps := new(mocks.FileOperations)
	fileOps.On("ReadYamlFile", "/etc/ecobeets.yaml", mock.Anything).Return(errors.New("permission denied"))

	_, err := load(context.Background(), "/etc/ecobeets.yaml", fileOps, envconfig.MapLookuper(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "permission denied")
	fileOps.AssertExpectations(t)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative count", func(c *Config) { c.Count = -1 }, true},
		{"empty token file", func(c *Config) { c.TokenFile = "" }, true},
		{"unknown output", func(c *Config) { c.OutputType = "carrier-pigeon" }, true},
		{"influx without bucket", func(c *Config) { c.OutputType = "influxdb" }, true},
		{"influx complete", func(c *Config) { c.OutputType = "influxdb"; c.Influx.Bucket = "b" }, false},
		{"mqtt without broker", func(c *Config) { c.OutputType = "mqtt" }, true},
		{"mqtt bad qos", func(c *Config) { c.OutputType = "mqtt"; c.MQTT.Broker = "tcp://b:1883"; c.MQTT.QOS = 3 }, true},
		{"kafka without brokers", func(c *Config) { c.OutputType = "kafka" }, true},
		{"kafka complete", func(c *Config) { c.OutputType = "kafka"; c.Kafka.Brokers = []string{"k:9092"} }, false},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrConfiguration))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

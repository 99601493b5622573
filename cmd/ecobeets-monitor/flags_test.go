package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/ecobee-ts/internal/config"
)

func TestParseFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	flags, err := parseFlags([]string{"-c", "5", "-output-type", "kafka", "-kafka-brokers", "k1:9092, k2:9092"}, io.Discard)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Influx.Bucket = "from-file"
	cfg.Interval = 90 * time.Second
	flags.apply(cfg)

	assert.Equal(t, 5, cfg.Count)
	assert.Equal(t, "kafka", cfg.OutputType)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "from-file", cfg.Influx.Bucket)
	assert.Equal(t, 90*time.Second, cfg.Interval)
}

func TestParseFlags_ShortAndLongAliases(t *testing.T) {
	flags, err := parseFlags([]string{"-t", "/tmp/token", "--interval", "60", "-u", "http://influx:8086", "-b", "ecobee"}, io.Discard)
	require.NoError(t, err)

	cfg := config.Default()
	flags.apply(cfg)

	assert.Equal(t, "/tmp/token", cfg.TokenFile)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.Equal(t, "http://influx:8086", cfg.Influx.URL)
	assert.Equal(t, "ecobee", cfg.Influx.Bucket)
}

func TestParseFlags_ConfigPath(t *testing.T) {
	flags, err := parseFlags([]string{"-config", "/etc/ecobeets.yaml"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/etc/ecobeets.yaml", flags.configPath)
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags([]string{"-frobnicate"}, io.Discard)
	assert.Error(t, err)
}

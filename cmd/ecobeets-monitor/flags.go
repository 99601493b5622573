package main

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/benmeehan/ecobee-ts/internal/config"
)

// cliFlags holds the raw command line values. Only flags the operator actually
// passed are applied on top of the file and environment settings.
type cliFlags struct {
	configPath string

	tokenFile  string
	count      int
	interval   int
	outputType string

	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string

	mqttBroker   string
	mqttTopic    string
	kafkaBrokers string
	kafkaTopic   string

	logLevel  string
	logFormat string

	set *flag.FlagSet
}

func parseFlags(args []string, output io.Writer) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("ecobeets-monitor", flag.ContinueOnError)
	fs.SetOutput(output)

	defaults := config.Default()

	fs.StringVar(&f.configPath, "config", "", "optional YAML configuration file")
	stringFlag(fs, &f.tokenFile, defaults.TokenFile, "path to the token file", "t", "token-file")
	intFlag(fs, &f.count, defaults.Count, "number of poll cycles, 0 polls forever", "c", "count")
	intFlag(fs, &f.interval, int(defaults.Interval/time.Second), "seconds between poll cycles", "i", "interval")
	stringFlag(fs, &f.outputType, defaults.OutputType, "output type: json, influxdb, mqtt or kafka", "o", "output-type")

	stringFlag(fs, &f.influxURL, defaults.Influx.URL, "InfluxDB URL", "u", "influx-url")
	stringFlag(fs, &f.influxToken, "", "InfluxDB token", "k", "influx-token")
	stringFlag(fs, &f.influxOrg, "", "InfluxDB organization", "r", "influx-org")
	stringFlag(fs, &f.influxBucket, "", "InfluxDB bucket", "b", "influx-bucket")

	fs.StringVar(&f.mqttBroker, "mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883")
	fs.StringVar(&f.mqttTopic, "mqtt-topic", defaults.MQTT.Topic, "MQTT topic prefix")
	fs.StringVar(&f.kafkaBrokers, "kafka-brokers", "", "comma separated Kafka broker addresses")
	fs.StringVar(&f.kafkaTopic, "kafka-topic", defaults.Kafka.Topic, "Kafka topic")

	fs.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "log level")
	fs.StringVar(&f.logFormat, "log-format", defaults.Log.Format, "log format: json or text")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.set = fs
	return f, nil
}

// apply copies every explicitly passed flag into cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "t", "token-file":
			cfg.TokenFile = f.tokenFile
		case "c", "count":
			cfg.Count = f.count
		case "i", "interval":
			cfg.Interval = time.Duration(f.interval) * time.Second
		case "o", "output-type":
			cfg.OutputType = f.outputType
		case "u", "influx-url":
			cfg.Influx.URL = f.influxURL
		case "k", "influx-token":
			cfg.Influx.Token = f.influxToken
		case "r", "influx-org":
			cfg.Influx.Org = f.influxOrg
		case "b", "influx-bucket":
			cfg.Influx.Bucket = f.influxBucket
		case "mqtt-broker":
			cfg.MQTT.Broker = f.mqttBroker
		case "mqtt-topic":
			cfg.MQTT.Topic = f.mqttTopic
		case "kafka-brokers":
			cfg.Kafka.Brokers = splitList(f.kafkaBrokers)
		case "kafka-topic":
			cfg.Kafka.Topic = f.kafkaTopic
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "log-format":
			cfg.Log.Format = f.logFormat
		}
	})
}

func stringFlag(fs *flag.FlagSet, p *string, value, usage string, names ...string) {
	for _, name := range names {
		fs.StringVar(p, name, value, usage)
	}
}

func intFlag(fs *flag.FlagSet, p *int, value int, usage string, names ...string) {
	for _, name := range names {
		fs.IntVar(p, name, value, usage)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

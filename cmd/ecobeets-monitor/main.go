package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/auth"
	"github.com/benmeehan/ecobee-ts/internal/config"
	"github.com/benmeehan/ecobee-ts/internal/ecobee"
	"github.com/benmeehan/ecobee-ts/internal/logging"
	"github.com/benmeehan/ecobee-ts/internal/services"
	"github.com/benmeehan/ecobee-ts/internal/sinks"
	"github.com/benmeehan/ecobee-ts/internal/telemetry"
	"github.com/benmeehan/ecobee-ts/pkg/file"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		stop()
		fmt.Fprintf(os.Stderr, "ecobeets-monitor: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	fileClient := file.NewFileService()

	// Load configuration: defaults, file, environment, then flags
	cfg, err := config.LoadConfig(ctx, flags.configPath, fileClient)
	if err != nil {
		return err
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr so the json output owns stdout
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	tokenPath, err := file.ExpandPath(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	client := ecobee.NewClient(cfg.BaseURL, nil, log)
	credentials, err := auth.LoadCredentialManager(ctx, auth.NewFileTokenStore(tokenPath, fileClient), client, log)
	if err != nil {
		return err
	}
	client.UseTokenSource(credentials)

	sink, err := sinks.DefaultRegistry().Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink(sink, log)

	monitor := services.NewMonitorService(cfg.Count, cfg.Interval, client, credentials, telemetry.NewDecoder(), sink, log)
	return monitor.Run(ctx)
}

func closeSink(sink sinks.Sink, log zerolog.Logger) {
	if err := sink.Close(); err != nil {
		log.Warn().Err(err).Str("output", sink.Name()).Msg("Failed to close output")
	}
}

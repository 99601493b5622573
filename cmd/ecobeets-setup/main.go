package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/ecobee-ts/internal/auth"
	"github.com/benmeehan/ecobee-ts/internal/config"
	"github.com/benmeehan/ecobee-ts/internal/ecobee"
	"github.com/benmeehan/ecobee-ts/internal/logging"
	"github.com/benmeehan/ecobee-ts/internal/services"
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
		fmt.Fprintf(os.Stderr, "ecobeets-setup: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var apiKey, tokenFile, scope, logLevel, baseURL string

	fs := flag.NewFlagSet("ecobeets-setup", flag.ContinueOnError)
	fs.StringVar(&apiKey, "a", "", "ecobee application API key (required)")
	fs.StringVar(&apiKey, "api-key", "", "ecobee application API key (required)")
	fs.StringVar(&tokenFile, "t", config.DefaultTokenFile, "path to the token file")
	fs.StringVar(&tokenFile, "token-file", config.DefaultTokenFile, "path to the token file")
	fs.StringVar(&scope, "scope", config.DefaultScope, "requested authorization scope")
	fs.StringVar(&logLevel, "log-level", "info", "log level")
	fs.StringVar(&baseURL, "base-url", config.DefaultBaseURL, "ecobee API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if apiKey == "" {
		fs.Usage()
		return fmt.Errorf("%w: an API key is required", config.ErrConfiguration)
	}

	log, err := logging.New(logLevel, "text", os.Stderr)
	if err != nil {
		return err
	}

	tokenPath, err := file.ExpandPath(tokenFile)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	client := ecobee.NewClient(baseURL, nil, log)
	store := auth.NewFileTokenStore(tokenPath, file.NewFileService())

	registration := services.NewRegistrationService(apiKey, scope, client, store, os.Stdin, os.Stdout, log)
	if err := registration.Register(ctx); err != nil {
		return err
	}

	log.Info().Str("token_file", tokenPath).Msg("Run ecobeets-monitor to start polling")
	return nil
}

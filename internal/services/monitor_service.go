package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/auth"
	"github.com/benmeehan/ecobee-ts/internal/models"
	"github.com/benmeehan/ecobee-ts/internal/sinks"
	"github.com/benmeehan/ecobee-ts/internal/telemetry"
)

// ErrUnsupportedResponse is returned when the listing spans more than one page.
var ErrUnsupportedResponse = errors.New("multi-page thermostat listings are not supported")

var errTokenExpired = errors.New("access token expired")

// ThermostatLister fetches the thermostat listing.
type ThermostatLister interface {
	ListThermostats(ctx context.Context, sel models.Selection) (*models.ThermostatListing, *models.Status, error)
}

// Decoder turns one raw thermostat object into points.
type Decoder interface {
	Decode(raw json.RawMessage) ([]models.Point, error)
}

// MonitorService polls the thermostat listing and hands the decoded points to a sink.
type MonitorService struct {
	count    int
	interval time.Duration

	lister      ThermostatLister
	credentials auth.CredentialManagerInterface
	decoder     Decoder
	sink        sinks.Sink
	logger      zerolog.Logger
}

// NewMonitorService initializes a MonitorService. count is the number of cycles
// to run; zero runs until ctx is cancelled.
func NewMonitorService(
	count int,
	interval time.Duration,
	lister ThermostatLister,
	credentials auth.CredentialManagerInterface,
	decoder Decoder,
	sink sinks.Sink,
	logger zerolog.Logger,
) *MonitorService {
	return &MonitorService{
		count:       count,
		interval:    interval,
		lister:      lister,
		credentials: credentials,
		decoder:     decoder,
		sink:        sink,
		logger:      logger,
	}
}

// Run polls until count cycles have completed, a fatal error occurs or ctx is
// cancelled. Cancellation only cuts the sleep short; a cycle in progress is
// allowed to finish.
func (s *MonitorService) Run(ctx context.Context) error {
	s.logger.Info().
		Int("count", s.count).
		Dur("interval", s.interval).
		Str("output", s.sink.Name()).
		Msg("MonitorService started")

	for cycle := 1; ; cycle++ {
		written, err := s.RunCycle(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Error().Err(err).Int("cycle", cycle).Msg("Poll cycle failed")
			return err
		}
		s.logger.Debug().Int("cycle", cycle).Int("points", written).Msg("Poll cycle completed")

		if s.count > 0 && cycle >= s.count {
			s.logger.Info().Int("cycles", cycle).Msg("MonitorService finished")
			return nil
		}

		if !s.sleep(ctx) {
			s.logger.Info().Msg("MonitorService stopping gracefully")
			return nil
		}
	}
}

// RunCycle performs one listing, decode and write pass and returns the number
// of points written.
func (s *MonitorService) RunCycle(ctx context.Context) (int, error) {
	listing, status, err := s.list(ctx)
	if errors.Is(err, errTokenExpired) {
		s.logger.Warn().Msg("Access token still rejected after a forced refresh; skipping cycle")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	if listing == nil {
		ev := s.logger.Warn()
		if status != nil {
			ev = ev.Int("status_code", status.Code).Str("status_message", status.Message)
		}
		ev.Msg("No thermostat data returned; skipping cycle")
		return 0, nil
	}

	if listing.Page != nil && listing.Page.TotalPages > 1 {
		return 0, fmt.Errorf("%w: listing has %d pages", ErrUnsupportedResponse, listing.Page.TotalPages)
	}

	written := 0
	for i, raw := range listing.ThermostatList {
		points, err := s.decoder.Decode(raw)
		if err != nil {
			var decodeErr *telemetry.DecodeError
			if errors.As(err, &decodeErr) {
				s.logger.Error().Err(err).Int("thermostat_index", i).Msg("Skipping thermostat that failed to decode")
				continue
			}
			return written, fmt.Errorf("failed to decode thermostat %d: %w", i, err)
		}

		if err := s.sink.Write(ctx, points); err != nil {
			return written, fmt.Errorf("%s output failed: %w", s.sink.Name(), err)
		}
		written += len(points)
	}

	return written, nil
}

// list fetches the listing. A token-expired status triggers one forced refresh
// and a single retry.
func (s *MonitorService) list(ctx context.Context) (*models.ThermostatListing, *models.Status, error) {
	var (
		listing *models.ThermostatListing
		status  *models.Status
		attempt int
	)

	err := retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				if _, err := s.credentials.ForceRefresh(ctx); err != nil {
					return retry.Unrecoverable(err)
				}
			}

			var err error
			listing, status, err = s.lister.ListThermostats(ctx, models.TelemetrySelection())
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if listing == nil && status != nil && status.Code == models.StatusTokenExpired {
				return errTokenExpired
			}
			return nil
		},
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errTokenExpired) }),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn().Uint("attempt", n+1).Msg("Access token expired; forcing refresh")
		}),
	)
	return listing, status, err
}

func (s *MonitorService) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/auth"
	"github.com/benmeehan/ecobee-ts/internal/models"
)

// PinAuthorizer covers the anonymous calls used by the PIN authorization flow.
type PinAuthorizer interface {
	RequestPIN(ctx context.Context, apiKey, scope string) (models.PinResponse, error)
	ExchangePIN(ctx context.Context, apiKey, code string) (models.TokenResponse, error)
}

// RegistrationService authorizes the application against an ecobee account and
// writes the first credential record.
type RegistrationService struct {
	apiKey string
	scope  string

	authorizer PinAuthorizer
	store      auth.TokenStore
	in         io.Reader
	out        io.Writer
	logger     zerolog.Logger
}

// NewRegistrationService initializes and returns a new RegistrationService instance.
func NewRegistrationService(
	apiKey string,
	scope string,
	authorizer PinAuthorizer,
	store auth.TokenStore,
	in io.Reader,
	out io.Writer,
	logger zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		apiKey:     apiKey,
		scope:      scope,
		authorizer: authorizer,
		store:      store,
		in:         in,
		out:        out,
		logger:     logger,
	}
}

// Register walks the operator through the PIN flow. The stored record has no
// refresh time, so the monitor refreshes it on first use.
func (rs *RegistrationService) Register(ctx context.Context) error {
	if rs.apiKey == "" {
		return errors.New("api key is required")
	}

	exists, err := rs.store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check token file: %w", err)
	}
	if exists {
		return auth.ErrAlreadyRegistered
	}

	rs.logger.Info().Str("scope", rs.scope).Msg("Requesting authorization PIN")
	pin, err := rs.authorizer.RequestPIN(ctx, rs.apiKey, rs.scope)
	if err != nil {
		return fmt.Errorf("%w: pin request rejected: %w", auth.ErrAuthentication, err)
	}

	fmt.Fprintf(rs.out, "Authorization PIN: %s\n\n", pin.EcobeePin)
	fmt.Fprintln(rs.out, "Log in to the ecobee web portal, open My Apps, choose Add Application")
	fmt.Fprintf(rs.out, "and enter the PIN. The PIN expires in %d minutes.\n\n", pin.ExpiresIn)
	fmt.Fprint(rs.out, "Press Enter once the application has been added... ")

	if err := waitForEnter(ctx, rs.in); err != nil {
		return err
	}

	tokens, err := rs.authorizer.ExchangePIN(ctx, rs.apiKey, pin.Code)
	if err != nil {
		return fmt.Errorf("%w: pin exchange rejected: %w", auth.ErrAuthentication, err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return fmt.Errorf("%w: token response is missing tokens", auth.ErrAuthentication)
	}

	record := models.CredentialRecord{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		Scope:        tokens.Scope,
		APIKey:       rs.apiKey,
	}
	if err := rs.store.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	rs.logger.Info().Msg("Application authorized and credentials saved")
	fmt.Fprintln(rs.out, "\nAuthorization complete.")
	return nil
}

func waitForEnter(ctx context.Context, in io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

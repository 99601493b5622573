package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// ErrAuthentication marks a rejected token exchange or refresh. It is not retried;
// the operator has to run the setup flow again.
var ErrAuthentication = errors.New("authentication failed")

// Refresher performs the refresh grant against the vendor token endpoint.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken, apiKey string) (models.TokenResponse, error)
}

// CredentialManagerInterface hands out valid credentials to API callers.
type CredentialManagerInterface interface {
	EnsureValid(ctx context.Context) (models.CredentialRecord, error)
	ForceRefresh(ctx context.Context) (models.CredentialRecord, error)
}

// CredentialManager decides when the stored credentials are stale and drives the refresh.
type CredentialManager struct {
	store     TokenStore
	refresher Refresher
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	record models.CredentialRecord
}

// NewCredentialManager wraps an already loaded record.
func NewCredentialManager(record models.CredentialRecord, store TokenStore, refresher Refresher, logger zerolog.Logger) *CredentialManager {
	return &CredentialManager{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
		record:    record,
	}
}

// LoadCredentialManager reads the record from store. A missing token file
// surfaces as ErrNotRegistered.
func LoadCredentialManager(ctx context.Context, store TokenStore, refresher Refresher, logger zerolog.Logger) (*CredentialManager, error) {
	record, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if record.APIKey == "" || record.RefreshToken == "" {
		return nil, fmt.Errorf("token file is missing api_key or refresh_token")
	}
	return NewCredentialManager(record, store, refresher, logger), nil
}

// SetClock replaces the time source.
func (m *CredentialManager) SetClock(now func() time.Time) {
	m.now = now
}

// Current returns the in-memory record without checking it.
func (m *CredentialManager) Current() models.CredentialRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record
}

// EnsureValid returns a usable record, refreshing it first when it is stale.
func (m *CredentialManager) EnsureValid(ctx context.Context) (models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.record.IsStale(m.now()) {
		return m.record, nil
	}
	m.logger.Info().Time("expired_at", m.record.ExpiresAt()).Msg("Credentials are stale, refreshing")
	return m.refreshLocked(ctx)
}

// ForceRefresh refreshes regardless of the expiry time. Callers use it once after
// the API rejects a token; it never loops.
func (m *CredentialManager) ForceRefresh(ctx context.Context) (models.CredentialRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info().Msg("Forcing credential refresh")
	return m.refreshLocked(ctx)
}

func (m *CredentialManager) refreshLocked(ctx context.Context) (models.CredentialRecord, error) {
	old := m.record
	now := m.now()

	resp, err := m.refresher.Refresh(ctx, old.RefreshToken, old.APIKey)
	if err != nil {
		return old, fmt.Errorf("%w: refresh rejected: %w", ErrAuthentication, err)
	}
	if resp.AccessToken == "" {
		return old, fmt.Errorf("%w: refresh response carried no access token", ErrAuthentication)
	}

	updated := models.CredentialRecord{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        resp.Scope,
		APIKey:       old.APIKey,
		RefreshTime:  now.Unix(),
	}
	if updated.RefreshToken == "" {
		updated.RefreshToken = old.RefreshToken
	}
	if updated.TokenType == "" {
		updated.TokenType = old.TokenType
	}
	if updated.Scope == "" {
		updated.Scope = old.Scope
	}

	if err := m.store.CompareAndSwap(ctx, old, updated); err != nil {
		return old, fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	m.record = updated

	m.logger.Info().Time("expires_at", updated.ExpiresAt()).Msg("Credentials refreshed")
	return updated, nil
}

package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/ecobee-ts/internal/auth"
	"github.com/benmeehan/ecobee-ts/internal/mocks"
	"github.com/benmeehan/ecobee-ts/internal/models"
	"github.com/benmeehan/ecobee-ts/pkg/file"
)

var testNow = time.Date(2020, 4, 25, 23, 3, 20, 0, time.UTC)

// newTestStore writes record to a fresh token file and returns a store for it.
func newTestStore(t *testing.T, record models.CredentialRecord) *auth.FileTokenStore {
	t.Helper()
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "ecobeets.json")
	require.NoError(t, fs.WriteJsonFile(path, record))
	return auth.NewFileTokenStore(path, fs)
}

func staleRecord() models.CredentialRecord {
	return models.CredentialRecord{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3599,
		APIKey:       "app-key",
		RefreshTime:  testNow.Add(-2 * time.Hour).Unix(),
	}
}

func freshTokens() models.TokenResponse {
	return models.TokenResponse{
		AccessToken:  "new-access",
		RefreshToken: "new-refresh",
		TokenType:    "Bearer",
		ExpiresIn:    3599,
		Scope:        "smartRead",
	}
}

func newManager(t *testing.T, record models.CredentialRecord, refresher auth.Refresher) (*auth.CredentialManager, *auth.FileTokenStore) {
	t.Helper()
	store := newTestStore(t, record)
	m, err := auth.LoadCredentialManager(context.Background(), store, refresher, zerolog.Nop())
	require.NoError(t, err)
	m.SetClock(func() time.Time { return testNow })
	return m, store
}

func TestEnsureValid_StaleRecordRefreshesOnce(t *testing.T) {
	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, store := newManager(t, staleRecord(), refresher)

	got, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.NotEqual(t, staleRecord().AccessToken, got.AccessToken)

	// the refreshed record is now valid, so a second call is served from memory
	again, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, got, again)

	refresher.AssertNumberOfCalls(t, "Refresh", 1)

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-key", persisted.APIKey)
	assert.Equal(t, "new-refresh", persisted.RefreshToken)
	assert.Equal(t, testNow.Unix(), persisted.RefreshTime)
}

func TestEnsureValid_ExpiryEqualToNowIsStale(t *testing.T) {
	record := staleRecord()
	record.RefreshTime = testNow.Unix() - record.ExpiresIn

	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, _ := newManager(t, record, refresher)

	_, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
}

func TestEnsureValid_ValidRecordDoesNotRefresh(t *testing.T) {
	record := staleRecord()
	record.RefreshTime = testNow.Add(-10 * time.Minute).Unix()

	refresher := new(mocks.Refresher)
	m, _ := newManager(t, record, refresher)

	got, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, record, got)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureValid_NeverRefreshedIsStale(t *testing.T) {
	record := staleRecord()
	record.RefreshTime = 0

	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, _ := newManager(t, record, refresher)

	got, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	refresher.AssertExpectations(t)
}

func TestEnsureValid_RefreshRejectedLeavesStateUntouched(t *testing.T) {
	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").
		Return(models.TokenResponse{}, errors.New("invalid_grant")).Once()

	m, store := newManager(t, staleRecord(), refresher)

	_, err := m.EnsureValid(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAuthentication)

	assert.Equal(t, staleRecord(), m.Current())
	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, staleRecord(), persisted)
}

func TestEnsureValid_EmptyAccessTokenIsAuthenticationError(t *testing.T) {
	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(models.TokenResponse{}, nil).Once()

	m, _ := newManager(t, staleRecord(), refresher)

	_, err := m.EnsureValid(context.Background())
	assert.ErrorIs(t, err, auth.ErrAuthentication)
	assert.Equal(t, staleRecord(), m.Current())
}

func TestForceRefresh_BypassesExpiry(t *testing.T) {
	record := staleRecord()
	record.RefreshTime = testNow.Unix()

	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, _ := newManager(t, record, refresher)

	got, err := m.ForceRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "app-key", got.APIKey)
	refresher.AssertExpectations(t)
}

func TestRefresh_StoreConflictIsNotApplied(t *testing.T) {
	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, store := newManager(t, staleRecord(), refresher)

	// another process rotated the refresh token in the meantime
	other := staleRecord()
	other.RefreshToken = "rotated-elsewhere"
	require.NoError(t, store.CompareAndSwap(context.Background(), staleRecord(), other))

	_, err := m.EnsureValid(context.Background())
	assert.ErrorIs(t, err, auth.ErrStoreConflict)
	assert.Equal(t, "old-access", m.Current().AccessToken)
}

func TestLoadCredentialManager_MissingFile(t *testing.T) {
	store := auth.NewFileTokenStore(filepath.Join(t.TempDir(), "absent"), file.NewFileService())

	_, err := auth.LoadCredentialManager(context.Background(), store, new(mocks.Refresher), zerolog.Nop())
	assert.ErrorIs(t, err, auth.ErrNotRegistered)
}

func TestFileTokenStore_CreateRefusesOverwrite(t *testing.T) {
	store := newTestStore(t, staleRecord())

	err := store.Create(context.Background(), models.CredentialRecord{APIKey: "other"})
	assert.ErrorIs(t, err, auth.ErrAlreadyRegistered)

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "app-key", persisted.APIKey)
}

func TestFileTokenStore_LoadParseError(t *testing.T) {
	fileOps := new(mocks.FileOperations)
	fileOps.On("IsFileExists", "/tokens").Return(true, nil)
	fileOps.On("ReadJsonFile", "/tokens", mock.Anything).Return(errors.New("unexpected EOF"))

	store := auth.NewFileTokenStore("/tokens", fileOps)
	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "failed to parse token file")
	fileOps.AssertExpectations(t)
}

func TestFileTokenStore_LoadFractionalRefreshTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecobeets.json")
	legacy := `{"access_token": "old-access", "token_type": "Bearer", "refresh_token": "old-refresh",
		"expires_in": 3599, "scope": "smartRead", "api_key": "app-key", "refresh_time": 1587855800.123456}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))
	store := auth.NewFileTokenStore(path, file.NewFileService())

	record, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1587855800), record.RefreshTime)
	assert.Equal(t, "app-key", record.APIKey)
	assert.Equal(t, "old-refresh", record.RefreshToken)

	refresher := new(mocks.Refresher)
	refresher.On("Refresh", mock.Anything, "old-refresh", "app-key").Return(freshTokens(), nil).Once()

	m, err := auth.LoadCredentialManager(context.Background(), store, refresher, zerolog.Nop())
	require.NoError(t, err)
	later := testNow.Add(2 * time.Hour)
	m.SetClock(func() time.Time { return later })

	got, err := m.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), ".123456")

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, later.Unix(), persisted.RefreshTime)
	refresher.AssertExpectations(t)
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// Refresher is a mock implementation of the auth.Refresher interface
type Refresher struct {
	mock.Mock
}

func (m *Refresher) Refresh(ctx context.Context, refreshToken, apiKey string) (models.TokenResponse, error) {
	args := m.Called(ctx, refreshToken, apiKey)
	return args.Get(0).(models.TokenResponse), args.Error(1)
}

// CredentialManager is a mock implementation of the auth.CredentialManagerInterface
type CredentialManager struct {
	mock.Mock
}

func (m *CredentialManager) EnsureValid(ctx context.Context) (models.CredentialRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.CredentialRecord), args.Error(1)
}

func (m *CredentialManager) ForceRefresh(ctx context.Context) (models.CredentialRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.CredentialRecord), args.Error(1)
}

// TokenStore is a mock implementation of the auth.TokenStore interface
type TokenStore struct {
	mock.Mock
}

func (m *TokenStore) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *TokenStore) Load(ctx context.Context) (models.CredentialRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.CredentialRecord), args.Error(1)
}

func (m *TokenStore) Create(ctx context.Context, record models.CredentialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *TokenStore) CompareAndSwap(ctx context.Context, old, updated models.CredentialRecord) error {
	args := m.Called(ctx, old, updated)
	return args.Error(0)
}

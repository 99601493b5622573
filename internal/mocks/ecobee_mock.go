package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// ThermostatLister is a mock implementation of the services.ThermostatLister interface
type ThermostatLister struct {
	mock.Mock
}

func (m *ThermostatLister) ListThermostats(ctx context.Context, sel models.Selection) (*models.ThermostatListing, *models.Status, error) {
	args := m.Called(ctx, sel)
	listing, _ := args.Get(0).(*models.ThermostatListing)
	status, _ := args.Get(1).(*models.Status)
	return listing, status, args.Error(2)
}

// PinAuthorizer is a mock implementation of the services.PinAuthorizer interface
type PinAuthorizer struct {
	mock.Mock
}

func (m *PinAuthorizer) RequestPIN(ctx context.Context, apiKey, scope string) (models.PinResponse, error) {
	args := m.Called(ctx, apiKey, scope)
	return args.Get(0).(models.PinResponse), args.Error(1)
}

func (m *PinAuthorizer) ExchangePIN(ctx context.Context, apiKey, code string) (models.TokenResponse, error) {
	args := m.Called(ctx, apiKey, code)
	return args.Get(0).(models.TokenResponse), args.Error(1)
}

// Decoder is a mock implementation of the services.Decoder interface
type Decoder struct {
	mock.Mock
}

func (m *Decoder) Decode(raw json.RawMessage) ([]models.Point, error) {
	args := m.Called(raw)
	points, _ := args.Get(0).([]models.Point)
	return points, args.Error(1)
}

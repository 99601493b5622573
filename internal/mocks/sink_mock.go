package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// Sink is a mock implementation of the sinks.Sink interface
type Sink struct {
	mock.Mock
}

func (m *Sink) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *Sink) Write(ctx context.Context, points []models.Point) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *Sink) Close() error {
	args := m.Called()
	return args.Error(0)
}

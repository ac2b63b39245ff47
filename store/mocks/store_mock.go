package mocks

import (
	"context"

	"github.com/jinukim/inkverse/models"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetLedger(ctx context.Context, userId string) (models.UserLedger, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(models.UserLedger), args.Error(1)
}

func (m *MockStore) CreateLedger(ctx context.Context, ledger models.UserLedger) (models.UserLedger, bool, error) {
	args := m.Called(ctx, ledger)
	return args.Get(0).(models.UserLedger), args.Bool(1), args.Error(2)
}

func (m *MockStore) ResetBudget(ctx context.Context, userId string, budget float64, prevReset int64, now int64) (models.UserLedger, error) {
	args := m.Called(ctx, userId, budget, prevReset, now)
	return args.Get(0).(models.UserLedger), args.Error(1)
}

func (m *MockStore) DebitBudget(ctx context.Context, userId string, amount float64) (models.UserLedger, error) {
	args := m.Called(ctx, userId, amount)
	return args.Get(0).(models.UserLedger), args.Error(1)
}

func (m *MockStore) InsertStroke(ctx context.Context, stroke models.Stroke) error {
	args := m.Called(ctx, stroke)
	return args.Error(0)
}

func (m *MockStore) GetStrokes(ctx context.Context) ([]models.Stroke, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Stroke), args.Error(1)
}

func (m *MockStore) DeleteAuthorStrokes(ctx context.Context, userId string) error {
	args := m.Called(ctx, userId)
	return args.Error(0)
}

func (m *MockStore) DeleteStrokesBefore(ctx context.Context, beforeMs int64) error {
	args := m.Called(ctx, beforeMs)
	return args.Error(0)
}

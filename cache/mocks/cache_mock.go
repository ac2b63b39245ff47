package mocks

import (
	"context"

	"github.com/jinukim/inkverse/cache"
	"github.com/stretchr/testify/mock"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Publish(ctx context.Context, channel string, message []byte) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}

func (m *MockCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	args := m.Called(ctx, channel, handler)
	return args.Error(0)
}

func (m *MockCache) AddStroke(ctx context.Context, strokeId string, score int64, strokeData []byte) error {
	args := m.Called(ctx, strokeId, score, strokeData)
	return args.Error(0)
}

func (m *MockCache) AddStrokesBatch(ctx context.Context, strokes []cache.StrokeCacheItem) error {
	args := m.Called(ctx, strokes)
	return args.Error(0)
}

func (m *MockCache) GetStrokes(ctx context.Context) ([][]byte, error) {
	args := m.Called(ctx)
	return args.Get(0).([][]byte), args.Error(1)
}

func (m *MockCache) SetCanvasComplete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCache) IsCanvasComplete(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) InvalidateCanvas(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

package service_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func marshalStrokes(t *testing.T, strokes []models.Stroke) [][]byte {
	out := make([][]byte, 0, len(strokes))
	for _, s := range strokes {
		b, err := json.Marshal(s)
		assert.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestLoadCanvas_CompleteCacheHit(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()

	cached := []models.Stroke{
		{Id: "018f0001", Points: []float64{0, 0, 1, 1}, Color: "#AAAAAA", UserId: "u1", CreatedAt: 1},
		{Id: "018f0002", Points: []float64{2, 2, 3, 3}, Color: "#BBBBBB", UserId: "u2", CreatedAt: 2},
	}

	mockCache.On("GetStrokes", ctx).Return(marshalStrokes(t, cached), nil)
	mockCache.On("IsCanvasComplete", ctx).Return(true, nil)

	strokes, err := svc.LoadCanvas(ctx)
	assert.NoError(t, err)
	assert.Equal(t, cached, strokes)

	// A complete cache never touches the store
	mockStore.AssertNotCalled(t, "GetStrokes", mock.Anything)
}

func TestLoadCanvas_IncompleteCacheMergesStore(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()

	dbStrokes := []models.Stroke{
		{Id: "018f0001", Points: []float64{0, 0, 1, 1}, CreatedAt: 1},
		{Id: "018f0002", Points: []float64{2, 2, 3, 3}, CreatedAt: 2},
	}
	// The cache holds one stroke the store query has not seen yet
	cachedOnly := models.Stroke{Id: "018f0003", Points: []float64{4, 4, 5, 5}, CreatedAt: 3}

	mockCache.On("GetStrokes", ctx).Return(marshalStrokes(t, []models.Stroke{cachedOnly}), nil)
	mockCache.On("IsCanvasComplete", ctx).Return(false, nil)
	mockStore.On("GetStrokes", ctx).Return(dbStrokes, nil)

	var seeded []cache.StrokeCacheItem
	mockCache.On("AddStrokesBatch", ctx, mock.Anything).
		Run(func(args mock.Arguments) {
			seeded = args.Get(1).([]cache.StrokeCacheItem)
		}).Return(nil)
	mockCache.On("SetCanvasComplete", ctx).Return(nil)

	strokes, err := svc.LoadCanvas(ctx)
	assert.NoError(t, err)

	assert.Equal(t, []models.Stroke{dbStrokes[0], dbStrokes[1], cachedOnly}, strokes)

	// The cache is reseeded with the store's strokes, scored by creation time
	assert.Len(t, seeded, 2)
	assert.Equal(t, "018f0001", seeded[0].StrokeId)
	assert.Equal(t, int64(1), seeded[0].Score)
}

func TestLoadCanvas_EmptyCanvasMarkedComplete(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()

	mockCache.On("GetStrokes", ctx).Return([][]byte{}, nil)
	mockCache.On("IsCanvasComplete", ctx).Return(false, nil)
	mockStore.On("GetStrokes", ctx).Return([]models.Stroke{}, nil)
	mockCache.On("SetCanvasComplete", ctx).Return(nil)

	strokes, err := svc.LoadCanvas(ctx)
	assert.NoError(t, err)
	assert.Empty(t, strokes)

	mockCache.AssertCalled(t, "SetCanvasComplete", ctx)
}

func TestLoadCanvas_StoreFailure(t *testing.T) {
	svc, mockStore, mockCache, _ := setupService(t)
	ctx := context.Background()

	mockCache.On("GetStrokes", ctx).Return([][]byte{}, nil)
	mockCache.On("IsCanvasComplete", ctx).Return(false, nil)
	mockStore.On("GetStrokes", ctx).Return([]models.Stroke{}, assert.AnError)

	_, err := svc.LoadCanvas(ctx)
	assert.Error(t, err)
}

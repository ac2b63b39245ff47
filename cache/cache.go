package cache

import "context"

type StrokeCacheItem struct {
	StrokeId string
	Score    int64
	Data     []byte
}

type CanvasCache interface {
	// Pub/sub relay used for cross-process stroke fanout.
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error

	// Snapshot cache for the shared canvas. The durable store stays the
	// source of truth; this only keeps snapshot reads off DynamoDB.
	AddStroke(ctx context.Context, strokeId string, score int64, strokeData []byte) error
	AddStrokesBatch(ctx context.Context, strokes []StrokeCacheItem) error
	GetStrokes(ctx context.Context) ([][]byte, error)

	SetCanvasComplete(ctx context.Context) error
	IsCanvasComplete(ctx context.Context) (bool, error)
	InvalidateCanvas(ctx context.Context) error
}

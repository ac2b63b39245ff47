package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/mq"
	"github.com/jinukim/inkverse/service"
	"github.com/jinukim/inkverse/store"
)

// RetentionConsumer drains the retention queue and executes purges against
// the stroke store. It is the only code path that ever deletes strokes; the
// drawing protocol itself has no delete operation.
type RetentionConsumer struct {
	retentionQueue mq.MessageQueue
	canvasStore    store.CanvasStore
	canvasCache    cache.CanvasCache
}

func NewRetentionConsumer(retentionQueue mq.MessageQueue, canvasStore store.CanvasStore, canvasCache cache.CanvasCache) *RetentionConsumer {
	return &RetentionConsumer{
		retentionQueue: retentionQueue,
		canvasStore:    canvasStore,
		canvasCache:    canvasCache,
	}
}

// Allow up to 5 minutes for a throttled batch purge before the message
// becomes visible again
const visibilityTimeout = 300

func (consumer *RetentionConsumer) Run(shutdownCtx context.Context) {
	for {
		msg, err := consumer.retentionQueue.Receive(shutdownCtx, visibilityTimeout)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("Retention consumer receive error: %v", err)
			continue
		}

		if msg == nil {
			continue
		}

		var req service.RetentionRequest
		if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
			log.Printf("Invalid retention request: %v", err)
			continue
		}
		if err := req.Validate(); err != nil {
			log.Printf("Invalid retention request: %v", err)
			continue
		}

		// timeout should be a little less than queue visibility timeout
		ctx, cancel := context.WithTimeout(context.Background(), (visibilityTimeout-1)*time.Second)

		if req.AuthorId != "" {
			err = consumer.canvasStore.DeleteAuthorStrokes(ctx, req.AuthorId)
			if err == nil {
				log.Printf("Purged strokes by author %s", req.AuthorId)
			}
		} else {
			err = consumer.canvasStore.DeleteStrokesBefore(ctx, req.BeforeMs)
			if err == nil {
				log.Printf("Purged strokes created before %d", req.BeforeMs)
			}
		}

		if err != nil {
			log.Printf("Retention purge failed: %v", err)
			cancel()
			continue
		}

		// Drop the cached snapshot so the next load rebuilds it from the
		// store without the purged strokes
		if err := consumer.canvasCache.InvalidateCanvas(ctx); err != nil {
			log.Printf("Failed to invalidate canvas cache: %v", err)
		}
		cancel()

		if err := consumer.retentionQueue.Delete(context.Background(), msg); err != nil {
			log.Printf("Retention consumer delete error: %v", err)
			continue
		}
	}
}

package redis

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/jinukim/inkverse/cache"
	"github.com/redis/go-redis/v9"
)

type RedisCanvasCache struct {
	client redis.UniversalClient
}

func NewRedisCanvasCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisCanvasCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisCanvasCache{client: client}, nil
}

func (redisCache *RedisCanvasCache) Publish(ctx context.Context, channel string, message []byte) error {
	if err := redisCache.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (redisCache *RedisCanvasCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// There is exactly one canvas, so the key space is fixed. Hash tags keep the
// three keys on one slot under cluster mode.
const (
	canvasKey         = "{canvas}:index"
	canvasDataKey     = "{canvas}:data"
	canvasCompleteKey = "{canvas}:complete"
)

const cacheTTL = 10 * time.Minute

// A ZSet keyed by stroke id and scored by creation time keeps chronological
// order, while a Hash holds id -> JSON blob for bulk retrieval with HMGET
// after a ZRange.
func (redisCache *RedisCanvasCache) AddStroke(ctx context.Context, strokeId string, score int64, strokeData []byte) error {
	pipe := redisCache.client.Pipeline()
	pipe.ZAdd(ctx, canvasKey, redis.Z{Score: float64(score), Member: strokeId})
	pipe.HSet(ctx, canvasDataKey, strokeId, strokeData)
	pipe.Expire(ctx, canvasCompleteKey, cacheTTL)
	pipe.Expire(ctx, canvasKey, cacheTTL)
	pipe.Expire(ctx, canvasDataKey, cacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisCanvasCache) AddStrokesBatch(ctx context.Context, strokes []cache.StrokeCacheItem) error {
	if len(strokes) == 0 {
		return nil
	}

	zMembers := make([]redis.Z, len(strokes))
	hValues := make([]interface{}, len(strokes)*2)

	for i, s := range strokes {
		zMembers[i] = redis.Z{
			Score:  float64(s.Score),
			Member: s.StrokeId,
		}
		hValues[i*2] = s.StrokeId
		hValues[i*2+1] = s.Data
	}

	pipe := redisCache.client.Pipeline()
	pipe.ZAdd(ctx, canvasKey, zMembers...)
	pipe.HSet(ctx, canvasDataKey, hValues...)
	pipe.Expire(ctx, canvasCompleteKey, cacheTTL)
	pipe.Expire(ctx, canvasKey, cacheTTL)
	pipe.Expire(ctx, canvasDataKey, cacheTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisCanvasCache) GetStrokes(ctx context.Context) ([][]byte, error) {
	// 1. Get all ids from the ZSet ordered by score
	ids, err := redisCache.client.ZRange(ctx, canvasKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return [][]byte{}, nil
	}

	// 2. Fetch data from the Hash
	dataMap, err := redisCache.client.HMGet(ctx, canvasDataKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	strokes := make([][]byte, 0, len(ids))
	for _, item := range dataMap {
		if item == nil {
			continue // should not happen if consistency is maintained
		}
		if s, ok := item.(string); ok {
			strokes = append(strokes, []byte(s))
		}
	}

	// Refresh TTL
	pipe := redisCache.client.Pipeline()
	pipe.Expire(ctx, canvasCompleteKey, cacheTTL)
	pipe.Expire(ctx, canvasKey, cacheTTL)
	pipe.Expire(ctx, canvasDataKey, cacheTTL)
	_, _ = pipe.Exec(ctx)

	return strokes, nil
}

func (redisCache *RedisCanvasCache) SetCanvasComplete(ctx context.Context) error {
	return redisCache.client.Set(ctx, canvasCompleteKey, "true", cacheTTL).Err()
}

func (redisCache *RedisCanvasCache) IsCanvasComplete(ctx context.Context) (bool, error) {
	val, err := redisCache.client.Get(ctx, canvasCompleteKey).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return val == "true", nil
}

func (redisCache *RedisCanvasCache) InvalidateCanvas(ctx context.Context) error {
	pipe := redisCache.client.Pipeline()
	pipe.Del(ctx, canvasKey)
	pipe.Del(ctx, canvasDataKey)
	pipe.Del(ctx, canvasCompleteKey)
	_, err := pipe.Exec(ctx)
	return err
}

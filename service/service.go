package service

import (
	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/mq"
	"github.com/jinukim/inkverse/store"
)

type Service struct {
	Store store.CanvasStore
	Cache cache.CanvasCache
	MQ    mq.MessageQueue
	// Secret for verifying externally issued tokens. Empty means the
	// deployment sits behind an auth proxy and bind identifiers are trusted
	// as-is.
	JWTSecret []byte
}

func NewService(
	store store.CanvasStore,
	cache cache.CanvasCache,
	mq mq.MessageQueue,
	jwtSecret []byte,
) *Service {
	return &Service{
		Store:     store,
		Cache:     cache,
		MQ:        mq,
		JWTSecret: jwtSecret,
	}
}

package api

import (
	"context"
	"log"
	"net/http"

	"github.com/jinukim/inkverse/api/rest"
	"github.com/jinukim/inkverse/api/ws"
	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/mq"
	"github.com/jinukim/inkverse/service"
	"github.com/jinukim/inkverse/store"
	"github.com/jinukim/inkverse/worker"
)

type InkverseAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

func NewInkverseAPI(
	canvasStore store.CanvasStore,
	retentionQueue mq.MessageQueue,
	canvasCache cache.CanvasCache,
	jwtSecret []byte,
	shutdownCtx context.Context,
) (*InkverseAPI, error) {
	wsHub := ws.NewHub(canvasCache)
	err := wsHub.InitSubscriptions(shutdownCtx)
	if err != nil {
		log.Printf("Failed to start WS hub subscriptions: %v", err)
		return &InkverseAPI{}, err
	}
	go wsHub.Run()

	retentionConsumer := worker.NewRetentionConsumer(retentionQueue, canvasStore, canvasCache)
	go retentionConsumer.Run(shutdownCtx)

	svc := service.NewService(canvasStore, canvasCache, retentionQueue, jwtSecret)

	restHandler := rest.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, wsHub)

	return &InkverseAPI{
		restHandler: restHandler,
		wsHandler:   wsHandler,
		shutdownCtx: shutdownCtx,
	}, nil
}

func (inkverseAPI *InkverseAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/strokes", inkverseAPI.restHandler.HandleStrokes)
	mux.HandleFunc("/retention", inkverseAPI.restHandler.HandleRetention)

	wsUpgrader := inkverseAPI.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		inkverseAPI.wsHandler.ServeWS(wsUpgrader, w, r, inkverseAPI.shutdownCtx)
	})
}

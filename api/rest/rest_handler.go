package rest

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/jinukim/inkverse/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

// HandleStrokes is a spare read-only API returning every stroke on the
// canvas ordered by creation time. Realtime clients get the same data in
// their websocket snapshot.
func (h *Handler) HandleStrokes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	strokes, err := h.Service.LoadCanvas(r.Context())
	if err != nil {
		log.Printf("LoadCanvas failed: %v", err)
		http.Error(w, "failed to load strokes", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"strokes": strokes}); err != nil {
		log.Printf("Failed to encode strokes response: %v", err)
	}
}

// HandleRetention lets lifecycle tooling enqueue a purge request. Requires
// an externally issued token carrying the admin claim.
func (h *Handler) HandleRetention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.Service.AuthorizeRetention(token); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req service.RetentionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.RequestRetention(r.Context(), req); err != nil {
		log.Printf("Failed to enqueue retention request: %v", err)
		http.Error(w, "failed to enqueue retention request", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

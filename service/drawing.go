package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jinukim/inkverse/models"
)

// CanvasChannel is the single pub/sub channel carrying accepted strokes to
// every hub instance.
const CanvasChannel = "canvas"

// FanoutEnvelope wraps a fanout payload with the submitting connection's id
// so each hub can deliver to all bound clients except the origin.
type FanoutEnvelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

type StrokeAddedMessage struct {
	Type string        `json:"type"`
	Data models.Stroke `json:"data"`
}

type SubmitParams struct {
	UserId string
	// Color is the author's ledger color held on the connection, never a
	// client-claimed value.
	Color              string
	Points             []float64
	OriginConnectionId string
}

// SubmitStroke runs the accept path for one gesture: validate, recompute
// length, debit the ink budget, persist, then fan out. A rejected debit is a
// normal outcome, reported through DebitResult with no error.
func (s *Service) SubmitStroke(ctx context.Context, params SubmitParams) (models.Stroke, DebitResult, error) {
	if err := ValidatePoints(params.Points); err != nil {
		return models.Stroke{}, DebitResult{}, err
	}

	strokeLength := StrokeLength(params.Points)

	debit, err := s.TryDebit(ctx, params.UserId, strokeLength)
	if err != nil {
		return models.Stroke{}, DebitResult{}, err
	}
	if !debit.Accepted {
		log.Printf("User %s has insufficient ink budget (%.1f < %.1f)", params.UserId, debit.NewRemaining, strokeLength)
		return models.Stroke{}, debit, nil
	}

	strokeUUID, err := uuid.NewV7()
	if err != nil {
		return models.Stroke{}, debit, err
	}

	createdAt, err := getTimeFromUUIDv7(strokeUUID.String())
	if err != nil {
		createdAt = time.Now()
	}

	stroke := models.Stroke{
		Id:        strokeUUID.String(),
		Points:    params.Points,
		Color:     params.Color,
		UserId:    params.UserId,
		CreatedAt: createdAt.UnixMilli(),
	}

	// The debit already stands whether or not persistence succeeds; there is
	// no compensating rollback.
	if err := s.Store.InsertStroke(ctx, stroke); err != nil {
		return models.Stroke{}, debit, err
	}

	// Cache write is a best-effort side effect off the hot path
	go func() {
		strokeBytes, err := json.Marshal(stroke)
		if err == nil {
			s.Cache.AddStroke(context.Background(), stroke.Id, stroke.CreatedAt, strokeBytes)
		}
	}()

	// Publish synchronously so one author's strokes reach every viewer in
	// acceptance order. Fanout is best-effort: a publish failure never rolls
	// back the committed stroke.
	msg := StrokeAddedMessage{Type: "stroke_added", Data: stroke}
	payload, err := json.Marshal(msg)
	if err == nil {
		env := FanoutEnvelope{Origin: params.OriginConnectionId, Payload: payload}
		envBytes, _ := json.Marshal(env)
		if err := s.Cache.Publish(ctx, CanvasChannel, envBytes); err != nil {
			log.Printf("Failed to publish stroke %s: %v", stroke.Id, err)
		}
	}

	return stroke, debit, nil
}

func getTimeFromUUIDv7(strokeId string) (time.Time, error) {
	id, err := uuid.FromString(strokeId)
	if err != nil {
		return time.Time{}, err
	}
	if id.Version() != uuid.V7 {
		return time.Time{}, fmt.Errorf("id %s is not a v7 uuid", strokeId)
	}
	ts, err := uuid.TimestampFromV7(id)
	if err != nil {
		return time.Time{}, err
	}
	return ts.Time()
}

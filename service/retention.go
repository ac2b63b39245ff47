package service

import (
	"context"
	"encoding/json"
	"errors"
)

// RetentionRequest asks the purge worker to remove strokes, either all of
// one author's or everything older than a cutoff. The drawing protocol
// itself never deletes anything; these requests come from lifecycle tooling.
type RetentionRequest struct {
	AuthorId string `json:"authorId,omitempty"`
	BeforeMs int64  `json:"beforeMs,omitempty"`
}

func (r RetentionRequest) Validate() error {
	if r.AuthorId == "" && r.BeforeMs <= 0 {
		return errors.New("retention request needs an author id or a cutoff")
	}
	if r.AuthorId != "" && r.BeforeMs > 0 {
		return errors.New("retention request cannot combine author id and cutoff")
	}
	return nil
}

// RequestRetention enqueues a purge request for the background worker.
func (s *Service) RequestRetention(ctx context.Context, req RetentionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	return s.MQ.Send(ctx, string(body))
}

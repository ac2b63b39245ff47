package service

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/jinukim/inkverse/models"
	"github.com/jinukim/inkverse/store"
)

const (
	// DailyLimit is the total line length (px) a user may draw per day.
	DailyLimit = 5000.0

	// A budget is restored once at least this much time has elapsed since
	// the last restore. A user inactive for three days gets one full budget
	// on their next contact, not three.
	resetInterval = 24 * time.Hour
)

const hexDigits = "0123456789ABCDEF"

func randomColor() string {
	color := make([]byte, 7)
	color[0] = '#'
	for i := 1; i < 7; i++ {
		color[i] = hexDigits[rand.Intn(16)]
	}
	return string(color)
}

// ResolveUser returns the ledger for userId, creating it with a fresh color
// and full budget on first contact, and applying the daily reset when due.
func (s *Service) ResolveUser(ctx context.Context, userId string) (models.UserLedger, error) {
	ledger, err := s.Store.GetLedger(ctx, userId)
	if err != nil {
		if !errors.Is(err, store.ErrItemNotFound) {
			return models.UserLedger{}, err
		}

		fresh := models.UserLedger{
			UserId:          userId,
			Color:           randomColor(),
			RemainingBudget: DailyLimit,
			LastReset:       time.Now().UnixMilli(),
		}
		// If a concurrent connection created the ledger first, the stored
		// record (with its color) wins.
		created, wasNew, err := s.Store.CreateLedger(ctx, fresh)
		if err != nil {
			return models.UserLedger{}, err
		}
		if wasNew {
			log.Printf("Created ledger for user %s with color %s", userId, created.Color)
		}
		return created, nil
	}

	now := time.Now()
	if now.UnixMilli()-ledger.LastReset >= resetInterval.Milliseconds() {
		updated, err := s.Store.ResetBudget(ctx, userId, DailyLimit, ledger.LastReset, now.UnixMilli())
		if err != nil {
			if errors.Is(err, store.ErrConditionFailed) {
				// Another connection reset the budget first; use its result
				return s.Store.GetLedger(ctx, userId)
			}
			return models.UserLedger{}, err
		}
		log.Printf("Restored ink budget for user %s", userId)
		return updated, nil
	}

	return ledger, nil
}

type DebitResult struct {
	Accepted     bool
	NewRemaining float64
}

// TryDebit atomically subtracts amount from the user's remaining budget if
// it covers the amount. The check-and-subtract is a single conditional
// decrement at the store, so concurrent debits for one user never overdraw
// even across server processes.
func (s *Service) TryDebit(ctx context.Context, userId string, amount float64) (DebitResult, error) {
	updated, err := s.Store.DebitBudget(ctx, userId, amount)
	if err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			current, err := s.Store.GetLedger(ctx, userId)
			if err != nil {
				return DebitResult{}, err
			}
			return DebitResult{Accepted: false, NewRemaining: current.RemainingBudget}, nil
		}
		return DebitResult{}, err
	}

	return DebitResult{Accepted: true, NewRemaining: updated.RemainingBudget}, nil
}

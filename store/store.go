package store

import (
	"context"
	"errors"

	"github.com/jinukim/inkverse/models"
)

type CanvasStore interface {
	// Ledger operations. CreateLedger is a conditional insert: if another
	// process created the ledger first, the existing record is returned and
	// created is false.
	GetLedger(ctx context.Context, userId string) (models.UserLedger, error)
	CreateLedger(ctx context.Context, ledger models.UserLedger) (models.UserLedger, bool, error)

	// ResetBudget restores the full budget only if the stored LastReset still
	// equals prevReset, so concurrent resolvers reset at most once. Returns
	// ErrConditionFailed when another caller already reset.
	ResetBudget(ctx context.Context, userId string, budget float64, prevReset int64, now int64) (models.UserLedger, error)

	// DebitBudget is a single conditional decrement: it subtracts amount only
	// if RemainingBudget >= amount, returning the updated ledger. Returns
	// ErrConditionFailed (and no mutation) when the budget is insufficient.
	DebitBudget(ctx context.Context, userId string, amount float64) (models.UserLedger, error)

	// Stroke operations.
	InsertStroke(ctx context.Context, stroke models.Stroke) error
	GetStrokes(ctx context.Context) ([]models.Stroke, error)

	// Retention. Executed only by the background purge worker, never by the
	// submission path.
	DeleteAuthorStrokes(ctx context.Context, userId string) error
	DeleteStrokesBefore(ctx context.Context, beforeMs int64) error
}

var (
	ErrItemNotFound    = errors.New("item does not exist")
	ErrConditionFailed = errors.New("condition not met")
)

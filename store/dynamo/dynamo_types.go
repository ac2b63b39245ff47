package dynamo

import (
	"github.com/jinukim/inkverse/models"
)

type dynamoLedger struct {
	PK              string  `dynamodbav:"PK"`
	SK              string  `dynamodbav:"SK"`
	UserId          string  `dynamodbav:"UserId"`
	Color           string  `dynamodbav:"Color"`
	RemainingBudget float64 `dynamodbav:"RemainingBudget"`
	LastReset       int64   `dynamodbav:"LastReset"`
}

func ledgerPK(userId string) string {
	return "USER#" + userId
}

const ledgerSK = "LEDGER"

// Map domain UserLedger -> Dynamo
func ledgerToDynamo(l models.UserLedger) dynamoLedger {
	return dynamoLedger{
		PK:              ledgerPK(l.UserId),
		SK:              ledgerSK,
		UserId:          l.UserId,
		Color:           l.Color,
		RemainingBudget: l.RemainingBudget,
		LastReset:       l.LastReset,
	}
}

// Map Dynamo -> domain UserLedger
func ledgerFromDynamo(dl dynamoLedger) models.UserLedger {
	return models.UserLedger{
		UserId:          dl.UserId,
		Color:           dl.Color,
		RemainingBudget: dl.RemainingBudget,
		LastReset:       dl.LastReset,
	}
}

// All strokes share one partition; the SK is the stroke's UUIDv7, so a
// forward query returns strokes in creation order.
const canvasPK = "CANVAS"

type dynamoStroke struct {
	PK        string    `dynamodbav:"PK"`
	SK        string    `dynamodbav:"SK"`
	Points    []float64 `dynamodbav:"Points"`
	Color     string    `dynamodbav:"Color"`
	UserId    string    `dynamodbav:"UserId"`
	CreatedAt int64     `dynamodbav:"CreatedAt"`
}

// Map domain Stroke -> Dynamo
func strokeToDynamo(s models.Stroke) dynamoStroke {
	return dynamoStroke{
		PK:        canvasPK,
		SK:        s.Id,
		Points:    s.Points,
		Color:     s.Color,
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
	}
}

// Map Dynamo -> domain Stroke
func strokeFromDynamo(ds dynamoStroke) models.Stroke {
	return models.Stroke{
		Id:        ds.SK,
		Points:    ds.Points,
		Color:     ds.Color,
		UserId:    ds.UserId,
		CreatedAt: ds.CreatedAt,
	}
}

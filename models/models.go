package models

// UserLedger is the persisted ink-budget record for one user. The color is
// assigned once at first contact and never reassigned, including on resets.
type UserLedger struct {
	UserId          string  `json:"userId"`
	Color           string  `json:"color"`
	RemainingBudget float64 `json:"remainingBudget"`
	LastReset       int64   `json:"lastReset"` // unix ms of the last budget restore
}

// Stroke is one committed pen-down-to-pen-up polyline on the shared canvas.
// Color and UserId always come from the author's ledger, never from the
// client payload.
type Stroke struct {
	Id        string    `json:"id"`
	Points    []float64 `json:"points"` // flattened [x1,y1,x2,y2,...]
	Color     string    `json:"color"`
	UserId    string    `json:"userId"`
	CreatedAt int64     `json:"createdAt"` // unix ms, server-assigned
}

package models

import "time"

// Expense is a single spending record. AmountCents avoids floating-point
// money arithmetic.
type Expense struct {
	SyncMeta
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Note        string    `json:"note,omitempty"`
}

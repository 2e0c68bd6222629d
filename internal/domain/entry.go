package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether an entry took money out of or put money into its owner's account.
type Direction string

// Entry directions.
const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Entry is an immutable transaction log record owned by one account.
type Entry struct {
	ID        int64           `json:"id"`
	AccountID int32           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"` // always positive
	FromLabel string          `json:"from_account"`
	ToLabel   string          `json:"to_account"`
	Direction Direction       `json:"direction"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateEntryParams is the input data to append a log entry.
type CreateEntryParams struct {
	AccountID int32
	Amount    decimal.Decimal
	FromLabel string
	ToLabel   string
	Direction Direction
}

// ErrEntryNotFound indicates that the log entry is not found.
var ErrEntryNotFound = errors.New("entry not found")

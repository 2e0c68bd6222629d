package domain

import (
	"errors"

	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates an amount that is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates an amount below 0.01.
	ErrNonPositiveAmount = moneypkg.ErrNonPositiveAmount
	// ErrTooManyDecimalPlaces indicates an amount with more than 2 fractional digits.
	ErrTooManyDecimalPlaces = moneypkg.ErrTooManyDecimalPlaces
	// ErrRecipientNotFound indicates that no local account has the recipient email.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrInsufficientFunds indicates that the debit would leave the sender at zero or below.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrExternalTransferRejected indicates that the remote institution refused the transfer.
	ErrExternalTransferRejected = errors.New("external transfer rejected")
	// ErrExternalTransferUnreachable indicates that the remote institution could not be reached in time.
	ErrExternalTransferUnreachable = errors.New("external institution unreachable")
)

// Solvent reports whether balance can be debited by amount.
//
// A debit that would leave exactly zero is rejected as well.
func Solvent(balance, amount decimal.Decimal) bool {
	return balance.Sub(amount).GreaterThan(decimal.Zero)
}

// TransferParams is the input data for the internal transfer transaction.
type TransferParams struct {
	SenderID    int32
	RecipientID int32
	Amount      decimal.Decimal
	FromLabel   string
	ToLabel     string
}

// TransferTxResult is the result of the internal transfer transaction.
type TransferTxResult struct {
	Sender         Account `json:"sender"`
	Recipient      Account `json:"recipient"`
	SenderEntry    Entry   `json:"sender_entry"`
	RecipientEntry Entry   `json:"recipient_entry"`
}

// LegParams is the input data for a single-sided ledger leg (external debit or inbound credit).
type LegParams struct {
	AccountID int32
	Amount    decimal.Decimal
	FromLabel string
	ToLabel   string
}

// LegResult is the result of a single-sided ledger leg.
type LegResult struct {
	Account Account `json:"account"`
	Entry   Entry   `json:"entry"`
}

// Receipt is the success value of a transfer returned to the caller.
type Receipt struct {
	Entry          Entry           `json:"entry"`
	Balance        decimal.Decimal `json:"balance"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// Package moneypkg validates transfer amounts and formats ledger labels.
package moneypkg

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a balance or amount may carry.
const Scale = 2

var (
	// ErrNonPositiveAmount indicates an amount below the minor unit.
	ErrNonPositiveAmount = errors.New("amount must be at least 0.01")
	// ErrTooManyDecimalPlaces indicates an amount with more than two fractional digits.
	ErrTooManyDecimalPlaces = errors.New("amount must have at most 2 decimal places")
)

// MinorUnit is the smallest transferable amount.
var MinorUnit = decimal.New(1, -Scale)

// Validate checks that amount is a positive cents-precision value.
//
// Trailing fractional zeros are ignored, so 200.100 passes and 200.111 does not.
func Validate(amount decimal.Decimal) error {
	if amount.LessThan(MinorUnit) {
		return ErrNonPositiveAmount
	}

	if !amount.Equal(amount.Truncate(Scale)) {
		return ErrTooManyDecimalPlaces
	}

	return nil
}

// Label describes an account holder as "Name <email>".
func Label(name, email string) string {
	return fmt.Sprintf("%s <%s>", name, email)
}

// ExternalLabel describes an account holder at another institution as "Name <email> at Bank".
func ExternalLabel(name, email, institution string) string {
	return fmt.Sprintf("%s <%s> at %s", name, email, institution)
}

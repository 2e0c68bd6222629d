// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailAlreadyExists indicates that an account with the given email already exists.
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Account holds the balance of one customer of the institution.
type Account struct {
	ID        int32           `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// FullName returns "First Last".
func (a Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Label returns the "First Last <email>" descriptor written into log entries.
func (a Account) Label() string {
	return moneypkg.Label(a.FullName(), a.Email)
}

// CreateAccountParams is the input data to open an account.
type CreateAccountParams struct {
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Balance   decimal.Decimal `json:"balance"`
}

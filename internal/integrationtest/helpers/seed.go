// Package helpers seeds the database for integration tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/go-petr/soseki-bank/internal/accountrepo"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/entryrepo"
	"github.com/go-petr/soseki-bank/pkg/dbpkg"
	"github.com/go-petr/soseki-bank/pkg/randompkg"
	"github.com/shopspring/decimal"
)

// SeedAccount creates an Account with a random holder and the given balance.
func SeedAccount(t *testing.T, db dbpkg.SQLInterface, balance string) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		Email:     randompkg.Email(),
		FirstName: randompkg.Name(),
		LastName:  randompkg.Name(),
		Balance:   decimal.RequireFromString(balance),
	}

	account, err := accountrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedAccountWith1000Balance creates Account with 1000 on balance.
func SeedAccountWith1000Balance(t *testing.T, db dbpkg.SQLInterface) domain.Account {
	t.Helper()

	return SeedAccount(t, db, "1000")
}

// SeedEntry creates a log Entry owned by accountID.
func SeedEntry(t *testing.T, db dbpkg.SQLInterface, accountID int32, direction domain.Direction) domain.Entry {
	t.Helper()

	arg := domain.CreateEntryParams{
		AccountID: accountID,
		Amount:    randompkg.MoneyAmountBetween(1, 100),
		FromLabel: randompkg.Email(),
		ToLabel:   randompkg.Email(),
		Direction: direction,
	}

	entry, err := entryrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("entryRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return entry
}

// SeedEntries creates count log entries owned by accountID.
func SeedEntries(t *testing.T, db dbpkg.SQLInterface, count int, accountID int32) []domain.Entry {
	t.Helper()

	entries := make([]domain.Entry, count)

	for i := range entries {
		direction := domain.DirectionCredit
		if i%2 == 0 {
			direction = domain.DirectionDebit
		}

		entries[i] = SeedEntry(t, db, accountID, direction)
	}

	return entries
}

// DecimalComparer makes go-cmp compare decimals by value.
func DecimalComparer(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

// RandomAccount returns an Account with random holder data that is not stored anywhere.
func RandomAccount(id int32, balance string) domain.Account {
	return domain.Account{
		ID:        id,
		Email:     randompkg.Email(),
		FirstName: randompkg.Name(),
		LastName:  randompkg.Name(),
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

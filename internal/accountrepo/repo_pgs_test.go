//go:build integration

package accountrepo_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-petr/soseki-bank/internal/accountrepo"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/integrationtest"
	"github.com/go-petr/soseki-bank/internal/integrationtest/helpers"
	"github.com/go-petr/soseki-bank/pkg/configpkg"
	"github.com/go-petr/soseki-bank/pkg/randompkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

var (
	dbDriver string
	dbSource string
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	os.Exit(m.Run())
}

func TestCreate(t *testing.T) {
	testCases := []struct {
		name    string
		wantArg func(tx *sql.Tx) domain.CreateAccountParams
		wantErr error
	}{
		{
			name: "OK",
			wantArg: func(tx *sql.Tx) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					Email:     randompkg.Email(),
					FirstName: randompkg.Name(),
					LastName:  randompkg.Name(),
					Balance:   decimal.NewFromInt(1000),
				}
			},
		},
		{
			name: "ConstraintViolation:accounts_email_key",
			wantArg: func(tx *sql.Tx) domain.CreateAccountParams {
				account := helpers.SeedAccountWith1000Balance(t, tx)
				return domain.CreateAccountParams{
					Email:     account.Email,
					FirstName: randompkg.Name(),
					LastName:  randompkg.Name(),
					Balance:   decimal.NewFromInt(1000),
				}
			},
			wantErr: domain.ErrEmailAlreadyExists,
		},
		{
			name: "ConstraintViolation:accounts_balance_check",
			wantArg: func(tx *sql.Tx) domain.CreateAccountParams {
				return domain.CreateAccountParams{
					Email:     randompkg.Email(),
					FirstName: randompkg.Name(),
					LastName:  randompkg.Name(),
					Balance:   decimal.NewFromInt(-1),
				}
			},
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Prepare test transaction and seed database
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			arg := tc.wantArg(tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			// Run test
			got, err := accountRepo.Create(context.Background(), arg)
			if err != nil {
				if err == tc.wantErr {
					return
				}
				t.Fatalf(`accountRepo.Create(context.Background(), %+v) returned error: %v`, arg, err)
			}

			if tc.wantErr != nil {
				t.Fatalf(`accountRepo.Create(context.Background(), %+v) returned no error, want %v`, arg, tc.wantErr)
			}

			want := domain.Account{
				Email:     arg.Email,
				FirstName: arg.FirstName,
				LastName:  arg.LastName,
				Balance:   arg.Balance,
				CreatedAt: time.Now(),
			}

			ignoreFields := cmpopts.IgnoreFields(domain.Account{}, "ID")
			compareCreatedAt := cmpopts.EquateApproxTime(time.Minute)
			if diff := cmp.Diff(want, got, ignoreFields, compareCreatedAt, cmp.Comparer(helpers.DecimalComparer)); diff != "" {
				t.Errorf(`accountRepo.Create(context.Background(), %+v) returned unexpected difference (-want +got):\n%s"`,
					arg, diff)
			}

			if got.ID == 0 {
				t.Error("got.ID = 0, want non-zero")
			}
		})
	}
}

func TestGet(t *testing.T) {
	testCases := []struct {
		name        string
		wantAccount func(tx *sql.Tx) domain.Account
		wantErr     error
	}{
		{
			name: "OK",
			wantAccount: func(tx *sql.Tx) domain.Account {
				return helpers.SeedAccountWith1000Balance(t, tx)
			},
		},
		{
			name: "ErrAccountNotFound",
			wantAccount: func(tx *sql.Tx) domain.Account {
				return domain.Account{ID: -1, Email: "nobody@soseki.test"}
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Prepare test transaction and seed database
			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			want := tc.wantAccount(tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			// Run test
			byID, err := accountRepo.Get(context.Background(), want.ID)
			if err != tc.wantErr {
				t.Fatalf(`accountRepo.Get(context.Background(), %v) returned error: %v, want %v`, want.ID, err, tc.wantErr)
			}

			byEmail, err := accountRepo.GetByEmail(context.Background(), want.Email)
			if err != tc.wantErr {
				t.Fatalf(`accountRepo.GetByEmail(context.Background(), %v) returned error: %v, want %v`, want.Email, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			compareCreatedAt := cmpopts.EquateApproxTime(time.Second)
			for _, got := range []domain.Account{byID, byEmail} {
				if diff := cmp.Diff(want, got, compareCreatedAt, cmp.Comparer(helpers.DecimalComparer)); diff != "" {
					t.Errorf(`accountRepo returned unexpected difference (-want +got):\n%s"`, diff)
				}
			}
		})
	}
}

func TestAddBalance(t *testing.T) {
	testCases := []struct {
		name        string
		amount      string
		wantBalance string
		wantErr     error
	}{
		{name: "Credit", amount: "100.50", wantBalance: "1100.50"},
		{name: "Debit", amount: "-999.99", wantBalance: "0.01"},
		{name: "ConstraintViolation:accounts_balance_check", amount: "-1000.01", wantErr: domain.ErrInsufficientFunds},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := integrationtest.SetupTX(t, dbDriver, dbSource)
			account := helpers.SeedAccountWith1000Balance(t, tx)
			accountRepo := accountrepo.NewRepoPGS(tx)

			got, err := accountRepo.AddBalance(context.Background(), decimal.RequireFromString(tc.amount), account.ID)
			if err != tc.wantErr {
				t.Fatalf(`accountRepo.AddBalance(context.Background(), %v, %v) returned error: %v, want %v`,
					tc.amount, account.ID, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			if !got.Balance.Equal(decimal.RequireFromString(tc.wantBalance)) {
				t.Errorf("got.Balance = %v, want %v", got.Balance, tc.wantBalance)
			}
		})
	}
}

func TestAddBalanceAccountNotFound(t *testing.T) {
	tx := integrationtest.SetupTX(t, dbDriver, dbSource)
	accountRepo := accountrepo.NewRepoPGS(tx)

	if _, err := accountRepo.AddBalance(context.Background(), decimal.NewFromInt(1), -100500); err != domain.ErrAccountNotFound {
		t.Errorf(`accountRepo.AddBalance(context.Background(), 1, -100500) returned error: %v, want %v`, err, domain.ErrAccountNotFound)
	}
}

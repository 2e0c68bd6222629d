//go:build integration

package transferrepo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/go-petr/soseki-bank/internal/accountrepo"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/entryrepo"
	"github.com/go-petr/soseki-bank/internal/integrationtest"
	"github.com/go-petr/soseki-bank/internal/integrationtest/helpers"
	"github.com/go-petr/soseki-bank/internal/middleware"
	"github.com/go-petr/soseki-bank/internal/transferrepo"
	"github.com/go-petr/soseki-bank/pkg/configpkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
)

var (
	dbDriver string
	dbSource string
	ctx      context.Context
)

func TestMain(m *testing.M) {
	config, err := configpkg.Load("../../configs")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	dbDriver = config.DBDriver
	dbSource = config.DBSource

	logger := middleware.CreateLogger(config)
	ctx = logger.WithContext(context.Background())

	os.Exit(m.Run())
}

func params(sender, recipient domain.Account, amount string) domain.TransferParams {
	return domain.TransferParams{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      decimal.RequireFromString(amount),
		FromLabel:   sender.Label(),
		ToLabel:     recipient.Label(),
	}
}

func requireBalance(t *testing.T, accounts *accountrepo.RepoPGS, id int32, want string) {
	t.Helper()

	a, err := accounts.Get(ctx, id)
	if err != nil {
		t.Fatalf("accountRepo.Get(ctx, %v) returned error: %v", id, err)
	}

	if !a.Balance.Equal(decimal.RequireFromString(want)) {
		t.Errorf("account %v balance = %v, want %v", id, a.Balance, want)
	}
}

func TestTransfer(t *testing.T) {
	testCases := []struct {
		name          string
		amount        string
		wantErr       error
		wantSender    string
		wantRecipient string
	}{
		{name: "OK", amount: "200", wantSender: "800", wantRecipient: "1200"},
		{name: "LeavesOneCent", amount: "999.99", wantSender: "0.01", wantRecipient: "1999.99"},
		{name: "ExactBalance", amount: "1000", wantErr: domain.ErrInsufficientFunds, wantSender: "1000", wantRecipient: "1000"},
		{name: "Overdraft", amount: "20000", wantErr: domain.ErrInsufficientFunds, wantSender: "1000", wantRecipient: "1000"},
	}

	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)
	accountRepo := accountrepo.NewRepoPGS(db)
	entryRepo := entryrepo.NewRepoPGS(db)

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			sender := helpers.SeedAccountWith1000Balance(t, db)
			recipient := helpers.SeedAccountWith1000Balance(t, db)
			arg := params(sender, recipient, tc.amount)

			got, err := transferRepo.Transfer(ctx, arg)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Errorf("transferRepo.Transfer(ctx, %+v) returned error: %v, want %v", arg, err, tc.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("transferRepo.Transfer(ctx, %+v) returned error: %v", arg, err)
				}

				wantSenderEntry := domain.Entry{
					AccountID: sender.ID,
					Amount:    arg.Amount,
					FromLabel: sender.Label(),
					ToLabel:   recipient.Label(),
					Direction: domain.DirectionDebit,
				}
				wantRecipientEntry := wantSenderEntry
				wantRecipientEntry.AccountID = recipient.ID
				wantRecipientEntry.Direction = domain.DirectionCredit

				ignoreFields := cmpopts.IgnoreFields(domain.Entry{}, "ID", "CreatedAt")
				if diff := cmp.Diff(wantSenderEntry, got.SenderEntry, ignoreFields, cmp.Comparer(helpers.DecimalComparer)); diff != "" {
					t.Errorf("sender entry unexpected difference (-want +got):\n%s", diff)
				}

				if diff := cmp.Diff(wantRecipientEntry, got.RecipientEntry, ignoreFields, cmp.Comparer(helpers.DecimalComparer)); diff != "" {
					t.Errorf("recipient entry unexpected difference (-want +got):\n%s", diff)
				}

				if !got.Sender.Balance.Equal(decimal.RequireFromString(tc.wantSender)) {
					t.Errorf("got.Sender.Balance = %v, want %v", got.Sender.Balance, tc.wantSender)
				}
			}

			requireBalance(t, accountRepo, sender.ID, tc.wantSender)
			requireBalance(t, accountRepo, recipient.ID, tc.wantRecipient)

			entries, err := entryRepo.List(ctx, sender.ID)
			if err != nil {
				t.Fatalf("entryRepo.List(ctx, %v) returned error: %v", sender.ID, err)
			}

			wantEntries := 1
			if tc.wantErr != nil {
				wantEntries = 0
			}

			if len(entries) != wantEntries {
				t.Errorf("len(entries) = %v, want %v", len(entries), wantEntries)
			}
		})
	}
}

func TestTransferAccountNotFound(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	sender := helpers.SeedAccountWith1000Balance(t, db)
	arg := params(sender, domain.Account{ID: -100500}, "10")

	if _, err := transferRepo.Transfer(ctx, arg); err != domain.ErrAccountNotFound {
		t.Errorf("transferRepo.Transfer(ctx, %+v) returned error: %v, want %v", arg, err, domain.ErrAccountNotFound)
	}

	requireBalance(t, accountrepo.NewRepoPGS(db), sender.ID, "1000")
}

func TestTransferConcurrentOverdraw(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	sender := helpers.SeedAccountWith1000Balance(t, db)
	recipient := helpers.SeedAccount(t, db, "0")
	arg := params(sender, recipient, "600")

	n := 10
	errs := make(chan error)

	for i := 0; i < n; i++ {
		go func() {
			_, err := transferRepo.Transfer(ctx, arg)
			errs <- err
		}()
	}

	succeeded := 0

	for i := 0; i < n; i++ {
		err := <-errs
		switch err {
		case nil:
			succeeded++
		case domain.ErrInsufficientFunds:
		default:
			t.Errorf("transferRepo.Transfer(ctx, %+v) returned unexpected error: %v", arg, err)
		}
	}

	if succeeded != 1 {
		t.Errorf("succeeded = %v, want 1", succeeded)
	}

	accountRepo := accountrepo.NewRepoPGS(db)
	requireBalance(t, accountRepo, sender.ID, "400")
	requireBalance(t, accountRepo, recipient.ID, "600")
}

func TestTransferConcurrentOpposing(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)

	account1 := helpers.SeedAccountWith1000Balance(t, db)
	account2 := helpers.SeedAccountWith1000Balance(t, db)

	// run n concurrent transfer transactions in both directions
	n := 20
	errs := make(chan error)

	for i := 0; i < n; i++ {
		arg := params(account1, account2, "10")
		if i%2 == 1 {
			arg = params(account2, account1, "10")
		}

		go func() {
			_, err := transferRepo.Transfer(ctx, arg)
			errs <- err
		}()
	}

	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("transferRepo.Transfer(ctx, ...) returned error: %v", err)
		}
	}

	accountRepo := accountrepo.NewRepoPGS(db)
	requireBalance(t, accountRepo, account1.ID, "1000")
	requireBalance(t, accountRepo, account2.ID, "1000")
}

func TestDebitAndCredit(t *testing.T) {
	db := integrationtest.SetupDB(t, dbDriver, dbSource)
	transferRepo := transferrepo.NewRepoPGS(db)
	accountRepo := accountrepo.NewRepoPGS(db)

	account := helpers.SeedAccountWith1000Balance(t, db)
	remote := "Jane Roe <jane@other.test> at Other Bank"

	debit := domain.LegParams{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("250.50"),
		FromLabel: account.Label(),
		ToLabel:   remote,
	}

	got, err := transferRepo.Debit(ctx, debit)
	if err != nil {
		t.Fatalf("transferRepo.Debit(ctx, %+v) returned error: %v", debit, err)
	}

	if got.Entry.Direction != domain.DirectionDebit || got.Entry.ToLabel != remote {
		t.Errorf("got.Entry = %+v, want DEBIT to %q", got.Entry, remote)
	}

	requireBalance(t, accountRepo, account.ID, "749.50")

	overdraft := debit
	overdraft.Amount = decimal.RequireFromString("749.50")

	if _, err := transferRepo.Debit(ctx, overdraft); err != domain.ErrInsufficientFunds {
		t.Errorf("transferRepo.Debit(ctx, %+v) returned error: %v, want %v", overdraft, err, domain.ErrInsufficientFunds)
	}

	credit := domain.LegParams{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(50),
		FromLabel: remote,
		ToLabel:   account.Label(),
	}

	got, err = transferRepo.Credit(ctx, credit)
	if err != nil {
		t.Fatalf("transferRepo.Credit(ctx, %+v) returned error: %v", credit, err)
	}

	if got.Entry.Direction != domain.DirectionCredit {
		t.Errorf("got.Entry.Direction = %v, want %v", got.Entry.Direction, domain.DirectionCredit)
	}

	requireBalance(t, accountRepo, account.ID, "799.50")

	unknown := credit
	unknown.AccountID = -100500

	if _, err := transferRepo.Credit(ctx, unknown); err != domain.ErrAccountNotFound {
		t.Errorf("transferRepo.Credit(ctx, %+v) returned error: %v, want %v", unknown, err, domain.ErrAccountNotFound)
	}
}

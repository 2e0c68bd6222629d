// Package memstore is an in-memory Ledger Store.
//
// It implements the same repository contracts as the Postgres repos and enforces the
// same constraints: unique email, non-negative balances and positive entry amounts.
// Every account carries its own mutex; operations touching two accounts acquire them in
// ascending id order.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type record struct {
	mu      sync.Mutex
	account domain.Account
}

// Store keeps accounts and the transaction log in memory.
type Store struct {
	mu            sync.RWMutex // guards accounts, byEmail and nextAccountID
	accounts      map[int32]*record
	byEmail       map[string]int32
	nextAccountID int32

	logMu       sync.RWMutex // guards entries and nextEntryID
	entries     []domain.Entry
	nextEntryID int64

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[int32]*record),
		byEmail:  make(map[string]int32),
		now:      time.Now,
	}
}

// Create opens an account and then returns it.
func (s *Store) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if arg.Balance.IsNegative() {
		return domain.Account{}, domain.ErrInsufficientFunds
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[arg.Email]; ok {
		zerolog.Ctx(ctx).Info().Str("email", arg.Email).Msg("duplicate email")
		return domain.Account{}, domain.ErrEmailAlreadyExists
	}

	s.nextAccountID++

	a := domain.Account{
		ID:        s.nextAccountID,
		Email:     arg.Email,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		Balance:   arg.Balance.Round(moneypkg.Scale),
		CreatedAt: s.now().UTC(),
	}

	s.accounts[a.ID] = &record{account: a}
	s.byEmail[a.Email] = a.ID

	return a, nil
}

// Get returns the account with the given id.
func (s *Store) Get(_ context.Context, id int32) (domain.Account, error) {
	s.mu.RLock()
	rec, ok := s.accounts[id]
	s.mu.RUnlock()

	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return rec.account, nil
}

// GetByEmail returns the account with the given email.
func (s *Store) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return s.Get(ctx, id)
}

// lock acquires the records of ids in ascending order and returns them keyed by id.
func (s *Store) lock(ids ...int32) (map[int32]*record, func(), error) {
	sorted := append([]int32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s.mu.RLock()
	recs := make(map[int32]*record, len(sorted))
	order := make([]*record, 0, len(sorted))

	for _, id := range sorted {
		if _, seen := recs[id]; seen {
			continue
		}

		rec, ok := s.accounts[id]
		if !ok {
			s.mu.RUnlock()
			return nil, nil, domain.ErrAccountNotFound
		}

		recs[id] = rec
		order = append(order, rec)
	}
	s.mu.RUnlock()

	for _, rec := range order {
		rec.mu.Lock()
	}

	unlock := func() {
		for i := len(order) - 1; i >= 0; i-- {
			order[i].mu.Unlock()
		}
	}

	return recs, unlock, nil
}

// appendEntries writes entries to the log as one unit and returns them with ids and timestamps.
func (s *Store) appendEntries(args ...domain.CreateEntryParams) []domain.Entry {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	createdAt := s.now().UTC()
	if n := len(s.entries); n > 0 && createdAt.Before(s.entries[n-1].CreatedAt) {
		createdAt = s.entries[n-1].CreatedAt
	}

	out := make([]domain.Entry, 0, len(args))

	for _, arg := range args {
		s.nextEntryID++

		e := domain.Entry{
			ID:        s.nextEntryID,
			AccountID: arg.AccountID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: arg.Direction,
			CreatedAt: createdAt,
		}

		s.entries = append(s.entries, e)
		out = append(out, e)
	}

	return out
}

// cents rounds amount to the stored scale and refuses what rounds to zero or below.
func cents(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(moneypkg.Scale)
	if !amount.IsPositive() {
		return decimal.Zero, domain.ErrNonPositiveAmount
	}

	return amount, nil
}

// Transfer moves money between two local accounts and writes both log entries.
func (s *Store) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferTxResult, error) {
	amount, err := cents(arg.Amount)
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	arg.Amount = amount

	recs, unlock, err := s.lock(arg.SenderID, arg.RecipientID)
	if err != nil {
		return domain.TransferTxResult{}, err
	}
	defer unlock()

	sender, recipient := recs[arg.SenderID], recs[arg.RecipientID]

	if !domain.Solvent(sender.account.Balance, arg.Amount) {
		zerolog.Ctx(ctx).Info().Int32("account_id", arg.SenderID).Msg("insufficient funds at commit")
		return domain.TransferTxResult{}, domain.ErrInsufficientFunds
	}

	sender.account.Balance = sender.account.Balance.Sub(arg.Amount)
	recipient.account.Balance = recipient.account.Balance.Add(arg.Amount)

	entries := s.appendEntries(
		domain.CreateEntryParams{
			AccountID: arg.SenderID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionDebit,
		},
		domain.CreateEntryParams{
			AccountID: arg.RecipientID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionCredit,
		},
	)

	return domain.TransferTxResult{
		Sender:         sender.account,
		Recipient:      recipient.account,
		SenderEntry:    entries[0],
		RecipientEntry: entries[1],
	}, nil
}

// Debit takes money out of one account after re-checking solvency and writes a DEBIT entry.
func (s *Store) Debit(ctx context.Context, arg domain.LegParams) (domain.LegResult, error) {
	amount, err := cents(arg.Amount)
	if err != nil {
		return domain.LegResult{}, err
	}

	arg.Amount = amount

	recs, unlock, err := s.lock(arg.AccountID)
	if err != nil {
		return domain.LegResult{}, err
	}
	defer unlock()

	rec := recs[arg.AccountID]

	if !domain.Solvent(rec.account.Balance, arg.Amount) {
		zerolog.Ctx(ctx).Info().Int32("account_id", arg.AccountID).Msg("insufficient funds at commit")
		return domain.LegResult{}, domain.ErrInsufficientFunds
	}

	rec.account.Balance = rec.account.Balance.Sub(arg.Amount)

	entries := s.appendEntries(domain.CreateEntryParams{
		AccountID: arg.AccountID,
		Amount:    arg.Amount,
		FromLabel: arg.FromLabel,
		ToLabel:   arg.ToLabel,
		Direction: domain.DirectionDebit,
	})

	return domain.LegResult{Account: rec.account, Entry: entries[0]}, nil
}

// Credit puts money into one account and writes a CREDIT entry.
func (s *Store) Credit(_ context.Context, arg domain.LegParams) (domain.LegResult, error) {
	amount, err := cents(arg.Amount)
	if err != nil {
		return domain.LegResult{}, err
	}

	arg.Amount = amount

	recs, unlock, err := s.lock(arg.AccountID)
	if err != nil {
		return domain.LegResult{}, err
	}
	defer unlock()

	rec := recs[arg.AccountID]
	rec.account.Balance = rec.account.Balance.Add(arg.Amount)

	entries := s.appendEntries(domain.CreateEntryParams{
		AccountID: arg.AccountID,
		Amount:    arg.Amount,
		FromLabel: arg.FromLabel,
		ToLabel:   arg.ToLabel,
		Direction: domain.DirectionCredit,
	})

	return domain.LegResult{Account: rec.account, Entry: entries[0]}, nil
}

// List returns every entry owned by accountID, newest first.
func (s *Store) List(_ context.Context, accountID int32) ([]domain.Entry, error) {
	s.logMu.RLock()
	defer s.logMu.RUnlock()

	items := []domain.Entry{}

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID == accountID {
			items = append(items, s.entries[i])
		}
	}

	return items, nil
}

// Balance returns the current balance of the account, zero for unknown accounts.
func (s *Store) Balance(ctx context.Context, id int32) decimal.Decimal {
	a, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero
	}

	return a.Balance
}

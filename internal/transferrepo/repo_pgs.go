// Package transferrepo manages the transactional ledger legs stored in Postgres.
package transferrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/soseki-bank/internal/accountrepo"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/entryrepo"
	"github.com/go-petr/soseki-bank/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transfer repository layer logic.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns transfer RepoPGS wiht connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		conn: db,
	}
}

// execTx runs fn inside a database transaction and commits when fn succeeds.
func (r *RepoPGS) execTx(ctx context.Context, fn func(*accountrepo.RepoPGS, *entryrepo.RepoPGS) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(accountrepo.NewRepoPGS(tx), entryrepo.NewRepoPGS(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// Transfer moves money between two local accounts.
//
// Both account rows are locked in ascending id order, solvency is checked against the
// locked balance, then balances and both log entries are written in one transaction.
func (r *RepoPGS) Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferTxResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.TransferTxResult

	err := r.execTx(ctx, func(accounts *accountrepo.RepoPGS, entries *entryrepo.RepoPGS) error {
		// To avoid deadlocks lock rows in consistent id order
		first, second := arg.SenderID, arg.RecipientID
		if second < first {
			first, second = second, first
		}

		locked := make(map[int32]domain.Account, 2)

		for _, id := range []int32{first, second} {
			if _, ok := locked[id]; ok {
				continue
			}

			a, err := accounts.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			locked[id] = a
		}

		if !domain.Solvent(locked[arg.SenderID].Balance, arg.Amount) {
			l.Info().Int32("account_id", arg.SenderID).Msg("insufficient funds at commit")
			return domain.ErrInsufficientFunds
		}

		var err error

		if arg.SenderID < arg.RecipientID {
			result.Sender, err = accounts.AddBalance(ctx, arg.Amount.Neg(), arg.SenderID)
			if err != nil {
				return err
			}

			result.Recipient, err = accounts.AddBalance(ctx, arg.Amount, arg.RecipientID)
		} else {
			result.Recipient, err = accounts.AddBalance(ctx, arg.Amount, arg.RecipientID)
			if err != nil {
				return err
			}

			result.Sender, err = accounts.AddBalance(ctx, arg.Amount.Neg(), arg.SenderID)
		}

		if err != nil {
			return err
		}

		if arg.SenderID == arg.RecipientID {
			result.Recipient = result.Sender
		}

		result.SenderEntry, err = entries.Create(ctx, domain.CreateEntryParams{
			AccountID: arg.SenderID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionDebit,
		})
		if err != nil {
			return err
		}

		result.RecipientEntry, err = entries.Create(ctx, domain.CreateEntryParams{
			AccountID: arg.RecipientID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionCredit,
		})

		return err
	})
	if err != nil {
		return domain.TransferTxResult{}, err
	}

	return result, nil
}

// Debit takes money out of a single account after re-checking solvency under a row lock
// and appends the matching DEBIT entry.
func (r *RepoPGS) Debit(ctx context.Context, arg domain.LegParams) (domain.LegResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.LegResult

	err := r.execTx(ctx, func(accounts *accountrepo.RepoPGS, entries *entryrepo.RepoPGS) error {
		a, err := accounts.GetForUpdate(ctx, arg.AccountID)
		if err != nil {
			return err
		}

		if !domain.Solvent(a.Balance, arg.Amount) {
			l.Info().Int32("account_id", arg.AccountID).Msg("insufficient funds at commit")
			return domain.ErrInsufficientFunds
		}

		result.Account, err = accounts.AddBalance(ctx, arg.Amount.Neg(), arg.AccountID)
		if err != nil {
			return err
		}

		result.Entry, err = entries.Create(ctx, domain.CreateEntryParams{
			AccountID: arg.AccountID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionDebit,
		})

		return err
	})
	if err != nil {
		return domain.LegResult{}, err
	}

	return result, nil
}

// Credit puts money into a single account and appends the matching CREDIT entry.
func (r *RepoPGS) Credit(ctx context.Context, arg domain.LegParams) (domain.LegResult, error) {
	var result domain.LegResult

	err := r.execTx(ctx, func(accounts *accountrepo.RepoPGS, entries *entryrepo.RepoPGS) error {
		var err error

		result.Account, err = accounts.AddBalance(ctx, arg.Amount, arg.AccountID)
		if err != nil {
			return err
		}

		result.Entry, err = entries.Create(ctx, domain.CreateEntryParams{
			AccountID: arg.AccountID,
			Amount:    arg.Amount,
			FromLabel: arg.FromLabel,
			ToLabel:   arg.ToLabel,
			Direction: domain.DirectionCredit,
		})

		return err
	})
	if err != nil {
		return domain.LegResult{}, err
	}

	return result, nil
}

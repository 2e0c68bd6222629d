// Package transferservice manages business logic layer of internal transfers.
package transferservice

import (
	"context"

	"github.com/go-petr/soseki-bank/internal/accountdelivery"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/eventpub"
	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	Transfer(ctx context.Context, arg domain.TransferParams) (domain.TransferTxResult, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo           Repo
	accountService accountdelivery.Service
	publisher      eventpub.Publisher
}

// New return transfer service struct to manage transfer bussines logic.
func New(tr Repo, as accountdelivery.Service, p eventpub.Publisher) *Service {
	return &Service{
		repo:           tr,
		accountService: as,
		publisher:      p,
	}
}

// Transfer moves amount from the sender to the local account registered under recipientEmail.
//
// The solvency check here only rejects early; the repository re-checks it under lock.
func (s *Service) Transfer(ctx context.Context, senderID int32, recipientEmail string, amount decimal.Decimal) (domain.Receipt, error) {
	l := zerolog.Ctx(ctx)

	if err := moneypkg.Validate(amount); err != nil {
		l.Info().Err(err).Str("amount", amount.String()).Send()
		return domain.Receipt{}, err
	}

	sender, err := s.accountService.Get(ctx, senderID)
	if err != nil {
		return domain.Receipt{}, err
	}

	recipient, err := s.accountService.GetByEmail(ctx, recipientEmail)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			l.Info().Str("recipient_email", recipientEmail).Msg("recipient not found")
			return domain.Receipt{}, domain.ErrRecipientNotFound
		}

		return domain.Receipt{}, err
	}

	if !domain.Solvent(sender.Balance, amount) {
		l.Info().Int32("account_id", sender.ID).Msg("insufficient funds")
		return domain.Receipt{}, domain.ErrInsufficientFunds
	}

	result, err := s.repo.Transfer(ctx, domain.TransferParams{
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      amount,
		FromLabel:   sender.Label(),
		ToLabel:     recipient.Label(),
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	eventpub.Emit(ctx, s.publisher, domain.LedgerEvent{
		Type:         domain.EventInternalTransferCompleted,
		AccountID:    sender.ID,
		EntryIDs:     []int64{result.SenderEntry.ID, result.RecipientEntry.ID},
		Amount:       amount,
		Counterparty: recipient.Label(),
	})

	return domain.Receipt{
		Entry:   result.SenderEntry,
		Balance: result.Sender.Balance,
	}, nil
}

// Package externalservice sends money from a local account to an account at another institution.
package externalservice

import (
	"context"
	"errors"

	"github.com/go-petr/soseki-bank/internal/accountdelivery"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/eventpub"
	"github.com/go-petr/soseki-bank/internal/settlementclient"
	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by external transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package externalservice
type Repo interface {
	Debit(ctx context.Context, arg domain.LegParams) (domain.LegResult, error)
}

// Client delivers a settlement request to the remote institution.
type Client interface {
	Send(ctx context.Context, req domain.SettlementRequest) (domain.SettlementAck, error)
}

// Service facilitates external transfer service layer logic.
type Service struct {
	repo            Repo
	accountService  accountdelivery.Service
	client          Client
	publisher       eventpub.Publisher
	institutionName string
}

// New returns external transfer service. institutionName is sent as the sender's institution.
func New(r Repo, as accountdelivery.Service, c Client, p eventpub.Publisher, institutionName string) *Service {
	return &Service{
		repo:            r,
		accountService:  as,
		client:          c,
		publisher:       p,
		institutionName: institutionName,
	}
}

// Send validates the transfer, asks the remote institution to credit recipientEmail and on
// acknowledgment debits the sender.
//
// No local lock is held during the remote call. Nothing changes locally unless the remote
// side confirms the credit.
func (s *Service) Send(ctx context.Context, senderID int32, recipientEmail string, amount decimal.Decimal) (domain.Receipt, error) {
	l := zerolog.Ctx(ctx)

	if err := moneypkg.Validate(amount); err != nil {
		l.Info().Err(err).Str("amount", amount.String()).Send()
		return domain.Receipt{}, err
	}

	sender, err := s.accountService.Get(ctx, senderID)
	if err != nil {
		return domain.Receipt{}, err
	}

	if !domain.Solvent(sender.Balance, amount) {
		l.Info().Int32("account_id", sender.ID).Msg("insufficient funds")
		return domain.Receipt{}, domain.ErrInsufficientFunds
	}

	req := domain.SettlementRequest{
		InstitutionName: s.institutionName,
		SenderName:      sender.FullName(),
		SenderEmail:     sender.Email,
		RecipientEmail:  recipientEmail,
		Amount:          amount.StringFixed(moneypkg.Scale),
		IdempotencyKey:  uuid.NewString(),
	}

	ack, err := s.client.Send(ctx, req)
	if err != nil {
		if mayHaveSettled(err) {
			s.flagUnconfirmed(ctx, sender, req, err)
		}

		return domain.Receipt{}, err
	}

	counterparty := moneypkg.ExternalLabel(ack.RecipientName, ack.RecipientEmail, ack.Bank)

	result, err := s.repo.Debit(ctx, domain.LegParams{
		AccountID: sender.ID,
		Amount:    amount,
		FromLabel: sender.Label(),
		ToLabel:   counterparty,
	})
	if err != nil {
		// The remote institution already credited the recipient.
		l.Error().Err(err).
			Int32("account_id", sender.ID).
			Str("idempotency_key", req.IdempotencyKey).
			Str("counterparty", counterparty).
			Msg("remote credit confirmed but local debit failed")
		s.flagUnconfirmed(ctx, sender, req, err)

		return domain.Receipt{}, err
	}

	eventpub.Emit(ctx, s.publisher, domain.LedgerEvent{
		Type:           domain.EventOutboundSettled,
		AccountID:      sender.ID,
		EntryIDs:       []int64{result.Entry.ID},
		Amount:         amount,
		Counterparty:   counterparty,
		IdempotencyKey: req.IdempotencyKey,
	})

	return domain.Receipt{
		Entry:          result.Entry,
		Balance:        result.Account.Balance,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

// mayHaveSettled reports whether the remote side could have credited the recipient despite err.
func mayHaveSettled(err error) bool {
	return errors.Is(err, settlementclient.ErrUnconfirmedAck) ||
		errors.Is(err, settlementclient.ErrTimeout) ||
		errors.Is(err, settlementclient.ErrServerError)
}

// flagUnconfirmed records a settlement whose outcome may differ between the two ledgers.
func (s *Service) flagUnconfirmed(ctx context.Context, sender domain.Account, req domain.SettlementRequest, cause error) {
	zerolog.Ctx(ctx).Warn().Err(cause).
		Int32("account_id", sender.ID).
		Str("idempotency_key", req.IdempotencyKey).
		Msg("settlement needs reconciliation")

	amount, _ := decimal.NewFromString(req.Amount)

	eventpub.Emit(ctx, s.publisher, domain.LedgerEvent{
		Type:           domain.EventOutboundUnconfirmed,
		AccountID:      sender.ID,
		Amount:         amount,
		Counterparty:   req.RecipientEmail,
		IdempotencyKey: req.IdempotencyKey,
		Reason:         cause.Error(),
	})
}

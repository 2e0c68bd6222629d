// Package settlementservice credits local accounts on behalf of remote institutions.
package settlementservice

import (
	"context"
	"strings"

	"github.com/go-petr/soseki-bank/internal/accountdelivery"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/eventpub"
	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by settlement service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package settlementservice
type Repo interface {
	Credit(ctx context.Context, arg domain.LegParams) (domain.LegResult, error)
}

// Service facilitates inbound settlement logic.
type Service struct {
	repo            Repo
	accountService  accountdelivery.Service
	publisher       eventpub.Publisher
	institutionName string
}

// New returns settlement service. institutionName is reported back in acknowledgments.
func New(r Repo, as accountdelivery.Service, p eventpub.Publisher, institutionName string) *Service {
	return &Service{
		repo:            r,
		accountService:  as,
		publisher:       p,
		institutionName: institutionName,
	}
}

// Receive credits the local recipient named in req and acknowledges it.
//
// The amount is not run through the transfer amount rules and requests are not
// deduplicated; the store still refuses non-positive credits.
func (s *Service) Receive(ctx context.Context, req domain.SettlementRequest) (domain.SettlementAck, error) {
	l := zerolog.Ctx(ctx).With().
		Str("institution", req.InstitutionName).
		Str("idempotency_key", req.IdempotencyKey).
		Logger()

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || req.RecipientEmail == "" {
		l.Info().Err(err).Str("amount", req.Amount).Msg("malformed settlement request")
		return domain.SettlementAck{}, domain.ErrMalformedRequest
	}

	recipient, err := s.accountService.GetByEmail(ctx, req.RecipientEmail)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			l.Info().Str("recipient_email", req.RecipientEmail).Msg("unknown recipient")
			return domain.SettlementAck{}, domain.ErrUnknownRecipient
		}

		return domain.SettlementAck{}, err
	}

	counterparty := moneypkg.ExternalLabel(req.SenderName, req.SenderEmail, req.InstitutionName)

	result, err := s.repo.Credit(ctx, domain.LegParams{
		AccountID: recipient.ID,
		Amount:    amount,
		FromLabel: counterparty,
		ToLabel:   recipient.Label(),
	})
	if err != nil {
		return domain.SettlementAck{}, err
	}

	l.Info().Int32("account_id", recipient.ID).Str("amount", amount.String()).Msg("settlement credited")

	eventpub.Emit(ctx, s.publisher, domain.LedgerEvent{
		Type:           domain.EventInboundSettled,
		AccountID:      recipient.ID,
		EntryIDs:       []int64{result.Entry.ID},
		Amount:         amount,
		Counterparty:   counterparty,
		IdempotencyKey: req.IdempotencyKey,
	})

	return domain.SettlementAck{
		RecipientName:  recipient.FullName(),
		RecipientEmail: recipient.Email,
		Bank:           s.institutionName,
	}, nil
}

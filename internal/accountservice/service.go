// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo           Repo
	openingBalance decimal.Decimal
}

// New returns account service struct to manage account bussines logic.
//
// Every account it opens starts with openingBalance.
func New(ar Repo, openingBalance decimal.Decimal) *Service {
	return &Service{
		repo:           ar,
		openingBalance: openingBalance,
	}
}

// Create opens an account for the given holder and returns it.
func (s *Service) Create(ctx context.Context, email, firstName, lastName string) (domain.Account, error) {
	account, err := s.repo.Create(ctx, domain.CreateAccountParams{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Balance:   s.openingBalance,
	})
	if err != nil {
		return account, err
	}

	zerolog.Ctx(ctx).Info().Int32("account_id", account.ID).Msg("account opened")

	return account, nil
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}

// GetByEmail returns account for the given email.
func (s *Service) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return account, err
	}

	return account, nil
}

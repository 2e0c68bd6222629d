// Package historyservice reads the transaction log of an account.
package historyservice

import (
	"context"

	"github.com/go-petr/soseki-bank/internal/domain"
)

// Repo provides data access layer interface needed by history service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package historyservice
type Repo interface {
	List(ctx context.Context, accountID int32) ([]domain.Entry, error)
}

// Service facilitates history service layer logic.
type Service struct {
	repo Repo
}

// New returns history service.
func New(r Repo) *Service {
	return &Service{repo: r}
}

// History returns the entries owned by accountID, newest first.
func (s *Service) History(ctx context.Context, accountID int32) ([]domain.Entry, error) {
	entries, err := s.repo.List(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

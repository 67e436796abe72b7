package transfers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (Transfer, error)
	List(ctx context.Context, filter Filter) ([]Transfer, error)
}

// Service exposes the transfer read model. Transfers are written by the
// fulfillment executor; this service only queries them.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
}

// NewService constructs Service.
func NewService(logger *slog.Logger, repo RepositoryPort) *Service {
	return &Service{logger: logger, repo: repo}
}

// Get fetches a transfer visible to the actor. Branch-scoped actors may
// only see transfers touching their branch.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, id uuid.UUID) (Transfer, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	if actor.BranchScoped() && actor.BranchID != t.FromBranchID && actor.BranchID != t.ToBranchID {
		return Transfer{}, shared.ErrForbidden
	}
	return t, nil
}

// List lists transfers, forced to the actor's branch when scoped.
func (s *Service) List(ctx context.Context, actor *shared.Actor, filter Filter) ([]Transfer, error) {
	if actor.BranchScoped() {
		filter.BranchID = actor.BranchID
	}
	return s.repo.List(ctx, filter)
}

package identity

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/glowline/glowline-backend/internal/shared"
)

// Service wraps authentication and actor resolution.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Resolve returns the actor for a user ID, used by the token middleware.
func (s *Service) Resolve(ctx context.Context, userID int64) (shared.Actor, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return shared.Actor{}, err
	}
	if !user.IsActive {
		return shared.Actor{}, shared.ErrForbidden
	}
	return user.Actor(), nil
}

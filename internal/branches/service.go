package branches

import (
	"context"
	"fmt"
	"strings"

	"github.com/glowline/glowline-backend/internal/shared"
)

// Service is the branch directory consumed by the rest of the system.
type Service struct {
	repo Repository
}

// NewService constructs Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns branches, optionally filtered by a search term.
func (s *Service) List(ctx context.Context, search string) ([]Branch, error) {
	return s.repo.List(ctx, search)
}

// Get returns one branch by its canonical ID.
func (s *Service) Get(ctx context.Context, id int64) (Branch, error) {
	if id <= 0 {
		return Branch{}, fmt.Errorf("%w: invalid branch id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Resolve translates a branch code into its canonical ID.
func (s *Service) Resolve(ctx context.Context, code string) (Branch, error) {
	if strings.TrimSpace(code) == "" {
		return Branch{}, fmt.Errorf("%w: branch code required", shared.ErrValidation)
	}
	return s.repo.GetByCode(ctx, code)
}

// Create registers a new branch.
func (s *Service) Create(ctx context.Context, form BranchForm) (Branch, error) {
	if strings.TrimSpace(form.Code) == "" {
		return Branch{}, fmt.Errorf("%w: branch code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(form.Name) == "" {
		return Branch{}, fmt.Errorf("%w: branch name is required", shared.ErrValidation)
	}
	return s.repo.Create(ctx, Branch{Code: form.Code, Name: form.Name, Address: form.Address})
}

package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/glowline/glowline-backend/internal/shared"
)

type fakeUserRepo struct {
	users map[string]*User
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func seedRepo(t *testing.T) *fakeUserRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &fakeUserRepo{users: map[string]*User{
		"manager@glowline.test": {
			ID:           1,
			Email:        "manager@glowline.test",
			DisplayName:  "Dana",
			PasswordHash: string(hashed),
			Role:         shared.RoleBranchManager,
			BranchID:     10,
			IsActive:     true,
		},
		"inactive@glowline.test": {
			ID:           2,
			Email:        "inactive@glowline.test",
			PasswordHash: string(hashed),
			Role:         shared.RoleStaff,
			IsActive:     false,
		},
	}}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(seedRepo(t))
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "manager@glowline.test", "correctpass")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(ctx, "manager@glowline.test", "wrongpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@glowline.test", "correctpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "inactive@glowline.test", "correctpass")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestResolveActor(t *testing.T) {
	svc := NewService(seedRepo(t))

	actor, err := svc.Resolve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, shared.RoleBranchManager, actor.Role)
	require.Equal(t, int64(10), actor.BranchID)
	require.True(t, actor.BranchScoped())

	_, err = svc.Resolve(context.Background(), 2)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

package identity

import (
	"time"

	"github.com/glowline/glowline-backend/internal/shared"
)

// User is an account that can authenticate against the system.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         shared.Role
	BranchID     int64
	IsActive     bool
	CreatedAt    time.Time
}

// Actor converts the user into the shared actor shape used for
// authorization decisions.
func (u User) Actor() shared.Actor {
	return shared.Actor{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		BranchID:    u.BranchID,
	}
}

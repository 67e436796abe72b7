package shared

// Role enumerates actor roles known to the core.
type Role string

const (
	// RoleAdmin may act on every branch.
	RoleAdmin Role = "ADMIN"
	// RoleBranchManager is scoped to a single branch.
	RoleBranchManager Role = "BRANCH_MANAGER"
	// RoleStaff may create requests for its own branch but not review them.
	RoleStaff Role = "STAFF"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID          int64
	DisplayName string
	Role        Role
	BranchID    int64
}

// BranchScoped reports whether the actor is restricted to its own branch.
func (a Actor) BranchScoped() bool {
	return a.Role != RoleAdmin
}

// CanReview reports whether the role is allowed to review requests at all.
func (a Actor) CanReview() bool {
	return a.Role == RoleAdmin || a.Role == RoleBranchManager
}

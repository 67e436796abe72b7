package branches

import "time"

// Branch is the canonical branch directory entry. The numeric ID is the
// canonical branch key everywhere in the system; code and name are
// translated at the HTTP boundary only.
type Branch struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BranchForm is the create/update payload.
type BranchForm struct {
	Code    string `json:"code" validate:"required,max=20"`
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address,omitempty"`
}

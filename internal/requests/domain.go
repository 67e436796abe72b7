package requests

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates request lifecycle states. APPROVED and REJECTED are
// terminal: once reviewed, a request never changes status again.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request is a branch's ask for items it cannot cover from its own stock.
type Request struct {
	ID              uuid.UUID
	Number          string
	BranchID        int64
	Status          Status
	TotalAmount     float64
	RequestedBy     int64
	RequestedAt     time.Time
	ReviewedBy      int64
	ReviewedAt      time.Time
	Notes           string
	RejectionReason string
	CreatedAt       time.Time
	Lines           []LineItem
}

// Reviewed reports whether the request reached a terminal state.
func (r Request) Reviewed() bool {
	return r.Status != StatusPending
}

// LineItem is one requested item position.
type LineItem struct {
	ID         int64
	RequestID  uuid.UUID
	ItemID     int64
	ItemName   string
	Quantity   int64
	UnitPrice  float64
	TotalPrice float64
	Reason     string
}

// Decision is the reviewer's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

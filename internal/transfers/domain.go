package transfers

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates transfer lifecycle states. Transfers created by the
// fulfillment executor are committed atomically with their stock movements
// and therefore start out COMPLETED.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transfer records stock moved between two branches. The paired ledger
// entries referencing the transfer carry the actual quantity deltas.
type Transfer struct {
	ID          uuid.UUID
	Number      string
	FromBranchID int64
	ToBranchID   int64
	Status      Status
	RequestID   uuid.UUID
	InitiatedBy int64
	CompletedBy int64
	CompletedAt time.Time
	Notes       string
	CreatedAt   time.Time
	Lines       []LineItem
}

// LineItem is a single item position on a transfer.
type LineItem struct {
	ID         int64
	TransferID uuid.UUID
	ItemID     int64
	ItemName   string
	Quantity   int64
	UnitPrice  float64
	TotalPrice float64
}

package purchasing

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates purchase order lifecycle states.
//
// Orders raised by the fulfillment executor start at ORDERED and the
// ordered stock is booked into the requesting branch in the same
// transaction; RECEIVED only confirms the paperwork. Cancelling an
// ORDERED order reverses the booked stock.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusOrdered   Status = "ORDERED"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

// PurchaseOrder is a replenishment order for a single branch.
type PurchaseOrder struct {
	ID          uuid.UUID
	Number      string
	Supplier    string
	BranchID    int64
	Status      Status
	TotalAmount float64
	RequestID   uuid.UUID
	RequestedBy int64
	RequestedAt time.Time
	OrderedAt   time.Time
	ReceivedAt  time.Time
	Notes       string
	CreatedAt   time.Time
	Lines       []LineItem
}

// LineItem is a single item position on a purchase order.
type LineItem struct {
	ID         int64
	OrderID    uuid.UUID
	ItemID     int64
	ItemName   string
	Quantity   int64
	UnitPrice  float64
	TotalPrice float64
}

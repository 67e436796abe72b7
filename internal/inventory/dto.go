package inventory

import "time"

// StockInRequest is the payload for a manual inbound movement. The item
// attribute fields seed the record when this is the first arrival of the
// item at the branch.
type StockInRequest struct {
	ItemID           int64   `json:"item_id" validate:"required,gt=0"`
	BranchID         int64   `json:"branch_id" validate:"required,gt=0"`
	Quantity         int64   `json:"quantity" validate:"required,gt=0"`
	Reason           string  `json:"reason" validate:"required"`
	ItemName         string  `json:"item_name,omitempty"`
	Category         string  `json:"category,omitempty"`
	ReorderThreshold int64   `json:"reorder_threshold,omitempty" validate:"gte=0"`
	UnitPrice        float64 `json:"unit_price,omitempty" validate:"gte=0"`
	Supplier         string  `json:"supplier,omitempty"`
}

// StockOutRequest is the payload for a manual outbound movement.
type StockOutRequest struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	BranchID int64  `json:"branch_id" validate:"required,gt=0"`
	Quantity int64  `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required"`
}

// RecordView is the JSON shape of an inventory record.
type RecordView struct {
	ItemID           int64       `json:"item_id"`
	BranchID         int64       `json:"branch_id"`
	ItemName         string      `json:"item_name"`
	Category         string      `json:"category,omitempty"`
	Quantity         int64       `json:"quantity"`
	ReorderThreshold int64       `json:"reorder_threshold"`
	UnitPrice        float64     `json:"unit_price"`
	Supplier         string      `json:"supplier,omitempty"`
	Status           StockStatus `json:"status"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// LedgerEntryView is the JSON shape of a ledger entry.
type LedgerEntryView struct {
	ID               int64     `json:"id"`
	ItemID           int64     `json:"item_id"`
	BranchID         int64     `json:"branch_id"`
	Direction        Direction `json:"direction"`
	Quantity         int64     `json:"quantity"`
	PreviousQuantity int64     `json:"previous_quantity"`
	NewQuantity      int64     `json:"new_quantity"`
	ActorID          int64     `json:"actor_id,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	RefModule        string    `json:"ref_module,omitempty"`
	RefID            string    `json:"ref_id,omitempty"`
	At               time.Time `json:"at"`
}

// NewRecordView maps a Record to its JSON shape.
func NewRecordView(rec Record) RecordView {
	return RecordView{
		ItemID:           rec.ItemID,
		BranchID:         rec.BranchID,
		ItemName:         rec.ItemName,
		Category:         rec.Category,
		Quantity:         rec.Quantity,
		ReorderThreshold: rec.ReorderThreshold,
		UnitPrice:        rec.UnitPrice,
		Supplier:         rec.Supplier,
		Status:           rec.Status(),
		UpdatedAt:        rec.UpdatedAt,
	}
}

// NewLedgerEntryView maps a LedgerEntry to its JSON shape.
func NewLedgerEntryView(entry LedgerEntry) LedgerEntryView {
	return LedgerEntryView{
		ID:               entry.ID,
		ItemID:           entry.ItemID,
		BranchID:         entry.BranchID,
		Direction:        entry.Direction,
		Quantity:         entry.Quantity,
		PreviousQuantity: entry.PreviousQuantity,
		NewQuantity:      entry.NewQuantity,
		ActorID:          entry.ActorID,
		Reason:           entry.Reason,
		RefModule:        entry.RefModule,
		RefID:            entry.RefID,
		At:               entry.At,
	}
}

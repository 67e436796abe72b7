package inventory

import (
	"context"
	"errors"
	"time"
)

// TxStore exposes the row operations a ledger append needs. Implementations
// run inside a database transaction so the record update and the ledger
// entry commit together.
type TxStore interface {
	GetRecordForUpdate(ctx context.Context, itemID, branchID int64) (Record, error)
	UpsertRecord(ctx context.Context, record Record) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error)
}

// AppendEntry is the only legal way to change a record's quantity. It locks
// the record row, applies the movement, and writes exactly one ledger entry
// paired with exactly one record update.
func AppendEntry(ctx context.Context, tx TxStore, mov Movement) (LedgerEntry, error) {
	if mov.Quantity <= 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	if mov.ItemID == 0 || mov.BranchID == 0 {
		return LedgerEntry{}, errors.New("inventory: item and branch required")
	}
	if mov.Direction != DirectionIn && mov.Direction != DirectionOut {
		return LedgerEntry{}, errors.New("inventory: unknown direction")
	}

	record, err := tx.GetRecordForUpdate(ctx, mov.ItemID, mov.BranchID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return LedgerEntry{}, err
	}
	if errors.Is(err, ErrRecordNotFound) {
		if mov.Direction == DirectionOut {
			return LedgerEntry{}, ErrInsufficientStock
		}
		record = Record{ItemID: mov.ItemID, BranchID: mov.BranchID}
		if mov.Attributes != nil {
			record.ItemName = mov.Attributes.ItemName
			record.Category = mov.Attributes.Category
			record.ReorderThreshold = mov.Attributes.ReorderThreshold
			record.UnitPrice = mov.Attributes.UnitPrice
			record.Supplier = mov.Attributes.Supplier
		}
	}

	prev := record.Quantity
	next := prev
	switch mov.Direction {
	case DirectionIn:
		next = prev + mov.Quantity
	case DirectionOut:
		next = prev - mov.Quantity
		if next < 0 {
			return LedgerEntry{}, ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	record.Quantity = next
	record.UpdatedAt = now
	if err := tx.UpsertRecord(ctx, record); err != nil {
		return LedgerEntry{}, err
	}

	entry := LedgerEntry{
		ItemID:           mov.ItemID,
		BranchID:         mov.BranchID,
		Direction:        mov.Direction,
		Quantity:         mov.Quantity,
		PreviousQuantity: prev,
		NewQuantity:      next,
		ActorID:          mov.ActorID,
		Reason:           mov.Reason,
		RefModule:        mov.RefModule,
		RefID:            mov.RefID,
		At:               now,
	}
	id, err := tx.InsertLedgerEntry(ctx, entry)
	if err != nil {
		return LedgerEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

package inventory

import (
	"errors"
	"time"
)

// Direction enumerates ledger movement directions.
type Direction string

const (
	// DirectionIn represents stock arriving at a branch.
	DirectionIn Direction = "IN"
	// DirectionOut represents stock leaving a branch.
	DirectionOut Direction = "OUT"
)

// StockStatus is derived from quantity versus reorder threshold.
type StockStatus string

const (
	StockStatusOut StockStatus = "OUT_OF_STOCK"
	StockStatusLow StockStatus = "LOW_STOCK"
	StockStatusIn  StockStatus = "IN_STOCK"
)

// Record is the materialized on-hand quantity of an item at a branch.
// Quantity changes only through ledger appends; zero quantity is a valid
// state and records are never hard-deleted.
type Record struct {
	ItemID           int64
	BranchID         int64
	ItemName         string
	Category         string
	Quantity         int64
	ReorderThreshold int64
	UnitPrice        float64
	Supplier         string
	UpdatedAt        time.Time
}

// Status derives the stock status from quantity and threshold.
func (r Record) Status() StockStatus {
	switch {
	case r.Quantity <= 0:
		return StockStatusOut
	case r.Quantity <= r.ReorderThreshold:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// Attributes carries the static item attributes used when a movement
// creates a record on first stock arrival at a branch.
type Attributes struct {
	ItemName         string
	Category         string
	ReorderThreshold int64
	UnitPrice        float64
	Supplier         string
}

// LedgerEntry is one append-only stock movement. For any (item, branch)
// the running sum of IN minus OUT entries equals the record quantity.
type LedgerEntry struct {
	ID               int64
	ItemID           int64
	BranchID         int64
	Direction        Direction
	Quantity         int64
	PreviousQuantity int64
	NewQuantity      int64
	ActorID          int64
	Reason           string
	RefModule        string
	RefID            string
	At               time.Time
}

// Movement describes a requested ledger append.
type Movement struct {
	ItemID     int64
	BranchID   int64
	Direction  Direction
	Quantity   int64
	ActorID    int64
	Reason     string
	RefModule  string
	RefID      string
	Attributes *Attributes
}

// ErrInsufficientStock triggered when a movement would drive quantity negative.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrRecordNotFound indicates a missing inventory record row.
var ErrRecordNotFound = errors.New("inventory record not found")

package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetRecord(ctx context.Context, itemID, branchID int64) (Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	ListAvailability(ctx context.Context, itemID int64) ([]Record, error)
	ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts stock movements.
type MetricsPort interface {
	StockMovement(direction string)
}

// Service coordinates direct stock movements and inventory reads outside
// the request/fulfillment flow.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// WithMetrics attaches a movement counter.
func (s *Service) WithMetrics(metrics MetricsPort) *Service {
	s.metrics = metrics
	return s
}

// StockInInput describes a manual inbound movement.
type StockInInput struct {
	ItemID     int64
	BranchID   int64
	Quantity   int64
	Reason     string
	ActorID    int64
	Attributes *Attributes
}

// StockOutInput describes a manual outbound movement.
type StockOutInput struct {
	ItemID   int64
	BranchID int64
	Quantity int64
	Reason   string
	ActorID  int64
}

// StockIn appends an IN ledger entry, creating the record on first arrival.
func (s *Service) StockIn(ctx context.Context, input StockInInput) (LedgerEntry, error) {
	if input.ItemID == 0 || input.BranchID == 0 {
		return LedgerEntry{}, fmt.Errorf("%w: item and branch required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	return s.post(ctx, Movement{
		ItemID:     input.ItemID,
		BranchID:   input.BranchID,
		Direction:  DirectionIn,
		Quantity:   input.Quantity,
		ActorID:    input.ActorID,
		Reason:     input.Reason,
		RefModule:  "STOCK",
		Attributes: input.Attributes,
	})
}

// StockOut appends an OUT ledger entry.
func (s *Service) StockOut(ctx context.Context, input StockOutInput) (LedgerEntry, error) {
	if input.ItemID == 0 || input.BranchID == 0 {
		return LedgerEntry{}, fmt.Errorf("%w: item and branch required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return LedgerEntry{}, ErrInvalidQuantity
	}
	return s.post(ctx, Movement{
		ItemID:    input.ItemID,
		BranchID:  input.BranchID,
		Direction: DirectionOut,
		Quantity:  input.Quantity,
		ActorID:   input.ActorID,
		Reason:    input.Reason,
		RefModule: "STOCK",
	})
}

// GetRecord returns the record for (item, branch).
func (s *Service) GetRecord(ctx context.Context, itemID, branchID int64) (Record, error) {
	rec, err := s.repo.GetRecord(ctx, itemID, branchID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return Record{}, shared.ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListRecords lists records, optionally scoped by branch and status.
func (s *Service) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	return s.repo.ListRecords(ctx, filter)
}

// ListLowStock lists records at or below their reorder threshold for a branch.
func (s *Service) ListLowStock(ctx context.Context, branchID int64) ([]Record, error) {
	records, err := s.repo.ListRecords(ctx, RecordFilter{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	low := records[:0]
	for _, rec := range records {
		if rec.Status() != StockStatusIn {
			low = append(low, rec)
		}
	}
	return low, nil
}

// ListLedger lists ledger entries.
func (s *Service) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	return s.repo.ListLedger(ctx, filter)
}

func (s *Service) post(ctx context.Context, mov Movement) (LedgerEntry, error) {
	if mov.RefID != "" {
		if _, err := uuid.Parse(mov.RefID); err != nil {
			return LedgerEntry{}, fmt.Errorf("inventory: invalid ref id: %w", err)
		}
	}
	var entry LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		applied, err := AppendEntry(ctx, tx, mov)
		if err != nil {
			return err
		}
		entry = applied
		return nil
	})
	if err != nil {
		return LedgerEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.StockMovement(string(mov.Direction))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  mov.ActorID,
			BranchID: mov.BranchID,
			Action:   fmt.Sprintf("stock:%s", mov.Direction),
			Entity:   "stock_ledger",
			EntityID: fmt.Sprintf("%d:%d", mov.ItemID, mov.BranchID),
			Meta: map[string]any{
				"item_id":   mov.ItemID,
				"branch_id": mov.BranchID,
				"qty":       mov.Quantity,
				"reason":    mov.Reason,
			},
		})
	}
	return entry, nil
}

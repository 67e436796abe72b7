package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	List(ctx context.Context, filter Filter) ([]PurchaseOrder, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// AuditPort records audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the purchase order lifecycle.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
}

// NewService constructs Service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort) *Service {
	return &Service{logger: logger, repo: repo, audit: audit}
}

// Get fetches a purchase order visible to the actor.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if actor.BranchScoped() && actor.BranchID != po.BranchID {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	return po, nil
}

// List lists purchase orders, forced to the actor's branch when scoped.
func (s *Service) List(ctx context.Context, actor *shared.Actor, filter Filter) ([]PurchaseOrder, error) {
	if actor.BranchScoped() {
		filter.BranchID = actor.BranchID
	}
	return s.repo.List(ctx, filter)
}

// Receive confirms delivery of an ORDERED purchase order. The stock was
// booked when the order was raised, so this only advances the status and
// stamps the received date.
func (s *Service) Receive(ctx context.Context, actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
	if !actor.CanReview() {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	var branchID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		po, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor.BranchScoped() && actor.BranchID != po.BranchID {
			return shared.ErrForbidden
		}
		if po.Status != StatusOrdered {
			return fmt.Errorf("%w: purchase order is %s", shared.ErrConflict, po.Status)
		}
		updated, err := tx.SetStatus(ctx, id, StatusOrdered, StatusReceived, time.Now().UTC())
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: purchase order already reviewed", shared.ErrConflict)
		}
		branchID = po.BranchID
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, "purchase_order.receive", id, branchID)
	return s.repo.Get(ctx, id)
}

// Cancel cancels a REQUESTED or ORDERED purchase order. Cancelling an
// ORDERED order reverses its stock booking in the same transaction; if the
// branch has already consumed the stock the cancellation is refused.
func (s *Service) Cancel(ctx context.Context, actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
	if !actor.CanReview() {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	var branchID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		po, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if actor.BranchScoped() && actor.BranchID != po.BranchID {
			return shared.ErrForbidden
		}
		branchID = po.BranchID
		if po.Status != StatusRequested && po.Status != StatusOrdered {
			return fmt.Errorf("%w: purchase order is %s", shared.ErrConflict, po.Status)
		}
		if po.Status == StatusOrdered {
			lines, err := tx.ListLines(ctx, po.ID)
			if err != nil {
				return err
			}
			for _, li := range lines {
				_, err := inventory.AppendEntry(ctx, tx, inventory.Movement{
					ItemID:    li.ItemID,
					BranchID:  po.BranchID,
					Direction: inventory.DirectionOut,
					Quantity:  li.Quantity,
					ActorID:   actor.ID,
					Reason:    fmt.Sprintf("purchase order %s cancelled", po.Number),
					RefModule: "PURCHASING",
					RefID:     po.ID.String(),
				})
				if err != nil {
					if errors.Is(err, inventory.ErrInsufficientStock) {
						return fmt.Errorf("%w: ordered stock already consumed", shared.ErrConflict)
					}
					return err
				}
			}
		}
		updated, err := tx.SetStatus(ctx, id, po.Status, StatusCancelled, time.Now().UTC())
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: purchase order already reviewed", shared.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor, "purchase_order.cancel", id, branchID)
	return s.repo.Get(ctx, id)
}

// recordAudit stamps the order's branch, not the actor's: admins have no
// branch of their own but the event still belongs to the order's branch.
func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, id uuid.UUID, branchID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		BranchID: branchID,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: id.String(),
	})
}

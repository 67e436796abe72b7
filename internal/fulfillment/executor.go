package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/purchasing"
	"github.com/glowline/glowline-backend/internal/transfers"
)

// MetricsPort counts fulfillment outcomes.
type MetricsPort interface {
	FulfillmentLineApplied(kind string)
	FulfillmentLineFailed()
}

// Executor applies an approved fulfillment plan. All writes of one run —
// ledger entries, record updates, transfer records, purchase orders —
// commit in a single transaction. Lines that cannot be satisfied because
// the source branch lacks stock are skipped and reported; any storage
// error rolls the whole run back.
type Executor struct {
	logger  *slog.Logger
	repo    RepositoryPort
	metrics MetricsPort
}

// NewExecutor constructs Executor.
func NewExecutor(logger *slog.Logger, repo RepositoryPort, metrics MetricsPort) *Executor {
	return &Executor{logger: logger, repo: repo, metrics: metrics}
}

// Execute applies the plan for the given request. The returned error is
// non-nil only when the transaction rolled back; callers keep the
// request approved either way and surface the report.
func (e *Executor) Execute(ctx context.Context, ref RequestRef, plan Plan) (Report, error) {
	if len(plan) == 0 {
		return Report{}, nil
	}
	var report Report
	err := e.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		report = Report{}
		now := time.Now().UTC()
		requestedAt := ref.RequestedAt
		if requestedAt.IsZero() {
			requestedAt = now
		}

		orderID := uuid.New()
		var orderLines []purchasing.LineItem
		var orderTotal float64
		var orderSupplier string
		var pendingPurchases []ResultLine

		for _, entry := range plan {
			for _, tr := range entry.Transfers {
				line := ResultLine{
					ItemID:       entry.ItemID,
					ItemName:     entry.ItemName,
					Kind:         KindTransfer,
					FromBranchID: tr.FromBranchID,
					Quantity:     tr.Quantity,
				}
				if tr.Quantity <= 0 {
					line.Reason = "quantity must be positive"
					report.Failed = append(report.Failed, line)
					continue
				}
				if tr.FromBranchID == ref.BranchID {
					line.Reason = "source branch equals requesting branch"
					report.Failed = append(report.Failed, line)
					continue
				}
				src, err := tx.GetRecordForUpdate(ctx, entry.ItemID, tr.FromBranchID)
				if err != nil {
					if errors.Is(err, inventory.ErrRecordNotFound) {
						line.Reason = "no stock record at source branch"
						report.Failed = append(report.Failed, line)
						continue
					}
					return err
				}
				if src.Quantity < tr.Quantity {
					line.Reason = fmt.Sprintf("insufficient stock at source branch: %d on hand", src.Quantity)
					report.Failed = append(report.Failed, line)
					continue
				}

				number, err := tx.NextTransferNumber(ctx)
				if err != nil {
					return err
				}
				transferID := uuid.New()
				if _, err := inventory.AppendEntry(ctx, tx, inventory.Movement{
					ItemID:    entry.ItemID,
					BranchID:  tr.FromBranchID,
					Direction: inventory.DirectionOut,
					Quantity:  tr.Quantity,
					ActorID:   ref.ActorID,
					Reason:    fmt.Sprintf("transfer %s to branch %d for %s", number, ref.BranchID, ref.Number),
					RefModule: "TRANSFER",
					RefID:     transferID.String(),
				}); err != nil {
					return err
				}
				if _, err := inventory.AppendEntry(ctx, tx, inventory.Movement{
					ItemID:    entry.ItemID,
					BranchID:  ref.BranchID,
					Direction: inventory.DirectionIn,
					Quantity:  tr.Quantity,
					ActorID:   ref.ActorID,
					Reason:    fmt.Sprintf("transfer %s from branch %d for %s", number, tr.FromBranchID, ref.Number),
					RefModule: "TRANSFER",
					RefID:     transferID.String(),
					Attributes: &inventory.Attributes{
						ItemName:         src.ItemName,
						Category:         src.Category,
						ReorderThreshold: src.ReorderThreshold,
						UnitPrice:        src.UnitPrice,
						Supplier:         src.Supplier,
					},
				}); err != nil {
					return err
				}

				price := tr.UnitPrice
				if price == 0 {
					price = src.UnitPrice
				}
				if err := tx.InsertTransfer(ctx, transfers.Transfer{
					ID:           transferID,
					Number:       number,
					FromBranchID: tr.FromBranchID,
					ToBranchID:   ref.BranchID,
					Status:       transfers.StatusCompleted,
					RequestID:    ref.ID,
					InitiatedBy:  ref.ActorID,
					CompletedBy:  ref.ActorID,
					CompletedAt:  now,
					Notes:        fmt.Sprintf("fulfillment of %s", ref.Number),
					CreatedAt:    now,
				}); err != nil {
					return err
				}
				if err := tx.InsertTransferLine(ctx, transfers.LineItem{
					TransferID: transferID,
					ItemID:     entry.ItemID,
					ItemName:   src.ItemName,
					Quantity:   tr.Quantity,
					UnitPrice:  price,
					TotalPrice: float64(tr.Quantity) * price,
				}); err != nil {
					return err
				}
				line.Reference = number
				report.Applied = append(report.Applied, line)
			}

			if entry.PurchaseQuantity > 0 {
				supplier := entry.Supplier
				if supplier == "" {
					if dest, err := tx.GetRecordForUpdate(ctx, entry.ItemID, ref.BranchID); err == nil {
						supplier = dest.Supplier
					} else if !errors.Is(err, inventory.ErrRecordNotFound) {
						return err
					}
				}
				if orderSupplier == "" {
					orderSupplier = supplier
				}
				if _, err := inventory.AppendEntry(ctx, tx, inventory.Movement{
					ItemID:    entry.ItemID,
					BranchID:  ref.BranchID,
					Direction: inventory.DirectionIn,
					Quantity:  entry.PurchaseQuantity,
					ActorID:   ref.ActorID,
					Reason:    fmt.Sprintf("purchase for %s", ref.Number),
					RefModule: "PURCHASING",
					RefID:     orderID.String(),
					Attributes: &inventory.Attributes{
						ItemName:  entry.ItemName,
						UnitPrice: entry.PurchasePrice,
						Supplier:  supplier,
					},
				}); err != nil {
					return err
				}
				orderLines = append(orderLines, purchasing.LineItem{
					OrderID:    orderID,
					ItemID:     entry.ItemID,
					ItemName:   entry.ItemName,
					Quantity:   entry.PurchaseQuantity,
					UnitPrice:  entry.PurchasePrice,
					TotalPrice: float64(entry.PurchaseQuantity) * entry.PurchasePrice,
				})
				orderTotal += float64(entry.PurchaseQuantity) * entry.PurchasePrice
				pendingPurchases = append(pendingPurchases, ResultLine{
					ItemID:   entry.ItemID,
					ItemName: entry.ItemName,
					Kind:     KindPurchase,
					Quantity: entry.PurchaseQuantity,
				})
			}
		}

		if len(orderLines) > 0 {
			number, err := tx.NextOrderNumber(ctx)
			if err != nil {
				return err
			}
			if err := tx.InsertOrder(ctx, purchasing.PurchaseOrder{
				ID:          orderID,
				Number:      number,
				Supplier:    orderSupplier,
				BranchID:    ref.BranchID,
				Status:      purchasing.StatusOrdered,
				TotalAmount: orderTotal,
				RequestID:   ref.ID,
				RequestedBy: ref.RequestedBy,
				RequestedAt: requestedAt,
				OrderedAt:   now,
				Notes:       fmt.Sprintf("fulfillment of %s", ref.Number),
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			for _, li := range orderLines {
				if err := tx.InsertOrderLine(ctx, li); err != nil {
					return err
				}
			}
			for _, line := range pendingPurchases {
				line.Reference = number
				report.Applied = append(report.Applied, line)
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("fulfillment transaction rolled back",
			slog.String("request", ref.Number), slog.Any("error", err))
		if e.metrics != nil {
			e.metrics.FulfillmentLineFailed()
		}
		return ReportAllFailed(plan, "fulfillment transaction rolled back"), err
	}
	e.observe(report)
	return report, nil
}

func (e *Executor) observe(report Report) {
	if e.metrics == nil {
		return
	}
	for _, line := range report.Applied {
		e.metrics.FulfillmentLineApplied(string(line.Kind))
	}
	for range report.Failed {
		e.metrics.FulfillmentLineFailed()
	}
}

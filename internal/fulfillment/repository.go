package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/purchasing"
	"github.com/glowline/glowline-backend/internal/transfers"
)

// TxStore exposes everything one fulfillment run writes: stock movements,
// transfer records, and purchase orders, all inside a single transaction.
type TxStore interface {
	inventory.TxStore
	NextTransferNumber(ctx context.Context) (string, error)
	NextOrderNumber(ctx context.Context) (string, error)
	InsertTransfer(ctx context.Context, t transfers.Transfer) error
	InsertTransferLine(ctx context.Context, li transfers.LineItem) error
	InsertOrder(ctx context.Context, po purchasing.PurchaseOrder) error
	InsertOrderLine(ctx context.Context, li purchasing.LineItem) error
}

// RepositoryPort abstracts the transactional store for the executor.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// Repository persists fulfillment writes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txStore{TxStore: inventory.NewTxStore(tx), tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	inventory.TxStore
	tx pgx.Tx
}

func (s *txStore) NextTransferNumber(ctx context.Context) (string, error) {
	return nextNumber(ctx, s.tx, "transfer_number_seq", "TRF")
}

func (s *txStore) NextOrderNumber(ctx context.Context) (string, error) {
	return nextNumber(ctx, s.tx, "purchase_order_number_seq", "PO")
}

func nextNumber(ctx context.Context, tx pgx.Tx, sequence, prefix string) (string, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval($1)`, sequence).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, time.Now().UTC().Year(), seq), nil
}

func (s *txStore) InsertTransfer(ctx context.Context, t transfers.Transfer) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO transfers (id, number, from_branch_id, to_branch_id, status, request_id, initiated_by, completed_by, completed_at, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,0),$9,$10,$11)`,
		t.ID, t.Number, t.FromBranchID, t.ToBranchID, string(t.Status), nullUUID(t.RequestID),
		t.InitiatedBy, t.CompletedBy, nullTime(t.CompletedAt), t.Notes, t.CreatedAt)
	return err
}

func (s *txStore) InsertTransferLine(ctx context.Context, li transfers.LineItem) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO transfer_line_items (transfer_id, item_id, item_name, quantity, unit_price, total_price)
VALUES ($1,$2,$3,$4,$5,$6)`,
		li.TransferID, li.ItemID, li.ItemName, li.Quantity, li.UnitPrice, li.TotalPrice)
	return err
}

func (s *txStore) InsertOrder(ctx context.Context, po purchasing.PurchaseOrder) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO purchase_orders (id, number, supplier, branch_id, status, total_amount, request_id, requested_by, requested_at, ordered_at, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		po.ID, po.Number, po.Supplier, po.BranchID, string(po.Status), po.TotalAmount, nullUUID(po.RequestID),
		po.RequestedBy, po.RequestedAt, nullTime(po.OrderedAt), po.Notes, po.CreatedAt)
	return err
}

func (s *txStore) InsertOrderLine(ctx context.Context, li purchasing.LineItem) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO purchase_order_line_items (order_id, item_id, item_name, quantity, unit_price, total_price)
VALUES ($1,$2,$3,$4,$5,$6)`,
		li.OrderID, li.ItemID, li.ItemName, li.Quantity, li.UnitPrice, li.TotalPrice)
	return err
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

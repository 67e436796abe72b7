package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/shared"
)

// TxStore exposes the operations the purchase order lifecycle needs inside
// one transaction. It embeds the inventory transaction store so cancelling
// an ordered PO can reverse its stock booking atomically.
type TxStore interface {
	inventory.TxStore
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (PurchaseOrder, error)
	ListLines(ctx context.Context, orderID uuid.UUID) ([]LineItem, error)
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error)
}

// Repository persists purchase orders in PostgreSQL.
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

// Filter narrows purchase order listings.
type Filter struct {
	BranchID  int64
	Status    Status
	RequestID uuid.UUID
	Limit     int
	Offset    int
}

const orderColumns = `id, number, supplier, branch_id, status, total_amount, COALESCE(request_id, '00000000-0000-0000-0000-000000000000'), requested_by, requested_at, COALESCE(ordered_at, 'epoch'), COALESCE(received_at, 'epoch'), notes, created_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.Supplier, &po.BranchID, &po.Status, &po.TotalAmount,
		&po.RequestID, &po.RequestedBy, &po.RequestedAt, &po.OrderedAt, &po.ReceivedAt, &po.Notes, &po.CreatedAt)
	return po, err
}

// Get fetches one purchase order with its line items.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, shared.ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	lines, err := listLines(ctx, r.pool, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Lines = lines
	return po, nil
}

// List lists purchase orders, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]PurchaseOrder, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+`
FROM purchase_orders
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = '' OR status = $2)
  AND ($3::uuid IS NULL OR request_id = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5`, filter.BranchID, string(filter.Status), nullUUID(filter.RequestID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PurchaseOrder{}
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listLines(ctx context.Context, q querier, orderID uuid.UUID) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, item_id, item_name, quantity, unit_price, total_price
FROM purchase_order_line_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.ItemID, &li.ItemName, &li.Quantity, &li.UnitPrice, &li.TotalPrice); err != nil {
			return nil, err
		}
		lines = append(lines, li)
	}
	return lines, rows.Err()
}

type txStore struct {
	inventory.TxStore
	tx pgx.Tx
}

func (s *txStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, err := scanOrder(s.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, shared.ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (s *txStore) ListLines(ctx context.Context, orderID uuid.UUID) ([]LineItem, error) {
	return listLines(ctx, s.tx, orderID)
}

func (s *txStore) SetStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.tx.Exec(ctx, `UPDATE purchase_orders
SET status=$3,
    received_at=CASE WHEN $3='RECEIVED' THEN $4 ELSE received_at END
WHERE id=$1 AND status=$2`, id, string(from), string(to), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/glowline-backend/internal/shared"
)

// Repository reads transfer records from PostgreSQL. Writes happen inside
// the fulfillment transaction, not here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Filter narrows transfer listings.
type Filter struct {
	BranchID  int64
	RequestID uuid.UUID
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

const transferColumns = `id, number, from_branch_id, to_branch_id, status, COALESCE(request_id, '00000000-0000-0000-0000-000000000000'), initiated_by, COALESCE(completed_by, 0), COALESCE(completed_at, 'epoch'), notes, created_at`

// Get fetches one transfer with its line items.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Transfer, error) {
	var t Transfer
	err := r.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id=$1`, id).
		Scan(&t.ID, &t.Number, &t.FromBranchID, &t.ToBranchID, &t.Status, &t.RequestID, &t.InitiatedBy, &t.CompletedBy, &t.CompletedAt, &t.Notes, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, shared.ErrNotFound
		}
		return Transfer{}, err
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return Transfer{}, err
	}
	t.Lines = lines
	return t, nil
}

// List lists transfers touching a branch (either side), newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Transfer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+transferColumns+`
FROM transfers
WHERE ($1 = 0 OR from_branch_id = $1 OR to_branch_id = $1)
  AND ($2::uuid IS NULL OR request_id = $2)
  AND created_at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`, filter.BranchID, nullUUID(filter.RequestID), nullTime(filter.From), nullTime(filter.To), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Transfer{}
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.ID, &t.Number, &t.FromBranchID, &t.ToBranchID, &t.Status, &t.RequestID, &t.InitiatedBy, &t.CompletedBy, &t.CompletedAt, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) listLines(ctx context.Context, transferID uuid.UUID) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, transfer_id, item_id, item_name, quantity, unit_price, total_price
FROM transfer_line_items WHERE transfer_id=$1 ORDER BY id`, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.TransferID, &li.ItemID, &li.ItemName, &li.Quantity, &li.UnitPrice, &li.TotalPrice); err != nil {
			return nil, err
		}
		lines = append(lines, li)
	}
	return lines, rows.Err()
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

package requests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/glowline-backend/internal/shared"
)

// Repository persists item requests in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Filter narrows request listings.
type Filter struct {
	BranchID int64
	Status   Status
	Limit    int
	Offset   int
}

const requestColumns = `id, number, branch_id, status, total_amount, requested_by, requested_at, COALESCE(reviewed_by, 0), COALESCE(reviewed_at, 'epoch'), notes, rejection_reason, created_at`

func scanRequest(row pgx.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.Number, &req.BranchID, &req.Status, &req.TotalAmount,
		&req.RequestedBy, &req.RequestedAt, &req.ReviewedBy, &req.ReviewedAt, &req.Notes, &req.RejectionReason, &req.CreatedAt)
	return req, err
}

// Create inserts the request and its lines, assigning the next request
// number from the database sequence in the same transaction.
func (r *Repository) Create(ctx context.Context, req Request) (Request, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Request{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('request_number_seq')`).Scan(&seq); err != nil {
		return Request{}, err
	}
	req.Number = fmt.Sprintf("REQ-%d-%06d", time.Now().UTC().Year(), seq)

	_, err = tx.Exec(ctx, `INSERT INTO item_requests (id, number, branch_id, status, total_amount, requested_by, requested_at, notes, rejection_reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'',$9)`,
		req.ID, req.Number, req.BranchID, string(req.Status), req.TotalAmount,
		req.RequestedBy, req.RequestedAt, req.Notes, req.CreatedAt)
	if err != nil {
		return Request{}, err
	}
	for i := range req.Lines {
		li := &req.Lines[i]
		li.RequestID = req.ID
		err := tx.QueryRow(ctx, `INSERT INTO item_request_lines (request_id, item_id, item_name, quantity, unit_price, total_price, reason)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			li.RequestID, li.ItemID, li.ItemName, li.Quantity, li.UnitPrice, li.TotalPrice, li.Reason).Scan(&li.ID)
		if err != nil {
			return Request{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Get fetches one request with its lines.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Request, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM item_requests WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, shared.ErrNotFound
		}
		return Request{}, err
	}
	lines, err := r.listLines(ctx, id)
	if err != nil {
		return Request{}, err
	}
	req.Lines = lines
	return req, nil
}

// List lists requests, newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Request, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+`
FROM item_requests
WHERE ($1 = 0 OR branch_id = $1)
  AND ($2 = '' OR status = $2)
ORDER BY requested_at DESC
LIMIT $3 OFFSET $4`, filter.BranchID, string(filter.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ReviewUpdate carries the terminal state written by MarkReviewed.
type ReviewUpdate struct {
	Status          Status
	ReviewedBy      int64
	ReviewedAt      time.Time
	Notes           string
	RejectionReason string
}

// MarkReviewed moves a pending request to a terminal state. The status
// guard in the WHERE clause makes concurrent reviews race-safe: exactly
// one wins, the rest see no rows updated.
func (r *Repository) MarkReviewed(ctx context.Context, id uuid.UUID, update ReviewUpdate) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE item_requests
SET status=$2, reviewed_by=$3, reviewed_at=$4, notes=$5, rejection_reason=$6
WHERE id=$1 AND status='PENDING'`,
		id, string(update.Status), update.ReviewedBy, update.ReviewedAt, update.Notes, update.RejectionReason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) listLines(ctx context.Context, requestID uuid.UUID) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, item_id, item_name, quantity, unit_price, total_price, reason
FROM item_request_lines WHERE request_id=$1 ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.RequestID, &li.ItemID, &li.ItemName, &li.Quantity, &li.UnitPrice, &li.TotalPrice, &li.Reason); err != nil {
			return nil, err
		}
		lines = append(lines, li)
	}
	return lines, rows.Err()
}

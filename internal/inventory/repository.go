package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txStore{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	BranchID int64
	Status   StockStatus
	Limit    int
	Offset   int
}

// GetRecord fetches the current record for (item, branch).
func (r *Repository) GetRecord(ctx context.Context, itemID, branchID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT item_id, branch_id, item_name, category, quantity, reorder_threshold, unit_price, supplier, updated_at
FROM inventory_records WHERE item_id=$1 AND branch_id=$2`, itemID, branchID).
		Scan(&rec.ItemID, &rec.BranchID, &rec.ItemName, &rec.Category, &rec.Quantity, &rec.ReorderThreshold, &rec.UnitPrice, &rec.Supplier, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// ListRecords lists records, optionally scoped to a branch.
func (r *Repository) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT item_id, branch_id, item_name, category, quantity, reorder_threshold, unit_price, supplier, updated_at
FROM inventory_records
WHERE ($1 = 0 OR branch_id = $1)
ORDER BY branch_id, item_name
LIMIT $2 OFFSET $3`, filter.BranchID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ItemID, &rec.BranchID, &rec.ItemName, &rec.Category, &rec.Quantity, &rec.ReorderThreshold, &rec.UnitPrice, &rec.Supplier, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if filter.Status != "" && rec.Status() != filter.Status {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListAvailability returns per-branch quantities of one item across all
// branches, used by the fulfillment planner.
func (r *Repository) ListAvailability(ctx context.Context, itemID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, branch_id, item_name, category, quantity, reorder_threshold, unit_price, supplier, updated_at
FROM inventory_records WHERE item_id=$1 ORDER BY quantity DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ItemID, &rec.BranchID, &rec.ItemName, &rec.Category, &rec.Quantity, &rec.ReorderThreshold, &rec.UnitPrice, &rec.Supplier, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	ItemID   int64
	BranchID int64
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// ListLedger lists ledger entries oldest first.
func (r *Repository) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, branch_id, direction, quantity, previous_quantity, new_quantity, actor_id, reason, ref_module, COALESCE(ref_id::text, ''), at
FROM stock_ledger
WHERE ($1 = 0 OR item_id = $1) AND ($2 = 0 OR branch_id = $2)
  AND at BETWEEN COALESCE($3, '-infinity') AND COALESCE($4, 'infinity')
ORDER BY at ASC, id ASC
LIMIT $5 OFFSET $6`, filter.ItemID, filter.BranchID, nullTime(filter.From), nullTime(filter.To), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		var direction string
		if err := rows.Scan(&e.ID, &e.ItemID, &e.BranchID, &direction, &e.Quantity, &e.PreviousQuantity, &e.NewQuantity, &e.ActorID, &e.Reason, &e.RefModule, &e.RefID, &e.At); err != nil {
			return nil, err
		}
		e.Direction = Direction(direction)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// NewTxStore wraps an open transaction in a TxStore. Other modules embed
// this in their own transaction stores so their writes and the paired
// stock movements commit together.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetRecordForUpdate(ctx context.Context, itemID, branchID int64) (Record, error) {
	var rec Record
	err := s.tx.QueryRow(ctx, `SELECT item_id, branch_id, item_name, category, quantity, reorder_threshold, unit_price, supplier, updated_at
FROM inventory_records WHERE item_id=$1 AND branch_id=$2 FOR UPDATE`, itemID, branchID).
		Scan(&rec.ItemID, &rec.BranchID, &rec.ItemName, &rec.Category, &rec.Quantity, &rec.ReorderThreshold, &rec.UnitPrice, &rec.Supplier, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *txStore) UpsertRecord(ctx context.Context, record Record) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO inventory_records (item_id, branch_id, item_name, category, quantity, reorder_threshold, unit_price, supplier, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
ON CONFLICT (item_id, branch_id) DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=NOW()`,
		record.ItemID, record.BranchID, record.ItemName, record.Category, record.Quantity, record.ReorderThreshold, record.UnitPrice, record.Supplier)
	return err
}

func (s *txStore) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO stock_ledger (item_id, branch_id, direction, quantity, previous_quantity, new_quantity, actor_id, reason, ref_module, ref_id, at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		entry.ItemID, entry.BranchID, string(entry.Direction), entry.Quantity, entry.PreviousQuantity, entry.NewQuantity,
		nullInt(entry.ActorID), entry.Reason, entry.RefModule, nullUUID(entry.RefID), entry.At).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullUUID(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	records map[string]Record
	ledger  []LedgerEntry
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]Record)}
}

func key(itemID, branchID int64) string {
	return fmt.Sprintf("%d:%d", itemID, branchID)
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetRecord(ctx context.Context, itemID, branchID int64) (Record, error) {
	rec, ok := r.records[key(itemID, branchID)]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	records := []Record{}
	for _, rec := range r.records {
		if filter.BranchID != 0 && rec.BranchID != filter.BranchID {
			continue
		}
		if filter.Status != "" && rec.Status() != filter.Status {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *memoryRepo) ListAvailability(ctx context.Context, itemID int64) ([]Record, error) {
	records := []Record{}
	for _, rec := range r.records {
		if rec.ItemID == itemID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryRepo) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	entries := []LedgerEntry{}
	for _, e := range r.ledger {
		if filter.ItemID != 0 && e.ItemID != filter.ItemID {
			continue
		}
		if filter.BranchID != 0 && e.BranchID != filter.BranchID {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (tx *memoryTx) GetRecordForUpdate(ctx context.Context, itemID, branchID int64) (Record, error) {
	return tx.repo.GetRecord(ctx, itemID, branchID)
}

func (tx *memoryTx) UpsertRecord(ctx context.Context, record Record) error {
	tx.repo.records[key(record.ItemID, record.BranchID)] = record
	return nil
}

func (tx *memoryTx) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.ledger = append(tx.repo.ledger, entry)
	return entry.ID, nil
}

// ledgerSum recomputes quantity from the ledger for one (item, branch).
func (r *memoryRepo) ledgerSum(itemID, branchID int64) int64 {
	var sum int64
	for _, e := range r.ledger {
		if e.ItemID != itemID || e.BranchID != branchID {
			continue
		}
		switch e.Direction {
		case DirectionIn:
			sum += e.Quantity
		case DirectionOut:
			sum -= e.Quantity
		}
	}
	return sum
}

func TestStockInCreatesRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	entry, err := svc.StockIn(ctx, StockInInput{
		ItemID:   1,
		BranchID: 10,
		Quantity: 12,
		Reason:   "initial delivery",
		ActorID:  7,
		Attributes: &Attributes{
			ItemName:         "Shampoo",
			ReorderThreshold: 5,
			UnitPrice:        350,
			Supplier:         "Glow Supplies",
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), entry.PreviousQuantity)
	require.Equal(t, int64(12), entry.NewQuantity)

	rec, err := svc.GetRecord(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "Shampoo", rec.ItemName)
	require.Equal(t, int64(12), rec.Quantity)
	require.Equal(t, StockStatusIn, rec.Status())
	require.Equal(t, rec.Quantity, repo.ledgerSum(1, 10))
}

func TestStockOutGuardsNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.StockIn(ctx, StockInInput{ItemID: 1, BranchID: 10, Quantity: 3, Reason: "seed"})
	require.NoError(t, err)

	_, err = svc.StockOut(ctx, StockOutInput{ItemID: 1, BranchID: 10, Quantity: 5, Reason: "sale"})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// quantity untouched by the rejected movement
	rec, err := svc.GetRecord(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.Quantity)
	require.Equal(t, rec.Quantity, repo.ledgerSum(1, 10))
}

func TestStockOutUnknownRecord(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.StockOut(context.Background(), StockOutInput{ItemID: 99, BranchID: 10, Quantity: 1, Reason: "sale"})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestLedgerRecordAgreement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.StockIn(ctx, StockInInput{ItemID: 1, BranchID: 10, Quantity: 20, Reason: "delivery"})
	require.NoError(t, err)
	_, err = svc.StockOut(ctx, StockOutInput{ItemID: 1, BranchID: 10, Quantity: 8, Reason: "sale"})
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, StockInInput{ItemID: 1, BranchID: 10, Quantity: 5, Reason: "return"})
	require.NoError(t, err)

	rec, err := svc.GetRecord(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(17), rec.Quantity)
	require.Equal(t, rec.Quantity, repo.ledgerSum(1, 10))

	entries, err := svc.ListLedger(ctx, LedgerFilter{ItemID: 1, BranchID: 10})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// each entry carries a consistent before/after pair
	for _, e := range entries {
		switch e.Direction {
		case DirectionIn:
			require.Equal(t, e.PreviousQuantity+e.Quantity, e.NewQuantity)
		case DirectionOut:
			require.Equal(t, e.PreviousQuantity-e.Quantity, e.NewQuantity)
		}
	}
}

func TestStatusDerivation(t *testing.T) {
	rec := Record{Quantity: 0, ReorderThreshold: 5}
	require.Equal(t, StockStatusOut, rec.Status())
	rec.Quantity = 5
	require.Equal(t, StockStatusLow, rec.Status())
	rec.Quantity = 6
	require.Equal(t, StockStatusIn, rec.Status())
}

func TestListLowStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.StockIn(ctx, StockInInput{ItemID: 1, BranchID: 10, Quantity: 2, Reason: "seed", Attributes: &Attributes{ItemName: "Conditioner", ReorderThreshold: 5}})
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, StockInInput{ItemID: 2, BranchID: 10, Quantity: 50, Reason: "seed", Attributes: &Attributes{ItemName: "Hair Oil", ReorderThreshold: 5}})
	require.NoError(t, err)

	low, err := svc.ListLowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, int64(1), low[0].ItemID)
}

func TestInvalidQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.StockIn(context.Background(), StockInInput{ItemID: 1, BranchID: 1, Quantity: 0, Reason: "x"})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

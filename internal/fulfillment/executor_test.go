package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/purchasing"
	"github.com/glowline/glowline-backend/internal/transfers"
)

// fakeStore commits the transaction state only when the callback
// succeeds, so rollback behaviour is observable in tests.
type fakeStore struct {
	records   map[string]inventory.Record
	ledger    []inventory.LedgerEntry
	transfers []transfers.Transfer
	lines     []transfers.LineItem
	orders    []purchasing.PurchaseOrder
	orderLine []purchasing.LineItem

	nextSeq     int64
	failOn      string
	failOnCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]inventory.Record)}
}

func storeKey(itemID, branchID int64) string {
	return fmt.Sprintf("%d:%d", itemID, branchID)
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx := &fakeTx{store: s, records: make(map[string]inventory.Record, len(s.records))}
	for k, v := range s.records {
		tx.records[k] = v
	}
	tx.ledger = append(tx.ledger, s.ledger...)
	tx.transfers = append(tx.transfers, s.transfers...)
	tx.lines = append(tx.lines, s.lines...)
	tx.orders = append(tx.orders, s.orders...)
	tx.orderLine = append(tx.orderLine, s.orderLine...)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.records = tx.records
	s.ledger = tx.ledger
	s.transfers = tx.transfers
	s.lines = tx.lines
	s.orders = tx.orders
	s.orderLine = tx.orderLine
	return nil
}

type fakeTx struct {
	store     *fakeStore
	records   map[string]inventory.Record
	ledger    []inventory.LedgerEntry
	transfers []transfers.Transfer
	lines     []transfers.LineItem
	orders    []purchasing.PurchaseOrder
	orderLine []purchasing.LineItem
}

func (tx *fakeTx) maybeFail(op string) error {
	if tx.store.failOn == op {
		tx.store.failOnCount++
		return errors.New("storage failure injected")
	}
	return nil
}

func (tx *fakeTx) GetRecordForUpdate(ctx context.Context, itemID, branchID int64) (inventory.Record, error) {
	rec, ok := tx.records[storeKey(itemID, branchID)]
	if !ok {
		return inventory.Record{}, inventory.ErrRecordNotFound
	}
	return rec, nil
}

func (tx *fakeTx) UpsertRecord(ctx context.Context, record inventory.Record) error {
	tx.records[storeKey(record.ItemID, record.BranchID)] = record
	return nil
}

func (tx *fakeTx) InsertLedgerEntry(ctx context.Context, entry inventory.LedgerEntry) (int64, error) {
	entry.ID = int64(len(tx.ledger) + 1)
	tx.ledger = append(tx.ledger, entry)
	return entry.ID, nil
}

func (tx *fakeTx) NextTransferNumber(ctx context.Context) (string, error) {
	tx.store.nextSeq++
	return fmt.Sprintf("TRF-2026-%06d", tx.store.nextSeq), nil
}

func (tx *fakeTx) NextOrderNumber(ctx context.Context) (string, error) {
	tx.store.nextSeq++
	return fmt.Sprintf("PO-2026-%06d", tx.store.nextSeq), nil
}

func (tx *fakeTx) InsertTransfer(ctx context.Context, t transfers.Transfer) error {
	if err := tx.maybeFail("insert_transfer"); err != nil {
		return err
	}
	tx.transfers = append(tx.transfers, t)
	return nil
}

func (tx *fakeTx) InsertTransferLine(ctx context.Context, li transfers.LineItem) error {
	tx.lines = append(tx.lines, li)
	return nil
}

func (tx *fakeTx) InsertOrder(ctx context.Context, po purchasing.PurchaseOrder) error {
	if err := tx.maybeFail("insert_order"); err != nil {
		return err
	}
	tx.orders = append(tx.orders, po)
	return nil
}

func (tx *fakeTx) InsertOrderLine(ctx context.Context, li purchasing.LineItem) error {
	tx.orderLine = append(tx.orderLine, li)
	return nil
}

func (s *fakeStore) totalQuantity(itemID int64) int64 {
	var total int64
	for _, rec := range s.records {
		if rec.ItemID == itemID {
			total += rec.Quantity
		}
	}
	return total
}

func (s *fakeStore) ledgerSum(itemID, branchID int64) int64 {
	var sum int64
	for _, e := range s.ledger {
		if e.ItemID != itemID || e.BranchID != branchID {
			continue
		}
		if e.Direction == inventory.DirectionIn {
			sum += e.Quantity
		} else {
			sum -= e.Quantity
		}
	}
	return sum
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedRecord books an opening balance through the ledger so the fixture
// itself satisfies the ledger/record agreement the tests assert on.
func seedRecord(s *fakeStore, itemID, branchID, qty int64) {
	s.records[storeKey(itemID, branchID)] = inventory.Record{
		ItemID: itemID, BranchID: branchID, ItemName: "Shampoo",
		Quantity: qty, ReorderThreshold: 2, UnitPrice: 300, Supplier: "Glow Supplies",
	}
	s.ledger = append(s.ledger, inventory.LedgerEntry{
		ID: int64(len(s.ledger) + 1), ItemID: itemID, BranchID: branchID,
		Direction: inventory.DirectionIn, Quantity: qty, NewQuantity: qty,
		Reason: "opening balance", RefModule: "SEED",
	})
}

var testRequestedAt = time.Date(2026, 8, 10, 9, 30, 0, 0, time.UTC)

func testRef() RequestRef {
	return RequestRef{ID: uuid.New(), Number: "REQ-2026-000042", BranchID: 1, RequestedBy: 5, RequestedAt: testRequestedAt, ActorID: 9}
}

func TestExecuteAppliesTransfersAndOrder(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 2, 10)
	seedRecord(store, 7, 3, 5)
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{
		ItemID: 7, ItemName: "Shampoo",
		Transfers: []PlanTransfer{
			{FromBranchID: 2, Quantity: 4},
			{FromBranchID: 3, Quantity: 3},
		},
		PurchaseQuantity: 2, PurchasePrice: 280,
	}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)
	require.Len(t, report.Applied, 3)
	require.Empty(t, report.Failed)

	// source branches debited, destination credited
	require.Equal(t, int64(6), store.records[storeKey(7, 2)].Quantity)
	require.Equal(t, int64(2), store.records[storeKey(7, 3)].Quantity)
	require.Equal(t, int64(9), store.records[storeKey(7, 1)].Quantity)

	// transfers conserve stock; only the purchase adds to the total
	require.Equal(t, int64(17), store.totalQuantity(7))

	// two opening balances, then two OUT + two IN for the transfers and
	// one IN for the purchase
	require.Len(t, store.ledger, 7)
	for _, branch := range []int64{1, 2, 3} {
		rec := store.records[storeKey(7, branch)]
		require.Equal(t, rec.Quantity, store.ledgerSum(7, branch))
	}

	require.Len(t, store.transfers, 2)
	for _, tr := range store.transfers {
		require.Equal(t, transfers.StatusCompleted, tr.Status)
		require.Equal(t, int64(1), tr.ToBranchID)
	}
	require.Len(t, store.orders, 1)
	require.Equal(t, purchasing.StatusOrdered, store.orders[0].Status)
	require.Equal(t, float64(2*280), store.orders[0].TotalAmount)
	require.Len(t, store.orderLine, 1)

	// the order carries the original request's requester and date, not
	// the execution time
	require.Equal(t, int64(5), store.orders[0].RequestedBy)
	require.Equal(t, testRequestedAt, store.orders[0].RequestedAt)
}

func TestExecuteDestinationRecordInheritsAttributes(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 2, 10)
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{ItemID: 7, ItemName: "Shampoo", Transfers: []PlanTransfer{{FromBranchID: 2, Quantity: 4}}}}
	_, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)

	dest := store.records[storeKey(7, 1)]
	require.Equal(t, "Shampoo", dest.ItemName)
	require.Equal(t, int64(2), dest.ReorderThreshold)
	require.Equal(t, "Glow Supplies", dest.Supplier)
}

func TestExecuteSkipsInsufficientLines(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 2, 3)
	seedRecord(store, 7, 3, 10)
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{
		ItemID: 7, ItemName: "Shampoo",
		Transfers: []PlanTransfer{
			{FromBranchID: 2, Quantity: 5}, // more than branch 2 has
			{FromBranchID: 3, Quantity: 5},
			{FromBranchID: 4, Quantity: 1}, // no record at all
		},
	}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)
	require.Len(t, report.Applied, 1)
	require.Len(t, report.Failed, 2)
	require.Equal(t, int64(2), report.Failed[0].FromBranchID)
	require.Equal(t, int64(4), report.Failed[1].FromBranchID)

	// the failed lines left their sources untouched
	require.Equal(t, int64(3), store.records[storeKey(7, 2)].Quantity)
	require.Equal(t, int64(5), store.records[storeKey(7, 3)].Quantity)
	require.Equal(t, int64(5), store.records[storeKey(7, 1)].Quantity)
	require.Len(t, store.transfers, 1)
}

func TestExecutePurchaseAppliesWhenTransferFails(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 2, 6)
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{
		ItemID: 7, ItemName: "Shampoo",
		Transfers:        []PlanTransfer{{FromBranchID: 2, Quantity: 10}},
		PurchaseQuantity: 5, PurchasePrice: 350,
	}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)
	require.Len(t, report.Applied, 1)
	require.Equal(t, KindPurchase, report.Applied[0].Kind)
	require.Len(t, report.Failed, 1)
	require.Contains(t, report.Failed[0].Reason, "insufficient stock")

	// the failed transfer left its source untouched, only the purchase landed
	require.Equal(t, int64(6), store.records[storeKey(7, 2)].Quantity)
	require.Equal(t, int64(5), store.records[storeKey(7, 1)].Quantity)
	require.Empty(t, store.transfers)
	require.Len(t, store.orders, 1)
}

func TestExecuteAllLinesFail(t *testing.T) {
	store := newFakeStore()
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{ItemID: 7, ItemName: "Shampoo", Transfers: []PlanTransfer{{FromBranchID: 2, Quantity: 5}}}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)
	require.True(t, report.AllFailed())
	require.Empty(t, store.ledger)
	require.Empty(t, store.transfers)
}

func TestExecuteStorageErrorRollsBack(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 2, 10)
	store.failOn = "insert_transfer"
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{
		ItemID: 7, ItemName: "Shampoo",
		Transfers:        []PlanTransfer{{FromBranchID: 2, Quantity: 4}},
		PurchaseQuantity: 2, PurchasePrice: 280,
	}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.Error(t, err)
	require.True(t, report.AllFailed())
	require.Len(t, report.Failed, 2)

	// nothing committed beyond the opening balance
	require.Equal(t, int64(10), store.records[storeKey(7, 2)].Quantity)
	require.Len(t, store.ledger, 1)
	require.Equal(t, store.records[storeKey(7, 2)].Quantity, store.ledgerSum(7, 2))
	require.Empty(t, store.transfers)
	require.Empty(t, store.orders)
}

func TestExecuteRejectsSelfTransfer(t *testing.T) {
	store := newFakeStore()
	seedRecord(store, 7, 1, 10)
	exec := NewExecutor(testLogger(), store, nil)

	plan := Plan{{ItemID: 7, ItemName: "Shampoo", Transfers: []PlanTransfer{{FromBranchID: 1, Quantity: 2}}}}
	report, err := exec.Execute(context.Background(), testRef(), plan)
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	require.Contains(t, report.Failed[0].Reason, "requesting branch")
}

func TestExecuteEmptyPlan(t *testing.T) {
	exec := NewExecutor(testLogger(), newFakeStore(), nil)
	report, err := exec.Execute(context.Background(), testRef(), nil)
	require.NoError(t, err)
	require.Empty(t, report.Applied)
	require.Empty(t, report.Failed)
}

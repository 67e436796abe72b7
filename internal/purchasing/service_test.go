package purchasing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/shared"
)

type fakeRepo struct {
	orders  map[uuid.UUID]*PurchaseOrder
	lines   map[uuid.UUID][]LineItem
	records map[string]inventory.Record
	ledger  []inventory.LedgerEntry
	nextID  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:  make(map[uuid.UUID]*PurchaseOrder),
		lines:   make(map[uuid.UUID][]LineItem),
		records: make(map[string]inventory.Record),
	}
}

func recordKey(itemID, branchID int64) string {
	return fmt.Sprintf("%d:%d", itemID, branchID)
}

func (r *fakeRepo) Get(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, shared.ErrNotFound
	}
	out := *po
	out.Lines = r.lines[id]
	return out, nil
}

func (r *fakeRepo) List(ctx context.Context, filter Filter) ([]PurchaseOrder, error) {
	out := []PurchaseOrder{}
	for _, po := range r.orders {
		if filter.BranchID != 0 && po.BranchID != filter.BranchID {
			continue
		}
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		out = append(out, *po)
	}
	return out, nil
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &fakeTx{repo: r})
}

type fakeTx struct {
	repo *fakeRepo
}

func (tx *fakeTx) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (PurchaseOrder, error) {
	return tx.repo.Get(ctx, id)
}

func (tx *fakeTx) ListLines(ctx context.Context, orderID uuid.UUID) ([]LineItem, error) {
	return tx.repo.lines[orderID], nil
}

func (tx *fakeTx) SetStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) (bool, error) {
	po, ok := tx.repo.orders[id]
	if !ok || po.Status != from {
		return false, nil
	}
	po.Status = to
	if to == StatusReceived {
		po.ReceivedAt = at
	}
	return true, nil
}

func (tx *fakeTx) GetRecordForUpdate(ctx context.Context, itemID, branchID int64) (inventory.Record, error) {
	rec, ok := tx.repo.records[recordKey(itemID, branchID)]
	if !ok {
		return inventory.Record{}, inventory.ErrRecordNotFound
	}
	return rec, nil
}

func (tx *fakeTx) UpsertRecord(ctx context.Context, record inventory.Record) error {
	tx.repo.records[recordKey(record.ItemID, record.BranchID)] = record
	return nil
}

func (tx *fakeTx) InsertLedgerEntry(ctx context.Context, entry inventory.LedgerEntry) (int64, error) {
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.ledger = append(tx.repo.ledger, entry)
	return entry.ID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOrder(repo *fakeRepo, status Status, quantity int64) uuid.UUID {
	id := uuid.New()
	repo.orders[id] = &PurchaseOrder{
		ID:       id,
		Number:   "PO-2026-000001",
		Supplier: "Glow Supplies",
		BranchID: 10,
		Status:   status,
	}
	repo.lines[id] = []LineItem{{ID: 1, OrderID: id, ItemID: 5, ItemName: "Shampoo", Quantity: quantity, UnitPrice: 300, TotalPrice: float64(quantity) * 300}}
	return id
}

func manager() *shared.Actor {
	return &shared.Actor{ID: 3, Role: shared.RoleBranchManager, BranchID: 10}
}

func TestReceiveOrdered(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusOrdered, 10)
	svc := NewService(testLogger(), repo, nil)

	po, err := svc.Receive(context.Background(), manager(), id)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, po.Status)
	require.False(t, po.ReceivedAt.IsZero())
}

func TestReceiveWrongState(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusRequested, 10)
	svc := NewService(testLogger(), repo, nil)

	_, err := svc.Receive(context.Background(), manager(), id)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestReceiveForbidden(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusOrdered, 10)
	svc := NewService(testLogger(), repo, nil)

	staff := &shared.Actor{ID: 9, Role: shared.RoleStaff, BranchID: 10}
	_, err := svc.Receive(context.Background(), staff, id)
	require.ErrorIs(t, err, shared.ErrForbidden)

	otherBranch := &shared.Actor{ID: 4, Role: shared.RoleBranchManager, BranchID: 99}
	_, err = svc.Receive(context.Background(), otherBranch, id)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCancelOrderedReversesStock(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusOrdered, 10)
	repo.records[recordKey(5, 10)] = inventory.Record{ItemID: 5, BranchID: 10, ItemName: "Shampoo", Quantity: 10}
	svc := NewService(testLogger(), repo, nil)

	po, err := svc.Cancel(context.Background(), manager(), id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, po.Status)
	require.Equal(t, int64(0), repo.records[recordKey(5, 10)].Quantity)
	require.Len(t, repo.ledger, 1)
	require.Equal(t, inventory.DirectionOut, repo.ledger[0].Direction)
	require.Equal(t, "PURCHASING", repo.ledger[0].RefModule)
}

func TestCancelRefusedWhenStockConsumed(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusOrdered, 10)
	repo.records[recordKey(5, 10)] = inventory.Record{ItemID: 5, BranchID: 10, ItemName: "Shampoo", Quantity: 4}
	svc := NewService(testLogger(), repo, nil)

	_, err := svc.Cancel(context.Background(), manager(), id)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, StatusOrdered, repo.orders[id].Status)
}

func TestCancelRequestedSkipsStock(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusRequested, 10)
	svc := NewService(testLogger(), repo, nil)

	po, err := svc.Cancel(context.Background(), manager(), id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, po.Status)
	require.Empty(t, repo.ledger)
}

func TestCancelTerminalState(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusReceived, 10)
	svc := NewService(testLogger(), repo, nil)

	_, err := svc.Cancel(context.Background(), manager(), id)
	require.ErrorIs(t, err, shared.ErrConflict)
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (a *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAuditStampsOrderBranch(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusOrdered, 10)
	audit := &fakeAudit{}
	svc := NewService(testLogger(), repo, audit)

	// admins carry no branch of their own; the event still belongs to
	// the order's branch
	admin := &shared.Actor{ID: 1, Role: shared.RoleAdmin}
	_, err := svc.Receive(context.Background(), admin, id)
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "purchase_order.receive", audit.logs[0].Action)
	require.Equal(t, int64(10), audit.logs[0].BranchID)
	require.Equal(t, int64(1), audit.logs[0].ActorID)
}

func TestCancelAuditStampsOrderBranch(t *testing.T) {
	repo := newFakeRepo()
	id := seedOrder(repo, StatusRequested, 10)
	audit := &fakeAudit{}
	svc := NewService(testLogger(), repo, audit)

	admin := &shared.Actor{ID: 1, Role: shared.RoleAdmin}
	_, err := svc.Cancel(context.Background(), admin, id)
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "purchase_order.cancel", audit.logs[0].Action)
	require.Equal(t, int64(10), audit.logs[0].BranchID)
}

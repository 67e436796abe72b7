package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/glowline/glowline-backend/internal/inventory"
)

type fakeInventory struct {
	low      map[int64][]inventory.Record
	lastScan int64
}

func (f *fakeInventory) ListLowStock(ctx context.Context, branchID int64) ([]inventory.Record, error) {
	f.lastScan = branchID
	return f.low[branchID], nil
}

func TestLowStockScanHandlesPayload(t *testing.T) {
	inv := &fakeInventory{low: map[int64][]inventory.Record{
		10: {{ItemID: 7, BranchID: 10, ItemName: "Shampoo", Quantity: 1, ReorderThreshold: 5, UnitPrice: 300}},
	}}
	scanner := NewLowStockScanner(slog.New(slog.NewTextHandler(io.Discard, nil)), inv)

	task, err := NewLowStockScanTask(10)
	require.NoError(t, err)
	require.Equal(t, TaskLowStockScan, task.Type())

	require.NoError(t, scanner.Handle(context.Background(), task))
	require.Equal(t, int64(10), inv.lastScan)
}

func TestLowStockScanRejectsBadPayload(t *testing.T) {
	scanner := NewLowStockScanner(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeInventory{})
	err := scanner.Handle(context.Background(), asynq.NewTask(TaskLowStockScan, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCleanup struct {
	olderThan time.Duration
}

func (f *fakeCleanup) Cleanup(ctx context.Context, olderThan time.Duration) error {
	f.olderThan = olderThan
	return nil
}

func TestIdempotencyJanitorDefaultsRetention(t *testing.T) {
	store := &fakeCleanup{}
	janitor := NewIdempotencyJanitor(slog.New(slog.NewTextHandler(io.Discard, nil)), store, 0)

	require.NoError(t, janitor.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, 24*time.Hour, store.olderThan)
}

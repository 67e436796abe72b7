package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/glowline/glowline-backend/internal/inventory"
)

type fakeAvailability struct {
	records map[int64][]inventory.Record
	calls   int
}

func (f *fakeAvailability) ListAvailability(ctx context.Context, itemID int64) ([]inventory.Record, error) {
	f.calls++
	return f.records[itemID], nil
}

func TestSuggestPrefersLargestSurplus(t *testing.T) {
	inv := &fakeAvailability{records: map[int64][]inventory.Record{
		7: {
			{ItemID: 7, BranchID: 2, Quantity: 20, ReorderThreshold: 5, UnitPrice: 300},
			{ItemID: 7, BranchID: 3, Quantity: 8, ReorderThreshold: 5, UnitPrice: 310},
			{ItemID: 7, BranchID: 1, Quantity: 1, ReorderThreshold: 5}, // requesting branch, skipped
		},
	}}
	planner := NewPlanner(testLogger(), inv, nil, 0)

	plan, err := planner.Suggest(context.Background(), uuid.New(), 1, []Demand{
		{ItemID: 7, ItemName: "Shampoo", Quantity: 10, UnitPrice: 280},
	})
	require.NoError(t, err)
	require.Len(t, plan, 1)

	entry := plan[0]
	require.Len(t, entry.Transfers, 1)
	require.Equal(t, int64(2), entry.Transfers[0].FromBranchID)
	require.Equal(t, int64(10), entry.Transfers[0].Quantity)
	require.Zero(t, entry.PurchaseQuantity)
}

func TestSuggestFallsBackToPurchase(t *testing.T) {
	inv := &fakeAvailability{records: map[int64][]inventory.Record{
		7: {
			{ItemID: 7, BranchID: 2, Quantity: 6, ReorderThreshold: 5, UnitPrice: 300},
			{ItemID: 7, BranchID: 3, Quantity: 4, ReorderThreshold: 5},
		},
	}}
	planner := NewPlanner(testLogger(), inv, nil, 0)

	plan, err := planner.Suggest(context.Background(), uuid.New(), 1, []Demand{
		{ItemID: 7, ItemName: "Shampoo", Quantity: 10, UnitPrice: 280},
	})
	require.NoError(t, err)
	require.Len(t, plan, 1)

	entry := plan[0]
	// only branch 2 has surplus (1 above threshold); the rest is purchased
	require.Len(t, entry.Transfers, 1)
	require.Equal(t, int64(1), entry.Transfers[0].Quantity)
	require.Equal(t, int64(9), entry.PurchaseQuantity)
	require.Equal(t, float64(280), entry.PurchasePrice)
}

func TestSuggestCachesPerRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inv := &fakeAvailability{records: map[int64][]inventory.Record{
		7: {{ItemID: 7, BranchID: 2, Quantity: 20, ReorderThreshold: 5}},
	}}
	planner := NewPlanner(testLogger(), inv, client, time.Minute)
	requestID := uuid.New()
	demands := []Demand{{ItemID: 7, ItemName: "Shampoo", Quantity: 3}}

	first, err := planner.Suggest(context.Background(), requestID, 1, demands)
	require.NoError(t, err)
	second, err := planner.Suggest(context.Background(), requestID, 1, demands)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inv.calls)
}

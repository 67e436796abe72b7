package perf

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/fulfillment"
	"github.com/glowline/glowline-backend/internal/inventory"
)

type wideAvailability struct {
	records []inventory.Record
}

func (w *wideAvailability) ListAvailability(ctx context.Context, itemID int64) ([]inventory.Record, error) {
	return w.records, nil
}

// BenchmarkPlannerSuggest measures plan construction across a wide branch
// network with an uncached planner, the worst case for a reviewer opening
// the availability view.
func BenchmarkPlannerSuggest(b *testing.B) {
	inv := &wideAvailability{}
	for branch := int64(2); branch <= 200; branch++ {
		inv.records = append(inv.records, inventory.Record{
			ItemID: 7, BranchID: branch, ItemName: "Keratin Shampoo",
			Quantity: branch % 17, ReorderThreshold: 3, UnitPrice: 185,
		})
	}
	planner := fulfillment.NewPlanner(slog.New(slog.NewTextHandler(io.Discard, nil)), inv, nil, 0)
	demands := []fulfillment.Demand{{ItemID: 7, ItemName: "Keratin Shampoo", Quantity: 500, UnitPrice: 185}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		requestID := uuid.New()
		if _, err := planner.Suggest(context.Background(), requestID, 1, demands); err != nil {
			b.Fatal(err)
		}
	}
}

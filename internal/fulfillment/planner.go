package fulfillment

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/glowline/glowline-backend/internal/inventory"
)

// InventoryPort exposes the cross-branch availability the planner reads.
type InventoryPort interface {
	ListAvailability(ctx context.Context, itemID int64) ([]inventory.Record, error)
}

// Demand is one requested item the planner finds sources for.
type Demand struct {
	ItemID    int64
	ItemName  string
	Quantity  int64
	UnitPrice float64
}

// Planner suggests a fulfillment plan from current cross-branch stock.
// Branches only offer quantity above their own reorder threshold; any
// remainder becomes a purchase order line. Suggestions are advisory: the
// reviewer can edit the plan before approving, and the executor re-checks
// stock under row locks.
type Planner struct {
	logger *slog.Logger
	inv    InventoryPort
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewPlanner constructs Planner. The cache client may be nil.
func NewPlanner(logger *slog.Logger, inv InventoryPort, cache *redis.Client, ttl time.Duration) *Planner {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Planner{logger: logger, inv: inv, cache: cache, ttl: ttl}
}

// Suggest builds a plan for the request's demands. Concurrent calls for
// the same request share one computation, and results are cached briefly
// so a reviewer refreshing the page does not rescan every branch.
func (p *Planner) Suggest(ctx context.Context, requestID uuid.UUID, branchID int64, demands []Demand) (Plan, error) {
	key := "plan:" + requestID.String()
	if plan, ok := p.cached(ctx, key); ok {
		return plan, nil
	}
	result, err, _ := p.group.Do(key, func() (any, error) {
		plan, err := p.build(ctx, branchID, demands)
		if err != nil {
			return nil, err
		}
		p.store(ctx, key, plan)
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Plan), nil
}

func (p *Planner) build(ctx context.Context, branchID int64, demands []Demand) (Plan, error) {
	plan := Plan{}
	for _, d := range demands {
		if d.Quantity <= 0 {
			continue
		}
		entry := PlanEntry{ItemID: d.ItemID, ItemName: d.ItemName}
		records, err := p.inv.ListAvailability(ctx, d.ItemID)
		if err != nil {
			return nil, err
		}
		sources := make([]inventory.Record, 0, len(records))
		for _, rec := range records {
			if rec.BranchID == branchID {
				continue
			}
			if surplus(rec) > 0 {
				sources = append(sources, rec)
			}
		}
		sort.Slice(sources, func(i, j int) bool { return surplus(sources[i]) > surplus(sources[j]) })

		needed := d.Quantity
		for _, src := range sources {
			if needed == 0 {
				break
			}
			take := surplus(src)
			if take > needed {
				take = needed
			}
			entry.Transfers = append(entry.Transfers, PlanTransfer{
				FromBranchID: src.BranchID,
				Quantity:     take,
				UnitPrice:    src.UnitPrice,
			})
			needed -= take
		}
		if needed > 0 {
			entry.PurchaseQuantity = needed
			entry.PurchasePrice = d.UnitPrice
		}
		plan = append(plan, entry)
	}
	return plan, nil
}

// surplus is what a branch can give away without dropping below its own
// reorder threshold.
func surplus(rec inventory.Record) int64 {
	s := rec.Quantity - rec.ReorderThreshold
	if s < 0 {
		return 0
	}
	return s
}

func (p *Planner) cached(ctx context.Context, key string) (Plan, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, false
	}
	return plan, true
}

func (p *Planner) store(ctx context.Context, key string, plan Plan) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.ttl).Err(); err != nil && p.logger != nil {
		p.logger.Warn("cache fulfillment plan", slog.Any("error", err))
	}
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/glowline/glowline-backend/internal/inventory"
	jobmetrics "github.com/glowline/glowline-backend/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan re-checks a branch's stock levels after movements.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// LowStockScanPayload selects the branch to scan.
type LowStockScanPayload struct {
	BranchID int64 `json:"branch_id"`
}

// NewLowStockScanTask constructs an Asynq task for one branch.
func NewLowStockScanTask(branchID int64) (*asynq.Task, error) {
	data, err := json.Marshal(LowStockScanPayload{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// InventoryPort lists records at or below their reorder threshold.
type InventoryPort interface {
	ListLowStock(ctx context.Context, branchID int64) ([]inventory.Record, error)
}

// LowStockScanner reports items a branch should reorder. Runs after
// fulfillment touched a branch and on a periodic schedule.
type LowStockScanner struct {
	logger  *slog.Logger
	inv     InventoryPort
	metrics *jobmetrics.Metrics
	printer *message.Printer
}

// NewLowStockScanner constructs LowStockScanner.
func NewLowStockScanner(logger *slog.Logger, inv InventoryPort) *LowStockScanner {
	return &LowStockScanner{
		logger:  logger,
		inv:     inv,
		printer: message.NewPrinter(language.English),
	}
}

// WithMetrics attaches job instrumentation.
func (s *LowStockScanner) WithMetrics(metrics *jobmetrics.Metrics) *LowStockScanner {
	s.metrics = metrics
	return s
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := s.metrics.Track(TaskLowStockScan)
	records, err := s.inv.ListLowStock(ctx, payload.BranchID)
	if err != nil {
		return tracker.End(err)
	}
	s.metrics.AddLowStock(payload.BranchID, len(records))
	for _, rec := range records {
		s.logger.Warn("low stock",
			slog.Int64("branch_id", rec.BranchID),
			slog.Int64("item_id", rec.ItemID),
			slog.String("status", string(rec.Status())),
			slog.String("summary", s.printer.Sprintf("%s: %d on hand, threshold %d, restock value %.2f",
				rec.ItemName, rec.Quantity, rec.ReorderThreshold, float64(rec.ReorderThreshold-rec.Quantity+1)*rec.UnitPrice)),
		)
	}
	return tracker.End(nil)
}

// CleanupPort prunes stored idempotency keys.
type CleanupPort interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyJanitor drops idempotency keys past their retention window.
type IdempotencyJanitor struct {
	logger    *slog.Logger
	store     CleanupPort
	metrics   *jobmetrics.Metrics
	retention time.Duration
}

// NewIdempotencyJanitor constructs IdempotencyJanitor.
func NewIdempotencyJanitor(logger *slog.Logger, store CleanupPort, retention time.Duration) *IdempotencyJanitor {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyJanitor{logger: logger, store: store, retention: retention}
}

// WithMetrics attaches job instrumentation.
func (j *IdempotencyJanitor) WithMetrics(metrics *jobmetrics.Metrics) *IdempotencyJanitor {
	j.metrics = metrics
	return j
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyJanitor) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskIdempotencyCleanup)
	if err := j.store.Cleanup(ctx, j.retention); err != nil {
		return tracker.End(err)
	}
	j.logger.Info("idempotency keys pruned", slog.Duration("retention", j.retention))
	return tracker.End(nil)
}

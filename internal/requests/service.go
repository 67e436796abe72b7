package requests

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/fulfillment"
	"github.com/glowline/glowline-backend/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, req Request) (Request, error)
	Get(ctx context.Context, id uuid.UUID) (Request, error)
	List(ctx context.Context, filter Filter) ([]Request, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, update ReviewUpdate) (bool, error)
}

// ExecutorPort applies an approved fulfillment plan.
type ExecutorPort interface {
	Execute(ctx context.Context, ref fulfillment.RequestRef, plan fulfillment.Plan) (fulfillment.Report, error)
}

// PlannerPort suggests a fulfillment plan for a request.
type PlannerPort interface {
	Suggest(ctx context.Context, requestID uuid.UUID, branchID int64, demands []fulfillment.Demand) (fulfillment.Plan, error)
}

// TrailPort records who submitted, approved, or rejected a request.
type TrailPort interface {
	Record(ctx context.Context, entry shared.ReviewEntry) error
}

// AuditPort records audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// JobsPort schedules background work after a review.
type JobsPort interface {
	EnqueueLowStockScan(ctx context.Context, branchID int64) error
}

// ServiceDeps bundles the service's collaborators. Trail, Audit, and
// Jobs may be nil; the service degrades to skipping them.
type ServiceDeps struct {
	Logger   *slog.Logger
	Repo     RepositoryPort
	Executor ExecutorPort
	Planner  PlannerPort
	Trail    TrailPort
	Audit    AuditPort
	Jobs     JobsPort
}

// Service manages the item request lifecycle: submission, review, and
// the hand-off to fulfillment on approval.
type Service struct {
	deps ServiceDeps
}

// NewService constructs Service.
func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// LineInput is one requested item in a submission.
type LineInput struct {
	ItemID    int64
	ItemName  string
	Quantity  int64
	UnitPrice float64
	Reason    string
}

// CreateInput is a request submission.
type CreateInput struct {
	BranchID int64
	Notes    string
	Lines    []LineInput
}

// Create submits a new pending request for the branch.
func (s *Service) Create(ctx context.Context, actor *shared.Actor, input CreateInput) (Request, error) {
	branchID := input.BranchID
	if actor.BranchScoped() {
		if branchID == 0 {
			branchID = actor.BranchID
		}
		if branchID != actor.BranchID {
			return Request{}, shared.ErrForbidden
		}
	}
	if branchID == 0 {
		return Request{}, fmt.Errorf("%w: branch required", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return Request{}, fmt.Errorf("%w: at least one line required", shared.ErrValidation)
	}

	now := time.Now().UTC()
	req := Request{
		ID:          uuid.New(),
		BranchID:    branchID,
		Status:      StatusPending,
		RequestedBy: actor.ID,
		RequestedAt: now,
		Notes:       strings.TrimSpace(input.Notes),
		CreatedAt:   now,
	}
	for _, line := range input.Lines {
		if line.ItemID == 0 || strings.TrimSpace(line.ItemName) == "" {
			return Request{}, fmt.Errorf("%w: line item and name required", shared.ErrValidation)
		}
		if line.Quantity <= 0 {
			return Request{}, fmt.Errorf("%w: line quantity must be positive", shared.ErrValidation)
		}
		total := float64(line.Quantity) * line.UnitPrice
		req.Lines = append(req.Lines, LineItem{
			ItemID:     line.ItemID,
			ItemName:   strings.TrimSpace(line.ItemName),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: total,
			Reason:     strings.TrimSpace(line.Reason),
		})
		req.TotalAmount += total
	}

	created, err := s.deps.Repo.Create(ctx, req)
	if err != nil {
		return Request{}, err
	}
	s.recordTrail(ctx, created.ID, actor.ID, shared.ReviewSubmit, created.Notes)
	s.recordAudit(ctx, actor, "request.submit", created)
	return created, nil
}

// Get fetches a request visible to the actor.
func (s *Service) Get(ctx context.Context, actor *shared.Actor, id uuid.UUID) (Request, error) {
	req, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if actor.BranchScoped() && actor.BranchID != req.BranchID {
		return Request{}, shared.ErrForbidden
	}
	return req, nil
}

// List lists requests, forced to the actor's branch when scoped.
func (s *Service) List(ctx context.Context, actor *shared.Actor, filter Filter) ([]Request, error) {
	if actor.BranchScoped() {
		filter.BranchID = actor.BranchID
	}
	return s.deps.Repo.List(ctx, filter)
}

// Availability suggests a fulfillment plan from current cross-branch
// stock for a pending request.
func (s *Service) Availability(ctx context.Context, actor *shared.Actor, id uuid.UUID) (fulfillment.Plan, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Reviewed() {
		return nil, fmt.Errorf("%w: request already reviewed", shared.ErrConflict)
	}
	demands := make([]fulfillment.Demand, 0, len(req.Lines))
	for _, li := range req.Lines {
		demands = append(demands, fulfillment.Demand{
			ItemID:    li.ItemID,
			ItemName:  li.ItemName,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
	}
	return s.deps.Planner.Suggest(ctx, req.ID, req.BranchID, demands)
}

// ReviewInput is the reviewer's verdict. Plan is only read on approval.
type ReviewInput struct {
	Decision        Decision
	Notes           string
	RejectionReason string
	Plan            fulfillment.Plan
}

// ReviewResult pairs the reviewed request with the fulfillment report.
// Report is nil for rejections and plan-less approvals.
type ReviewResult struct {
	Request Request
	Report  *fulfillment.Report
}

// Review moves a pending request to APPROVED or REJECTED. Only admins
// and managers of the requesting branch may review. The status flip is
// guarded in the database, so of two racing reviewers exactly one wins.
//
// Approval is committed before fulfillment runs: a plan that fails,
// partially or entirely, never un-approves the request. The report tells
// the reviewer what needs manual follow-up.
func (s *Service) Review(ctx context.Context, actor *shared.Actor, id uuid.UUID, input ReviewInput) (ReviewResult, error) {
	req, err := s.deps.Repo.Get(ctx, id)
	if err != nil {
		return ReviewResult{}, err
	}
	if !actor.CanReview() {
		return ReviewResult{}, shared.ErrForbidden
	}
	if actor.BranchScoped() && actor.BranchID != req.BranchID {
		return ReviewResult{}, shared.ErrForbidden
	}
	if req.Reviewed() {
		return ReviewResult{}, fmt.Errorf("%w: request already reviewed", shared.ErrConflict)
	}

	update := ReviewUpdate{
		ReviewedBy: actor.ID,
		ReviewedAt: time.Now().UTC(),
		Notes:      mergeNotes(req.Notes, input.Notes),
	}
	switch input.Decision {
	case DecisionApprove:
		update.Status = StatusApproved
	case DecisionReject:
		reason := strings.TrimSpace(input.RejectionReason)
		if reason == "" {
			return ReviewResult{}, fmt.Errorf("%w: rejection reason required", shared.ErrValidation)
		}
		update.Status = StatusRejected
		update.RejectionReason = reason
	default:
		return ReviewResult{}, fmt.Errorf("%w: unknown decision %q", shared.ErrValidation, input.Decision)
	}

	updated, err := s.deps.Repo.MarkReviewed(ctx, id, update)
	if err != nil {
		return ReviewResult{}, err
	}
	if !updated {
		return ReviewResult{}, fmt.Errorf("%w: request already reviewed", shared.ErrConflict)
	}

	req.Status = update.Status
	req.ReviewedBy = update.ReviewedBy
	req.ReviewedAt = update.ReviewedAt
	req.Notes = update.Notes
	req.RejectionReason = update.RejectionReason

	action := shared.ReviewApprove
	note := update.Notes
	if update.Status == StatusRejected {
		action = shared.ReviewReject
		note = update.RejectionReason
	}
	s.recordTrail(ctx, req.ID, actor.ID, action, note)
	s.recordAudit(ctx, actor, "request.review", req)

	result := ReviewResult{Request: req}
	if update.Status == StatusApproved && len(input.Plan) > 0 {
		report, err := s.deps.Executor.Execute(ctx, fulfillment.RequestRef{
			ID:          req.ID,
			Number:      req.Number,
			BranchID:    req.BranchID,
			RequestedBy: req.RequestedBy,
			RequestedAt: req.RequestedAt,
			ActorID:     actor.ID,
		}, input.Plan)
		if err != nil {
			s.deps.Logger.Error("fulfillment failed after approval",
				slog.String("request", req.Number), slog.Any("error", err))
			report = fulfillment.ReportAllFailed(input.Plan, "fulfillment transaction rolled back")
		}
		result.Report = &report
		s.scheduleScans(ctx, req.BranchID, input.Plan)
	}
	return result, nil
}

// scheduleScans enqueues a low stock scan for every branch the plan
// touched. Best effort: a full queue never fails a review.
func (s *Service) scheduleScans(ctx context.Context, branchID int64, plan fulfillment.Plan) {
	if s.deps.Jobs == nil {
		return
	}
	branches := map[int64]struct{}{branchID: {}}
	for _, entry := range plan {
		for _, tr := range entry.Transfers {
			branches[tr.FromBranchID] = struct{}{}
		}
	}
	for id := range branches {
		if err := s.deps.Jobs.EnqueueLowStockScan(ctx, id); err != nil {
			s.deps.Logger.Warn("enqueue low stock scan", slog.Int64("branch_id", id), slog.Any("error", err))
		}
	}
}

func (s *Service) recordTrail(ctx context.Context, id uuid.UUID, actorID int64, action shared.ReviewAction, note string) {
	if s.deps.Trail == nil {
		return
	}
	_ = s.deps.Trail.Record(ctx, shared.ReviewEntry{
		Module:  "REQUEST",
		RefID:   id,
		ActorID: actorID,
		Action:  action,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actor *shared.Actor, action string, req Request) {
	if s.deps.Audit == nil {
		return
	}
	_ = s.deps.Audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		BranchID: req.BranchID,
		Action:   action,
		Entity:   "item_request",
		EntityID: req.ID.String(),
		Meta:     map[string]any{"number": req.Number, "status": req.Status},
	})
}

func mergeNotes(existing, added string) string {
	added = strings.TrimSpace(added)
	if added == "" {
		return existing
	}
	if existing == "" {
		return added
	}
	return existing + "\n" + added
}

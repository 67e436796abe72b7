package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowline/glowline-backend/internal/platform/httpx"
	"github.com/glowline/glowline-backend/internal/shared"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.handleListRecords)
	r.Get("/records/low-stock", h.handleListLowStock)
	r.Get("/ledger", h.handleListLedger)
	r.Post("/stock-in", h.handleStockIn)
	r.Post("/stock-out", h.handleStockOut)
}

func (h *Handler) handleStockIn(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload StockInRequest
	if err := httpx.DecodeValid(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if actor.BranchScoped() && actor.BranchID != payload.BranchID {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var attrs *Attributes
	if payload.ItemName != "" {
		attrs = &Attributes{
			ItemName:         payload.ItemName,
			Category:         payload.Category,
			ReorderThreshold: payload.ReorderThreshold,
			UnitPrice:        payload.UnitPrice,
			Supplier:         payload.Supplier,
		}
	}
	entry, err := h.service.StockIn(r.Context(), StockInInput{
		ItemID:     payload.ItemID,
		BranchID:   payload.BranchID,
		Quantity:   payload.Quantity,
		Reason:     payload.Reason,
		ActorID:    actor.ID,
		Attributes: attrs,
	})
	if err != nil {
		h.respondMovementError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewLedgerEntryView(entry))
}

func (h *Handler) handleStockOut(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload StockOutRequest
	if err := httpx.DecodeValid(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if actor.BranchScoped() && actor.BranchID != payload.BranchID {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	entry, err := h.service.StockOut(r.Context(), StockOutInput{
		ItemID:   payload.ItemID,
		BranchID: payload.BranchID,
		Quantity: payload.Quantity,
		Reason:   payload.Reason,
		ActorID:  actor.ID,
	})
	if err != nil {
		h.respondMovementError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewLedgerEntryView(entry))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	page := shared.NewPagination(int(queryInt(r, "page")), int(queryInt(r, "per_page")))
	filter := RecordFilter{
		BranchID: queryInt(r, "branch_id"),
		Status:   StockStatus(r.URL.Query().Get("status")),
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	}
	if actor.BranchScoped() {
		filter.BranchID = actor.BranchID
	}
	records, err := h.service.ListRecords(r.Context(), filter)
	if err != nil {
		h.logger.Error("list inventory records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, NewRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": views, "pagination": page})
}

func (h *Handler) handleListLowStock(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	branchID := queryInt(r, "branch_id")
	if actor.BranchScoped() {
		branchID = actor.BranchID
	}
	records, err := h.service.ListLowStock(r.Context(), branchID)
	if err != nil {
		h.logger.Error("list low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, NewRecordView(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": views})
}

func (h *Handler) handleListLedger(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	page := shared.NewPagination(int(queryInt(r, "page")), int(queryInt(r, "per_page")))
	filter := LedgerFilter{
		ItemID:   queryInt(r, "item_id"),
		BranchID: queryInt(r, "branch_id"),
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	}
	if actor.BranchScoped() {
		filter.BranchID = actor.BranchID
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from date")
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to date")
			return
		}
		// inclusive end of day
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	entries, err := h.service.ListLedger(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock ledger", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]LedgerEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, NewLedgerEntryView(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": views, "pagination": page})
}

func (h *Handler) respondMovementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func queryInt(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

package purchasing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/platform/httpx"
	"github.com/glowline/glowline-backend/internal/shared"
)

// Handler wires HTTP endpoints for purchase orders.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs purchasing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/receive", h.handleReceive)
	r.Post("/{id}/cancel", h.handleCancel)
}

// OrderView is the JSON shape of a purchase order.
type OrderView struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	Supplier    string     `json:"supplier"`
	BranchID    int64      `json:"branch_id"`
	Status      Status     `json:"status"`
	TotalAmount float64    `json:"total_amount"`
	RequestID   string     `json:"request_id,omitempty"`
	RequestedBy int64      `json:"requested_by"`
	RequestedAt time.Time  `json:"requested_at"`
	OrderedAt   *time.Time `json:"ordered_at,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Lines       []LineView `json:"lines,omitempty"`
}

// LineView is the JSON shape of a purchase order line item.
type LineView struct {
	ItemID     int64   `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// NewOrderView converts a domain purchase order into its view.
func NewOrderView(po PurchaseOrder) OrderView {
	view := OrderView{
		ID:          po.ID.String(),
		Number:      po.Number,
		Supplier:    po.Supplier,
		BranchID:    po.BranchID,
		Status:      po.Status,
		TotalAmount: po.TotalAmount,
		RequestedBy: po.RequestedBy,
		RequestedAt: po.RequestedAt,
		Notes:       po.Notes,
	}
	if po.RequestID != uuid.Nil {
		view.RequestID = po.RequestID.String()
	}
	if po.OrderedAt.Unix() > 0 {
		at := po.OrderedAt
		view.OrderedAt = &at
	}
	if po.ReceivedAt.Unix() > 0 {
		at := po.ReceivedAt
		view.ReceivedAt = &at
	}
	for _, li := range po.Lines {
		view.Lines = append(view.Lines, LineView{
			ItemID:     li.ItemID,
			ItemName:   li.ItemName,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.TotalPrice,
		})
	}
	return view
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	page := shared.NewPagination(int(queryInt(r, "page")), int(queryInt(r, "per_page")))
	filter := Filter{
		BranchID: queryInt(r, "branch_id"),
		Status:   Status(r.URL.Query().Get("status")),
		Limit:    page.Limit(),
		Offset:   page.Offset(),
	}
	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]OrderView, 0, len(list))
	for _, po := range list {
		views = append(views, NewOrderView(po))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": views, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.respondOne(w, r, func(actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
		return h.service.Get(r.Context(), actor, id)
	})
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	h.respondOne(w, r, func(actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
		return h.service.Receive(r.Context(), actor, id)
	})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.respondOne(w, r, func(actor *shared.Actor, id uuid.UUID) (PurchaseOrder, error) {
		return h.service.Cancel(r.Context(), actor, id)
	})
}

func (h *Handler) respondOne(w http.ResponseWriter, r *http.Request, fn func(*shared.Actor, uuid.UUID) (PurchaseOrder, error)) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid purchase order id")
		return
	}
	po, err := fn(actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewOrderView(po))
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

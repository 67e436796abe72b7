package transfers

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

// Handler wires HTTP endpoints for the transfer read model.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs transfers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transfer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

// TransferView is the JSON shape of a transfer.
type TransferView struct {
	ID           string     `json:"id"`
	Number       string     `json:"number"`
	FromBranchID int64      `json:"from_branch_id"`
	ToBranchID   int64      `json:"to_branch_id"`
	Status       Status     `json:"status"`
	RequestID    string     `json:"request_id,omitempty"`
	InitiatedBy  int64      `json:"initiated_by"`
	CompletedBy  int64      `json:"completed_by,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Lines        []LineView `json:"lines,omitempty"`
}

// LineView is the JSON shape of a transfer line item.
type LineView struct {
	ItemID     int64   `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// NewTransferView converts a domain transfer into its view.
func NewTransferView(t Transfer) TransferView {
	view := TransferView{
		ID:           t.ID.String(),
		Number:       t.Number,
		FromBranchID: t.FromBranchID,
		ToBranchID:   t.ToBranchID,
		Status:       t.Status,
		InitiatedBy:  t.InitiatedBy,
		CompletedBy:  t.CompletedBy,
		Notes:        t.Notes,
		CreatedAt:    t.CreatedAt,
	}
	if t.RequestID != uuid.Nil {
		view.RequestID = t.RequestID.String()
	}
	if !t.CompletedAt.IsZero() && t.CompletedAt.Unix() > 0 {
		at := t.CompletedAt
		view.CompletedAt = &at
	}
	for _, li := range t.Lines {
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
	filter := Filter{BranchID: queryInt(r, "branch_id"), Limit: page.Limit(), Offset: page.Offset()}
	if raw := r.URL.Query().Get("request_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request_id")
			return
		}
		filter.RequestID = id
	}
	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.logger.Error("list transfers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]TransferView, 0, len(list))
	for _, t := range list {
		views = append(views, NewTransferView(t))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transfers": views, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transfer id")
		return
	}
	t, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewTransferView(t))
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

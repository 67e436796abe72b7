package requests

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowline/glowline-backend/internal/platform/httpx"
	"github.com/glowline/glowline-backend/internal/shared"
)

// IdempotencyPort claims and releases review idempotency keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Release(ctx context.Context, key string) error
}

// Handler wires HTTP endpoints for item requests.
type Handler struct {
	logger  *slog.Logger
	service *Service
	idem    IdempotencyPort
}

// NewHandler constructs requests handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// WithIdempotency attaches the store honouring Idempotency-Key headers on
// review calls.
func (h *Handler) WithIdempotency(idem IdempotencyPort) *Handler {
	h.idem = idem
	return h
}

// MountRoutes registers request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/availability", h.handleAvailability)
	r.Post("/{id}/review", h.handleReview)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var payload CreateRequestPayload
	if err := httpx.DecodeValid(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateInput{BranchID: payload.BranchID, Notes: payload.Notes}
	for _, line := range payload.Lines {
		input.Lines = append(input.Lines, LineInput{
			ItemID:    line.ItemID,
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Reason:    line.Reason,
		})
	}
	req, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewRequestView(req))
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
		h.logger.Error("list requests", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]RequestView, 0, len(list))
	for _, req := range list {
		views = append(views, NewRequestView(req))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": views, "pagination": page})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewRequestView(req))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	plan, err := h.service.Availability(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"plan": NewPlanView(plan)})
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	var payload ReviewPayload
	if err := httpx.DecodeValid(r, &payload); err != nil {
		httpx.RespondError(w, err)
		return
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "REQUEST_REVIEW"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "review already processed for this idempotency key")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	result, err := h.service.Review(r.Context(), actor, id, ReviewInput{
		Decision:        Decision(payload.Decision),
		Notes:           payload.Notes,
		RejectionReason: payload.RejectionReason,
		Plan:            payload.AsPlan(),
	})
	if err != nil {
		// free the key so the caller can retry after fixing the input
		if idemKey != "" && h.idem != nil {
			if relErr := h.idem.Release(r.Context(), idemKey); relErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		httpx.RespondError(w, err)
		return
	}
	body := map[string]any{"request": NewRequestView(result.Request)}
	if result.Report != nil {
		body["fulfillment"] = result.Report
	}
	httpx.JSON(w, http.StatusOK, body)
}

func requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request id")
		return uuid.Nil, false
	}
	return id, true
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

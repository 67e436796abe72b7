package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/glowline/glowline-backend/internal/branches"
	"github.com/glowline/glowline-backend/internal/identity"
	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/observability"
	"github.com/glowline/glowline-backend/internal/purchasing"
	"github.com/glowline/glowline-backend/internal/requests"
	"github.com/glowline/glowline-backend/internal/transfers"
	"github.com/glowline/glowline-backend/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler       *identity.Handler
	AuthMiddleware    identity.Middleware
	BranchHandler     *branches.Handler
	InventoryHandler  *inventory.Handler
	RequestHandler    *requests.Handler
	TransferHandler   *transfers.Handler
	PurchasingHandler *purchasing.Handler
	JobHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Glowline defaults. Everything
// except /healthz, /metrics, and /auth requires a bearer token.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireActor)

		r.Route("/branches", params.BranchHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/requests", params.RequestHandler.MountRoutes)
		r.Route("/transfers", params.TransferHandler.MountRoutes)
		r.Route("/purchase-orders", params.PurchasingHandler.MountRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

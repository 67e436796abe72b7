package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stockMovements  *prometheus.CounterVec
	fulfillApplied  *prometheus.CounterVec
	fulfillFailed   prometheus.Counter
}

// NewMetrics initialises the registry and the base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glowline_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glowline_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glowline_stock_movements_total",
		Help: "Stock ledger appends by direction.",
	}, []string{"direction"})
	fulfillApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "glowline_fulfillment_lines_applied_total",
		Help: "Fulfillment plan lines applied, by kind.",
	}, []string{"kind"})
	fulfillFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "glowline_fulfillment_lines_failed_total",
		Help: "Fulfillment plan lines that could not be applied.",
	})
	registry.MustRegister(requests, duration, movements, fulfillApplied, fulfillFailed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stockMovements:  movements,
		fulfillApplied:  fulfillApplied,
		fulfillFailed:   fulfillFailed,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StockMovement counts one ledger append.
func (m *Metrics) StockMovement(direction string) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(direction).Inc()
}

// FulfillmentLineApplied counts one applied fulfillment line.
func (m *Metrics) FulfillmentLineApplied(kind string) {
	if m == nil {
		return
	}
	m.fulfillApplied.WithLabelValues(kind).Inc()
}

// FulfillmentLineFailed counts one failed fulfillment line.
func (m *Metrics) FulfillmentLineFailed() {
	if m == nil {
		return
	}
	m.fulfillFailed.Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

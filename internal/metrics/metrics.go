package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sell rejection reasons.
const (
	ReasonNotFound     = "not_found"
	ReasonInsufficient = "insufficient_stock"
	ReasonDuplicate    = "duplicate_submission"
	ReasonKeyReused    = "idempotency_key_reused"
	ReasonInvalid      = "invalid"
	ReasonError        = "error"
)

// unmatchedRoute labels requests no route pattern matched, so stray paths
// share a single series.
const unmatchedRoute = "unmatched"

// Metrics holds the dashboard's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	Sales          prometheus.Counter
	UnitsSold      prometheus.Counter
	SellRejections *prometheus.CounterVec
	Mutations      *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Sales: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_sales_total",
			Help: "Number of completed sales",
		}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_units_sold_total",
			Help: "Number of units sold",
		}),
		SellRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_sell_rejections_total",
				Help: "Sell attempts that did not complete, by reason",
			},
			[]string{"reason"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_mutations_total",
				Help: "Add, update and delete attempts, by operation and result",
			},
			[]string{"op", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.Sales,
		m.UnitsSold,
		m.SellRejections,
		m.Mutations,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and duration per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

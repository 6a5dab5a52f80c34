package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
)

// UnmatchedRoute labels requests that no route matched.
const UnmatchedRoute = "unmatched"

// Operation outcomes recorded by RecordOperation.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeConflict     = "conflict"
	OutcomeInvalid      = "invalid"
	OutcomeStorageError = "storage_error"
	OutcomeError        = "error"
)

var (
	// Registry holds the application collectors exposed on /metrics.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dashboard",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"method", "path"},
	)

	preferenceOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dashboard",
			Subsystem: "preferences",
			Name:      "operations_total",
			Help:      "Preference service operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	preferenceOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dashboard",
			Subsystem: "preferences",
			Name:      "operation_duration_seconds",
			Help:      "Duration of preference service operations, including storage round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 11),
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		preferenceOps,
		preferenceOpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection. It must
// sit inside a chi router: requests are labeled with the matched route pattern.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := routeLabel(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordOperation counts a preference service call by the kind of error it returned.
func RecordOperation(operation string, start time.Time, err error) {
	preferenceOps.WithLabelValues(operation, Outcome(err)).Inc()
	preferenceOpDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Outcome classifies an error returned by the service layer.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var (
		notFound *errs.NotFoundError
		conflict *errs.AlreadyExistsError
		invalid  *errs.ValidationError
		database *errs.DatabaseError
	)
	switch {
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &conflict):
		return OutcomeConflict
	case errors.As(err, &invalid):
		return OutcomeInvalid
	case errors.As(err, &database):
		return OutcomeStorageError
	default:
		return OutcomeError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeLabel keeps label cardinality bounded: layout names, widget ids and unknown
// paths never become label values.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return UnmatchedRoute
	}
	pattern := rctx.RoutePattern()
	if pattern == "" || strings.Contains(pattern, "*") {
		return UnmatchedRoute
	}
	return pattern
}

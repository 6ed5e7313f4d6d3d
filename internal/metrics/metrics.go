package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "binbird_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "binbird_http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	PlansWritten = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "binbird_plans_written_total", Help: "Run plans persisted after optimization."},
	)
	RunsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "binbird_runs_started_total", Help: "Runs started by staff."},
	)
	JobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "binbird_jobs_finished_total", Help: "Jobs reaching a terminal status during a run."},
		[]string{"status"},
	)
	RunsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "binbird_runs_ended_total", Help: "Runs ended, by reason."},
		[]string{"reason"},
	)
	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "binbird_storage_errors_total", Help: "Run-state storage failures by backend and operation."},
		[]string{"backend", "op"},
	)
	OptimizerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "binbird_optimizer_calls_total", Help: "Route optimizer calls by outcome."},
		[]string{"outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector once
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(PlansWritten, RunsStarted, JobsCompleted, RunsEnded)
		Registry.MustRegister(StorageErrors, OptimizerCalls)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves the registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency keyed by the chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

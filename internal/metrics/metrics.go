// Package metrics exposes Prometheus collectors for the stash service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	linkChecksTotal            *prometheus.CounterVec
	faviconFetchesTotal        *prometheus.CounterVec
	importsTotal               *prometheus.CounterVec
	importedItemsTotal         *prometheus.CounterVec
	maintenanceRunSeconds      *prometheus.HistogramVec
	maintenanceInFlight        prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stash_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		linkChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_link_checks_total",
				Help: "Total number of link checks, labeled by resulting status.",
			},
			[]string{"status"},
		)

		faviconFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_favicon_fetches_total",
				Help: "Total number of favicon lookups, labeled by source.",
			},
			[]string{"source"},
		)

		importsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_imports_total",
				Help: "Total number of imports, labeled by format and result.",
			},
			[]string{"format", "result"},
		)

		importedItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_imported_items_total",
				Help: "Items handled by imports, labeled by format and outcome.",
			},
			[]string{"format", "outcome"},
		)

		maintenanceRunSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stash_maintenance_run_seconds",
				Help:    "Duration of maintenance batches, labeled by job.",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"job"},
		)

		maintenanceInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "stash_maintenance_requests_in_flight",
				Help: "Number of maintenance network requests currently running.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

func ObserveLinkCheck(status string) {
	Init()
	linkChecksTotal.WithLabelValues(status).Inc()
}

// ObserveFavicon records where an icon came from ("page", "fallback" or "none").
func ObserveFavicon(source string) {
	Init()
	faviconFetchesTotal.WithLabelValues(source).Inc()
}

// ObserveImport records one import attempt and, when it succeeded, how many
// items were added and skipped.
func ObserveImport(format string, err error, added, skipped int) {
	Init()
	if err != nil {
		importsTotal.WithLabelValues(format, "error").Inc()
		return
	}
	importsTotal.WithLabelValues(format, "success").Inc()
	importedItemsTotal.WithLabelValues(format, "added").Add(float64(added))
	importedItemsTotal.WithLabelValues(format, "skipped").Add(float64(skipped))
}

func ObserveMaintenanceRun(job string, duration time.Duration) {
	Init()
	maintenanceRunSeconds.WithLabelValues(job).Observe(duration.Seconds())
}

func IncInFlight() {
	Init()
	maintenanceInFlight.Inc()
}

func DecInFlight() {
	Init()
	maintenanceInFlight.Dec()
}

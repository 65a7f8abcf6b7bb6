// Package metrics registers the Prometheus collectors shared by all binaries.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fxrates"

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method", "status"},
	)

	importRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Imported rows by outcome (inserted, updated, unchanged, skipped, filtered).",
		},
		[]string{"outcome"},
	)

	importRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "runs_total",
		},
		[]string{"status"},
	)

	summaryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "compute_duration_seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	summaryQuality = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "computed_total",
			Help:      "Monthly summaries computed, by data quality.",
		},
		[]string{"quality"},
	)

	invalidRates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "invalid_rate_errors_total",
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
		},
		[]string{"cache", "result"},
	)

	sheetsPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "pushes_total",
		},
		[]string{"status"},
	)
)

func ObserveHTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpRequestDuration.
		WithLabelValues(route, method, strconv.Itoa(status)).
		Observe(elapsed.Seconds())
}

func AddImportRows(outcome string, n int) {
	if n <= 0 {
		return
	}
	importRows.WithLabelValues(outcome).Add(float64(n))
}

func ObserveImportRun(err error) {
	importRuns.WithLabelValues(status(err)).Inc()
}

func ObserveSummary(quality string, elapsed time.Duration) {
	summaryQuality.WithLabelValues(quality).Inc()
	summaryDuration.Observe(elapsed.Seconds())
}

func IncInvalidRate() {
	invalidRates.Inc()
}

func ObserveCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func ObserveSheetsPush(err error) {
	sheetsPushes.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

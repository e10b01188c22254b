// Package metrics exposes Prometheus collectors for the ingestion pipeline.
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
	fetchesTotal               *prometheus.CounterVec
	fetchRetriesTotal          *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	cardsDroppedTotal          prometheus.Counter
	postingsUpsertedTotal      *prometheus.CounterVec
	exportsTotal               *prometheus.CounterVec
	politenessWaitSeconds      *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_fetches_total",
				Help: "Total number of fetches, labeled by kind (listing/detail) and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_fetch_retries_total",
				Help: "Total number of retried fetch attempts, labeled by kind.",
			},
			[]string{"kind"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobcrawler_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies including retries, labeled by kind.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		)

		cardsDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobcrawler_cards_dropped_total",
				Help: "Total number of listing cards dropped for missing title or company.",
			},
		)

		postingsUpsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_postings_upserted_total",
				Help: "Total number of postings written, labeled by keyword.",
			},
			[]string{"keyword"},
		)

		exportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobcrawler_exports_total",
				Help: "Total number of snapshot exports, labeled by status.",
			},
			[]string{"status"},
		)

		politenessWaitSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobcrawler_politeness_wait_seconds",
				Help:    "Histogram of politeness delay waits, labeled by kind.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"kind"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one logical fetch (all attempts) and its outcome.
func ObserveFetch(kind, outcome string, retries int, duration time.Duration) {
	Init()
	fetchesTotal.WithLabelValues(kind, outcome).Inc()
	if retries > 0 {
		fetchRetriesTotal.WithLabelValues(kind).Add(float64(retries))
	}
	fetchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveDropped counts cards skipped by the extractor.
func ObserveDropped(n int) {
	Init()
	if n > 0 {
		cardsDroppedTotal.Add(float64(n))
	}
}

// ObserveUpsert counts rows written for a keyword.
func ObserveUpsert(keyword string, affected int64) {
	Init()
	if affected > 0 {
		postingsUpsertedTotal.WithLabelValues(keyword).Add(float64(affected))
	}
}

// ObserveExport counts snapshot exports by status.
func ObserveExport(status string) {
	Init()
	exportsTotal.WithLabelValues(status).Inc()
}

// ObservePolitenessWait records how long a politeness delay blocked.
func ObservePolitenessWait(kind string, d time.Duration) {
	Init()
	if d > time.Millisecond {
		politenessWaitSeconds.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Package metrics exposes Prometheus collectors for the crawler service.
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

// Outcome labels shared by the crawl collectors.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeFailed      = "failed"
	OutcomeRateLimited = "rate_limited"
	OutcomeSkipped     = "skipped"
)

var (
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	crawlCombinationsTotal      *prometheus.CounterVec
	crawlJobsTotal              *prometheus.CounterVec
	crawlJobsPurgedTotal        prometheus.Counter
	crawlRunDurationSeconds     *prometheus.HistogramVec
	extractionAttemptsTotal     *prometheus.CounterVec
	extractionCredentialRotates prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
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

		crawlCombinationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_combinations_total",
				Help: "Field/region combinations processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_jobs_total",
				Help: "New postings handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlJobsPurgedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawl_jobs_purged_total",
				Help: "Stored jobs deleted because they disappeared from a fresh listing.",
			},
		)

		crawlRunDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawl_run_duration_seconds",
				Help:    "Duration of coordinator runs, labeled by outcome.",
				Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600},
			},
			[]string{"outcome"},
		)

		extractionAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extraction_attempts_total",
				Help: "Generative model calls, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		extractionCredentialRotates = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "extraction_credential_rotations_total",
				Help: "Times the active AI credential was rotated after a rate limit.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveCombination counts one processed combination.
func ObserveCombination(outcome string) {
	Init()
	crawlCombinationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveJob counts one new posting by outcome.
func ObserveJob(outcome string) {
	Init()
	crawlJobsTotal.WithLabelValues(outcome).Inc()
}

// ObservePurged adds n deleted jobs.
func ObservePurged(n int) {
	Init()
	if n > 0 {
		crawlJobsPurgedTotal.Add(float64(n))
	}
}

// ObserveRun records the duration of a coordinator run.
func ObserveRun(outcome string, duration time.Duration) {
	Init()
	crawlRunDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveExtraction counts one model call by outcome.
func ObserveExtraction(outcome string) {
	Init()
	extractionAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCredentialRotation counts one credential rotation.
func ObserveCredentialRotation() {
	Init()
	extractionCredentialRotates.Inc()
}

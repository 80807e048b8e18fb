// Package metrics exposes Prometheus collectors for the manifest service.
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
	jobsTotal                      *prometheus.CounterVec
	cacheLookupsTotal              *prometheus.CounterVec
	providerRequestsTotal          *prometheus.CounterVec
	providerRequestDurationSeconds *prometheus.HistogramVec
	manifestPages                  prometheus.Histogram
	rateLimitDelaySeconds          *prometheus.HistogramVec
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmstxt_jobs_total",
				Help: "Total number of job state transitions, labeled by resulting state.",
			},
			[]string{"state"},
		)

		cacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmstxt_cache_lookups_total",
				Help: "Total number of result cache lookups, labeled by result.",
			},
			[]string{"result"},
		)

		providerRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmstxt_provider_requests_total",
				Help: "Total number of crawl provider calls, labeled by operation and outcome.",
			},
			[]string{"op", "outcome"},
		)

		providerRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llmstxt_provider_request_duration_seconds",
				Help:    "Histogram of crawl provider call latencies, labeled by operation.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"op"},
		)

		manifestPages = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "llmstxt_manifest_pages",
				Help:    "Number of pages included in each generated manifest.",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 250, 500},
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llmstxt_rate_limit_delay_seconds",
				Help:    "Histogram of time spent waiting on the provider rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"key"},
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

// ObserveJob counts a job entering state.
func ObserveJob(state string) {
	Init()
	jobsTotal.WithLabelValues(state).Inc()
}

// ObserveCacheLookup counts a cache lookup; result is hit, miss, stale or error.
func ObserveCacheLookup(result string) {
	Init()
	cacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveProviderRequest records one call to the crawl provider.
func ObserveProviderRequest(op, outcome string, duration time.Duration) {
	Init()
	providerRequestsTotal.WithLabelValues(op, outcome).Inc()
	providerRequestDurationSeconds.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveManifestPages records the page count of a generated manifest.
func ObserveManifestPages(pages int) {
	Init()
	manifestPages.Observe(float64(pages))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(key string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(key).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

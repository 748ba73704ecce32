// Package metrics provides Prometheus instrumentation for the scanner.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftsentry",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nftsentry",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ProviderRequestsTotal counts upstream provider fetches by provider and outcome.
	// Outcomes: ok, no_data, unauthorized, rate_limited, timeout, malformed,
	// unavailable, error.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftsentry",
			Name:      "provider_requests_total",
			Help:      "Total provider fetch attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderRetriesTotal counts retried provider attempts.
	ProviderRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftsentry",
			Name:      "provider_retries_total",
			Help:      "Total provider attempts retried after a retryable failure.",
		},
		[]string{"provider"},
	)

	// ProviderFallbacksTotal counts fact fetches that advanced past the
	// primary provider in the chain.
	ProviderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftsentry",
			Name:      "provider_fallbacks_total",
			Help:      "Total fact fetches served by a non-primary provider.",
		},
		[]string{"fact"},
	)

	// AnalysesTotal counts completed analyses by subject kind and verdict level.
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nftsentry",
			Name:      "analyses_total",
			Help:      "Total completed analyses by subject kind and risk level.",
		},
		[]string{"kind", "level"},
	)

	// AnalysisDuration observes end-to-end analysis duration by subject kind.
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nftsentry",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end analysis duration in seconds.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRetriesTotal,
		ProviderFallbacksTotal,
		AnalysesTotal,
		AnalysisDuration,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

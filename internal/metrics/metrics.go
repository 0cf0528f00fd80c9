// Package metrics exposes Prometheus instrumentation for the verifier.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clairvox"

// Metrics holds the collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	sourceRequests  *prometheus.CounterVec
	sourceLatency   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	verifyDuration  prometheus.Histogram
	embeddingErrors prometheus.Counter
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Literature database requests by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_seconds",
			Help:      "Latency of literature database requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Completed verifications by classification and data quality.",
		}, []string{"classification", "data_quality"}),
		verifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "verification_seconds",
			Help:      "End-to-end verification latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		embeddingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Reranking runs that fell back to unscored candidates.",
		}),
	}

	reg.MustRegister(
		m.sourceRequests,
		m.sourceLatency,
		m.cacheLookups,
		m.verifications,
		m.verifyDuration,
		m.embeddingErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SourceRequest records one database request; outcome is ok, failed or abandoned
func (m *Metrics) SourceRequest(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sourceRequests.WithLabelValues(source, outcome).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// CacheLookup records a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Verification records a finished verification
func (m *Metrics) Verification(classification, dataQuality string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(classification, dataQuality).Inc()
	m.verifyDuration.Observe(elapsed.Seconds())
}

// EmbeddingFailure records a degraded reranking run
func (m *Metrics) EmbeddingFailure() {
	if m == nil {
		return
	}
	m.embeddingErrors.Inc()
}

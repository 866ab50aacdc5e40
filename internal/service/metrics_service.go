package service

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the platform's metric
// families.
type MetricsService struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	enrollmentOutcomes *prometheus.CounterVec
	guidanceCacheHits  prometheus.Counter
	guidanceCacheMiss  prometheus.Counter
}

// NewMetricsService constructs and registers all collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "path", "status"}),
		enrollmentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enrollment_requests_total",
			Help: "Enrollment transactions by outcome code.",
		}, []string{"outcome"}),
		guidanceCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guidance_cache_hits_total",
			Help: "Guidance reports served from cache.",
		}),
		guidanceCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guidance_cache_misses_total",
			Help: "Guidance reports built from the database.",
		}),
	}

	registry.MustRegister(
		s.requestDuration,
		s.requestTotal,
		s.enrollmentOutcomes,
		s.guidanceCacheHits,
		s.guidanceCacheMiss,
	)
	return s
}

// ObserveRequest records one handled HTTP request.
func (s *MetricsService) ObserveRequest(method, path, status string, seconds float64) {
	s.requestDuration.WithLabelValues(method, path, status).Observe(seconds)
	s.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveEnrollment records the outcome code of one enrollment transaction.
func (s *MetricsService) ObserveEnrollment(outcome string) {
	s.enrollmentOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGuidanceCache records a guidance cache hit or miss.
func (s *MetricsService) ObserveGuidanceCache(hit bool) {
	if hit {
		s.guidanceCacheHits.Inc()
		return
	}
	s.guidanceCacheMiss.Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// InstrumentGuidanceCache wraps a guidance cache so reads count as hits or
// misses. A nil inner cache passes through unchanged.
func (s *MetricsService) InstrumentGuidanceCache(inner guidanceCache) guidanceCache {
	if inner == nil {
		return nil
	}
	return &observedGuidanceCache{inner: inner, metrics: s}
}

type observedGuidanceCache struct {
	inner   guidanceCache
	metrics *MetricsService
}

func (c *observedGuidanceCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := c.inner.Get(ctx, key, dest)
	c.metrics.ObserveGuidanceCache(err == nil)
	return err
}

func (c *observedGuidanceCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.inner.Set(ctx, key, value, ttl)
}

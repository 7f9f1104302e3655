package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aditpras/civil-registry-api/internal/models"
)

// MetricsService owns a private Prometheus registry for HTTP, cache and
// runtime collectors, and keeps atomic counters beside them so Snapshot
// can serve aggregates without scraping the registry. All methods are
// nil-receiver safe so callers need no wiring guards.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	hitRatio     prometheus.Gauge
	hits         prometheus.Counter
	misses       prometheus.Counter

	hitCount      uint64
	missCount     uint64
	requestCount  uint64
	durationNanos uint64
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	m.hitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "record_cache_hit_ratio",
		Help: "Ratio of record-cache hits to total lookups",
	})
	m.hits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_cache_hits_total",
		Help: "Total record-cache hits",
	})
	m.misses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "record_cache_misses_total",
		Help: "Total record-cache misses",
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Current number of goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(m.httpDuration, m.httpTotal, m.hitRatio, m.hits, m.misses, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one completed request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, path, statusLabel).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.durationNanos, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts a record-cache hit or miss and refreshes
// the ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.hits.Inc()
		atomic.AddUint64(&m.hitCount, 1)
	} else {
		m.misses.Inc()
		atomic.AddUint64(&m.missCount, 1)
	}
	m.hitRatio.Set(cacheRatio(atomic.LoadUint64(&m.hitCount), atomic.LoadUint64(&m.missCount)))
}

// Snapshot returns the aggregate counters for the stats endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.hitCount)
	misses := atomic.LoadUint64(&m.missCount)
	requests := atomic.LoadUint64(&m.requestCount)
	nanos := atomic.LoadUint64(&m.durationNanos)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(nanos) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func cacheRatio(hits, misses uint64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

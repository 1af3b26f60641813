package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the planner's prometheus registry. A nil *Collector is valid
// and records nothing.
type Collector struct {
	registry        *prometheus.Registry
	handler         http.Handler
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheEvictions  *prometheus.CounterVec
	intentsApplied  *prometheus.CounterVec
	intentsFailed   *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	httpDuration    *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_cache_hits_total",
		Help: "Fresh cache lookups",
	}, []string{"cache"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_cache_misses_total",
		Help: "Cache lookups that found nothing fresh",
	}, []string{"cache"})
	cacheEvictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_cache_evictions_total",
		Help: "Expired cache entries removed",
	}, []string{"cache"})
	intentsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_intents_applied_total",
		Help: "Drag and drop intents sent to the backend",
	}, []string{"kind"})
	intentsFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_intents_failed_total",
		Help: "Drag and drop intents rejected by the backend",
	}, []string{"kind"})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_backend_request_duration_seconds",
		Help:    "Duration of requests to the workout backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_http_request_duration_seconds",
		Help:    "Duration of requests served by the planner",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	registry.MustRegister(cacheHits, cacheMisses, cacheEvictions, intentsApplied, intentsFailed, backendDuration, httpDuration)

	return &Collector{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheEvictions:  cacheEvictions,
		intentsApplied:  intentsApplied,
		intentsFailed:   intentsFailed,
		backendDuration: backendDuration,
		httpDuration:    httpDuration,
	}
}

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

func (c *Collector) CacheHit(cache string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cache).Inc()
}

func (c *Collector) CacheMiss(cache string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cache).Inc()
}

func (c *Collector) CacheEvicted(cache string, count int) {
	if c == nil {
		return
	}
	c.cacheEvictions.WithLabelValues(cache).Add(float64(count))
}

func (c *Collector) IntentApplied(kind string) {
	if c == nil {
		return
	}
	c.intentsApplied.WithLabelValues(kind).Inc()
}

func (c *Collector) IntentFailed(kind string) {
	if c == nil {
		return
	}
	c.intentsFailed.WithLabelValues(kind).Inc()
}

// ObserveBackendRequest records one call to the backend. status is 0 when no
// response was received.
func (c *Collector) ObserveBackendRequest(method, endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.backendDuration.WithLabelValues(method, endpoint, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

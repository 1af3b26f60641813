package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	t.Run("should count cache traffic per cache", func(t *testing.T) {
		c := NewCollector()

		c.CacheHit("daily")
		c.CacheHit("daily")
		c.CacheMiss("hourly")
		c.CacheEvicted("daily", 3)

		assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("daily")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("hourly")))
		assert.Equal(t, 3.0, testutil.ToFloat64(c.cacheEvictions.WithLabelValues("daily")))
	})

	t.Run("should count intents by kind", func(t *testing.T) {
		c := NewCollector()

		c.IntentApplied("dateChanged")
		c.IntentFailed("timeChanged")

		assert.Equal(t, 1.0, testutil.ToFloat64(c.intentsApplied.WithLabelValues("dateChanged")))
		assert.Equal(t, 1.0, testutil.ToFloat64(c.intentsFailed.WithLabelValues("timeChanged")))
	})

	t.Run("should expose the registry over http", func(t *testing.T) {
		c := NewCollector()
		c.ObserveBackendRequest(http.MethodGet, "/api/workouts", 200, 15*time.Millisecond)

		w := httptest.NewRecorder()
		c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "planner_backend_request_duration_seconds")
	})

	t.Run("should ignore calls on a nil collector", func(t *testing.T) {
		var c *Collector

		c.CacheHit("daily")
		c.IntentApplied("dateChanged")
		w := httptest.NewRecorder()
		c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

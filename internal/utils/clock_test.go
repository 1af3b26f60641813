package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock(t *testing.T) {
	t.Run("should return the fixed time until moved", func(t *testing.T) {
		// given
		start := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
		clock := NewMockClock(start)

		// when
		clock.Advance(3 * time.Hour)

		// then
		assert.Equal(t, start.Add(3*time.Hour), clock.Now())
	})

	t.Run("should replace the time on SetNow", func(t *testing.T) {
		clock := NewMockClock(time.Time{})
		next := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		clock.SetNow(next)

		assert.Equal(t, next, clock.Now())
	})
}

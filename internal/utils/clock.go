package utils

import (
	"sync"
	"time"
)

// Clock is the source of "now" for everything that ages or dates data:
// cache entries, the grid's "today", export timestamps.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable clock for tests. It is safe to read from the cache sweeper goroutine.
type MockClock struct {
	mu       sync.RWMutex
	FixedNow time.Time
}

func NewMockClock(now time.Time) *MockClock {
	return &MockClock{FixedNow: now}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.mu.Lock()
	m.FixedNow = now
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.FixedNow = m.FixedNow.Add(d)
	m.mu.Unlock()
}

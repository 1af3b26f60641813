package expiring_cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL           = 3 * time.Hour
	DefaultSweepInterval = 30 * time.Minute
)

var ErrInvalidInterval = fmt.Errorf("sweep interval must be positive and shorter than the TTL")

// Observer is told about cache traffic. metrics.Collector implements it.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEvicted(cache string, count int)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string)          {}
func (noopObserver) CacheMiss(string)         {}
func (noopObserver) CacheEvicted(string, int) {}

type Options struct {
	// Name namespaces the keys of this cache inside a shared Store.
	Name     string
	TTL      time.Duration
	Store    Store
	Clock    utils.Clock
	Observer Observer
}

type entry[V any] struct {
	Data      V     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Cache keeps values for a limited time, in memory and mirrored to a Store so
// that they survive a restart.
type Cache[V any] struct {
	mu       sync.Mutex
	name     string
	ttl      time.Duration
	store    Store
	clock    utils.Clock
	observer Observer
	entries  map[string]entry[V]
	sweeper  *cron.Cron
}

func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &Cache[V]{
		name:     opts.Name,
		ttl:      opts.TTL,
		store:    opts.Store,
		clock:    opts.Clock,
		observer: opts.Observer,
		entries:  make(map[string]entry[V]),
	}
}

// Key composes the cache key of a date.
func Key(date calendar_date.CalendarDate) string {
	return date.String()
}

// SubKey composes the cache key of a date narrowed by sub, e.g. a time of day.
func SubKey(date calendar_date.CalendarDate, sub string) string {
	if sub == "" {
		return Key(date)
	}
	return date.String() + "_" + sub
}

func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

func (c *Cache[V]) storeKey(key string) string {
	return c.prefix() + key
}

func (c *Cache[V]) prefix() string {
	if c.name == "" {
		return ""
	}
	return c.name + "_"
}

func (c *Cache[V]) expired(e entry[V]) bool {
	age := c.clock.Now().UnixMilli() - e.Timestamp
	return age > c.ttl.Milliseconds()
}

// Get returns a fresh value. A stale entry is removed from memory and from the
// Store before reporting a miss. Entries missing from memory are looked up in
// the Store.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		e, ok = c.readStore(key)
		if !ok {
			c.observer.CacheMiss(c.name)
			return zero, false
		}
	}
	if c.expired(e) {
		c.evict(key)
		c.observer.CacheEvicted(c.name, 1)
		c.observer.CacheMiss(c.name)
		return zero, false
	}
	c.entries[key] = e
	c.observer.CacheHit(c.name)
	return e.Data, true
}

// Set stores value with the current time. The in-memory value is kept even
// when mirroring to the Store fails; the Store error is returned.
func (c *Cache[V]) Set(key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry[V]{Data: value, Timestamp: c.clock.Now().UnixMilli()}
	c.entries[key] = e

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	if err := c.store.Put(c.storeKey(key), body); err != nil {
		log.Errorf("Failed to persist cache entry %s/%s: %v", c.name, key, err)
		return err
	}
	return nil
}

// IsStale reports whether key has no fresh value. It changes nothing.
func (c *Cache[V]) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e, ok = c.readStore(key)
		if !ok {
			return true
		}
	}
	return c.expired(e)
}

// Len is the number of entries held in memory, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SweepExpired removes every expired entry from memory and from the Store and
// returns how many were removed.
func (c *Cache[V]) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			c.evict(key)
			removed++
		}
	}

	keys, err := c.store.Keys(c.prefix())
	if err != nil {
		log.Errorf("Failed to list cache %s entries: %v", c.name, err)
	} else {
		for _, storeKey := range keys {
			key := storeKey[len(c.prefix()):]
			if _, inMemory := c.entries[key]; inMemory {
				continue
			}
			e, ok := c.readStore(key)
			if ok && !c.expired(e) {
				continue
			}
			if err := c.store.Delete(storeKey); err != nil {
				log.Errorf("Failed to delete cache entry %s: %v", storeKey, err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		log.Debugf("Swept %d expired entries from cache %s", removed, c.name)
		c.observer.CacheEvicted(c.name, removed)
	}
	return removed
}

// Clear drops every entry of this cache.
func (c *Cache[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
	if err := c.store.Clear(c.prefix()); err != nil {
		return fmt.Errorf("failed to clear cache %s: %w", c.name, err)
	}
	return nil
}

// Load fills memory from the Store, dropping entries that have expired meanwhile.
func (c *Cache[V]) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Keys(c.prefix())
	if err != nil {
		return fmt.Errorf("failed to list cache %s entries: %w", c.name, err)
	}
	loaded, dropped := 0, 0
	for _, storeKey := range keys {
		key := storeKey[len(c.prefix()):]
		e, ok := c.readStore(key)
		if !ok {
			continue
		}
		if c.expired(e) {
			if err := c.store.Delete(storeKey); err != nil {
				log.Errorf("Failed to delete expired cache entry %s: %v", storeKey, err)
			}
			dropped++
			continue
		}
		c.entries[key] = e
		loaded++
	}
	log.Debugf("Cache %s loaded %d entries, dropped %d expired", c.name, loaded, dropped)
	return nil
}

// StartSweeper runs SweepExpired every interval until Dispose.
func (c *Cache[V]) StartSweeper(interval time.Duration) error {
	if interval <= 0 || interval >= c.ttl {
		return fmt.Errorf("%w: %s (ttl %s)", ErrInvalidInterval, interval, c.ttl)
	}
	c.Dispose()

	sweeper := cron.New()
	_, err := sweeper.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		c.SweepExpired()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper for cache %s: %w", c.name, err)
	}
	sweeper.Start()

	c.mu.Lock()
	c.sweeper = sweeper
	c.mu.Unlock()
	return nil
}

// Sweeping reports whether the periodic sweep is running.
func (c *Cache[V]) Sweeping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeper != nil
}

// Dispose stops the periodic sweep and waits for a running sweep to finish.
// It is safe to call more than once.
func (c *Cache[V]) Dispose() {
	c.mu.Lock()
	sweeper := c.sweeper
	c.sweeper = nil
	c.mu.Unlock()

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
}

// readStore must be called with c.mu held.
func (c *Cache[V]) readStore(key string) (entry[V], bool) {
	body, err := c.store.Get(c.storeKey(key))
	if err != nil {
		if !errors.Is(err, ErrMissing) {
			log.Errorf("Failed to read cache entry %s/%s: %v", c.name, key, err)
		}
		return entry[V]{}, false
	}
	var e entry[V]
	if err := json.Unmarshal(body, &e); err != nil {
		log.Errorf("Dropping unreadable cache entry %s/%s: %v", c.name, key, err)
		_ = c.store.Delete(c.storeKey(key))
		return entry[V]{}, false
	}
	return e, true
}

// evict must be called with c.mu held.
func (c *Cache[V]) evict(key string) {
	delete(c.entries, key)
	if err := c.store.Delete(c.storeKey(key)); err != nil {
		log.Errorf("Failed to delete cache entry %s/%s: %v", c.name, key, err)
	}
}

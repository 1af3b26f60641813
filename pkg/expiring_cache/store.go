package expiring_cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrMissing = fmt.Errorf("cache entry not found")

// Store is the durable mirror behind a Cache. Values are opaque JSON documents.
type Store interface {
	Put(key string, value []byte) error
	// Get returns ErrMissing when the key is absent.
	Get(key string) ([]byte, error)
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	// Clear removes every key starting with prefix.
	Clear(prefix string) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
	putErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, ErrMissing
	}
	return append([]byte(nil), value...), nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Clear(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			delete(s.values, k)
		}
	}
	return nil
}

// SetPutError makes every following Put fail with err. Pass nil to reset.
func (s *MemoryStore) SetPutError(err error) {
	s.mu.Lock()
	s.putErr = err
	s.mu.Unlock()
}

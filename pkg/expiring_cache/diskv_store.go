package expiring_cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/peterbourgon/diskv/v3"
	log "github.com/sirupsen/logrus"
)

// DiskvStore keeps each entry as one file in a directory on the local machine.
type DiskvStore struct {
	db *diskv.Diskv
}

// NewDiskvStore opens (and creates) the store at dir. A leading ~ is expanded.
func NewDiskvStore(dir string) (*DiskvStore, error) {
	path, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand cache directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", path, err)
	}
	log.Debugf("Using disk cache at %s", path)

	db := diskv.New(diskv.Options{
		BasePath: path,
		Transform: func(key string) []string {
			return []string{}
		},
		CacheSizeMax: 1024 * 1024,
	})
	return &DiskvStore{db: db}, nil
}

func (s *DiskvStore) Put(key string, value []byte) error {
	if err := s.db.Write(key, value); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

func (s *DiskvStore) Get(key string) ([]byte, error) {
	value, err := s.db.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, nil
}

func (s *DiskvStore) Delete(key string) error {
	if !s.db.Has(key) {
		return nil
	}
	if err := s.db.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to erase cache entry %s: %w", key, err)
	}
	return nil
}

func (s *DiskvStore) Keys(prefix string) ([]string, error) {
	cancel := make(chan struct{})
	defer close(cancel)

	var keys []string
	for key := range s.db.KeysPrefix(prefix, cancel) {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *DiskvStore) Clear(prefix string) error {
	keys, err := s.Keys(prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

package expiring_cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// PostgresStore keeps entries in the cache_entry table.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, timeout: 5 * time.Second}
}

func (s *PostgresStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *PostgresStore) Put(key string, value []byte) error {
	ctx, cancel := s.context()
	defer cancel()

	query := `INSERT INTO cache_entry (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		log.Errorf("failed to store cache entry %s: %v", key, err)
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(key string) ([]byte, error) {
	ctx, cancel := s.context()
	defer cancel()

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache_entry WHERE key = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Delete(key string) error {
	ctx, cancel := s.context()
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entry WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := s.context()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM cache_entry WHERE starts_with(key, $1) ORDER BY key", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) Clear(prefix string) error {
	ctx, cancel := s.context()
	defer cancel()

	result, err := s.db.ExecContext(ctx, "DELETE FROM cache_entry WHERE starts_with(key, $1)", prefix)
	if err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		log.Debugf("Cleared %d cache entries with prefix %q", n, prefix)
	}
	return nil
}

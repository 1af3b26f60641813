package database

import (
	"testing"

	"github.com/klokku/workout-planner/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := config.Database{Host: "db", Port: 5433, User: "planner", Pass: "it's", Name: "plans", Schema: "planner"}

	assert.Equal(t, `host=db port=5433 user=planner password='it\'s' dbname=plans sslmode=disable search_path=planner`, DSN(cfg))
	assert.Equal(t, "postgres://planner:it%27s@db:5433/plans?sslmode=disable&search_path=planner", migrateURL(cfg))
}

func TestFindMigrationsPath(t *testing.T) {
	path, err := findMigrationsPath()

	require.NoError(t, err)
	assert.FileExists(t, path+"/000001_cache_entry.up.sql")
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// fakeBackend serves one imported workout and remembers the selection updates.
type fakeBackend struct {
	mu      sync.Mutex
	updates []map[string]any
	server  *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	f := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/workouts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"workouts":[{"id":1,"title":"Endurance Ride","workoutType":"Bike",
			"plannedDuration":1.5,"originallyPlannedDay":"2026-01-15",
			"selection":{"isSelected":true,"currentPlanDay":"2026-01-15","timeOfDay":"morning"}}],"count":1}`)
	})
	mux.HandleFunc("/api/custom-workouts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"customWorkouts":[],"count":0}`)
	})
	mux.HandleFunc("/api/selections/1", func(w http.ResponseWriter, r *http.Request) {
		var update map[string]any
		_ = json.NewDecoder(r.Body).Decode(&update)
		f.mu.Lock()
		f.updates = append(f.updates, update)
		f.mu.Unlock()
		update["workoutId"] = 1
		_ = json.NewEncoder(w).Encode(update)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeConfig(t *testing.T, backendURL string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	content := fmt.Sprintf(`backend:
  url: %s
  tokenpath: %s
cache:
  driver: memory
`, backendURL, filepath.Join(dir, "token"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	cmd := New()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCalendar(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := writeConfig(t, backend.server.URL)

	t.Run("should print the week containing the date", func(t *testing.T) {
		// when
		out, err := run(t, "--config", cfg, "calendar", "--date", "2026-01-15")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "Week of 2026-01-12")
		assert.Contains(t, out, "Endurance Ride")
	})

	t.Run("should reject an unknown view", func(t *testing.T) {
		// when
		_, err := run(t, "--config", cfg, "calendar", "--view", "year")

		// then
		assert.Error(t, err)
	})
}

func TestDay(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := writeConfig(t, backend.server.URL)

	// when
	out, err := run(t, "--config", cfg, "day", "2026-01-15")

	// then
	require.NoError(t, err)
	assert.Contains(t, out, "Morning")
	assert.Contains(t, out, "Endurance Ride")
}

func TestMove(t *testing.T) {
	t.Run("should send the new day and time of day", func(t *testing.T) {
		// given
		backend := newFakeBackend(t)
		cfg := writeConfig(t, backend.server.URL)

		// when
		out, err := run(t, "--config", cfg, "move", "1", "2026-01-17", "evening")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "moved 1 to 2026-01-17")
		require.Len(t, backend.updates, 1)
		assert.Equal(t, "2026-01-17", backend.updates[0]["currentPlanDay"])
		assert.Equal(t, "evening", backend.updates[0]["timeOfDay"])
	})

	t.Run("should not call the backend when nothing changes", func(t *testing.T) {
		// given
		backend := newFakeBackend(t)
		cfg := writeConfig(t, backend.server.URL)

		// when
		out, err := run(t, "--config", cfg, "move", "1", "2026-01-15", "morning")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "nothing to do")
		assert.Empty(t, backend.updates)
	})

	t.Run("should reject an unknown time of day", func(t *testing.T) {
		// given
		backend := newFakeBackend(t)
		cfg := writeConfig(t, backend.server.URL)

		// when
		_, err := run(t, "--config", cfg, "move", "1", "2026-01-15", "night")

		// then
		assert.ErrorContains(t, err, "unknown time of day")
	})
}

func TestExport(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := writeConfig(t, backend.server.URL)

	t.Run("should write csv rows for the period", func(t *testing.T) {
		// when
		out, err := run(t, "--config", cfg, "export", "csv", "--from", "2026-01-12", "--to", "2026-01-18")

		// then
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Date,"))
		assert.True(t, strings.HasPrefix(lines[1], "2026-01-15,"))
	})

	t.Run("should write an ics file", func(t *testing.T) {
		// given
		target := filepath.Join(t.TempDir(), "plan.ics")

		// when
		_, err := run(t, "--config", cfg, "export", "ics", "--from", "2026-01-12", "--to", "2026-01-18", "--out", target)

		// then
		require.NoError(t, err)
		body, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(body), "BEGIN:VCALENDAR")
		assert.Contains(t, string(body), "Workout schedule: Bike")
	})

	t.Run("should fail when google is not configured", func(t *testing.T) {
		// when
		_, err := run(t, "--config", cfg, "export", "google")

		// then
		assert.ErrorContains(t, err, "not configured")
	})
}

func TestLogin(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := writeConfig(t, backend.server.URL)

	t.Run("should report no token", func(t *testing.T) {
		// when
		out, err := run(t, "--config", cfg, "login")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "not logged in")
	})

	t.Run("should save an opaque token", func(t *testing.T) {
		// when
		out, err := run(t, "--config", cfg, "login", "opaque-token")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "token saved")
		assert.Contains(t, out, "expiry unknown")
	})

	t.Run("should forget the token", func(t *testing.T) {
		// when
		out, err := run(t, "--config", cfg, "login", "--logout")

		// then
		require.NoError(t, err)
		assert.Contains(t, out, "logged out")

		out, err = run(t, "--config", cfg, "login")
		require.NoError(t, err)
		assert.Contains(t, out, "not logged in")
	})
}

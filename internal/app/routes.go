package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/workout-planner/internal/rest"
	"github.com/klokku/workout-planner/pkg/backend"
)

// HealthResponse reports the planner itself and the backend it talks to.
type HealthResponse struct {
	Status  string          `json:"status"`
	Backend *backend.Health `json:"backend,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Planner
	deps.PlannerHandler.Register(r)

	// Operations
	r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	r.HandleFunc("/api/health", healthHandler(deps)).Methods("GET")
}

func healthHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health, err := deps.BackendClient.Health(r.Context())
		if err != nil {
			rest.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Error: err.Error()})
			return
		}
		rest.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Backend: &health})
	}
}

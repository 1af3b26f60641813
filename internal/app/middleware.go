package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the id assigned to the request by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {

	// Reuse the caller's X-Request-Id or assign a new one
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			id := req.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(req.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, req)
			elapsed := time.Since(started)

			route := req.URL.Path
			if current := mux.CurrentRoute(req); current != nil {
				if template, err := current.GetPathTemplate(); err == nil {
					route = template
				}
			}
			deps.Metrics.ObserveHTTPRequest(req.Method, route, rec.status, elapsed)

			log.WithFields(log.Fields{
				"requestId": RequestID(req.Context()),
				"method":    req.Method,
				"route":     route,
				"status":    rec.status,
				"duration":  elapsed,
			}).Debug("Request served")
		})
	})
}

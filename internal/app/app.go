package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/klokku/workout-planner/internal/config"
	"github.com/klokku/workout-planner/internal/rest"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, dependencies, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(cfg config.Application) (*Application, error) {
	deps, err := BuildDependencies(cfg)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	SetupMiddleware(r, deps)

	// Routes
	RegisterRoutes(r, deps)

	// Frontend
	if cfg.Server.Frontend.Enabled {
		frontend := rest.NewFrontendHandler(cfg.Server.Frontend.Dir, "index.html")
		r.PathPrefix("/").Handler(frontend)
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Server.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, router: r, srv: srv}, nil
}

// Dependencies exposes the wired services, for commands that don't serve HTTP.
func (a *Application) Dependencies() *Dependencies {
	return a.deps
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.deps.Close()

	if err := a.deps.StartBackground(ctx, a.cfg); err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serverErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.srv.Shutdown(shutdownCtx)
}

// Close releases the dependencies without serving.
func (a *Application) Close() {
	a.deps.Close()
}

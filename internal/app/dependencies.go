package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klokku/workout-planner/internal/config"
	"github.com/klokku/workout-planner/internal/database"
	"github.com/klokku/workout-planner/internal/event_bus"
	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/expiring_cache"
	"github.com/klokku/workout-planner/pkg/metrics"
	"github.com/klokku/workout-planner/pkg/plan_export"
	"github.com/klokku/workout-planner/pkg/planner"
	"github.com/klokku/workout-planner/pkg/weather"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock   utils.Clock
	Metrics *metrics.Collector
	Bus     *event_bus.EventBus

	DB         *sql.DB
	CacheStore expiring_cache.Store

	Tokens         *backend.TokenStore
	BackendClient  *backend.ClientImpl
	WeatherService *weather.Service

	Session        *planner.Session
	GoogleExporter *plan_export.GoogleExporter
	PlannerHandler *planner.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Clock = utils.SystemClock{}
	deps.Metrics = metrics.NewCollector()
	deps.Bus = event_bus.NewEventBus()

	store, db, err := openCacheStore(cfg)
	if err != nil {
		return nil, err
	}
	deps.CacheStore = store
	deps.DB = db

	deps.Tokens, err = backend.NewTokenStore(cfg.Backend.TokenPath)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.BackendClient = backend.NewClient(cfg.Backend.Url, cfg.Backend.Timeout, deps.Tokens, deps.Metrics)

	daily := expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{
		Name:     "daily",
		TTL:      cfg.Cache.Ttl,
		Store:    deps.CacheStore,
		Clock:    deps.Clock,
		Observer: deps.Metrics,
	})
	byTime := expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{
		Name:     "time_of_day",
		TTL:      cfg.Cache.Ttl,
		Store:    deps.CacheStore,
		Clock:    deps.Clock,
		Observer: deps.Metrics,
	})
	deps.WeatherService = weather.NewService(deps.BackendClient, daily, byTime, deps.Clock)
	if err := deps.WeatherService.Load(); err != nil {
		log.Warnf("Weather cache not restored: %v", err)
	}

	mode, err := calendar_grid.ParseViewMode(cfg.Planner.View)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Session = planner.NewSession(planner.Options{
		Client:          deps.BackendClient,
		Weather:         deps.WeatherService,
		Bus:             deps.Bus,
		Observer:        deps.Metrics,
		Clock:           deps.Clock,
		ViewMode:        mode,
		PrefetchWeather: cfg.Planner.PrefetchWeather,
	})

	// the handler must see a nil interface when Google export is disabled
	var exporter planner.CalendarExporter
	if cfg.Google.Enabled() {
		deps.GoogleExporter = plan_export.NewGoogleExporter(plan_export.GoogleConfig{
			ClientID:     cfg.Google.ClientId,
			ClientSecret: cfg.Google.ClientSecret,
			CalendarID:   cfg.Google.CalendarId,
			TokenPath:    cfg.Google.TokenPath,
		})
		exporter = deps.GoogleExporter
	}
	deps.PlannerHandler = planner.NewHandler(deps.Session, exporter)

	return deps, nil
}

func openCacheStore(cfg config.Application) (expiring_cache.Store, *sql.DB, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return expiring_cache.NewMemoryStore(), nil, nil
	case "postgres":
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(cfg.Database); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return expiring_cache.NewPostgresStore(db), db, nil
	case "diskv", "":
		store, err := expiring_cache.NewDiskvStore(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
}

// StartBackground starts the periodic cache sweepers and loads the first
// snapshot of the plan. A failed refresh is logged, the server still starts.
func (d *Dependencies) StartBackground(ctx context.Context, cfg config.Application) error {
	if err := d.WeatherService.StartSweepers(cfg.Cache.SweepInterval); err != nil {
		return err
	}
	if err := d.Session.Refresh(ctx); err != nil {
		log.Warnf("Initial plan refresh failed: %v", err)
	}
	return nil
}

// Close disposes the session and releases the database, if any.
func (d *Dependencies) Close() {
	if d.Session != nil {
		d.Session.Dispose()
	} else if d.WeatherService != nil {
		d.WeatherService.Dispose()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			log.Errorf("failed to close database: %v", err)
		}
	}
}

package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/expiring_cache"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

// Forecast ranges offered by the backend, counted in days from today.
const (
	MaxDailyForecastDays  = 16
	MaxHourlyForecastDays = 7
)

var ErrOutOfRange = fmt.Errorf("date is beyond the forecast range")

// Forecast is the weather for a whole day (TimeOfDay empty) or one time of day.
type Forecast struct {
	Date      calendar_date.CalendarDate `json:"date"`
	TimeOfDay workout.TimeOfDay          `json:"timeOfDay,omitempty"`
	backend.PeriodForecast
}

// Service serves forecasts from the expiring caches and goes to the backend
// only for missing or stale entries.
type Service struct {
	client backend.Client
	daily  *expiring_cache.Cache[backend.PeriodForecast]
	byTime *expiring_cache.Cache[backend.PeriodForecast]
	clock  utils.Clock
}

func NewService(client backend.Client, daily, byTime *expiring_cache.Cache[backend.PeriodForecast], clock utils.Clock) *Service {
	return &Service{client: client, daily: daily, byTime: byTime, clock: clock}
}

// Forecast returns the forecast for date, narrowed to bucket unless bucket is Unscheduled.
func (s *Service) Forecast(ctx context.Context, date calendar_date.CalendarDate, bucket workout.TimeOfDay) (Forecast, error) {
	if !bucket.IsScheduled() {
		return s.dailyForecast(ctx, date)
	}
	return s.timeOfDayForecast(ctx, date, bucket)
}

// Cached returns a fresh cached forecast without calling the backend.
func (s *Service) Cached(date calendar_date.CalendarDate, bucket workout.TimeOfDay) (Forecast, bool) {
	if !bucket.IsScheduled() {
		f, ok := s.daily.Get(expiring_cache.Key(date))
		return Forecast{Date: date, PeriodForecast: f}, ok
	}
	f, ok := s.byTime.Get(expiring_cache.SubKey(date, string(bucket)))
	return Forecast{Date: date, TimeOfDay: bucket, PeriodForecast: f}, ok
}

func (s *Service) dailyForecast(ctx context.Context, date calendar_date.CalendarDate) (Forecast, error) {
	key := expiring_cache.Key(date)
	if f, ok := s.daily.Get(key); ok {
		return Forecast{Date: date, PeriodForecast: f}, nil
	}
	if err := s.checkRange(date, MaxDailyForecastDays); err != nil {
		return Forecast{}, err
	}

	daily, err := s.client.DailyWeather(ctx, date)
	if err != nil {
		return Forecast{}, err
	}
	if err := s.daily.Set(key, daily.PeriodForecast); err != nil {
		log.Warnf("Forecast for %s not persisted: %v", date, err)
	}
	return Forecast{Date: date, PeriodForecast: daily.PeriodForecast}, nil
}

func (s *Service) timeOfDayForecast(ctx context.Context, date calendar_date.CalendarDate, bucket workout.TimeOfDay) (Forecast, error) {
	key := expiring_cache.SubKey(date, string(bucket))
	if f, ok := s.byTime.Get(key); ok {
		return Forecast{Date: date, TimeOfDay: bucket, PeriodForecast: f}, nil
	}
	if err := s.checkRange(date, MaxHourlyForecastDays); err != nil {
		return Forecast{}, err
	}

	forecast, err := s.client.TimeOfDayWeather(ctx, date)
	if err != nil {
		return Forecast{}, err
	}
	periods := map[workout.TimeOfDay]backend.PeriodForecast{
		workout.Morning:   forecast.Morning,
		workout.Afternoon: forecast.Afternoon,
		workout.Evening:   forecast.Evening,
	}
	for t, period := range periods {
		if err := s.byTime.Set(expiring_cache.SubKey(date, string(t)), period); err != nil {
			log.Warnf("Forecast for %s %s not persisted: %v", date, t, err)
		}
	}
	return Forecast{Date: date, TimeOfDay: bucket, PeriodForecast: periods[bucket]}, nil
}

func (s *Service) checkRange(date calendar_date.CalendarDate, days int) error {
	last := calendar_date.Today(s.clock).AddDays(days)
	if date.After(last) {
		return fmt.Errorf("%w: %s is after %s (%d-day forecast)", ErrOutOfRange, date, last, days)
	}
	return nil
}

// StartSweepers starts the periodic expiry sweep of both caches.
func (s *Service) StartSweepers(interval time.Duration) error {
	if err := s.daily.StartSweeper(interval); err != nil {
		return err
	}
	return s.byTime.StartSweeper(interval)
}

// Load restores both caches from durable storage.
func (s *Service) Load() error {
	if err := s.daily.Load(); err != nil {
		return err
	}
	return s.byTime.Load()
}

func (s *Service) Dispose() {
	s.daily.Dispose()
	s.byTime.Dispose()
}

package backend

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/klokku/workout-planner/pkg/calendar_date"
)

var ErrNotFound = fmt.Errorf("not found in backend")
var ErrUnauthenticated = fmt.Errorf("not authenticated with the backend")
var ErrUnavailable = fmt.Errorf("backend unavailable")

// UpstreamError is a non-2xx answer from the backend.
type UpstreamError struct {
	Status    int
	Message   string
	RequestID string
	kind      error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d (request %s)", e.Status, e.RequestID)
	}
	return fmt.Sprintf("backend returned status %d: %s (request %s)", e.Status, e.Message, e.RequestID)
}

// Unwrap exposes ErrNotFound for 404 and ErrUnauthenticated for 401.
func (e *UpstreamError) Unwrap() error {
	return e.kind
}

type SelectionDTO struct {
	ID              int                         `json:"id,omitempty"`
	WorkoutID       int                         `json:"workoutId,omitempty"`
	IsSelected      *bool                       `json:"isSelected"`
	CurrentPlanDay  *calendar_date.CalendarDate `json:"currentPlanDay"`
	ActualDate      *calendar_date.CalendarDate `json:"actualDate,omitempty"`
	TimeOfDay       *string                     `json:"timeOfDay"`
	WorkoutLocation *string                     `json:"workoutLocation"`
	UserNotes       *string                     `json:"userNotes"`
}

type WorkoutDTO struct {
	ID                      int                         `json:"id"`
	Title                   string                      `json:"title"`
	WorkoutType             string                      `json:"workoutType"`
	WorkoutDescription      string                      `json:"workoutDescription"`
	PlannedDuration         *float64                    `json:"plannedDuration"`
	PlannedDistanceInMeters *float64                    `json:"plannedDistanceInMeters"`
	OriginallyPlannedDay    *calendar_date.CalendarDate `json:"originallyPlannedDay"`
	WorkoutDay              *calendar_date.CalendarDate `json:"workoutDay,omitempty"`
	CoachComments           string                      `json:"coachComments"`
	TSS                     *float64                    `json:"tss"`
	IntensityFactor         *float64                    `json:"intensityFactor"`
	Selection               *SelectionDTO               `json:"selection"`
}

// SelectionUpdate is a partial update. Nil fields are left out of the request
// and keep their value on the backend.
type SelectionUpdate struct {
	IsSelected      *bool                       `json:"isSelected,omitempty"`
	CurrentPlanDay  *calendar_date.CalendarDate `json:"currentPlanDay,omitempty"`
	TimeOfDay       *string                     `json:"timeOfDay,omitempty"`
	WorkoutLocation *string                     `json:"workoutLocation,omitempty"`
	UserNotes       *string                     `json:"userNotes,omitempty"`
}

func (u SelectionUpdate) IsEmpty() bool {
	return u == SelectionUpdate{}
}

type CustomWorkoutDTO struct {
	ID              int                        `json:"id,omitempty"`
	Title           string                     `json:"title"`
	WorkoutType     string                     `json:"workoutType"`
	Description     string                     `json:"description"`
	PlannedDate     calendar_date.CalendarDate `json:"plannedDate"`
	PlannedDuration *float64                   `json:"plannedDuration"`
	TimeOfDay       *string                    `json:"timeOfDay"`
	IsCustom        bool                       `json:"isCustom,omitempty"`
}

// CustomWorkoutUpdate is a partial update of a custom workout.
type CustomWorkoutUpdate struct {
	Title           *string                     `json:"title,omitempty"`
	WorkoutType     *string                     `json:"workoutType,omitempty"`
	Description     *string                     `json:"description,omitempty"`
	PlannedDate     *calendar_date.CalendarDate `json:"plannedDate,omitempty"`
	PlannedDuration *float64                    `json:"plannedDuration,omitempty"`
	TimeOfDay       *string                     `json:"timeOfDay,omitempty"`
}

type ImportResult struct {
	Message  string `json:"message"`
	Imported int    `json:"imported"`
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type Stats struct {
	TotalWorkouts    int `json:"totalWorkouts"`
	SelectedWorkouts int `json:"selectedWorkouts"`
	CustomWorkouts   int `json:"customWorkouts"`
}

// PeriodForecast summarises the hours of one time of day.
type PeriodForecast struct {
	Temperature     *float64 `json:"temperature"`
	RainProbability *int     `json:"rain_probability"`
	Windspeed       *float64 `json:"windspeed"`
	WeatherCode     *int     `json:"weather_code"`
	Description     string   `json:"description"`
}

type DailyForecast struct {
	Date calendar_date.CalendarDate `json:"date"`
	PeriodForecast
}

type TimeOfDayForecast struct {
	Date      calendar_date.CalendarDate `json:"date"`
	Morning   PeriodForecast             `json:"morning"`
	Afternoon PeriodForecast             `json:"afternoon"`
	Evening   PeriodForecast             `json:"evening"`
}

// Client talks to the workout backend. Every method maps to one request.
type Client interface {
	// GET /api/workouts
	ListWorkouts(ctx context.Context) ([]WorkoutDTO, error)
	// GET /api/workouts/{id}
	GetWorkout(ctx context.Context, id int) (WorkoutDTO, error)
	// PUT /api/selections/{id}
	UpdateSelection(ctx context.Context, workoutID int, update SelectionUpdate) (SelectionDTO, error)
	// DELETE /api/selections/{id}
	DeleteSelection(ctx context.Context, workoutID int) error
	// /api/custom-workouts
	ListCustomWorkouts(ctx context.Context) ([]CustomWorkoutDTO, error)
	CreateCustomWorkout(ctx context.Context, workout CustomWorkoutDTO) (CustomWorkoutDTO, error)
	UpdateCustomWorkout(ctx context.Context, id int, update CustomWorkoutUpdate) (CustomWorkoutDTO, error)
	DeleteCustomWorkout(ctx context.Context, id int) error
	// POST /api/workouts/import, multipart field "file"
	ImportWorkouts(ctx context.Context, filename string, csv io.Reader) (ImportResult, error)
	// GET /api/weather/{date} and /api/weather/{date}/time-of-day
	DailyWeather(ctx context.Context, date calendar_date.CalendarDate) (DailyForecast, error)
	TimeOfDayWeather(ctx context.Context, date calendar_date.CalendarDate) (TimeOfDayForecast, error)
	Health(ctx context.Context) (Health, error)
	Stats(ctx context.Context) (Stats, error)
}

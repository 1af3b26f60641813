package backend

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/klokku/workout-planner/pkg/calendar_date"
)

// ClientStub is an in-memory backend for tests.
type ClientStub struct {
	mu               sync.RWMutex
	workouts         map[int]WorkoutDTO
	custom           map[int]CustomWorkoutDTO
	nextCustomID     int
	daily            map[calendar_date.CalendarDate]DailyForecast
	timeOfDay        map[calendar_date.CalendarDate]TimeOfDayForecast
	imported         []string
	selectionUpdates []SelectionUpdate
	customUpdates    []CustomWorkoutUpdate
	weatherCalls     int

	listErr       error
	getErr        error
	updateErr     error
	customErr     error
	weatherErr    error
	importErr     error
	importedCount int
	afterImport   []WorkoutDTO
}

func NewClientStub() *ClientStub {
	s := &ClientStub{}
	s.Reset()
	return s
}

func (s *ClientStub) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts = make(map[int]WorkoutDTO)
	s.custom = make(map[int]CustomWorkoutDTO)
	s.nextCustomID = 1
	s.daily = make(map[calendar_date.CalendarDate]DailyForecast)
	s.timeOfDay = make(map[calendar_date.CalendarDate]TimeOfDayForecast)
	s.imported = nil
	s.selectionUpdates = nil
	s.customUpdates = nil
	s.weatherCalls = 0
	s.listErr, s.getErr, s.updateErr, s.customErr, s.weatherErr, s.importErr = nil, nil, nil, nil, nil, nil
	s.importedCount = 0
	s.afterImport = nil
}

func (s *ClientStub) AddWorkouts(workouts ...WorkoutDTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range workouts {
		s.workouts[w.ID] = w
	}
}

func (s *ClientStub) AddCustomWorkouts(workouts ...CustomWorkoutDTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range workouts {
		w.IsCustom = true
		s.custom[w.ID] = w
		if w.ID >= s.nextCustomID {
			s.nextCustomID = w.ID + 1
		}
	}
}

func (s *ClientStub) SetDailyForecast(f DailyForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily[f.Date] = f
}

func (s *ClientStub) SetTimeOfDayForecast(f TimeOfDayForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeOfDay[f.Date] = f
}

// SetImportResult makes the next ImportWorkouts report count and add workouts.
func (s *ClientStub) SetImportResult(count int, workouts ...WorkoutDTO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importedCount = count
	s.afterImport = workouts
}

func (s *ClientStub) SetListError(err error)    { s.withLock(func() { s.listErr = err }) }
func (s *ClientStub) SetGetError(err error)     { s.withLock(func() { s.getErr = err }) }
func (s *ClientStub) SetUpdateError(err error)  { s.withLock(func() { s.updateErr = err }) }
func (s *ClientStub) SetCustomError(err error)  { s.withLock(func() { s.customErr = err }) }
func (s *ClientStub) SetWeatherError(err error) { s.withLock(func() { s.weatherErr = err }) }
func (s *ClientStub) SetImportError(err error)  { s.withLock(func() { s.importErr = err }) }

func (s *ClientStub) withLock(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

// SelectionUpdates returns every update request received, in order.
func (s *ClientStub) SelectionUpdates() []SelectionUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SelectionUpdate(nil), s.selectionUpdates...)
}

func (s *ClientStub) CustomUpdates() []CustomWorkoutUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CustomWorkoutUpdate(nil), s.customUpdates...)
}

func (s *ClientStub) WeatherCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weatherCalls
}

func (s *ClientStub) Imported() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.imported...)
}

func (s *ClientStub) ListWorkouts(ctx context.Context) ([]WorkoutDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	result := make([]WorkoutDTO, 0, len(s.workouts))
	for _, w := range s.workouts {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *ClientStub) GetWorkout(ctx context.Context, id int) (WorkoutDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.getErr != nil {
		return WorkoutDTO{}, s.getErr
	}
	w, ok := s.workouts[id]
	if !ok {
		return WorkoutDTO{}, &UpstreamError{Status: 404, Message: "Workout not found", kind: ErrNotFound}
	}
	return w, nil
}

func (s *ClientStub) UpdateSelection(ctx context.Context, workoutID int, update SelectionUpdate) (SelectionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectionUpdates = append(s.selectionUpdates, update)
	if s.updateErr != nil {
		return SelectionDTO{}, s.updateErr
	}
	w, ok := s.workouts[workoutID]
	if !ok {
		return SelectionDTO{}, &UpstreamError{Status: 404, Message: "Workout not found", kind: ErrNotFound}
	}
	selection := SelectionDTO{WorkoutID: workoutID}
	if w.Selection != nil {
		selection = *w.Selection
	}
	if update.IsSelected != nil {
		selection.IsSelected = update.IsSelected
	}
	if update.CurrentPlanDay != nil {
		selection.CurrentPlanDay = update.CurrentPlanDay
	}
	if update.TimeOfDay != nil {
		selection.TimeOfDay = update.TimeOfDay
	}
	if update.WorkoutLocation != nil {
		selection.WorkoutLocation = update.WorkoutLocation
	}
	if update.UserNotes != nil {
		selection.UserNotes = update.UserNotes
	}
	w.Selection = &selection
	s.workouts[workoutID] = w
	return selection, nil
}

func (s *ClientStub) DeleteSelection(ctx context.Context, workoutID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	w, ok := s.workouts[workoutID]
	if !ok {
		return &UpstreamError{Status: 404, Message: "Workout not found", kind: ErrNotFound}
	}
	w.Selection = nil
	s.workouts[workoutID] = w
	return nil
}

func (s *ClientStub) ListCustomWorkouts(ctx context.Context) ([]CustomWorkoutDTO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	result := make([]CustomWorkoutDTO, 0, len(s.custom))
	for _, w := range s.custom {
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *ClientStub) CreateCustomWorkout(ctx context.Context, workout CustomWorkoutDTO) (CustomWorkoutDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customErr != nil {
		return CustomWorkoutDTO{}, s.customErr
	}
	workout.ID = s.nextCustomID
	workout.IsCustom = true
	s.nextCustomID++
	s.custom[workout.ID] = workout
	return workout, nil
}

func (s *ClientStub) UpdateCustomWorkout(ctx context.Context, id int, update CustomWorkoutUpdate) (CustomWorkoutDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customUpdates = append(s.customUpdates, update)
	if s.customErr != nil {
		return CustomWorkoutDTO{}, s.customErr
	}
	w, ok := s.custom[id]
	if !ok {
		return CustomWorkoutDTO{}, &UpstreamError{Status: 404, Message: "Custom workout not found", kind: ErrNotFound}
	}
	if update.Title != nil {
		w.Title = *update.Title
	}
	if update.WorkoutType != nil {
		w.WorkoutType = *update.WorkoutType
	}
	if update.Description != nil {
		w.Description = *update.Description
	}
	if update.PlannedDate != nil {
		w.PlannedDate = *update.PlannedDate
	}
	if update.PlannedDuration != nil {
		w.PlannedDuration = update.PlannedDuration
	}
	if update.TimeOfDay != nil {
		w.TimeOfDay = update.TimeOfDay
	}
	s.custom[id] = w
	return w, nil
}

func (s *ClientStub) DeleteCustomWorkout(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.customErr != nil {
		return s.customErr
	}
	if _, ok := s.custom[id]; !ok {
		return &UpstreamError{Status: 404, Message: "Custom workout not found", kind: ErrNotFound}
	}
	delete(s.custom, id)
	return nil
}

func (s *ClientStub) ImportWorkouts(ctx context.Context, filename string, csv io.Reader) (ImportResult, error) {
	if _, err := io.ReadAll(csv); err != nil {
		return ImportResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.importErr != nil {
		return ImportResult{}, s.importErr
	}
	s.imported = append(s.imported, filename)
	for _, w := range s.afterImport {
		s.workouts[w.ID] = w
	}
	return ImportResult{Message: "imported", Imported: s.importedCount}, nil
}

func (s *ClientStub) DailyWeather(ctx context.Context, date calendar_date.CalendarDate) (DailyForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherCalls++
	if s.weatherErr != nil {
		return DailyForecast{}, s.weatherErr
	}
	f, ok := s.daily[date]
	if !ok {
		return DailyForecast{}, &UpstreamError{Status: 404, Message: "No forecast data", kind: ErrNotFound}
	}
	return f, nil
}

func (s *ClientStub) TimeOfDayWeather(ctx context.Context, date calendar_date.CalendarDate) (TimeOfDayForecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weatherCalls++
	if s.weatherErr != nil {
		return TimeOfDayForecast{}, s.weatherErr
	}
	f, ok := s.timeOfDay[date]
	if !ok {
		return TimeOfDayForecast{}, &UpstreamError{Status: 404, Message: "No forecast data", kind: ErrNotFound}
	}
	return f, nil
}

func (s *ClientStub) Health(ctx context.Context) (Health, error) {
	return Health{Status: "healthy", Timestamp: time.Now().UTC()}, nil
}

func (s *ClientStub) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{TotalWorkouts: len(s.workouts), CustomWorkouts: len(s.custom)}
	for _, w := range s.workouts {
		if w.Selection != nil && w.Selection.IsSelected != nil && *w.Selection.IsSelected {
			stats.SelectedWorkouts++
		}
	}
	return stats, nil
}

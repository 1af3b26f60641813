package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klokku/workout-planner/internal/event_bus"
	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/expiring_cache"
	"github.com/klokku/workout-planner/pkg/weather"
	"github.com/klokku/workout-planner/pkg/workout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx       = context.Background()
	thursday  = calendar_date.MustNew(2026, 1, 15)
	friday    = calendar_date.MustNew(2026, 1, 16)
	morning   = workout.Morning
	evening   = workout.Evening
	client    = backend.NewClientStub()
	clock     = utils.NewMockClock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.Local))
	bus       *event_bus.EventBus
	observer  *recordingObserver
	session   *Session
	forecasts *weather.Service
)

type recordingObserver struct {
	mu      sync.Mutex
	applied []string
	failed  []string
}

func (o *recordingObserver) IntentApplied(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = append(o.applied, kind)
}

func (o *recordingObserver) IntentFailed(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, kind)
}

func setup(t *testing.T) func() {
	clock.SetNow(time.Date(2026, 1, 15, 9, 0, 0, 0, time.Local))
	store := expiring_cache.NewMemoryStore()
	daily := expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{Name: "daily", Store: store, Clock: clock})
	byTime := expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{Name: "time_of_day", Store: store, Clock: clock})
	forecasts = weather.NewService(client, daily, byTime, clock)
	bus = event_bus.NewEventBus()
	observer = &recordingObserver{}
	session = NewSession(Options{
		Client:   client,
		Weather:  forecasts,
		Bus:      bus,
		Observer: observer,
		Clock:    clock,
		ViewMode: calendar_grid.Week,
	})
	return func() {
		session.Dispose()
		client.Reset()
	}
}

func selected(v bool) *bool {
	return &v
}

func text(v string) *string {
	return &v
}

func date(d calendar_date.CalendarDate) *calendar_date.CalendarDate {
	return &d
}

func seedScenario(t *testing.T) {
	client.AddWorkouts(
		backend.WorkoutDTO{ID: 1, Title: "Threshold", WorkoutType: "Bike", OriginallyPlannedDay: date(thursday),
			Selection: &backend.SelectionDTO{WorkoutID: 1, IsSelected: selected(true), TimeOfDay: text("morning")}},
		backend.WorkoutDTO{ID: 2, Title: "Recovery", WorkoutType: "Run", OriginallyPlannedDay: date(thursday),
			Selection: &backend.SelectionDTO{WorkoutID: 2, IsSelected: selected(false)}},
	)
	require.NoError(t, session.Refresh(ctx))
}

func TestSession_Refresh(t *testing.T) {
	t.Run("should map workouts and skip invalid records", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		var refreshed []event_bus.ItemsRefreshed
		event_bus.SubscribeTyped(bus, event_bus.PlannerItemsRefreshed, func(e event_bus.EventT[event_bus.ItemsRefreshed]) error {
			refreshed = append(refreshed, e.Data)
			return nil
		})
		client.AddWorkouts(
			backend.WorkoutDTO{ID: 1, Title: "Threshold", WorkoutType: "Bike", OriginallyPlannedDay: date(thursday)},
			backend.WorkoutDTO{ID: 2, Title: "", WorkoutType: "Run", OriginallyPlannedDay: date(thursday)},
		)
		client.AddCustomWorkouts(backend.CustomWorkoutDTO{ID: 7, Title: "Group ride", WorkoutType: "Bike", PlannedDate: friday})

		// when
		err := session.Refresh(ctx)

		// then
		require.NoError(t, err)
		items := session.Items()
		require.Len(t, items, 2)
		assert.Equal(t, workout.Key{ID: 1}, items[0].Key())
		assert.Equal(t, workout.Key{ID: 7, IsCustom: true}, items[1].Key())
		assert.Equal(t, []event_bus.ItemsRefreshed{{Count: 2, Rejected: 1}}, refreshed)
	})

	t.Run("should keep current items when the backend fails", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		client.SetListError(&backend.UpstreamError{Status: 500, Message: "boom"})

		// when
		err := session.Refresh(ctx)

		// then
		assert.Error(t, err)
		assert.Len(t, session.Items(), 2)
	})
}

func TestSession_EndToEndScenario(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	seedScenario(t)

	// when
	day := session.Day(thursday)

	// then
	require.Len(t, day.Items, 2)
	assert.Equal(t, 1, day.Items[0].ID)
	assert.Equal(t, 2, day.Items[1].ID)
	require.Len(t, day.Groups.Morning, 1)
	assert.Equal(t, 1, day.Groups.Morning[0].ID)
	require.Len(t, day.Groups.Unscheduled, 1)
	assert.Equal(t, 2, day.Groups.Unscheduled[0].ID)
	assert.Empty(t, day.Groups.Afternoon)
	assert.Empty(t, day.Groups.Evening)
	assert.Equal(t, 2, day.Groups.Len())
}

func TestSession_Grid(t *testing.T) {
	t.Run("should build the week around today with items in their cells", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)

		// when
		grid := session.Grid()

		// then
		require.Len(t, grid.Cells, 7)
		assert.Equal(t, calendar_date.MustNew(2026, 1, 12), grid.Cells[0].Date)
		assert.Equal(t, thursday, grid.Today)
		thursdayCell := grid.Cells[3]
		assert.Equal(t, thursday, thursdayCell.Date)
		require.Len(t, thursdayCell.Items, 2)
		assert.Equal(t, 1, thursdayCell.Items[0].ID)
		assert.Equal(t, 2, grid.Summary.Count)
		assert.Equal(t, 1, grid.Summary.Selected)
		assert.Equal(t, drag_drop.Idle, grid.Drag.State)
	})

	t.Run("should navigate and switch view modes", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		next := session.Navigate(calendar_grid.ActionNext)
		month := session.SetViewMode(calendar_grid.Month)
		back := session.Navigate(calendar_grid.ActionToday)

		// then
		assert.Equal(t, calendar_date.MustNew(2026, 1, 19), next.Cells[0].Date)
		assert.Equal(t, calendar_grid.Month, month.Mode)
		assert.Equal(t, 0, len(month.Cells)%7)
		assert.Equal(t, "January 2026", back.Title)
	})
}

func TestSession_Drop(t *testing.T) {
	t.Run("should move the item to another day and bucket", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		var moved []event_bus.ItemMoved
		event_bus.SubscribeTyped(bus, event_bus.PlannerItemMoved, func(e event_bus.EventT[event_bus.ItemMoved]) error {
			moved = append(moved, e.Data)
			return nil
		})
		require.NoError(t, session.StartDrag(workout.Key{ID: 1}))
		require.NoError(t, session.Hover(drag_drop.DropTarget{Day: friday, TimeOfDay: &evening}))

		// when
		intent, err := session.Drop(ctx, drag_drop.DropTarget{Day: friday, TimeOfDay: &evening})

		// then
		require.NoError(t, err)
		assert.Equal(t, drag_drop.BothChanged, intent.Kind)
		updates := client.SelectionUpdates()
		require.Len(t, updates, 1)
		assert.Equal(t, friday, *updates[0].CurrentPlanDay)
		assert.Equal(t, "evening", *updates[0].TimeOfDay)
		item, err := session.Item(workout.Key{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, friday, item.Date)
		assert.Equal(t, workout.Evening, item.TimeOfDay)
		assert.Len(t, session.Day(thursday).Items, 1)
		assert.Equal(t, []string{"bothChanged"}, observer.applied)
		require.Len(t, moved, 1)
		assert.Equal(t, "1", moved[0].ItemKey)
		assert.Equal(t, thursday, moved[0].FromDate)
		assert.Equal(t, friday, moved[0].ToDate)
		assert.Equal(t, drag_drop.Idle, session.Grid().Drag.State)
	})

	t.Run("should keep local state when the backend rejects the move", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		client.SetUpdateError(&backend.UpstreamError{Status: 500, Message: "database locked"})
		require.NoError(t, session.StartDrag(workout.Key{ID: 1}))

		// when
		_, err := session.Drop(ctx, drag_drop.DropTarget{Day: friday})

		// then
		var upstream *backend.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, "database locked", upstream.Message)
		item, err := session.Item(workout.Key{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, thursday, item.Date)
		assert.Equal(t, []string{"dateChanged"}, observer.failed)
		assert.Empty(t, observer.applied)
	})

	t.Run("should ignore a drop without an active drag", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)

		// when
		intent, err := session.Drop(ctx, drag_drop.DropTarget{Day: friday})

		// then
		require.NoError(t, err)
		assert.True(t, intent.IsNoChange())
		assert.Empty(t, client.SelectionUpdates())
	})

	t.Run("should not call the backend for a drop on the same cell", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		require.NoError(t, session.StartDrag(workout.Key{ID: 1}))

		// when
		intent, err := session.Drop(ctx, drag_drop.DropTarget{Day: thursday, TimeOfDay: &morning})

		// then
		require.NoError(t, err)
		assert.Equal(t, drag_drop.NoChange, intent.Kind)
		assert.Empty(t, client.SelectionUpdates())
		assert.Empty(t, observer.applied)
	})

	t.Run("should move custom workouts through the custom endpoint", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		client.AddCustomWorkouts(backend.CustomWorkoutDTO{ID: 3, Title: "Group ride", WorkoutType: "Bike", PlannedDate: thursday})
		require.NoError(t, session.Refresh(ctx))
		require.NoError(t, session.StartDrag(workout.Key{ID: 3, IsCustom: true}))

		// when
		intent, err := session.Drop(ctx, drag_drop.DropTarget{Day: thursday, TimeOfDay: &morning})

		// then
		require.NoError(t, err)
		assert.Equal(t, drag_drop.TimeChanged, intent.Kind)
		assert.Empty(t, client.SelectionUpdates())
		updates := client.CustomUpdates()
		require.Len(t, updates, 1)
		assert.Nil(t, updates[0].PlannedDate)
		assert.Equal(t, "morning", *updates[0].TimeOfDay)
	})

	t.Run("should refuse hover without a drag", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		err := session.Hover(drag_drop.DropTarget{Day: friday})

		assert.ErrorIs(t, err, drag_drop.ErrNotDragging)
	})

	t.Run("should report unknown items on drag start", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		err := session.StartDrag(workout.Key{ID: 99})

		assert.ErrorIs(t, err, workout.ErrNotFound)
	})
}

func TestSession_Move(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	seedScenario(t)

	// when
	intent, err := session.Move(ctx, workout.Key{ID: 2}, drag_drop.DropTarget{Day: friday})

	// then
	require.NoError(t, err)
	assert.Equal(t, drag_drop.DateChanged, intent.Kind)
	item, err := session.Item(workout.Key{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, friday, item.Date)
}

func TestSession_SelectionEdits(t *testing.T) {
	t.Run("should update selection, location and notes", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		key := workout.Key{ID: 2}

		// when
		_, err := session.SetSelected(ctx, key, true)
		require.NoError(t, err)
		_, err = session.SetLocation(ctx, key, workout.Outdoor)
		require.NoError(t, err)
		item, err := session.SetNotes(ctx, key, "easy pace")
		require.NoError(t, err)

		// then
		assert.True(t, item.IsSelected)
		assert.Equal(t, workout.Outdoor, item.Location)
		assert.Equal(t, "easy pace", item.Notes)
		updates := client.SelectionUpdates()
		require.Len(t, updates, 3)
		assert.True(t, *updates[0].IsSelected)
		assert.Nil(t, updates[0].UserNotes)
		assert.Equal(t, "outdoor", *updates[1].WorkoutLocation)
		assert.Equal(t, "easy pace", *updates[2].UserNotes)
	})

	t.Run("should not change local state when the backend fails", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		client.SetUpdateError(&backend.UpstreamError{Status: 500, Message: "boom"})

		// when
		_, err := session.SetSelected(ctx, workout.Key{ID: 2}, true)

		// then
		assert.Error(t, err)
		item, _ := session.Item(workout.Key{ID: 2})
		assert.False(t, item.IsSelected)
	})

	t.Run("should reset a moved workout to its original day", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		_, err := session.Move(ctx, workout.Key{ID: 1}, drag_drop.DropTarget{Day: friday})
		require.NoError(t, err)

		// when
		item, err := session.ResetSelection(ctx, workout.Key{ID: 1})

		// then
		require.NoError(t, err)
		assert.Equal(t, thursday, item.Date)
		assert.True(t, item.IsSelected)
		assert.Equal(t, workout.Unscheduled, item.TimeOfDay)
	})

	t.Run("should apply several fields with one backend update", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		var updated []event_bus.ItemUpdated
		event_bus.SubscribeTyped(bus, event_bus.PlannerItemUpdated, func(e event_bus.EventT[event_bus.ItemUpdated]) error {
			updated = append(updated, e.Data)
			return nil
		})
		location := workout.Indoor

		// when
		item, err := session.UpdateSelection(ctx, workout.Key{ID: 1}, SelectionChange{
			IsSelected: selected(false),
			Location:   &location,
			Notes:      text("rainy"),
		})

		// then
		require.NoError(t, err)
		assert.False(t, item.IsSelected)
		assert.Equal(t, workout.Indoor, item.Location)
		assert.Equal(t, "rainy", item.Notes)
		require.Len(t, client.SelectionUpdates(), 1)
		require.Len(t, updated, 1)
		assert.Equal(t, "selected,location,notes", updated[0].Field)
	})

	t.Run("should reset locally when the reload fails", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		seedScenario(t)
		_, err := session.Move(ctx, workout.Key{ID: 1}, drag_drop.DropTarget{Day: friday, TimeOfDay: &evening})
		require.NoError(t, err)
		_, err = session.SetNotes(ctx, workout.Key{ID: 1}, "legs heavy")
		require.NoError(t, err)
		client.SetGetError(&backend.UpstreamError{Status: 500, Message: "boom"})
		var updated []event_bus.ItemUpdated
		event_bus.SubscribeTyped(bus, event_bus.PlannerItemUpdated, func(e event_bus.EventT[event_bus.ItemUpdated]) error {
			updated = append(updated, e.Data)
			return nil
		})

		// when
		_, err = session.ResetSelection(ctx, workout.Key{ID: 1})

		// then
		assert.Error(t, err)
		item, itemErr := session.Item(workout.Key{ID: 1})
		require.NoError(t, itemErr)
		assert.Equal(t, thursday, item.Date)
		assert.True(t, item.IsSelected)
		assert.Equal(t, workout.Unscheduled, item.TimeOfDay)
		assert.Empty(t, item.Notes)
		require.Len(t, updated, 1)
		assert.Equal(t, "reset", updated[0].Field)
	})

	t.Run("should refuse selection edits on custom workouts", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := session.SetSelected(ctx, workout.Key{ID: 1, IsCustom: true}, false)

		assert.ErrorIs(t, err, ErrCustomItem)
	})
}

func TestSession_CustomWorkouts(t *testing.T) {
	t.Run("should create a custom workout", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		item, err := session.CreateCustomWorkout(ctx, workout.PlannableItem{
			Title: "Group ride", Type: "Bike", Date: friday, TimeOfDay: workout.Morning,
		})

		// then
		require.NoError(t, err)
		assert.True(t, item.IsCustom)
		assert.Equal(t, 1, item.ID)
		assert.Len(t, session.Day(friday).Items, 1)
	})

	t.Run("should reject drafts without required fields", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := session.CreateCustomWorkout(ctx, workout.PlannableItem{Title: "No type", Date: friday})

		assert.ErrorIs(t, err, workout.ErrInvalidItem)
		assert.True(t, strings.Contains(err.Error(), "workoutType"))
	})

	t.Run("should expand a recurrence rule into custom workouts", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		items, err := session.CreateRecurringCustomWorkout(ctx,
			workout.PlannableItem{Title: "Club run", Type: "Run", Date: calendar_date.MustNew(2026, 1, 13)},
			"FREQ=WEEKLY;BYDAY=TU,TH;COUNT=4", calendar_date.CalendarDate{})

		// then
		require.NoError(t, err)
		require.Len(t, items, 4)
		assert.Equal(t, calendar_date.MustNew(2026, 1, 13), items[0].Date)
		assert.Equal(t, calendar_date.MustNew(2026, 1, 15), items[1].Date)
		assert.Equal(t, calendar_date.MustNew(2026, 1, 20), items[2].Date)
		assert.Equal(t, calendar_date.MustNew(2026, 1, 22), items[3].Date)
	})

	t.Run("should delete a custom workout", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		item, err := session.CreateCustomWorkout(ctx, workout.PlannableItem{Title: "Swim", Type: "Swim", Date: friday})
		require.NoError(t, err)

		// when
		err = session.DeleteCustomWorkout(ctx, item.Key())

		// then
		require.NoError(t, err)
		assert.Empty(t, session.Items())
	})
}

func TestOccurrences(t *testing.T) {
	t.Run("should stop at the until date", func(t *testing.T) {
		dates, err := Occurrences(calendar_date.MustNew(2026, 1, 1), "RRULE:FREQ=DAILY;INTERVAL=2", calendar_date.MustNew(2026, 1, 7))

		require.NoError(t, err)
		assert.Equal(t, []calendar_date.CalendarDate{
			calendar_date.MustNew(2026, 1, 1),
			calendar_date.MustNew(2026, 1, 3),
			calendar_date.MustNew(2026, 1, 5),
			calendar_date.MustNew(2026, 1, 7),
		}, dates)
	})

	t.Run("should reject endless rules", func(t *testing.T) {
		_, err := Occurrences(thursday, "FREQ=WEEKLY", calendar_date.CalendarDate{})

		assert.ErrorIs(t, err, calendar_date.ErrInvalidInput)
	})

	t.Run("should reject malformed rules", func(t *testing.T) {
		_, err := Occurrences(thursday, "FREQ=SOMETIMES;COUNT=2", calendar_date.CalendarDate{})

		assert.ErrorIs(t, err, calendar_date.ErrInvalidInput)
	})
}

func TestSession_Import(t *testing.T) {
	teardown := setup(t)
	defer teardown()

	// given
	client.SetImportResult(1, backend.WorkoutDTO{ID: 11, Title: "Imported", WorkoutType: "Run", OriginallyPlannedDay: date(friday)})

	// when
	result, err := session.Import(ctx, "plan.csv", strings.NewReader("title,date\n"))

	// then
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, []string{"plan.csv"}, client.Imported())
	assert.Len(t, session.Day(friday).Items, 1)
}

func TestSession_Weather(t *testing.T) {
	t.Run("should attach cached weather to the day view", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// given
		client.SetDailyForecast(backend.DailyForecast{Date: thursday, PeriodForecast: backend.PeriodForecast{Description: "Clear sky"}})
		assert.Nil(t, session.Day(thursday).Weather)

		// when
		_, err := session.Weather(ctx, thursday, workout.Unscheduled)
		require.NoError(t, err)

		// then
		day := session.Day(thursday)
		require.NotNil(t, day.Weather)
		assert.Equal(t, "Clear sky", day.Weather.Description)
	})

	t.Run("should prefetch weather for the target day of a move", func(t *testing.T) {
		// given
		clock.SetNow(time.Date(2026, 1, 15, 9, 0, 0, 0, time.Local))
		store := expiring_cache.NewMemoryStore()
		forecasts := weather.NewService(client,
			expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{Name: "daily", Store: store, Clock: clock}),
			expiring_cache.New[backend.PeriodForecast](expiring_cache.Options{Name: "time_of_day", Store: store, Clock: clock}),
			clock)
		prefetching := NewSession(Options{Client: client, Weather: forecasts, Clock: clock, PrefetchWeather: true})
		defer func() {
			prefetching.Dispose()
			client.Reset()
		}()
		client.AddWorkouts(backend.WorkoutDTO{ID: 1, Title: "Threshold", WorkoutType: "Bike", OriginallyPlannedDay: date(thursday)})
		client.SetDailyForecast(backend.DailyForecast{Date: friday, PeriodForecast: backend.PeriodForecast{Description: "Rain"}})
		require.NoError(t, prefetching.Refresh(ctx))

		// when
		_, err := prefetching.Move(ctx, workout.Key{ID: 1}, drag_drop.DropTarget{Day: friday})

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, client.WeatherCalls())
		require.NotNil(t, prefetching.Day(friday).Weather)
		assert.Equal(t, "Rain", prefetching.Day(friday).Weather.Description)
	})
}

func TestSession_Dispose(t *testing.T) {
	// given
	teardown := setup(t)
	defer teardown()
	prefetching := NewSession(Options{Client: client, Weather: forecasts, Bus: bus, Clock: clock, PrefetchWeather: true})
	require.Equal(t, 1, bus.Subscribers(event_bus.PlannerItemMoved))

	// when
	prefetching.Dispose()
	prefetching.Dispose()

	// then
	assert.Equal(t, 0, bus.Subscribers(event_bus.PlannerItemMoved))
	assert.ErrorIs(t, prefetching.Refresh(ctx), ErrDisposed)
}

package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/klokku/workout-planner/internal/event_bus"
	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/weather"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

var ErrCustomItem = fmt.Errorf("operation is not available for custom workouts")
var ErrDisposed = fmt.Errorf("planner session is disposed")

// IntentObserver is notified about every applied or failed mutation intent.
type IntentObserver interface {
	IntentApplied(kind string)
	IntentFailed(kind string)
}

type noopObserver struct{}

func (noopObserver) IntentApplied(string) {}
func (noopObserver) IntentFailed(string)  {}

type Options struct {
	Client   backend.Client
	Weather  *weather.Service
	Bus      *event_bus.EventBus
	Observer IntentObserver
	Clock    utils.Clock
	ViewMode calendar_grid.ViewMode
	// PrefetchWeather warms the forecast of the target day after a move.
	PrefetchWeather bool
}

// Session is the calendar view-model of one user. Writes are serialized and
// the last accepted write wins.
type Session struct {
	mu        sync.Mutex
	client    backend.Client
	weather   *weather.Service
	bus       *event_bus.EventBus
	observer  IntentObserver
	clock     utils.Clock
	navigator *calendar_grid.Navigator
	drag      *drag_drop.Machine

	items []workout.PlannableItem
	index map[string][]workout.PlannableItem

	unsubscribe []func()
	disposed    bool
}

func NewSession(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Bus == nil {
		opts.Bus = event_bus.NewEventBus()
	}
	if opts.ViewMode == "" {
		opts.ViewMode = calendar_grid.Week
	}
	s := &Session{
		client:    opts.Client,
		weather:   opts.Weather,
		bus:       opts.Bus,
		observer:  opts.Observer,
		clock:     opts.Clock,
		navigator: calendar_grid.NewNavigator(opts.Clock, opts.ViewMode),
		drag:      drag_drop.NewMachine(),
		index:     map[string][]workout.PlannableItem{},
	}
	if opts.PrefetchWeather && opts.Weather != nil {
		s.unsubscribe = append(s.unsubscribe,
			event_bus.SubscribeTyped(opts.Bus, event_bus.PlannerItemMoved, s.prefetchWeather))
	}
	return s
}

// CellView is a grid cell with its items, selected first.
type CellView struct {
	calendar_grid.DayCell
	Items   []workout.PlannableItem `json:"items"`
	Summary workout.Summary         `json:"summary"`
}

type DragView struct {
	State  drag_drop.State       `json:"state"`
	ItemID string                `json:"itemId,omitempty"`
	Target *drag_drop.DropTarget `json:"target,omitempty"`
}

type GridView struct {
	Title     string                     `json:"title"`
	Mode      calendar_grid.ViewMode     `json:"mode"`
	Reference calendar_date.CalendarDate `json:"reference"`
	Today     calendar_date.CalendarDate `json:"today"`
	Weekdays  []string                   `json:"weekdays"`
	Cells     []CellView                 `json:"cells"`
	Summary   workout.Summary            `json:"summary"`
	Drag      DragView                   `json:"drag"`
}

type DayView struct {
	Date    calendar_date.CalendarDate `json:"date"`
	Items   []workout.PlannableItem    `json:"items"`
	Groups  workout.TimeBucketGroups   `json:"groups"`
	Summary workout.Summary            `json:"summary"`
	Weather *weather.Forecast          `json:"weather,omitempty"`
}

// Refresh reloads imported and custom workouts. Records that fail mapping are
// logged and skipped; on a backend error the current items are kept.
func (s *Session) Refresh(ctx context.Context) error {
	workouts, err := s.client.ListWorkouts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workouts: %w", err)
	}
	custom, err := s.client.ListCustomWorkouts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list custom workouts: %w", err)
	}

	items := make([]workout.PlannableItem, 0, len(workouts)+len(custom))
	rejected := 0
	for _, dto := range workouts {
		item, err := backend.ToPlannableItem(dto)
		if err != nil {
			log.Warnf("Skipping workout: %v", err)
			rejected++
			continue
		}
		items = append(items, item)
	}
	for _, dto := range custom {
		item, err := backend.CustomToPlannableItem(dto)
		if err != nil {
			log.Warnf("Skipping custom workout: %v", err)
			rejected++
			continue
		}
		items = append(items, item)
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.setItems(items)
	if dragged, ok := s.drag.Dragged(); ok {
		if _, found := s.find(dragged.Key); !found {
			log.Debugf("Dragged item %s disappeared on refresh, cancelling drag", dragged.Key)
			s.drag.Cancel()
		}
	}
	s.mu.Unlock()

	log.Debugf("Refreshed planner: %d items, %d rejected", len(items), rejected)
	s.publish(ctx, event_bus.PlannerItemsRefreshed, event_bus.ItemsRefreshed{Count: len(items), Rejected: rejected})
	return nil
}

// Items returns a copy of the current item list.
func (s *Session) Items() []workout.PlannableItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]workout.PlannableItem(nil), s.items...)
}

func (s *Session) Item(key workout.Key) (workout.PlannableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(key)
	if !ok {
		return workout.PlannableItem{}, fmt.Errorf("%w: %s", workout.ErrNotFound, key)
	}
	return s.items[i], nil
}

func (s *Session) Grid() GridView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gridView(s.navigator.Grid())
}

func (s *Session) Navigate(action calendar_grid.Action) GridView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gridView(s.navigator.Apply(action))
}

func (s *Session) SetViewMode(mode calendar_grid.ViewMode) GridView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gridView(s.navigator.SetMode(mode))
}

func (s *Session) GoTo(date calendar_date.CalendarDate) GridView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gridView(s.navigator.GoTo(date))
}

// Period is the displayed date range, padding days included.
func (s *Session) Period() (calendar_date.CalendarDate, calendar_date.CalendarDate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cells := s.navigator.Grid()
	return cells[0].Date, cells[len(cells)-1].Date
}

func (s *Session) gridView(cells []calendar_grid.DayCell) GridView {
	view := GridView{
		Title:     s.navigator.Title(),
		Mode:      s.navigator.Mode,
		Reference: s.navigator.Reference,
		Today:     calendar_date.Today(s.clock),
		Weekdays:  calendar_grid.WeekdayNames,
		Cells:     make([]CellView, 0, len(cells)),
		Drag:      s.dragView(),
	}
	var displayed []workout.PlannableItem
	for _, cell := range cells {
		items := workout.ItemsForDay(s.index, cell.Date)
		view.Cells = append(view.Cells, CellView{DayCell: cell, Items: items, Summary: workout.Summarize(items)})
		if cell.IsInDisplayedPeriod {
			displayed = append(displayed, items...)
		}
	}
	view.Summary = workout.Summarize(displayed)
	return view
}

func (s *Session) dragView() DragView {
	view := DragView{State: s.drag.State()}
	if dragged, ok := s.drag.Dragged(); ok {
		view.ItemID = dragged.Key.String()
	}
	if target, ok := s.drag.Target(); ok {
		view.Target = &target
	}
	return view
}

// Day lists a day's items and bucket groups. Weather is attached only when a
// fresh forecast is already cached.
func (s *Session) Day(date calendar_date.CalendarDate) DayView {
	s.mu.Lock()
	items := workout.ItemsForDay(s.index, date)
	s.mu.Unlock()

	view := DayView{
		Date:    date,
		Items:   items,
		Groups:  workout.BucketByTimeOfDay(items),
		Summary: workout.Summarize(items),
	}
	if s.weather != nil {
		if forecast, ok := s.weather.Cached(date, workout.Unscheduled); ok {
			view.Weather = &forecast
		}
	}
	return view
}

func (s *Session) Weather(ctx context.Context, date calendar_date.CalendarDate, bucket workout.TimeOfDay) (weather.Forecast, error) {
	if s.weather == nil {
		return weather.Forecast{}, fmt.Errorf("weather is not configured")
	}
	return s.weather.Forecast(ctx, date, bucket)
}

// Dispose stops the weather cache sweepers and drops bus subscriptions. It is
// safe to call more than once.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.drag.Cancel()
	s.mu.Unlock()

	for _, u := range unsubscribe {
		u()
	}
	if s.weather != nil {
		s.weather.Dispose()
	}
	log.Debug("Planner session disposed")
}

func (s *Session) prefetchWeather(e event_bus.EventT[event_bus.ItemMoved]) error {
	if e.Data.ToDate.IsZero() {
		return nil
	}
	_, err := s.weather.Forecast(e.Context(), e.Data.ToDate, workout.Unscheduled)
	if err != nil && !errors.Is(err, weather.ErrOutOfRange) {
		log.Debugf("Weather prefetch for %s failed: %v", e.Data.ToDate, err)
	}
	return nil
}

func (s *Session) setItems(items []workout.PlannableItem) {
	s.items = items
	s.index = workout.IndexByDate(items)
}

func (s *Session) find(key workout.Key) (int, bool) {
	for i, item := range s.items {
		if item.Key() == key {
			return i, true
		}
	}
	return 0, false
}

// replace swaps one item in place so its position in the day stays stable.
func (s *Session) replace(i int, item workout.PlannableItem) {
	items := append([]workout.PlannableItem(nil), s.items...)
	items[i] = item
	s.setItems(items)
}

func (s *Session) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("Publishing %s failed: %v", eventType, err)
	}
}

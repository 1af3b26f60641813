package planner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klokku/workout-planner/internal/event_bus"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

// MaxOccurrences caps how many custom workouts one recurrence rule may create.
const MaxOccurrences = 366

// SelectionChange is a partial edit of an imported workout. Nil fields are
// left as they are.
type SelectionChange struct {
	IsSelected *bool
	Location   *workout.Location
	Notes      *string
}

func (c SelectionChange) fields() []string {
	var fields []string
	if c.IsSelected != nil {
		fields = append(fields, "selected")
	}
	if c.Location != nil {
		fields = append(fields, "location")
	}
	if c.Notes != nil {
		fields = append(fields, "notes")
	}
	return fields
}

func (s *Session) SetSelected(ctx context.Context, key workout.Key, selected bool) (workout.PlannableItem, error) {
	return s.UpdateSelection(ctx, key, SelectionChange{IsSelected: &selected})
}

func (s *Session) SetLocation(ctx context.Context, key workout.Key, location workout.Location) (workout.PlannableItem, error) {
	return s.UpdateSelection(ctx, key, SelectionChange{Location: &location})
}

func (s *Session) SetNotes(ctx context.Context, key workout.Key, notes string) (workout.PlannableItem, error) {
	return s.UpdateSelection(ctx, key, SelectionChange{Notes: &notes})
}

// UpdateSelection sends every field of change in one backend request. The
// local item changes only when the backend accepts the whole update.
func (s *Session) UpdateSelection(ctx context.Context, key workout.Key, change SelectionChange) (workout.PlannableItem, error) {
	field := strings.Join(change.fields(), ",")
	if key.IsCustom {
		return workout.PlannableItem{}, fmt.Errorf("%w: cannot change %s of %s", ErrCustomItem, field, key)
	}
	if field == "" {
		return workout.PlannableItem{}, fmt.Errorf("%w: empty selection update for %s", calendar_date.ErrInvalidInput, key)
	}
	update := backend.SelectionUpdate{IsSelected: change.IsSelected, UserNotes: change.Notes}
	if change.Location != nil {
		value := string(*change.Location)
		update.WorkoutLocation = &value
	}

	s.mu.Lock()
	i, ok := s.find(key)
	if !ok {
		s.mu.Unlock()
		return workout.PlannableItem{}, fmt.Errorf("%w: %s", workout.ErrNotFound, key)
	}
	if _, err := s.client.UpdateSelection(ctx, key.ID, update); err != nil {
		s.mu.Unlock()
		log.Errorf("Failed to update %s of %s: %v", field, key, err)
		return workout.PlannableItem{}, fmt.Errorf("failed to update %s of %s: %w", field, key, err)
	}
	updated := s.items[i]
	if change.IsSelected != nil {
		updated.IsSelected = *change.IsSelected
	}
	if change.Location != nil {
		updated.Location = *change.Location
	}
	if change.Notes != nil {
		updated.Notes = *change.Notes
	}
	s.replace(i, updated)
	s.mu.Unlock()

	s.publish(ctx, event_bus.PlannerItemUpdated, event_bus.ItemUpdated{ItemKey: key.String(), Field: field})
	return updated, nil
}

// ResetSelection drops the user's selection so the workout returns to its
// originally planned day and defaults. When the reload after the reset fails,
// the item is reset locally so it matches what the backend now holds.
func (s *Session) ResetSelection(ctx context.Context, key workout.Key) (workout.PlannableItem, error) {
	if key.IsCustom {
		return workout.PlannableItem{}, fmt.Errorf("%w: cannot reset %s", ErrCustomItem, key)
	}
	s.mu.Lock()
	i, ok := s.find(key)
	if !ok {
		s.mu.Unlock()
		return workout.PlannableItem{}, fmt.Errorf("%w: %s", workout.ErrNotFound, key)
	}
	if err := s.client.DeleteSelection(ctx, key.ID); err != nil {
		s.mu.Unlock()
		return workout.PlannableItem{}, fmt.Errorf("failed to reset selection of %s: %w", key, err)
	}
	item, reloadErr := s.reload(ctx, key)
	if reloadErr != nil {
		log.Warnf("Selection of %s was reset but reloading it failed: %v", key, reloadErr)
		item = defaults(s.items[i])
	}
	s.replace(i, item)
	s.mu.Unlock()

	s.publish(ctx, event_bus.PlannerItemUpdated, event_bus.ItemUpdated{ItemKey: key.String(), Field: "reset"})
	if reloadErr != nil {
		return item, fmt.Errorf("failed to reload %s: %w", key, reloadErr)
	}
	return item, nil
}

func (s *Session) reload(ctx context.Context, key workout.Key) (workout.PlannableItem, error) {
	dto, err := s.client.GetWorkout(ctx, key.ID)
	if err != nil {
		return workout.PlannableItem{}, err
	}
	return backend.ToPlannableItem(dto)
}

// defaults is what an imported workout looks like without a selection record.
func defaults(item workout.PlannableItem) workout.PlannableItem {
	item.Date = item.OriginalDate
	item.IsSelected = true
	item.TimeOfDay = workout.Unscheduled
	item.Location = workout.UnknownLocation
	item.Notes = ""
	return item
}

// CreateCustomWorkout stores a user-defined workout. The draft needs a title,
// a type and a date; its ID is assigned by the backend.
func (s *Session) CreateCustomWorkout(ctx context.Context, draft workout.PlannableItem) (workout.PlannableItem, error) {
	if err := validateDraft(draft); err != nil {
		return workout.PlannableItem{}, err
	}
	created, err := s.client.CreateCustomWorkout(ctx, backend.CustomDraft(draft))
	if err != nil {
		return workout.PlannableItem{}, fmt.Errorf("failed to create custom workout: %w", err)
	}
	item, err := backend.CustomToPlannableItem(created)
	if err != nil {
		return workout.PlannableItem{}, err
	}

	s.mu.Lock()
	s.setItems(append(append([]workout.PlannableItem(nil), s.items...), item))
	s.mu.Unlock()
	return item, nil
}

// CreateRecurringCustomWorkout creates one custom workout per occurrence of an
// RFC 5545 rule such as "FREQ=WEEKLY;BYDAY=TU,TH;COUNT=8", starting at the
// draft's date. The rule must end through COUNT, UNTIL or the until argument.
// Workouts created before a failure are kept and returned with the error.
func (s *Session) CreateRecurringCustomWorkout(ctx context.Context, draft workout.PlannableItem, rule string, until calendar_date.CalendarDate) ([]workout.PlannableItem, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	dates, err := Occurrences(draft.Date, rule, until)
	if err != nil {
		return nil, err
	}
	created := make([]workout.PlannableItem, 0, len(dates))
	for _, date := range dates {
		occurrence := draft
		occurrence.Date = date
		item, err := s.CreateCustomWorkout(ctx, occurrence)
		if err != nil {
			return created, fmt.Errorf("recurrence stopped at %s: %w", date, err)
		}
		created = append(created, item)
	}
	log.Debugf("Created %d recurring custom workouts from %q", len(created), rule)
	return created, nil
}

// Occurrences expands rule from start into calendar dates.
func Occurrences(start calendar_date.CalendarDate, rule string, until calendar_date.CalendarDate) ([]calendar_date.CalendarDate, error) {
	option, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("%w: recurrence rule %q: %v", calendar_date.ErrInvalidInput, rule, err)
	}
	option.Dtstart = time.Date(start.Year, time.Month(start.Month), start.Day, 0, 0, 0, 0, time.UTC)
	if !until.IsZero() {
		option.Until = time.Date(until.Year, time.Month(until.Month), until.Day, 23, 59, 59, 0, time.UTC)
	}
	if option.Count == 0 && option.Until.IsZero() {
		return nil, fmt.Errorf("%w: recurrence rule %q never ends", calendar_date.ErrInvalidInput, rule)
	}
	if option.Count == 0 || option.Count > MaxOccurrences {
		option.Count = MaxOccurrences
	}
	r, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, fmt.Errorf("%w: recurrence rule %q: %v", calendar_date.ErrInvalidInput, rule, err)
	}
	times := r.All()
	dates := make([]calendar_date.CalendarDate, 0, len(times))
	for _, t := range times {
		dates = append(dates, calendar_date.MustNew(t.Year(), int(t.Month()), t.Day()))
	}
	return dates, nil
}

func (s *Session) DeleteCustomWorkout(ctx context.Context, key workout.Key) error {
	if !key.IsCustom {
		return fmt.Errorf("%w: %s is not a custom workout", workout.ErrNotFound, key)
	}
	if err := s.client.DeleteCustomWorkout(ctx, key.ID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.find(key); ok {
		items := append([]workout.PlannableItem(nil), s.items[:i]...)
		s.setItems(append(items, s.items[i+1:]...))
	}
	return nil
}

// Import uploads a workout export file and reloads the items.
func (s *Session) Import(ctx context.Context, filename string, r io.Reader) (backend.ImportResult, error) {
	result, err := s.client.ImportWorkouts(ctx, filename, r)
	if err != nil {
		return backend.ImportResult{}, fmt.Errorf("failed to import %s: %w", filename, err)
	}
	log.Infof("Imported %d workouts from %s", result.Imported, filename)
	s.publish(ctx, event_bus.PlannerItemsImported, event_bus.ItemsImported{Filename: filename, Imported: result.Imported})
	if err := s.Refresh(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func validateDraft(draft workout.PlannableItem) error {
	var missing []string
	if strings.TrimSpace(draft.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(draft.Type) == "" {
		missing = append(missing, "workoutType")
	}
	if draft.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", workout.ErrInvalidItem, strings.Join(missing, ", "))
	}
	return nil
}

package planner

import (
	"context"
	"fmt"

	"github.com/klokku/workout-planner/internal/event_bus"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

// StartDrag begins a gesture for the item. An earlier unfinished gesture is replaced.
func (s *Session) StartDrag(key workout.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(key)
	if !ok {
		return fmt.Errorf("%w: %s", workout.ErrNotFound, key)
	}
	s.drag.Start(drag_drop.FromItem(s.items[i]))
	return nil
}

func (s *Session) Hover(target drag_drop.DropTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Hover(target)
}

func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag.Cancel()
}

// Drop ends the gesture and applies the resolved intent. A drop without an
// active drag and a NoChange intent send nothing. Local state changes only
// after the backend accepted the update.
func (s *Session) Drop(ctx context.Context, target drag_drop.DropTarget) (drag_drop.Intent, error) {
	s.mu.Lock()
	intent, ok := s.drag.Drop(target)
	if !ok || intent.IsNoChange() {
		s.mu.Unlock()
		return drag_drop.Intent{Kind: drag_drop.NoChange, Key: intent.Key}, nil
	}
	moved, err := s.applyIntent(ctx, intent)
	s.mu.Unlock()
	if err != nil {
		return intent, err
	}
	s.publish(ctx, event_bus.PlannerItemMoved, moved)
	return intent, nil
}

// Move applies the same intent a drop on target would produce, without a gesture.
func (s *Session) Move(ctx context.Context, key workout.Key, target drag_drop.DropTarget) (drag_drop.Intent, error) {
	s.mu.Lock()
	i, ok := s.find(key)
	if !ok {
		s.mu.Unlock()
		return drag_drop.Intent{}, fmt.Errorf("%w: %s", workout.ErrNotFound, key)
	}
	intent := drag_drop.Resolve(drag_drop.FromItem(s.items[i]), target)
	if intent.IsNoChange() {
		s.mu.Unlock()
		return intent, nil
	}
	moved, err := s.applyIntent(ctx, intent)
	s.mu.Unlock()
	if err != nil {
		return intent, err
	}
	s.publish(ctx, event_bus.PlannerItemMoved, moved)
	return intent, nil
}

// applyIntent must be called with s.mu held.
func (s *Session) applyIntent(ctx context.Context, intent drag_drop.Intent) (event_bus.ItemMoved, error) {
	kind := string(intent.Kind)
	i, ok := s.find(intent.Key)
	if !ok {
		s.observer.IntentFailed(kind)
		return event_bus.ItemMoved{}, fmt.Errorf("%w: %s", workout.ErrNotFound, intent.Key)
	}
	item := s.items[i]
	var timeOfDay *string
	if intent.TimeOfDay != nil {
		t := string(*intent.TimeOfDay)
		timeOfDay = &t
	}

	var err error
	if item.IsCustom {
		_, err = s.client.UpdateCustomWorkout(ctx, item.ID, backend.CustomWorkoutUpdate{
			PlannedDate: intent.Date,
			TimeOfDay:   timeOfDay,
		})
	} else {
		_, err = s.client.UpdateSelection(ctx, item.ID, backend.SelectionUpdate{
			CurrentPlanDay: intent.Date,
			TimeOfDay:      timeOfDay,
		})
	}
	if err != nil {
		s.observer.IntentFailed(kind)
		log.Errorf("Failed to apply %s to %s: %v", intent.Kind, intent.Key, err)
		return event_bus.ItemMoved{}, fmt.Errorf("failed to move %s: %w", intent.Key, err)
	}

	updated := item
	if intent.Date != nil {
		updated.Date = *intent.Date
	}
	if intent.TimeOfDay != nil {
		updated.TimeOfDay = *intent.TimeOfDay
	}
	s.replace(i, updated)
	s.observer.IntentApplied(kind)
	log.Debugf("Applied %s to %s", intent.Kind, intent.Key)

	return event_bus.ItemMoved{
		ItemKey:       intent.Key.String(),
		Kind:          kind,
		FromDate:      item.Date,
		ToDate:        updated.Date,
		FromTimeOfDay: string(item.TimeOfDay),
		ToTimeOfDay:   string(updated.TimeOfDay),
	}, nil
}

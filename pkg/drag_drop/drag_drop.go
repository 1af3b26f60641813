package drag_drop

import (
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/workout"
)

type Kind string

const (
	NoChange    Kind = "noChange"
	DateChanged Kind = "dateChanged"
	TimeChanged Kind = "timeChanged"
	BothChanged Kind = "bothChanged"
)

// Dragged is the part of an item the resolver looks at.
type Dragged struct {
	Key       workout.Key
	Date      calendar_date.CalendarDate
	TimeOfDay workout.TimeOfDay
}

func FromItem(item workout.PlannableItem) Dragged {
	return Dragged{Key: item.Key(), Date: item.Date, TimeOfDay: item.TimeOfDay}
}

// DropTarget is a day cell, optionally narrowed to a time bucket. A nil TimeOfDay
// means the drop happened on a month cell and carries no time constraint.
type DropTarget struct {
	Day       calendar_date.CalendarDate `json:"day"`
	TimeOfDay *workout.TimeOfDay         `json:"timeOfDay,omitempty"`
}

// Intent is the delta a drop asks for. Date and TimeOfDay are set only for the
// fields that change.
type Intent struct {
	Kind      Kind                        `json:"kind"`
	Key       workout.Key                 `json:"-"`
	Date      *calendar_date.CalendarDate `json:"date,omitempty"`
	TimeOfDay *workout.TimeOfDay          `json:"timeOfDay,omitempty"`
}

func (i Intent) IsNoChange() bool {
	return i.Kind == NoChange
}

// Resolve compares the dragged item against the drop target. It never fails.
func Resolve(dragged Dragged, target DropTarget) Intent {
	intent := Intent{Kind: NoChange, Key: dragged.Key}

	if !target.Day.Equal(dragged.Date) {
		day := target.Day
		intent.Date = &day
	}
	if target.TimeOfDay != nil {
		current, _ := workout.ParseTimeOfDay(string(dragged.TimeOfDay))
		wanted, _ := workout.ParseTimeOfDay(string(*target.TimeOfDay))
		if current != wanted {
			intent.TimeOfDay = &wanted
		}
	}

	switch {
	case intent.Date != nil && intent.TimeOfDay != nil:
		intent.Kind = BothChanged
	case intent.Date != nil:
		intent.Kind = DateChanged
	case intent.TimeOfDay != nil:
		intent.Kind = TimeChanged
	}
	return intent
}

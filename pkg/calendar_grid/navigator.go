package calendar_grid

import (
	"fmt"

	"github.com/klokku/workout-planner/internal/utils"
	"github.com/klokku/workout-planner/pkg/calendar_date"
)

type Action string

const (
	ActionPrevious Action = "previous"
	ActionNext     Action = "next"
	ActionToday    Action = "today"
)

var ErrUnknownAction = fmt.Errorf("unknown navigation action")

func ParseAction(value string) (Action, error) {
	switch Action(value) {
	case ActionPrevious, ActionNext, ActionToday:
		return Action(value), nil
	case "prev":
		return ActionPrevious, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, value)
}

// Navigator tracks the reference date and view mode of a calendar view.
// Every move returns a freshly built grid.
type Navigator struct {
	Reference calendar_date.CalendarDate
	Mode      ViewMode
	clock     utils.Clock
}

func NewNavigator(clock utils.Clock, mode ViewMode) *Navigator {
	return &Navigator{
		Reference: calendar_date.Today(clock),
		Mode:      mode,
		clock:     clock,
	}
}

func (n *Navigator) Grid() []DayCell {
	return Build(n.Reference, n.Mode)
}

// Previous moves back one month or seven days.
func (n *Navigator) Previous() []DayCell {
	n.Reference = n.step(-1)
	return n.Grid()
}

// Next moves forward one month or seven days.
func (n *Navigator) Next() []DayCell {
	n.Reference = n.step(1)
	return n.Grid()
}

func (n *Navigator) Today() []DayCell {
	n.Reference = calendar_date.Today(n.clock)
	return n.Grid()
}

func (n *Navigator) SetMode(mode ViewMode) []DayCell {
	n.Mode = mode
	return n.Grid()
}

// GoTo jumps to the period containing date.
func (n *Navigator) GoTo(date calendar_date.CalendarDate) []DayCell {
	n.Reference = date
	return n.Grid()
}

func (n *Navigator) Apply(action Action) []DayCell {
	switch action {
	case ActionPrevious:
		return n.Previous()
	case ActionNext:
		return n.Next()
	default:
		return n.Today()
	}
}

func (n *Navigator) Period() (calendar_date.CalendarDate, calendar_date.CalendarDate) {
	return Period(n.Reference, n.Mode)
}

func (n *Navigator) Title() string {
	return Title(n.Reference, n.Mode)
}

func (n *Navigator) step(direction int) calendar_date.CalendarDate {
	if n.Mode == Month {
		return n.Reference.AddMonths(direction)
	}
	return n.Reference.AddDays(7 * direction)
}

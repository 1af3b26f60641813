package event_bus

import "github.com/klokku/workout-planner/pkg/calendar_date"

const (
	PlannerItemMoved      EventType = "planner.item.moved"
	PlannerItemUpdated    EventType = "planner.item.updated"
	PlannerItemsRefreshed EventType = "planner.items.refreshed"
	PlannerItemsImported  EventType = "planner.items.imported"
)

// ItemMoved is published after the backend accepted a drop.
type ItemMoved struct {
	ItemKey       string
	Kind          string
	FromDate      calendar_date.CalendarDate
	ToDate        calendar_date.CalendarDate
	FromTimeOfDay string
	ToTimeOfDay   string
}

// ItemUpdated covers selection, location and notes edits.
type ItemUpdated struct {
	ItemKey string
	Field   string
}

type ItemsRefreshed struct {
	Count    int
	Rejected int
}

type ItemsImported struct {
	Filename string
	Imported int
}

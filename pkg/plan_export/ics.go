package plan_export

import (
	"fmt"
	"math"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

const ProductID = "-//Workout Planner//EN"
const CalendarName = "Workout schedule"

var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("workout-planner"))

// DayEvent is one all-day calendar entry holding the selected workouts of a date.
type DayEvent struct {
	UID         string
	Date        calendar_date.CalendarDate
	Summary     string
	Description string
	Types       []string
}

// DayEvents builds one event per day in [from, to] that has selected workouts,
// in date order.
func DayEvents(items []workout.PlannableItem, from, to calendar_date.CalendarDate) []DayEvent {
	index := workout.IndexByDate(workout.InPeriod(items, from, to))
	var events []DayEvent
	for day := from; !day.After(to); day = day.AddDays(1) {
		var selected []workout.PlannableItem
		for _, item := range workout.ItemsForDay(index, day) {
			if item.IsSelected {
				selected = append(selected, item)
			}
		}
		if len(selected) == 0 {
			continue
		}
		types := workoutTypes(selected)
		events = append(events, DayEvent{
			UID:         DayUID(day),
			Date:        day,
			Summary:     fmt.Sprintf("%s: %s", CalendarName, strings.Join(types, ", ")),
			Description: describe(selected),
			Types:       types,
		})
	}
	return events
}

// DayUID is stable for a date so that re-exports replace earlier events.
func DayUID(date calendar_date.CalendarDate) string {
	return uuid.NewSHA1(uidNamespace, []byte(date.String())).String() + "@workout-planner"
}

// ICS renders the selected workouts of [from, to] as an iCalendar document.
func ICS(items []workout.PlannableItem, from, to calendar_date.CalendarDate, stamp time.Time) ([]byte, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: export range %s..%s", calendar_date.ErrInvalidInput, from, to)
	}
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(CalendarName)

	events := DayEvents(items, from, to)
	for _, e := range events {
		event := cal.AddEvent(e.UID)
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(e.Date.ToTime())
		event.SetAllDayEndAt(e.Date.AddDays(1).ToTime())
		event.SetSummary(e.Summary)
		event.SetDescription(e.Description)
		for _, t := range e.Types {
			event.AddCategory(t)
		}
	}
	log.Debugf("Exported %d day events to ics (%s..%s)", len(events), from, to)
	return []byte(cal.Serialize()), nil
}

func workoutTypes(items []workout.PlannableItem) []string {
	seen := make(map[string]bool)
	var types []string
	for _, item := range items {
		if seen[item.Type] {
			continue
		}
		seen[item.Type] = true
		types = append(types, item.Type)
	}
	return types
}

func describe(items []workout.PlannableItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		parts := []string{"Type: " + item.Type}
		if item.Location != workout.UnknownLocation {
			parts = append(parts, "Location: "+string(item.Location))
		}
		timeOfDay := "Not specified"
		if item.TimeOfDay != workout.Unscheduled {
			timeOfDay = string(item.TimeOfDay)
		}
		parts = append(parts, "Time: "+timeOfDay)
		if item.DurationHours != nil && *item.DurationHours > 0 {
			parts = append(parts, "Duration: "+FormatDuration(*item.DurationHours))
		}
		lines = append(lines, "- "+strings.Join(parts, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatDuration renders fractional hours as "1 hour 30 minutes", "2 hours" or "45 minutes".
func FormatDuration(hours float64) string {
	total := int(math.Round(hours * 60))
	h, m := total/60, total%60
	plural := "s"
	if h == 1 {
		plural = ""
	}
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d hour%s %d minutes", h, plural, m)
	case h > 0:
		return fmt.Sprintf("%d hour%s", h, plural)
	}
	return fmt.Sprintf("%d minutes", m)
}

package calendar_grid

import (
	"fmt"
	"strings"

	"github.com/klokku/workout-planner/pkg/calendar_date"
)

type ViewMode string

const (
	Week  ViewMode = "week"
	Month ViewMode = "month"
)

var ErrUnknownViewMode = fmt.Errorf("unknown view mode")

func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownViewMode, value)
}

// DayCell is one square of the grid. Cells are rebuilt on every navigation.
type DayCell struct {
	Day                 int                        `json:"day"`
	Month               int                        `json:"month"`
	Year                int                        `json:"year"`
	Date                calendar_date.CalendarDate `json:"date"`
	IsInDisplayedPeriod bool                       `json:"isInDisplayedPeriod"`
}

// StartOfWeek returns the Monday on or before d.
func StartOfWeek(d calendar_date.CalendarDate) calendar_date.CalendarDate {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Build lays out the grid containing reference.
// Week mode yields the 7 days Monday..Sunday, all in period.
// Month mode yields whole Monday-first weeks from the week holding the 1st
// through the week holding the last day; days of neighbouring months are
// flagged out of period.
func Build(reference calendar_date.CalendarDate, mode ViewMode) []DayCell {
	start, end := span(reference, mode)
	cells := make([]DayCell, 0, start.DaysBetween(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		cells = append(cells, DayCell{
			Day:                 d.Day,
			Month:               d.Month,
			Year:                d.Year,
			Date:                d,
			IsInDisplayedPeriod: mode != Month || d.Month == reference.Month,
		})
	}
	return cells
}

// span returns the first and last cell dates of the grid.
func span(reference calendar_date.CalendarDate, mode ViewMode) (calendar_date.CalendarDate, calendar_date.CalendarDate) {
	if mode == Month {
		first := reference.FirstOfMonth()
		last := calendar_date.CalendarDate{Year: first.Year, Month: first.Month, Day: first.DaysInMonth()}
		return StartOfWeek(first), StartOfWeek(last).AddDays(6)
	}
	start := StartOfWeek(reference)
	return start, start.AddDays(6)
}

// Period returns the first and last day of the displayed period, i.e. the week
// itself or the 1st and last day of the month.
func Period(reference calendar_date.CalendarDate, mode ViewMode) (calendar_date.CalendarDate, calendar_date.CalendarDate) {
	if mode == Month {
		first := reference.FirstOfMonth()
		return first, calendar_date.CalendarDate{Year: first.Year, Month: first.Month, Day: first.DaysInMonth()}
	}
	start := StartOfWeek(reference)
	return start, start.AddDays(6)
}

// Title is the heading shown above the grid.
func Title(reference calendar_date.CalendarDate, mode ViewMode) string {
	if mode == Month {
		return reference.Format("January 2006")
	}
	return fmt.Sprintf("Week of %s", StartOfWeek(reference))
}

// Monday-first weekday headers.
var WeekdayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayIndex is the column of d in a Monday-first grid.
func WeekdayIndex(d calendar_date.CalendarDate) int {
	return (int(d.Weekday()) + 6) % 7
}

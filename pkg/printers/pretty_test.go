package printers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/planner"
	"github.com/klokku/workout-planner/pkg/weather"
	"github.com/klokku/workout-planner/pkg/workout"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

var thursday = calendar_date.MustNew(2026, 1, 15)

func hours(h float64) *float64 {
	return &h
}

func sampleDay() planner.DayView {
	items := []workout.PlannableItem{
		{ID: 1, Title: "Threshold", Type: "Bike", Date: thursday, IsSelected: true, TimeOfDay: workout.Morning, DurationHours: hours(1.5)},
		{ID: 2, Title: "Recovery", Type: "Run", Date: thursday},
	}
	temperature := 4.0
	return planner.DayView{
		Date:    thursday,
		Items:   items,
		Groups:  workout.BucketByTimeOfDay(items),
		Summary: workout.Summarize(items),
		Weather: &weather.Forecast{Date: thursday, PeriodForecast: backend.PeriodForecast{Description: "Fog", Temperature: &temperature}},
	}
}

func TestPrettyPrint_Day(t *testing.T) {
	t.Run("should print buckets, weather and summary", func(t *testing.T) {
		// given
		var out bytes.Buffer
		pp := New(&out)

		// when
		pp.Day(sampleDay())

		// then
		text := out.String()
		assert.Contains(t, text, "Thursday, 15 January 2026")
		assert.Contains(t, text, "Fog, 4°")
		assert.Contains(t, text, "Morning")
		assert.Contains(t, text, "Anytime")
		assert.Contains(t, text, "1 hour 30 minutes")
		assert.Less(t, strings.Index(text, "Threshold"), strings.Index(text, "Recovery"))
		assert.Contains(t, text, "1 selected of 2")
	})

	t.Run("should say none for an empty day", func(t *testing.T) {
		var out bytes.Buffer

		New(&out).Day(planner.DayView{Date: thursday})

		assert.Contains(t, out.String(), "none")
	})
}

func TestPrettyPrint_Grid(t *testing.T) {
	t.Run("should print one row per weekday", func(t *testing.T) {
		// given
		var out bytes.Buffer
		cells := calendar_grid.Build(thursday, calendar_grid.Week)
		view := planner.GridView{Title: calendar_grid.Title(thursday, calendar_grid.Week), Mode: calendar_grid.Week, Today: thursday, Weekdays: calendar_grid.WeekdayNames}
		for _, cell := range cells {
			cv := planner.CellView{DayCell: cell}
			if cell.Date.Equal(thursday) {
				cv.Items = sampleDay().Items
			}
			view.Cells = append(view.Cells, cv)
		}

		// when
		New(&out).Grid(view)

		// then
		text := out.String()
		assert.Contains(t, text, "Week of 2026-01-12")
		assert.Contains(t, text, "Thu 15")
		assert.Contains(t, text, "Threshold")
		assert.Contains(t, text, "Mon 12")
	})

	t.Run("should print the month as a calendar", func(t *testing.T) {
		// given
		var out bytes.Buffer
		cells := calendar_grid.Build(thursday, calendar_grid.Month)
		view := planner.GridView{Title: "January 2026", Mode: calendar_grid.Month, Today: thursday, Weekdays: calendar_grid.WeekdayNames}
		for _, cell := range cells {
			cv := planner.CellView{DayCell: cell}
			if cell.Date.Equal(thursday) {
				cv.Summary = workout.Summary{Count: 1, Selected: 1}
			}
			view.Cells = append(view.Cells, cv)
		}

		// when
		New(&out).Grid(view)

		// then
		lines := strings.Split(out.String(), "\n")
		assert.Equal(t, "January 2026", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "Mo  Tu"))
		assert.Contains(t, out.String(), "15*")
	})
}

func TestPrettyPrint_Intent(t *testing.T) {
	var out bytes.Buffer
	pp := New(&out)
	friday := calendar_date.MustNew(2026, 1, 16)
	evening := workout.Evening

	pp.Intent(workout.Key{ID: 3}, drag_drop.Intent{Kind: drag_drop.BothChanged, Date: &friday, TimeOfDay: &evening})
	pp.Intent(workout.Key{ID: 4, IsCustom: true}, drag_drop.Intent{Kind: drag_drop.NoChange})

	assert.Contains(t, out.String(), "moved 3 to 2026-01-16 into Evening")
	assert.Contains(t, out.String(), "c4 already there")
}

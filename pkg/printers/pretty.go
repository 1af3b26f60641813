package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/plan_export"
	"github.com/klokku/workout-planner/pkg/planner"
	"github.com/klokku/workout-planner/pkg/workout"
)

type PrettyPrint struct {
	Out    io.Writer
	ShowID bool
}

func New(out io.Writer) *PrettyPrint {
	if out == nil {
		out = color.Output
	}
	return &PrettyPrint{Out: out}
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.Out, title)
}

// Day prints a day's workouts grouped by time of day.
func (pp *PrettyPrint) Day(view planner.DayView) {
	pp.Title(view.Date.Format("Monday, 2 January 2006"))
	if view.Weather != nil {
		pp.weather(view.Weather.PeriodForecast)
	}
	if len(view.Items) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(pp.Out, " none\n\n")
		return
	}

	h := color.New(color.Italic)
	for _, bucket := range append(workout.TimesOfDay, workout.Unscheduled) {
		items := view.Groups.Bucket(bucket)
		if len(items) == 0 {
			continue
		}
		_, _ = h.Fprintln(pp.Out, bucketName(bucket))
		pp.items(items)
	}
	pp.summary(view.Summary)
}

func (pp *PrettyPrint) items(items []workout.PlannableItem) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 40
	for _, item := range items {
		row := []any{}
		if pp.ShowID {
			row = append(row, color.New(color.FgHiYellow, color.Faint).Sprint(item.Key().String()))
		}
		row = append(row, marker(item), item.Title, item.Type, duration(item.DurationHours), string(item.Location))
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func (pp *PrettyPrint) weather(f backend.PeriodForecast) {
	parts := []string{}
	if f.Description != "" {
		parts = append(parts, f.Description)
	}
	if f.Temperature != nil {
		parts = append(parts, fmt.Sprintf("%.0f°", *f.Temperature))
	}
	if f.RainProbability != nil {
		parts = append(parts, fmt.Sprintf("%d%% rain", *f.RainProbability))
	}
	if f.Windspeed != nil {
		parts = append(parts, fmt.Sprintf("%.0f km/h wind", *f.Windspeed))
	}
	if len(parts) == 0 {
		return
	}
	c := color.New(color.FgCyan)
	_, _ = c.Fprintln(pp.Out, strings.Join(parts, ", "))
}

func (pp *PrettyPrint) summary(s workout.Summary) {
	c := color.New(color.Faint)
	_, _ = c.Fprintf(pp.Out, "%d selected of %d", s.Selected, s.Count)
	if s.PlannedHours > 0 {
		_, _ = c.Fprintf(pp.Out, ", %s planned", plan_export.FormatDuration(s.PlannedHours))
	}
	if s.TSS > 0 {
		_, _ = c.Fprintf(pp.Out, ", %.0f TSS", s.TSS)
	}
	_, _ = c.Fprintln(pp.Out)
}

// Intent reports the outcome of a move.
func (pp *PrettyPrint) Intent(key workout.Key, intent drag_drop.Intent) {
	if intent.IsNoChange() {
		_, _ = color.New(color.Faint).Fprintf(pp.Out, "%s already there, nothing to do\n", key)
		return
	}
	var changes []string
	if intent.Date != nil {
		changes = append(changes, "to "+intent.Date.String())
	}
	if intent.TimeOfDay != nil {
		changes = append(changes, "into "+bucketName(*intent.TimeOfDay))
	}
	_, _ = color.New(color.FgGreen).Fprintf(pp.Out, "moved %s %s\n", key, strings.Join(changes, " "))
}

func (pp *PrettyPrint) Imported(filename string, result backend.ImportResult) {
	_, _ = color.New(color.FgGreen).Fprintf(pp.Out, "imported %d workouts from %s\n", result.Imported, filename)
}

func marker(item workout.PlannableItem) string {
	switch {
	case item.IsCustom:
		return color.New(color.FgMagenta).Sprint("+")
	case item.IsSelected:
		return color.New(color.FgGreen).Sprint("●")
	}
	return color.New(color.Faint).Sprint("○")
}

func bucketName(t workout.TimeOfDay) string {
	switch t {
	case workout.Morning:
		return "Morning"
	case workout.Afternoon:
		return "Afternoon"
	case workout.Evening:
		return "Evening"
	}
	return "Anytime"
}

func duration(hours *float64) string {
	if hours == nil || *hours <= 0 {
		return ""
	}
	return plan_export.FormatDuration(*hours)
}

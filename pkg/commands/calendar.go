package commands

import (
	"github.com/klokku/workout-planner/internal/app"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func addCalendar(topLevel *cobra.Command, ro *RootOptions) {
	var view, date string

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the week or month grid.",
		Example: `
workout-planner calendar
workout-planner calendar --view month --date 2026-02-01
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode calendar_grid.ViewMode
			if view != "" {
				var err error
				if mode, err = calendar_grid.ParseViewMode(view); err != nil {
					return err
				}
			}
			var reference calendar_date.CalendarDate
			if date != "" {
				var err error
				if reference, err = calendar_date.Parse(date); err != nil {
					return err
				}
			}
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				if mode != "" {
					deps.Session.SetViewMode(mode)
				}
				if !reference.IsZero() {
					deps.Session.GoTo(reference)
				}
				printer(cmd, ro).Grid(deps.Session.Grid())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "week or month, defaults to planner.view.")
	cmd.Flags().StringVar(&date, "date", "", "Any day inside the period to show (YYYY-MM-DD).")

	topLevel.AddCommand(cmd)
}

func addDay(topLevel *cobra.Command, ro *RootOptions) {
	var withWeather bool

	cmd := &cobra.Command{
		Use:   "day <date>",
		Short: "Show one day's workouts grouped by time of day.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := calendar_date.Parse(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				if withWeather {
					if _, err := deps.Session.Weather(cmd.Context(), date, workout.Unscheduled); err != nil {
						log.Warnf("No forecast for %s: %v", date, err)
					}
				}
				printer(cmd, ro).Day(deps.Session.Day(date))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withWeather, "weather", false, "Fetch the daily forecast too.")

	topLevel.AddCommand(cmd)
}

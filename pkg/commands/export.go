package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klokku/workout-planner/internal/app"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/plan_export"
	"github.com/klokku/workout-planner/pkg/workout"
	"github.com/spf13/cobra"
)

type ExportOptions struct {
	From string
	To   string
	Out  string
}

func addExportArgs(cmd *cobra.Command, eo *ExportOptions) {
	cmd.Flags().StringVar(&eo.From, "from", "", "First day to export, defaults to the start of the current view.")
	cmd.Flags().StringVar(&eo.To, "to", "", "Last day to export, defaults to the end of the current view.")
}

// period falls back to the visible period for the bounds that are not set.
func (eo *ExportOptions) period(deps *app.Dependencies) (calendar_date.CalendarDate, calendar_date.CalendarDate, error) {
	from, to := deps.Session.Period()
	var err error
	if eo.From != "" {
		if from, err = calendar_date.Parse(eo.From); err != nil {
			return from, to, err
		}
	}
	if eo.To != "" {
		if to, err = calendar_date.Parse(eo.To); err != nil {
			return from, to, err
		}
	}
	return from, to, nil
}

func (eo *ExportOptions) write(cmd *cobra.Command, body []byte) error {
	var out io.Writer = cmd.OutOrStdout()
	if eo.Out != "" {
		f, err := os.Create(eo.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err := out.Write(body)
	return err
}

func addExport(topLevel *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the selected workouts to a calendar or a spreadsheet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addExportICS(cmd, ro)
	addExportCSV(cmd, ro)
	addExportGoogle(cmd, ro)

	topLevel.AddCommand(cmd)
}

func addExportICS(parent *cobra.Command, ro *RootOptions) {
	eo := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write one all-day event per training day as iCalendar.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				from, to, err := eo.period(deps)
				if err != nil {
					return err
				}
				body, err := plan_export.ICS(deps.Session.Items(), from, to, time.Now())
				if err != nil {
					return err
				}
				return eo.write(cmd, body)
			})
		},
	}
	addExportArgs(cmd, eo)
	cmd.Flags().StringVarP(&eo.Out, "out", "o", "", "Output file, defaults to stdout.")
	parent.AddCommand(cmd)
}

func addExportCSV(parent *cobra.Command, ro *RootOptions) {
	eo := &ExportOptions{}
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write the plan as CSV, one row per workout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				from, to, err := eo.period(deps)
				if err != nil {
					return err
				}
				body, err := plan_export.CSV(workout.InPeriod(deps.Session.Items(), from, to))
				if err != nil {
					return err
				}
				return eo.write(cmd, body)
			})
		},
	}
	addExportArgs(cmd, eo)
	cmd.Flags().StringVarP(&eo.Out, "out", "o", "", "Output file, defaults to stdout.")
	parent.AddCommand(cmd)
}

func addExportGoogle(parent *cobra.Command, ro *RootOptions) {
	eo := &ExportOptions{}
	var code string

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Push training days to Google Calendar.",
		Long: `Push training days to Google Calendar.

The first run prints an authorization link. Open it, then run the command
again with --code set to the code Google shows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				exporter := deps.GoogleExporter
				if exporter == nil {
					return fmt.Errorf("google export is not configured, set google.clientid and google.clientsecret")
				}
				if code != "" {
					if err := exporter.Authorize(cmd.Context(), code); err != nil {
						return err
					}
				}
				from, to, err := eo.period(deps)
				if err != nil {
					return err
				}
				exported, err := exporter.Export(cmd.Context(), deps.Session.Items(), from, to)
				if errors.Is(err, plan_export.ErrUnauthenticated) {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Authorize access first:\n%s\n", exporter.AuthCodeURL("workout-planner"))
					return nil
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d days from %s to %s\n", exported, from, to)
				return nil
			})
		},
	}
	addExportArgs(cmd, eo)
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the Google consent page.")
	parent.AddCommand(cmd)
}

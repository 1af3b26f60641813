package commands

import (
	"github.com/klokku/workout-planner/internal/app"
	"github.com/klokku/workout-planner/internal/config"
	"github.com/klokku/workout-planner/pkg/printers"
	"github.com/spf13/cobra"
)

// RootOptions are the flags shared by every command.
type RootOptions struct {
	ConfigPath string
	ShowID     bool
}

func New() *cobra.Command {
	ro := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "workout-planner",
		Short:         "Plan the week's workouts on a calendar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&ro.ConfigPath, "config", config.DefaultPath, "Path to the YAML configuration file.")
	cmd.PersistentFlags().BoolVar(&ro.ShowID, "show-id", false, "Print item ids next to the titles.")

	AddCommands(cmd, ro)
	return cmd
}

func AddCommands(topLevel *cobra.Command, ro *RootOptions) {
	addServe(topLevel, ro)
	addCalendar(topLevel, ro)
	addDay(topLevel, ro)
	addMove(topLevel, ro)
	addImport(topLevel, ro)
	addExport(topLevel, ro)
	addLogin(topLevel, ro)
}

// withSession builds the dependencies, loads the plan and hands the result
// to fn. Everything is released when fn returns.
func withSession(cmd *cobra.Command, ro *RootOptions, fn func(deps *app.Dependencies) error) error {
	cfg, err := config.Load(ro.ConfigPath)
	if err != nil {
		return err
	}
	deps, err := app.BuildDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if err := deps.Session.Refresh(cmd.Context()); err != nil {
		return err
	}
	return fn(deps)
}

func printer(cmd *cobra.Command, ro *RootOptions) *printers.PrettyPrint {
	pp := printers.New(cmd.OutOrStdout())
	pp.ShowID = ro.ShowID
	return pp
}

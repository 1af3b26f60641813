package commands

import (
	"os"
	"path/filepath"

	"github.com/klokku/workout-planner/internal/app"
	"github.com/spf13/cobra"
)

func addImport(topLevel *cobra.Command, ro *RootOptions) {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upload a training plan CSV to the backend.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			return withSession(cmd, ro, func(deps *app.Dependencies) error {
				filename := filepath.Base(args[0])
				result, err := deps.Session.Import(cmd.Context(), filename, f)
				if err != nil {
					return err
				}
				printer(cmd, ro).Imported(filename, result)
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

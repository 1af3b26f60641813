package commands

import (
	"fmt"
	"time"

	"github.com/klokku/workout-planner/internal/config"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/spf13/cobra"
)

func addLogin(topLevel *cobra.Command, ro *RootOptions) {
	var logout bool

	cmd := &cobra.Command{
		Use:   "login [token]",
		Short: "Store, show or clear the backend access token.",
		Example: `
workout-planner login eyJhbGciOi...
workout-planner login
workout-planner login --logout
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(ro.ConfigPath)
			if err != nil {
				return err
			}
			tokens, err := backend.NewTokenStore(cfg.Backend.TokenPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case logout:
				if err := tokens.Clear(); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "logged out")
				return nil
			case len(args) == 1:
				if err := tokens.Save(args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, "token saved")
			}

			token, err := tokens.Token()
			if err != nil {
				return err
			}
			expiresAt, ok, expErr := tokens.ExpiresAt()
			switch {
			case token == "":
				_, _ = fmt.Fprintln(out, "not logged in")
			case expErr != nil:
				_, _ = fmt.Fprintf(out, "logged in, expiry unknown: %v\n", expErr)
			case !ok:
				_, _ = fmt.Fprintln(out, "logged in, token does not expire")
			case expiresAt.Before(time.Now()):
				_, _ = fmt.Fprintf(out, "token expired at %s, log in again\n", expiresAt.Format(time.RFC3339))
			default:
				_, _ = fmt.Fprintf(out, "logged in until %s\n", expiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&logout, "logout", false, "Forget the stored token.")

	topLevel.AddCommand(cmd)
}

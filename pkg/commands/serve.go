package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/klokku/workout-planner/internal/app"
	"github.com/klokku/workout-planner/internal/config"
	"github.com/spf13/cobra"
)

func addServe(topLevel *cobra.Command, ro *RootOptions) {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner API (and the frontend, when enabled).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(ro.ConfigPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return application.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr.")

	topLevel.AddCommand(cmd)
}

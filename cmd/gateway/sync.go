package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/higher-endeavors/endeavors/internal/app/runtime"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one device sync pass",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := runtime.NewApplication(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Shutdown(cmd.Context()); err != nil {
				log.WithError(err).Warn("unclean shutdown")
			}
		}()

		summary, err := app.SyncOnce(cmd.Context())
		if err != nil {
			return err
		}
		c := color.New(color.FgGreen)
		if summary.Failures > 0 {
			c = color.New(color.FgYellow)
		}
		c.Printf("%d connection(s), %d activities, %d failure(s)\n",
			summary.Connections, summary.Activities, summary.Failures)
		return nil
	},
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/higher-endeavors/endeavors/internal/app/runtime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := runtime.NewApplication(ctx, cfg, log)
		if err != nil {
			return err
		}

		runErr := app.Run(ctx)
		if runErr != nil {
			log.WithError(runErr).Error("gateway stopped")
		} else {
			log.Info("shutting down")
		}
		if err := app.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("unclean shutdown")
		}
		return runErr
	},
}

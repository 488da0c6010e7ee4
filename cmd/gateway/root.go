package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/higher-endeavors/endeavors/internal/config"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Higher Endeavors API gateway",
	Long: `Gateway serves the Higher Endeavors JSON API, gates page routes on the
session cookie, and proxies pages to the server-side renderer.

CONFIGURATION:

  Settings come from the environment, optionally seeded from a .env file
  (ENV_FILE overrides the path). DATABASE_URL and AUTH_SECRET are required.

COMMANDS:

  $ gateway serve              # Run the HTTP server and scheduled jobs
  $ gateway migrate up         # Apply pending schema migrations
  $ gateway migrate down 1     # Roll back one migration
  $ gateway migrate version    # Show the applied schema version
  $ gateway sync               # Run one device sync pass`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		log = logger.New("gateway", cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, syncCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

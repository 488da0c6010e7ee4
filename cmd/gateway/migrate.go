package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/higher-endeavors/endeavors/internal/database"
	"github.com/higher-endeavors/endeavors/internal/platform/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back the embedded schema migrations.

USAGE:

  gateway migrate up          # Apply every pending migration
  gateway migrate down [N]    # Roll back N migrations (default 1)
  gateway migrate version     # Print the applied version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *sql.DB) error {
			if err := migrations.Up(db); err != nil {
				color.Red("migration failed: %v", err)
				return err
			}
			return printVersion(db)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		return withDB(cmd, func(db *sql.DB) error {
			if err := migrations.Down(db, steps); err != nil {
				color.Red("rollback failed: %v", err)
				return err
			}
			color.Yellow("rolled back %d migration(s)", steps)
			return printVersion(db)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, printVersion)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func withDB(cmd *cobra.Command, fn func(db *sql.DB) error) error {
	pool, err := database.Open(cmd.Context(), cfg.Database, log.Named("database"))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool.DB().DB)
}

func printVersion(db *sql.DB) error {
	v, dirty, err := migrations.Version(db)
	if err != nil {
		return err
	}
	switch {
	case dirty:
		color.Red("schema version %d (dirty)", v)
	case v == 0:
		color.Yellow("no migrations applied")
	default:
		color.Green("schema version %d", v)
	}
	return nil
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return n, nil
}

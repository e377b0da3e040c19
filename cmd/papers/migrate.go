package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/czczc/inspire-papers-viewer/internal/database"
)

var migrationPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect database migrations",
}

// migrationAction wraps a migrator operation in connection setup and a
// version report.
func migrationAction(use, short string, args cobra.PositionalArgs, action func(*database.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			dir := cfg.Database.MigrationPath
			if migrationPath != "" {
				dir = migrationPath
			}
			migrator, err := database.NewMigrator(db, dir, logger)
			if err != nil {
				return fmt.Errorf("create migrator: %w", err)
			}
			defer func() {
				if closeErr := migrator.Close(); closeErr != nil {
					logger.Error().Err(closeErr).Msg("failed to close migrator")
				}
			}()

			if action != nil {
				if err := action(migrator, args); err != nil {
					return err
				}
			}
			return printVersion(migrator)
		},
	}
}

// printVersion reports the current migration version.
func printVersion(migrator *database.Migrator) error {
	v, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}
	if humanOutput {
		outputHuman("version %d (dirty: %t)\n", v, dirty)
		return nil
	}
	return outputJSON(map[string]interface{}{"version": v, "dirty": dirty})
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrationPath, "path", "", "Read migrations from this directory instead of the built-in set")

	migrateCmd.AddCommand(
		migrationAction("up", "Run all pending migrations", cobra.NoArgs, func(m *database.Migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return nil
		}),
		migrationAction("down", "Roll back all migrations", cobra.NoArgs, func(m *database.Migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			return nil
		}),
		migrationAction("steps <n>", "Run n steps (positive=up, negative=down)", cobra.ExactArgs(1), func(m *database.Migrator, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
			}
			if err := m.Steps(n); err != nil {
				return fmt.Errorf("migrate steps: %w", err)
			}
			return nil
		}),
		migrationAction("force <version>", "Force the recorded version after a failed migration", cobra.ExactArgs(1), func(m *database.Migrator, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
			}
			if err := m.Force(v); err != nil {
				return fmt.Errorf("force version: %w", err)
			}
			return nil
		}),
		migrationAction("version", "Print the current migration version", cobra.NoArgs, nil),
	)
	rootCmd.AddCommand(migrateCmd)
}

// Package main provides the papers operator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/czczc/inspire-papers-viewer/internal/config"
	"github.com/czczc/inspire-papers-viewer/internal/observability"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput bool
	verbose     bool

	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "papers",
	Short: "Operate the INSPIRE papers catalog",
	Long: `papers manages the small paper collection and queries INSPIRE.

Reads go straight to the database or INSPIRE. Writes require signing in;
the first write in a session opens the identity provider's consent page.

Configuration comes from config.yaml, INSPIRE_PAPERS_* variables and .env.
Commands print JSON unless --human is given.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

func loadConfig(*cobra.Command, []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger = observability.NewLogger(observability.LoggingConfig{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	})
	logger = observability.WithComponent(logger, "cli")
	return nil
}

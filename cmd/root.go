// Package cmd defines and implements the CLI commands for the quotegrab
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/config"
	"github.com/quotegrab/quotegrab/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotegrab",
		Short: "Scrape and generate Chuck Norris quotes",
		Long: `quotegrab fetches Chuck Norris quotes from web pages and JSON APIs,
persists them into a deduplicated SQLite store with a CSV mirror, and
generates random samples from that store in text, JSON, or CSV form.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newGenerateCmd())

	return cmd
}

// loadConfig builds the typed config plus a logger honoring --verbose.
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development || verbose)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

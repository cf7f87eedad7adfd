package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/fetcher"
	"github.com/quotegrab/quotegrab/internal/metrics"
	"github.com/quotegrab/quotegrab/internal/scraper"
	"github.com/quotegrab/quotegrab/internal/sources"
)

type scrapeFlags struct {
	sources     []string
	sourcesFile string
	output      string
	format      string
	workers     int
	dryRun      bool
	refresh     bool
	metricsAddr string
}

// newScrapeCmd creates and configures the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	flags := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch quotes from the configured sources",
		Long: `Fetches each configured source, extracts quote text, and persists new
quotes into the SQLite store and CSV mirror. Sources that return 404 are
commented out in the sources file so later runs skip them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.sources, "sources", "s", nil,
		"source URLs to scrape instead of the sources file")
	cmd.Flags().StringVar(&flags.sourcesFile, "sources-file", "",
		"override the sources file path")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "",
		"output path override (database path, or CSV path with --format csv)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "both",
		"output format: sqlite, csv, or both")
	cmd.Flags().IntVarP(&flags.workers, "workers", "t", 0,
		"number of concurrent workers (default from config)")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "d", false,
		"validate sources without network calls")
	cmd.Flags().BoolVarP(&flags.refresh, "refresh", "r", false,
		"re-scrape sources already present in the store")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics on this address for the duration of the run")

	return cmd
}

func runScrape(cmd *cobra.Command, flags *scrapeFlags) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync is best effort

	formats, err := parseFormats(flags.format)
	if err != nil {
		return err
	}

	engineCfg := scraper.Config{
		DBPath:    cfg.Output.DBPath,
		CSVPath:   cfg.Output.CSVPath,
		Formats:   formats,
		Workers:   cfg.Scraper.Workers,
		Overrides: flags.sources,
		Refresh:   flags.refresh,
		DryRun:    flags.dryRun,
	}
	if flags.workers > 0 {
		engineCfg.Workers = flags.workers
	}
	if flags.output != "" {
		if len(formats) == 1 && formats[0] == scraper.FormatCSV {
			engineCfg.CSVPath = flags.output
		} else {
			engineCfg.DBPath = flags.output
		}
	}
	sourcesFile := cfg.Sources.File
	if flags.sourcesFile != "" {
		sourcesFile = flags.sourcesFile
	}

	metrics.Init()
	metricsAddr := flags.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Metrics.Addr
	}
	if metricsAddr != "" {
		srv := metrics.NewServer(metricsAddr, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", zap.Error(err))
			}
		}()
	}

	f := fetcher.New(fetcher.Config{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
		RetryDelay: cfg.HTTP.RetryDelay(),
	}, logger)
	list := sources.NewList(sourcesFile, logger)
	engine := scraper.NewEngine(engineCfg, f, list, logger)

	total, err := engine.Run(cmd.Context())
	if err != nil {
		if errors.Is(err, sources.ErrNoValidSources) {
			return fmt.Errorf("no valid sources to scrape")
		}
		return fmt.Errorf("scrape: %w", err)
	}

	logger.Info("scraping completed", zap.Int("total_quotes_saved", total))
	return nil
}

func parseFormats(format string) ([]scraper.Format, error) {
	switch format {
	case "both", "":
		return []scraper.Format{scraper.FormatSQLite, scraper.FormatCSV}, nil
	case "sqlite":
		return []scraper.Format{scraper.FormatSQLite}, nil
	case "csv":
		return []scraper.Format{scraper.FormatCSV}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want sqlite, csv, or both)", format)
	}
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quotegrab/quotegrab/internal/generator"
	"github.com/quotegrab/quotegrab/internal/store"
)

type generateFlags struct {
	count    int
	seed     int64
	output   string
	format   string
	database string
}

// newGenerateCmd creates and configures the 'generate' subcommand.
func newGenerateCmd() *cobra.Command {
	flags := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random quotes from the store",
		Long: `Samples random quotes from the SQLite store. Sampling is without
replacement unless the requested count exceeds the store size. A seed
makes the output reproducible.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.count, "count", "c", 1, "number of quotes to generate")
	cmd.Flags().Int64VarP(&flags.seed, "seed", "s", 0, "random seed for reproducible output")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "output format: text, json, or csv")
	cmd.Flags().StringVarP(&flags.database, "database", "d", "", "path to the quotes database")

	return cmd
}

func runGenerate(cmd *cobra.Command, flags *generateFlags) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // stderr sync is best effort

	if flags.count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if flags.count > cfg.Generator.MaxCount {
		return fmt.Errorf("count cannot exceed %d", cfg.Generator.MaxCount)
	}
	format := generator.Format(flags.format)
	if !generator.ValidFormat(format) {
		return fmt.Errorf("unknown format %q (want text, json, or csv)", flags.format)
	}

	dbPath := cfg.Output.DBPath
	if flags.database != "" {
		dbPath = flags.database
	}
	st, err := store.OpenExisting(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close() //nolint:errcheck // read-only

	var seed *int64
	if cmd.Flags().Changed("seed") {
		seed = &flags.seed
	}

	gen := generator.New(st, logger)
	batch, err := gen.Generate(cmd.Context(), flags.count, seed)
	if err != nil {
		if errors.Is(err, store.ErrEmptyStore) {
			return fmt.Errorf("database is empty, run the scraper first")
		}
		return fmt.Errorf("generate: %w", err)
	}

	if err := generator.Export(batch, format, flags.output); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

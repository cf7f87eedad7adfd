// Package scraper orchestrates the fetch-parse-load pipeline across a
// bounded worker pool.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/fetcher"
	"github.com/quotegrab/quotegrab/internal/metrics"
	"github.com/quotegrab/quotegrab/internal/parser"
	"github.com/quotegrab/quotegrab/internal/sources"
	"github.com/quotegrab/quotegrab/internal/store"
)

// Format selects a persistence target.
type Format string

// Supported persistence formats.
const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
)

// Fetcher fetches a URL and returns its body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config controls a scrape run.
type Config struct {
	DBPath  string
	CSVPath string
	Formats []Format
	Workers int

	// Overrides bypasses the sources file when non-empty.
	Overrides []string

	// Refresh disables the skip of already-scraped sources.
	Refresh bool

	// DryRun validates and lists sources without network calls.
	DryRun bool
}

// Engine dispatches the per-source pipeline over a fixed worker pool and
// aggregates the count of newly saved quotes.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	list    *sources.List
	logger  *zap.Logger

	// csvMu serializes mirror appends; the dedupe check reads the file
	// before writing to it.
	csvMu sync.Mutex
}

// NewEngine builds an Engine.
func NewEngine(cfg Config, f Fetcher, list *sources.List, logger *zap.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []Format{FormatSQLite, FormatCSV}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, fetcher: f, list: list, logger: logger}
}

// Run executes one scrape pass and returns the total number of newly
// saved quotes. Per-source failures never abort the run; a configuration
// with no usable sources returns sources.ErrNoValidSources.
func (e *Engine) Run(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID))

	srcs, allSkipped, err := e.loadSources(logger)
	if err != nil {
		return 0, err
	}
	if allSkipped {
		// A rerun over an already-scraped source set is a successful
		// no-op, not a configuration error.
		logger.Info("all sources already scraped, nothing to do (use --refresh to re-scrape)")
		return 0, nil
	}
	srcs = sources.Validate(srcs, logger)
	if len(srcs) == 0 {
		return 0, sources.ErrNoValidSources
	}

	if e.cfg.DryRun {
		logger.Info("dry run: sources validated, skipping network calls",
			zap.Int("sources", len(srcs)),
		)
		for i, src := range srcs {
			logger.Info("dry run source", zap.Int("index", i+1), zap.String("url", src))
		}
		return 0, nil
	}

	var st *store.Store
	if e.wantsFormat(FormatSQLite) {
		st, err = store.Open(e.cfg.DBPath, logger)
		if err != nil {
			return 0, fmt.Errorf("open store: %w", err)
		}
		defer st.Close() //nolint:errcheck // read path already flushed
	}

	logger.Info("scrape starting",
		zap.Int("sources", len(srcs)),
		zap.Int("workers", e.cfg.Workers),
	)

	jobs := make(chan string)
	var total atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for src := range jobs {
				total.Add(int64(e.scrapeSource(ctx, src, st, logger)))
			}
		}()
	}

	for _, src := range srcs {
		select {
		case <-ctx.Done():
			// Let in-flight workers finish; skip the rest.
			close(jobs)
			wg.Wait()
			return int(total.Load()), ctx.Err()
		case jobs <- src:
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info("scrape finished", zap.Int64("quotes_saved", total.Load()))
	return int(total.Load()), nil
}

// loadSources resolves the source set: an explicit override list, or the
// sources file filtered by what previous runs already scraped. allSkipped
// reports that the file had sources but every one was filtered out.
func (e *Engine) loadSources(logger *zap.Logger) (srcs []string, allSkipped bool, err error) {
	if len(e.cfg.Overrides) > 0 {
		return e.cfg.Overrides, false, nil
	}

	srcs, err = e.list.Load()
	if err != nil {
		return nil, false, fmt.Errorf("load sources: %w", err)
	}
	if e.cfg.Refresh {
		return srcs, false, nil
	}

	scraped := e.scrapedSources(logger)
	if len(scraped) == 0 {
		return srcs, false, nil
	}
	filtered := srcs[:0]
	for _, src := range srcs {
		if _, ok := scraped[src]; ok {
			continue
		}
		filtered = append(filtered, src)
	}
	if skipped := len(srcs) - len(filtered); skipped > 0 {
		logger.Info("skipping already-scraped sources (use --refresh to override)",
			zap.Int("skipped", skipped),
		)
	}
	return filtered, len(srcs) > 0 && len(filtered) == 0, nil
}

// scrapedSources unions the source URLs recorded in the CSV mirror and
// the database. Either being unreadable just means no filtering.
func (e *Engine) scrapedSources(logger *zap.Logger) map[string]struct{} {
	scraped := make(map[string]struct{})

	if fromCSV, err := store.CSVSources(e.cfg.CSVPath); err == nil {
		for src := range fromCSV {
			scraped[src] = struct{}{}
		}
	} else {
		logger.Debug("failed to read csv for scraped sources", zap.Error(err))
	}

	st, err := store.OpenExisting(e.cfg.DBPath, logger)
	if err != nil {
		return scraped
	}
	defer st.Close() //nolint:errcheck // read-only
	if fromDB, err := st.DistinctSources(context.Background()); err == nil {
		for src := range fromDB {
			scraped[src] = struct{}{}
		}
	} else {
		logger.Debug("failed to read db for scraped sources", zap.Error(err))
	}
	return scraped
}

// scrapeSource runs the fetch-parse-load sequence for one source and
// returns its new-quote count.
func (e *Engine) scrapeSource(ctx context.Context, src string, st *store.Store, logger *zap.Logger) int {
	logger.Info("scraping source", zap.String("url", src))

	content, err := e.fetcher.Fetch(ctx, src)
	if err != nil {
		if errors.Is(err, fetcher.ErrNotFound) {
			metrics.ObserveSource(metrics.OutcomeNotFound)
			if derr := e.list.Disable(src, "HTTP 404"); derr != nil {
				logger.Error("failed to disable source", zap.String("url", src), zap.Error(derr))
			}
			return 0
		}
		metrics.ObserveSource(metrics.OutcomeFailed)
		logger.Error("failed to fetch source", zap.String("url", src), zap.Error(err))
		return 0
	}

	extracted := parser.Extract(content, src, "auto")
	if len(extracted) == 0 {
		metrics.ObserveSource(metrics.OutcomeEmpty)
		logger.Warn("no quotes found", zap.String("url", src))
		return 0
	}

	saved := 0
	if st != nil && e.wantsFormat(FormatSQLite) {
		inserted, duplicates, err := st.InsertQuotes(ctx, extracted)
		if err != nil {
			metrics.ObserveSource(metrics.OutcomeFailed)
			logger.Error("failed to save quotes", zap.String("url", src), zap.Error(err))
			return 0
		}
		metrics.ObserveDuplicates(duplicates)
		saved = inserted
	}
	if e.wantsFormat(FormatCSV) {
		e.csvMu.Lock()
		written, err := store.AppendCSV(extracted, e.cfg.CSVPath, logger)
		e.csvMu.Unlock()
		if err != nil {
			metrics.ObserveSource(metrics.OutcomeFailed)
			logger.Error("failed to mirror quotes to csv", zap.String("url", src), zap.Error(err))
			return saved
		}
		// CSV-only runs count mirror rows; otherwise the database insert
		// count is the authoritative new-quote tally.
		if st == nil {
			saved = written
		}
	}

	metrics.ObserveSource(metrics.OutcomeScraped)
	metrics.ObserveQuotesSaved(saved)
	logger.Info("source scraped",
		zap.String("url", src),
		zap.Int("quotes_extracted", len(extracted)),
		zap.Int("quotes_saved", saved),
	)
	return saved
}

func (e *Engine) wantsFormat(f Format) bool {
	for _, have := range e.cfg.Formats {
		if have == f {
			return true
		}
	}
	return false
}

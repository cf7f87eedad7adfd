package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotegrab/quotegrab/internal/fetcher"
	"github.com/quotegrab/quotegrab/internal/sources"
	"github.com/quotegrab/quotegrab/internal/store"
)

// fakeFetcher serves canned bodies and counts calls.
type fakeFetcher struct {
	bodies map[string]string
	errs   map[string]error
	calls  atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls.Add(1)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.bodies[url], nil
}

type testEnv struct {
	dir     string
	dbPath  string
	csvPath string
	list    *sources.List
}

func newTestEnv(t *testing.T, sourceLines string) testEnv {
	t.Helper()
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "sources.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte(sourceLines), 0o600))
	return testEnv{
		dir:     dir,
		dbPath:  filepath.Join(dir, "quotes.db"),
		csvPath: filepath.Join(dir, "quotes.csv"),
		list:    sources.NewList(srcPath, nil),
	}
}

func (e testEnv) engineConfig() Config {
	return Config{
		DBPath:  e.dbPath,
		CSVPath: e.csvPath,
		Workers: 2,
	}
}

func TestEngine_SavesQuotesFromJSONSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": "Chuck Norris can divide by zero."}`))
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL+"\n")
	f := fetcher.New(fetcher.Config{Timeout: 2 * time.Second, MaxRetries: 2, RetryDelay: time.Millisecond}, nil)
	engine := NewEngine(env.engineConfig(), f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)

	st, err := store.OpenExisting(env.dbPath, nil)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck // read-only
	n, err := st.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// The CSV mirror picked up the same row.
	texts, err := store.CSVQuotes(env.csvPath)
	require.NoError(t, err)
	require.Contains(t, texts, "Chuck Norris can divide by zero.")
}

func TestEngine_NotFoundSourceIsDisabled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	env := newTestEnv(t, srv.URL+"\n")
	f := fetcher.New(fetcher.Config{Timeout: 2 * time.Second, MaxRetries: 2, RetryDelay: time.Millisecond}, nil)
	engine := NewEngine(env.engineConfig(), f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)

	// The 404 source is commented out for future runs.
	remaining, err := env.list.Load()
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestEngine_FailedSourceStaysEnabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://flaky.example.com/jokes\n")
	f := &fakeFetcher{errs: map[string]error{
		"https://flaky.example.com/jokes": fetcher.ErrRetriesExhausted,
	}}
	engine := NewEngine(env.engineConfig(), f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)

	remaining, err := env.list.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://flaky.example.com/jokes"}, remaining)
}

func TestEngine_AggregatesAcrossSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://a.example/jokes\nhttps://b.example/jokes\n")
	f := &fakeFetcher{bodies: map[string]string{
		"https://a.example/jokes": `{"value": "Chuck Norris can divide by zero."}`,
		"https://b.example/jokes": `[
			{"value": "Chuck Norris counted to infinity. Twice."},
			{"value": "Chuck Norris can divide by zero."}
		]`,
	}}
	engine := NewEngine(env.engineConfig(), f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	// Three extractions, one cross-source duplicate.
	require.Equal(t, 2, total)
}

func TestEngine_RerunSkipsScrapedSources(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://a.example/jokes\n")
	f := &fakeFetcher{bodies: map[string]string{
		"https://a.example/jokes": `{"value": "Chuck Norris can divide by zero."}`,
	}}

	engine := NewEngine(env.engineConfig(), f, env.list, nil)
	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.EqualValues(t, 1, f.calls.Load())

	// Second run: the source is already recorded, so without --refresh
	// there is nothing left to scrape. The rerun is a successful no-op.
	total, err = NewEngine(env.engineConfig(), f, env.list, nil).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
	require.EqualValues(t, 1, f.calls.Load())

	// With Refresh the source is re-fetched but stays deduplicated.
	cfg := env.engineConfig()
	cfg.Refresh = true
	total, err = NewEngine(cfg, f, env.list, nil).Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
	require.EqualValues(t, 2, f.calls.Load())
}

func TestEngine_InvalidSourcesAreExcluded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "not a url\n/relative\n")
	engine := NewEngine(env.engineConfig(), &fakeFetcher{}, env.list, nil)

	_, err := engine.Run(context.Background())
	require.ErrorIs(t, err, sources.ErrNoValidSources)
}

func TestEngine_NoSourcesIsDistinctOutcome(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "")
	engine := NewEngine(env.engineConfig(), &fakeFetcher{}, env.list, nil)

	_, err := engine.Run(context.Background())
	require.ErrorIs(t, err, sources.ErrNoValidSources)
}

func TestEngine_DryRunMakesNoNetworkCalls(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://a.example/jokes\n")
	f := &fakeFetcher{}
	cfg := env.engineConfig()
	cfg.DryRun = true
	engine := NewEngine(cfg, f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
	require.Zero(t, f.calls.Load())

	// No outputs are created either.
	_, statErr := os.Stat(env.dbPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestEngine_SourceOverridesBypassFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://file.example/jokes\n")
	f := &fakeFetcher{bodies: map[string]string{
		"https://cli.example/jokes": `{"value": "Chuck Norris can divide by zero."}`,
	}}
	cfg := env.engineConfig()
	cfg.Overrides = []string{"https://cli.example/jokes"}
	engine := NewEngine(cfg, f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.EqualValues(t, 1, f.calls.Load())
}

func TestEngine_EmptyContentYieldsZero(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://a.example/jokes\n")
	f := &fakeFetcher{bodies: map[string]string{
		"https://a.example/jokes": "<html><body><p>nothing here</p></body></html>",
	}}
	engine := NewEngine(env.engineConfig(), f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestEngine_CSVOnlyFormat(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, "https://a.example/jokes\n")
	f := &fakeFetcher{bodies: map[string]string{
		"https://a.example/jokes": `{"value": "Chuck Norris can divide by zero."}`,
	}}
	cfg := env.engineConfig()
	cfg.Formats = []Format{FormatCSV}
	engine := NewEngine(cfg, f, env.list, nil)

	total, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)

	// CSV written, database untouched.
	_, statErr := os.Stat(env.dbPath)
	require.True(t, os.IsNotExist(statErr))
	texts, err := store.CSVQuotes(env.csvPath)
	require.NoError(t, err)
	require.Len(t, texts, 1)
}

// Package fetcher retrieves source content over HTTP using gocolly.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/metrics"
)

// ErrNotFound reports a 404-class response. It is permanent: the caller
// disables the source instead of retrying.
var ErrNotFound = errors.New("source not found")

// ErrRetriesExhausted reports that every fetch attempt failed. The source
// stays enabled for future runs.
var ErrRetriesExhausted = errors.New("fetch retries exhausted")

// Config controls fetch behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Fetcher issues HTTP GETs with bounded retries on transient failure.
type Fetcher struct {
	cfg       Config
	transport http.RoundTripper
	logger    *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:       cfg,
		transport: newHTTPTransport(),
		logger:    logger,
	}
}

// Fetch returns the body of the given URL. Transient failures (timeouts,
// connection errors, non-2xx other than 404-class) are retried up to
// MaxRetries attempts with a fixed delay between attempts. A 404-class
// response returns ErrNotFound immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		f.logger.Debug("fetching",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.cfg.MaxRetries),
		)

		body, status, err := f.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if status == http.StatusNotFound || status == http.StatusGone {
			return "", fmt.Errorf("fetch %s: %w", url, ErrNotFound)
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}

		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < f.cfg.MaxRetries {
			metrics.ObserveFetchRetry()
			if err := sleepCtx(ctx, f.cfg.RetryDelay); err != nil {
				return "", fmt.Errorf("fetch %s: %w", url, err)
			}
		}
	}
	return "", fmt.Errorf("fetch %s after %d attempts: %w (last error: %v)",
		url, f.cfg.MaxRetries, ErrRetriesExhausted, lastErr)
}

// fetchOnce executes a single HTTP GET using a fresh Colly collector.
// A new collector per attempt sidesteps Colly's visited-URL cache.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, int, error) {
	collector := colly.NewCollector(colly.Async(false))
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(f.transport)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     string
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return "", status, fetchErr
		}
		if err != nil {
			return "", status, err
		}
		return body, status, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

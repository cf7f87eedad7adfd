// Package sources manages the newline-delimited source list file.
package sources

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNoValidSources reports a run configured with nothing usable to scrape.
// It is distinct from a run that fetched sources and saved nothing.
var ErrNoValidSources = errors.New("no valid sources")

// List wraps the source list file. Disable rewrites the file in place, so
// access is serialized for concurrent workers reporting 404s.
type List struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

// NewList builds a List over the given file path.
func NewList(path string, logger *zap.Logger) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{path: path, logger: logger}
}

// Load returns the active (non-commented, non-blank) source URLs.
// A missing file yields an empty list, not an error.
func (l *List) Load() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("sources file not found, using empty list", zap.String("path", l.path))
			return nil, nil
		}
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return urls, nil
}

// Disable comments out the given source so subsequent runs skip it.
// The line is rewritten as "# [reason] url". Unknown URLs are a no-op.
func (l *List) Disable(sourceURL, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	changed := false
	for i, line := range lines {
		if strings.TrimSpace(line) == sourceURL {
			lines[i] = fmt.Sprintf("# [%s] %s", reason, sourceURL)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if err := os.WriteFile(l.path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		return fmt.Errorf("write sources file: %w", err)
	}
	l.logger.Info("source disabled",
		zap.String("url", sourceURL),
		zap.String("reason", reason),
	)
	return nil
}

// Validate filters out malformed URLs. A usable source needs a scheme and
// a host; anything else is logged once and excluded before any network call.
func Validate(urls []string, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	valid := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			logger.Warn("invalid source URL", zap.String("url", raw))
			continue
		}
		valid = append(valid, raw)
	}
	return valid
}

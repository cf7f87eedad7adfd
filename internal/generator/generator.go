// Package generator samples random quotes from the store and renders
// them as text, JSON, or CSV.
package generator

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/quotes"
	"github.com/quotegrab/quotegrab/internal/store"
)

// Format selects an output rendering.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ValidFormat reports whether f names a supported rendering.
func ValidFormat(f Format) bool {
	switch f {
	case FormatText, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// Store is the read surface the generator needs.
type Store interface {
	IDs(ctx context.Context) ([]int64, error)
	QuoteByID(ctx context.Context, id int64) (quotes.Quote, error)
}

// Generator samples quotes without replacement while the store can cover
// the request, and with replacement once count exceeds the store size.
type Generator struct {
	store  Store
	logger *zap.Logger
}

// New builds a Generator over the given store.
func New(st Store, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: st, logger: logger}
}

// Generate returns count random quotes. A non-nil seed makes the output
// deterministic for identical store content; nil uses system randomness.
func (g *Generator) Generate(ctx context.Context, count int, seed *int64) ([]quotes.Quote, error) {
	ids, err := g.store.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load quote ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, store.ErrEmptyStore
	}

	var src rand.Source
	if seed != nil {
		g.logger.Debug("using random seed", zap.Int64("seed", *seed))
		src = rand.NewSource(*seed)
	} else {
		src = rand.NewSource(time.Now().UnixNano())
	}
	rng := rand.New(src)

	selected := make([]int64, 0, count)
	if count > len(ids) {
		// Not enough rows for distinct picks; sample with replacement.
		g.logger.Warn("requested more quotes than stored, sampling with replacement",
			zap.Int("requested", count),
			zap.Int("stored", len(ids)),
		)
		for i := 0; i < count; i++ {
			selected = append(selected, ids[rng.Intn(len(ids))])
		}
	} else {
		for _, idx := range rng.Perm(len(ids))[:count] {
			selected = append(selected, ids[idx])
		}
	}

	out := make([]quotes.Quote, 0, count)
	for _, id := range selected {
		q, err := g.store.QuoteByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load quote: %w", err)
		}
		out = append(out, q)
	}

	g.logger.Info("quotes generated", zap.Int("count", len(out)))
	return out, nil
}

// Render writes the quotes to w in the requested format.
func Render(batch []quotes.Quote, format Format, w io.Writer) error {
	switch format {
	case FormatText:
		for _, q := range batch {
			if _, err := fmt.Fprintln(w, q.Text); err != nil {
				return fmt.Errorf("write text: %w", err)
			}
		}
		return nil

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(batch); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil

	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "quote", "source"}); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, q := range batch {
			row := []string{strconv.FormatInt(q.ID, 10), q.Text, q.Source}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Export renders to the given file path, or stdout when path is empty.
func Export(batch []quotes.Quote, format Format, path string) error {
	if path == "" {
		return Render(batch, format, os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Render(batch, format, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

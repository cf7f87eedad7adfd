// Package store persists quotes in an embedded SQLite database with a
// deduplicated CSV mirror alongside it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quotegrab/quotegrab/internal/quotes"
)

// ErrEmptyStore reports a database with no quotes in it.
var ErrEmptyStore = errors.New("quote store is empty")

// Store wraps the SQLite quotes database. Schema creation is idempotent;
// the unique constraint on quote text enforces global deduplication.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates the quotes database at path and ensures the
// schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer; concurrent workers serialize on
	// this one connection instead of fighting over the file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path, logger: logger}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// OpenExisting opens the database at path without creating it, for read
// paths that require a prior scrape run.
func OpenExisting(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path+"?mode=rw")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database not found at %s: %w", path, err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quote TEXT NOT NULL UNIQUE,
		source TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_quote ON quotes(quote);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// InsertQuotes inserts the batch, skipping rows whose text is already
// stored. Returns the count of genuinely new rows and the count of
// duplicates; a duplicate is never an error.
func (s *Store) InsertQuotes(ctx context.Context, batch []quotes.Quote) (inserted, duplicates int, err error) {
	if len(batch) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO quotes (quote, source) VALUES (?, ?)")
	if err != nil {
		return 0, 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // tx commit surfaces failures

	for _, q := range batch {
		if q.Text == "" {
			continue
		}
		res, execErr := stmt.ExecContext(ctx, q.Text, q.Source)
		if execErr != nil {
			err = fmt.Errorf("insert quote: %w", execErr)
			return 0, 0, err
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("rows affected: %w", raErr)
			return 0, 0, err
		}
		if affected == 0 {
			duplicates++
			continue
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit insert: %w", err)
	}

	s.logger.Debug("quotes inserted",
		zap.Int("new", inserted),
		zap.Int("duplicates", duplicates),
	)
	return inserted, duplicates, nil
}

// Count returns the number of stored quotes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM quotes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count quotes: %w", err)
	}
	return n, nil
}

// IDs returns every quote ID in insertion order.
func (s *Store) IDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM quotes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list quote ids: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quote id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote ids: %w", err)
	}
	return ids, nil
}

// QuoteByID returns the quote with the given ID.
func (s *Store) QuoteByID(ctx context.Context, id int64) (quotes.Quote, error) {
	var (
		q      quotes.Quote
		source sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, quote, source FROM quotes WHERE id = ?", id,
	).Scan(&q.ID, &q.Text, &source)
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("quote %d: %w", id, err)
	}
	q.Source = source.String
	return q, nil
}

// DistinctSources returns the set of source URLs already present in the
// store. Used to skip already-scraped sources between runs.
func (s *Store) DistinctSources(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT source FROM quotes WHERE source IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	set := make(map[string]struct{})
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if src != "" {
			set[src] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return set, nil
}

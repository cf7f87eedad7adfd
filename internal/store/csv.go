package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/quotegrab/quotegrab/internal/quotes"
)

var csvHeader = []string{"source", "quote"}

// AppendCSV appends the batch to the CSV mirror at path, writing the
// header when the file is new. Rows whose quote text already appears in
// the file are skipped, keeping the mirror deduplicated like the
// database. Returns the count of rows written.
func AppendCSV(batch []quotes.Quote, path string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(batch) == 0 {
		return 0, nil
	}

	existing, err := CSVQuotes(path)
	if err != nil {
		return 0, err
	}
	writeHeader := existing == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close() //nolint:errcheck // flush errors surface via writer

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return 0, fmt.Errorf("write csv header: %w", err)
		}
		existing = make(map[string]struct{})
	}

	written := 0
	for _, q := range batch {
		if q.Text == "" {
			continue
		}
		if _, ok := existing[q.Text]; ok {
			continue
		}
		if err := w.Write([]string{q.Source, q.Text}); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
		existing[q.Text] = struct{}{}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	logger.Debug("quotes mirrored to csv",
		zap.String("path", path),
		zap.Int("written", written),
		zap.Int("skipped", len(batch)-written),
	)
	return written, nil
}

// CSVQuotes returns the set of quote texts already present in the mirror,
// or nil if the file does not exist yet.
func CSVQuotes(path string) (map[string]struct{}, error) {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		set[row[1]] = struct{}{}
	}
	return set, nil
}

// CSVSources returns the set of source URLs already present in the
// mirror. Feeds the skip-already-scraped filter alongside the database.
func CSVSources(path string) (map[string]struct{}, error) {
	rows, err := readCSV(path)
	if err != nil || rows == nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, row := range rows {
		if row[0] != "" {
			set[row[0]] = struct{}{}
		}
	}
	return set, nil
}

// readCSV returns the data rows (header stripped) of the mirror, or nil
// if the file does not exist.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv file: %w", err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, row)
	}
	if rows == nil {
		rows = [][]string{}
	}
	return rows, nil
}

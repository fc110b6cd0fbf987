package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// CSVStore keeps the schedule in a local CSV file laid out like the
// spreadsheet: the same header rows and the same column positions.
type CSVStore struct {
	path    string
	columns Columns
	mu      sync.Mutex
}

// NewCSVStore creates a row store backed by the CSV file at path.
func NewCSVStore(path string, columns Columns) *CSVStore {
	return &CSVStore{path: path, columns: columns}
}

// Path returns the CSV file path.
func (s *CSVStore) Path() string {
	return s.path
}

// ReadRow returns the mapped cells of row. All values are strings.
func (s *CSVStore) ReadRow(ctx context.Context, row int) (schedule.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readRecords(s.path)
	if err != nil {
		return nil, err
	}
	if row < 1 || row > len(records) {
		return nil, fmt.Errorf("row %d does not exist in %s (%d rows)", row, s.path, len(records))
	}
	return rawFromCells(toValues(records[row-1]), s.columns), nil
}

// WriteFields updates cells of row and replaces the file atomically.
func (s *CSVStore) WriteFields(ctx context.Context, row int, fields map[schedule.Field]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readRecords(s.path)
	if err != nil {
		return err
	}
	if row < 1 || row > len(records) {
		return fmt.Errorf("row %d does not exist in %s (%d rows)", row, s.path, len(records))
	}

	record := records[row-1]
	for field, value := range fields {
		col, ok := s.columns[field]
		if !ok {
			return fmt.Errorf("no column configured for %s", field)
		}
		for len(record) < col {
			record = append(record, "")
		}
		record[col-1] = value
	}
	records[row-1] = record

	return writeRecords(s.path, records)
}

// Snapshot returns every record of the file.
func (s *CSVStore) Snapshot() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readRecords(s.path)
}

func readRecords(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schedule file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule file: %w", err)
	}
	return records, nil
}

func writeRecords(path string, records [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".schedule-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write schedule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace schedule file: %w", err)
	}
	return nil
}

func toValues(record []string) []any {
	values := make([]any, len(record))
	for i, v := range record {
		values[i] = v
	}
	return values
}

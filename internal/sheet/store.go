// Package sheet provides the row stores the schedule is read from and
// written back to: a Google Sheets spreadsheet or a local CSV file.
package sheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// RowStore reads and writes one schedule row at a time. Rows are 1-based
// like spreadsheet rows.
type RowStore interface {
	ReadRow(ctx context.Context, row int) (schedule.RawRow, error)
	// WriteFields writes the given fields of a row in a single operation.
	WriteFields(ctx context.Context, row int, fields map[schedule.Field]string) error
}

// Edit is the notification that a cell in a row was edited.
type Edit struct {
	Sheet string
	Row   int
}

// Columns maps each field to its 1-based column (A=1, B=2...).
type Columns map[schedule.Field]int

// DefaultColumns is the layout of the recruitment sheet.
func DefaultColumns() Columns {
	return Columns{
		schedule.FieldCompany:     2,
		schedule.FieldStart:       3,
		schedule.FieldEnd:         4,
		schedule.FieldStatus:      5,
		schedule.FieldDescription: 6,
		schedule.FieldLocation:    7,
		schedule.FieldEventID:     12,
		schedule.FieldPrevStatus:  13,
	}
}

// Validate checks that every field has a distinct positive column.
func (c Columns) Validate() error {
	seen := make(map[int]schedule.Field, len(c))
	for _, f := range schedule.Fields {
		col, ok := c[f]
		if !ok || col < 1 {
			return fmt.Errorf("column for %s must be a positive column number", f)
		}
		if other, dup := seen[col]; dup {
			return fmt.Errorf("columns for %s and %s are both %s", other, f, ColumnLetter(col))
		}
		seen[col] = f
	}
	return nil
}

// Max returns the right-most mapped column.
func (c Columns) Max() int {
	max := 0
	for _, col := range c {
		if col > max {
			max = col
		}
	}
	return max
}

// ColumnLetter converts a 1-based column number to A1 notation letters.
func ColumnLetter(col int) string {
	var letters []byte
	for col > 0 {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}
	return string(letters)
}

// ParseColumn accepts a column as letters ("L") or as a 1-based number ("12").
func ParseColumn(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty column")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("column %d must be positive", n)
		}
		return n, nil
	}
	col := 0
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", s)
		}
		col = col*26 + int(r-'A'+1)
	}
	return col, nil
}

// rawFromCells picks the mapped cells out of a row of values. Cells past
// the end of values are empty.
func rawFromCells(values []any, columns Columns) schedule.RawRow {
	raw := make(schedule.RawRow, len(columns))
	for field, col := range columns {
		if col-1 < len(values) {
			raw[field] = values[col-1]
		} else {
			raw[field] = nil
		}
	}
	return raw
}

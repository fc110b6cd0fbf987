package sheet

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// GoogleStore reads rows from a Google Sheets spreadsheet.
type GoogleStore struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	columns       Columns
}

// NewGoogleStore creates a Sheets-backed row store using the provided
// HTTP client.
func NewGoogleStore(ctx context.Context, httpClient *http.Client, spreadsheetID, sheetName string, columns Columns, opts ...option.ClientOption) (*GoogleStore, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		columns:       columns,
	}, nil
}

// dateFormats are the number format types whose cells hold serial dates.
var dateFormats = map[string]bool{"DATE": true, "DATE_TIME": true}

// cellFields limits the grid data to the values and their number format.
const cellFields = "sheets.data.rowData.values(effectiveValue,effectiveFormat.numberFormat.type)"

// ReadRow fetches columns A through the last mapped column of row. Numbers
// in date-formatted cells come back as schedule.SerialDate, any other
// number stays a float64.
func (s *GoogleStore) ReadRow(ctx context.Context, row int) (schedule.RawRow, error) {
	readRange := fmt.Sprintf("%s!A%d:%s%d", quoteSheet(s.sheetName), row, ColumnLetter(s.columns.Max()), row)

	resp, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Ranges(readRange).
		IncludeGridData(true).
		Fields(cellFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", row, err)
	}

	return rawFromCells(gridValues(resp), s.columns), nil
}

// gridValues flattens the single row of grid data in resp.
func gridValues(resp *sheets.Spreadsheet) []any {
	if len(resp.Sheets) == 0 || len(resp.Sheets[0].Data) == 0 || len(resp.Sheets[0].Data[0].RowData) == 0 {
		return nil
	}

	cells := resp.Sheets[0].Data[0].RowData[0].Values
	values := make([]any, len(cells))
	for i, cell := range cells {
		values[i] = cellValue(cell)
	}
	return values
}

func cellValue(cell *sheets.CellData) any {
	if cell == nil || cell.EffectiveValue == nil {
		return nil
	}

	v := cell.EffectiveValue
	switch {
	case v.NumberValue != nil:
		if format := cell.EffectiveFormat; format != nil && format.NumberFormat != nil && dateFormats[format.NumberFormat.Type] {
			return schedule.SerialDate(*v.NumberValue)
		}
		return *v.NumberValue
	case v.StringValue != nil:
		return *v.StringValue
	case v.BoolValue != nil:
		return *v.BoolValue
	case v.ErrorValue != nil:
		return "#" + v.ErrorValue.Type
	}
	return nil
}

// WriteFields writes all fields of a row with one batch update so the
// pair of values lands together.
func (s *GoogleStore) WriteFields(ctx context.Context, row int, fields map[schedule.Field]string) error {
	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for _, field := range schedule.Fields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		col, ok := s.columns[field]
		if !ok {
			return fmt.Errorf("no column configured for %s", field)
		}
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", quoteSheet(s.sheetName), ColumnLetter(col), row),
			Values: [][]any{{value}},
		})
	}
	if len(req.Data) == 0 {
		return nil
	}

	if _, err := s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

package sheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

const testCSV = `No,企業名,開始日時,終了日時,選考状況,選考詳細,選考会場,,,,,イベントID,前回ステータス
1,Acme,2024-04-10 10:00,2024-04-10 11:00,ES,,,,,,,,
2,Globex,2024-05-01 13:00,,1次面接,bring ID,オンライン,,,,,evt-1,ES
`

func writeTestCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0644); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}
	return path
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{1: "A", 2: "B", 12: "L", 13: "M", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"}
	for col, want := range tests {
		if got := ColumnLetter(col); got != want {
			t.Errorf("ColumnLetter(%d) = %q, want %q", col, got, want)
		}
	}
}

func TestParseColumn(t *testing.T) {
	tests := map[string]int{"A": 1, "l": 12, " M ": 13, "AA": 27, "12": 12}
	for in, want := range tests {
		got, err := ParseColumn(in)
		if err != nil || got != want {
			t.Errorf("ParseColumn(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "0", "A1", "-3"} {
		if _, err := ParseColumn(in); err == nil {
			t.Errorf("Expected an error for %q", in)
		}
	}
}

func TestColumns_Validate(t *testing.T) {
	if err := DefaultColumns().Validate(); err != nil {
		t.Errorf("Expected default columns to be valid, got: %v", err)
	}

	dup := DefaultColumns()
	dup[schedule.FieldPrevStatus] = dup[schedule.FieldEventID]
	if err := dup.Validate(); err == nil {
		t.Error("Expected an error for two fields on the same column")
	}

	missing := DefaultColumns()
	delete(missing, schedule.FieldLocation)
	if err := missing.Validate(); err == nil {
		t.Error("Expected an error for a missing column")
	}
}

func TestCSVStore_ReadRow(t *testing.T) {
	store := NewCSVStore(writeTestCSV(t), DefaultColumns())
	ctx := context.Background()

	raw, err := store.ReadRow(ctx, 3)
	if err != nil {
		t.Fatalf("ReadRow() returned an error: %v", err)
	}

	if raw[schedule.FieldCompany] != "Globex" {
		t.Errorf("Expected company 'Globex', got %v", raw[schedule.FieldCompany])
	}
	if raw[schedule.FieldLocation] != "オンライン" {
		t.Errorf("Expected location 'オンライン', got %v", raw[schedule.FieldLocation])
	}
	if raw[schedule.FieldEventID] != "evt-1" || raw[schedule.FieldPrevStatus] != "ES" {
		t.Errorf("Expected event id/prev status evt-1/ES, got %v/%v", raw[schedule.FieldEventID], raw[schedule.FieldPrevStatus])
	}

	if _, err := store.ReadRow(ctx, 10); err == nil {
		t.Error("Expected an error for a row past the end of the file")
	}
}

func TestCSVStore_WriteFields(t *testing.T) {
	path := writeTestCSV(t)
	store := NewCSVStore(path, DefaultColumns())
	ctx := context.Background()

	err := store.WriteFields(ctx, 2, map[schedule.Field]string{
		schedule.FieldEventID:    "new-id",
		schedule.FieldPrevStatus: "ES",
	})
	if err != nil {
		t.Fatalf("WriteFields() returned an error: %v", err)
	}

	raw, err := store.ReadRow(ctx, 2)
	if err != nil {
		t.Fatalf("ReadRow() returned an error: %v", err)
	}
	if raw[schedule.FieldEventID] != "new-id" || raw[schedule.FieldPrevStatus] != "ES" {
		t.Errorf("Expected written fields, got %v/%v", raw[schedule.FieldEventID], raw[schedule.FieldPrevStatus])
	}
	if raw[schedule.FieldCompany] != "Acme" {
		t.Errorf("Expected other cells to be preserved, got company %v", raw[schedule.FieldCompany])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}
	if !strings.HasPrefix(string(data), "No,企業名") {
		t.Errorf("Expected header row to be preserved, got %q", string(data))
	}
}

func TestCSVStore_WriteExtendsShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.csv")
	if err := os.WriteFile(path, []byte("header\n1,Acme,2024-04-10,,ES\n"), 0644); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}
	store := NewCSVStore(path, DefaultColumns())

	if err := store.WriteFields(context.Background(), 2, map[schedule.Field]string{schedule.FieldPrevStatus: "ES"}); err != nil {
		t.Fatalf("WriteFields() returned an error: %v", err)
	}

	records, err := store.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() returned an error: %v", err)
	}
	if len(records[1]) != 13 || records[1][12] != "ES" {
		t.Errorf("Expected row extended to 13 columns with ES in M, got %v", records[1])
	}
}

func TestChangedRows(t *testing.T) {
	prev := [][]string{
		{"h"},
		{"1", "Acme", "ES", "", ""},
		{"2", "Globex", "ES", "", ""},
	}
	next := [][]string{
		{"h"},
		{"1", "Acme", "ES", "evt-1", "ES"}, // write-back only
		{"2", "Globex", "1次面接", "", ""},
		{"3", "Initech", "ES"},
	}
	ignored := map[int]bool{3: true, 4: true}

	got := ChangedRows(prev, next, ignored)
	want := []int{3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ChangedRows() = %v, want %v", got, want)
	}
}

func TestWatcher_DetectIgnoresWriteBack(t *testing.T) {
	path := writeTestCSV(t)
	store := NewCSVStore(path, DefaultColumns())
	w, err := NewWatcher(store, "kokochan", DefaultColumns())
	if err != nil {
		t.Fatalf("NewWatcher() returned an error: %v", err)
	}
	ctx := context.Background()

	if err := store.WriteFields(ctx, 2, map[schedule.Field]string{schedule.FieldEventID: "x", schedule.FieldPrevStatus: "ES"}); err != nil {
		t.Fatalf("WriteFields() returned an error: %v", err)
	}
	if edits := w.detect(); len(edits) != 0 {
		t.Errorf("Expected write-back to produce no edits, got %v", edits)
	}

	if err := store.WriteFields(ctx, 3, map[schedule.Field]string{schedule.FieldStatus: "2次面接"}); err != nil {
		t.Fatalf("WriteFields() returned an error: %v", err)
	}
	edits := w.detect()
	if len(edits) != 1 || edits[0] != (Edit{Sheet: "kokochan", Row: 3}) {
		t.Errorf("Expected a single edit for row 3, got %v", edits)
	}
}

func TestGoogleStore_ReadAndWrite(t *testing.T) {
	var batch struct {
		ValueInputOption string `json:"valueInputOption"`
		Data             []struct {
			Range  string  `json:"range"`
			Values [][]any `json:"values"`
		} `json:"data"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/spreadsheets/sheet-id"):
			if got := r.URL.Query().Get("ranges"); got != "'kokochan'!A3:M3" {
				t.Errorf("Unexpected read range: %s", got)
			}
			if r.URL.Query().Get("includeGridData") != "true" {
				t.Error("Expected grid data to be requested")
			}
			// Trailing empty cells are omitted by the API. The end cell holds a
			// bare number without a date format.
			io.WriteString(w, `{"sheets":[{"data":[{"rowData":[{"values":[
				{"effectiveValue":{"stringValue":"2"}},
				{"effectiveValue":{"stringValue":"Acme"}},
				{"effectiveValue":{"numberValue":45392.416666666664},"effectiveFormat":{"numberFormat":{"type":"DATE_TIME"}}},
				{"effectiveValue":{"numberValue":5},"effectiveFormat":{"numberFormat":{"type":"NUMBER"}}},
				{"effectiveValue":{"stringValue":"ES"}},
				{}
			]}]}]}]}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "values:batchUpdate"):
			if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
				t.Errorf("Failed to decode batch update: %v", err)
			}
			io.WriteString(w, `{"spreadsheetId":"sheet-id","totalUpdatedCells":2}`)
		default:
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	store, err := NewGoogleStore(ctx, server.Client(), "sheet-id", "kokochan", DefaultColumns(), option.WithEndpoint(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogleStore() returned an error: %v", err)
	}

	raw, err := store.ReadRow(ctx, 3)
	if err != nil {
		t.Fatalf("ReadRow() returned an error: %v", err)
	}
	if raw[schedule.FieldCompany] != "Acme" {
		t.Errorf("Expected company 'Acme', got %v", raw[schedule.FieldCompany])
	}
	if _, ok := raw[schedule.FieldStart].(schedule.SerialDate); !ok {
		t.Errorf("Expected start to be a serial date, got %T", raw[schedule.FieldStart])
	}
	if _, ok := raw[schedule.FieldEnd].(float64); !ok {
		t.Errorf("Expected a plain number end to stay a float64, got %T", raw[schedule.FieldEnd])
	}
	if raw[schedule.FieldDescription] != nil {
		t.Errorf("Expected an empty cell to be nil, got %v", raw[schedule.FieldDescription])
	}
	if raw[schedule.FieldLocation] != nil {
		t.Errorf("Expected missing trailing cells to be nil, got %v", raw[schedule.FieldLocation])
	}

	err = store.WriteFields(ctx, 3, map[schedule.Field]string{
		schedule.FieldEventID:    "evt-9",
		schedule.FieldPrevStatus: "ES",
	})
	if err != nil {
		t.Fatalf("WriteFields() returned an error: %v", err)
	}
	if batch.ValueInputOption != "RAW" {
		t.Errorf("Expected RAW input option, got %q", batch.ValueInputOption)
	}
	if len(batch.Data) != 2 {
		t.Fatalf("Expected both fields in one batch, got %d ranges", len(batch.Data))
	}
	if batch.Data[0].Range != "'kokochan'!L3" || batch.Data[1].Range != "'kokochan'!M3" {
		t.Errorf("Unexpected write ranges: %s, %s", batch.Data[0].Range, batch.Data[1].Range)
	}
}

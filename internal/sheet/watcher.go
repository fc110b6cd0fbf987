package sheet

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "github.com/zawa-kun/zawa-tools/internal/log"
	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// DefaultDebounce is how long the watcher waits for a burst of file events
// to settle before diffing the file.
const DefaultDebounce = 200 * time.Millisecond

// Watcher turns edits of a CSV schedule into one Edit per changed row.
// Changes confined to the write-back columns (event id, previous status)
// are ignored, so the sync's own writes do not trigger another sync.
type Watcher struct {
	store    *CSVStore
	sheet    string
	ignored  map[int]bool
	debounce time.Duration
	last     [][]string
}

// NewWatcher snapshots the current file; only later changes produce edits.
func NewWatcher(store *CSVStore, sheetName string, columns Columns) (*Watcher, error) {
	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		store: store,
		sheet: sheetName,
		ignored: map[int]bool{
			columns[schedule.FieldEventID] - 1:    true,
			columns[schedule.FieldPrevStatus] - 1: true,
		},
		debounce: DefaultDebounce,
		last:     snapshot,
	}, nil
}

// Run watches the file until ctx is done. Edits are handed to handle one
// at a time, in row order; a failing edit is logged and does not stop the
// watcher.
func (w *Watcher) Run(ctx context.Context, handle func(context.Context, Edit) error) error {
	target, err := filepath.Abs(w.store.Path())
	if err != nil {
		return fmt.Errorf("failed to resolve schedule path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	// Watch the directory: editors and our own writes replace the file by
	// rename, which drops a watch on the file itself.
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	appLog.Info("watching schedule file", "path", target)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			appLog.Error("file watcher error", err)

		case <-timer.C:
			for _, edit := range w.detect() {
				if err := handle(ctx, edit); err != nil {
					appLog.Error("failed to sync edited row", err, "row", edit.Row)
				}
			}
		}
	}
}

// detect diffs the file against the previous snapshot.
func (w *Watcher) detect() []Edit {
	snapshot, err := w.store.Snapshot()
	if err != nil {
		// Editors may leave the file briefly missing or half written.
		appLog.Debug("schedule file not readable yet", "err", err)
		return nil
	}

	rows := ChangedRows(w.last, snapshot, w.ignored)
	w.last = snapshot

	edits := make([]Edit, 0, len(rows))
	for _, row := range rows {
		edits = append(edits, Edit{Sheet: w.sheet, Row: row})
	}
	return edits
}

// ChangedRows returns the 1-based numbers of rows whose cells differ
// between prev and next, ignoring the given 0-based columns. Added rows
// count as changed; removed rows do not.
func ChangedRows(prev, next [][]string, ignored map[int]bool) []int {
	var rows []int
	for i, record := range next {
		if i >= len(prev) || !sameRecord(prev[i], record, ignored) {
			rows = append(rows, i+1)
		}
	}
	return rows
}

func sameRecord(a, b []string, ignored map[int]bool) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for col := 0; col < n; col++ {
		if ignored[col] {
			continue
		}
		if cell(a, col) != cell(b, col) {
			return false
		}
	}
	return true
}

func cell(record []string, col int) string {
	if col < len(record) {
		return record[col]
	}
	return ""
}

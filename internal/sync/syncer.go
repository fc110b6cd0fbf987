// Package sync reconciles edited schedule rows with calendar entries.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zawa-kun/zawa-tools/internal/calendar"
	appLog "github.com/zawa-kun/zawa-tools/internal/log"
	"github.com/zawa-kun/zawa-tools/internal/schedule"
	"github.com/zawa-kun/zawa-tools/internal/sheet"
)

const (
	// DefaultReminderMinutes is the popup reminder attached to created
	// entries when Options leaves ReminderMinutes at zero.
	DefaultReminderMinutes = 60
	// NoReminder disables the reminder on created entries.
	NoReminder = -1
)

// Options configures a Syncer.
type Options struct {
	CalendarID string
	// SheetName is the sheet edits must come from. Edits with an empty
	// sheet name are accepted.
	SheetName string
	// HeaderRows is the number of leading rows that are never synced.
	HeaderRows int
	// ReminderMinutes is the popup reminder on created entries. Zero means
	// DefaultReminderMinutes and NoReminder disables it.
	ReminderMinutes int
	// DryRun decides and logs the action without touching the calendar or
	// the row.
	DryRun bool
}

// Result describes what SyncRow did with a row.
type Result struct {
	Row     int
	Action  Action
	Lookup  calendar.LookupStatus
	EntryID string
	Title   string
	DryRun  bool
}

// Syncer handles the synchronization of schedule rows into a calendar.
type Syncer struct {
	rows     sheet.RowStore
	cal      calendar.Client
	settings schedule.Settings
	opts     Options
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(rows sheet.RowStore, cal calendar.Client, settings schedule.Settings, opts Options) *Syncer {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	if opts.ReminderMinutes == 0 {
		opts.ReminderMinutes = DefaultReminderMinutes
	}
	return &Syncer{
		rows:     rows,
		cal:      cal,
		settings: settings,
		opts:     opts,
	}
}

// SyncRow handles one edit notification. A skipped row returns a Result
// with ActionSkip together with a *SkipError; use IsSkip to tell it apart
// from a failure. The row is written back only after the calendar call
// succeeded.
func (s *Syncer) SyncRow(ctx context.Context, edit sheet.Edit) (*Result, error) {
	result := &Result{Row: edit.Row, Action: ActionSkip, DryRun: s.opts.DryRun}

	if edit.Row <= s.opts.HeaderRows || (edit.Sheet != "" && s.opts.SheetName != "" && edit.Sheet != s.opts.SheetName) {
		appLog.Debug("ignoring edit outside the schedule", "sheet", edit.Sheet, "row", edit.Row)
		return result, &SkipError{Row: edit.Row, Reason: ErrOutsideSchedule}
	}

	raw, err := s.rows.ReadRow(ctx, edit.Row)
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", edit.Row, err)
	}
	row := schedule.ParseRow(edit.Row, raw, s.settings.Location)

	decision := Decide(row, s.settings.Phases, func(entryID string) calendar.LookupResult {
		return s.cal.Lookup(ctx, s.opts.CalendarID, entryID)
	})
	if decision.Skip != nil {
		logSkip(decision.Skip)
		return result, decision.Skip
	}
	lookup := decision.Lookup
	result.Lookup = lookup.Status
	result.Action = decision.Action

	draft := s.draft(row)
	result.Title = draft.Title

	if s.opts.DryRun {
		appLog.Info("dry run", "row", row.Number, "action", result.Action, "lookup", lookup.Status, "title", draft.Title)
		if lookup.Entry != nil {
			result.EntryID = lookup.Entry.ID
		}
		return result, nil
	}

	// Once the calendar has changed, the row is recorded even if ctx was
	// cancelled in between.
	if result.Action.Creates() {
		draft.ReminderMinutes = s.reminderMinutes()
		entry, err := s.cal.CreateEntry(ctx, s.opts.CalendarID, draft)
		if err != nil {
			return nil, fmt.Errorf("failed to create calendar entry for row %d: %w", row.Number, err)
		}
		result.EntryID = entry.ID

		err = s.rows.WriteFields(context.WithoutCancel(ctx), row.Number, map[schedule.Field]string{
			schedule.FieldEventID:    entry.ID,
			schedule.FieldPrevStatus: row.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record entry %s in row %d: %w", entry.ID, row.Number, err)
		}
	} else {
		if err := s.cal.UpdateEntry(ctx, s.opts.CalendarID, lookup.Entry, draft); err != nil {
			return nil, fmt.Errorf("failed to update calendar entry %s for row %d: %w", lookup.Entry.ID, row.Number, err)
		}
		result.EntryID = lookup.Entry.ID

		err := s.rows.WriteFields(context.WithoutCancel(ctx), row.Number, map[schedule.Field]string{
			schedule.FieldPrevStatus: row.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record status in row %d: %w", row.Number, err)
		}
	}

	appLog.Info("row synced", "row", row.Number, "action", result.Action, "entry", result.EntryID, "title", result.Title)
	return result, nil
}

func (s *Syncer) reminderMinutes() int {
	if s.opts.ReminderMinutes < 0 {
		return 0
	}
	return s.opts.ReminderMinutes
}

// draft builds the desired entry state for a valid row.
func (s *Syncer) draft(row schedule.Row) *calendar.Draft {
	return &calendar.Draft{
		Title:       s.settings.Title.Format(row.Status, row.Company, row.Location),
		Location:    row.Location,
		Description: row.Description,
		Span:        schedule.Materialize(row.Start.Instant(), row.End.Instant()),
	}
}

func logSkip(skip *SkipError) {
	if errors.Is(skip, ErrInvalidDate) {
		appLog.Error("invalid date", skip, "row", skip.Row)
		return
	}
	appLog.Info("row skipped", "row", skip.Row, "reason", skip.Reason, "detail", skip.Detail)
}

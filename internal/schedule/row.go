// Package schedule holds the recruitment schedule model and the pure rules
// that turn a schedule row into a calendar entry: the display title and the
// timed/all-day span.
package schedule

import (
	"time"
)

// Field is the logical role of a column in the schedule sheet.
type Field string

const (
	FieldCompany     Field = "company"
	FieldStart       Field = "start"
	FieldEnd         Field = "end"
	FieldStatus      Field = "status"
	FieldDescription Field = "description"
	FieldLocation    Field = "location"
	FieldEventID     Field = "event_id"
	FieldPrevStatus  Field = "prev_status"
)

// Fields lists every column role in sheet order.
var Fields = []Field{
	FieldCompany,
	FieldStart,
	FieldEnd,
	FieldStatus,
	FieldDescription,
	FieldLocation,
	FieldEventID,
	FieldPrevStatus,
}

// RawRow holds the untyped cell values of one row keyed by column role.
// Values are whatever the row store produced: nil, string, float64
// (spreadsheet serial dates and numbers) or time.Time.
type RawRow map[Field]any

// Row is one tracked recruitment event.
type Row struct {
	// Number is the 1-based row coordinate in the sheet.
	Number int

	Company     string
	Start       Date
	End         Date
	Location    string
	Description string
	Status      string

	// EventID identifies the calendar entry created for PrevStatus, not
	// necessarily for Status.
	EventID    string
	PrevStatus string
}

// Date is a point-in-time cell. A zero Date is an empty cell.
type Date struct {
	Time time.Time
	// Set reports whether the cell had any content.
	Set bool
	// Valid reports whether the content is a well-formed instant.
	Valid bool
	// Raw is the cell content as text, kept for diagnostics.
	Raw string
}

// Instant returns the parsed time, or the zero time when the cell is empty
// or invalid.
func (d Date) Instant() time.Time {
	if !d.Set || !d.Valid {
		return time.Time{}
	}
	return d.Time
}

// PhaseSet is the immutable allow-list of statuses that are synced.
type PhaseSet struct {
	phases map[string]struct{}
	order  []string
}

// NewPhaseSet builds a PhaseSet from the given statuses.
func NewPhaseSet(phases ...string) PhaseSet {
	set := PhaseSet{phases: make(map[string]struct{}, len(phases))}
	for _, p := range phases {
		if _, dup := set.phases[p]; dup {
			continue
		}
		set.phases[p] = struct{}{}
		set.order = append(set.order, p)
	}
	return set
}

// Contains reports whether status is a recognized phase. Matching is exact.
func (s PhaseSet) Contains(status string) bool {
	_, ok := s.phases[status]
	return ok
}

// List returns the phases in configuration order.
func (s PhaseSet) List() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Settings is the immutable configuration the sync core needs.
type Settings struct {
	Phases   PhaseSet
	Title    TitleMarks
	Location *time.Location
}

// DefaultPhases are the recruitment phases synced when none are configured.
var DefaultPhases = []string{
	"説明会", "ES", "WEBテスト", "ES＆WEBテスト",
	"1次面接", "2次面接", "3次面接", "最終面接",
}

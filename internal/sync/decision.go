package sync

import (
	"fmt"

	"github.com/zawa-kun/zawa-tools/internal/calendar"
	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// Action is the calendar mutation chosen for a row.
type Action int

const (
	// ActionSkip leaves the calendar and the row untouched.
	ActionSkip Action = iota
	// ActionCreate creates the first entry for the row, or replaces one
	// that no longer exists.
	ActionCreate
	// ActionCreateForPhase creates an additional entry because the status
	// moved to a new phase. The previous phase's entry is kept as history.
	ActionCreateForPhase
	// ActionUpdate rewrites the existing entry of the current phase.
	ActionUpdate
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	case ActionCreateForPhase:
		return "create-for-phase"
	case ActionUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Creates reports whether the action creates a new calendar entry.
func (a Action) Creates() bool {
	return a == ActionCreate || a == ActionCreateForPhase
}

// Decision is the outcome of Decide. Skip is set when Action is ActionSkip.
// Lookup is the stored entry's lookup and is NoID for skipped rows.
type Decision struct {
	Action Action
	Skip   *SkipError
	Lookup calendar.LookupResult
}

// LookupFunc resolves a stored entry id.
type LookupFunc func(entryID string) calendar.LookupResult

// Validate applies the row checks in order: recognized phase, required
// fields, then well-formed dates. It returns nil for a row that can be
// synced.
func Validate(row schedule.Row, phases schedule.PhaseSet) *SkipError {
	if !phases.Contains(row.Status) {
		return &SkipError{Row: row.Number, Reason: ErrUnrecognizedPhase, Detail: fmt.Sprintf("status %q", row.Status)}
	}
	if row.Company == "" || !row.Start.Set || row.Status == "" {
		return &SkipError{Row: row.Number, Reason: ErrIncompleteRow}
	}
	if !row.Start.Valid {
		return &SkipError{Row: row.Number, Reason: ErrInvalidDate, Detail: fmt.Sprintf("start %q", row.Start.Raw)}
	}
	if row.End.Set && !row.End.Valid {
		return &SkipError{Row: row.Number, Reason: ErrInvalidDate, Detail: fmt.Sprintf("end %q", row.End.Raw)}
	}
	return nil
}

// Classify picks the mutation for a valid row given the lookup of its
// stored entry id. A stored id whose entry is gone degrades to a plain
// create.
func Classify(row schedule.Row, lookup calendar.LookupResult) Action {
	if lookup.Status != calendar.LookupFound {
		return ActionCreate
	}
	if row.Status != row.PrevStatus {
		return ActionCreateForPhase
	}
	return ActionUpdate
}

// Decide validates row and classifies it. lookup is called only for a
// valid row that has a stored entry id, so a skipped row never reaches the
// calendar.
func Decide(row schedule.Row, phases schedule.PhaseSet, lookup LookupFunc) Decision {
	if skip := Validate(row, phases); skip != nil {
		return Decision{Action: ActionSkip, Skip: skip, Lookup: calendar.NoID()}
	}

	result := calendar.NoID()
	if row.EventID != "" {
		result = lookup(row.EventID)
	}
	return Decision{Action: Classify(row, result), Lookup: result}
}

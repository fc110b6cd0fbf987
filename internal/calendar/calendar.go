// Package calendar provides the calendar adapters used by the sync core.
// Both Google Calendar and CalDAV servers implement Client.
package calendar

import (
	"context"

	"github.com/zawa-kun/zawa-tools/internal/schedule"
)

// Client is a generic interface for the calendar operations the sync needs.
type Client interface {
	// Lookup fetches an entry by id. It never fails: errors and deleted
	// entries are reported as LookupNotFound.
	Lookup(ctx context.Context, calendarID, entryID string) LookupResult
	// CreateEntry creates a timed or all-day entry, depending on
	// draft.Span, with the draft's reminder attached.
	CreateEntry(ctx context.Context, calendarID string, draft *Draft) (*Entry, error)
	// UpdateEntry rewrites title, location, description and time of an
	// existing entry. Reminders are left as they are.
	UpdateEntry(ctx context.Context, calendarID string, entry *Entry, draft *Draft) error
}

// Draft is the desired state of an entry.
type Draft struct {
	Title       string
	Location    string
	Description string
	Span        schedule.Span
	// ReminderMinutes is a popup reminder this many minutes before the
	// start. Zero means no reminder.
	ReminderMinutes int
}

// Entry is a calendar entry as stored by the calendar service.
type Entry struct {
	ID              string
	Title           string
	Location        string
	Description     string
	Span            schedule.Span
	ReminderMinutes int

	// raw is the adapter's native representation, reused on update.
	raw any
}

// LookupStatus is the outcome of looking up an entry by id.
type LookupStatus int

const (
	// LookupNoID means the row has no stored entry id.
	LookupNoID LookupStatus = iota
	// LookupNotFound means the id is unknown, deleted or could not be fetched.
	LookupNotFound
	// LookupFound means the entry exists.
	LookupFound
)

// String returns a human-readable representation of the status.
func (s LookupStatus) String() string {
	switch s {
	case LookupNoID:
		return "no-id"
	case LookupNotFound:
		return "not-found"
	case LookupFound:
		return "found"
	default:
		return "unknown"
	}
}

// LookupResult carries the looked-up entry when Status is LookupFound.
type LookupResult struct {
	Status LookupStatus
	Entry  *Entry
}

// NoID is the lookup result for rows without a stored id.
func NoID() LookupResult {
	return LookupResult{Status: LookupNoID}
}

// NotFound is the lookup result for ids that do not resolve to an entry.
func NotFound() LookupResult {
	return LookupResult{Status: LookupNotFound}
}

// Found wraps an existing entry.
func Found(entry *Entry) LookupResult {
	if entry == nil {
		return NotFound()
	}
	return LookupResult{Status: LookupFound, Entry: entry}
}

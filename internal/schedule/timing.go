package schedule

import "time"

// DefaultDuration is the length of a timed entry whose end is unknown.
const DefaultDuration = time.Hour

// Span is the resolved time representation of a calendar entry.
type Span struct {
	AllDay bool
	// Start is the instant of a timed entry, or midnight of the date of an
	// all-day entry.
	Start time.Time
	// End is zero for all-day entries.
	End time.Time
}

// Date returns the start's calendar date as YYYY-MM-DD.
func (s Span) Date() string {
	return s.Start.Format("2006-01-02")
}

// Equal reports whether two spans describe the same time.
func (s Span) Equal(o Span) bool {
	return s.AllDay == o.AllDay && s.Start.Equal(o.Start) && s.End.Equal(o.End)
}

// IsAllDay reports whether an entry starting at start and ending at end is
// an all-day entry. A zero end means "no end". A start at exactly 00:00 is
// all-day even when a later end is given.
func IsAllDay(start, end time.Time) bool {
	if end.IsZero() {
		return true
	}
	return start.Hour() == 0 && start.Minute() == 0
}

// Materialize resolves start and end into the span written to the calendar.
// Timed entries without an end last DefaultDuration. Creating and updating
// an entry both go through here, so neither drops the end time.
func Materialize(start, end time.Time) Span {
	if IsAllDay(start, end) {
		y, m, d := start.Date()
		return Span{AllDay: true, Start: time.Date(y, m, d, 0, 0, 0, 0, start.Location())}
	}
	if end.IsZero() {
		end = start.Add(DefaultDuration)
	}
	return Span{Start: start, End: end}
}

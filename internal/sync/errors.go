package sync

import (
	"errors"
	"fmt"
)

// Reasons a row is skipped. None of them is fatal: the row is left as it
// is and will be looked at again on its next edit.
var (
	ErrUnrecognizedPhase = errors.New("status is not a synced phase")
	ErrIncompleteRow     = errors.New("company, start and status are required")
	ErrInvalidDate       = errors.New("start or end is not a valid date")
	ErrOutsideSchedule   = errors.New("edit is outside the schedule rows")
)

// SkipError records why a row was not synced.
type SkipError struct {
	Row    int
	Reason error
	// Detail is extra context for diagnostics, such as the bad cell text.
	Detail string
}

func (e *SkipError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("row %d skipped: %v (%s)", e.Row, e.Reason, e.Detail)
	}
	return fmt.Sprintf("row %d skipped: %v", e.Row, e.Reason)
}

func (e *SkipError) Unwrap() error {
	return e.Reason
}

// IsSkip reports whether err is a skipped row rather than a failure.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

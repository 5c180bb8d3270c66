package attendance

import "errors"

var (
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrNotCheckedIn      = errors.New("not checked in yet")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrUnknownEmployee   = errors.New("employee not found")
	ErrRecordNotFound    = errors.New("attendance record not found")
	ErrInvalidRange      = errors.New("invalid date range")
	ErrSweepDate         = errors.New("absence sweep date must be before today")

	// ErrStateChanged is returned by stores when a conditional write found the
	// row in a different state than expected.
	ErrStateChanged = errors.New("attendance state changed concurrently")
)

// IsRuleViolation reports whether err is a client-side business rule failure
// rather than an infrastructure failure.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrNotCheckedIn) ||
		errors.Is(err, ErrAlreadyCheckedOut) ||
		errors.Is(err, ErrUnknownEmployee) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrSweepDate)
}

package attendance

import (
	"strings"
	"time"
)

const (
	DefaultLateAfterHour = 8
	notesSeparator       = " | "
)

// Classify compares the wall-clock hour of the check-in against the cutoff.
// Only a strictly later hour is late, so 08:59 is still on time with cutoff 8.
func Classify(checkIn time.Time, lateAfterHour int) Status {
	if checkIn.Hour() > lateAfterHour {
		return StatusLate
	}
	return StatusPresent
}

// JoinNotes appends next to existing with a separator, skipping empty parts.
func JoinNotes(existing, next string) string {
	existing = strings.TrimSpace(existing)
	next = strings.TrimSpace(next)
	switch {
	case existing == "":
		return next
	case next == "":
		return existing
	}
	return existing + notesSeparator + next
}

func DeriveTodayStatus(rec *Record) TodayStatus {
	if rec == nil {
		return TodayStatus{CanCheckIn: true}
	}
	return TodayStatus{
		Attendance:  rec,
		CanCheckIn:  rec.CheckIn == nil,
		CanCheckOut: rec.CheckIn != nil && rec.CheckOut == nil,
	}
}

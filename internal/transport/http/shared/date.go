package shared

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Date validates an optional YYYY-MM-DD value and returns it trimmed.
func (v *Validator) Date(field, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(DateLayout, raw); err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return ""
	}
	return raw
}

// DateOrder flags an end date that precedes the start date. Both values are
// already-validated YYYY-MM-DD strings, which order lexically.
func (v *Validator) DateOrder(startField, start, endField, end string) {
	if start == "" || end == "" {
		return
	}
	if end < start {
		v.Add(startField, "must be on or before "+endField)
		v.Add(endField, "must be on or after "+startField)
	}
}

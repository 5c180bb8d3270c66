package attendance

import "time"

const DateLayout = "2006-01-02"

type Status string

const (
	StatusPresent Status = "hadir"
	StatusLate    Status = "terlambat"
	StatusAbsent  Status = "alpha"
)

var Statuses = []Status{StatusPresent, StatusLate, StatusAbsent}

type Event string

const (
	EventCheckIn  Event = "check_in"
	EventCheckOut Event = "check_out"
)

// Record is the single attendance row of one employee on one calendar date.
type Record struct {
	ID            int64      `json:"id"`
	EmployeeID    string     `json:"employee_id"`
	EmployeeName  string     `json:"employee_name,omitempty"`
	Date          string     `json:"date"`
	CheckIn       *time.Time `json:"check_in"`
	CheckOut      *time.Time `json:"check_out"`
	Status        Status     `json:"status"`
	Notes         string     `json:"notes"`
	PhotoCheckIn  string     `json:"photo_check_in,omitempty"`
	PhotoCheckOut string     `json:"photo_check_out,omitempty"`
	Location      string     `json:"location,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// EventInput carries the optional payload of a check-in or check-out.
// Photo is a base64 data URI.
type EventInput struct {
	Notes    string `json:"notes"`
	Photo    string `json:"photo"`
	Location string `json:"location"`
}

type Summary struct {
	RecordID   int64     `json:"record_id"`
	EmployeeID string    `json:"employee_id"`
	Type       Event     `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Date       string    `json:"date"`
	Status     Status    `json:"status"`
	Photo      string    `json:"photo,omitempty"`
}

type TodayStatus struct {
	Attendance  *Record `json:"attendance"`
	CanCheckIn  bool    `json:"can_check_in"`
	CanCheckOut bool    `json:"can_check_out"`
}

// RangeFilter bounds are inclusive YYYY-MM-DD dates; empty means unbounded.
type RangeFilter struct {
	StartDate string
	EndDate   string
	Limit     int
}

type StatusCounts map[Status]int

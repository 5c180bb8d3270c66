package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	// InsertCheckIn atomically creates the (employee, date) row or fills its
	// check-in if still empty. It returns ErrAlreadyCheckedIn otherwise.
	InsertCheckIn(ctx context.Context, rec Record) (Record, error)
	// CompleteCheckOut sets check-out only if check-in is set and check-out is
	// still empty, returning ErrStateChanged otherwise.
	CompleteCheckOut(ctx context.Context, rec Record) (Record, error)
	FindByEmployeeAndDate(ctx context.Context, employeeID, date string) (Record, error)
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Record, error)
	ListByDate(ctx context.Context, date string) ([]Record, error)
	ListRange(ctx context.Context, filter RangeFilter) ([]Record, error)
	CountByStatus(ctx context.Context, filter RangeFilter) (StatusCounts, error)
	// InsertAbsences adds an alpha row for every active employee created before
	// createdBefore that has no row on date.
	InsertAbsences(ctx context.Context, date string, createdBefore time.Time) (int, error)
}

// PhotoStore persists event photos and returns a public relative reference.
type PhotoStore interface {
	Save(employeeID, event, payload string, at time.Time) (string, error)
	Remove(ref string) error
}

type EmployeeDirectory interface {
	Exists(ctx context.Context, employeeID string) (bool, error)
}

// Observer is notified after every successful event.
type Observer interface {
	AttendanceRecorded(event Event, status Status)
	PhotoFailed(event Event)
}

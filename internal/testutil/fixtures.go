package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
)

// AddEmployee inserts an active employee with a known code. An empty password
// stores an unusable hash to keep tests free of bcrypt cost.
func AddEmployee(t testing.TB, store *MemStore, code, username, password string, role auth.Role) employee.Employee {
	t.Helper()
	hash := "unusable"
	if password != "" {
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			t.Fatalf("hash password: %v", err)
		}
	}
	emp, err := store.Insert(context.Background(), employee.Employee{
		EmployeeID:   code,
		Name:         "Employee " + code,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Position:     "Staff",
		Department:   "Operations",
		Active:       true,
	})
	if err != nil {
		t.Fatalf("insert employee %s: %v", code, err)
	}
	return emp
}

// Clock is a settable time source safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Package testutil provides in-memory stores that honour the same atomicity
// contracts as the PostgreSQL stores, for handler and service tests.
package testutil

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"absensi/internal/domain/attendance"
	"absensi/internal/domain/employee"
)

// MemStore implements employee.StoreAPI and attendance.StoreAPI.
type MemStore struct {
	mu        sync.Mutex
	employees []employee.Employee
	records   []attendance.Record
	nextID    int64

	// Now stamps created_at and updated_at. Defaults to time.Now.
	Now func() time.Time
	// Fail, when set, is returned by every operation.
	Fail error
}

var (
	_ employee.StoreAPI   = (*MemStore)(nil)
	_ attendance.StoreAPI = (*MemStore)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{Now: time.Now}
}

func (m *MemStore) id() int64 {
	m.nextID++
	return m.nextID
}

// Employee store.

func (m *MemStore) List(_ context.Context) ([]employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []employee.Employee{}
	for _, emp := range m.employees {
		if emp.Active {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) GetByCode(_ context.Context, code string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return employee.Employee{}, m.Fail
	}
	for _, emp := range m.employees {
		if emp.Active && emp.EmployeeID == code {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (m *MemStore) GetByUsername(_ context.Context, username string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return employee.Employee{}, m.Fail
	}
	for _, emp := range m.employees {
		if emp.Active && emp.Username == username {
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (m *MemStore) UsernameTaken(_ context.Context, username, excludeCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	return m.usernameTakenLocked(username, excludeCode), nil
}

func (m *MemStore) usernameTakenLocked(username, excludeCode string) bool {
	for _, emp := range m.employees {
		if emp.Active && emp.Username == username && emp.EmployeeID != excludeCode {
			return true
		}
	}
	return false
}

func (m *MemStore) CodeExists(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return false, m.Fail
	}
	return m.codeExistsLocked(code), nil
}

func (m *MemStore) codeExistsLocked(code string) bool {
	for _, emp := range m.employees {
		if emp.EmployeeID == code {
			return true
		}
	}
	return false
}

func (m *MemStore) HighestCode(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return "", m.Fail
	}
	highest, best := "", int64(-1)
	for _, emp := range m.employees {
		suffix, ok := strings.CutPrefix(emp.EmployeeID, prefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			continue
		}
		if n > best {
			highest, best = emp.EmployeeID, n
		}
	}
	return highest, nil
}

func (m *MemStore) Insert(_ context.Context, emp employee.Employee) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return employee.Employee{}, m.Fail
	}
	if m.usernameTakenLocked(emp.Username, "") {
		return employee.Employee{}, employee.ErrUsernameTaken
	}
	if m.codeExistsLocked(emp.EmployeeID) {
		return employee.Employee{}, employee.ErrEmployeeIDTaken
	}
	now := m.Now()
	emp.ID = m.id()
	emp.Active = true
	emp.CreatedAt = now
	emp.UpdatedAt = now
	m.employees = append(m.employees, emp)
	return emp, nil
}

func (m *MemStore) Update(_ context.Context, emp employee.Employee, passwordHash string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return employee.Employee{}, m.Fail
	}
	if m.usernameTakenLocked(emp.Username, emp.EmployeeID) {
		return employee.Employee{}, employee.ErrUsernameTaken
	}
	for i, existing := range m.employees {
		if !existing.Active || existing.EmployeeID != emp.EmployeeID {
			continue
		}
		existing.Name = emp.Name
		existing.Username = emp.Username
		existing.Role = emp.Role
		existing.Position = emp.Position
		existing.Department = emp.Department
		existing.Email = emp.Email
		existing.Phone = emp.Phone
		if passwordHash != "" {
			existing.PasswordHash = passwordHash
		}
		existing.UpdatedAt = m.Now()
		m.employees[i] = existing
		return existing, nil
	}
	return employee.Employee{}, employee.ErrNotFound
}

func (m *MemStore) Deactivate(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	for i, emp := range m.employees {
		if emp.Active && emp.EmployeeID == code {
			m.employees[i].Active = false
			m.employees[i].UpdatedAt = m.Now()
			return nil
		}
	}
	return employee.ErrNotFound
}

// Attendance store.

func (m *MemStore) InsertCheckIn(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return attendance.Record{}, m.Fail
	}
	if !m.codeExistsLocked(rec.EmployeeID) {
		return attendance.Record{}, attendance.ErrUnknownEmployee
	}
	now := m.Now()
	if i := m.recordIndexLocked(rec.EmployeeID, rec.Date); i >= 0 {
		existing := m.records[i]
		if existing.CheckIn != nil {
			return attendance.Record{}, attendance.ErrAlreadyCheckedIn
		}
		existing.CheckIn = rec.CheckIn
		existing.Status = rec.Status
		existing.Notes = rec.Notes
		existing.PhotoCheckIn = rec.PhotoCheckIn
		existing.Location = rec.Location
		existing.UpdatedAt = now
		m.records[i] = existing
		return m.withNameLocked(existing), nil
	}
	rec.ID = m.id()
	rec.CheckOut = nil
	rec.PhotoCheckOut = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records = append(m.records, rec)
	return m.withNameLocked(rec), nil
}

func (m *MemStore) CompleteCheckOut(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return attendance.Record{}, m.Fail
	}
	i := m.recordIndexLocked(rec.EmployeeID, rec.Date)
	if i < 0 || m.records[i].CheckIn == nil || m.records[i].CheckOut != nil {
		return attendance.Record{}, attendance.ErrStateChanged
	}
	existing := m.records[i]
	existing.CheckOut = rec.CheckOut
	existing.Notes = rec.Notes
	existing.Location = rec.Location
	existing.PhotoCheckOut = rec.PhotoCheckOut
	existing.UpdatedAt = m.Now()
	m.records[i] = existing
	return m.withNameLocked(existing), nil
}

func (m *MemStore) FindByEmployeeAndDate(_ context.Context, employeeID, date string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return attendance.Record{}, m.Fail
	}
	i := m.recordIndexLocked(employeeID, date)
	if i < 0 {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return m.withNameLocked(m.records[i]), nil
}

func (m *MemStore) ListByEmployee(_ context.Context, employeeID string, limit int) ([]attendance.Record, error) {
	return m.selectRecords(func(rec attendance.Record) bool { return rec.EmployeeID == employeeID }, limit)
}

func (m *MemStore) ListByDate(_ context.Context, date string) ([]attendance.Record, error) {
	return m.selectRecords(func(rec attendance.Record) bool { return rec.Date == date }, 0)
}

func (m *MemStore) ListRange(_ context.Context, filter attendance.RangeFilter) ([]attendance.Record, error) {
	return m.selectRecords(inRange(filter), filter.Limit)
}

func (m *MemStore) CountByStatus(_ context.Context, filter attendance.RangeFilter) (attendance.StatusCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	match := inRange(filter)
	counts := attendance.StatusCounts{}
	for _, rec := range m.records {
		if match(rec) {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

func (m *MemStore) InsertAbsences(_ context.Context, date string, createdBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return 0, m.Fail
	}
	now := m.Now()
	inserted := 0
	for _, emp := range m.employees {
		if !emp.Active || !emp.CreatedAt.Before(createdBefore) {
			continue
		}
		if m.recordIndexLocked(emp.EmployeeID, date) >= 0 {
			continue
		}
		m.records = append(m.records, attendance.Record{
			ID:         m.id(),
			EmployeeID: emp.EmployeeID,
			Date:       date,
			Status:     attendance.StatusAbsent,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		inserted++
	}
	return inserted, nil
}

// Records returns a snapshot of every stored attendance row.
func (m *MemStore) Records() []attendance.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attendance.Record(nil), m.records...)
}

func (m *MemStore) recordIndexLocked(employeeID, date string) int {
	for i, rec := range m.records {
		if rec.EmployeeID == employeeID && rec.Date == date {
			return i
		}
	}
	return -1
}

func (m *MemStore) withNameLocked(rec attendance.Record) attendance.Record {
	for _, emp := range m.employees {
		if emp.EmployeeID == rec.EmployeeID {
			rec.EmployeeName = emp.Name
			break
		}
	}
	return rec
}

func (m *MemStore) selectRecords(match func(attendance.Record) bool, limit int) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	out := []attendance.Record{}
	for _, rec := range m.records {
		if match(rec) {
			out = append(out, m.withNameLocked(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return checkInAfter(out[i].CheckIn, out[j].CheckIn)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// checkInAfter orders check-in descending with missing check-ins last.
func checkInAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}

func inRange(filter attendance.RangeFilter) func(attendance.Record) bool {
	return func(rec attendance.Record) bool {
		if filter.StartDate != "" && rec.Date < filter.StartDate {
			return false
		}
		if filter.EndDate != "" && rec.Date > filter.EndDate {
			return false
		}
		return true
	}
}

package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 366
	DefaultRangeLimit   = 100
	MaxRangeLimit       = 1000
)

// Service is the attendance engine and the only writer of attendance rows.
type Service struct {
	store         StoreAPI
	photos        PhotoStore
	employees     EmployeeDirectory
	observer      Observer
	loc           *time.Location
	lateAfterHour int
	now           func() time.Time
}

type Option func(*Service)

func WithPhotoStore(photos PhotoStore) Option {
	return func(s *Service) { s.photos = photos }
}

func WithEmployeeDirectory(employees EmployeeDirectory) Option {
	return func(s *Service) { s.employees = employees }
}

func WithObserver(observer Observer) Option {
	return func(s *Service) { s.observer = observer }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLateAfterHour(hour int) Option {
	return func(s *Service) { s.lateAfterHour = hour }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store StoreAPI, opts ...Option) *Service {
	s := &Service{
		store:         store,
		loc:           time.Local,
		lateAfterHour: DefaultLateAfterHour,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone calendar dates and the late cutoff are evaluated in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) current() (time.Time, string) {
	now := s.now().In(s.loc)
	return now, now.Format(DateLayout)
}

// Today returns the current calendar date in the configured location.
func (s *Service) Today() string {
	_, today := s.current()
	return today
}

func (s *Service) CheckIn(ctx context.Context, employeeID string, in EventInput) (Summary, error) {
	now, today := s.current()
	if err := s.ensureEmployee(ctx, employeeID); err != nil {
		return Summary{}, err
	}

	// Fast path for the common duplicate; the insert below stays authoritative.
	existing, err := s.store.FindByEmployeeAndDate(ctx, employeeID, today)
	switch {
	case err == nil && existing.CheckIn != nil:
		return Summary{}, ErrAlreadyCheckedIn
	case err != nil && !errors.Is(err, ErrRecordNotFound):
		return Summary{}, fmt.Errorf("load today's attendance: %w", err)
	}

	status := Classify(now, s.lateAfterHour)
	photo := s.savePhoto(employeeID, EventCheckIn, in.Photo, now)

	rec, err := s.store.InsertCheckIn(ctx, Record{
		EmployeeID:   employeeID,
		Date:         today,
		CheckIn:      &now,
		Status:       status,
		Notes:        strings.TrimSpace(in.Notes),
		PhotoCheckIn: photo,
		Location:     strings.TrimSpace(in.Location),
	})
	if err != nil {
		s.discardPhoto(photo)
		if IsRuleViolation(err) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("record check-in: %w", err)
	}

	if s.observer != nil {
		s.observer.AttendanceRecorded(EventCheckIn, rec.Status)
	}
	return Summary{
		RecordID:   rec.ID,
		EmployeeID: employeeID,
		Type:       EventCheckIn,
		Timestamp:  now,
		Date:       today,
		Status:     rec.Status,
		Photo:      photo,
	}, nil
}

func (s *Service) CheckOut(ctx context.Context, employeeID string, in EventInput) (Summary, error) {
	now, today := s.current()

	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, today)
	if errors.Is(err, ErrRecordNotFound) {
		return Summary{}, ErrNotCheckedIn
	}
	if err != nil {
		return Summary{}, fmt.Errorf("load today's attendance: %w", err)
	}
	if rec.CheckIn == nil {
		return Summary{}, ErrNotCheckedIn
	}
	if rec.CheckOut != nil {
		return Summary{}, ErrAlreadyCheckedOut
	}

	photo := s.savePhoto(employeeID, EventCheckOut, in.Photo, now)

	rec.CheckOut = &now
	rec.Notes = JoinNotes(rec.Notes, in.Notes)
	rec.Location = JoinNotes(rec.Location, in.Location)
	rec.PhotoCheckOut = photo

	updated, err := s.store.CompleteCheckOut(ctx, rec)
	if err != nil {
		s.discardPhoto(photo)
		if errors.Is(err, ErrStateChanged) {
			return Summary{}, ErrAlreadyCheckedOut
		}
		return Summary{}, fmt.Errorf("record check-out: %w", err)
	}

	if s.observer != nil {
		s.observer.AttendanceRecorded(EventCheckOut, updated.Status)
	}
	return Summary{
		RecordID:   updated.ID,
		EmployeeID: employeeID,
		Type:       EventCheckOut,
		Timestamp:  now,
		Date:       today,
		Status:     updated.Status,
		Photo:      photo,
	}, nil
}

func (s *Service) TodayStatus(ctx context.Context, employeeID string) (TodayStatus, error) {
	_, today := s.current()
	rec, err := s.store.FindByEmployeeAndDate(ctx, employeeID, today)
	if errors.Is(err, ErrRecordNotFound) {
		return DeriveTodayStatus(nil), nil
	}
	if err != nil {
		return TodayStatus{}, err
	}
	return DeriveTodayStatus(&rec), nil
}

func (s *Service) History(ctx context.Context, employeeID string, limit int) ([]Record, error) {
	return s.store.ListByEmployee(ctx, employeeID, clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit))
}

func (s *Service) TodayAll(ctx context.Context) ([]Record, error) {
	_, today := s.current()
	return s.store.ListByDate(ctx, today)
}

func (s *Service) Range(ctx context.Context, filter RangeFilter) ([]Record, error) {
	filter, err := normalizeRange(filter)
	if err != nil {
		return nil, err
	}
	filter.Limit = clampLimit(filter.Limit, DefaultRangeLimit, MaxRangeLimit)
	return s.store.ListRange(ctx, filter)
}

func (s *Service) Summary(ctx context.Context, filter RangeFilter) (StatusCounts, error) {
	filter, err := normalizeRange(filter)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, status := range Statuses {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}

// SweepAbsences marks every active employee without a record on date as alpha.
// Only past dates are accepted so that today's check-ins are never pre-empted.
func (s *Service) SweepAbsences(ctx context.Context, date string) (int, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), s.loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	_, today := s.current()
	if day.Format(DateLayout) >= today {
		return 0, ErrSweepDate
	}
	// The next local midnight bounds employment, independent of the database session zone.
	return s.store.InsertAbsences(ctx, day.Format(DateLayout), day.AddDate(0, 0, 1))
}

// Yesterday is the default target of the scheduled absence sweep.
func (s *Service) Yesterday() string {
	now, _ := s.current()
	return now.AddDate(0, 0, -1).Format(DateLayout)
}

func (s *Service) ensureEmployee(ctx context.Context, employeeID string) error {
	if s.employees == nil {
		return nil
	}
	ok, err := s.employees.Exists(ctx, employeeID)
	if err != nil {
		return fmt.Errorf("check employee: %w", err)
	}
	if !ok {
		return ErrUnknownEmployee
	}
	return nil
}

// savePhoto is best-effort: a failure is logged and the event is recorded without a photo.
func (s *Service) savePhoto(employeeID string, event Event, payload string, at time.Time) string {
	if s.photos == nil || strings.TrimSpace(payload) == "" {
		return ""
	}
	ref, err := s.photos.Save(employeeID, string(event), payload, at)
	if err != nil {
		slog.Warn("attendance photo not saved", "employeeId", employeeID, "event", event, "err", err)
		if s.observer != nil {
			s.observer.PhotoFailed(event)
		}
		return ""
	}
	return ref
}

func (s *Service) discardPhoto(ref string) {
	if ref == "" || s.photos == nil {
		return
	}
	if err := s.photos.Remove(ref); err != nil {
		slog.Warn("orphan attendance photo not removed", "photo", ref, "err", err)
	}
}

func normalizeRange(filter RangeFilter) (RangeFilter, error) {
	filter.StartDate = strings.TrimSpace(filter.StartDate)
	filter.EndDate = strings.TrimSpace(filter.EndDate)
	var start, end time.Time
	var err error
	if filter.StartDate != "" {
		if start, err = time.Parse(DateLayout, filter.StartDate); err != nil {
			return filter, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidRange)
		}
	}
	if filter.EndDate != "" {
		if end, err = time.Parse(DateLayout, filter.EndDate); err != nil {
			return filter, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidRange)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return filter, fmt.Errorf("%w: end_date is before start_date", ErrInvalidRange)
	}
	return filter, nil
}

func clampLimit(limit, fallback, maxLimit int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

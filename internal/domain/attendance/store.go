package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const recordColumns = `a.id, a.employee_id, e.name, to_char(a.date, 'YYYY-MM-DD'), a.check_in, a.check_out, a.status,
       COALESCE(a.notes, ''), COALESCE(a.photo_check_in, ''), COALESCE(a.photo_check_out, ''),
       COALESCE(a.location, ''), a.created_at, a.updated_at`

const recordJoin = `JOIN employees e ON e.employee_id = a.employee_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.Date, &rec.CheckIn, &rec.CheckOut, &status,
		&rec.Notes, &rec.PhotoCheckIn, &rec.PhotoCheckOut, &rec.Location, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) InsertCheckIn(ctx context.Context, rec Record) (Record, error) {
	written, err := scanRecord(s.DB.QueryRow(ctx, `
    WITH written AS (
      INSERT INTO attendance (employee_id, date, check_in, status, notes, photo_check_in, location)
      VALUES ($1, $2::date, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
      ON CONFLICT (employee_id, date) DO UPDATE
      SET check_in = EXCLUDED.check_in,
          status = EXCLUDED.status,
          notes = EXCLUDED.notes,
          photo_check_in = EXCLUDED.photo_check_in,
          location = EXCLUDED.location,
          updated_at = now()
      WHERE attendance.check_in IS NULL
      RETURNING *
    )
    SELECT `+recordColumns+`
    FROM written a
    `+recordJoin,
		rec.EmployeeID, rec.Date, rec.CheckIn, string(rec.Status), rec.Notes, rec.PhotoCheckIn, rec.Location,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrAlreadyCheckedIn
	}
	if err != nil {
		return Record{}, mapWriteError(err)
	}
	return written, nil
}

func (s *Store) CompleteCheckOut(ctx context.Context, rec Record) (Record, error) {
	written, err := scanRecord(s.DB.QueryRow(ctx, `
    WITH written AS (
      UPDATE attendance
      SET check_out = $3,
          notes = NULLIF($4, ''),
          location = NULLIF($5, ''),
          photo_check_out = NULLIF($6, ''),
          updated_at = now()
      WHERE employee_id = $1 AND date = $2::date AND check_in IS NOT NULL AND check_out IS NULL
      RETURNING *
    )
    SELECT `+recordColumns+`
    FROM written a
    `+recordJoin,
		rec.EmployeeID, rec.Date, rec.CheckOut, rec.Notes, rec.Location, rec.PhotoCheckOut,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrStateChanged
	}
	if err != nil {
		return Record{}, err
	}
	return written, nil
}

func (s *Store) FindByEmployeeAndDate(ctx context.Context, employeeID, date string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance a
    `+recordJoin+`
    WHERE a.employee_id = $1 AND a.date = $2::date
  `, employeeID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance a
    `+recordJoin+`
    WHERE a.employee_id = $1
    ORDER BY a.date DESC
    LIMIT $2
  `, employeeID, limit)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (s *Store) ListByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance a
    `+recordJoin+`
    WHERE a.date = $1::date
    ORDER BY a.check_in DESC NULLS LAST
  `, date)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (s *Store) ListRange(ctx context.Context, filter RangeFilter) ([]Record, error) {
	where, args := rangeClause(filter)
	args = append(args, filter.Limit)
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance a
    `+recordJoin+`
    `+where+`
    ORDER BY a.date DESC, a.check_in DESC NULLS LAST
    LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	return collectRecords(rows)
}

func (s *Store) CountByStatus(ctx context.Context, filter RangeFilter) (StatusCounts, error) {
	where, args := rangeClause(filter)
	rows, err := s.DB.Query(ctx, `
    SELECT a.status, COUNT(1)
    FROM attendance a
    `+where+`
    GROUP BY a.status
  `, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func (s *Store) InsertAbsences(ctx context.Context, date string, createdBefore time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO attendance (employee_id, date, status)
    SELECT e.employee_id, $1::date, $2
    FROM employees e
    WHERE e.is_active AND e.created_at < $3
    ON CONFLICT (employee_id, date) DO NOTHING
  `, date, string(StatusAbsent), createdBefore)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func rangeClause(filter RangeFilter) (string, []any) {
	var conditions []string
	var args []any
	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("a.date >= $%d::date", len(args)))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("a.date <= $%d::date", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return ErrAlreadyCheckedIn
	case foreignKeyViolation:
		return ErrUnknownEmployee
	}
	return err
}

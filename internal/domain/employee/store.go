package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"absensi/internal/domain/auth"
)

const uniqueViolation = "23505"

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `id, employee_id, name, username, password_hash, role, position, department,
       COALESCE(email, ''), COALESCE(phone, ''), is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var emp Employee
	var role string
	if err := row.Scan(
		&emp.ID, &emp.EmployeeID, &emp.Name, &emp.Username, &emp.PasswordHash, &role,
		&emp.Position, &emp.Department, &emp.Email, &emp.Phone, &emp.Active, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	parsed, err := auth.ParseRole(role)
	if err != nil {
		return Employee{}, err
	}
	emp.Role = parsed
	return emp, nil
}

func (s *Store) List(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE is_active
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := []Employee{}
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (s *Store) GetByCode(ctx context.Context, code string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE employee_id = $1 AND is_active
  `, code))
}

func (s *Store) GetByUsername(ctx context.Context, username string) (Employee, error) {
	return scanEmployee(s.DB.QueryRow(ctx, `
    SELECT `+employeeColumns+`
    FROM employees
    WHERE username = $1 AND is_active
  `, username))
}

func (s *Store) UsernameTaken(ctx context.Context, username, excludeCode string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE username = $1 AND is_active AND employee_id <> $2
  `, username, excludeCode).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE employee_id = $1", code).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// HighestCode compares numerically so that EMP1000 sorts after EMP999.
// Inactive employees are included because codes are never reused.
func (s *Store) HighestCode(ctx context.Context, prefix string) (string, error) {
	var code string
	err := s.DB.QueryRow(ctx, `
    SELECT employee_id
    FROM employees
    WHERE employee_id ~ ('^' || $1 || '[0-9]+$')
    ORDER BY CAST(SUBSTRING(employee_id FROM LENGTH($1) + 1) AS BIGINT) DESC
    LIMIT 1
  `, prefix).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *Store) Insert(ctx context.Context, emp Employee) (Employee, error) {
	created, err := scanEmployee(s.DB.QueryRow(ctx, `
    INSERT INTO employees (employee_id, name, username, password_hash, role, position, department, email, phone)
    VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, ''),NULLIF($9, ''))
    RETURNING `+employeeColumns,
		emp.EmployeeID, emp.Name, emp.Username, emp.PasswordHash, emp.Role.String(),
		emp.Position, emp.Department, emp.Email, emp.Phone,
	))
	if err != nil {
		return Employee{}, mapUniqueViolation(err)
	}
	return created, nil
}

func (s *Store) Update(ctx context.Context, emp Employee, passwordHash string) (Employee, error) {
	updated, err := scanEmployee(s.DB.QueryRow(ctx, `
    UPDATE employees
    SET name = $2,
        username = $3,
        role = $4,
        position = $5,
        department = $6,
        email = NULLIF($7, ''),
        phone = NULLIF($8, ''),
        password_hash = COALESCE(NULLIF($9, ''), password_hash),
        updated_at = now()
    WHERE employee_id = $1 AND is_active
    RETURNING `+employeeColumns,
		emp.EmployeeID, emp.Name, emp.Username, emp.Role.String(),
		emp.Position, emp.Department, emp.Email, emp.Phone, passwordHash,
	))
	if err != nil {
		return Employee{}, mapUniqueViolation(err)
	}
	return updated, nil
}

func (s *Store) Deactivate(ctx context.Context, code string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET is_active = false, updated_at = now()
    WHERE employee_id = $1 AND is_active
  `, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "username") {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, pgErr.ConstraintName)
	}
	return fmt.Errorf("%w: %s", ErrEmployeeIDTaken, pgErr.ConstraintName)
}

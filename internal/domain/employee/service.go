package employee

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"absensi/internal/domain/auth"
)

// Service is the sole writer of employee rows.
type Service struct {
	store StoreAPI
	hash  func(string) (string, error)
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, hash: auth.HashPassword}
}

func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, code string) (Employee, error) {
	if !ValidCode(code) {
		return Employee{}, ErrNotFound
	}
	return s.store.GetByCode(ctx, code)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (Employee, error) {
	return s.store.GetByUsername(ctx, strings.TrimSpace(username))
}

// Exists reports whether an active employee with the given code exists.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	_, err := s.Get(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Employee, error) {
	in = normalizeCreate(in)
	if err := requireFields(map[string]string{
		"name":       in.Name,
		"username":   in.Username,
		"password":   in.Password,
		"position":   in.Position,
		"department": in.Department,
	}); err != nil {
		return Employee{}, err
	}

	role := auth.RoleEmployee
	if in.Role != "" {
		parsed, err := auth.ParseRole(in.Role)
		if err != nil {
			return Employee{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		role = parsed
	}

	taken, err := s.store.UsernameTaken(ctx, in.Username, "")
	if err != nil {
		return Employee{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return Employee{}, ErrUsernameTaken
	}

	highest, err := s.store.HighestCode(ctx, EmployeeCodePrefix)
	if err != nil {
		return Employee{}, fmt.Errorf("load highest employee id: %w", err)
	}
	code, err := NextEmployeeCode(highest)
	if err != nil {
		return Employee{}, err
	}
	exists, err := s.store.CodeExists(ctx, code)
	if err != nil {
		return Employee{}, fmt.Errorf("check employee id: %w", err)
	}
	if exists {
		return Employee{}, ErrEmployeeIDTaken
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return Employee{}, fmt.Errorf("hash password: %w", err)
	}

	return s.store.Insert(ctx, Employee{
		EmployeeID:   code,
		Name:         in.Name,
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		Position:     in.Position,
		Department:   in.Department,
		Email:        in.Email,
		Phone:        in.Phone,
		Active:       true,
	})
}

func (s *Service) Update(ctx context.Context, code string, in UpdateInput) (Employee, error) {
	in = normalizeUpdate(in)
	if err := requireFields(map[string]string{
		"name":       in.Name,
		"username":   in.Username,
		"position":   in.Position,
		"department": in.Department,
	}); err != nil {
		return Employee{}, err
	}

	existing, err := s.Get(ctx, code)
	if err != nil {
		return Employee{}, err
	}

	role := existing.Role
	if in.Role != "" {
		parsed, err := auth.ParseRole(in.Role)
		if err != nil {
			return Employee{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		role = parsed
	}

	taken, err := s.store.UsernameTaken(ctx, in.Username, existing.EmployeeID)
	if err != nil {
		return Employee{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return Employee{}, ErrUsernameTaken
	}

	passwordHash := ""
	if in.Password != "" {
		passwordHash, err = s.hash(in.Password)
		if err != nil {
			return Employee{}, fmt.Errorf("hash password: %w", err)
		}
	}

	existing.Name = in.Name
	existing.Username = in.Username
	existing.Role = role
	existing.Position = in.Position
	existing.Department = in.Department
	existing.Email = in.Email
	existing.Phone = in.Phone
	return s.store.Update(ctx, existing, passwordHash)
}

// Delete deactivates the employee. Attendance history keeps referencing the code.
func (s *Service) Delete(ctx context.Context, code string) error {
	existing, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if existing.Role == auth.RoleAdmin {
		return ErrProtectedAdmin
	}
	return s.store.Deactivate(ctx, existing.EmployeeID)
}

func (s *Service) AccountByUsername(ctx context.Context, username string) (auth.Account, error) {
	emp, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	if err != nil {
		return auth.Account{}, err
	}
	return emp.Account(), nil
}

func (s *Service) AccountByEmployeeID(ctx context.Context, employeeID string) (auth.Account, error) {
	emp, err := s.Get(ctx, employeeID)
	if errors.Is(err, ErrNotFound) {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	if err != nil {
		return auth.Account{}, err
	}
	return emp.Account(), nil
}

func normalizeCreate(in CreateInput) CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.TrimSpace(in.Role)
	in.Position = strings.TrimSpace(in.Position)
	in.Department = strings.TrimSpace(in.Department)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func normalizeUpdate(in UpdateInput) UpdateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.TrimSpace(in.Role)
	in.Position = strings.TrimSpace(in.Position)
	in.Department = strings.TrimSpace(in.Department)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
}

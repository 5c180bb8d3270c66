package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account is the credential view of an active employee.
type Account struct {
	EmployeeID   string
	Username     string
	Name         string
	Role         Role
	PasswordHash string
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	EmployeeID string `json:"employee_id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Role       Role   `json:"role"`
}

// AccountLookup resolves active accounts. Implementations return ErrAccountNotFound
// for unknown or inactive employees.
type AccountLookup interface {
	AccountByUsername(ctx context.Context, username string) (Account, error)
	AccountByEmployeeID(ctx context.Context, employeeID string) (Account, error)
}

type Service struct {
	accounts AccountLookup
	secret   string
	ttl      time.Duration
	now      func() time.Time
}

func NewService(accounts AccountLookup, secret string, ttl time.Duration) *Service {
	return &Service{accounts: accounts, secret: secret, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source used for token issuance.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Login fails with ErrInvalidCredentials for both unknown usernames and wrong passwords.
func (s *Service) Login(ctx context.Context, username, password string) (string, Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", Principal{}, ErrInvalidCredentials
	}

	account, err := s.accounts.AccountByUsername(ctx, username)
	if errors.Is(err, ErrAccountNotFound) {
		return "", Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", Principal{}, fmt.Errorf("lookup account: %w", err)
	}
	if err := CheckPassword(account.PasswordHash, password); err != nil {
		return "", Principal{}, ErrInvalidCredentials
	}

	principal := account.Principal()
	token, err := generateTokenAt(s.secret, Claims{
		EmployeeID: principal.EmployeeID,
		Username:   principal.Username,
		Name:       principal.Name,
		Role:       principal.Role,
	}, s.ttl, s.now())
	if err != nil {
		return "", Principal{}, fmt.Errorf("issue token: %w", err)
	}
	return token, principal, nil
}

// Authenticate verifies the token and re-resolves the employee so that
// deactivation revokes access for tokens that have not expired yet.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := ParseToken(s.secret, token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	account, err := s.accounts.AccountByEmployeeID(ctx, claims.EmployeeID)
	if errors.Is(err, ErrAccountNotFound) {
		return Principal{}, ErrAccountInactive
	}
	if err != nil {
		return Principal{}, fmt.Errorf("lookup account: %w", err)
	}
	return account.Principal(), nil
}

func Authorize(p Principal, required Role) error {
	if !p.Role.Allows(required) {
		return ErrForbidden
	}
	return nil
}

func (a Account) Principal() Principal {
	return Principal{EmployeeID: a.EmployeeID, Username: a.Username, Name: a.Name, Role: a.Role}
}

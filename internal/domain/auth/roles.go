package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles an employee can hold.
type Role int

const (
	RoleEmployee Role = iota + 1
	RoleAdmin
)

const (
	roleNameEmployee = "employee"
	roleNameAdmin    = "admin"
)

var Roles = []Role{RoleEmployee, RoleAdmin}

func ParseRole(value string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case roleNameEmployee:
		return RoleEmployee, nil
	case roleNameAdmin:
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, value)
}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return roleNameEmployee
	case RoleAdmin:
		return roleNameAdmin
	}
	return "unknown"
}

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// Allows reports whether a holder of r may call an endpoint that requires role required.
func (r Role) Allows(required Role) bool {
	switch required {
	case RoleEmployee:
		return r.Valid()
	case RoleAdmin:
		return r == RoleAdmin
	}
	return false
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

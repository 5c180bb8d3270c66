package employee

import (
	"time"

	"absensi/internal/domain/auth"
)

type Employee struct {
	ID           int64     `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	Position     string    `json:"position"`
	Department   string    `json:"department"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateInput struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Position   string `json:"position"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// UpdateInput leaves the password untouched when Password is empty and the
// role untouched when Role is empty.
type UpdateInput struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Position   string `json:"position"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

func (e Employee) Account() auth.Account {
	return auth.Account{
		EmployeeID:   e.EmployeeID,
		Username:     e.Username,
		Name:         e.Name,
		Role:         e.Role,
		PasswordHash: e.PasswordHash,
	}
}

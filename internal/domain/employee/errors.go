package employee

import "errors"

var (
	ErrNotFound        = errors.New("employee not found")
	ErrUsernameTaken   = errors.New("username already in use")
	ErrEmployeeIDTaken = errors.New("employee id already in use")
	ErrProtectedAdmin  = errors.New("admin accounts cannot be deleted")
	ErrInvalidInput    = errors.New("invalid employee input")
	ErrInvalidCode     = errors.New("invalid employee id")
)

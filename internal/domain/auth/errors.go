package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountInactive    = errors.New("employee no longer exists or is inactive")
	ErrForbidden          = errors.New("insufficient role")
	ErrUnknownRole        = errors.New("unknown role")
)

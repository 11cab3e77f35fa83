package service

import (
	"errors"

	"firesafety/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("admin access required")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	// ErrConflict aliases the repository error so callers match one value
	ErrConflict = repository.ErrConflict
)

// Caller is the identity an operation runs as. The auth layer fills it in;
// services trust the flag.
type Caller struct {
	UserID  int64
	IsAdmin bool
}

func (c Caller) requireAdmin() error {
	if !c.IsAdmin {
		return ErrUnauthorized
	}
	return nil
}

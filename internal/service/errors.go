package service

import (
	"errors"
	"fmt"

	"parasite-blog/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	// Unknown emails and wrong passwords both map to it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller may not act on the target resource.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation wraps malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUserAlreadyExists is returned when registering with an email already in use.
	ErrUserAlreadyExists = fmt.Errorf("user already exists: %w", repository.ErrConflict)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

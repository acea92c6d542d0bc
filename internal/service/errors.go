package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every input validation failure
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped by state-machine and uniqueness violations
	ErrConflict = errors.New("conflict")

	ErrInvalidKm            = fmt.Errorf("%w: invalid km", ErrValidation)
	ErrVehicleRequired      = fmt.Errorf("%w: km_based costs require a vehicle", ErrValidation)
	ErrInactiveApp          = fmt.Errorf("%w: app is inactive", ErrValidation)
	ErrSessionAlreadyActive = fmt.Errorf("%w: a tracking session is already active", ErrConflict)
	ErrNoActiveSession      = fmt.Errorf("%w: no tracking session in progress", ErrConflict)
	ErrSessionNotActive     = fmt.Errorf("%w: tracking session is not active", ErrConflict)
	ErrSessionNotPaused     = fmt.Errorf("%w: tracking session is not paused", ErrConflict)
	ErrDuplicateName        = fmt.Errorf("%w: name already in use", ErrConflict)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

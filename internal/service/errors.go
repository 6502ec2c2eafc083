package service

import (
	"errors"
	"fmt"

	"Mansoor88-6/process-tracker/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError carries a message safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AccountStatusError is returned when a non-approved account tries to use the system.
type AccountStatusError struct {
	Status string
}

func (e *AccountStatusError) Error() string {
	return fmt.Sprintf("account is %s", e.Status)
}

// translate maps repository sentinels onto service sentinels, keeping the message.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

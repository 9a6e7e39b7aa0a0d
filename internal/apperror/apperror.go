package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrStorage    = errors.New("storage error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, detail),
	}
}

// AuthFailed returns the deliberately vague credential-mismatch error.
// The same message covers "no such user" and "wrong password" so a caller
// cannot enumerate registered emails.
func AuthFailed() *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: "invalid email or password",
	}
}

// Storage wraps an underlying store failure. Fatal to the operation,
// not to the process.
func Storage(op string, err error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("storage failure during %s: %v", op, err),
	}
}

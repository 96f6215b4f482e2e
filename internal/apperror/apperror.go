// Package apperror defines the error taxonomy shared by the service and HTTP layers.
//
// Services return *AppError values that wrap one of the sentinel errors below.
// Handlers never inspect messages; they match the sentinel with errors.Is and
// map it to a status code (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence failure")
)

// GenericFailureMessage is what callers see for any persistence failure.
// Transient and permanent failures are not distinguished.
const GenericFailureMessage = "something went wrong, please try again"

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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials is returned when a login lookup finds no matching actor.
// The message is the same whether the username or the password was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid credentials",
	}
}

// UsernameTaken is a conflict raised by registration with a duplicate username.
func UsernameTaken(username string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("username %q already exists", username),
		Field:   "username",
	}
}

// PersistenceFailure wraps a store error that happened during op.
//
// Both ErrPersistence and cause stay reachable through errors.Is, so a
// caller can still tell e.g. a NotFound from a driver error if it cares to.
func PersistenceFailure(op string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%s: %w: %w", op, ErrPersistence, cause),
		Message: GenericFailureMessage,
	}
}

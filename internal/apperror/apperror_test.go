package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	driverErr := errors.New("disk I/O error")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("report", "7"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("imagePath", "capture a photo first"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "UsernameTaken is a conflict",
			err:       UsernameTaken("alice"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials is unauthorized",
			err:       InvalidCredentials(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "PersistenceFailure wraps ErrPersistence",
			err:       PersistenceFailure("resolving report", driverErr),
			target:    ErrPersistence,
			wantMatch: true,
		},
		{
			name:      "PersistenceFailure keeps the cause",
			err:       PersistenceFailure("resolving report", driverErr),
			target:    driverErr,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("report", "7"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "UsernameTaken does NOT match ErrUnauthorized",
			err:       UsernameTaken("alice"),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("report", "7"),
			wantMessage: "report not found with id 7",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("report", "7"),
			wantMessage: "report conflict with id 7",
		},
		{
			name:        "UsernameTaken names the username",
			err:         UsernameTaken("alice"),
			wantMessage: `username "alice" already exists`,
		},
		{
			name:        "PersistenceFailure hides the cause",
			err:         PersistenceFailure("saving report", errors.New("database is locked")),
			wantMessage: GenericFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("report", "7")
	unwrapped := err.Unwrap()

	if unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestFieldIsSet(t *testing.T) {
	if err := ValidationFailed("latitude", "latitude is required"); err.Field != "latitude" {
		t.Errorf("Field = %q, want %q", err.Field, "latitude")
	}
	if err := UsernameTaken("bob"); err.Field != "username" {
		t.Errorf("Field = %q, want %q", err.Field, "username")
	}
}

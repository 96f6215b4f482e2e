package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/trashwatch/internal/apperror"
	"github.com/sakif/trashwatch/internal/auth"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/service"
	"github.com/sakif/trashwatch/internal/session"
)

// maxJSONBody caps request bodies that are decoded as JSON.
const maxJSONBody = 64 << 10

// validate checks request shapes. Field names in errors use the json tag so
// they match what the client sent.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// decodeJSON reads a JSON body into dst and validates it.
// Unknown fields are rejected so typos don't pass silently.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "request body is required")
		}
		return apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.ValidationFailed(fe.Field(), describe(fe))
	}
	return apperror.ValidationFailed("", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// currentActor resolves the session named by the request's token and the
// actor signed in to it. Routes behind auth.RequireAuth use it.
func currentActor(r *http.Request, authSvc *service.AuthService) (*session.Session, *model.User, error) {
	sessionID, ok := auth.SessionIDFromContext(r.Context())
	if !ok {
		return nil, nil, &apperror.AppError{Err: apperror.ErrUnauthorized, Message: "valid authentication required"}
	}
	return authSvc.Current(sessionID)
}

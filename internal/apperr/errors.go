// Package apperr defines the error taxonomy shared by the vote core and its HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels returned by store implementations.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("write conflict")
)

// Type is the category of an error.
type Type string

const (
	TypeInvalidArgument  Type = "invalid_argument"
	TypeUnauthenticated  Type = "unauthenticated"
	TypePermissionDenied Type = "permission_denied"
	TypeNotFound         Type = "not_found"
	TypeConflict         Type = "conflict"
	TypeInternal         Type = "internal"
)

// Error is a structured error with a type, a client-safe message and an optional cause.
type Error struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeInvalidArgument:
		return http.StatusBadRequest
	case TypeUnauthenticated:
		return http.StatusUnauthorized
	case TypePermissionDenied:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithField adds a context field (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func InvalidArgument(message string) *Error {
	return &Error{Type: TypeInvalidArgument, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Type: TypeUnauthenticated, Message: message}
}

func PermissionDenied(message string) *Error {
	return &Error{Type: TypePermissionDenied, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message}
}

func Conflict(message string, cause error) *Error {
	return &Error{Type: TypeConflict, Message: message, Cause: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause}
}

// Response is the JSON body sent to clients.
type Response struct {
	Error   string         `json:"error"`
	Type    Type           `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts e to its client representation. Internal causes are never exposed.
func (e *Error) ToResponse() Response {
	return Response{Error: e.Message, Type: e.Type, Context: e.Context}
}

// As converts any error into a structured Error, wrapping unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// IsType reports whether err is a structured Error of type t.
func IsType(err error, t Type) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == t
}

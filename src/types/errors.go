package types

import (
	"errors"
	"net/http"
)

type ErrorKind string

const (
	ERR_VALIDATION    ErrorKind = "ValidationError"
	ERR_CONFLICT      ErrorKind = "ConflictError"
	ERR_NOT_FOUND     ErrorKind = "NotFoundError"
	ERR_AUTHORIZATION ErrorKind = "AuthorizationError"
)

// AppError is the typed result the core returns instead of letting raw
// errors escape the component boundary. Code is a stable machine tag
// ("NoAvailability", "NotPending", ...); Message is for humans.
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(code string, message string) *AppError {
	return &AppError{Kind: ERR_VALIDATION, Code: code, Message: message}
}

func NewConflictError(code string, message string) *AppError {
	return &AppError{Kind: ERR_CONFLICT, Code: code, Message: message}
}

func NewNotFoundError(code string, message string) *AppError {
	return &AppError{Kind: ERR_NOT_FOUND, Code: code, Message: message}
}

func NewAuthorizationError(code string, message string) *AppError {
	return &AppError{Kind: ERR_AUTHORIZATION, Code: code, Message: message}
}

// HTTPStatus maps a core error to a transport status. Untyped errors map to
// 500 so storage failures are never mistaken for client mistakes.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case ERR_VALIDATION:
		return http.StatusBadRequest
	case ERR_AUTHORIZATION:
		return http.StatusForbidden
	case ERR_NOT_FOUND:
		return http.StatusNotFound
	case ERR_CONFLICT:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ErrorCode extracts the machine tag from a core error, empty for untyped
// errors.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
	ErrDependency   = errors.New("dependency failure")
	ErrInternal     = errors.New("internal error")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
)

// FieldError is a single client-fixable validation failure.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
	Fields     []FieldError
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func ValidationError(fields ...FieldError) *AppError {
	return &AppError{
		Err:        ErrInvalidInput,
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Fields:     fields,
	}
}

func ConflictError(field, message string) *AppError {
	appErr := &AppError{
		Err:        ErrDuplicateKey,
		Message:    message,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
	}
	if field != "" {
		appErr.Fields = []FieldError{{Field: field, Error: message}}
	}
	return appErr
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    resource + " not found",
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
	}
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
	}
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		StatusCode: http.StatusForbidden,
		Code:       "FORBIDDEN",
	}
}

func DuplicateError(field string) *AppError {
	return ConflictError(field, field+" already exists")
}

// DependencyError wraps a failure of a downstream collaborator (mail, broker, cache).
func DependencyError(dependency string, err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrDependency, err),
		Message:    dependency + " is unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Code:       "DEPENDENCY_ERROR",
	}
}

// NameNotFound turns a bare ErrNotFound into a NotFoundError for resource.
// Other errors, including already classified ones, pass through.
func NameNotFound(err error, resource string) error {
	if errors.Is(err, ErrNotFound) && !IsAppError(err) {
		return NotFoundError(resource)
	}
	return err
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

// ToAppError classifies any error into the taxonomy. Unknown errors become
// internal errors that keep the original cause for diagnostics.
func ToAppError(err error) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError("resource")
	case errors.Is(err, ErrDuplicateKey):
		return ConflictError("", "resource already exists")
	case errors.Is(err, ErrTokenExpired):
		return TokenExpiredError()
	case errors.Is(err, ErrTokenRevoked):
		return TokenRevokedError()
	case errors.Is(err, ErrTokenInvalid):
		return TokenInvalidError()
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("")
	case errors.Is(err, ErrInvalidInput):
		return &AppError{
			Err:        err,
			Message:    "invalid input",
			StatusCode: http.StatusBadRequest,
			Code:       "INVALID_INPUT",
		}
	case errors.Is(err, ErrDependency):
		return &AppError{
			Err:        err,
			Message:    "a downstream service is unavailable",
			StatusCode: http.StatusServiceUnavailable,
			Code:       "DEPENDENCY_ERROR",
		}
	}

	return &AppError{
		Err:        errors.Join(ErrInternal, err),
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
	}
}

// AngelaMos | 2026
// response.go

package core

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Response is the envelope every endpoint writes.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Error      any    `json:"error,omitempty"`
}

type PagedResponse struct {
	StatusCode   int    `json:"statusCode"`
	Message      string `json:"message"`
	Data         any    `json:"data"`
	TotalItems   int    `json:"totalItems"`
	CurrentPage  int    `json:"currentPage"`
	ItemsPerPage int    `json:"itemsPerPage"`
}

type errorDetail struct {
	Code   string       `json:"code"`
	Fields []FieldError `json:"fields,omitempty"`
	Cause  string       `json:"cause,omitempty"`
}

var exposeErrorCause atomic.Bool

func init() {
	exposeErrorCause.Store(true)
}

// SetExposeErrorCause controls whether internal causes reach the client.
// It is switched off in production.
func SetExposeErrorCause(expose bool) {
	exposeErrorCause.Store(expose)
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Response{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
	})
}

func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Response{
		StatusCode: http.StatusCreated,
		Message:    message,
		Data:       data,
	})
}

func Paginated(
	w http.ResponseWriter,
	message string,
	data any,
	page, pageSize, total int,
) {
	JSON(w, http.StatusOK, PagedResponse{
		StatusCode:   http.StatusOK,
		Message:      message,
		Data:         data,
		TotalItems:   total,
		CurrentPage:  page,
		ItemsPerPage: pageSize,
	})
}

func BadRequest(w http.ResponseWriter, message string) {
	JSONError(w, NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "BAD_REQUEST"))
}

func NotFound(w http.ResponseWriter, resource string) {
	JSONError(w, NotFoundError(resource))
}

func Unauthorized(w http.ResponseWriter, message string) {
	JSONError(w, UnauthorizedError(message))
}

func Forbidden(w http.ResponseWriter, message string) {
	JSONError(w, ForbiddenError(message))
}

func InternalServerError(w http.ResponseWriter, err error) {
	JSONError(w, err)
}

// JSONError classifies err and writes it inside the envelope.
func JSONError(w http.ResponseWriter, err error) {
	appErr := ToAppError(err)

	if appErr.StatusCode >= http.StatusInternalServerError {
		slog.Error("request failed",
			"code", appErr.Code,
			"error", err,
		)
	}

	detail := errorDetail{
		Code:   appErr.Code,
		Fields: appErr.Fields,
	}
	if exposeErrorCause.Load() && appErr.Err != nil &&
		appErr.StatusCode >= http.StatusInternalServerError {
		detail.Cause = err.Error()
	}

	JSON(w, appErr.StatusCode, Response{
		StatusCode: appErr.StatusCode,
		Message:    appErr.Message,
		Error:      detail,
	})
}

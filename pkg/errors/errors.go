package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound                = "NOT_FOUND"
	CodeValidation              = "VALIDATION_ERROR"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeForbidden               = "FORBIDDEN"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
	CodeInvalidInput            = "INVALID_INPUT"
	CodeInactiveResource        = "INACTIVE_RESOURCE"
	CodeInvalidTimeWindow       = "INVALID_TIME_WINDOW"
	CodeOutsideWorkingHours     = "OUTSIDE_WORKING_HOURS"
	CodeConflictingAppointment  = "CONFLICTING_APPOINTMENT"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeTimeout                 = "TIMEOUT"
	CodeUnavailable             = "SERVICE_UNAVAILABLE"
)

// FieldError carries a single schema-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Fields     []FieldError   `json:"errors,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

// InactiveResource signals that the resource exists but is deactivated.
func InactiveResource(resource string) *AppError {
	return &AppError{
		Code:       CodeInactiveResource,
		Message:    fmt.Sprintf("%s is not active", resource),
		HTTPStatus: http.StatusBadRequest,
	}
}

func Validation(message string, fields []FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Fields:     fields,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InvalidTimeWindow(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidTimeWindow,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func OutsideWorkingHours(message string) *AppError {
	return &AppError{
		Code:       CodeOutsideWorkingHours,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func ConflictingAppointment(message string) *AppError {
	return &AppError{
		Code:       CodeConflictingAppointment,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidTransition names the rejected from/to status pair.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("cannot transition ticket from '%s' to '%s'", from, to),
		HTTPStatus: http.StatusBadRequest,
		Details: map[string]any{
			"from": from,
			"to":   to,
		},
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts any error into an AppError, wrapping unknown
// errors as internal so infrastructure details never leak to clients.
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

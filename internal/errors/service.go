package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable classification of a ServiceError.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeRateLimited  ErrorCode = "RATE_LIMITED"
	CodeUpstream     ErrorCode = "UPSTREAM_ERROR"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// GenericMessage is what clients see for any 5xx.
const GenericMessage = "Internal server error"

// ServiceError is an error carrying the HTTP status and client-safe message.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches a key/value to the error's details.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newServiceError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string) *ServiceError {
	return newServiceError(CodeValidation, http.StatusBadRequest, message, ErrInvalidInput)
}

func Unauthorized(message string) *ServiceError {
	return newServiceError(CodeUnauthorized, http.StatusUnauthorized, message, ErrUnauthorized)
}

func Forbidden(message string) *ServiceError {
	return newServiceError(CodeForbidden, http.StatusForbidden, message, ErrForbidden)
}

func NotFound(message string) *ServiceError {
	return newServiceError(CodeNotFound, http.StatusNotFound, message, ErrNotFound)
}

func Conflict(message string) *ServiceError {
	return newServiceError(CodeConflict, http.StatusConflict, message, ErrConflict)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return newServiceError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests", ErrRateLimited).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

func Internal(message string, err error) *ServiceError {
	return newServiceError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError returns the ServiceError in err's chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if As(err, &se) {
		return se
	}
	return nil
}

// FromError classifies any error into a ServiceError. Client-visible messages
// for 5xx never include the underlying error text.
func FromError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	if se := GetServiceError(err); se != nil {
		if se.HTTPStatus >= http.StatusInternalServerError {
			return &ServiceError{Code: se.Code, Message: GenericMessage, HTTPStatus: se.HTTPStatus, Err: err}
		}
		return se
	}

	switch {
	case IsValidationError(err):
		return newServiceError(CodeValidation, http.StatusBadRequest, err.Error(), err)
	case IsUnauthorized(err):
		return newServiceError(CodeUnauthorized, http.StatusUnauthorized, "Unauthorized", err)
	case IsForbidden(err):
		return newServiceError(CodeForbidden, http.StatusForbidden, "Forbidden", err)
	case IsNotFound(err):
		return newServiceError(CodeNotFound, http.StatusNotFound, notFoundMessage(err), err)
	case IsConflict(err):
		return newServiceError(CodeConflict, http.StatusConflict, err.Error(), err)
	case Is(err, ErrRateLimited):
		return newServiceError(CodeRateLimited, http.StatusTooManyRequests, "Too many requests", err)
	case IsUpstream(err):
		return newServiceError(CodeUpstream, http.StatusInternalServerError, GenericMessage, err)
	default:
		return newServiceError(CodeInternal, http.StatusInternalServerError, GenericMessage, err)
	}
}

func notFoundMessage(err error) string {
	var nf *NotFoundError
	if As(err, &nf) {
		return nf.Error()
	}
	return "Not found"
}

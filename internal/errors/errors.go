// Package errors defines the error taxonomy shared by stores, services and handlers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Standard errors.
var (
	ErrNotFound      = stderrors.New("not found")
	ErrAlreadyExists = stderrors.New("already exists")
	ErrInvalidInput  = stderrors.New("invalid input")
	ErrUnauthorized  = stderrors.New("unauthorized")
	ErrForbidden     = stderrors.New("forbidden")
	ErrConflict      = stderrors.New("conflict")
	ErrRateLimited   = stderrors.New("rate limited")
	ErrUpstream      = stderrors.New("upstream failure")
	ErrDatabase      = stderrors.New("database error")
	ErrInternal      = stderrors.New("internal error")
)

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RequiredError reports a missing required field.
func RequiredError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Resource string
	Key      string
	Reason   string
}

func NewConflictError(resource, key, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Key: key, Reason: reason}
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s %q conflict", e.Resource, e.Key)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Is lets ConflictError also match ErrAlreadyExists.
func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// OwnershipError reports access to a resource owned by another user.
type OwnershipError struct {
	Resource string
	ID       string
	UserID   int64
}

func NewOwnershipError(resource, id string, userID int64) *OwnershipError {
	return &OwnershipError{Resource: resource, ID: id, UserID: userID}
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s %s does not belong to user %d", e.Resource, e.ID, e.UserID)
}

func (e *OwnershipError) Unwrap() error { return ErrForbidden }

// EnsureOwnership returns an OwnershipError when the ids differ.
func EnsureOwnership(resourceUserID, requestUserID int64, resource, id string) error {
	if resourceUserID != requestUserID {
		return NewOwnershipError(resource, id, requestUserID)
	}
	return nil
}

// UpstreamError wraps a failed call to a third-party provider.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func NewUpstreamError(provider, op string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Op: op, Err: err}
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Provider, e.Op)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// Database wraps a driver error as ErrDatabase.
func Database(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrDatabase, op, err)
}

func IsNotFound(err error) bool        { return stderrors.Is(err, ErrNotFound) }
func IsConflict(err error) bool        { return stderrors.Is(err, ErrConflict) }
func IsForbidden(err error) bool       { return stderrors.Is(err, ErrForbidden) }
func IsUnauthorized(err error) bool    { return stderrors.Is(err, ErrUnauthorized) }
func IsValidationError(err error) bool { return stderrors.Is(err, ErrInvalidInput) }
func IsUpstream(err error) bool        { return stderrors.Is(err, ErrUpstream) }

func IsOwnershipError(err error) bool {
	var oe *OwnershipError
	return stderrors.As(err, &oe)
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func New(text string) error      { return stderrors.New(text) }

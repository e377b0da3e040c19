package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidArgument indicates that caller-supplied data failed a precondition.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRemoteFailure indicates that the backing store or another remote call failed.
	ErrRemoteFailure = errors.New("remote failure")

	// ErrAuthFailure indicates that the identity provider rejected or aborted an operation.
	ErrAuthFailure = errors.New("auth failure")

	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates that an operation requires a signed-in identity.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// RemoteError is the caller-facing form of a failed store operation.
// It carries a fixed, operation-specific message and never the original cause.
type RemoteError struct {
	Op      string
	Message string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RemoteError) Unwrap() error {
	return ErrRemoteFailure
}

// AuthError carries an identity-provider code and message.
type AuthError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("authentication failed (%s): %s", e.Code, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AuthError) Unwrap() error {
	return ErrAuthFailure
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewRemoteError creates a new RemoteError.
func NewRemoteError(op, message string) *RemoteError {
	return &RemoteError{
		Op:      op,
		Message: message,
	}
}

// NewAuthError creates a new AuthError.
func NewAuthError(code, message string) *AuthError {
	return &AuthError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

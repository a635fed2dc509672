// Package apperr defines the error kinds shared by the domain services and
// mapped to HTTP statuses by the handler layer.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ValidationError indicates caller-supplied input violated an invariant. It is
// always raised before any state is mutated.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// Validation returns a ValidationError with the given message.
func Validation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// NotFound returns a NotFoundError with the given message.
func NotFound(msg string) *NotFoundError {
	return &NotFoundError{Message: msg}
}

// NotFoundf returns a NotFoundError with a formatted message.
func NotFoundf(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

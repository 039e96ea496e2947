package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of pipeline failures
type ErrorType string

const (
	ErrorTypeShape                   ErrorType = "shape"
	ErrorTypeDegenerateNormalization ErrorType = "degenerate_normalization"
	ErrorTypeNumerical               ErrorType = "numerical"
	ErrorTypeValidation              ErrorType = "validation"
	ErrorTypeIO                      ErrorType = "io"
	ErrorTypeCancelled               ErrorType = "cancelled"
)

// AppError is a structured pipeline error. Descriptor names the field the
// failure concerns, when there is one.
type AppError struct {
	Type       ErrorType `json:"type" yaml:"type"`
	Message    string    `json:"message" yaml:"message"`
	Descriptor string    `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	Cause      error     `json:"-" yaml:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	prefix := string(e.Type)
	if e.Descriptor != "" {
		prefix = fmt.Sprintf("%s [%s]", e.Type, e.Descriptor)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewShapeError reports frames that are too small or quadrants that disagree.
func NewShapeError(descriptor, message string) *AppError {
	return &AppError{Type: ErrorTypeShape, Message: message, Descriptor: descriptor}
}

// NewDegenerateNormalizationError reports a zero normalization scale.
func NewDegenerateNormalizationError(descriptor, message string) *AppError {
	return &AppError{Type: ErrorTypeDegenerateNormalization, Message: message, Descriptor: descriptor}
}

// NewNumericalError reports an out-of-domain intermediate that was clamped.
func NewNumericalError(descriptor, message string) *AppError {
	return &AppError{Type: ErrorTypeNumerical, Message: message, Descriptor: descriptor}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Cause: cause}
}

// NewIOError wraps a load or save failure.
func NewIOError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Message: message, Cause: cause}
}

// NewCancelledError wraps a context cancellation observed mid-run.
func NewCancelledError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeCancelled, Message: message, Cause: cause}
}

// IsType checks if any error in the chain is an AppError of the given type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// DescriptorOf returns the descriptor named by the first AppError in the chain.
func DescriptorOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Descriptor
	}
	return ""
}

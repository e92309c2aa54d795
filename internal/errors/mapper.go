package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorMapper maps provider errors to the kotoba error taxonomy
type ErrorMapper interface {
	MapError(err error) error
	IsRetryable(err error) bool
	Category(err error) string
}

// DefaultErrorMapper classifies errors by sentinel first and message text second.
type DefaultErrorMapper struct{}

// NewDefaultErrorMapper creates a new error mapper
func NewDefaultErrorMapper() *DefaultErrorMapper {
	return &DefaultErrorMapper{}
}

// MapError maps external errors to a taxonomy category. Errors that already
// carry a category are returned unchanged.
func (m *DefaultErrorMapper) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if m.Category(err) != "Unknown" {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %w: %w", ErrTransient, err)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "401"), strings.Contains(errStr, "403"),
		strings.Contains(errStr, "unauthorized"), strings.Contains(errStr, "forbidden"),
		strings.Contains(errStr, "invalid api key"), strings.Contains(errStr, "permission denied"):
		return fmt.Errorf("access denied: %w: %w", ErrPermissionDenied, err)

	case strings.Contains(errStr, "429"), strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "quota"), strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "overloaded"):
		return fmt.Errorf("rate limited: %w: %w", ErrTransient, err)

	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "does not exist"):
		return fmt.Errorf("resource not found: %w: %w", ErrNotFound, err)

	case strings.Contains(errStr, "invalid request"), strings.Contains(errStr, "bad request"):
		return fmt.Errorf("invalid request: %w: %w", ErrInvalidInput, err)

	case strings.Contains(errStr, "malformed json"), strings.Contains(errStr, "invalid json"):
		return fmt.Errorf("invalid model output: %w: %w", ErrInvalidModelOutput, err)

	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"),
		strings.Contains(errStr, "network"), strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "unreachable"), strings.Contains(errStr, "eof"),
		strings.Contains(errStr, "502"), strings.Contains(errStr, "503"):
		return fmt.Errorf("network error: %w: %w", ErrTransient, err)

	default:
		return fmt.Errorf("internal error: %w: %w", ErrInternal, err)
	}
}

// IsRetryable determines if reloading the last turn is likely to help.
func (m *DefaultErrorMapper) IsRetryable(err error) bool {
	return IsRetryable(m.MapError(err))
}

// Category returns the taxonomy category name for an error
func (m *DefaultErrorMapper) Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConfig):
		return "ErrConfig"
	case errors.Is(err, ErrPermissionDenied):
		return "ErrPermissionDenied"
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrConflict):
		return "ErrConflict"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrInvalidModelOutput):
		return "ErrInvalidModelOutput"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCategory wraps an error with a specific category while keeping the cause
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w: %w", message, category, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// Config wraps error as configuration error
func Config(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConfig)
}

// NotFound wraps error as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// Conflict wraps error as conflict
func Conflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConflict)
}

// InvalidInput wraps error as invalid input
func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

// Transient wraps error as transient
func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

// Internal wraps error as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// InvalidModelOutput wraps error as invalid model output
func InvalidModelOutput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidModelOutput)
}

// IsRetryable checks if an error is transient, indicating the turn can be reloaded
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}

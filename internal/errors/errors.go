package errors

import (
	"errors"
)

// Sentinel errors for the chat session taxonomy
var (
	// ErrConfig - configuration is missing or malformed (abort before a session starts)
	ErrConfig = errors.New("invalid configuration")

	// ErrPermissionDenied - the model endpoint rejected the credential
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput - invalid input (show validation error, keep the session usable)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - unknown model, function or context entry
	ErrNotFound = errors.New("not found")

	// ErrConflict - a request is already in flight or a name is taken
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (show retry hint, caller may reload)
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned a malformed function call
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

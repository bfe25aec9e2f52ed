package errors

import (
	"errors"
	"fmt"
)

var (
	// Backend and transport errors
	ErrNetworkFailure    = errors.New("network failure")
	ErrMalformedResponse = errors.New("malformed response")

	// Input errors
	ErrValidation = errors.New("validation failed")

	// Stored state errors
	ErrStateCorruption = errors.New("stored state is corrupt")
	ErrSessionNotFound = errors.New("session not found")

	// Auth errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrStateMismatch    = errors.New("oauth state mismatch")

	// General errors
	ErrNotConfigured = errors.New("not configured")
	ErrNotFound      = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}

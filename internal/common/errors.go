// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Fetch errors.
	ErrNoCandidates = errors.New("no candidates returned")
	ErrMissingToken = errors.New("no access token available")

	// Batch errors.
	ErrRunNotProcessing = errors.New("run is not processing")
	ErrNoFailedTargets  = errors.New("no failed targets to retry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// PermissionError indicates the API rejected a call because the caller lacks a
// specific named permission. It is not retryable without external admin action
// and is surfaced distinctly so callers can render a remediation path instead
// of a retry button.
type PermissionError struct {
	Err        error
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("missing required permission %q", e.Permission)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// NetworkError indicates a transport failure or 5xx response. These are
// retryable by re-invoking the fetch or retrying the failed batch subset.
type NetworkError struct {
	Err    error
	Op     string
	Status int
}

func (e *NetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: server returned status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError indicates malformed or incomplete candidate data. Such
// candidates are excluded from eligibility before a batch starts and are
// never surfaced as runtime batch failures.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	var permErr *PermissionError
	if errors.As(err, &permErr) {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}

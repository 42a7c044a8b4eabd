package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a draft or subdomain record does
	// not exist or has expired.
	ErrNotFound = errors.New("not found")
	// ErrIncompleteData is returned when promotion is attempted before
	// all required steps are saved.
	ErrIncompleteData = errors.New("incomplete registration data")
	// ErrAlreadyExists is the repository sentinel for a conditional
	// create that lost to an existing row.
	ErrAlreadyExists = errors.New("record already exists")
)

// ValidationError reports malformed input rejected before any store I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a subdomain held by a different registration.
type ConflictError struct {
	Subdomain string
	HeldBy    string
}

func (e *ConflictError) Error() string {
	if e.HeldBy == "" {
		return fmt.Sprintf("subdomain %q is already reserved", e.Subdomain)
	}
	return fmt.Sprintf("subdomain %q is already reserved by registration %s", e.Subdomain, e.HeldBy)
}

// TransientError wraps a store failure that may succeed on retry. It
// is the only error class retried automatically.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

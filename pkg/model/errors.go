package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a rule record is not found
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned when trying to create a rule that already exists
	ErrExists = errors.New("record already exists")
	// ErrPreconditionFailed is returned when a conditional write fails because
	// the record changed since it was read
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrValidation is returned when rule input fails schema or reference checks
	ErrValidation = errors.New("validation failed")
	// ErrProvisioning is returned when external trigger infrastructure could not
	// be created or removed
	ErrProvisioning = errors.New("trigger provisioning failed")
	// ErrIndexSync is returned when an index mutation could not be applied.
	// Never fatal to a request; only the synchronizer and reconciler see it.
	ErrIndexSync = errors.New("index sync failed")
	// ErrRemoteResource is returned when a remote collaborator rejects a call
	ErrRemoteResource = errors.New("remote resource error")
	// ErrConnectionTimeout is returned when a call to a remote collaborator
	// exceeds its deadline
	ErrConnectionTimeout = errors.New("connection timeout")
	// ErrCanceled is returned when the operation is canceled by the client
	ErrCanceled = errors.New("operation canceled")
)

// ValidationError carries the field-level reason behind an ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-scoped validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// WrapRemote classifies an error from a remote collaborator. Deadline
// expiry becomes ErrConnectionTimeout, cancellation becomes ErrCanceled,
// anything else is wrapped as ErrRemoteResource. Classification is
// structural; callers must never match on message text.
func WrapRemote(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrConnectionTimeout, err)
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	default:
		return fmt.Errorf("%w: %w", ErrRemoteResource, err)
	}
}

// IsCanceled returns true if the error is due to context cancellation or
// deadline expiry, directly or through wrapping.
func IsCanceled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCanceled)
}

package jobs

import (
	"errors"
	"fmt"
)

// ErrUnregisteredType reports a registry lookup for a job type that was
// never registered. This is a configuration error: fatal at the call site,
// never retried.
var ErrUnregisteredType = errors.New("jobs: unregistered job type")

// ValidationError reports a payload or envelope that fails its schema.
// On enqueue it is returned before any side effect; on the worker side it
// maps to a non-retryable HTTP response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("jobs: invalid payload: %s", e.Reason)
	}
	return fmt.Sprintf("jobs: invalid payload: field %q: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PermanentError marks a handler failure that retrying can never fix, such
// as a malformed recipient surfaced by a downstream API. The worker wrapper
// answers these with the provider's stop-retrying status instead of a 5xx.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so the worker wrapper treats it as non-retryable.
// A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err is (or wraps) a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found. Expired cart
	// sessions report this too, so callers cannot probe token existence.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on insert.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthenticated indicates a missing, unknown, or revoked credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an insufficient permission tier or transport.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited indicates an exhausted rate bucket.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrStateConflict indicates an action attempted in the wrong
	// checkout-session status.
	ErrStateConflict = errors.New("state conflict")
	// ErrUpstream indicates a commerce engine call failed or timed out.
	// The only retryable category.
	ErrUpstream = errors.New("upstream failure")
)

// ValidationError reports a missing or malformed request field. The message
// always names the field and the expected shape so an agent can self-correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

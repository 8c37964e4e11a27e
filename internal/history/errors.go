package history

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("invalid request")

	// ErrPageCapExceeded is returned when Driver.MaxPages calls were made
	// without reaching a termination condition.
	ErrPageCapExceeded = errors.New("pagination page cap exceeded")

	// ErrCursorStalled is returned when the provider hands back rows newer than
	// the requested end, which would make the walk repeat itself.
	ErrCursorStalled = errors.New("pagination cursor did not move backward")
)

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

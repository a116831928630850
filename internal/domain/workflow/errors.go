package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is fired on a bill
	// that is not in the pending state. Callers must surface this as an
	// error rather than silently ignoring it; the exactly-once utilized
	// increment depends on it.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not a valid bill state
	ErrInvalidState = errors.New("invalid state")
)

// internal/game/errors.go
package game

import "errors"

// Error kinds surfaced by session operations. All are terminal for the
// attempted operation; nothing is retried inside the engine, and a failed
// mutation leaves the session untouched.
var (
	// ErrInvalidState rejects an operation that is not legal in the session's
	// current machine state (e.g. reporting an outcome after game over).
	ErrInvalidState = errors.New("operation not valid in current session state")

	// ErrCapacity rejects a roster add when the roster is already full.
	ErrCapacity = errors.New("roster is at maximum capacity")

	// ErrMinimumRoster rejects a roster removal that would shrink the roster
	// below the mode's minimum.
	ErrMinimumRoster = errors.New("roster is at minimum size")

	// ErrEntitlement rejects initialization with a locked content pack.
	ErrEntitlement = errors.New("content pack is locked")
)

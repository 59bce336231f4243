package auction

import "errors"

// Failure taxonomy for the command surface. Commands that fail leave the
// session untouched and wrap one of these so the transport layer can map
// them to a response code with errors.Is.
var (
	// ErrInvalidCommand means the session state does not permit the
	// requested transition (e.g. starting a timer with no live auction).
	ErrInvalidCommand = errors.New("invalid command for current auction state")

	// ErrValidation means the input itself is bad (empty name, negative
	// balance, malformed team).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the referenced lot does not exist.
	ErrNotFound = errors.New("not found")
)

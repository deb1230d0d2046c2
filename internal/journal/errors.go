package journal

import "errors"

// Domain errors for the journal package.
var (
	// ErrInvalidEntry is returned when an entry has no kind.
	ErrInvalidEntry = errors.New("journal: invalid entry")

	// ErrSessionNotFound is returned when a session ID does not exist.
	ErrSessionNotFound = errors.New("journal: session not found")

	// ErrSessionEnded is returned when ending a session twice.
	ErrSessionEnded = errors.New("journal: session already ended")
)

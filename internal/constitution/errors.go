package constitution

import "errors"

// Domain errors for the constitution package.
var (
	// ErrInvalidConstitution is returned when a constitution fails validation at load time.
	ErrInvalidConstitution = errors.New("constitution: invalid")

	// ErrMissingDefault is returned when the registry has no default constitution.
	ErrMissingDefault = errors.New("constitution: default missing")
)

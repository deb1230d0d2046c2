package orchestrator

import "errors"

// Domain errors for the orchestrator package.
var (
	// ErrInvalidConfig is returned when the engine configuration fails validation.
	ErrInvalidConfig = errors.New("orchestrator: invalid config")

	// ErrMissingDependency is returned when a required collaborator cannot be built.
	ErrMissingDependency = errors.New("orchestrator: missing dependency")
)

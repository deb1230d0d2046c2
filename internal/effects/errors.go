package effects

import "errors"

// Domain errors for the effects package.
var (
	// ErrUnknownEffect is returned when triggering a type with no registered factory.
	ErrUnknownEffect = errors.New("effects: unknown effect type")

	// ErrEffectNotFound is returned when aborting an instance that is not active.
	ErrEffectNotFound = errors.New("effects: effect not found")

	// ErrEffectNotAllowed is returned when the active vibe forbids an effect.
	ErrEffectNotAllowed = errors.New("effects: effect not allowed")
)

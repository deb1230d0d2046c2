package show

import "errors"

// Domain errors for the show package.
var (
	// ErrInvalidConfig is returned when the runner configuration is unusable.
	ErrInvalidConfig = errors.New("show: invalid config")

	// ErrNoEngine is returned when Deps.Engine is nil.
	ErrNoEngine = errors.New("show: engine is required")

	// ErrBadFrame is returned for analysis payloads that are not valid JSON.
	ErrBadFrame = errors.New("show: malformed analysis frame")

	// ErrUnknownCommand is returned for control topics the runner does not serve.
	ErrUnknownCommand = errors.New("show: unknown control command")

	// ErrBadCommand is returned for control payloads that cannot be decoded.
	ErrBadCommand = errors.New("show: malformed control payload")
)

package stabilizer

import "errors"

// Domain errors for the stabilizer package.
var (
	// ErrInvalidConfig is returned when a stabilizer configuration fails validation.
	ErrInvalidConfig = errors.New("stabilizer: invalid config")

	// ErrNilClock is returned when a stabilizer is constructed without a clock.
	ErrNilClock = errors.New("stabilizer: nil clock")
)

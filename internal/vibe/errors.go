package vibe

import "errors"

// Domain errors for the vibe package.
var (
	// ErrVibeNotFound is returned when a vibe ID or alias is not in the registry.
	ErrVibeNotFound = errors.New("vibe: not found")

	// ErrInvalidProfile is returned when a profile fails validation at load time.
	ErrInvalidProfile = errors.New("vibe: invalid profile")

	// ErrDuplicateVibe is returned when two profiles share an ID.
	ErrDuplicateVibe = errors.New("vibe: duplicate id")
)

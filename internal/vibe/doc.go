// Package vibe holds the show profiles ("vibes") and the constraint
// provider that keeps the engine inside the active profile.
//
// A vibe is chosen by the operator for a whole set (techno club, chill
// lounge, ...). It bounds which moods, colour strategies, temperatures,
// saturations, dimmer levels, movement patterns and effects are legal.
// Profiles are immutable and loaded once from an embedded YAML registry.
//
// Switching vibe starts a crossfade. Every constraint switches to the new
// profile immediately except the dimmer floor, which holds the higher of
// the two floors for the first 70% of the crossfade and then eases down,
// so a change of profile never dips the room into darkness.
//
// Every Constrain function returns the corrected value and whether a
// correction was applied. None of them fail.
//
// # Thread Safety
//
// Registry is immutable after loading and safe for concurrent use.
// Provider is not; the orchestrator engine serialises access to it.
package vibe

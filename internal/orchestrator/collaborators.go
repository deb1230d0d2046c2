package orchestrator

import (
	"context"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/palette"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PaletteGenerator builds the frame palette. Implementations must be
// deterministic and must return colours legal under c when c is not nil.
// palette.Generator is the default.
type PaletteGenerator interface {
	Generate(req palette.Request, c *constitution.Constitution) lighting.Palette
}

// PhysicsCollaborator is the per-genre reactive layer. It may override zone
// intensities wholesale, request a strobe, and drive moving heads directly.
type PhysicsCollaborator interface {
	Update(mc MusicalContext, p lighting.Palette, af AudioFrame, mods PhysicsModifiers) PhysicsResult
}

// MovementGenerator proposes moving-head motion for the active vibe.
type MovementGenerator interface {
	Generate(vibeID string, mc MovementContext) MovementIntent
}

// Consciousness is the optional AI layer. Process must honour ctx; the
// engine gives up on it when the deadline passes.
type Consciousness interface {
	Process(ctx context.Context, state StabilizedState) (Decision, error)
}

package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/stabilizer"
)

// Config configures an Engine.
type Config struct {
	// InitialVibe is activated immediately at construction. Empty keeps the
	// registry default.
	InitialVibe string

	// FrameInterval is the nominal render tick used to size buffers.
	FrameInterval time.Duration

	// Crossfade is the vibe transition time.
	Crossfade time.Duration

	// AITimeout bounds one Consciousness.Process call.
	AITimeout time.Duration

	// AIConfidenceThreshold is the minimum confidence of an accepted decision.
	AIConfidenceThreshold float64

	// PhysicsVetoEnergy is the smoothed energy at which AI physics
	// modifiers are ignored.
	PhysicsVetoEnergy float64

	// StrobeEnergy is the raw energy above which the baseline strobe fires.
	StrobeEnergy float64

	// ConsciousnessEnabled is the initial state of the AI kill switch.
	ConsciousnessEnabled bool

	// EventBuffer is the capacity of the event channel.
	EventBuffer int

	Key      stabilizer.KeyConfig
	Mood     stabilizer.MoodConfig
	Energy   stabilizer.EnergyConfig
	Strategy stabilizer.StrategyConfig
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FrameInterval:         stabilizer.DefaultFrameInterval,
		Crossfade:             3 * time.Second,
		AITimeout:             8 * time.Millisecond,
		AIConfidenceThreshold: 0.6,
		PhysicsVetoEnergy:     0.85,
		StrobeEnergy:          0.95,
		ConsciousnessEnabled:  true,
		EventBuffer:           256,
		Key:                   stabilizer.DefaultKeyConfig(),
		Mood:                  stabilizer.DefaultMoodConfig(),
		Energy:                stabilizer.DefaultEnergyConfig(),
		Strategy:              stabilizer.DefaultStrategyConfig(),
	}
}

// Validate checks the engine settings. Stabilizer sections are validated
// by their own constructors.
func (c Config) Validate() error {
	var errs []string
	if c.FrameInterval <= 0 {
		errs = append(errs, "frame_interval must be positive")
	}
	if c.Crossfade < 0 {
		errs = append(errs, "crossfade must not be negative")
	}
	if c.AITimeout <= 0 {
		errs = append(errs, "ai_timeout must be positive")
	}
	if c.AIConfidenceThreshold < 0 || c.AIConfidenceThreshold > 1 {
		errs = append(errs, "ai_confidence_threshold must be in [0, 1]")
	}
	if c.PhysicsVetoEnergy <= 0 || c.PhysicsVetoEnergy > 1 {
		errs = append(errs, "physics_veto_energy must be in (0, 1]")
	}
	if c.StrobeEnergy <= 0 || c.StrobeEnergy > 1 {
		errs = append(errs, "strobe_energy must be in (0, 1]")
	}
	if c.EventBuffer < 1 {
		errs = append(errs, "event_buffer must be at least 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

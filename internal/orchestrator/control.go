package orchestrator

import (
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-lux/internal/effects"
	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

// SetVibe starts a crossfade to the named vibe (ID or alias). It returns
// false when the vibe is already active and vibe.ErrVibeNotFound for
// unknown names.
func (e *Engine) SetVibe(name string) (bool, error) {
	return e.setVibe(name, false)
}

// SetVibeImmediate switches vibe without a crossfade.
func (e *Engine) SetVibeImmediate(name string) (bool, error) {
	return e.setVibe(name, true)
}

func (e *Engine) setVibe(name string, immediate bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.vibes.Registry().Resolve(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", vibe.ErrVibeNotFound, name)
	}
	from := e.vibes.ActiveID()
	if target == from {
		return false, nil
	}

	if immediate {
		e.vibes.SetActiveVibeImmediate(string(target))
	} else if !e.vibes.SetActiveVibe(string(target)) {
		return false, nil
	}
	e.vibeID.Store(target)
	e.emit(EventVibeChanged, map[string]any{"from": from, "to": target, "immediate": immediate})
	return true, nil
}

// ActiveVibe returns the target vibe ID.
func (e *Engine) ActiveVibe() vibe.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vibes.ActiveID()
}

// Vibes returns the vibe registry. Registries are immutable.
func (e *Engine) Vibes() *vibe.Registry {
	return e.vibes.Registry()
}

// TriggerEffect fires an effect now, subject to the active vibe's effect
// policy. It returns the instance ID.
func (e *Engine) TriggerEffect(cfg effects.TriggerConfig) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.Source == "" {
		cfg.Source = SourceAPI
	}
	id, err := e.trigger(cfg)
	if err != nil {
		e.stats.EffectsRejected++
	}
	return id, err
}

// QueueStrike queues a manual strike that fires on the next frame.
func (e *Engine) QueueStrike(effectType string, intensity float64) error {
	if !slices.Contains(e.fx.Types(), effectType) {
		return fmt.Errorf("%w: %q", effects.ErrUnknownEffect, effectType)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.strikes) >= maxQueuedStrikes {
		e.strikes = e.strikes[1:]
	}
	e.strikes = append(e.strikes, effects.TriggerConfig{
		Type:      effectType,
		Intensity: finite(intensity),
		Source:    SourceStrike,
	})
	return nil
}

// AbortEffect stops one effect instance.
func (e *Engine) AbortEffect(id string) error {
	return e.fx.Abort(id)
}

// AbortAllEffects stops every effect and drops queued strikes. It returns
// how many instances were running.
func (e *Engine) AbortAllEffects() int {
	e.mu.Lock()
	e.strikes = e.strikes[:0]
	e.mu.Unlock()
	return e.fx.AbortAll()
}

// ActiveEffects returns the running effect instances.
func (e *Engine) ActiveEffects() []effects.Snapshot {
	return e.fx.Active()
}

// EffectTypes returns every registered effect type.
func (e *Engine) EffectTypes() []string {
	return e.fx.Types()
}

// SetConsciousnessEnabled turns the AI layer on or off. Turning it off
// also drops any cached physics modifiers.
func (e *Engine) SetConsciousnessEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.aiEnabled == enabled {
		return
	}
	e.aiEnabled = enabled
	if !enabled {
		e.modifiers = NeutralModifiers()
	}
	e.logger.Info("consciousness toggled", "enabled", enabled)
	e.emit(EventConsciousnessToggled, map[string]any{"enabled": enabled})
}

// ConsciousnessEnabled reports the AI kill switch state.
func (e *Engine) ConsciousnessEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aiEnabled
}

// ResetStabilizers clears every vote buffer, the drop machine and the
// frame clock, as at the start of a new track.
func (e *Engine) ResetStabilizers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Reset()
	e.key.Reset()
	e.mood.Reset()
	e.energy.Reset()
	e.strategy.Reset()
	e.lastKey = ""
	e.moodWord = ""
	e.dropActive = false
	e.logger.Info("stabilizers reset")
	e.emit(EventStabilizersReset, nil)
}

// LastIntent returns the most recent intent; false before the first frame.
func (e *Engine) LastIntent() (LightingIntent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.hasLast
}

// State returns a diagnostic snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.stats
	stats.EventsDropped = e.dropped.Load()
	return State{
		VibeID:               e.vibes.ActiveID(),
		Transition:           e.vibes.Transition(),
		Stabilized:           e.last.State,
		Key:                  e.key.Stats(),
		FrameInterval:        e.clock.FrameInterval(),
		ConsciousnessEnabled: e.aiEnabled,
		Modifiers:            e.modifiers,
		QueuedStrikes:        len(e.strikes),
		Effects:              e.fx.Active(),
		EffectStats:          e.fx.Stats(),
		Stats:                stats,
	}
}

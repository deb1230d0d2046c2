package orchestrator

import (
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

// EventKind identifies a show event.
type EventKind string

// Show events.
const (
	EventVibeChanged          EventKind = "vibe_changed"
	EventKeyCommitted         EventKind = "key_committed"
	EventEmotionChanged       EventKind = "emotion_changed"
	EventStrategyChanged      EventKind = "strategy_changed"
	EventDropStarted          EventKind = "drop_started"
	EventDropEnded            EventKind = "drop_ended"
	EventEffectTriggered      EventKind = "effect_triggered"
	EventEffectFinished       EventKind = "effect_finished"
	EventSilenceReset         EventKind = "silence_reset"
	EventConsciousnessToggled EventKind = "consciousness_toggled"
	EventStabilizersReset     EventKind = "stabilizers_reset"
)

// Event is a discrete change worth journaling or streaming.
type Event struct {
	Kind   EventKind      `json:"kind"`
	At     time.Time      `json:"at"`
	VibeID vibe.ID        `json:"vibe_id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Events returns the event stream. The channel is never closed.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// DroppedEvents returns how many events were discarded because the channel
// was full.
func (e *Engine) DroppedEvents() uint64 {
	return e.dropped.Load()
}

// emit queues an event without blocking. It does not take e.mu, so effect
// callbacks may call it while a frame is being built.
func (e *Engine) emit(kind EventKind, fields map[string]any) {
	ev := Event{Kind: kind, At: e.now(), Fields: fields}
	if id, ok := e.vibeID.Load().(vibe.ID); ok {
		ev.VibeID = id
	}
	select {
	case e.events <- ev:
	default:
		if e.dropped.Add(1)%100 == 1 {
			e.logger.Warn("event channel full, dropping events", "kind", kind, "dropped", e.dropped.Load())
		}
	}
}

// Package orchestrator composes the stabilizers, vibe constraints, colour
// constitutions and effect envelopes into one LightingIntent per frame.
//
// The Engine is the per-frame entry point of Gray Logic Lux. It is driven
// by the show runner at the render tick rate and is also reached by the
// control API and MQTT control handlers, so every public method is
// serialised by a single mutex.
//
// Frame pipeline:
//
//	MusicalContext + AudioFrame
//	        │
//	        ▼
//	┌──────────────────────────────────────────────────────────┐
//	│ 1. stabilise   energy ─▶ key ─▶ mood ─▶ strategy          │
//	│ 2. palette     PaletteGenerator + active Constitution     │
//	│ 3. zones       band mix, or PhysicsCollaborator override  │
//	│ 4. movement    MovementGenerator, physics bypass, or      │
//	│                procedural fallback                        │
//	│ 5. effects     baseline strobe, drop flare, strikes,      │
//	│                effects.Manager.Update                     │
//	│ 6. AI          Consciousness with timeout, confidence     │
//	│                gate and high-energy physics veto          │
//	│ 7. merge       HTP master, global and colour overrides    │
//	└──────────────────────────────────────────────────────────┘
//	        │
//	        ▼
//	  LightingIntent (cached, returned) + Events channel
//
// Update never fails. Malformed input is sanitised, a slow or failing AI
// layer yields no decision, and an unknown vibe keeps the current one.
// Only construction can return an error.
//
// # Key Types
//
//   - Engine: owns the per-frame state and the collaborators
//   - MusicalContext, AudioFrame: per-frame input
//   - LightingIntent: per-frame output, hue emitted as a fraction of a turn
//   - Event: typed show events (vibe, commits, drops, effects) on a bounded channel
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Events are delivered on a
// buffered channel; when it is full the event is dropped and counted so the
// render loop never blocks on a slow consumer.
package orchestrator

// Package effects runs transient lighting effects and blends their output.
//
// An effect is a short envelope (flare, strobe burst, blinder, breath)
// triggered by the engine, an operator or the AI layer. Each instance
// moves through a fixed set of phases and never goes backwards:
//
//	idle ──► attack ──► sustain ──► decay ──► finished
//	  │         │          │          │
//	  └─────────┴──── abort ──────────┴─────► finished
//
// The Manager owns every active instance. It creates instances from a
// factory registry, advances them once per frame, drops finished ones and
// blends the survivors into a single Combined output:
//
//   - dimmer, white, amber and strobe rate use Highest-Takes-Precedence
//   - colour comes from the highest-priority effect; ties go to the most
//     recently triggered one
//   - any effect with GlobalOverride makes the combined output global
//
// # Key Types
//
//   - Envelope: the attack/sustain/decay state machine behind every built-in effect
//   - Manager: factory registry, active set and HTP blend
//   - TriggerConfig: what to fire, how hard and where
//   - Combined: the blended output consumed by the orchestrator
//
// # Thread Safety
//
// Manager methods are safe for concurrent use. Callbacks run after the
// manager's lock is released and may call back into the manager.
package effects

// Package stabilizer turns noisy per-frame music analysis into stable
// categorical decisions for the lighting engine.
//
// Audio analysis flips its opinion about the musical key or mood several
// times per second. Driving colour straight from those readings makes the
// rig flicker, so every categorical signal goes through a weighted vote
// over a circular buffer followed by a lock with hysteresis.
//
// Architecture:
//
//	raw energy ──▶ EnergyStabilizer ──▶ smoothed / instant energy
//	                    (energy.go)            │
//	                                           ├──▶ KeyStabilizer ──▶ stable key
//	                                           │      (key.go)            │
//	                                           ├──▶ MoodArbiter ◀─────────┘
//	                                           │      (mood.go)  ──▶ emotion, Kelvin
//	                                           └──▶ StrategyArbiter ──▶ colour strategy
//	                                                  (strategy.go)
//
// All windows are wall-clock durations. A shared Clock (clock.go) converts
// them into frame counts from the observed frame rate.
//
// # Key Types
//
//   - Clock: converts durations to frame counts from the observed tick interval
//   - KeyStabilizer: musical key vote with commit delay and bootstrap
//   - MoodArbiter: BRIGHT/DARK/NEUTRAL vote plus thermal colour temperature
//   - EnergyStabilizer: rolling energy, silence and drop state machine
//   - StrategyArbiter: colour strategy from averaged syncopation and sections
//
// # Failure Semantics
//
// Nothing here fails per frame. Missing or low-confidence input is a
// zero-weight vote, NaN and Inf become zero, and a cold buffer yields the
// default output. Only construction with an invalid Config returns an error.
//
// # Thread Safety
//
// Stabilizers are not safe for concurrent use. They are owned by the
// orchestrator engine, which serialises access.
package stabilizer

// Package api implements the operator control API for the lighting engine.
//
// This package provides:
//   - REST endpoints to read the latest intent and engine state
//   - Vibe switching, effect triggers, manual strikes and aborts
//   - The consciousness kill switch and stabilizer reset
//   - Journal queries over recorded show events
//   - A WebSocket hub streaming intents and engine events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Optional bearer-token guard on the routes that change the show
//
// # Architecture
//
// The API sits beside the show runner. Both drive the same orchestrator
// engine: the runner feeds it analysis frames, the API steers it. The hub
// is shared with the runner, which broadcasts on the "intent" and "event"
// channels.
//
// WebSocket clients subscribe with
//
//	{"type":"subscribe","payload":{"channels":["intent","event"]}}
//
// or pre-subscribe with /api/v1/ws?channels=intent,event.
//
// # Graceful Degradation
//
// The server runs without MQTT, InfluxDB or the journal. Journal queries
// return 503 when no repository is wired.
package api

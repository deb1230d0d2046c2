// Package show runs the render loop that connects the lighting engine to
// the rig.
//
// The audio analyser publishes {context, audio} frames on the analysis
// topic at its own rate. The Runner keeps only the latest frame and ticks
// the engine at show.frame_rate; when no frame has arrived within
// show.stale_input_ms it renders silence and marks the intent with source
// "fallback", so the rig settles to the idle floor instead of freezing.
//
// Every intent goes to MQTT. Every Nth intent (show.publish_every) also
// goes to the WebSocket hub and InfluxDB. Engine events are journaled and
// fanned out to MQTT, InfluxDB and the hub.
//
// Operators steer the show on {prefix}/control/{vibe,strike,abort,
// consciousness} with small JSON payloads:
//
//	graylux/control/vibe    {"vibe":"chill","immediate":false}
//	graylux/control/strike  {"type":"strobe_burst","intensity":0.8}
//	graylux/control/abort   {} or {"id":"<effect id>"}
package show

package mqtt

import "strings"

// Control commands accepted under {prefix}/control/{command}.
const (
	ControlVibe          = "vibe"
	ControlStrike        = "strike"
	ControlAbort         = "abort"
	ControlConsciousness = "consciousness"
)

// Topics builds the rig's topic names from the configured prefix.
//
//	topics := mqtt.NewTopics("graylux", "graylux/analysis")
//	topics.Intent()         // graylux/intent
//	topics.Event("drop")    // graylux/event/drop
//	topics.Control("vibe")  // graylux/control/vibe
type Topics struct {
	prefix   string
	analysis string
}

// NewTopics returns topic builders for prefix. An empty analysis topic
// defaults to {prefix}/analysis.
func NewTopics(prefix, analysis string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if analysis == "" {
		analysis = prefix + "/analysis"
	}
	return Topics{prefix: prefix, analysis: analysis}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string { return t.prefix }

// Analysis is where the audio analyser publishes {context, audio} frames.
func (t Topics) Analysis() string { return t.analysis }

// Intent carries one lighting intent per rendered frame.
//
// Example: graylux/intent
func (t Topics) Intent() string { return t.prefix + "/intent" }

// State carries the retained diagnostic engine state.
//
// Example: graylux/state
func (t Topics) State() string { return t.prefix + "/state" }

// Event returns the topic for one show event kind.
//
// Example: graylux/event/vibe_changed
func (t Topics) Event(kind string) string { return t.prefix + "/event/" + kind }

// AllEvents matches every event topic.
//
// Pattern: graylux/event/+
func (t Topics) AllEvents() string { return t.prefix + "/event/+" }

// Control returns the topic for an operator command.
//
// Example: graylux/control/strike
func (t Topics) Control(command string) string { return t.prefix + "/control/" + command }

// AllControl matches every control topic.
//
// Pattern: graylux/control/+
func (t Topics) AllControl() string { return t.prefix + "/control/+" }

// Status carries the retained online/offline status and the LWT.
//
// Example: graylux/system/status
func (t Topics) Status() string { return t.prefix + "/system/status" }

// ControlCommand extracts the command from a control topic.
func (t Topics) ControlCommand(topic string) (string, bool) {
	cmd, ok := strings.CutPrefix(topic, t.prefix+"/control/")
	if !ok || cmd == "" || strings.Contains(cmd, "/") {
		return "", false
	}
	return cmd, true
}

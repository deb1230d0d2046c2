package show

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/mqtt"
)

// VibeCommand is the payload on {prefix}/control/vibe.
type VibeCommand struct {
	Vibe      string `json:"vibe"`
	Immediate bool   `json:"immediate,omitempty"`
}

// StrikeCommand is the payload on {prefix}/control/strike.
type StrikeCommand struct {
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity"`
}

// AbortCommand is the payload on {prefix}/control/abort. An empty ID (or
// empty payload) aborts every active effect.
type AbortCommand struct {
	ID string `json:"id,omitempty"`
}

// ConsciousnessCommand is the payload on {prefix}/control/consciousness.
type ConsciousnessCommand struct {
	Enabled bool `json:"enabled"`
}

// HandleControl applies an operator command received on a control topic.
func (r *Runner) HandleControl(topic string, payload []byte) error {
	cmd, ok := r.deps.Topics.ControlCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, topic)
	}

	switch cmd {
	case mqtt.ControlVibe:
		var c VibeCommand
		if err := decode(payload, &c); err != nil {
			return err
		}
		if c.Vibe == "" {
			return fmt.Errorf("%w: vibe is required", ErrBadCommand)
		}
		set := r.deps.Engine.SetVibe
		if c.Immediate {
			set = r.deps.Engine.SetVibeImmediate
		}
		changed, err := set(c.Vibe)
		if err != nil {
			return fmt.Errorf("setting vibe: %w", err)
		}
		r.logger.Info("vibe command", "vibe", c.Vibe, "immediate", c.Immediate, "changed", changed)

	case mqtt.ControlStrike:
		var c StrikeCommand
		if err := decode(payload, &c); err != nil {
			return err
		}
		if c.Intensity == 0 {
			c.Intensity = 1
		}
		if err := r.deps.Engine.QueueStrike(c.Type, c.Intensity); err != nil {
			return fmt.Errorf("queueing strike: %w", err)
		}

	case mqtt.ControlAbort:
		var c AbortCommand
		if len(payload) > 0 {
			if err := decode(payload, &c); err != nil {
				return err
			}
		}
		if c.ID != "" {
			if err := r.deps.Engine.AbortEffect(c.ID); err != nil {
				return fmt.Errorf("aborting effect: %w", err)
			}
			return nil
		}
		n := r.deps.Engine.AbortAllEffects()
		r.logger.Info("all effects aborted", "count", n)

	case mqtt.ControlConsciousness:
		var c ConsciousnessCommand
		if err := decode(payload, &c); err != nil {
			return err
		}
		r.deps.Engine.SetConsciousnessEnabled(c.Enabled)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return nil
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadCommand, err)
	}
	return nil
}

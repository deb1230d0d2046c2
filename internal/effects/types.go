package effects

import (
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// Built-in effect types.
const (
	TypeSolarFlare  = "solar_flare"
	TypeStrobeBurst = "strobe_burst"
	TypeBlinder     = "blinder"
	TypeBreath      = "breath"
)

// Phase is the lifecycle stage of an effect instance.
type Phase string

// Effect phases, in the only order an instance may visit them.
const (
	PhaseIdle     Phase = "idle"
	PhaseAttack   Phase = "attack"
	PhaseSustain  Phase = "sustain"
	PhaseDecay    Phase = "decay"
	PhaseFinished Phase = "finished"
)

// RGBWA is a five-channel fixture colour.
type RGBWA struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	W uint8 `json:"w" yaml:"w"`
	A uint8 `json:"a" yaml:"a"`
}

// RGB returns the colour channels without white and amber.
func (c RGBWA) RGB() lighting.RGB {
	return lighting.RGB{R: c.R, G: c.G, B: c.B}
}

// LerpRGBWA interpolates every channel from a to b.
func LerpRGBWA(a, b RGBWA, t float64) RGBWA {
	t = lighting.Clamp01(t)
	rgb := lighting.LerpRGB(a.RGB(), b.RGB(), t)
	return RGBWA{
		R: rgb.R,
		G: rgb.G,
		B: rgb.B,
		W: lerp8(a.W, b.W, t),
		A: lerp8(a.A, b.A, t),
	}
}

func lerp8(a, b uint8, t float64) uint8 {
	v := float64(a) + (float64(b)-float64(a))*t
	return uint8(lighting.Clamp(v+0.5, 0, 255))
}

// TriggerConfig asks the manager to fire an effect.
type TriggerConfig struct {
	Type      string          `json:"type"`
	Intensity float64         `json:"intensity"`
	Zones     []lighting.Zone `json:"zones,omitempty"`
	Source    string          `json:"source,omitempty"`
}

// Output is one effect instance's contribution to the current frame.
// A zero override means the effect does not override that channel.
type Output struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Phase          Phase           `json:"phase"`
	Progress       float64         `json:"progress"`
	Intensity      float64         `json:"intensity"`
	DimmerOverride float64         `json:"dimmer_override"`
	WhiteOverride  float64         `json:"white_override"`
	AmberOverride  float64         `json:"amber_override"`
	ColorOverride  *lighting.HSL   `json:"color_override,omitempty"`
	GlobalOverride bool            `json:"global_override"`
	StrobeRate     float64         `json:"strobe_rate"`
	Zones          []lighting.Zone `json:"zones"`
	Priority       int             `json:"priority"`
}

// Combined is the HTP blend of every active effect.
type Combined struct {
	HasActive      bool          `json:"has_active"`
	Intensity      float64       `json:"intensity"`
	DimmerOverride float64       `json:"dimmer_override"`
	WhiteOverride  float64       `json:"white_override"`
	AmberOverride  float64       `json:"amber_override"`
	ColorOverride  *lighting.HSL `json:"color_override,omitempty"`
	GlobalOverride bool          `json:"global_override"`
	StrobeRate     float64       `json:"strobe_rate"`
	Contributing   []string      `json:"contributing"`
}

// HasDimmerOverride reports whether any effect drives the dimmer.
func (c Combined) HasDimmerOverride() bool {
	return c.DimmerOverride > 0
}

// Effect is a triggerable envelope. Implementations are not safe for
// concurrent use; the Manager serialises access.
type Effect interface {
	ID() string
	Type() string
	Priority() int
	Trigger(cfg TriggerConfig)
	Update(dt time.Duration)
	Output() (Output, bool)
	Phase() Phase
	Finished() bool
	Abort()
}

// Factory builds a fresh effect instance with the given ID.
type Factory func(id string) Effect

// Event reports an effect lifecycle change.
type Event struct {
	EffectID  string  `json:"effect_id"`
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity,omitempty"`
	Source    string  `json:"source,omitempty"`
	Aborted   bool    `json:"aborted,omitempty"`
}

// Snapshot describes one active instance for status surfaces.
type Snapshot struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Phase     Phase           `json:"phase"`
	Intensity float64         `json:"intensity"`
	Zones     []lighting.Zone `json:"zones"`
	Source    string          `json:"source,omitempty"`
	Elapsed   time.Duration   `json:"elapsed"`
}

package vibe

import (
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// ID identifies a vibe profile.
type ID string

// Canonical vibe IDs shipped in the embedded registry.
const (
	IDIdle         ID = "idle"
	IDTechnoClub   ID = "techno-club"
	IDFiestaLatina ID = "fiesta-latina"
	IDPopRock      ID = "pop-rock"
	IDChillLounge  ID = "chill-lounge"
)

// Range is an inclusive numeric range.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp returns v limited to the range and whether it had to be moved.
func (r Range) Clamp(v float64) (float64, bool) {
	switch {
	case v < r.Min:
		return r.Min, true
	case v > r.Max:
		return r.Max, true
	default:
		return v, false
	}
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// MoodConstraints lists the moods a vibe accepts.
type MoodConstraints struct {
	Allowed        []string `yaml:"allowed" json:"allowed"`
	Fallback       string   `yaml:"fallback" json:"fallback"`
	AudioInfluence float64  `yaml:"audio_influence" json:"audio_influence"`
}

// ColorConstraints bounds colour generation.
type ColorConstraints struct {
	Strategies           []lighting.ColorStrategy `yaml:"strategies" json:"strategies"`
	Temperature          Range                    `yaml:"temperature" json:"temperature"`
	Saturation           Range                    `yaml:"saturation" json:"saturation"`
	MaxHueShiftPerSecond float64                  `yaml:"max_hue_shift_per_second" json:"max_hue_shift_per_second"`
}

// DropConstraints tunes how eagerly the vibe reacts to drops.
type DropConstraints struct {
	// Sensitivity scales EnergyThreshold; higher is less eager.
	Sensitivity     float64 `yaml:"sensitivity" json:"sensitivity"`
	EnergyThreshold float64 `yaml:"energy_threshold" json:"energy_threshold"`
	CooldownMS      int     `yaml:"cooldown_ms" json:"cooldown_ms"`
	AllowMicroDrops bool    `yaml:"allow_micro_drops" json:"allow_micro_drops"`
}

// Cooldown returns the minimum time between two drops.
func (d DropConstraints) Cooldown() time.Duration {
	return time.Duration(d.CooldownMS) * time.Millisecond
}

// DimmerConstraints bounds master intensity.
type DimmerConstraints struct {
	Floor         float64 `yaml:"floor" json:"floor"`
	Ceiling       float64 `yaml:"ceiling" json:"ceiling"`
	AllowBlackout bool    `yaml:"allow_blackout" json:"allow_blackout"`
}

// MovementConstraints bounds moving-head patterns and speed.
type MovementConstraints struct {
	Patterns        []string `yaml:"patterns" json:"patterns"`
	Speed           Range    `yaml:"speed" json:"speed"`
	AllowAggressive bool     `yaml:"allow_aggressive" json:"allow_aggressive"`
}

// EffectConstraints lists permitted effect categories.
type EffectConstraints struct {
	Allowed []string `yaml:"allowed" json:"allowed"`

	// MaxStrobeRate is in flashes per second; zero forbids strobing.
	MaxStrobeRate float64 `yaml:"max_strobe_rate" json:"max_strobe_rate"`
	MaxIntensity  float64 `yaml:"max_intensity" json:"max_intensity"`
}

// MetaConstraints carries hints for collaborators.
type MetaConstraints struct {
	BaseEnergy float64 `yaml:"base_energy" json:"base_energy"`
	Volatility float64 `yaml:"volatility" json:"volatility"`
}

// Profile is one immutable show profile.
type Profile struct {
	ID          ID     `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`

	Mood     MoodConstraints     `yaml:"mood" json:"mood"`
	Color    ColorConstraints    `yaml:"color" json:"color"`
	Drop     DropConstraints     `yaml:"drop" json:"drop"`
	Dimmer   DimmerConstraints   `yaml:"dimmer" json:"dimmer"`
	Movement MovementConstraints `yaml:"movement" json:"movement"`
	Effects  EffectConstraints   `yaml:"effects" json:"effects"`
	Meta     MetaConstraints     `yaml:"meta" json:"meta"`
}

// AllowsMood reports whether mood is in the allowed list.
func (p *Profile) AllowsMood(mood string) bool {
	return slices.Contains(p.Mood.Allowed, mood)
}

// AllowsStrategy reports whether s is one of the vibe's strategies.
func (p *Profile) AllowsStrategy(s lighting.ColorStrategy) bool {
	return slices.Contains(p.Color.Strategies, s)
}

// AllowsEffect reports whether the effect category is permitted.
func (p *Profile) AllowsEffect(name string) bool {
	return slices.Contains(p.Effects.Allowed, name)
}

// Transition describes a crossfade between two vibes.
type Transition struct {
	From     ID            `json:"from,omitempty"`
	To       ID            `json:"to"`
	Progress float64       `json:"progress"`
	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`
	Active   bool          `json:"active"`
}

// ColorParams is a colour request checked against the active vibe.
type ColorParams struct {
	TemperatureK float64                `json:"temperature_k"`
	Saturation   float64                `json:"saturation"`
	Strategy     lighting.ColorStrategy `json:"strategy,omitempty"`
}

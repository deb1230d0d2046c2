package effects

import (
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// SolarFlareConfig is a golden full-rig flash that cools to red as it fades.
var SolarFlareConfig = EnvelopeConfig{
	Type:       TypeSolarFlare,
	Category:   "solar_flare",
	Priority:   100,
	Attack:     0,
	Sustain:    150 * time.Millisecond,
	Decay:      800 * time.Millisecond,
	DecayCurve: 2,
	PeakColor:  &RGBWA{R: 255, G: 200, B: 80, W: 255, A: 255},
	DecayColor: &RGBWA{R: 255, G: 60, B: 0, W: 0, A: 180},
}

// StrobeBurstConfig is two hard flashes that take over every zone and
// leave colour to the palette.
var StrobeBurstConfig = EnvelopeConfig{
	Type:       TypeStrobeBurst,
	Category:   "strobe",
	Priority:   85,
	Attack:     0,
	Sustain:    360 * time.Millisecond,
	Decay:      0,
	StrobeRate: 6,
	Global:     true,
}

// BlinderConfig is a white hit on the front wash.
var BlinderConfig = EnvelopeConfig{
	Type:         TypeBlinder,
	Category:     "blinder",
	Priority:     90,
	Attack:       0,
	Sustain:      250 * time.Millisecond,
	Decay:        400 * time.Millisecond,
	DecayCurve:   2,
	PeakColor:    &RGBWA{R: 255, G: 255, B: 255, W: 255},
	DecayColor:   &RGBWA{R: 255, G: 200, B: 150, A: 120},
	DefaultZones: []lighting.Zone{lighting.ZoneFront},
}

// BreathConfig is one slow ultraviolet breath on the back and movers that
// never falls to blackout.
var BreathConfig = EnvelopeConfig{
	Type:         TypeBreath,
	Category:     "breath",
	Priority:     40,
	Attack:       1050 * time.Millisecond,
	Sustain:      0,
	Decay:        1950 * time.Millisecond,
	DecayCurve:   1.5,
	DecayFloor:   0.15,
	Peak:         0.7,
	PeakColor:    &RGBWA{R: 102, G: 0, B: 204},
	DefaultZones: []lighting.Zone{lighting.ZoneBack, lighting.ZoneMovers},
}

// builtins maps every built-in type to its envelope.
var builtins = map[string]EnvelopeConfig{
	TypeSolarFlare:  SolarFlareConfig,
	TypeStrobeBurst: StrobeBurstConfig,
	TypeBlinder:     BlinderConfig,
	TypeBreath:      BreathConfig,
}

// EnvelopeFactory returns a factory producing envelopes with cfg.
func EnvelopeFactory(cfg EnvelopeConfig) Factory {
	return func(id string) Effect { return NewEnvelope(id, cfg) }
}

// Category returns the vibe effect category an effect type belongs to.
// Unknown types are their own category.
func Category(effectType string) string {
	if cfg, ok := builtins[effectType]; ok && cfg.Category != "" {
		return cfg.Category
	}
	return effectType
}

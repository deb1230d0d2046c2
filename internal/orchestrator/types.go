package orchestrator

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/stabilizer"
	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

// Section is the structural part of the song reported by the analyser.
type Section struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Genre is the analyser's genre guess.
type Genre struct {
	Macro string `json:"macro"`
	Sub   string `json:"sub,omitempty"`
}

// MusicalContext is the analyser's reading of the music for one frame.
type MusicalContext struct {
	BPM       float64 `json:"bpm"`
	BeatPhase float64 `json:"beat_phase"`

	// Harmony
	Key        string  `json:"key"`
	Mode       string  `json:"mode"`
	Mood       string  `json:"mood"`
	Confidence float64 `json:"confidence"`

	// Rhythm and structure
	Energy      float64 `json:"energy"`
	Syncopation float64 `json:"syncopation"`
	Section     Section `json:"section"`
	Genre       Genre   `json:"genre"`
}

// AudioFrame holds raw band metrics and transient flags for one frame.
// Band values are normalised to [0, 1].
type AudioFrame struct {
	SubBass float64 `json:"sub_bass"`
	Bass    float64 `json:"bass"`
	Mid     float64 `json:"mid"`
	High    float64 `json:"high"`
	Energy  float64 `json:"energy"`

	// Timbre
	Harshness        float64 `json:"harshness"`
	SpectralFlatness float64 `json:"spectral_flatness"`
	SpectralCentroid float64 `json:"spectral_centroid"` // Hz
	Clarity          float64 `json:"clarity"`

	// Transients
	IsBeat bool `json:"is_beat"`
	Kick   bool `json:"kick"`
	Snare  bool `json:"snare"`
	HiHat  bool `json:"hihat"`
}

func (m MusicalContext) sanitized() MusicalContext {
	m.BPM = math.Max(0, finite(m.BPM))
	m.BeatPhase = lighting.Clamp01(finite(m.BeatPhase))
	m.Confidence = lighting.Clamp01(finite(m.Confidence))
	m.Energy = lighting.Clamp01(finite(m.Energy))
	m.Syncopation = lighting.Clamp01(finite(m.Syncopation))
	m.Section.Confidence = lighting.Clamp01(finite(m.Section.Confidence))
	return m
}

func (a AudioFrame) sanitized() AudioFrame {
	a.SubBass = lighting.Clamp01(finite(a.SubBass))
	a.Bass = lighting.Clamp01(finite(a.Bass))
	a.Mid = lighting.Clamp01(finite(a.Mid))
	a.High = lighting.Clamp01(finite(a.High))
	a.Energy = lighting.Clamp01(finite(a.Energy))
	a.Harshness = lighting.Clamp01(finite(a.Harshness))
	a.SpectralFlatness = lighting.Clamp01(finite(a.SpectralFlatness))
	a.SpectralCentroid = math.Max(0, finite(a.SpectralCentroid))
	a.Clarity = lighting.Clamp01(finite(a.Clarity))
	return a
}

// finite maps NaN and ±Inf to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// StabilizedState is the stabilised view of one frame, handed to the AI
// layer and exposed for diagnostics.
type StabilizedState struct {
	StableKey      string                 `json:"stable_key"`
	StableEmotion  lighting.MetaEmotion   `json:"stable_emotion"`
	StableStrategy lighting.ColorStrategy `json:"stable_strategy"`
	Mood           string                 `json:"mood,omitempty"`

	RawEnergy      float64              `json:"raw_energy"`
	SmoothedEnergy float64              `json:"smoothed_energy"`
	IsDropActive   bool                 `json:"is_drop_active"`
	DropState      stabilizer.DropState `json:"drop_state"`
	IsSilence      bool                 `json:"is_silence"`

	ThermalTemperatureK int                  `json:"thermal_temperature_k"`
	ContrastLevel       float64              `json:"contrast_level"`
	SectionType         lighting.SectionType `json:"section_type"`
	BPM                 float64              `json:"bpm"`

	VibeID  vibe.ID          `json:"vibe_id"`
	Palette lighting.Palette `json:"palette"`
}

// ─── Physics ────────────────────────────────────────────────────────────────

// ZoneIntensities is a per-zone intensity map produced by a physics
// collaborator. Left and Right are only read when Stereo is set.
type ZoneIntensities struct {
	Front   float64 `json:"front"`
	Back    float64 `json:"back"`
	Movers  float64 `json:"movers"`
	Ambient float64 `json:"ambient"`

	Stereo bool    `json:"stereo"`
	Left   float64 `json:"left,omitempty"`
	Right  float64 `json:"right,omitempty"`
}

// PanTilt is a normalised moving-head position.
type PanTilt struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

// Mechanics is an explicit pan/tilt pair that bypasses the movement
// generator.
type Mechanics struct {
	Left  PanTilt `json:"left"`
	Right PanTilt `json:"right"`
}

// PhysicsModifiers scale the physics collaborator's reactions. One is neutral.
type PhysicsModifiers struct {
	StrobeIntensity     float64 `json:"strobe_intensity"`
	FlashIntensity      float64 `json:"flash_intensity"`
	TriggerThresholdMod float64 `json:"trigger_threshold_mod"`
}

// NeutralModifiers returns modifiers that change nothing.
func NeutralModifiers() PhysicsModifiers {
	return PhysicsModifiers{StrobeIntensity: 1, FlashIntensity: 1, TriggerThresholdMod: 1}
}

// PhysicsResult is the physics collaborator's contribution to a frame.
type PhysicsResult struct {
	Applied        bool
	IsStrobeActive bool
	Zones          *ZoneIntensities
	Mechanics      *Mechanics
}

// ─── Movement ───────────────────────────────────────────────────────────────

// MovementContext is what a movement generator sees of the frame.
type MovementContext struct {
	Energy       float64              `json:"energy"`
	BPM          float64              `json:"bpm"`
	BeatPhase    float64              `json:"beat_phase"`
	IsBeat       bool                 `json:"is_beat"`
	Section      lighting.SectionType `json:"section"`
	IsDropActive bool                 `json:"is_drop_active"`
	Elapsed      time.Duration        `json:"elapsed"`
}

// MovementIntent is a movement generator's proposal. X and Y are in [-1, 1].
type MovementIntent struct {
	Pattern   string  `json:"pattern"`
	Speed     float64 `json:"speed"`
	Amplitude float64 `json:"amplitude"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	PhaseType string  `json:"phase_type,omitempty"`
}

// ─── Consciousness ──────────────────────────────────────────────────────────

// ColorDecision nudges the palette. Modifiers are clamped to [0.8, 1.2].
type ColorDecision struct {
	SuggestedStrategy lighting.ColorStrategy `json:"suggested_strategy,omitempty"`
	SaturationMod     float64                `json:"saturation_mod"`
	BrightnessMod     float64                `json:"brightness_mod"`
}

// EffectDecision asks for an effect to be fired.
type EffectDecision struct {
	EffectType string          `json:"effect_type"`
	Intensity  float64         `json:"intensity"`
	Zones      []lighting.Zone `json:"zones,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// Decision is one answer from the consciousness layer. Nil parts are
// ignored. Physics strobe and flash values are clamped to [0.3, 1].
type Decision struct {
	Color      *ColorDecision    `json:"color,omitempty"`
	Physics    *PhysicsModifiers `json:"physics,omitempty"`
	Effect     *EffectDecision   `json:"effect,omitempty"`
	Confidence float64           `json:"confidence"`
	Debug      string            `json:"debug,omitempty"`
}

// ─── Output ─────────────────────────────────────────────────────────────────

// IntentColor is an emitted colour. H is a fraction of a turn in [0, 1).
type IntentColor struct {
	H   float64 `json:"h"`
	S   float64 `json:"s"`
	L   float64 `json:"l"`
	Hex string  `json:"hex"`
}

func intentColor(c lighting.HSL) IntentColor {
	c = c.Sanitized()
	return IntentColor{H: c.H / 360, S: c.S, L: c.L, Hex: c.Hex()}
}

// IntentPalette is the emitted four-colour palette.
type IntentPalette struct {
	Primary   IntentColor            `json:"primary"`
	Secondary IntentColor            `json:"secondary"`
	Accent    IntentColor            `json:"accent"`
	Ambient   IntentColor            `json:"ambient"`
	Strategy  lighting.ColorStrategy `json:"strategy"`
}

func intentPalette(p lighting.Palette) IntentPalette {
	return IntentPalette{
		Primary:   intentColor(p.Primary),
		Secondary: intentColor(p.Secondary),
		Accent:    intentColor(p.Accent),
		Ambient:   intentColor(p.Ambient),
		Strategy:  p.Strategy,
	}
}

// ZoneIntent is the emitted state of one fixture zone.
type ZoneIntent struct {
	Intensity     float64              `json:"intensity"`
	Role          lighting.PaletteRole `json:"role"`
	ColorOverride *IntentColor         `json:"color_override,omitempty"`
}

// Movement sources.
const (
	MovementFromGenerator = "generator"
	MovementFromPhysics   = "physics"
	MovementFromFallback  = "fallback"
)

// MovementOutput is the emitted movement for moving heads. Centre and
// mechanics values are in [0, 1].
type MovementOutput struct {
	Pattern    string   `json:"pattern"`
	Speed      float64  `json:"speed"`
	Amplitude  float64  `json:"amplitude"`
	CenterX    float64  `json:"center_x"`
	CenterY    float64  `json:"center_y"`
	BeatSync   bool     `json:"beat_sync"`
	PhaseType  string   `json:"phase_type,omitempty"`
	MechanicsL *PanTilt `json:"mechanics_l,omitempty"`
	MechanicsR *PanTilt `json:"mechanics_r,omitempty"`
	Source     string   `json:"source"`
}

// Optics is the emitted zoom and focus. Zero is a tight, sharp beam.
type Optics struct {
	Zoom  float64 `json:"zoom"`
	Focus float64 `json:"focus"`
}

// EffectIntent is one emitted effect. Speed is the strobe rate normalised
// against 20 Hz.
type EffectIntent struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Phase     string          `json:"phase,omitempty"`
	Intensity float64         `json:"intensity"`
	Speed     float64         `json:"speed"`
	Zones     []lighting.Zone `json:"zones,omitempty"`
}

// Intent sources.
const (
	SourceEngine   = "engine"
	SourceFallback = "fallback"
)

// LightingIntent is the declarative lighting state of one frame.
type LightingIntent struct {
	Palette         IntentPalette                `json:"palette"`
	MasterIntensity float64                      `json:"master_intensity"`
	Zones           map[lighting.Zone]ZoneIntent `json:"zones"`
	Movement        MovementOutput               `json:"movement"`
	Optics          Optics                       `json:"optics"`
	Effects         []EffectIntent               `json:"effects"`

	// Effect overrides, zero when no effect drives the channel.
	White  float64 `json:"white"`
	Amber  float64 `json:"amber"`
	Strobe float64 `json:"strobe"`

	State     StabilizedState `json:"state"`
	VibeID    vibe.ID         `json:"vibe_id"`
	Source    string          `json:"source"`
	Frame     uint64          `json:"frame"`
	Timestamp time.Time       `json:"timestamp"`
}

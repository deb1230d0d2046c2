package lighting

// MetaEmotion is the three-class emotional taxonomy the mood arbiter votes over.
type MetaEmotion string

// Meta-emotion classes.
const (
	EmotionBright  MetaEmotion = "BRIGHT"
	EmotionDark    MetaEmotion = "DARK"
	EmotionNeutral MetaEmotion = "NEUTRAL"
)

// ValidEmotion reports whether e is a known meta-emotion.
func ValidEmotion(e MetaEmotion) bool {
	switch e {
	case EmotionBright, EmotionDark, EmotionNeutral:
		return true
	}
	return false
}

// HueShift returns the hue offset (degrees) associated with an emotion.
func (e MetaEmotion) HueShift() float64 {
	switch e {
	case EmotionBright:
		return 15
	case EmotionDark:
		return -15
	default:
		return 0
	}
}

// SaturationShift returns the saturation offset (fraction) associated with an emotion.
func (e MetaEmotion) SaturationShift() float64 {
	switch e {
	case EmotionBright:
		return 0.10
	case EmotionDark:
		return -0.05
	default:
		return 0
	}
}

// ColorStrategy is a colour-harmony rule used to derive secondary hues.
type ColorStrategy string

// Colour strategies.
const (
	StrategyAnalogous          ColorStrategy = "analogous"
	StrategyComplementary      ColorStrategy = "complementary"
	StrategyTriadic            ColorStrategy = "triadic"
	StrategySplitComplementary ColorStrategy = "split-complementary"
	StrategyMonochromatic      ColorStrategy = "monochromatic"
)

// ValidStrategy reports whether s is a known colour strategy.
func ValidStrategy(s ColorStrategy) bool {
	switch s {
	case StrategyAnalogous, StrategyComplementary, StrategyTriadic,
		StrategySplitComplementary, StrategyMonochromatic:
		return true
	}
	return false
}

// HueRotation returns the rotation (degrees) between the primary and the
// secondary hue for the strategy.
func (s ColorStrategy) HueRotation() float64 {
	switch s {
	case StrategyAnalogous:
		return 30
	case StrategyTriadic:
		return 120
	case StrategySplitComplementary:
		return 150
	case StrategyComplementary:
		return 180
	default:
		return 0
	}
}

// SectionType is the structural part of the song reported by the analyser.
type SectionType string

// Song sections.
const (
	SectionIntro     SectionType = "intro"
	SectionVerse     SectionType = "verse"
	SectionChorus    SectionType = "chorus"
	SectionBuildup   SectionType = "buildup"
	SectionDrop      SectionType = "drop"
	SectionBreakdown SectionType = "breakdown"
	SectionBridge    SectionType = "bridge"
	SectionOutro     SectionType = "outro"
	SectionUnknown   SectionType = "unknown"
)

// ParseSection maps a free-form section label onto a SectionType.
func ParseSection(s string) SectionType {
	switch SectionType(s) {
	case SectionIntro, SectionVerse, SectionChorus, SectionBuildup, SectionDrop,
		SectionBreakdown, SectionBridge, SectionOutro:
		return SectionType(s)
	}
	switch s {
	case "build", "build_up", "rise":
		return SectionBuildup
	case "hook":
		return SectionChorus
	case "break":
		return SectionBreakdown
	}
	return SectionUnknown
}

// Zone is a named fixture group targeted by intents and effects.
type Zone string

// Fixture zones.
const (
	ZoneAll     Zone = "all"
	ZoneFront   Zone = "front"
	ZoneBack    Zone = "back"
	ZoneMovers  Zone = "movers"
	ZonePars    Zone = "pars"
	ZoneLeft    Zone = "left"
	ZoneRight   Zone = "right"
	ZoneAmbient Zone = "ambient"
)

// PaletteRole names a slot of the four-colour palette.
type PaletteRole string

// Palette roles.
const (
	RolePrimary   PaletteRole = "primary"
	RoleSecondary PaletteRole = "secondary"
	RoleAccent    PaletteRole = "accent"
	RoleAmbient   PaletteRole = "ambient"
)

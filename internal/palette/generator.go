package palette

import (
	"math"
	"strings"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// Hue used when neither key nor mood is known, per stable emotion.
var emotionHues = map[lighting.MetaEmotion]float64{
	lighting.EmotionBright:  50,
	lighting.EmotionDark:    240,
	lighting.EmotionNeutral: 120,
}

const (
	baseSaturation = 0.65
	baseLightness  = 0.40
	minSeparation  = 30.0
)

// Request carries the stabilised musical state a palette is built from.
type Request struct {
	Key      string
	Mode     string
	Mood     string
	Emotion  lighting.MetaEmotion
	Strategy lighting.ColorStrategy

	Energy        float64
	ContrastLevel float64

	// SaturationMin and SaturationMax bound the base saturation. Both zero
	// leaves it unbounded.
	SaturationMin float64
	SaturationMax float64
}

// Generator is the default deterministic palette generator.
type Generator struct{}

// NewGenerator creates a palette generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds a palette for req, shaped and legalised by c when c is
// not nil. The same inputs always yield the same palette.
func (g *Generator) Generate(req Request, c *constitution.Constitution) lighting.Palette {
	hue := baseHue(req)
	mod := modeModifiers[strings.ToLower(strings.TrimSpace(req.Mode))]
	energy := lighting.Clamp01(req.Energy)
	contrast := lighting.Clamp01(req.ContrastLevel)

	hue = lighting.NormalizeHue(hue + mod.hue + req.Emotion.HueShift())
	sat := baseSaturation + 0.3*energy + mod.sat + req.Emotion.SaturationShift()
	if req.SaturationMax > 0 {
		sat = lighting.Clamp(sat, req.SaturationMin, req.SaturationMax)
	}
	light := baseLightness + 0.15*energy + mod.light

	strategy := req.Strategy
	if c != nil && c.ForceStrategy != "" {
		strategy = c.ForceStrategy
	}
	if !lighting.ValidStrategy(strategy) {
		strategy = lighting.StrategyAnalogous
	}
	rot := strategy.HueRotation()

	primary := lighting.HSL{H: hue, S: sat, L: light}.Sanitized()

	secondary := primary.Rotate(rot)
	if strategy == lighting.StrategyMonochromatic {
		secondary.L = lighting.Clamp(primary.L-0.15-0.1*contrast, 0.1, 0.9)
	}

	accent := primary.Rotate(accentOffset(strategy))
	accent.S = math.Max(0.8, primary.S)
	accent.L = lighting.Clamp(primary.L*1.1+0.1*contrast, 0.55, 0.75)

	ambient := lighting.HSL{
		H: lighting.NormalizeHue(primary.H + rot/2),
		S: primary.S * 0.8,
		L: lighting.Clamp(primary.L*0.6, 0.15, 0.5),
	}
	switch {
	case c != nil && c.TropicalMirror:
		ambient = lighting.HSL{
			H: lighting.NormalizeHue(secondary.H + 180),
			S: math.Max(secondary.S, 0.7),
			L: lighting.Clamp(secondary.L*1.1, 0.4, 0.6),
		}
	case strategy != lighting.StrategyMonochromatic && (c == nil || c.AmbientLock == nil):
		if math.Abs(lighting.HueDelta(ambient.H, secondary.H)) < minSeparation {
			ambient = ambient.Rotate(45)
		}
	}

	p := lighting.Palette{
		Primary:   primary,
		Secondary: secondary,
		Accent:    accent,
		Ambient:   ambient,
		Strategy:  strategy,
	}
	if c != nil {
		p = p.Map(c.Apply)
	}
	return p
}

func baseHue(req Request) float64 {
	if h, ok := KeyHue(req.Key); ok {
		return h
	}
	if h, ok := MoodHue(req.Mood); ok {
		return h
	}
	if h, ok := emotionHues[req.Emotion]; ok {
		return h
	}
	return emotionHues[lighting.EmotionNeutral]
}

// accentOffset places the accent on the side of the wheel the secondary
// does not use.
func accentOffset(s lighting.ColorStrategy) float64 {
	switch s {
	case lighting.StrategyAnalogous:
		return -30
	case lighting.StrategyComplementary:
		return 210
	case lighting.StrategyTriadic:
		return 240
	case lighting.StrategySplitComplementary:
		return 210
	default:
		return 0
	}
}

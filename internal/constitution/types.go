package constitution

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// Defaults applied to fields a constitution leaves out.
const (
	DefaultGravityStrength = 0.35
	DefaultElasticStep     = 15.0
)

// HueRange is an inclusive hue range in degrees. Min > Max wraps through 0.
// In YAML it is written as a two-element list: [min, max].
type HueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// UnmarshalYAML decodes a [min, max] pair.
func (r *HueRange) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("hue range must have two elements, got %d", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// Contains reports whether hue h (any value) lies in the range.
func (r HueRange) Contains(h float64) bool {
	h = lighting.NormalizeHue(h)
	lo, hi := r.Min, r.Max
	if hi >= 360 {
		hi = 360
	}
	if lo <= hi {
		return h >= lo && h <= hi
	}
	return h >= lo || h <= hi
}

// Width returns the angular size of the range in degrees.
func (r HueRange) Width() float64 {
	if r.Min <= r.Max {
		return r.Max - r.Min
	}
	return 360 - r.Min + r.Max
}

// position returns where h sits inside the range, from 0 at Min to 1 at Max.
func (r HueRange) position(h float64) float64 {
	w := r.Width()
	if w <= 0 {
		return 0.5
	}
	offset := lighting.NormalizeHue(lighting.NormalizeHue(h) - r.Min)
	return lighting.Clamp01(offset / w)
}

// Range is an inclusive range of fractions.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return lighting.Clamp(v, r.Min, r.Max)
}

// RemapBand moves every hue in [From, To] to Target. Spread keeps some of
// the original variation: the band maps onto Target ± Spread/2.
type RemapBand struct {
	From   float64 `yaml:"from" json:"from"`
	To     float64 `yaml:"to" json:"to"`
	Target float64 `yaml:"target" json:"target"`
	Spread float64 `yaml:"spread" json:"spread"`
}

// NeonMode selects how the neon protocol treats a hue in its danger zone.
type NeonMode string

const (
	// NeonColdEscape rotates the hue into the cyan band (170°–210°).
	NeonColdEscape NeonMode = "cold_escape"

	// NeonBoost pushes saturation and lightness up to neon levels, or
	// collapses the colour toward white when it is too dark to glow.
	NeonBoost NeonMode = "boost"
)

// NeonProtocol turns warm, muddy hues into either neon or near-white.
type NeonProtocol struct {
	DangerZone      HueRange `yaml:"danger_zone" json:"danger_zone"`
	Mode            NeonMode `yaml:"mode" json:"mode"`
	MinSaturation   float64  `yaml:"min_saturation" json:"min_saturation"`
	MinLightness    float64  `yaml:"min_lightness" json:"min_lightness"`
	FallbackToWhite bool     `yaml:"fallback_to_white" json:"fallback_to_white"`
}

// MudGuard lifts saturation and lightness inside a swamp zone so oranges
// and yellows do not render brown.
type MudGuard struct {
	SwampZone     HueRange `yaml:"swamp_zone" json:"swamp_zone"`
	MinLightness  float64  `yaml:"min_lightness" json:"min_lightness"`
	MinSaturation float64  `yaml:"min_saturation" json:"min_saturation"`
}

// DimmingPolicy bounds master intensity for the vibe.
type DimmingPolicy struct {
	Floor   float64 `yaml:"floor" json:"floor"`
	Ceiling float64 `yaml:"ceiling" json:"ceiling"`
}

// Constitution is the colour law of one vibe.
type Constitution struct {
	ID string `yaml:"id" json:"id"`

	// AtmosphericTempK sets the thermal pole; zero disables gravity.
	AtmosphericTempK float64 `yaml:"atmospheric_temp_k" json:"atmospheric_temp_k"`
	GravityStrength  float64 `yaml:"gravity_strength" json:"gravity_strength"`

	ForbiddenHues []HueRange  `yaml:"forbidden_hues" json:"forbidden_hues,omitempty"`
	AllowedHues   []HueRange  `yaml:"allowed_hues" json:"allowed_hues,omitempty"`
	ElasticStep   float64     `yaml:"elastic_step" json:"elastic_step"`
	RemapBands    []RemapBand `yaml:"remap" json:"remap,omitempty"`

	Saturation   Range         `yaml:"saturation" json:"saturation"`
	Lightness    Range         `yaml:"lightness" json:"lightness"`
	NeonProtocol *NeonProtocol `yaml:"neon" json:"neon,omitempty"`
	MudGuard     *MudGuard     `yaml:"mud_guard" json:"mud_guard,omitempty"`

	ForceStrategy    lighting.ColorStrategy `yaml:"force_strategy" json:"force_strategy,omitempty"`
	TropicalMirror   bool                   `yaml:"tropical_mirror" json:"tropical_mirror"`
	AmbientLock      *lighting.HSL          `yaml:"ambient_lock" json:"ambient_lock,omitempty"`
	AccentBehavior   string                 `yaml:"accent_behavior" json:"accent_behavior"`
	StrobeColor      *lighting.RGB          `yaml:"strobe_color" json:"strobe_color,omitempty"`
	StrobeProhibited bool                   `yaml:"strobe_prohibited" json:"strobe_prohibited"`

	Dimming DimmingPolicy `yaml:"dimming" json:"dimming"`
}

// UnmarshalYAML decodes a constitution on top of the defaults so omitted
// fields keep their default values.
func (c *Constitution) UnmarshalYAML(value *yaml.Node) error {
	type plain Constitution
	p := plain(defaults())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Constitution(p)
	return nil
}

func defaults() Constitution {
	return Constitution{
		GravityStrength: DefaultGravityStrength,
		ElasticStep:     DefaultElasticStep,
		Saturation:      Range{Min: 0, Max: 1},
		Lightness:       Range{Min: 0, Max: 1},
		Dimming:         DimmingPolicy{Floor: 0, Ceiling: 1},
	}
}

// Validate checks the constitution for internal consistency.
func (c *Constitution) Validate() error {
	var errs []string
	if c.ID == "" {
		errs = append(errs, "id is required")
	}
	if c.ElasticStep <= 0 || c.ElasticStep > 180 {
		errs = append(errs, "elastic_step must be in (0, 180]")
	}
	if c.GravityStrength < 0 || c.GravityStrength > 1 {
		errs = append(errs, "gravity_strength must be in [0, 1]")
	}
	if !unitRange(c.Saturation) {
		errs = append(errs, "saturation must satisfy 0 <= min <= max <= 1")
	}
	if !unitRange(c.Lightness) {
		errs = append(errs, "lightness must satisfy 0 <= min <= max <= 1")
	}
	for _, r := range append(append([]HueRange{}, c.ForbiddenHues...), c.AllowedHues...) {
		if r.Min < 0 || r.Min > 360 || r.Max < 0 || r.Max > 360 {
			errs = append(errs, fmt.Sprintf("hue range [%v, %v] outside [0, 360]", r.Min, r.Max))
		}
	}
	for _, b := range c.RemapBands {
		if b.Spread < 0 || b.Spread > 180 {
			errs = append(errs, fmt.Sprintf("remap spread %v outside [0, 180]", b.Spread))
		}
	}
	if c.NeonProtocol != nil && c.NeonProtocol.Mode != NeonColdEscape && c.NeonProtocol.Mode != NeonBoost {
		errs = append(errs, fmt.Sprintf("neon mode %q unknown", c.NeonProtocol.Mode))
	}
	if c.ForceStrategy != "" && !lighting.ValidStrategy(c.ForceStrategy) {
		errs = append(errs, fmt.Sprintf("force_strategy %q unknown", c.ForceStrategy))
	}
	if c.Dimming.Floor < 0 || c.Dimming.Floor > c.Dimming.Ceiling || c.Dimming.Ceiling > 1 {
		errs = append(errs, "dimming must satisfy 0 <= floor <= ceiling <= 1")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidConstitution, c.ID, strings.Join(errs, "; "))
	}
	return nil
}

func unitRange(r Range) bool {
	return r.Min >= 0 && r.Min <= r.Max && r.Max <= 1
}

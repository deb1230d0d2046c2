package lighting

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSL is a colour with hue in degrees [0,360) and saturation/lightness in [0,1].
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// RGB is an 8-bit RGB triple.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// NormalizeHue maps any hue onto [0,360). NaN and infinities map to 0.
func NormalizeHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// Clamp01 clamps v into [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp clamps v into [lo,hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// HueDelta returns the signed shortest rotation from a to b, in (-180,180].
func HueDelta(a, b float64) float64 {
	d := NormalizeHue(b) - NormalizeHue(a)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// Sanitized returns c with a normalised hue and saturation/lightness clamped into [0,1].
func (c HSL) Sanitized() HSL {
	return HSL{H: NormalizeHue(c.H), S: Clamp01(c.S), L: Clamp01(c.L)}
}

// Rotate returns c with its hue rotated by deg degrees.
func (c HSL) Rotate(deg float64) HSL {
	c.H = NormalizeHue(c.H + deg)
	return c
}

// RGB converts c to 8-bit RGB.
func (c HSL) RGB() RGB {
	s := c.Sanitized()
	r, g, b := colorful.Hsl(s.H, s.S, s.L).Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Hex returns the #rrggbb form of c.
func (c HSL) Hex() string {
	s := c.Sanitized()
	return colorful.Hsl(s.H, s.S, s.L).Clamped().Hex()
}

// HSL converts an RGB triple to HSL.
func (c RGB) HSL() HSL {
	col := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := col.Hsl()
	return HSL{H: h, S: s, L: l}.Sanitized()
}

// LerpRGB interpolates linearly per channel from a to b; t is clamped into [0,1].
func LerpRGB(a, b RGB, t float64) RGB {
	t = Clamp01(t)
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()
	return RGB{R: r, G: g, B: bl}
}

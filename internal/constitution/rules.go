package constitution

import (
	"math"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// Thermal gravity poles and the neutral daylight band where gravity is off.
const (
	ColdPole        = 240.0
	WarmPole        = 40.0
	neutralLowK     = 5800.0
	neutralHighK    = 6200.0
	gravitySpanK    = 2800.0
	warmEscapeMaxH  = 85.0
	coldEscapeBase  = 170.0
	coldEscapeWidth = 40.0
	boostWindow     = 0.25
	nearWhiteSat    = 0.05
	nearWhiteLight  = 0.95
)

// Gravity pulls hue toward the thermal pole of the atmospheric temperature.
//
// Above 6200 K the pole is 240° (cold), below 5800 K it is 40° (warm). The
// pull is min(|ΔK|/2800, 1) · GravityStrength of the shortest path to the
// pole, except that warm hues (0°–85°) pulled toward the cold pole always
// travel forward through green so they never slide back into orange.
func (c *Constitution) Gravity(hue float64) float64 {
	hue = lighting.NormalizeHue(hue)
	k := c.AtmosphericTempK
	if k <= 0 || (k >= neutralLowK && k <= neutralHighK) {
		return hue
	}

	var pole, raw float64
	if k > neutralHighK {
		pole = ColdPole
		raw = (k - neutralHighK) / gravitySpanK
	} else {
		pole = WarmPole
		raw = (neutralLowK - k) / gravitySpanK
	}
	force := math.Min(raw, 1) * c.GravityStrength

	delta := lighting.HueDelta(hue, pole)
	if pole == ColdPole && hue <= warmEscapeMaxH {
		delta = pole - hue
	}
	return lighting.NormalizeHue(hue + delta*force)
}

// Remap moves a hue inside the first matching remap band to that band's
// target, keeping Spread degrees of the original variation.
// The second result reports whether a band matched.
func (c *Constitution) Remap(hue float64) (float64, bool) {
	hue = lighting.NormalizeHue(hue)
	for _, b := range c.RemapBands {
		band := HueRange{Min: b.From, Max: b.To}
		if !band.Contains(hue) {
			continue
		}
		offset := (band.position(hue) - 0.5) * b.Spread
		return lighting.NormalizeHue(b.Target + offset), true
	}
	return hue, false
}

// IsHueForbidden reports whether hue falls in any forbidden range.
func (c *Constitution) IsHueForbidden(hue float64) bool {
	for _, r := range c.ForbiddenHues {
		if r.Contains(hue) {
			return true
		}
	}
	return false
}

// IsHueLegal reports whether hue is not forbidden and, when the
// constitution restricts allowed hues, lies inside an allowed range.
func (c *Constitution) IsHueLegal(hue float64) bool {
	if c.IsHueForbidden(hue) {
		return false
	}
	if !c.restrictsAllowed() {
		return true
	}
	for _, r := range c.AllowedHues {
		if r.Contains(hue) {
			return true
		}
	}
	return false
}

// restrictsAllowed is false when there are no allowed ranges or one of
// them spans the whole circle.
func (c *Constitution) restrictsAllowed() bool {
	if len(c.AllowedHues) == 0 {
		return false
	}
	for _, r := range c.AllowedHues {
		if r.Width() >= 359 {
			return false
		}
	}
	return true
}

// MaxElasticIterations is the rotation bound: ceil(360 / step).
func (c *Constitution) MaxElasticIterations() int {
	return int(math.Ceil(360 / c.step()))
}

func (c *Constitution) step() float64 {
	if c.ElasticStep <= 0 {
		return DefaultElasticStep
	}
	return c.ElasticStep
}

// ElasticRotate rotates an illegal hue forward by ElasticStep until it is
// legal. After MaxElasticIterations it snaps to the nearest legal allowed
// boundary, and if there is none it returns the last candidate.
func (c *Constitution) ElasticRotate(hue float64) float64 {
	h, _ := c.elasticRotate(hue)
	return h
}

// elasticRotate also returns the number of rotation steps taken.
func (c *Constitution) elasticRotate(hue float64) (float64, int) {
	h := lighting.NormalizeHue(hue)
	if c.IsHueLegal(h) {
		return h, 0
	}

	step := c.step()
	limit := c.MaxElasticIterations()
	n := 0
	for n < limit {
		h = lighting.NormalizeHue(h + step)
		n++
		if c.IsHueLegal(h) {
			return h, n
		}
	}

	if snapped, ok := c.snapToAllowed(hue); ok {
		return snapped, n
	}
	return h, n
}

// snapToAllowed returns the legal allowed-range boundary closest to hue.
func (c *Constitution) snapToAllowed(hue float64) (float64, bool) {
	best, bestDist, found := 0.0, math.Inf(1), false
	for _, r := range c.AllowedHues {
		for _, edge := range []float64{r.Min, r.Max} {
			edge = lighting.NormalizeHue(edge)
			if !c.IsHueLegal(edge) {
				continue
			}
			if d := math.Abs(lighting.HueDelta(hue, edge)); d < bestDist {
				best, bestDist, found = edge, d, true
			}
		}
	}
	return best, found
}

// Neon applies the neon protocol to a colour. Hues outside the danger
// zone, or constitutions without a protocol, pass through unchanged.
//
// Cold escape spreads the danger zone across 170°–210° and raises
// saturation to MinSaturation. Boost raises saturation and lightness to
// neon levels when the colour is close enough to glow; otherwise, with
// FallbackToWhite, it collapses to near-white.
func (c *Constitution) Neon(col lighting.HSL) lighting.HSL {
	p := c.NeonProtocol
	if p == nil {
		return col
	}
	col = col.Sanitized()
	if !p.DangerZone.Contains(col.H) {
		return col
	}

	switch p.Mode {
	case NeonColdEscape:
		pos := p.DangerZone.position(col.H)
		return lighting.HSL{
			H: lighting.NormalizeHue(coldEscapeBase + pos*coldEscapeWidth),
			S: math.Max(col.S, p.MinSaturation),
			L: col.L,
		}
	case NeonBoost:
		if col.L >= p.MinLightness-boostWindow || !p.FallbackToWhite {
			return lighting.HSL{
				H: col.H,
				S: math.Max(col.S, p.MinSaturation),
				L: math.Max(col.L, p.MinLightness),
			}
		}
		return lighting.HSL{H: col.H, S: nearWhiteSat, L: nearWhiteLight}
	}
	return col
}

// guardMud lifts saturation and lightness of swamp-zone hues.
func (c *Constitution) guardMud(col lighting.HSL) lighting.HSL {
	g := c.MudGuard
	if g == nil || !g.SwampZone.Contains(col.H) {
		return col
	}
	col.S = math.Max(col.S, g.MinSaturation)
	col.L = math.Max(col.L, g.MinLightness)
	return col
}

// Apply runs the full rule pipeline on a colour for a palette role.
//
// The result always has a legal hue unless every hue on the circle is
// illegal. Saturation and lightness stay in [0, 1].
func (c *Constitution) Apply(col lighting.HSL, role lighting.PaletteRole) lighting.HSL {
	col = col.Sanitized()

	col.H = c.Gravity(col.H)
	col.H, _ = c.Remap(col.H)
	col.H = c.ElasticRotate(col.H)
	return c.Conform(col, role)
}

// Conform applies the saturation, lightness and role rules to a colour
// whose hue is already placed. Unlike Apply it does not pull the hue
// again, so it is safe to run on palette colours after rescaling them.
// Neon may still move a hue out of its danger zone.
func (c *Constitution) Conform(col lighting.HSL, role lighting.PaletteRole) lighting.HSL {
	col = col.Sanitized()

	col.S = c.Saturation.Clamp(col.S)
	col.L = c.Lightness.Clamp(col.L)
	col = c.guardMud(col)

	if role == lighting.RoleAmbient && c.AmbientLock != nil {
		col = c.AmbientLock.Sanitized()
	} else if role != lighting.RolePrimary {
		col = c.Neon(col)
	}

	col.H = c.ElasticRotate(col.H)
	col.S = lighting.Clamp01(col.S)
	col.L = lighting.Clamp01(col.L)
	return col
}

// ClampDimmer limits master intensity to the dimming policy's ceiling.
// The floor is owned by the vibe profile; only the ceiling applies here.
func (c *Constitution) ClampDimmer(v float64) float64 {
	return math.Min(lighting.Clamp01(v), c.Dimming.Ceiling)
}

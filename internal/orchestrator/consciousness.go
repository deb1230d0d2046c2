package orchestrator

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/effects"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/palette"
)

// Bounds for AI modifiers.
const (
	minColorMod   = 0.8
	maxColorMod   = 1.2
	minPhysicsMod = 0.3
	maxPhysicsMod = 1.0
)

type decisionResult struct {
	decision Decision
	err      error
}

// consult asks the consciousness layer for a decision. A disabled layer, a
// timeout, an error or low confidence all mean "no decision".
func (e *Engine) consult(ctx context.Context, st StabilizedState) (Decision, bool) {
	if e.consciousness == nil || !e.aiEnabled {
		return Decision{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.AITimeout)
	defer cancel()

	// Buffered so an abandoned call can still finish and exit.
	ch := make(chan decisionResult, 1)
	go func(ai Consciousness) {
		d, err := ai.Process(ctx, st)
		ch <- decisionResult{decision: d, err: err}
	}(e.consciousness)

	select {
	case r := <-ch:
		switch {
		case errors.Is(r.err, context.DeadlineExceeded):
			e.stats.AITimeouts++
			return Decision{}, false
		case r.err != nil:
			e.stats.AIErrors++
			e.logThrottled("ai-error", "consciousness failed", "error", r.err)
			return Decision{}, false
		case r.decision.Confidence < e.cfg.AIConfidenceThreshold:
			e.stats.AIRejected++
			return Decision{}, false
		}
		e.stats.AIAccepted++
		return r.decision, true
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.stats.AITimeouts++
			e.logThrottled("ai-timeout", "consciousness timed out", "timeout", e.cfg.AITimeout)
		}
		return Decision{}, false
	}
}

// applyDecision applies an accepted decision and returns the new palette.
// Physics modifiers are vetoed outright at high smoothed energy.
func (e *Engine) applyDecision(d Decision, st StabilizedState, req palette.Request, c *constitution.Constitution, pal lighting.Palette) lighting.Palette {
	if d.Color != nil {
		pal = e.recolor(*d.Color, req, c, pal)
	}

	if d.Physics != nil {
		if st.SmoothedEnergy >= e.cfg.PhysicsVetoEnergy {
			e.stats.AIPhysicsVetoed++
		} else {
			e.modifiers = PhysicsModifiers{
				StrobeIntensity:     clampMod(d.Physics.StrobeIntensity, minPhysicsMod, maxPhysicsMod),
				FlashIntensity:      clampMod(d.Physics.FlashIntensity, minPhysicsMod, maxPhysicsMod),
				TriggerThresholdMod: clampMod(d.Physics.TriggerThresholdMod, minColorMod, maxColorMod),
			}
		}
	}

	if d.Effect != nil && d.Effect.EffectType != "" {
		cfg := effects.TriggerConfig{
			Type:      d.Effect.EffectType,
			Intensity: d.Effect.Intensity,
			Zones:     d.Effect.Zones,
			Source:    SourceConsciousness,
		}
		if _, err := e.trigger(cfg); err != nil {
			e.stats.EffectsRejected++
			e.logThrottled("ai-effect", "consciousness effect rejected", "type", cfg.Type, "reason", d.Effect.Reason, "error", err)
		}
	}
	return pal
}

// recolor regenerates the palette for a suggested strategy and scales
// saturation and lightness. The scaled colours go back through the
// constitution's role rules so neon and mud guard still hold.
func (e *Engine) recolor(cd ColorDecision, req palette.Request, c *constitution.Constitution, pal lighting.Palette) lighting.Palette {
	if lighting.ValidStrategy(cd.SuggestedStrategy) {
		if s, _ := e.vibes.ConstrainStrategy(cd.SuggestedStrategy); s != req.Strategy {
			req.Strategy = s
			pal = e.palette.Generate(req, c)
		}
	}

	sm := clampMod(cd.SaturationMod, minColorMod, maxColorMod)
	lm := clampMod(cd.BrightnessMod, minColorMod, maxColorMod)
	if sm == 1 && lm == 1 {
		return pal
	}
	return pal.Map(func(col lighting.HSL, role lighting.PaletteRole) lighting.HSL {
		col.S = lighting.Clamp01(col.S * sm)
		col.L = lighting.Clamp01(col.L * lm)
		return c.Conform(col, role)
	})
}

// clampMod bounds a modifier. Zero, negative and non-finite values mean
// "no change".
func clampMod(v, lo, hi float64) float64 {
	v = finite(v)
	if v <= 0 {
		return 1
	}
	return lighting.Clamp(v, lo, hi)
}

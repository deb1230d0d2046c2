package orchestrator

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/effects"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/palette"
)

func confident(d Decision) *mockConsciousness {
	d.Confidence = 0.9
	return &mockConsciousness{decision: d}
}

// ─── Consultation ───────────────────────────────────────────────────

func TestConsult_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		ai      *mockConsciousness
		timeout time.Duration
		check   func(Stats) bool
	}{
		{
			name:  "accepted",
			ai:    confident(Decision{}),
			check: func(s Stats) bool { return s.AIAccepted == 1 },
		},
		{
			name:  "low confidence",
			ai:    &mockConsciousness{decision: Decision{Confidence: 0.5}},
			check: func(s Stats) bool { return s.AIRejected == 1 && s.AIAccepted == 0 },
		},
		{
			name:  "error",
			ai:    &mockConsciousness{err: errors.New("model unavailable")},
			check: func(s Stats) bool { return s.AIErrors == 1 && s.AIAccepted == 0 },
		},
		{
			name:    "timeout",
			ai:      &mockConsciousness{block: true},
			timeout: 10 * time.Millisecond,
			check:   func(s Stats) bool { return s.AITimeouts == 1 && s.AIAccepted == 0 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastConfig("idle")
			if tt.timeout > 0 {
				cfg.AITimeout = tt.timeout
			}
			e, clk := newTestEngine(t, cfg, Deps{Consciousness: tt.ai})
			step(e, clk, MusicalContext{}, audioAt(0.4))

			if got := e.State().Stats; !tt.check(got) {
				t.Errorf("Stats = %+v", got)
			}
			if n := tt.ai.calls.Load(); n != 1 {
				t.Errorf("Process calls = %d, want 1", n)
			}
		})
	}
}

func TestConsult_Disabled(t *testing.T) {
	ai := confident(Decision{})
	e, clk := newTestEngine(t, fastConfig("idle"), Deps{Consciousness: ai})

	e.SetConsciousnessEnabled(false)
	e.SetConsciousnessEnabled(false)
	step(e, clk, MusicalContext{}, audioAt(0.4))

	if n := ai.calls.Load(); n != 0 {
		t.Errorf("Process calls = %d, want 0 while disabled", n)
	}
	events := eventsOf(drain(e), EventConsciousnessToggled)
	if len(events) != 1 || events[0].Fields["enabled"] != false {
		t.Errorf("toggle events = %+v, want one disable", events)
	}

	e.SetConsciousnessEnabled(true)
	step(e, clk, MusicalContext{}, audioAt(0.4))
	if n := ai.calls.Load(); n != 1 {
		t.Errorf("Process calls = %d after re-enable, want 1", n)
	}
}

// ─── Colour ─────────────────────────────────────────────────────────

func TestApplyDecision_LowConfidenceLeavesPaletteAlone(t *testing.T) {
	mc := MusicalContext{Key: "A", Mood: "calm", Confidence: 0.9}

	plain, plainClk := newTestEngine(t, fastConfig("idle"), Deps{})
	want := step(plain, plainClk, mc, audioAt(0.4)).Palette

	ai := &mockConsciousness{decision: Decision{
		Color:      &ColorDecision{SaturationMod: 0.8, BrightnessMod: 1.2},
		Confidence: 0.5,
	}}
	e, clk := newTestEngine(t, fastConfig("idle"), Deps{Consciousness: ai})
	got := step(e, clk, mc, audioAt(0.4)).Palette

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("palette changed by a rejected decision (-want +got):\n%s", diff)
	}
}

func TestApplyDecision_SaturationKeepsHue(t *testing.T) {
	mc := MusicalContext{Key: "E", Mood: "dreamy", Confidence: 0.9}
	c := constitutionFor(t, "idle")

	plain, plainClk := newTestEngine(t, fastConfig("idle"), Deps{})
	base := step(plain, plainClk, mc, audioAt(0.4)).State.Palette

	ai := confident(Decision{Color: &ColorDecision{SaturationMod: 0.8}})
	e, clk := newTestEngine(t, fastConfig("idle"), Deps{Consciousness: ai})
	got := step(e, clk, mc, audioAt(0.4)).State.Palette

	pairs := []struct {
		role        lighting.PaletteRole
		base, tuned lighting.HSL
	}{
		{lighting.RolePrimary, base.Primary, got.Primary},
		{lighting.RoleSecondary, base.Secondary, got.Secondary},
		{lighting.RoleAccent, base.Accent, got.Accent},
		{lighting.RoleAmbient, base.Ambient, got.Ambient},
	}
	for _, p := range pairs {
		if p.tuned.H != p.base.H {
			t.Errorf("%s hue = %v, want unchanged %v", p.role, p.tuned.H, p.base.H)
		}
		want := c.Saturation.Clamp(lighting.Clamp01(p.base.S * 0.8))
		if !near(p.tuned.S, want) {
			t.Errorf("%s saturation = %v, want %v", p.role, p.tuned.S, want)
		}
	}
}

// fixedPalette returns the same palette every frame, run through the
// constitution like the real generator does.
type fixedPalette struct {
	pal lighting.Palette
}

func (f fixedPalette) Generate(_ palette.Request, c *constitution.Constitution) lighting.Palette {
	return f.pal.Map(c.Apply)
}

func TestApplyDecision_RecolorKeepsNeonProtocol(t *testing.T) {
	c := constitutionFor(t, "fiesta-latina")
	neon := c.NeonProtocol
	gen := fixedPalette{pal: lighting.Palette{
		Primary:   lighting.HSL{H: 350, S: 0.9, L: 0.55},
		Secondary: lighting.HSL{H: 40, S: 0.9, L: 0.75},
		Accent:    lighting.HSL{H: 30, S: 0.9, L: 0.3},
		Ambient:   lighting.HSL{H: 300, S: 0.8, L: 0.5},
	}}

	mods := []ColorDecision{
		{BrightnessMod: 0.9},
		{BrightnessMod: 0.8, SaturationMod: 0.8},
		{BrightnessMod: 1.2},
	}
	for _, cd := range mods {
		ai := confident(Decision{Color: &cd})
		e, clk := newTestEngine(t, fastConfig("fiesta-latina"), Deps{Palette: gen, Consciousness: ai})
		got := step(e, clk, MusicalContext{Key: "A", Confidence: 0.9}, audioAt(0.5)).State.Palette

		if n := e.State().Stats.AIAccepted; n != 1 {
			t.Fatalf("AIAccepted = %d, want 1", n)
		}
		for _, slot := range []struct {
			role lighting.PaletteRole
			col  lighting.HSL
		}{
			{lighting.RoleSecondary, got.Secondary},
			{lighting.RoleAccent, got.Accent},
		} {
			if !neon.DangerZone.Contains(slot.col.H) {
				continue
			}
			boosted := slot.col.L >= neon.MinLightness-tolerance && slot.col.S >= neon.MinSaturation-tolerance
			white := near(slot.col.S, 0.05) && near(slot.col.L, 0.95)
			if !boosted && !white {
				t.Errorf("mods %+v: %s = %+v sits in the danger zone neither boosted nor near-white", cd, slot.role, slot.col)
			}
		}
	}
}

func TestApplyDecision_SuggestedStrategy(t *testing.T) {
	ai := confident(Decision{Color: &ColorDecision{SuggestedStrategy: lighting.StrategyMonochromatic}})
	e, clk := newTestEngine(t, fastConfig("techno-club"), Deps{Consciousness: ai})
	got := step(e, clk, MusicalContext{Key: "Dm", Confidence: 0.9}, audioAt(0.5))

	if got.Palette.Strategy != lighting.StrategyMonochromatic {
		t.Errorf("Strategy = %q, want monochromatic", got.Palette.Strategy)
	}
}

// ─── Physics ────────────────────────────────────────────────────────

func TestApplyDecision_PhysicsVetoedAtHighEnergy(t *testing.T) {
	phys := &mockPhysics{}
	ai := confident(Decision{Physics: &PhysicsModifiers{StrobeIntensity: 0.3, FlashIntensity: 0.3, TriggerThresholdMod: 1}})
	e, clk := newTestEngine(t, fastConfig("techno-club"), Deps{Physics: phys, Consciousness: ai})

	var got LightingIntent
	for range 2 {
		got = step(e, clk, MusicalContext{}, audioAt(1))
	}

	if len(got.Effects) == 0 || got.Effects[0].Type != "strobe" || got.Effects[0].Intensity != 1 {
		t.Errorf("Effects = %+v, want full strobe", got.Effects)
	}
	if n := e.State().Stats.AIPhysicsVetoed; n != 2 {
		t.Errorf("AIPhysicsVetoed = %d, want 2", n)
	}
	for i, m := range phys.mods {
		if m != NeutralModifiers() {
			t.Errorf("frame %d: physics saw %+v, want neutral", i, m)
		}
	}
}

// gatedPhysics asks for a strobe only when the strobe modifier is at full
// strength, so AI damping shows up in the emitted effects.
type gatedPhysics struct {
	mods []PhysicsModifiers
}

func (g *gatedPhysics) Update(_ MusicalContext, _ lighting.Palette, _ AudioFrame, mods PhysicsModifiers) PhysicsResult {
	g.mods = append(g.mods, mods)
	return PhysicsResult{Applied: true, IsStrobeActive: mods.StrobeIntensity >= 1}
}

func TestApplyDecision_PhysicsVetoedOnCrossingFrame(t *testing.T) {
	run := func(ai Consciousness) (*gatedPhysics, LightingIntent) {
		phys := &gatedPhysics{}
		e, clk := newTestEngine(t, fastConfig("techno-club"), Deps{Physics: phys, Consciousness: ai})
		step(e, clk, MusicalContext{}, audioAt(0.6))
		return phys, step(e, clk, MusicalContext{}, audioAt(0.9))
	}

	ai := confident(Decision{Physics: &PhysicsModifiers{StrobeIntensity: 0.3, FlashIntensity: 0.3, TriggerThresholdMod: 1}})
	phys, got := run(ai)
	_, want := run(nil)

	if len(phys.mods) != 2 || phys.mods[1] != NeutralModifiers() {
		t.Errorf("physics modifiers = %+v, want neutral on the crossing frame", phys.mods)
	}
	if diff := cmp.Diff(want.Effects, got.Effects); diff != "" {
		t.Errorf("AI modifiers changed effects above the veto line (-without +with):\n%s", diff)
	}
	if len(got.Effects) != 1 || got.Effects[0].Type != "strobe" {
		t.Errorf("Effects = %+v, want the physics strobe", got.Effects)
	}
}

func TestApplyDecision_PhysicsAcceptedBelowVeto(t *testing.T) {
	cfg := fastConfig("techno-club")
	cfg.StrobeEnergy = 0.5
	phys := &mockPhysics{}
	ai := confident(Decision{Physics: &PhysicsModifiers{StrobeIntensity: 0.3, FlashIntensity: 0.1, TriggerThresholdMod: 1}})
	e, clk := newTestEngine(t, cfg, Deps{Physics: phys, Consciousness: ai})

	got := step(e, clk, MusicalContext{}, audioAt(0.6))
	if len(got.Effects) == 0 || !near(got.Effects[0].Intensity, 0.18) {
		t.Errorf("Effects = %+v, want strobe at 0.6*0.3", got.Effects)
	}

	step(e, clk, MusicalContext{}, audioAt(0.6))
	want := PhysicsModifiers{StrobeIntensity: 0.3, FlashIntensity: 0.3, TriggerThresholdMod: 1}
	if len(phys.mods) != 2 || phys.mods[1] != want {
		t.Errorf("physics modifiers = %+v, want %+v on the second frame", phys.mods, want)
	}
	if got := e.State().Modifiers; got != want {
		t.Errorf("State().Modifiers = %+v, want %+v", got, want)
	}
}

func TestClampMod(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 1},
		{-2, 1},
		{0.5, 0.8},
		{1.1, 1.1},
		{3, 1.2},
	}
	for _, tt := range tests {
		if got := clampMod(tt.in, minColorMod, maxColorMod); got != tt.want {
			t.Errorf("clampMod(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ─── Effects ────────────────────────────────────────────────────────

func TestApplyDecision_Effect(t *testing.T) {
	decision := Decision{Effect: &EffectDecision{EffectType: effects.TypeBlinder, Intensity: 0.8, Reason: "chorus lift"}}

	t.Run("rejected by vibe", func(t *testing.T) {
		e, clk := newTestEngine(t, fastConfig("idle"), Deps{Consciousness: confident(decision)})
		step(e, clk, MusicalContext{}, audioAt(0.4))

		if n := len(e.ActiveEffects()); n != 0 {
			t.Errorf("ActiveEffects() = %d, want 0", n)
		}
		if got := e.State().Stats.EffectsRejected; got != 1 {
			t.Errorf("EffectsRejected = %d, want 1", got)
		}
	})

	t.Run("fired", func(t *testing.T) {
		e, clk := newTestEngine(t, fastConfig("techno-club"), Deps{Consciousness: confident(decision)})
		step(e, clk, MusicalContext{}, audioAt(0.4))

		active := e.ActiveEffects()
		if len(active) != 1 || active[0].Type != effects.TypeBlinder || active[0].Source != SourceConsciousness {
			t.Errorf("ActiveEffects() = %+v, want one blinder from consciousness", active)
		}
	})
}

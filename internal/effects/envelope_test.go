package effects

import (
	"math"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

const frame = 16 * time.Millisecond

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func triggered(cfg EnvelopeConfig, intensity float64) *Envelope {
	e := NewEnvelope("test", cfg)
	e.Trigger(TriggerConfig{Type: cfg.Type, Intensity: intensity})
	return e
}

// ─── Phases ─────────────────────────────────────────────────────────

func TestEnvelope_InstantAttack(t *testing.T) {
	e := triggered(EnvelopeConfig{Sustain: 100 * time.Millisecond, Decay: 100 * time.Millisecond}, 1)

	e.Update(frame)
	if e.Phase() != PhaseSustain {
		t.Fatalf("Phase() = %s, want sustain", e.Phase())
	}
	approx(t, "Intensity()", e.Intensity(), 1)
}

func TestEnvelope_CubicAttack(t *testing.T) {
	e := triggered(EnvelopeConfig{Attack: 100 * time.Millisecond, Sustain: time.Second}, 1)

	e.Update(50 * time.Millisecond)
	if e.Phase() != PhaseAttack {
		t.Fatalf("Phase() = %s, want attack", e.Phase())
	}
	approx(t, "Intensity() half way", e.Intensity(), 0.875)

	e.Update(50 * time.Millisecond)
	if e.Phase() != PhaseSustain {
		t.Errorf("Phase() = %s, want sustain", e.Phase())
	}
	approx(t, "Intensity() at peak", e.Intensity(), 1)
}

func TestEnvelope_FinishesExactlyAtDecayEnd(t *testing.T) {
	e := triggered(EnvelopeConfig{Sustain: 100 * time.Millisecond, Decay: 200 * time.Millisecond}, 1)

	e.Update(10 * time.Millisecond) // attack -> sustain
	e.Update(100 * time.Millisecond)
	if e.Phase() != PhaseDecay {
		t.Fatalf("after sustain Phase() = %s, want decay", e.Phase())
	}

	e.Update(100 * time.Millisecond)
	approx(t, "Intensity() half decay", e.Intensity(), 0.5)

	e.Update(99 * time.Millisecond)
	if e.Phase() != PhaseDecay {
		t.Fatalf("1ms before end Phase() = %s, want decay", e.Phase())
	}

	e.Update(time.Millisecond)
	if !e.Finished() {
		t.Errorf("at decay end Phase() = %s, want finished", e.Phase())
	}
	if _, ok := e.Output(); ok {
		t.Error("Output() ok = true after finish")
	}
}

func TestEnvelope_DecayFloorAndCurve(t *testing.T) {
	tests := []struct {
		name  string
		curve float64
		floor float64
		want  float64
	}{
		{"linear", 1, 0, 0.5},
		{"quadratic", 2, 0, 0.25},
		{"floored", 1, 0.2, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := triggered(EnvelopeConfig{Decay: 100 * time.Millisecond, DecayCurve: tt.curve, DecayFloor: tt.floor}, 1)
			e.Update(frame) // sustain
			e.Update(frame) // sustain of zero length -> decay
			e.Update(50 * time.Millisecond)
			approx(t, "Intensity()", e.Intensity(), tt.want)
		})
	}
}

func TestEnvelope_PhasesNeverGoBack(t *testing.T) {
	rank := map[Phase]int{PhaseIdle: 0, PhaseAttack: 1, PhaseSustain: 2, PhaseDecay: 3, PhaseFinished: 4}

	for _, cfg := range []EnvelopeConfig{SolarFlareConfig, StrobeBurstConfig, BlinderConfig, BreathConfig} {
		t.Run(cfg.Type, func(t *testing.T) {
			e := triggered(cfg, 1)
			last := rank[e.Phase()]
			for i := 0; i < 1000 && !e.Finished(); i++ {
				e.Update(frame)
				r := rank[e.Phase()]
				if r < last {
					t.Fatalf("phase went back to %s at step %d", e.Phase(), i)
				}
				last = r
				if in := e.Intensity(); in < 0 || in > 1 {
					t.Fatalf("Intensity() = %v outside [0, 1]", in)
				}
			}
			if !e.Finished() {
				t.Errorf("%s did not finish", cfg.Type)
			}
		})
	}
}

func TestEnvelope_AbortAndIdle(t *testing.T) {
	e := NewEnvelope("x", SolarFlareConfig)
	e.Update(frame)
	if e.Phase() != PhaseIdle {
		t.Errorf("untriggered Phase() = %s, want idle", e.Phase())
	}
	if _, ok := e.Output(); ok {
		t.Error("idle Output() ok = true")
	}

	e.Trigger(TriggerConfig{Intensity: 1})
	e.Update(frame)
	e.Abort()
	if !e.Finished() {
		t.Errorf("after Abort Phase() = %s, want finished", e.Phase())
	}
	approx(t, "Intensity() after abort", e.Intensity(), 0)
}

// ─── Output ─────────────────────────────────────────────────────────

func TestEnvelope_OutputScalesWithTriggerAndPeak(t *testing.T) {
	e := triggered(EnvelopeConfig{Sustain: time.Second}, 0.5)
	e.Update(frame)
	approx(t, "scaled by trigger", e.Intensity(), 0.5)

	e = triggered(EnvelopeConfig{Sustain: time.Second, Peak: 0.7}, 1)
	e.Update(frame)
	approx(t, "scaled by peak", e.Intensity(), 0.7)

	e = triggered(EnvelopeConfig{Sustain: time.Second}, 3)
	e.Update(frame)
	approx(t, "trigger clamped", e.Intensity(), 1)
}

func TestEnvelope_SolarFlareColour(t *testing.T) {
	e := triggered(SolarFlareConfig, 1)
	e.Update(frame)

	out, ok := e.Output()
	if !ok {
		t.Fatal("Output() ok = false")
	}
	want := lighting.RGB{R: 255, G: 200, B: 80}.HSL()
	if out.ColorOverride == nil || *out.ColorOverride != want {
		t.Errorf("ColorOverride = %v, want peak gold %v", out.ColorOverride, want)
	}
	approx(t, "WhiteOverride", out.WhiteOverride, 1)
	approx(t, "AmberOverride", out.AmberOverride, 1)
	approx(t, "DimmerOverride", out.DimmerOverride, 1)
	if len(out.Zones) != 1 || out.Zones[0] != lighting.ZoneAll {
		t.Errorf("Zones = %v, want [all]", out.Zones)
	}

	// Deep in the decay the colour approaches the red decay colour.
	e.Update(150 * time.Millisecond)
	e.Update(790 * time.Millisecond)
	out, _ = e.Output()
	red := lighting.RGB{R: 255, G: 60, B: 0}.HSL()
	if math.Abs(lighting.HueDelta(out.ColorOverride.H, red.H)) > 2 {
		t.Errorf("late decay hue = %v, want near %v", out.ColorOverride.H, red.H)
	}
	if out.WhiteOverride >= 0.01 {
		t.Errorf("late decay WhiteOverride = %v, want near 0", out.WhiteOverride)
	}
}

func TestEnvelope_StrobeBurstIsGlobalWithoutColour(t *testing.T) {
	e := triggered(StrobeBurstConfig, 1)
	e.Update(frame)

	out, _ := e.Output()
	if !out.GlobalOverride {
		t.Error("GlobalOverride = false, want true")
	}
	if out.ColorOverride != nil {
		t.Errorf("ColorOverride = %v, want nil", out.ColorOverride)
	}
	approx(t, "StrobeRate", out.StrobeRate, 6)
}

func TestEnvelope_DefaultZones(t *testing.T) {
	e := triggered(BreathConfig, 1)
	if got := e.zones; len(got) != 2 || got[0] != lighting.ZoneBack || got[1] != lighting.ZoneMovers {
		t.Errorf("zones = %v, want [back movers]", got)
	}

	e = NewEnvelope("x", BreathConfig)
	e.Trigger(TriggerConfig{Intensity: 1, Zones: []lighting.Zone{lighting.ZoneLeft}})
	if len(e.zones) != 1 || e.zones[0] != lighting.ZoneLeft {
		t.Errorf("zones = %v, want [left]", e.zones)
	}
}

func TestLerpRGBWA(t *testing.T) {
	a := RGBWA{R: 0, G: 0, B: 0, W: 0, A: 0}
	b := RGBWA{R: 255, G: 255, B: 255, W: 200, A: 100}

	if got := LerpRGBWA(a, b, 0); got != a {
		t.Errorf("t=0 = %+v, want %+v", got, a)
	}
	if got := LerpRGBWA(a, b, 1); got != b {
		t.Errorf("t=1 = %+v, want %+v", got, b)
	}
	if got := LerpRGBWA(a, b, 0.5); got.W != 100 || got.A != 50 {
		t.Errorf("t=0.5 W/A = %d/%d, want 100/50", got.W, got.A)
	}
}

package effects

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// newTestManager returns a manager with predictable instance IDs.
func newTestManager() *Manager {
	m := NewManager()
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("fx-%d", n)
	}
	return m
}

func mustTrigger(t *testing.T, m *Manager, typ string, intensity float64) string {
	t.Helper()
	id, err := m.Trigger(TriggerConfig{Type: typ, Intensity: intensity, Source: "test"})
	if err != nil {
		t.Fatalf("Trigger(%s) error = %v", typ, err)
	}
	return id
}

// ─── Registry ───────────────────────────────────────────────────────

func TestManager_Types(t *testing.T) {
	m := NewManager()
	want := []string{TypeBlinder, TypeBreath, TypeSolarFlare, TypeStrobeBurst}
	if diff := cmp.Diff(want, m.Types()); diff != "" {
		t.Errorf("Types() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_TriggerUnknown(t *testing.T) {
	m := NewManager()
	if _, err := m.Trigger(TriggerConfig{Type: "confetti", Intensity: 1}); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("Trigger(unknown) error = %v, want ErrUnknownEffect", err)
	}
	if n := len(m.Active()); n != 0 {
		t.Errorf("Active() has %d entries, want 0", n)
	}
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		TypeSolarFlare:  "solar_flare",
		TypeStrobeBurst: "strobe",
		TypeBlinder:     "blinder",
		TypeBreath:      "breath",
		"laser":         "laser",
	}
	for typ, want := range tests {
		if got := Category(typ); got != want {
			t.Errorf("Category(%s) = %s, want %s", typ, got, want)
		}
	}
}

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestManager_TriggerUpdateFinish(t *testing.T) {
	m := newTestManager()

	var triggered, finished []Event
	m.OnTriggered(func(ev Event) { triggered = append(triggered, ev) })
	m.OnFinished(func(ev Event) { finished = append(finished, ev) })

	id := mustTrigger(t, m, TypeSolarFlare, 1)
	if id != "fx-1" {
		t.Errorf("Trigger() id = %s, want fx-1", id)
	}
	if len(triggered) != 1 || triggered[0].Type != TypeSolarFlare || triggered[0].Source != "test" {
		t.Errorf("triggered events = %+v", triggered)
	}

	m.Update(frame)
	m.Update(150 * time.Millisecond)
	if n := len(m.Active()); n != 1 {
		t.Fatalf("mid-flare Active() has %d entries, want 1", n)
	}
	m.Update(800 * time.Millisecond)
	if n := len(m.Active()); n != 0 {
		t.Errorf("after flare Active() has %d entries, want 0", n)
	}

	want := []Event{{EffectID: "fx-1", Type: TypeSolarFlare, Source: "test"}}
	if diff := cmp.Diff(want, finished); diff != "" {
		t.Errorf("finished events mismatch (-want +got):\n%s", diff)
	}

	s := m.Stats()
	if s.TotalTriggered != 1 || s.TotalFinished != 1 || s.ActiveCount != 0 || s.LastTriggered != TypeSolarFlare {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestManager_RetriggerRestartsInstance(t *testing.T) {
	m := newTestManager()

	first := mustTrigger(t, m, TypeBlinder, 1)
	m.Update(frame)
	m.Update(250 * time.Millisecond) // into decay

	second := mustTrigger(t, m, TypeBlinder, 0.8)
	if second != first {
		t.Errorf("retrigger id = %s, want %s", second, first)
	}
	active := m.Active()
	if len(active) != 1 {
		t.Fatalf("Active() has %d entries, want 1", len(active))
	}
	if active[0].Phase != PhaseAttack {
		t.Errorf("restarted Phase = %s, want attack", active[0].Phase)
	}
	if m.Stats().TotalTriggered != 2 {
		t.Errorf("TotalTriggered = %d, want 2", m.Stats().TotalTriggered)
	}
}

func TestManager_Abort(t *testing.T) {
	m := newTestManager()

	var finished []Event
	m.OnFinished(func(ev Event) { finished = append(finished, ev) })

	id := mustTrigger(t, m, TypeSolarFlare, 1)
	mustTrigger(t, m, TypeBreath, 1)

	if err := m.Abort(id); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if err := m.Abort(id); !errors.Is(err, ErrEffectNotFound) {
		t.Errorf("second Abort() error = %v, want ErrEffectNotFound", err)
	}
	if len(finished) != 1 || !finished[0].Aborted {
		t.Errorf("finished events = %+v, want one aborted", finished)
	}

	if n := m.AbortAll(); n != 1 {
		t.Errorf("AbortAll() = %d, want 1", n)
	}
	if n := len(m.Active()); n != 0 {
		t.Errorf("Active() has %d entries, want 0", n)
	}
	if len(finished) != 2 {
		t.Errorf("got %d finished events, want 2", len(finished))
	}
}

func TestManager_CallbacksMayReenter(t *testing.T) {
	m := newTestManager()

	var seen int
	m.OnTriggered(func(Event) { seen = len(m.Active()) })
	mustTrigger(t, m, TypeBreath, 1)

	if seen != 1 {
		t.Errorf("callback saw %d active effects, want 1", seen)
	}
}

// ─── HTP blend ──────────────────────────────────────────────────────

func TestManager_CombinedEmpty(t *testing.T) {
	m := NewManager()
	c := m.Combined()
	if c.HasActive || c.HasDimmerOverride() || c.ColorOverride != nil {
		t.Errorf("Combined() = %+v, want empty", c)
	}
}

func TestManager_CombinedHTP(t *testing.T) {
	m := newTestManager()
	mustTrigger(t, m, TypeSolarFlare, 1)
	mustTrigger(t, m, TypeBlinder, 0.5)
	m.Update(frame)

	c := m.Combined()
	if !c.HasActive {
		t.Fatal("HasActive = false")
	}
	approx(t, "DimmerOverride", c.DimmerOverride, 1)
	approx(t, "WhiteOverride", c.WhiteOverride, 1)
	approx(t, "Intensity", c.Intensity, 1)
	if c.GlobalOverride {
		t.Error("GlobalOverride = true, want false")
	}

	gold := lighting.RGB{R: 255, G: 200, B: 80}.HSL()
	if c.ColorOverride == nil || *c.ColorOverride != gold {
		t.Errorf("ColorOverride = %v, want solar flare gold %v", c.ColorOverride, gold)
	}
	if diff := cmp.Diff([]string{"fx-1", "fx-2"}, c.Contributing); diff != "" {
		t.Errorf("Contributing mismatch (-want +got):\n%s", diff)
	}

	mustTrigger(t, m, TypeStrobeBurst, 1)
	m.Update(frame)
	c = m.Combined()
	if !c.GlobalOverride {
		t.Error("with strobe GlobalOverride = false, want true")
	}
	approx(t, "StrobeRate", c.StrobeRate, 6)
}

func TestManager_ColourTieGoesToMostRecent(t *testing.T) {
	m := newTestManager()
	m.Register("red", EnvelopeFactory(EnvelopeConfig{Type: "red", Priority: 50, Sustain: time.Second, PeakColor: &RGBWA{R: 255}}))
	m.Register("blue", EnvelopeFactory(EnvelopeConfig{Type: "blue", Priority: 50, Sustain: time.Second, PeakColor: &RGBWA{B: 255}}))

	mustTrigger(t, m, "red", 1)
	mustTrigger(t, m, "blue", 1)
	m.Update(frame)
	if h := m.Combined().ColorOverride.H; h != 240 {
		t.Errorf("after red then blue hue = %v, want 240", h)
	}

	mustTrigger(t, m, "red", 1)
	m.Update(frame)
	if h := m.Combined().ColorOverride.H; h != 0 {
		t.Errorf("after retriggering red hue = %v, want 0", h)
	}
}

func TestManager_HigherPriorityColourWins(t *testing.T) {
	m := newTestManager()
	mustTrigger(t, m, TypeSolarFlare, 1)
	mustTrigger(t, m, TypeBreath, 1)
	m.Update(frame)

	gold := lighting.RGB{R: 255, G: 200, B: 80}.HSL()
	if c := m.Combined(); c.ColorOverride == nil || *c.ColorOverride != gold {
		t.Errorf("ColorOverride = %v, want gold from the higher-priority flare", c.ColorOverride)
	}
}

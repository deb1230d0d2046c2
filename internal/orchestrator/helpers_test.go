package orchestrator

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/stabilizer"
)

const tolerance = 1e-9

// testClock is a manually advanced clock.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func newTestEngine(t *testing.T, cfg Config, deps Deps) (*Engine, *testClock) {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)}
	deps.Now = clk.Now
	e, err := NewEngine(cfg, deps)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, clk
}

// fastConfig makes smoothed energy follow raw energy exactly, so energy
// thresholds can be crossed in a single frame.
func fastConfig(vibeID string) Config {
	cfg := DefaultConfig()
	cfg.InitialVibe = vibeID
	cfg.AITimeout = time.Second
	cfg.Energy.SmoothingWindow = cfg.FrameInterval
	cfg.Energy.EMAFactor = 0
	return cfg
}

func step(e *Engine, clk *testClock, mc MusicalContext, af AudioFrame) LightingIntent {
	clk.t = clk.t.Add(stabilizer.DefaultFrameInterval)
	return e.Update(context.Background(), mc, af)
}

func audioAt(v float64) AudioFrame {
	return AudioFrame{Energy: v}
}

func drain(e *Engine) []Event {
	var out []Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventsOf(events []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func constitutionFor(t *testing.T, vibeID string) *constitution.Constitution {
	t.Helper()
	reg, err := constitution.DefaultRegistry()
	if err != nil {
		t.Fatalf("constitution.DefaultRegistry() error = %v", err)
	}
	return reg.Get(vibeID)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// ─── Mocks ──────────────────────────────────────────────────────────

type mockPhysics struct {
	result PhysicsResult
	mods   []PhysicsModifiers
}

func (m *mockPhysics) Update(_ MusicalContext, _ lighting.Palette, _ AudioFrame, mods PhysicsModifiers) PhysicsResult {
	m.mods = append(m.mods, mods)
	return m.result
}

type mockMovement struct {
	intent MovementIntent
	vibes  []string
}

func (m *mockMovement) Generate(vibeID string, _ MovementContext) MovementIntent {
	m.vibes = append(m.vibes, vibeID)
	return m.intent
}

type mockConsciousness struct {
	decision Decision
	err      error
	block    bool
	calls    atomic.Int32
}

func (m *mockConsciousness) Process(ctx context.Context, _ StabilizedState) (Decision, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return Decision{Confidence: 1}, ctx.Err()
	}
	return m.decision, m.err
}

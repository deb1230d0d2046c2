package show

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lux/internal/journal"
	"github.com/nerrad567/gray-logic-lux/internal/orchestrator"
)

// ─── Mocks ──────────────────────────────────────────────────────────

type mockEngine struct {
	mu     sync.Mutex
	inputs []orchestrator.AudioFrame
	frame  uint64
	events chan orchestrator.Event
	calls  []string
	err    error
}

func newMockEngine() *mockEngine {
	return &mockEngine{events: make(chan orchestrator.Event, 8)}
}

func (m *mockEngine) Update(_ context.Context, _ orchestrator.MusicalContext, af orchestrator.AudioFrame) orchestrator.LightingIntent {
	return m.render(af, orchestrator.SourceEngine)
}

func (m *mockEngine) UpdateFallback(context.Context) orchestrator.LightingIntent {
	return m.render(orchestrator.AudioFrame{}, orchestrator.SourceFallback)
}

func (m *mockEngine) render(af orchestrator.AudioFrame, source string) orchestrator.LightingIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, af)
	m.frame++
	return orchestrator.LightingIntent{
		VibeID:          "idle",
		MasterIntensity: 0.1 + 0.7*af.Energy,
		Source:          source,
		Frame:           m.frame,
	}
}

func (m *mockEngine) Events() <-chan orchestrator.Event { return m.events }
func (m *mockEngine) State() orchestrator.State         { return orchestrator.State{VibeID: "idle"} }

func (m *mockEngine) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockEngine) SetVibe(name string) (bool, error) {
	m.record("vibe:" + name)
	return true, m.err
}

func (m *mockEngine) SetVibeImmediate(name string) (bool, error) {
	m.record("vibe!:" + name)
	return true, m.err
}

func (m *mockEngine) QueueStrike(effectType string, intensity float64) error {
	if intensity == 1 {
		m.record("strike:" + effectType + ":full")
	} else {
		m.record("strike:" + effectType)
	}
	return m.err
}

func (m *mockEngine) AbortEffect(id string) error {
	m.record("abort:" + id)
	return m.err
}

func (m *mockEngine) AbortAllEffects() int {
	m.record("abort-all")
	return 2
}

func (m *mockEngine) SetConsciousnessEnabled(enabled bool) {
	if enabled {
		m.record("ai:on")
	} else {
		m.record("ai:off")
	}
}

type published struct {
	topic    string
	retained bool
}

type mockBus struct {
	mu         sync.Mutex
	published  []published
	subscribed []string
	err        error
}

func (b *mockBus) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribed = append(b.subscribed, topic)
	return b.err
}

func (b *mockBus) Publish(topic string, _ []byte, _ byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{topic, retained})
	return b.err
}

func (b *mockBus) PublishJSON(topic string, _ any, retained bool) error {
	return b.Publish(topic, nil, 0, retained)
}

func (b *mockBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.published {
		if p.topic == topic {
			n++
		}
	}
	return n
}

type mockTelemetry struct {
	mu     sync.Mutex
	frames []influxdb.FrameSample
	events []string
}

func (m *mockTelemetry) WriteFrame(s influxdb.FrameSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, s)
}

func (m *mockTelemetry) WriteEvent(kind, _ string, _ map[string]any, _ time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, kind)
}

type mockJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (m *mockJournal) Record(_ context.Context, e *journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return m.err
}

type mockHub struct {
	mu       sync.Mutex
	channels []string
}

func (m *mockHub) Broadcast(channel string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channel)
}

// ─── Helpers ────────────────────────────────────────────────────────

var topics = mqtt.NewTopics("graylux", "")

type fixture struct {
	runner    *Runner
	engine    *mockEngine
	bus       *mockBus
	telemetry *mockTelemetry
	journal   *mockJournal
	hub       *mockHub
	now       time.Time
}

func newFixture(t *testing.T, publishEvery int) *fixture {
	t.Helper()
	f := &fixture{
		engine:    newMockEngine(),
		bus:       &mockBus{},
		telemetry: &mockTelemetry{},
		journal:   &mockJournal{},
		hub:       &mockHub{},
		now:       time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC),
	}
	r, err := New(Config{
		FrameInterval: time.Millisecond,
		StaleInput:    500 * time.Millisecond,
		PublishEvery:  publishEvery,
		SessionID:     "session-1",
	}, Deps{
		Engine:    f.engine,
		Bus:       f.bus,
		Topics:    topics,
		Telemetry: f.telemetry,
		Journal:   f.journal,
		Hub:       f.hub,
		Now:       func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.runner = r
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// ─── Construction ───────────────────────────────────────────────────

func TestNew_Errors(t *testing.T) {
	valid := Config{FrameInterval: time.Millisecond, StaleInput: time.Second}

	tests := []struct {
		name string
		cfg  Config
		deps Deps
		want error
	}{
		{"no engine", valid, Deps{}, ErrNoEngine},
		{"no frame interval", Config{StaleInput: time.Second}, Deps{Engine: newMockEngine()}, ErrInvalidConfig},
		{"no stale window", Config{FrameInterval: time.Millisecond}, Deps{Engine: newMockEngine()}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg, tt.deps); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.runner.Subscribe(); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	want := []string{"graylux/analysis", "graylux/control/+"}
	if len(f.bus.subscribed) != 2 || f.bus.subscribed[0] != want[0] || f.bus.subscribed[1] != want[1] {
		t.Errorf("subscribed = %v, want %v", f.bus.subscribed, want)
	}

	f.bus.err = errors.New("broker gone")
	if err := f.runner.Subscribe(); err == nil {
		t.Error("Subscribe() error = nil with a failing bus")
	}
}

// ─── Input ──────────────────────────────────────────────────────────

func TestStep_StaleInputRendersSilence(t *testing.T) {
	f := newFixture(t, 1)

	intent := f.runner.Step(context.Background())
	if intent.Source != orchestrator.SourceFallback {
		t.Errorf("Source = %q before any input, want fallback", intent.Source)
	}

	payload := []byte(`{"context":{"bpm":128,"key":"Am"},"audio":{"energy":0.8,"bass":0.9}}`)
	if err := f.runner.HandleAnalysis(topics.Analysis(), payload); err != nil {
		t.Fatalf("HandleAnalysis() error = %v", err)
	}
	f.advance(100 * time.Millisecond)
	intent = f.runner.Step(context.Background())
	if intent.Source != orchestrator.SourceEngine {
		t.Errorf("Source = %q with fresh input, want engine", intent.Source)
	}
	if got := f.engine.inputs[1].Energy; got != 0.8 {
		t.Errorf("engine saw energy %v, want 0.8", got)
	}
	if f.runner.Status().InputStale {
		t.Error("Status().InputStale = true with fresh input")
	}

	f.advance(time.Second)
	intent = f.runner.Step(context.Background())
	if intent.Source != orchestrator.SourceFallback {
		t.Errorf("Source = %q after input went stale, want fallback", intent.Source)
	}
	if got := f.engine.inputs[2]; got != (orchestrator.AudioFrame{}) {
		t.Errorf("engine saw %+v for stale input, want silence", got)
	}
}

func TestHandleAnalysis_BadFrame(t *testing.T) {
	f := newFixture(t, 1)
	if err := f.runner.HandleAnalysis(topics.Analysis(), []byte("{not json")); !errors.Is(err, ErrBadFrame) {
		t.Errorf("HandleAnalysis() error = %v, want ErrBadFrame", err)
	}
	if n := f.runner.Status().BadFrames; n != 1 {
		t.Errorf("BadFrames = %d, want 1", n)
	}
}

// ─── Output ─────────────────────────────────────────────────────────

func TestStep_PublishCadence(t *testing.T) {
	f := newFixture(t, 3)
	for range 6 {
		f.runner.Step(context.Background())
	}

	if n := f.bus.count(topics.Intent()); n != 6 {
		t.Errorf("intent publishes = %d, want every frame", n)
	}
	if n := len(f.hub.channels); n != 2 {
		t.Errorf("hub broadcasts = %d, want 2", n)
	}
	if n := len(f.telemetry.frames); n != 2 {
		t.Errorf("telemetry frames = %d, want 2", n)
	}
	if n := f.bus.count(topics.State()); n != 1 {
		t.Errorf("state publishes = %d, want 1 within one second", n)
	}
	if got := f.runner.Frames(); got != 6 {
		t.Errorf("Frames() = %d, want 6", got)
	}
	if f.telemetry.frames[1].Frame != 6 {
		t.Errorf("second sample frame = %d, want 6", f.telemetry.frames[1].Frame)
	}
}

func TestStep_StateIsRetainedOncePerSecond(t *testing.T) {
	f := newFixture(t, 1)
	f.runner.Step(context.Background())
	f.advance(500 * time.Millisecond)
	f.runner.Step(context.Background())
	f.advance(600 * time.Millisecond)
	f.runner.Step(context.Background())

	var states []published
	for _, p := range f.bus.published {
		if p.topic == topics.State() {
			states = append(states, p)
		}
	}
	if len(states) != 2 || !states[0].retained {
		t.Errorf("state publishes = %+v, want 2 retained", states)
	}
}

func TestStep_PublishErrorsCounted(t *testing.T) {
	f := newFixture(t, 1)
	f.bus.err = mqtt.ErrNotConnected
	f.runner.Step(context.Background())

	if n := f.runner.Status().PublishErrors; n != 1 {
		t.Errorf("PublishErrors = %d, want 1", n)
	}
}

func TestFrameSample(t *testing.T) {
	in := orchestrator.LightingIntent{
		VibeID:          "techno-club",
		MasterIntensity: 0.7,
		Strobe:          0.3,
		Source:          orchestrator.SourceEngine,
		Frame:           42,
		Effects:         []orchestrator.EffectIntent{{Type: "strobe"}},
		State: orchestrator.StabilizedState{
			StableKey:      "Am",
			SmoothedEnergy: 0.6,
			RawEnergy:      0.9,
			IsDropActive:   true,
			BPM:            128,
		},
	}
	s := frameSample(in)
	if s.VibeID != "techno-club" || s.Key != "Am" || s.Energy != 0.6 || s.RawEnergy != 0.9 {
		t.Errorf("sample = %+v", s)
	}
	if !s.DropActive || s.Effects != 1 || s.Frame != 42 || s.BPM != 128 {
		t.Errorf("sample = %+v", s)
	}
}

// ─── Events ─────────────────────────────────────────────────────────

func TestDispatch(t *testing.T) {
	f := newFixture(t, 1)
	ev := orchestrator.Event{
		Kind:   orchestrator.EventDropStarted,
		At:     f.now,
		VibeID: "techno-club",
		Fields: map[string]any{"energy": 0.9},
	}
	f.runner.dispatch(ev)

	if len(f.journal.entries) != 1 {
		t.Fatalf("journal entries = %d, want 1", len(f.journal.entries))
	}
	e := f.journal.entries[0]
	if e.Kind != "drop_started" || e.VibeID != "techno-club" || e.SessionID != "session-1" || !e.OccurredAt.Equal(f.now) {
		t.Errorf("entry = %+v", e)
	}
	if n := f.bus.count("graylux/event/drop_started"); n != 1 {
		t.Errorf("event publishes = %d, want 1", n)
	}
	if len(f.telemetry.events) != 1 || len(f.hub.channels) != 1 || f.hub.channels[0] != ChannelEvent {
		t.Errorf("telemetry events = %v, hub = %v", f.telemetry.events, f.hub.channels)
	}
}

func TestDispatch_JournalFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.journal.err = errors.New("disk full")
	f.runner.dispatch(orchestrator.Event{Kind: orchestrator.EventKeyCommitted})

	if n := f.runner.Status().JournalErrors; n != 1 {
		t.Errorf("JournalErrors = %d, want 1", n)
	}
	if n := f.bus.count("graylux/event/key_committed"); n != 1 {
		t.Errorf("event publishes = %d, want 1 despite journal failure", n)
	}
}

func TestRun_DrainsEventsOnShutdown(t *testing.T) {
	f := newFixture(t, 1)
	f.engine.events <- orchestrator.Event{Kind: orchestrator.EventVibeChanged}
	f.engine.events <- orchestrator.Event{Kind: orchestrator.EventEffectTriggered}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.runner.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	f.journal.mu.Lock()
	defer f.journal.mu.Unlock()
	if len(f.journal.entries) != 2 {
		t.Errorf("journal entries = %d, want 2 drained", len(f.journal.entries))
	}
}

func TestRun_RendersUntilCancelled(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.runner.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for f.runner.Frames() < 3 {
		select {
		case <-deadline:
			t.Fatal("render loop did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

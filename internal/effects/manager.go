package effects

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Stats summarises manager activity since construction.
type Stats struct {
	ActiveCount    int       `json:"active_count"`
	TotalTriggered int       `json:"total_triggered"`
	TotalFinished  int       `json:"total_finished"`
	LastTriggered  string    `json:"last_triggered,omitempty"`
	LastTriggerAt  time.Time `json:"last_trigger_at,omitempty"`
}

type entry struct {
	effect  Effect
	seq     uint64
	source  string
	elapsed time.Duration
}

// Manager owns the active effect instances.
//
// Active instances are kept in trigger order; restarting an instance moves
// it to the back, which makes it the most recent for colour ties.
type Manager struct {
	mu        sync.Mutex
	factories map[string]Factory
	active    []*entry
	seq       uint64
	stats     Stats

	onTriggered []func(Event)
	onFinished  []func(Event)

	newID  func() string
	now    func() time.Time
	logger Logger
}

// NewManager creates a manager with the built-in effects registered.
func NewManager() *Manager {
	m := &Manager{
		factories: make(map[string]Factory, len(builtins)),
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    noopLogger{},
	}
	for t, cfg := range builtins {
		m.factories[t] = EnvelopeFactory(cfg)
	}
	return m
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// Register adds or replaces the factory for an effect type.
func (m *Manager) Register(effectType string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[effectType] = f
}

// Types returns every registered effect type, sorted.
func (m *Manager) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.factories))
	for t := range m.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// OnTriggered registers a callback fired after every trigger.
func (m *Manager) OnTriggered(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTriggered = append(m.onTriggered, fn)
}

// OnFinished registers a callback fired when an instance finishes or is aborted.
func (m *Manager) OnFinished(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinished = append(m.onFinished, fn)
}

// Trigger fires an effect and returns its instance ID.
//
// If an instance of the same type is still running it is restarted in
// place and keeps its ID.
func (m *Manager) Trigger(cfg TriggerConfig) (string, error) {
	m.mu.Lock()

	factory, ok := m.factories[cfg.Type]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrUnknownEffect, cfg.Type)
	}

	m.seq++
	var e *entry
	for i, cur := range m.active {
		if cur.effect.Type() == cfg.Type && !cur.effect.Finished() {
			e = cur
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	if e == nil {
		e = &entry{effect: factory(m.newID())}
	}
	e.effect.Trigger(cfg)
	e.seq = m.seq
	e.source = cfg.Source
	e.elapsed = 0
	m.active = append(m.active, e)

	m.stats.TotalTriggered++
	m.stats.LastTriggered = cfg.Type
	m.stats.LastTriggerAt = m.now()

	id := e.effect.ID()
	ev := Event{EffectID: id, Type: cfg.Type, Intensity: cfg.Intensity, Source: cfg.Source}
	callbacks := m.onTriggered
	logger := m.logger
	m.mu.Unlock()

	logger.Debug("effect triggered", "effect_id", id, "type", cfg.Type, "intensity", cfg.Intensity, "source", cfg.Source)
	for _, fn := range callbacks {
		fn(ev)
	}
	return id, nil
}

// Update advances every active instance by dt and removes finished ones.
func (m *Manager) Update(dt time.Duration) {
	m.mu.Lock()

	var finished []Event
	kept := m.active[:0]
	for _, e := range m.active {
		e.effect.Update(dt)
		e.elapsed += dt
		if e.effect.Finished() {
			finished = append(finished, Event{EffectID: e.effect.ID(), Type: e.effect.Type(), Source: e.source})
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(m.active); i++ {
		m.active[i] = nil
	}
	m.active = kept
	m.stats.TotalFinished += len(finished)

	callbacks := m.onFinished
	m.mu.Unlock()

	for _, ev := range finished {
		for _, fn := range callbacks {
			fn(ev)
		}
	}
}

// Combined blends every active instance.
//
// Dimmer, white, amber, strobe rate and intensity take the highest value.
// Colour comes from the highest-priority instance that sets one, and the
// most recently triggered instance wins a priority tie.
func (m *Manager) Combined() Combined {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c Combined
	bestPriority := 0
	for _, e := range m.active {
		out, ok := e.effect.Output()
		if !ok {
			continue
		}
		c.HasActive = true
		c.Contributing = append(c.Contributing, out.ID)

		c.Intensity = max(c.Intensity, out.Intensity)
		c.DimmerOverride = max(c.DimmerOverride, out.DimmerOverride)
		c.WhiteOverride = max(c.WhiteOverride, out.WhiteOverride)
		c.AmberOverride = max(c.AmberOverride, out.AmberOverride)
		c.StrobeRate = max(c.StrobeRate, out.StrobeRate)
		c.GlobalOverride = c.GlobalOverride || out.GlobalOverride

		if out.ColorOverride != nil && (c.ColorOverride == nil || out.Priority >= bestPriority) {
			bestPriority = out.Priority
			col := *out.ColorOverride
			c.ColorOverride = &col
		}
	}
	return c
}

// Outputs returns each active instance's contribution in trigger order.
func (m *Manager) Outputs() []Output {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Output, 0, len(m.active))
	for _, e := range m.active {
		if o, ok := e.effect.Output(); ok {
			out = append(out, o)
		}
	}
	return out
}

// Abort stops one instance immediately.
func (m *Manager) Abort(id string) error {
	m.mu.Lock()

	idx := -1
	for i, e := range m.active {
		if e.effect.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrEffectNotFound, id)
	}

	e := m.active[idx]
	e.effect.Abort()
	m.active = append(m.active[:idx], m.active[idx+1:]...)
	m.stats.TotalFinished++
	ev := Event{EffectID: id, Type: e.effect.Type(), Source: e.source, Aborted: true}
	callbacks := m.onFinished
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(ev)
	}
	return nil
}

// AbortAll stops every instance and returns how many were running.
func (m *Manager) AbortAll() int {
	m.mu.Lock()

	events := make([]Event, 0, len(m.active))
	for _, e := range m.active {
		e.effect.Abort()
		events = append(events, Event{EffectID: e.effect.ID(), Type: e.effect.Type(), Source: e.source, Aborted: true})
	}
	m.active = nil
	m.stats.TotalFinished += len(events)
	callbacks := m.onFinished
	m.mu.Unlock()

	for _, ev := range events {
		for _, fn := range callbacks {
			fn(ev)
		}
	}
	return len(events)
}

// Active returns a snapshot of every running instance in trigger order.
func (m *Manager) Active() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.active))
	for _, e := range m.active {
		o, ok := e.effect.Output()
		if !ok {
			continue
		}
		out = append(out, Snapshot{
			ID:        o.ID,
			Type:      o.Type,
			Phase:     o.Phase,
			Intensity: o.Intensity,
			Zones:     o.Zones,
			Source:    e.source,
			Elapsed:   e.elapsed,
		})
	}
	return out
}

// Stats returns a copy of the manager's counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.ActiveCount = len(m.active)
	return s
}

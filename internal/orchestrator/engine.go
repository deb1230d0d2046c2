package orchestrator

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/effects"
	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/palette"
	"github.com/nerrad567/gray-logic-lux/internal/stabilizer"
	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

const (
	// strobeCategory is the vibe effect category that gates every strobe.
	strobeCategory = "strobe"

	// maxStrobeHz normalises strobe rates into effect speed.
	maxStrobeHz = 20.0

	// colorOverrideBoost is how far an effect colour override lifts the
	// primary lightness toward white at full intensity.
	colorOverrideBoost = 0.3

	// logThrottle is the minimum interval between repeated per-frame logs.
	logThrottle = 5 * time.Second

	// maxQueuedStrikes bounds the manual strike queue between frames.
	maxQueuedStrikes = 16
)

// Effect trigger sources.
const (
	SourceAPI           = "api"
	SourceStrike        = "strike"
	SourceDrop          = "drop"
	SourceConsciousness = "consciousness"
)

// Deps are the Engine's collaborators. Only the registries are required;
// nil registries fall back to the embedded defaults.
type Deps struct {
	Vibes         *vibe.Registry
	Constitutions *constitution.Registry

	// Palette defaults to palette.NewGenerator().
	Palette PaletteGenerator

	// Optional collaborators.
	Physics       PhysicsCollaborator
	Movement      MovementGenerator
	Consciousness Consciousness

	// Effects defaults to effects.NewManager().
	Effects *effects.Manager

	// Now defaults to time.Now.
	Now func() time.Time
}

// Stats counts engine activity since construction.
type Stats struct {
	Frames          uint64 `json:"frames"`
	AIAccepted      int    `json:"ai_accepted"`
	AIRejected      int    `json:"ai_rejected"`
	AITimeouts      int    `json:"ai_timeouts"`
	AIErrors        int    `json:"ai_errors"`
	AIPhysicsVetoed int    `json:"ai_physics_vetoed"`
	StrikesConsumed int    `json:"strikes_consumed"`
	EffectsRejected int    `json:"effects_rejected"`
	DropFlares      int    `json:"drop_flares"`
	SilenceResets   int    `json:"silence_resets"`
	EventsDropped   uint64 `json:"events_dropped"`
}

// State is a diagnostic snapshot of the engine.
type State struct {
	VibeID               vibe.ID             `json:"vibe_id"`
	Transition           vibe.Transition     `json:"transition"`
	Stabilized           StabilizedState     `json:"stabilized"`
	Key                  stabilizer.KeyStats `json:"key"`
	FrameInterval        time.Duration       `json:"frame_interval"`
	ConsciousnessEnabled bool                `json:"consciousness_enabled"`
	Modifiers            PhysicsModifiers    `json:"modifiers"`
	QueuedStrikes        int                 `json:"queued_strikes"`
	Effects              []effects.Snapshot  `json:"effects"`
	EffectStats          effects.Stats       `json:"effect_stats"`
	Stats                Stats               `json:"stats"`
}

// Engine turns musical context and audio metrics into lighting intents.
//
// Thread Safety: all methods are safe for concurrent use. Update holds the
// engine lock for the whole frame, including the bounded AI call.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	clock    *stabilizer.Clock
	key      *stabilizer.KeyStabilizer
	mood     *stabilizer.MoodArbiter
	energy   *stabilizer.EnergyStabilizer
	strategy *stabilizer.StrategyArbiter

	vibes         *vibe.Provider
	constitutions *constitution.Registry
	palette       PaletteGenerator
	physics       PhysicsCollaborator
	mover         MovementGenerator
	consciousness Consciousness
	fx            *effects.Manager

	// Per-frame memory.
	started    time.Time
	lastTick   time.Time
	frame      uint64
	lastKey    string
	moodWord   string
	dropActive bool
	lastDropAt time.Time
	modifiers  PhysicsModifiers
	aiEnabled  bool
	strikes    []effects.TriggerConfig
	last       LightingIntent
	hasLast    bool
	stats      Stats
	lastLog    map[string]time.Time

	vibeID  atomic.Value // vibe.ID, readable without mu
	events  chan Event
	dropped atomic.Uint64

	now    func() time.Time
	logger Logger
}

// NewEngine builds an engine. It fails only on misconfiguration: invalid
// settings, an unknown initial vibe or an unloadable embedded registry.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vibes := deps.Vibes
	if vibes == nil {
		reg, err := vibe.DefaultRegistry()
		if err != nil {
			return nil, fmt.Errorf("%w: vibe registry: %v", ErrMissingDependency, err)
		}
		vibes = reg
	}
	constitutions := deps.Constitutions
	if constitutions == nil {
		reg, err := constitution.DefaultRegistry()
		if err != nil {
			return nil, fmt.Errorf("%w: constitution registry: %v", ErrMissingDependency, err)
		}
		constitutions = reg
	}

	provider, err := vibe.NewProvider(vibes, cfg.Crossfade)
	if err != nil {
		return nil, fmt.Errorf("creating vibe provider: %w", err)
	}
	if cfg.InitialVibe != "" && !provider.SetActiveVibeImmediate(cfg.InitialVibe) {
		return nil, fmt.Errorf("%w: initial vibe %q", vibe.ErrVibeNotFound, cfg.InitialVibe)
	}

	clock := stabilizer.NewClock(cfg.FrameInterval)
	key, err := stabilizer.NewKeyStabilizer(cfg.Key, clock)
	if err != nil {
		return nil, fmt.Errorf("creating key stabilizer: %w", err)
	}
	mood, err := stabilizer.NewMoodArbiter(cfg.Mood, clock)
	if err != nil {
		return nil, fmt.Errorf("creating mood arbiter: %w", err)
	}
	energy, err := stabilizer.NewEnergyStabilizer(cfg.Energy, clock)
	if err != nil {
		return nil, fmt.Errorf("creating energy stabilizer: %w", err)
	}
	strategy, err := stabilizer.NewStrategyArbiter(cfg.Strategy, clock)
	if err != nil {
		return nil, fmt.Errorf("creating strategy arbiter: %w", err)
	}

	e := &Engine{
		cfg:           cfg,
		clock:         clock,
		key:           key,
		mood:          mood,
		energy:        energy,
		strategy:      strategy,
		vibes:         provider,
		constitutions: constitutions,
		palette:       deps.Palette,
		physics:       deps.Physics,
		mover:         deps.Movement,
		consciousness: deps.Consciousness,
		fx:            deps.Effects,
		modifiers:     NeutralModifiers(),
		aiEnabled:     cfg.ConsciousnessEnabled,
		lastLog:       make(map[string]time.Time),
		events:        make(chan Event, cfg.EventBuffer),
		now:           deps.Now,
		logger:        noopLogger{},
	}
	if e.palette == nil {
		e.palette = palette.NewGenerator()
	}
	if e.fx == nil {
		e.fx = effects.NewManager()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.vibeID.Store(provider.ActiveID())

	e.fx.OnTriggered(func(ev effects.Event) { e.emit(EventEffectTriggered, effectFields(ev)) })
	e.fx.OnFinished(func(ev effects.Event) { e.emit(EventEffectFinished, effectFields(ev)) })
	return e, nil
}

// SetLogger sets the logger for the engine and its owned components.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = logger
	e.vibes.SetLogger(logger)
	e.fx.SetLogger(logger)
}

// Update builds the lighting intent for one frame. It never fails: input
// is sanitised and every collaborator failure degrades to a default.
func (e *Engine) Update(ctx context.Context, mc MusicalContext, af AudioFrame) LightingIntent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render(ctx, mc, af, SourceEngine)
}

// UpdateFallback renders a silent frame for when analysis input is
// missing or stale. The intent, including the cached one returned by
// LastIntent, reports SourceFallback.
func (e *Engine) UpdateFallback(ctx context.Context) LightingIntent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.render(ctx, MusicalContext{}, AudioFrame{}, SourceFallback)
}

// render runs the frame pipeline. Callers hold e.mu.
func (e *Engine) render(ctx context.Context, mc MusicalContext, af AudioFrame, source string) LightingIntent {
	now := e.now()
	dt := e.tick(now)
	mc = mc.sanitized()
	af = af.sanitized()

	e.vibes.Advance(dt)
	prof := e.vibes.Active()
	vibeID := e.vibes.ActiveID()
	c := e.constitutions.Get(string(vibeID))

	// 1. Stabilise, 2. palette.
	st := e.stabilize(mc, af, vibeID)
	req := paletteRequest(st, prof)
	pal := e.palette.Generate(req, c)

	// AI physics modifiers have no say at high energy, starting with the
	// frame that crosses the veto line.
	if st.SmoothedEnergy >= e.cfg.PhysicsVetoEnergy {
		e.modifiers = NeutralModifiers()
	}

	// 3. Zones: band mix unless physics takes over.
	zones := bandZones(af)
	var phys PhysicsResult
	if e.physics != nil {
		phys = e.physics.Update(mc, pal, af, e.modifiers)
		if phys.Applied && phys.Zones != nil {
			zones = physicsZones(*phys.Zones)
		}
	}
	floor, ceiling := e.vibes.DimmerFloor(), e.vibes.DimmerCeiling()
	master, _ := e.vibes.ConstrainDimmer(floor + af.Energy*(ceiling-floor))
	master = c.ClampDimmer(master)

	// 4. Movement.
	movement := e.move(prof, mc, af, st, phys, now)

	// 5. Baseline effects, drop flare and strikes, then advance envelopes.
	strobe := e.strobeAllowed(c) && (af.Energy > e.cfg.StrobeEnergy || (phys.Applied && phys.IsStrobeActive))
	e.flareOnDrop(st, af, now)
	e.consumeStrikes()
	e.fx.Update(dt)

	// 6. AI layer.
	if d, ok := e.consult(ctx, st); ok {
		pal = e.applyDecision(d, st, req, c, pal)
	}

	// 7. Merge effects.
	comb := e.fx.Combined()
	if comb.HasDimmerOverride() {
		master = math.Max(master, lighting.Clamp01(comb.DimmerOverride))
	}
	if comb.ColorOverride != nil {
		col := c.Apply(*comb.ColorOverride, lighting.RolePrimary)
		col.L = lighting.Clamp01(col.L + (1-col.L)*colorOverrideBoost*comb.Intensity)
		pal.Primary = col
	}
	outputs := e.fx.Outputs()
	applyZoneOverrides(zones, outputs, comb, c)

	maxRate := e.vibes.MaxStrobeRate()
	intents := make([]EffectIntent, 0, len(outputs)+1)
	if strobe {
		intents = append(intents, EffectIntent{
			Type:      strobeCategory,
			Intensity: lighting.Clamp01(af.Energy * e.modifiers.StrobeIntensity),
			Speed:     strobeSpeed(maxRate),
		})
	}
	for _, out := range outputs {
		in := out.Intensity
		if isFlash(out.Type) {
			in = lighting.Clamp01(in * e.modifiers.FlashIntensity)
		}
		intents = append(intents, EffectIntent{
			ID:        out.ID,
			Type:      out.Type,
			Phase:     string(out.Phase),
			Intensity: in,
			Speed:     strobeSpeed(math.Min(out.StrobeRate, maxRate)),
			Zones:     out.Zones,
		})
	}
	strobeOut := strobeSpeed(math.Min(comb.StrobeRate, maxRate))
	if strobe {
		strobeOut = math.Max(strobeOut, strobeSpeed(maxRate))
	}

	// 8. Cache and return.
	st.Palette = pal
	e.frame++
	e.stats.Frames = e.frame
	intent := LightingIntent{
		Palette:         intentPalette(pal),
		MasterIntensity: master,
		Zones:           zones,
		Movement:        movement,
		Optics:          opticsFor(vibeID, st.IsDropActive),
		Effects:         intents,
		White:           lighting.Clamp01(comb.WhiteOverride),
		Amber:           lighting.Clamp01(comb.AmberOverride),
		Strobe:          strobeOut,
		State:           st,
		VibeID:          vibeID,
		Source:          source,
		Frame:           e.frame,
		Timestamp:       now,
	}
	e.last = intent
	e.hasLast = true
	return intent
}

// tick returns the time since the previous frame and feeds the clock.
func (e *Engine) tick(now time.Time) time.Duration {
	if e.started.IsZero() {
		e.started = now
	}
	dt := e.cfg.FrameInterval
	if !e.lastTick.IsZero() {
		dt = max(now.Sub(e.lastTick), 0)
	}
	e.lastTick = now
	e.clock.Observe(dt)
	return dt
}

// stabilize runs energy, key, mood and strategy in dependency order and
// emits an event for every commit.
func (e *Engine) stabilize(mc MusicalContext, af AudioFrame, vibeID vibe.ID) StabilizedState {
	en := e.energy.Update(af.Energy)
	if en.ResetTriggered {
		e.stats.SilenceResets++
		e.emit(EventSilenceReset, nil)
	}

	key := e.key.Update(stabilizer.KeyInput{Key: mc.Key, Confidence: mc.Confidence, Energy: en.SmoothedEnergy})
	if key.StableKey != "" && key.StableKey != e.lastKey {
		e.emit(EventKeyCommitted, map[string]any{"key": key.StableKey, "previous": e.lastKey})
		e.lastKey = key.StableKey
	}

	mood := e.mood.Update(stabilizer.MoodInput{
		Mode:       mc.Mode,
		Mood:       mc.Mood,
		Confidence: mc.Confidence,
		Energy:     en.SmoothedEnergy,
		Key:        key.StableKey,
	})
	if mood.EmotionChanged {
		e.emit(EventEmotionChanged, map[string]any{"emotion": mood.StableEmotion})
	}

	section := lighting.ParseSection(mc.Section.Type)
	strat := e.strategy.Update(stabilizer.StrategyInput{
		Syncopation:         mc.Syncopation,
		SectionType:         section,
		Energy:              en.InstantEnergy,
		Confidence:          mc.Confidence,
		IsRelativeDrop:      en.IsRelativeDrop,
		IsRelativeBreakdown: en.IsRelativeBreakdown,
	})
	if strat.StrategyChanged {
		e.emit(EventStrategyChanged, map[string]any{"strategy": strat.StableStrategy, "override": strat.Override})
	}

	if en.IsDropActive != e.dropActive {
		kind := EventDropEnded
		if en.IsDropActive {
			kind = EventDropStarted
		}
		e.emit(kind, map[string]any{"energy": en.InstantEnergy, "smoothed": en.SmoothedEnergy})
	}

	emotion, _ := e.vibes.ConstrainMetaEmotion(mood.StableEmotion)
	strategy, _ := e.vibes.ConstrainStrategy(strat.StableStrategy)
	kelvin, _ := e.vibes.ConstrainTemperature(float64(mood.ThermalTemperatureK))
	e.updateMoodWord(mc.Mood, emotion, mood.EmotionChanged)

	return StabilizedState{
		StableKey:           key.StableKey,
		StableEmotion:       emotion,
		StableStrategy:      strategy,
		Mood:                e.moodWord,
		RawEnergy:           en.RawEnergy,
		SmoothedEnergy:      en.SmoothedEnergy,
		IsDropActive:        en.IsDropActive,
		DropState:           en.DropState,
		IsSilence:           en.IsSilence,
		ThermalTemperatureK: int(math.Round(kelvin)),
		ContrastLevel:       strat.ContrastLevel,
		SectionType:         section,
		BPM:                 mc.BPM,
		VibeID:              vibeID,
	}
}

// updateMoodWord keeps the mood word that seeds the palette hue stable: it
// only moves when the stable emotion commits, and only to a word the vibe
// allows that expresses that emotion.
func (e *Engine) updateMoodWord(raw string, emotion lighting.MetaEmotion, committed bool) {
	if raw == "" || (e.moodWord != "" && !committed) {
		return
	}
	word, _ := e.vibes.ConstrainMood(strings.ToLower(strings.TrimSpace(raw)))
	if got, ok := stabilizer.ClassifyEmotion("", word); ok && got == emotion {
		e.moodWord = word
	}
}

// paletteRequest derives the palette seed from stable values only, so the
// palette cannot flicker with the raw analysis.
func paletteRequest(st StabilizedState, prof *vibe.Profile) palette.Request {
	return palette.Request{
		Key:           st.StableKey,
		Mode:          modeOf(st.StableKey),
		Mood:          st.Mood,
		Emotion:       st.StableEmotion,
		Strategy:      st.StableStrategy,
		Energy:        st.SmoothedEnergy,
		ContrastLevel: st.ContrastLevel,
		SaturationMin: prof.Color.Saturation.Min,
		SaturationMax: prof.Color.Saturation.Max,
	}
}

// modeOf reads the mode from a key name such as "Am" or "F#".
func modeOf(key string) string {
	switch {
	case key == "":
		return ""
	case strings.HasSuffix(key, "m"):
		return "minor"
	default:
		return "major"
	}
}

// bandZones mixes band metrics into zone intensities.
func bandZones(af AudioFrame) map[lighting.Zone]ZoneIntent {
	side := lighting.Clamp01(af.High*0.5 + af.Energy*0.5)
	return map[lighting.Zone]ZoneIntent{
		lighting.ZoneFront:   {Intensity: lighting.Clamp01(af.Mid*0.8 + af.Bass*0.2), Role: lighting.RolePrimary},
		lighting.ZoneBack:    {Intensity: lighting.Clamp01(af.Bass*0.6 + af.Energy*0.4), Role: lighting.RoleAccent},
		lighting.ZoneMovers:  {Intensity: side, Role: lighting.RoleSecondary},
		lighting.ZoneLeft:    {Intensity: side, Role: lighting.RoleSecondary},
		lighting.ZoneRight:   {Intensity: side, Role: lighting.RoleSecondary},
		lighting.ZoneAmbient: {Intensity: lighting.Clamp01(af.Energy * 0.3), Role: lighting.RoleAmbient},
	}
}

// physicsZones replaces the band mix with a physics result. Without a
// stereo split both sides follow the movers.
func physicsZones(z ZoneIntensities) map[lighting.Zone]ZoneIntent {
	left, right := z.Movers, z.Movers
	if z.Stereo {
		left, right = z.Left, z.Right
	}
	return map[lighting.Zone]ZoneIntent{
		lighting.ZoneFront:   {Intensity: lighting.Clamp01(finite(z.Front)), Role: lighting.RolePrimary},
		lighting.ZoneBack:    {Intensity: lighting.Clamp01(finite(z.Back)), Role: lighting.RoleAccent},
		lighting.ZoneMovers:  {Intensity: lighting.Clamp01(finite(z.Movers)), Role: lighting.RoleSecondary},
		lighting.ZoneLeft:    {Intensity: lighting.Clamp01(finite(left)), Role: lighting.RoleSecondary},
		lighting.ZoneRight:   {Intensity: lighting.Clamp01(finite(right)), Role: lighting.RoleSecondary},
		lighting.ZoneAmbient: {Intensity: lighting.Clamp01(finite(z.Ambient)), Role: lighting.RoleAmbient},
	}
}

// applyZoneOverrides writes effect output into the zone map. A global
// override sets every zone; targeted effects lift their zones and the
// highest-priority colour per zone wins.
func applyZoneOverrides(zones map[lighting.Zone]ZoneIntent, outputs []effects.Output, comb effects.Combined, c *constitution.Constitution) {
	if comb.GlobalOverride {
		for z, zi := range zones {
			zi.Intensity = lighting.Clamp01(comb.DimmerOverride)
			zones[z] = zi
		}
		return
	}

	best := make(map[lighting.Zone]int)
	for _, out := range outputs {
		targets := out.Zones
		if slices.Contains(targets, lighting.ZoneAll) {
			targets = slices.Collect(maps.Keys(zones))
		}
		for _, z := range targets {
			zi, ok := zones[z]
			if !ok {
				continue
			}
			zi.Intensity = math.Max(zi.Intensity, lighting.Clamp01(out.DimmerOverride))
			if out.ColorOverride != nil {
				if p, seen := best[z]; !seen || out.Priority >= p {
					col := intentColor(c.Apply(*out.ColorOverride, lighting.RolePrimary))
					zi.ColorOverride = &col
					best[z] = out.Priority
				}
			}
			zones[z] = zi
		}
	}
}

// strobeAllowed reports whether the vibe and the constitution both permit
// strobing.
func (e *Engine) strobeAllowed(c *constitution.Constitution) bool {
	return e.vibes.IsEffectAllowed(strobeCategory) && e.vibes.MaxStrobeRate() > 0 && !c.StrobeProhibited
}

// flareOnDrop fires a solar flare when a drop starts and the vibe accepts it.
func (e *Engine) flareOnDrop(st StabilizedState, af AudioFrame, now time.Time) {
	started := st.IsDropActive && !e.dropActive
	e.dropActive = st.IsDropActive
	if !started {
		return
	}
	if !e.vibes.IsDropAllowed(af.Energy, st.SmoothedEnergy, now.Sub(e.lastDropAt)) {
		return
	}
	e.lastDropAt = now
	cfg := effects.TriggerConfig{Type: effects.TypeSolarFlare, Intensity: af.Energy, Source: SourceDrop}
	if _, err := e.trigger(cfg); err != nil {
		e.logThrottled("drop-flare", "drop flare not fired", "error", err)
		return
	}
	e.stats.DropFlares++
}

// consumeStrikes fires every queued manual strike.
func (e *Engine) consumeStrikes() {
	for _, cfg := range e.strikes {
		if _, err := e.trigger(cfg); err != nil {
			e.stats.EffectsRejected++
			e.logger.Warn("strike rejected", "type", cfg.Type, "error", err)
			continue
		}
		e.stats.StrikesConsumed++
	}
	e.strikes = e.strikes[:0]
}

// trigger fires an effect if the active vibe and constitution allow its
// category. Callers hold e.mu.
func (e *Engine) trigger(cfg effects.TriggerConfig) (string, error) {
	category := effects.Category(cfg.Type)
	if !e.vibes.IsEffectAllowed(category) {
		return "", fmt.Errorf("%w: %s in %s", effects.ErrEffectNotAllowed, cfg.Type, e.vibes.ActiveID())
	}
	if category == strobeCategory && !e.strobeAllowed(e.constitutions.Get(string(e.vibes.ActiveID()))) {
		return "", fmt.Errorf("%w: strobe prohibited in %s", effects.ErrEffectNotAllowed, e.vibes.ActiveID())
	}
	return e.fx.Trigger(cfg)
}

func (e *Engine) logThrottled(key, msg string, args ...any) {
	now := e.now()
	if last, ok := e.lastLog[key]; ok && now.Sub(last) < logThrottle {
		return
	}
	e.lastLog[key] = now
	e.logger.Warn(msg, args...)
}

func isFlash(effectType string) bool {
	return effectType == effects.TypeSolarFlare || effectType == effects.TypeBlinder
}

func strobeSpeed(rate float64) float64 {
	return lighting.Clamp01(rate / maxStrobeHz)
}

func effectFields(ev effects.Event) map[string]any {
	f := map[string]any{"effect_id": ev.EffectID, "type": ev.Type}
	if ev.Source != "" {
		f["source"] = ev.Source
	}
	if ev.Intensity > 0 {
		f["intensity"] = ev.Intensity
	}
	if ev.Aborted {
		f["aborted"] = true
	}
	return f
}

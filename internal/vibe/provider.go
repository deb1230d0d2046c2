package vibe

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// DefaultCrossfade is the vibe transition duration.
const DefaultCrossfade = 3 * time.Second

const (
	// floorHoldFraction is the share of a crossfade during which the dimmer
	// floor holds max(from, to).
	floorHoldFraction = 0.7

	// blackoutThreshold is the raw dimmer below which a request means "off".
	blackoutThreshold = 0.01
)

// Logger defines the logging interface used by the Provider.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Provider holds the active vibe and answers constraint queries against it.
//
// Constraint queries always read the target profile. Only DimmerFloor
// blends the outgoing profile during a crossfade.
type Provider struct {
	reg       *Registry
	current   *Profile
	previous  *Profile
	crossfade time.Duration
	elapsed   time.Duration
	progress  float64
	logger    Logger
}

// NewProvider creates a provider with the registry's default vibe active.
// A non-positive crossfade selects DefaultCrossfade.
func NewProvider(reg *Registry, crossfade time.Duration) (*Provider, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrVibeNotFound)
	}
	p, err := reg.Get(string(reg.Default()))
	if err != nil {
		return nil, err
	}
	if crossfade <= 0 {
		crossfade = DefaultCrossfade
	}
	return &Provider{
		reg:       reg,
		current:   p,
		crossfade: crossfade,
		progress:  1,
		logger:    noopLogger{},
	}, nil
}

// SetLogger sets the logger for the provider.
func (v *Provider) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	v.logger = logger
}

// Registry returns the registry the provider resolves IDs against.
func (v *Provider) Registry() *Registry {
	return v.reg
}

// SetActiveVibe starts a crossfade to the named vibe (ID or alias).
// It returns false, keeping the current vibe, when the name is unknown or
// already active.
func (v *Provider) SetActiveVibe(name string) bool {
	next, err := v.reg.Get(name)
	if err != nil {
		v.logger.Warn("unknown vibe requested, keeping current", "requested", name, "current", v.current.ID)
		return false
	}
	if next.ID == v.current.ID {
		return false
	}

	v.previous = v.current
	v.current = next
	v.elapsed = 0
	v.progress = 0
	v.logger.Info("vibe crossfade started", "from", v.previous.ID, "to", next.ID, "duration", v.crossfade)
	return true
}

// SetActiveVibeImmediate switches without a crossfade. It returns false
// only for unknown names.
func (v *Provider) SetActiveVibeImmediate(name string) bool {
	next, err := v.reg.Get(name)
	if err != nil {
		v.logger.Warn("unknown vibe requested, keeping current", "requested", name, "current", v.current.ID)
		return false
	}
	v.current = next
	v.previous = nil
	v.elapsed = 0
	v.progress = 1
	v.logger.Info("vibe switched", "to", next.ID)
	return true
}

// Advance moves the crossfade forward by dt.
func (v *Provider) Advance(dt time.Duration) {
	if v.progress >= 1 || dt <= 0 {
		return
	}
	v.elapsed += dt
	v.progress = math.Min(1, float64(v.elapsed)/float64(v.crossfade))
	if v.progress >= 1 {
		v.logger.Debug("vibe crossfade complete", "vibe", v.current.ID)
		v.previous = nil
	}
}

// Active returns the target profile.
func (v *Provider) Active() *Profile {
	return v.current
}

// ActiveID returns the target profile's ID.
func (v *Provider) ActiveID() ID {
	return v.current.ID
}

// IsTransitioning reports whether a crossfade is in progress.
func (v *Provider) IsTransitioning() bool {
	return v.progress < 1 && v.previous != nil
}

// Transition returns the crossfade state.
func (v *Provider) Transition() Transition {
	t := Transition{
		To:       v.current.ID,
		Progress: v.progress,
		Elapsed:  v.elapsed,
		Duration: v.crossfade,
		Active:   v.IsTransitioning(),
	}
	if v.previous != nil {
		t.From = v.previous.ID
	}
	return t
}

// DimmerFloor returns the minimum master intensity.
//
// During a crossfade the floor is max(from, to) until 70% progress, then
// eases in-out to the target floor over the remaining 30%.
func (v *Provider) DimmerFloor() float64 {
	if !v.IsTransitioning() {
		return v.current.Dimmer.Floor
	}
	from, to := v.previous.Dimmer.Floor, v.current.Dimmer.Floor
	held := math.Max(from, to)
	if v.progress < floorHoldFraction {
		return held
	}
	local := (v.progress - floorHoldFraction) / (1 - floorHoldFraction)
	return held + (to-held)*easeInOutQuad(local)
}

// DimmerCeiling returns the maximum master intensity.
func (v *Provider) DimmerCeiling() float64 {
	return v.current.Dimmer.Ceiling
}

// ConstrainDimmer clamps a master intensity into [floor, ceiling]. A request
// below 1% is a blackout, honoured only if the vibe allows it and no
// crossfade is holding the floor.
func (v *Provider) ConstrainDimmer(raw float64) (float64, bool) {
	raw = lighting.Clamp01(raw)
	floor := v.DimmerFloor()
	if raw < blackoutThreshold {
		if v.current.Dimmer.AllowBlackout && !v.IsTransitioning() {
			return 0, raw != 0
		}
		return floor, true
	}
	return Range{Min: floor, Max: v.current.Dimmer.Ceiling}.Clamp(raw)
}

// ConstrainMood maps a mood onto the vibe: allowed moods pass, otherwise
// the nearest allowed neighbour, otherwise the vibe's fallback.
func (v *Provider) ConstrainMood(mood string) (string, bool) {
	if v.current.AllowsMood(mood) {
		return mood, false
	}
	if near, ok := closestMood(mood, v.current); ok {
		return near, true
	}
	return v.current.Mood.Fallback, true
}

// ConstrainTemperature clamps a colour temperature in Kelvin.
func (v *Provider) ConstrainTemperature(kelvin float64) (float64, bool) {
	return v.current.Color.Temperature.Clamp(kelvin)
}

// ConstrainSaturation clamps a saturation in [0, 1].
func (v *Provider) ConstrainSaturation(s float64) (float64, bool) {
	return v.current.Color.Saturation.Clamp(s)
}

// ConstrainStrategy keeps an allowed strategy, else returns the vibe's first.
func (v *Provider) ConstrainStrategy(s lighting.ColorStrategy) (lighting.ColorStrategy, bool) {
	if v.current.AllowsStrategy(s) {
		return s, false
	}
	return v.current.Color.Strategies[0], true
}

// ConstrainColor applies the temperature, saturation and strategy limits
// together. An empty strategy selects the vibe's first without counting
// as a correction.
func (v *Provider) ConstrainColor(p ColorParams) (ColorParams, bool) {
	var tc, sc, gc bool
	p.TemperatureK, tc = v.ConstrainTemperature(p.TemperatureK)
	p.Saturation, sc = v.ConstrainSaturation(p.Saturation)
	if p.Strategy == "" {
		p.Strategy = v.current.Color.Strategies[0]
	} else {
		p.Strategy, gc = v.ConstrainStrategy(p.Strategy)
	}
	return p, tc || sc || gc
}

// ConstrainMetaEmotion keeps the emotion if the vibe allows any mood that
// expresses it. Otherwise it returns the emotion of the fallback mood, then
// the first emotion with any allowed mood, then NEUTRAL.
func (v *Provider) ConstrainMetaEmotion(e lighting.MetaEmotion) (lighting.MetaEmotion, bool) {
	if slices.ContainsFunc(emotionMoods[e], v.current.AllowsMood) {
		return e, false
	}
	for _, candidate := range emotionOrder {
		if slices.Contains(emotionMoods[candidate], v.current.Mood.Fallback) {
			return candidate, candidate != e
		}
	}
	for _, candidate := range emotionOrder {
		if slices.ContainsFunc(emotionMoods[candidate], v.current.AllowsMood) {
			return candidate, candidate != e
		}
	}
	return lighting.EmotionNeutral, e != lighting.EmotionNeutral
}

// ConstrainMovementSpeed clamps a movement speed in [0, 1].
func (v *Provider) ConstrainMovementSpeed(speed float64) (float64, bool) {
	return v.current.Movement.Speed.Clamp(speed)
}

// ConstrainPattern keeps an allowed movement pattern, else returns the
// vibe's first pattern.
func (v *Provider) ConstrainPattern(pattern string) (string, bool) {
	if slices.Contains(v.current.Movement.Patterns, pattern) {
		return pattern, false
	}
	return v.current.Movement.Patterns[0], true
}

// IsDropAllowed reports whether a drop may fire: the cooldown since the
// last drop must have passed and energy must exceed the smoothed level by
// threshold*sensitivity.
func (v *Provider) IsDropAllowed(energy, smoothed float64, sinceLastDrop time.Duration) bool {
	d := v.current.Drop
	if sinceLastDrop < d.Cooldown() {
		return false
	}
	return energy-smoothed >= d.EnergyThreshold*d.Sensitivity
}

// IsEffectAllowed reports whether an effect category is permitted.
func (v *Provider) IsEffectAllowed(name string) bool {
	return v.current.AllowsEffect(name)
}

// MaxStrobeRate returns the strobe limit in flashes per second.
func (v *Provider) MaxStrobeRate() float64 {
	return v.current.Effects.MaxStrobeRate
}

func easeInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}

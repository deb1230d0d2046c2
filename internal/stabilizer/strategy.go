package stabilizer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// neutralSyncopation seeds the syncopation buffer and is returned when no
// sample carries weight.
const neutralSyncopation = 0.45

// Override names the section rule that forced a strategy this frame.
type Override string

const (
	OverrideNone      Override = "none"
	OverrideBreakdown Override = "breakdown"
	OverrideDrop      Override = "drop"
)

type syncZone int

const (
	zoneLow syncZone = iota
	zoneMid
	zoneHigh
)

// StrategyConfig configures a StrategyArbiter.
type StrategyConfig struct {
	Window time.Duration `yaml:"window"`
	Lock   time.Duration `yaml:"lock"`

	// Averaged syncopation below LowThreshold is analogous, above
	// HighThreshold complementary, triadic in between.
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`
	Hysteresis    float64 `yaml:"hysteresis"`

	// Samples below MinConfidence carry no weight in the average.
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultStrategyConfig returns the production defaults.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Window:        15 * time.Second,
		Lock:          15 * time.Second,
		LowThreshold:  0.35,
		HighThreshold: 0.55,
		Hysteresis:    0.05,
		MinConfidence: 0.1,
	}
}

// Validate checks the configuration for internal consistency.
func (c StrategyConfig) Validate() error {
	var errs []string
	if c.Window <= 0 {
		errs = append(errs, "strategy window must be positive")
	}
	if c.Lock <= 0 {
		errs = append(errs, "strategy lock must be positive")
	}
	if c.LowThreshold < 0 || c.HighThreshold > 1 || c.LowThreshold >= c.HighThreshold {
		errs = append(errs, "strategy thresholds must satisfy 0 <= low < high <= 1")
	}
	if c.Hysteresis < 0 || 2*c.Hysteresis >= c.HighThreshold-c.LowThreshold {
		errs = append(errs, "strategy hysteresis must be non-negative and narrower than the mid band")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, "strategy min_confidence must be in [0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// StrategyInput is one frame of rhythm and structure analysis.
type StrategyInput struct {
	Syncopation         float64
	SectionType         lighting.SectionType
	Energy              float64
	Confidence          float64
	IsRelativeDrop      bool
	IsRelativeBreakdown bool
}

// StrategyOutput is the stabilised colour strategy for one frame.
type StrategyOutput struct {
	StableStrategy     lighting.ColorStrategy `json:"stable_strategy"`
	StrategyChanged    bool                   `json:"strategy_changed"`
	InstantStrategy    lighting.ColorStrategy `json:"instant_strategy"`
	AverageSyncopation float64                `json:"average_syncopation"`
	ContrastLevel      float64                `json:"contrast_level"`
	FramesSinceChange  int                    `json:"frames_since_change"`
	IsLocked           bool                   `json:"is_locked"`
	Override           Override               `json:"override"`
}

// StrategyArbiter picks a colour strategy from exponentially weighted
// syncopation with threshold hysteresis and a lock window. Section rules
// override the average: breakdowns and bridges calm to analogous, and a
// real drop jumps to complementary even while locked.
type StrategyArbiter struct {
	cfg   StrategyConfig
	clock *Clock

	values  []float64
	weights []float64
	next    int

	// decay[a] is the weight of the sample a frames old.
	decay   []float64
	ordVals []float64
	ordWts  []float64

	stable      lighting.ColorStrategy
	zone        syncZone
	sinceChange int
	locked      bool
	changes     int
}

// NewStrategyArbiter creates a strategy arbiter. It starts locked on
// analogous so the first decision is made on a full lock window of music.
func NewStrategyArbiter(cfg StrategyConfig, clock *Clock) (*StrategyArbiter, error) {
	if clock == nil {
		return nil, ErrNilClock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := clock.NominalFrames(cfg.Window)
	a := &StrategyArbiter{
		cfg:     cfg,
		clock:   clock,
		values:  make([]float64, n),
		weights: make([]float64, n),
		decay:   make([]float64, n),
		ordVals: make([]float64, n),
		ordWts:  make([]float64, n),
	}
	tau := float64(n) / 3
	for age := range a.decay {
		a.decay[age] = math.Exp(-float64(age) / tau)
	}
	a.Reset()
	return a, nil
}

// Update records one frame and returns the stabilised strategy.
func (a *StrategyArbiter) Update(in StrategyInput) StrategyOutput {
	a.sinceChange++

	w := 1.0
	if finite(in.Confidence) < a.cfg.MinConfidence {
		w = 0
	}
	a.values[a.next] = clamp01(in.Syncopation)
	a.weights[a.next] = w
	a.next = (a.next + 1) % len(a.values)

	avg := a.average()
	instant := a.strategyFor(a.rawZone(avg))
	a.zone = a.hysteresisZone(avg)

	override, forced := a.sectionOverride(in)
	lockFrames := a.clock.Frames(a.cfg.Lock)
	canChange := !a.locked || a.sinceChange >= lockFrames

	changed := false
	switch override {
	case OverrideDrop:
		// A confirmed drop is allowed to break the lock.
		if forced != a.stable {
			a.commit(forced)
			changed = true
		}
	case OverrideBreakdown:
		if canChange && forced != a.stable {
			a.commit(forced)
			changed = true
		}
	default:
		if target := a.strategyFor(a.zone); canChange && target != a.stable {
			a.commit(target)
			changed = true
		}
	}
	if a.locked && !changed && a.sinceChange >= lockFrames {
		a.locked = false
	}

	return StrategyOutput{
		StableStrategy:     a.stable,
		StrategyChanged:    changed,
		InstantStrategy:    instant,
		AverageSyncopation: avg,
		ContrastLevel:      ContrastLevel(a.stable, avg),
		FramesSinceChange:  a.sinceChange,
		IsLocked:           a.locked,
		Override:           override,
	}
}

// StableStrategy returns the committed strategy.
func (a *StrategyArbiter) StableStrategy() lighting.ColorStrategy {
	return a.stable
}

// Changes returns how many commits have happened since construction.
func (a *StrategyArbiter) Changes() int {
	return a.changes
}

// Reset refills the buffer with neutral syncopation and relocks on analogous.
func (a *StrategyArbiter) Reset() {
	for i := range a.values {
		a.values[i] = neutralSyncopation
		a.weights[i] = 1
	}
	a.next = 0
	a.stable = lighting.StrategyAnalogous
	a.zone = zoneMid
	a.sinceChange = 0
	a.locked = true
}

func (a *StrategyArbiter) commit(s lighting.ColorStrategy) {
	a.stable = s
	a.sinceChange = 0
	a.locked = true
	a.changes++
}

// average is the exponentially age-weighted mean of the buffer.
func (a *StrategyArbiter) average() float64 {
	n := len(a.values)
	for age := 0; age < n; age++ {
		idx := (a.next - 1 - age + n) % n
		a.ordVals[age] = a.values[idx]
		a.ordWts[age] = a.weights[idx] * a.decay[age]
	}
	if floats.Sum(a.ordWts) <= 0 {
		return neutralSyncopation
	}
	return stat.Mean(a.ordVals, a.ordWts)
}

func (a *StrategyArbiter) rawZone(avg float64) syncZone {
	switch {
	case avg < a.cfg.LowThreshold:
		return zoneLow
	case avg > a.cfg.HighThreshold:
		return zoneHigh
	default:
		return zoneMid
	}
}

// hysteresisZone only leaves the current zone once the average is clearly
// past a threshold; inside the band it keeps the previous zone.
func (a *StrategyArbiter) hysteresisZone(avg float64) syncZone {
	h := a.cfg.Hysteresis
	switch {
	case avg < a.cfg.LowThreshold-h:
		return zoneLow
	case avg > a.cfg.HighThreshold+h:
		return zoneHigh
	case avg > a.cfg.LowThreshold+h && avg < a.cfg.HighThreshold-h:
		return zoneMid
	default:
		return a.zone
	}
}

func (a *StrategyArbiter) strategyFor(z syncZone) lighting.ColorStrategy {
	switch z {
	case zoneLow:
		return lighting.StrategyAnalogous
	case zoneHigh:
		return lighting.StrategyComplementary
	default:
		return lighting.StrategyTriadic
	}
}

func (a *StrategyArbiter) sectionOverride(in StrategyInput) (Override, lighting.ColorStrategy) {
	switch {
	case in.SectionType == lighting.SectionDrop && in.IsRelativeDrop:
		return OverrideDrop, lighting.StrategyComplementary
	case in.SectionType == lighting.SectionBreakdown, in.SectionType == lighting.SectionBridge, in.IsRelativeBreakdown:
		return OverrideBreakdown, lighting.StrategyAnalogous
	default:
		return OverrideNone, ""
	}
}

// ContrastLevel rates how much visual contrast a strategy produces, nudged
// by how syncopated the music is.
func ContrastLevel(s lighting.ColorStrategy, avgSyncopation float64) float64 {
	base := map[lighting.ColorStrategy]float64{
		lighting.StrategyMonochromatic:      0.1,
		lighting.StrategyAnalogous:          0.2,
		lighting.StrategyTriadic:            0.5,
		lighting.StrategySplitComplementary: 0.7,
		lighting.StrategyComplementary:      0.9,
	}[s]
	return clamp01(base + (avgSyncopation-neutralSyncopation)*0.2)
}

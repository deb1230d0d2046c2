package stabilizer

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DropState is a phase of the drop state machine.
type DropState string

const (
	DropIdle     DropState = "IDLE"
	DropAttack   DropState = "ATTACK"
	DropSustain  DropState = "SUSTAIN"
	DropRelease  DropState = "RELEASE"
	DropCooldown DropState = "COOLDOWN"
)

// DropTiming holds the phase durations of the drop state machine.
type DropTiming struct {
	Attack     time.Duration `yaml:"attack"`
	MinSustain time.Duration `yaml:"min_sustain"`
	MaxSustain time.Duration `yaml:"max_sustain"`
	Release    time.Duration `yaml:"release"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

// EnergyConfig configures an EnergyStabilizer.
type EnergyConfig struct {
	// SmoothingWindow is the span of the rolling mean fed into the EMA.
	SmoothingWindow time.Duration `yaml:"smoothing_window"`
	EMAFactor       float64       `yaml:"ema_factor"`
	PeakWindow      time.Duration `yaml:"peak_window"`

	SilenceThreshold float64       `yaml:"silence_threshold"`
	SilenceAfter     time.Duration `yaml:"silence_after"`
	SilenceReset     time.Duration `yaml:"silence_reset"`

	// A relative drop is energy > ema+DropDelta while energy > DropFloor.
	DropDelta float64 `yaml:"drop_delta"`
	DropFloor float64 `yaml:"drop_floor"`

	// A relative breakdown is energy < ema-BreakdownDelta while ema > BreakdownFloor.
	BreakdownDelta float64 `yaml:"breakdown_delta"`
	BreakdownFloor float64 `yaml:"breakdown_floor"`

	// AttackAbortEnergy ends an attack early; SustainExitEnergy allows leaving sustain.
	AttackAbortEnergy float64 `yaml:"attack_abort_energy"`
	SustainExitEnergy float64 `yaml:"sustain_exit_energy"`

	Drop DropTiming `yaml:"drop"`
}

// DefaultEnergyConfig returns the production defaults.
func DefaultEnergyConfig() EnergyConfig {
	return EnergyConfig{
		SmoothingWindow:   2 * time.Second,
		EMAFactor:         0.95,
		PeakWindow:        500 * time.Millisecond,
		SilenceThreshold:  0.02,
		SilenceAfter:      500 * time.Millisecond,
		SilenceReset:      3 * time.Second,
		DropDelta:         0.15,
		DropFloor:         0.5,
		BreakdownDelta:    0.12,
		BreakdownFloor:    0.3,
		AttackAbortEnergy: 0.3,
		SustainExitEnergy: 0.4,
		Drop: DropTiming{
			Attack:     500 * time.Millisecond,
			MinSustain: 2 * time.Second,
			MaxSustain: 8 * time.Second,
			Release:    time.Second,
			Cooldown:   3 * time.Second,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c EnergyConfig) Validate() error {
	var errs []string
	if c.SmoothingWindow <= 0 {
		errs = append(errs, "energy smoothing_window must be positive")
	}
	if c.PeakWindow <= 0 {
		errs = append(errs, "energy peak_window must be positive")
	}
	if c.EMAFactor < 0 || c.EMAFactor >= 1 {
		errs = append(errs, "energy ema_factor must be in [0, 1)")
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold > 1 {
		errs = append(errs, "energy silence_threshold must be in [0, 1]")
	}
	if c.SilenceAfter <= 0 || c.SilenceReset < c.SilenceAfter {
		errs = append(errs, "energy silence_reset must be at least silence_after (> 0)")
	}
	if c.Drop.Attack <= 0 || c.Drop.Release <= 0 || c.Drop.Cooldown <= 0 {
		errs = append(errs, "energy drop attack, release and cooldown must be positive")
	}
	if c.Drop.MinSustain <= 0 || c.Drop.MaxSustain < c.Drop.MinSustain {
		errs = append(errs, "energy drop max_sustain must be at least min_sustain (> 0)")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// EnergyOutput is the stabilised energy for one frame.
type EnergyOutput struct {
	RawEnergy      float64 `json:"raw_energy"`
	InstantEnergy  float64 `json:"instant_energy"`
	SmoothedEnergy float64 `json:"smoothed_energy"`
	PeakEnergy     float64 `json:"peak_energy"`
	Delta          float64 `json:"delta"`

	IsSilence      bool `json:"is_silence"`
	SilenceFrames  int  `json:"silence_frames"`
	ResetTriggered bool `json:"reset_triggered"`

	IsRelativeDrop      bool      `json:"is_relative_drop"`
	IsRelativeBreakdown bool      `json:"is_relative_breakdown"`
	DropState           DropState `json:"drop_state"`
	IsDropActive        bool      `json:"is_drop_active"`
}

// EnergyStabilizer smooths raw energy, detects silence and runs the drop
// state machine IDLE → ATTACK → SUSTAIN → RELEASE → COOLDOWN.
type EnergyStabilizer struct {
	cfg   EnergyConfig
	clock *Clock

	window    []float64
	windowIdx int
	peaks     []float64
	peakIdx   int

	ema      float64
	previous float64

	silenceFrames  int
	framesSinceRst int
	resets         int

	drop       DropState
	dropFrames int
	dropActive bool
}

// NewEnergyStabilizer creates an energy stabilizer with zero-filled buffers.
func NewEnergyStabilizer(cfg EnergyConfig, clock *Clock) (*EnergyStabilizer, error) {
	if clock == nil {
		return nil, ErrNilClock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &EnergyStabilizer{
		cfg:    cfg,
		clock:  clock,
		window: make([]float64, clock.NominalFrames(cfg.SmoothingWindow)),
		peaks:  make([]float64, clock.NominalFrames(cfg.PeakWindow)),
	}
	e.Reset()
	return e, nil
}

// Update feeds one raw energy reading. NaN and Inf are treated as zero and
// the value is clamped to [0, 1].
func (e *EnergyStabilizer) Update(raw float64) EnergyOutput {
	energy := clamp01(raw)
	e.framesSinceRst++

	e.window[e.windowIdx] = energy
	e.windowIdx = (e.windowIdx + 1) % len(e.window)
	e.peaks[e.peakIdx] = energy
	e.peakIdx = (e.peakIdx + 1) % len(e.peaks)

	rolling := stat.Mean(e.window, nil)
	e.ema = e.ema*e.cfg.EMAFactor + rolling*(1-e.cfg.EMAFactor)
	peak := floats.Max(e.peaks)

	delta := energy - e.previous
	e.previous = energy

	resetFrames := e.clock.Frames(e.cfg.SilenceReset)
	reset := false
	if energy < e.cfg.SilenceThreshold {
		e.silenceFrames++
		// Rate-limit resets so a long silence resets once, not every window.
		if e.silenceFrames >= resetFrames && e.framesSinceRst > 2*resetFrames {
			e.clearBuffers()
			e.framesSinceRst = 0
			e.silenceFrames = 0
			e.resets++
			reset = true
		}
	} else {
		e.silenceFrames = 0
	}
	silence := e.silenceFrames > e.clock.Frames(e.cfg.SilenceAfter)

	isDrop := energy > e.ema+e.cfg.DropDelta && energy > e.cfg.DropFloor
	isBreakdown := energy < e.ema-e.cfg.BreakdownDelta && e.ema > e.cfg.BreakdownFloor
	e.advanceDrop(isDrop, isBreakdown, energy)

	return EnergyOutput{
		RawEnergy:           finite(raw),
		InstantEnergy:       energy,
		SmoothedEnergy:      e.ema,
		PeakEnergy:          peak,
		Delta:               delta,
		IsSilence:           silence,
		SilenceFrames:       e.silenceFrames,
		ResetTriggered:      reset,
		IsRelativeDrop:      isDrop,
		IsRelativeBreakdown: isBreakdown,
		DropState:           e.drop,
		IsDropActive:        e.dropActive,
	}
}

// advanceDrop steps the drop state machine by one frame.
func (e *EnergyStabilizer) advanceDrop(isDrop, isBreakdown bool, energy float64) {
	e.dropFrames++
	t := e.cfg.Drop

	switch e.drop {
	case DropIdle:
		e.dropActive = false
		if isDrop {
			e.enterDrop(DropAttack)
		}
	case DropAttack:
		e.dropActive = true
		switch {
		case e.dropFrames >= e.clock.Frames(t.Attack):
			e.enterDrop(DropSustain)
		case isBreakdown || energy < e.cfg.AttackAbortEnergy:
			e.enterDrop(DropRelease)
		}
	case DropSustain:
		e.dropActive = true
		exit := isBreakdown || energy < e.cfg.SustainExitEnergy || e.dropFrames >= e.clock.Frames(t.MaxSustain)
		if exit && e.dropFrames >= e.clock.Frames(t.MinSustain) {
			e.enterDrop(DropRelease)
		}
	case DropRelease:
		release := e.clock.Frames(t.Release)
		// Only the first half of the release still counts as an active drop.
		e.dropActive = float64(e.dropFrames)/float64(release) < 0.5
		if e.dropFrames >= release {
			e.enterDrop(DropCooldown)
			e.dropActive = false
		}
	case DropCooldown:
		e.dropActive = false
		if e.dropFrames >= e.clock.Frames(t.Cooldown) {
			e.enterDrop(DropIdle)
		}
	}
}

func (e *EnergyStabilizer) enterDrop(s DropState) {
	e.drop = s
	e.dropFrames = 0
}

// SmoothedEnergy returns the current EMA.
func (e *EnergyStabilizer) SmoothedEnergy() float64 {
	return e.ema
}

// DropState returns the current drop phase and whether the drop is active.
func (e *EnergyStabilizer) DropState() (DropState, bool) {
	return e.drop, e.dropActive
}

// Resets returns how many silence resets have fired.
func (e *EnergyStabilizer) Resets() int {
	return e.resets
}

// Reset zeroes every buffer and returns the drop machine to IDLE.
func (e *EnergyStabilizer) Reset() {
	e.clearBuffers()
	e.silenceFrames = 0
	e.framesSinceRst = 0
	e.drop = DropIdle
	e.dropFrames = 0
	e.dropActive = false
}

func (e *EnergyStabilizer) clearBuffers() {
	clear(e.window)
	clear(e.peaks)
	e.windowIdx = 0
	e.peakIdx = 0
	e.ema = 0
	e.previous = 0
}

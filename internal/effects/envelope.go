package effects

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// EnvelopeConfig describes the shape and colour of an envelope effect.
type EnvelopeConfig struct {
	Type     string
	Category string
	Priority int

	Attack  time.Duration
	Sustain time.Duration
	Decay   time.Duration

	// DecayCurve is the exponent of the decay ramp; 1 is linear.
	DecayCurve float64
	// DecayFloor is the intensity the decay ramp ends at.
	DecayFloor float64
	// Peak scales the whole envelope; zero means 1.
	Peak float64

	// PeakColor is held through attack and sustain and blends toward
	// DecayColor as intensity falls. Nil means no colour override.
	PeakColor  *RGBWA
	DecayColor *RGBWA

	StrobeRate   float64
	Global       bool
	DefaultZones []lighting.Zone
}

// Total returns the nominal length of the envelope.
func (c EnvelopeConfig) Total() time.Duration {
	return c.Attack + c.Sustain + c.Decay
}

// Envelope is an attack/sustain/decay effect.
type Envelope struct {
	cfg EnvelopeConfig
	id  string

	phase        Phase
	phaseElapsed time.Duration
	elapsed      time.Duration
	level        float64
	trigger      float64
	zones        []lighting.Zone
}

// NewEnvelope creates an idle envelope instance.
func NewEnvelope(id string, cfg EnvelopeConfig) *Envelope {
	if cfg.DecayCurve <= 0 {
		cfg.DecayCurve = 1
	}
	if cfg.Peak <= 0 {
		cfg.Peak = 1
	}
	cfg.DecayFloor = lighting.Clamp01(cfg.DecayFloor)
	if cfg.DecayColor == nil {
		cfg.DecayColor = cfg.PeakColor
	}
	return &Envelope{cfg: cfg, id: id, phase: PhaseIdle}
}

func (e *Envelope) ID() string     { return e.id }
func (e *Envelope) Type() string   { return e.cfg.Type }
func (e *Envelope) Priority() int  { return e.cfg.Priority }
func (e *Envelope) Phase() Phase   { return e.phase }
func (e *Envelope) Finished() bool { return e.phase == PhaseFinished }

// Config returns the envelope's configuration.
func (e *Envelope) Config() EnvelopeConfig { return e.cfg }

// Trigger starts (or restarts) the envelope from the attack phase.
func (e *Envelope) Trigger(cfg TriggerConfig) {
	e.phase = PhaseAttack
	e.phaseElapsed = 0
	e.elapsed = 0
	e.level = 0
	e.trigger = lighting.Clamp01(cfg.Intensity)
	e.zones = cfg.Zones
	if len(e.zones) == 0 {
		e.zones = e.cfg.DefaultZones
	}
	if len(e.zones) == 0 {
		e.zones = []lighting.Zone{lighting.ZoneAll}
	}
}

// Update advances the envelope by dt. Idle and finished envelopes do not move.
func (e *Envelope) Update(dt time.Duration) {
	if e.phase == PhaseIdle || e.phase == PhaseFinished {
		return
	}
	if dt < 0 {
		dt = 0
	}
	e.elapsed += dt
	e.phaseElapsed += dt

	switch e.phase {
	case PhaseAttack:
		if e.cfg.Attack <= 0 {
			e.level = 1
			e.enter(PhaseSustain)
			return
		}
		p := progress(e.phaseElapsed, e.cfg.Attack)
		e.level = 1 - math.Pow(1-p, 3)
		if p >= 1 {
			e.enter(PhaseSustain)
		}

	case PhaseSustain:
		e.level = 1
		if e.phaseElapsed >= e.cfg.Sustain {
			e.enter(PhaseDecay)
		}

	case PhaseDecay:
		if e.cfg.Decay <= 0 {
			e.level = e.cfg.DecayFloor
			e.enter(PhaseFinished)
			return
		}
		p := progress(e.phaseElapsed, e.cfg.Decay)
		e.level = e.cfg.DecayFloor + math.Pow(1-p, e.cfg.DecayCurve)*(1-e.cfg.DecayFloor)
		if e.phaseElapsed >= e.cfg.Decay {
			e.enter(PhaseFinished)
		}
	}
}

func (e *Envelope) enter(p Phase) {
	e.phase = p
	e.phaseElapsed = 0
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return math.Min(1, float64(elapsed)/float64(total))
}

// Abort finishes the envelope immediately.
func (e *Envelope) Abort() {
	e.phase = PhaseFinished
	e.level = 0
}

// Intensity returns the current scaled intensity in [0, 1].
func (e *Envelope) Intensity() float64 {
	return lighting.Clamp01(e.level * e.trigger * e.cfg.Peak)
}

// Output returns the envelope's contribution; false when idle or finished.
func (e *Envelope) Output() (Output, bool) {
	if e.phase == PhaseIdle || e.phase == PhaseFinished {
		return Output{}, false
	}

	in := e.Intensity()
	out := Output{
		ID:             e.id,
		Type:           e.cfg.Type,
		Phase:          e.phase,
		Progress:       progress(e.elapsed, e.cfg.Total()),
		Intensity:      in,
		DimmerOverride: in,
		GlobalOverride: e.cfg.Global,
		Zones:          e.zones,
		Priority:       e.cfg.Priority,
	}
	if e.cfg.StrobeRate > 0 && e.phase != PhaseDecay {
		out.StrobeRate = e.cfg.StrobeRate
	}

	if e.cfg.PeakColor != nil {
		col := *e.cfg.PeakColor
		if e.phase == PhaseDecay {
			col = LerpRGBWA(*e.cfg.DecayColor, *e.cfg.PeakColor, in)
		}
		hsl := col.RGB().HSL()
		out.ColorOverride = &hsl
		out.WhiteOverride = float64(col.W) / 255 * in
		out.AmberOverride = float64(col.A) / 255 * in
	}
	return out, true
}

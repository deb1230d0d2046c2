package orchestrator

import (
	"math"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

// referenceBPM is the tempo at which the fallback movement reaches the top
// of the vibe's speed range.
const referenceBPM = 140.0

// move picks the movement source for the frame: physics mechanics bypass
// the generator, the generator's proposal is constrained by the vibe, and
// the procedural fallback covers everything else.
func (e *Engine) move(prof *vibe.Profile, mc MusicalContext, af AudioFrame, st StabilizedState, phys PhysicsResult, now time.Time) MovementOutput {
	out := fallbackMovement(prof, af.Energy, mc.BPM)

	switch {
	case phys.Applied && phys.Mechanics != nil:
		l, r := clampPanTilt(phys.Mechanics.Left), clampPanTilt(phys.Mechanics.Right)
		out.MechanicsL = &l
		out.MechanicsR = &r
		out.CenterX = (l.Pan + r.Pan) / 2
		out.CenterY = (l.Tilt + r.Tilt) / 2
		out.Source = MovementFromPhysics

	case e.mover != nil:
		mi := e.mover.Generate(string(prof.ID), MovementContext{
			Energy:       st.SmoothedEnergy,
			BPM:          mc.BPM,
			BeatPhase:    mc.BeatPhase,
			IsBeat:       af.IsBeat,
			Section:      st.SectionType,
			IsDropActive: st.IsDropActive,
			Elapsed:      now.Sub(e.started),
		})
		out.Speed, _ = e.vibes.ConstrainMovementSpeed(lighting.Clamp01(finite(mi.Speed)))
		out.Pattern, _ = e.vibes.ConstrainPattern(mi.Pattern)
		out.Amplitude = lighting.Clamp01(finite(mi.Amplitude))
		out.CenterX = unitFromSigned(mi.X)
		out.CenterY = unitFromSigned(mi.Y)
		out.PhaseType = mi.PhaseType
		out.Source = MovementFromGenerator
	}
	return out
}

// fallbackMovement derives movement from energy and tempo alone.
func fallbackMovement(prof *vibe.Profile, energy, bpm float64) MovementOutput {
	speedRange := prof.Movement.Speed
	bpmFactor := math.Min(1, bpm/referenceBPM)
	speed := speedRange.Min + energy*bpmFactor*(speedRange.Max-speedRange.Min)

	patterns := prof.Movement.Patterns
	idx := min(int(energy*float64(len(patterns))), len(patterns)-1)

	return MovementOutput{
		Pattern:   patterns[idx],
		Speed:     lighting.Clamp01(speed),
		Amplitude: 0.5 + 0.5*energy,
		CenterX:   0.5,
		CenterY:   0.5,
		BeatSync:  true,
		Source:    MovementFromFallback,
	}
}

// unitFromSigned maps [-1, 1] onto [0, 1].
func unitFromSigned(v float64) float64 {
	return (lighting.Clamp(finite(v), -1, 1) + 1) / 2
}

func clampPanTilt(p PanTilt) PanTilt {
	return PanTilt{Pan: lighting.Clamp01(finite(p.Pan)), Tilt: lighting.Clamp01(finite(p.Tilt))}
}

// opticsByVibe is the resting zoom and focus per vibe. Unknown vibes use a
// neutral half-open beam.
var opticsByVibe = map[vibe.ID]Optics{
	vibe.IDIdle:         {Zoom: 0.5, Focus: 0.5},
	vibe.IDTechnoClub:   {Zoom: 0.1, Focus: 0.15},
	vibe.IDFiestaLatina: {Zoom: 0.6, Focus: 0.5},
	vibe.IDPopRock:      {Zoom: 0.35, Focus: 0.3},
	vibe.IDChillLounge:  {Zoom: 0.9, Focus: 0.8},
}

// opticsFor returns the vibe's optics. A drop halves the zoom for tighter
// beams.
func opticsFor(id vibe.ID, drop bool) Optics {
	o, ok := opticsByVibe[id]
	if !ok {
		o = Optics{Zoom: 0.5, Focus: 0.5}
	}
	if drop {
		o.Zoom /= 2
	}
	return o
}

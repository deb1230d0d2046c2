package main

import (
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/analyser"
	"github.com/nerrad567/gray-logic-lux/internal/constitution"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lux/internal/orchestrator"
	"github.com/nerrad567/gray-logic-lux/internal/stabilizer"
	"github.com/nerrad567/gray-logic-lux/internal/vibe"
)

// engineConfig maps the engine and stabilizer sections of the config file
// onto orchestrator.Config. Zero values keep the orchestrator defaults,
// except crossfade_ms where zero switches vibes instantly.
func engineConfig(cfg *config.Config) orchestrator.Config {
	out := orchestrator.DefaultConfig()
	e := cfg.Engine

	out.InitialVibe = e.InitialVibe
	out.FrameInterval = frameInterval(cfg.Show.FrameRate)
	out.Crossfade = millis(e.CrossfadeMS)
	out.ConsciousnessEnabled = e.ConsciousnessEnabled
	if e.AITimeoutMS > 0 {
		out.AITimeout = millis(e.AITimeoutMS)
	}
	if e.AIConfidenceThreshold > 0 {
		out.AIConfidenceThreshold = e.AIConfidenceThreshold
	}
	if e.PhysicsVetoEnergy > 0 {
		out.PhysicsVetoEnergy = e.PhysicsVetoEnergy
	}
	if e.StrobeEnergy > 0 {
		out.StrobeEnergy = e.StrobeEnergy
	}
	if e.EventBuffer > 0 {
		out.EventBuffer = e.EventBuffer
	}

	s := cfg.Stabilizers
	applyVote(s.Key, &out.Key.Window, &out.Key.Lock, &out.Key.DominanceThreshold, &out.Key.MinConfidence)
	applyVote(s.Mood, &out.Mood.Window, &out.Mood.Lock, &out.Mood.DominanceThreshold, &out.Mood.MinConfidence)
	// Strategy arbitration is threshold based; it has no dominance share.
	applyVote(s.Strategy, &out.Strategy.Window, &out.Strategy.Lock, nil, &out.Strategy.MinConfidence)
	applyEnergy(s.Energy, &out.Energy)

	return out
}

func applyVote(v config.VoteConfig, window, lock *time.Duration, dominance, minConfidence *float64) {
	if v.WindowMS > 0 {
		*window = millis(v.WindowMS)
	}
	if v.LockMS > 0 {
		*lock = millis(v.LockMS)
	}
	if v.DominanceThreshold > 0 && dominance != nil {
		*dominance = v.DominanceThreshold
	}
	if v.MinConfidence > 0 {
		*minConfidence = v.MinConfidence
	}
}

func applyEnergy(v config.EnergyConfig, out *stabilizer.EnergyConfig) {
	if v.SmoothingWindowMS > 0 {
		out.SmoothingWindow = millis(v.SmoothingWindowMS)
	}
	if v.EMAFactor > 0 {
		out.EMAFactor = v.EMAFactor
	}
	if v.SilenceThreshold > 0 {
		out.SilenceThreshold = v.SilenceThreshold
	}
}

// analyserConfig maps the analyser section onto the supervisor config.
func analyserConfig(a config.AnalyserConfig) analyser.Config {
	return analyser.Config{
		Command:         a.Command,
		Args:            a.Args,
		Env:             a.Env,
		WorkDir:         a.WorkDir,
		RestartDelay:    millis(a.RestartDelayMS),
		MaxRestartDelay: millis(a.MaxRestartDelayMS),
		MaxRestarts:     a.MaxRestarts,
		StopTimeout:     millis(a.StopTimeoutMS),
		Watchdog:        millis(a.WatchdogMS),
		StartupGrace:    millis(a.StartupGraceMS),
	}
}

// frameInterval converts frames per second to the render tick.
func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		return stabilizer.DefaultFrameInterval
	}
	return time.Second / time.Duration(fps)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// loadRegistries loads the vibe and constitution registries, from the
// configured files when set and from the embedded defaults otherwise.
func loadRegistries(cfg config.EngineConfig) (*vibe.Registry, *constitution.Registry, error) {
	var (
		vibes *vibe.Registry
		err   error
	)
	if cfg.ProfilesFile != "" {
		data, readErr := os.ReadFile(cfg.ProfilesFile)
		if readErr != nil {
			return nil, nil, fmt.Errorf("reading vibe profiles: %w", readErr)
		}
		vibes, err = vibe.LoadRegistry(data)
	} else {
		vibes, err = vibe.DefaultRegistry()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading vibe profiles: %w", err)
	}

	var constitutions *constitution.Registry
	if cfg.ConstitutionsFile != "" {
		data, readErr := os.ReadFile(cfg.ConstitutionsFile)
		if readErr != nil {
			return nil, nil, fmt.Errorf("reading constitutions: %w", readErr)
		}
		constitutions, err = constitution.LoadRegistry(data)
	} else {
		constitutions, err = constitution.DefaultRegistry()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading constitutions: %w", err)
	}

	return vibes, constitutions, nil
}

package stabilizer

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// KeyConfig configures a KeyStabilizer.
type KeyConfig struct {
	// Window is the span of the vote buffer.
	Window time.Duration `yaml:"window"`

	// Lock is how long a new key must dominate before it is committed.
	Lock time.Duration `yaml:"lock"`

	// DominanceThreshold is the share of the vote a key needs to dominate.
	DominanceThreshold float64 `yaml:"dominance_threshold"`

	// MinConfidence is the detector confidence below which a vote weighs nothing.
	MinConfidence float64 `yaml:"min_confidence"`

	// EnergyPower shapes how much louder passages outweigh quiet ones.
	EnergyPower float64 `yaml:"energy_power"`
}

// DefaultKeyConfig returns the production defaults.
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Window:             12 * time.Second,
		Lock:               10 * time.Second,
		DominanceThreshold: 0.45,
		MinConfidence:      0.4,
		EnergyPower:        1.5,
	}
}

// Validate checks the configuration for internal consistency.
func (c KeyConfig) Validate() error {
	var errs []string
	if c.Window <= 0 {
		errs = append(errs, "key window must be positive")
	}
	if c.Lock <= 0 {
		errs = append(errs, "key lock must be positive")
	}
	if c.DominanceThreshold <= 0 || c.DominanceThreshold > 1 {
		errs = append(errs, "key dominance_threshold must be in (0, 1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, "key min_confidence must be in [0, 1]")
	}
	if c.EnergyPower <= 0 {
		errs = append(errs, "key energy_power must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// KeyInput is one frame of key detection.
type KeyInput struct {
	Key        string
	Confidence float64
	Energy     float64
}

// KeyOutput is the stabilised key for one frame.
type KeyOutput struct {
	StableKey      string             `json:"stable_key"`
	InstantKey     string             `json:"instant_key"`
	DominanceRatio float64            `json:"dominance_ratio"`
	IsChanging     bool               `json:"is_changing"`
	ChangeProgress float64            `json:"change_progress"`
	CandidateKey   string             `json:"candidate_key,omitempty"`
	Votes          map[string]float64 `json:"votes"`
}

// KeyStats summarises a KeyStabilizer for diagnostics.
type KeyStats struct {
	StableKey    string `json:"stable_key"`
	Frames       uint64 `json:"frames"`
	Commits      int    `json:"commits"`
	BufferSize   int    `json:"buffer_size"`
	LockFrames   int    `json:"lock_frames"`
	StreakFrames int    `json:"streak_frames"`

	// LastCommitFrame is the frame number of the most recent commit.
	LastCommitFrame uint64 `json:"last_commit_frame"`
}

// lockState is the commit bookkeeping shared by the streak-based stabilizers.
type lockState struct {
	committed       string
	candidate       string
	streak          int
	lastCommitFrame uint64
}

// KeyStabilizer votes over recent key detections and commits a new key only
// after it has dominated the buffer for the lock window.
type KeyStabilizer struct {
	cfg     KeyConfig
	clock   *Clock
	buf     *voteBuffer
	lock    lockState
	frames  uint64
	commits int
}

// NewKeyStabilizer creates a key stabilizer. The buffer holds
// clock.NominalFrames(cfg.Window) slots.
func NewKeyStabilizer(cfg KeyConfig, clock *Clock) (*KeyStabilizer, error) {
	if clock == nil {
		return nil, ErrNilClock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &KeyStabilizer{
		cfg:   cfg,
		clock: clock,
		buf:   newVoteBuffer(clock.NominalFrames(cfg.Window)),
	}, nil
}

// Update records one detection and returns the stabilised key.
func (s *KeyStabilizer) Update(in KeyInput) KeyOutput {
	s.frames++

	key := strings.TrimSpace(in.Key)
	if w := s.weight(key, in.Confidence, in.Energy); w > 0 {
		s.buf.push(vote{value: key, weight: w})
	} else {
		s.buf.push(vote{})
	}

	votes, total := s.buf.tally()
	lockFrames := s.clock.Frames(s.cfg.Lock)

	var top string
	var ratio float64
	if total > 0 {
		var topW float64
		top, topW = dominant(votes, s.lock.committed, s.lock.candidate)
		ratio = topW / total
	}
	dominates := total > 0 && ratio >= s.cfg.DominanceThreshold

	switch {
	case !dominates:
		// Decay instead of reset so one noisy frame does not discard the evidence.
		if s.lock.streak > 0 {
			s.lock.streak--
		}
		if s.lock.streak == 0 {
			s.lock.candidate = ""
		}
	case s.lock.committed == "":
		s.commit(top)
	case top == s.lock.committed:
		s.lock.candidate = ""
		s.lock.streak = 0
	case top == s.lock.candidate:
		s.lock.streak++
		if s.lock.streak >= lockFrames {
			s.commit(top)
		}
	default:
		s.lock.candidate = top
		s.lock.streak = 1
		if s.lock.streak >= lockFrames {
			s.commit(top)
		}
	}

	progress := 0.0
	if s.lock.candidate != "" && lockFrames > 0 {
		progress = math.Min(1, float64(s.lock.streak)/float64(lockFrames))
	}

	instant := ""
	if in.Confidence >= s.cfg.MinConfidence {
		instant = key
	}

	return KeyOutput{
		StableKey:      s.lock.committed,
		InstantKey:     instant,
		DominanceRatio: ratio,
		IsChanging:     s.lock.candidate != "" && s.lock.streak > 0,
		ChangeProgress: progress,
		CandidateKey:   s.lock.candidate,
		Votes:          votes,
	}
}

// StableKey returns the committed key, or "" before the first commit.
func (s *KeyStabilizer) StableKey() string {
	return s.lock.committed
}

// Reset clears the buffer and forgets the committed key.
func (s *KeyStabilizer) Reset() {
	s.buf.reset()
	s.lock = lockState{}
	s.frames = 0
}

// Stats returns diagnostic counters.
func (s *KeyStabilizer) Stats() KeyStats {
	return KeyStats{
		StableKey:    s.lock.committed,
		Frames:       s.frames,
		Commits:      s.commits,
		BufferSize:   s.buf.size(),
		LockFrames:   s.clock.Frames(s.cfg.Lock),
		StreakFrames: s.lock.streak,

		LastCommitFrame: s.lock.lastCommitFrame,
	}
}

func (s *KeyStabilizer) commit(key string) {
	s.lock.committed = key
	s.lock.candidate = ""
	s.lock.streak = 0
	s.lock.lastCommitFrame = s.frames
	s.commits++
}

// weight is zero for missing keys and low confidence, else max(0.1, energy)^power.
func (s *KeyStabilizer) weight(key string, confidence, energy float64) float64 {
	confidence = finite(confidence)
	if key == "" || confidence < s.cfg.MinConfidence {
		return 0
	}
	return math.Pow(math.Max(0.1, clamp01(energy)), s.cfg.EnergyPower)
}

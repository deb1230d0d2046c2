package stabilizer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/lighting"
)

// Thermal temperature range in Kelvin. BRIGHT music pulls toward warm light
// (ThermalWarmK) and DARK music toward cold light (ThermalColdK).
const (
	ThermalWarmK    = 3000
	ThermalColdK    = 7000
	ThermalNeutralK = 4500
)

// modeEmotions maps musical modes to the three-class taxonomy.
var modeEmotions = map[string]lighting.MetaEmotion{
	"major":          lighting.EmotionBright,
	"ionian":         lighting.EmotionBright,
	"lydian":         lighting.EmotionBright,
	"minor":          lighting.EmotionDark,
	"aeolian":        lighting.EmotionDark,
	"phrygian":       lighting.EmotionDark,
	"locrian":        lighting.EmotionDark,
	"harmonic_minor": lighting.EmotionDark,
	"melodic_minor":  lighting.EmotionDark,
	"dorian":         lighting.EmotionNeutral,
	"mixolydian":     lighting.EmotionNeutral,
	"pentatonic":     lighting.EmotionNeutral,
	"blues":          lighting.EmotionNeutral,
}

// moodEmotions maps mood words to the taxonomy. A mood word outranks the mode.
var moodEmotions = map[string]lighting.MetaEmotion{
	"happy":          lighting.EmotionBright,
	"energetic":      lighting.EmotionBright,
	"euphoric":       lighting.EmotionBright,
	"playful":        lighting.EmotionBright,
	"bluesy":         lighting.EmotionBright,
	"spanish_exotic": lighting.EmotionBright,
	"sad":            lighting.EmotionDark,
	"tense":          lighting.EmotionDark,
	"dark":           lighting.EmotionDark,
	"dramatic":       lighting.EmotionDark,
	"melancholic":    lighting.EmotionDark,
	"aggressive":     lighting.EmotionDark,
	"calm":           lighting.EmotionNeutral,
	"peaceful":       lighting.EmotionNeutral,
	"dreamy":         lighting.EmotionNeutral,
	"jazzy":          lighting.EmotionNeutral,
	"chill":          lighting.EmotionNeutral,
	"neutral":        lighting.EmotionNeutral,
}

// ClassifyEmotion maps a mode and mood word to a meta-emotion.
//
// The mood word takes priority over the mode. Unknown non-empty input maps
// to NEUTRAL. When both are empty ok is false and the frame is a null vote.
func ClassifyEmotion(mode, mood string) (emotion lighting.MetaEmotion, ok bool) {
	mood = strings.ToLower(strings.TrimSpace(mood))
	mode = strings.ToLower(strings.TrimSpace(mode))
	if e, found := moodEmotions[mood]; found {
		return e, true
	}
	if e, found := modeEmotions[mode]; found {
		return e, true
	}
	if mood == "" && mode == "" {
		return "", false
	}
	return lighting.EmotionNeutral, true
}

// MoodConfig configures a MoodArbiter.
type MoodConfig struct {
	Window             time.Duration `yaml:"window"`
	Lock               time.Duration `yaml:"lock"`
	DominanceThreshold float64       `yaml:"dominance_threshold"`
	MinConfidence      float64       `yaml:"min_confidence"`

	// Votes above BonusConfidence are multiplied by ConfidenceBonus.
	BonusConfidence float64 `yaml:"bonus_confidence"`
	ConfidenceBonus float64 `yaml:"confidence_bonus"`

	// KeyBias adds a bounded offset to the thermal brightness estimate keyed
	// by the stable musical key (upper case).
	KeyBias map[string]float64 `yaml:"key_bias"`
}

// DefaultMoodConfig returns the production defaults.
func DefaultMoodConfig() MoodConfig {
	return MoodConfig{
		Window:             10 * time.Second,
		Lock:               5 * time.Second,
		DominanceThreshold: 0.6,
		MinConfidence:      0.3,
		BonusConfidence:    0.7,
		ConfidenceBonus:    1.5,
		KeyBias: map[string]float64{
			"C": 0.10,
			"F": 0.10,
			"G": 0.10,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c MoodConfig) Validate() error {
	var errs []string
	if c.Window <= 0 {
		errs = append(errs, "mood window must be positive")
	}
	if c.Lock <= 0 {
		errs = append(errs, "mood lock must be positive")
	}
	if c.DominanceThreshold <= 0 || c.DominanceThreshold > 1 {
		errs = append(errs, "mood dominance_threshold must be in (0, 1]")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, "mood min_confidence must be in [0, 1]")
	}
	if c.ConfidenceBonus < 1 {
		errs = append(errs, "mood confidence_bonus must be at least 1")
	}
	for key, bias := range c.KeyBias {
		if math.Abs(bias) > 0.5 {
			errs = append(errs, fmt.Sprintf("mood key_bias[%s] must be within ±0.5", key))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// MoodInput is one frame of mood analysis.
type MoodInput struct {
	Mode       string
	Mood       string
	Confidence float64
	Energy     float64

	// Key is the stable musical key, used for the thermal bias.
	Key string
}

// MoodVotes is the weighted tally per meta-emotion.
type MoodVotes struct {
	Bright  float64 `json:"bright"`
	Dark    float64 `json:"dark"`
	Neutral float64 `json:"neutral"`
}

// MoodOutput is the stabilised meta-emotion for one frame.
type MoodOutput struct {
	StableEmotion       lighting.MetaEmotion `json:"stable_emotion"`
	InstantEmotion      lighting.MetaEmotion `json:"instant_emotion"`
	EmotionChanged      bool                 `json:"emotion_changed"`
	FramesSinceChange   int                  `json:"frames_since_change"`
	IsLocked            bool                 `json:"is_locked"`
	Dominance           float64              `json:"dominance"`
	ThermalTemperatureK int                  `json:"thermal_temperature_k"`
	Votes               MoodVotes            `json:"votes"`
}

// MoodArbiter stabilises BRIGHT/DARK/NEUTRAL with a dominance threshold and
// a minimum time between commits. It has no candidate tracking.
//
// Alongside the discrete label it derives a continuous thermal temperature
// from the same tally, which drifts smoothly while the label stays locked.
type MoodArbiter struct {
	cfg         MoodConfig
	clock       *Clock
	buf         *voteBuffer
	stable      lighting.MetaEmotion
	sinceChange int
	locked      bool
	changes     int
}

// NewMoodArbiter creates a mood arbiter with NEUTRAL as the initial emotion.
func NewMoodArbiter(cfg MoodConfig, clock *Clock) (*MoodArbiter, error) {
	if clock == nil {
		return nil, ErrNilClock
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &MoodArbiter{
		cfg:    cfg,
		clock:  clock,
		buf:    newVoteBuffer(clock.NominalFrames(cfg.Window)),
		stable: lighting.EmotionNeutral,
	}, nil
}

// Update records one frame and returns the stabilised emotion.
func (m *MoodArbiter) Update(in MoodInput) MoodOutput {
	m.sinceChange++

	emotion, ok := ClassifyEmotion(in.Mode, in.Mood)
	if w := m.weight(ok, in.Confidence, in.Energy); w > 0 {
		m.buf.push(vote{value: string(emotion), weight: w})
	} else {
		m.buf.push(vote{})
	}

	tally, total := m.buf.tally()
	votes := MoodVotes{
		Bright:  tally[string(lighting.EmotionBright)],
		Dark:    tally[string(lighting.EmotionDark)],
		Neutral: tally[string(lighting.EmotionNeutral)],
	}

	var dominance float64
	top := m.stable
	if total > 0 {
		name, w := dominant(tally, string(m.stable))
		top = lighting.MetaEmotion(name)
		dominance = w / total
	}

	lockFrames := m.clock.Frames(m.cfg.Lock)
	changed := false
	if top != m.stable && dominance >= m.cfg.DominanceThreshold && m.sinceChange >= lockFrames {
		m.stable = top
		m.sinceChange = 0
		m.locked = true
		m.changes++
		changed = true
	}
	if m.locked && !changed && m.sinceChange >= lockFrames/2 {
		m.locked = false
	}

	instant := lighting.EmotionNeutral
	if ok {
		instant = emotion
	}

	return MoodOutput{
		StableEmotion:       m.stable,
		InstantEmotion:      instant,
		EmotionChanged:      changed,
		FramesSinceChange:   m.sinceChange,
		IsLocked:            m.locked,
		Dominance:           dominance,
		ThermalTemperatureK: m.thermal(votes, total, in.Key),
		Votes:               votes,
	}
}

// StableEmotion returns the committed emotion.
func (m *MoodArbiter) StableEmotion() lighting.MetaEmotion {
	return m.stable
}

// Changes returns how many times the emotion has been committed.
func (m *MoodArbiter) Changes() int {
	return m.changes
}

// Reset clears the buffer and returns to NEUTRAL.
func (m *MoodArbiter) Reset() {
	m.buf.reset()
	m.stable = lighting.EmotionNeutral
	m.sinceChange = 0
	m.locked = false
}

func (m *MoodArbiter) weight(ok bool, confidence, energy float64) float64 {
	confidence = finite(confidence)
	if !ok || confidence < m.cfg.MinConfidence {
		return 0
	}
	w := 0.5 + clamp01(energy)
	if confidence > m.cfg.BonusConfidence {
		w *= m.cfg.ConfidenceBonus
	}
	return w
}

// thermal maps the BRIGHT/DARK balance to Kelvin: t = ((bright-dark)/total+1)/2
// plus the key bias, then K = cold - (cold-warm)*t. An empty tally is neutral.
func (m *MoodArbiter) thermal(votes MoodVotes, total float64, key string) int {
	if total <= 0 {
		return ThermalNeutralK
	}
	t := ((votes.Bright-votes.Dark)/total + 1) / 2
	t += m.cfg.KeyBias[strings.ToUpper(strings.TrimSpace(key))]
	t = clamp01(t)
	return int(math.Round(ThermalColdK - (ThermalColdK-ThermalWarmK)*t))
}

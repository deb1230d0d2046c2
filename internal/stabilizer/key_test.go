package stabilizer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func newTestKeyStabilizer(t *testing.T, windowFrames, lockFrames int, threshold float64) *KeyStabilizer {
	t.Helper()
	cfg := DefaultKeyConfig()
	cfg.Window = framesOf(windowFrames)
	cfg.Lock = framesOf(lockFrames)
	cfg.DominanceThreshold = threshold
	s, err := NewKeyStabilizer(cfg, NewClock(DefaultFrameInterval))
	if err != nil {
		t.Fatalf("NewKeyStabilizer() error = %v", err)
	}
	return s
}

func pushKey(s *KeyStabilizer, key string, n int) KeyOutput {
	var out KeyOutput
	for range n {
		out = s.Update(KeyInput{Key: key, Confidence: 1, Energy: 1})
	}
	return out
}

// ─── Construction ───────────────────────────────────────────────────────────

func TestNewKeyStabilizer_Errors(t *testing.T) {
	if _, err := NewKeyStabilizer(DefaultKeyConfig(), nil); !errors.Is(err, ErrNilClock) {
		t.Errorf("nil clock error = %v, want ErrNilClock", err)
	}

	cfg := DefaultKeyConfig()
	cfg.DominanceThreshold = 0
	cfg.Lock = 0
	_, err := NewKeyStabilizer(cfg, NewClock(0))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("invalid config error = %v, want ErrInvalidConfig", err)
	}
}

func TestKeyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*KeyConfig)
		wantErr bool
	}{
		{"defaults", func(*KeyConfig) {}, false},
		{"zero window", func(c *KeyConfig) { c.Window = 0 }, true},
		{"threshold above one", func(c *KeyConfig) { c.DominanceThreshold = 1.5 }, true},
		{"negative confidence", func(c *KeyConfig) { c.MinConfidence = -0.1 }, true},
		{"zero power", func(c *KeyConfig) { c.EnergyPower = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultKeyConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ─── Voting ─────────────────────────────────────────────────────────────────

func TestKeyStabilizer_BootstrapCommitsImmediately(t *testing.T) {
	s := newTestKeyStabilizer(t, 600, 600, 0.45)

	out := pushKey(s, "A", 1)
	if out.StableKey != "A" {
		t.Fatalf("StableKey after first push = %q, want A", out.StableKey)
	}

	out = pushKey(s, "A", 300)
	if out.StableKey != "A" {
		t.Errorf("StableKey after 301 pushes = %q, want A", out.StableKey)
	}
	stats := s.Stats()
	if stats.Commits != 1 || stats.LastCommitFrame != 1 {
		t.Errorf("Stats = %+v, want one commit at frame 1", stats)
	}
	if stats.BufferSize != 600 {
		t.Errorf("BufferSize = %d, want 600", stats.BufferSize)
	}
}

func TestKeyStabilizer_LowConfidenceNeverCommits(t *testing.T) {
	s := newTestKeyStabilizer(t, 60, 30, 0.45)

	for range 1000 {
		out := s.Update(KeyInput{Key: "D", Confidence: 0.1, Energy: 1})
		if out.StableKey != "" {
			t.Fatalf("StableKey = %q from low-confidence input", out.StableKey)
		}
	}

	pushKey(s, "A", 60)
	for range 1000 {
		out := s.Update(KeyInput{Key: "D", Confidence: 0.1, Energy: 1})
		if out.StableKey != "A" {
			t.Fatalf("StableKey changed to %q from low-confidence input", out.StableKey)
		}
	}
}

func TestKeyStabilizer_CommitDelay(t *testing.T) {
	s := newTestKeyStabilizer(t, 4, 5, 0.6)

	pushKey(s, "A", 4)
	pushKey(s, "B", 2) // [B B A A]: no key dominates

	for i := 1; i <= 4; i++ {
		out := pushKey(s, "B", 1)
		if out.StableKey != "A" {
			t.Fatalf("dominant frame %d: StableKey = %q, want A", i, out.StableKey)
		}
		if !out.IsChanging || out.CandidateKey != "B" {
			t.Fatalf("dominant frame %d: IsChanging=%v CandidateKey=%q", i, out.IsChanging, out.CandidateKey)
		}
	}

	out := pushKey(s, "B", 1)
	if out.StableKey != "B" {
		t.Errorf("StableKey after lock = %q, want B", out.StableKey)
	}
	if out.IsChanging || out.CandidateKey != "" {
		t.Errorf("candidate not cleared after commit: %+v", out)
	}
}

func TestKeyStabilizer_StreakDecaysByOne(t *testing.T) {
	s := newTestKeyStabilizer(t, 4, 5, 0.6)

	pushKey(s, "A", 4)
	pushKey(s, "B", 4) // streak 2

	out := s.Update(KeyInput{Key: "C", Confidence: 1, Energy: 1}) // [C B B B]: streak 3
	approx(t, "ChangeProgress", out.ChangeProgress, 0.6, 1e-9)

	out = s.Update(KeyInput{Key: "C", Confidence: 1, Energy: 1}) // [C C B B]: no dominance
	if out.CandidateKey != "B" {
		t.Errorf("CandidateKey = %q, want B kept after one noisy frame", out.CandidateKey)
	}
	approx(t, "ChangeProgress", out.ChangeProgress, 0.4, 1e-9)
	if out.StableKey != "A" {
		t.Errorf("StableKey = %q, want A", out.StableKey)
	}
}

func TestKeyStabilizer_NullKeyAgesWindow(t *testing.T) {
	s := newTestKeyStabilizer(t, 4, 5, 0.6)
	pushKey(s, "A", 4)

	out := pushKey(s, "", 4)
	if out.StableKey != "A" {
		t.Errorf("StableKey = %q, want A held through silence", out.StableKey)
	}
	if out.DominanceRatio != 0 || len(out.Votes) != 0 {
		t.Errorf("empty window reported votes: %+v", out)
	}
}

func TestKeyStabilizer_Reset(t *testing.T) {
	s := newTestKeyStabilizer(t, 4, 5, 0.6)
	pushKey(s, "A", 4)

	s.Reset()
	if got := s.StableKey(); got != "" {
		t.Errorf("StableKey after Reset = %q, want empty", got)
	}
	if out := pushKey(s, "E", 1); out.StableKey != "E" {
		t.Errorf("StableKey after Reset+push = %q, want E (bootstrap)", out.StableKey)
	}
}

func TestKeyStabilizer_Deterministic(t *testing.T) {
	keys := []string{"A", "C", "E", "G", ""}
	rng := rand.New(rand.NewSource(42))
	inputs := make([]KeyInput, 2000)
	for i := range inputs {
		inputs[i] = KeyInput{
			Key:        keys[rng.Intn(len(keys))],
			Confidence: rng.Float64(),
			Energy:     rng.Float64(),
		}
	}

	run := func() []KeyOutput {
		s := newTestKeyStabilizer(t, 120, 60, 0.45)
		outs := make([]KeyOutput, 0, len(inputs))
		for _, in := range inputs {
			outs = append(outs, s.Update(in))
		}
		return outs
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("identical histories diverged (-first +second):\n%s", diff)
	}
}

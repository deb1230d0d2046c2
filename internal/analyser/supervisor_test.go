package analyser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingLogger keeps every message so tests can look for them.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg+" "+fmt.Sprint(args...))
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args...) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

// waitForState polls until the supervisor reports want.
func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for s.Stats().State != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %q, want %q", s.Stats().State, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// runAsync starts Run and returns a channel with its result.
func runAsync(ctx context.Context, s *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return")
		return nil
	}
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrNoCommand) {
		t.Errorf("New(empty) error = %v, want ErrNoCommand", err)
	}

	s, err := New(Config{Command: "analyser", RestartDelay: 2 * time.Minute}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.cfg.MaxRestartDelay != 2*time.Minute {
		t.Errorf("MaxRestartDelay = %v, want raised to RestartDelay", s.cfg.MaxRestartDelay)
	}
	if s.cfg.StopTimeout != defaultStopTimeout || s.cfg.CheckInterval != defaultCheckInterval {
		t.Error("zero durations should take defaults")
	}
	if st := s.Stats(); st.State != StateStopped || st.PID != 0 {
		t.Errorf("Stats() = %+v, want stopped with no pid", st)
	}
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Run should fail")
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestRun_ForwardsOutputAndStopsOnCancel(t *testing.T) {
	sh := requireShell(t)
	logger := &recordingLogger{}

	s, err := New(Config{
		Command:     sh,
		Args:        []string{"-c", "echo listening; echo warming up >&2; exec sleep 30"},
		StopTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	waitForState(t, s, StateRunning)

	if st := s.Stats(); st.PID == 0 || st.StartedAt.IsZero() {
		t.Errorf("running Stats() = %+v, want pid and start time", st)
	}
	if err := s.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() while running = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for !logger.contains("listening") || !logger.contains("warming up") {
		if time.Now().After(deadline) {
			t.Fatal("analyser output was not forwarded to the logger")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}
	if st := s.Stats(); st.State != StateStopped || st.PID != 0 {
		t.Errorf("Stats() after stop = %+v", st)
	}
}

func TestRun_RestartsUntilLimit(t *testing.T) {
	sh := requireShell(t)

	s, err := New(Config{
		Command:         sh,
		Args:            []string{"-c", "exit 3"},
		RestartDelay:    5 * time.Millisecond,
		MaxRestartDelay: 20 * time.Millisecond,
		MaxRestarts:     2,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = waitDone(t, runAsync(context.Background(), s))
	if !errors.Is(err, ErrGaveUp) || !errors.Is(err, ErrExited) {
		t.Fatalf("Run() error = %v, want ErrGaveUp wrapping ErrExited", err)
	}

	st := s.Stats()
	if st.State != StateFailed {
		t.Errorf("State = %q, want failed", st.State)
	}
	if st.Restarts != 2 {
		t.Errorf("Restarts = %d, want 2", st.Restarts)
	}
	if !strings.Contains(st.LastExit, "exit status 3") {
		t.Errorf("LastExit = %q, want exit status 3", st.LastExit)
	}
	if err := s.HealthCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "failed") {
		t.Errorf("HealthCheck() = %v, want failed state", err)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	s, err := New(Config{
		Command:      "/nonexistent/graylux-analyser",
		RestartDelay: time.Millisecond,
		MaxRestarts:  1,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = waitDone(t, runAsync(context.Background(), s))
	if !errors.Is(err, ErrGaveUp) || !strings.Contains(err.Error(), "starting") {
		t.Errorf("Run() error = %v, want start failure", err)
	}
}

func TestRun_CancelDuringBackoff(t *testing.T) {
	sh := requireShell(t)

	s, err := New(Config{
		Command:      sh,
		Args:         []string{"-c", "exit 1"},
		RestartDelay: time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	waitForState(t, s, StateBackoff)

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
	if got := s.Stats().State; got != StateStopped {
		t.Errorf("State = %q, want stopped", got)
	}
}

// ─── Watchdog ──────────────────────────────────────────────────────

func TestRun_WatchdogStopsSilentAnalyser(t *testing.T) {
	sh := requireShell(t)
	logger := &recordingLogger{}

	quiet := errors.New("no analysis frames")
	s, err := New(Config{
		Command:       sh,
		Args:          []string{"-c", "exec sleep 30"},
		RestartDelay:  5 * time.Millisecond,
		MaxRestarts:   1,
		StopTimeout:   time.Second,
		Watchdog:      40 * time.Millisecond,
		CheckInterval: 5 * time.Millisecond,
	}, func() error { return quiet })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.SetLogger(logger)

	err = waitDone(t, runAsync(context.Background(), s))
	if !errors.Is(err, ErrGaveUp) || !errors.Is(err, ErrWatchdog) || !errors.Is(err, quiet) {
		t.Fatalf("Run() error = %v, want ErrGaveUp wrapping the watchdog cause", err)
	}
	if !logger.contains("analyser watchdog expired") {
		t.Error("watchdog expiry was not logged")
	}
}

func TestRun_WatchdogToleratesRecovery(t *testing.T) {
	sh := requireShell(t)
	logger := &recordingLogger{}

	var (
		mu      sync.Mutex
		healthy bool
	)
	s, err := New(Config{
		Command:       sh,
		Args:          []string{"-c", "exec sleep 30"},
		StopTimeout:   time.Second,
		Watchdog:      time.Minute,
		CheckInterval: 5 * time.Millisecond,
	}, func() error {
		mu.Lock()
		defer mu.Unlock()
		if healthy {
			return nil
		}
		return errors.New("no analysis frames")
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	waitForState(t, s, StateRunning)

	deadline := time.Now().Add(3 * time.Second)
	for !logger.contains("analyser unhealthy") {
		if time.Now().After(deadline) {
			t.Fatal("unhealthy analyser was not reported")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	healthy = true
	mu.Unlock()

	for !logger.contains("analyser recovered") {
		if time.Now().After(deadline) {
			t.Fatal("recovery was not reported")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := s.Stats(); got.State != StateRunning || got.Restarts != 0 {
		t.Errorf("Stats() = %+v, want still running without restarts", got)
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

func TestRun_StartupGraceHoldsWatchdog(t *testing.T) {
	sh := requireShell(t)

	calls := make(chan struct{}, 1)
	s, err := New(Config{
		Command:       sh,
		Args:          []string{"-c", "exec sleep 30"},
		StopTimeout:   time.Second,
		Watchdog:      time.Millisecond,
		StartupGrace:  time.Minute,
		CheckInterval: 5 * time.Millisecond,
	}, func() error {
		select {
		case calls <- struct{}{}:
		default:
		}
		return errors.New("no analysis frames")
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)
	waitForState(t, s, StateRunning)

	time.Sleep(50 * time.Millisecond)
	select {
	case <-calls:
		t.Error("health func consulted during the startup grace period")
	default:
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}

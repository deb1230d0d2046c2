package analyser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// State is the supervisor's view of the analyser process.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateBackoff  State = "backoff"
	StateFailed   State = "failed"
)

// Errors returned by the supervisor.
var (
	ErrNoCommand = errors.New("analyser: command is required")
	ErrGaveUp    = errors.New("analyser: restart limit reached")
	ErrWatchdog  = errors.New("analyser: watchdog expired")
	ErrExited    = errors.New("analyser: exited")
)

const (
	defaultRestartDelay    = time.Second
	defaultMaxRestartDelay = 30 * time.Second
	defaultStopTimeout     = 5 * time.Second
	defaultCheckInterval   = 500 * time.Millisecond
	defaultStableAfter     = time.Minute

	// maxLineLength caps one line of analyser output.
	maxLineLength = 64 * 1024
)

// Config describes the analyser process and how hard to keep it alive.
type Config struct {
	Command string
	Args    []string

	// Env is appended to the service's own environment.
	Env     []string
	WorkDir string

	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// MaxRestarts gives up after this many restarts. 0 retries forever.
	MaxRestarts int

	// StopTimeout is how long SIGTERM has before SIGKILL.
	StopTimeout time.Duration

	// Watchdog kills the analyser once the health func has failed for this
	// long. 0 disables the watchdog.
	Watchdog      time.Duration
	StartupGrace  time.Duration
	CheckInterval time.Duration

	// StableAfter is the uptime that resets the restart backoff.
	StableAfter time.Duration
}

// HealthFunc reports whether the analyser is doing useful work, usually
// by checking that analysis frames are still arriving.
type HealthFunc func() error

// Logger is the logging surface the supervisor needs.
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

// Stats is a snapshot of the supervised process.
type Stats struct {
	State      State     `json:"state"`
	PID        int       `json:"pid,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	Restarts   int       `json:"restarts"`
	LastExit   string    `json:"last_exit,omitempty"`
	LastExitAt time.Time `json:"last_exit_at,omitzero"`
}

// Supervisor runs the analyser and restarts it when it dies or stalls.
type Supervisor struct {
	cfg     Config
	healthy HealthFunc
	logger  Logger

	mu         sync.RWMutex
	state      State
	pid        int
	startedAt  time.Time
	restarts   int
	lastExit   error
	lastExitAt time.Time
}

// New creates a supervisor. healthy may be nil, which disables the
// watchdog regardless of cfg.Watchdog.
func New(cfg Config, healthy HealthFunc) (*Supervisor, error) {
	if cfg.Command == "" {
		return nil, ErrNoCommand
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	if cfg.MaxRestartDelay < cfg.RestartDelay {
		cfg.MaxRestartDelay = max(defaultMaxRestartDelay, cfg.RestartDelay)
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = defaultStableAfter
	}

	return &Supervisor{
		cfg:     cfg,
		healthy: healthy,
		logger:  noopLogger{},
		state:   StateStopped,
	}, nil
}

// SetLogger sets the logger. Analyser output is forwarded through it.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Run starts the analyser and keeps it running until ctx is cancelled,
// which returns nil. It returns ErrGaveUp once MaxRestarts is exhausted.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.cfg.RestartDelay

	for {
		started := time.Now()
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.setState(StateStopped)
			s.logger.Info("analyser stopped")
			return nil //nolint:nilerr // cancellation is a clean shutdown
		}

		uptime := time.Since(started)
		if uptime >= s.cfg.StableAfter {
			backoff = s.cfg.RestartDelay
		}

		s.mu.Lock()
		s.lastExit = err
		s.lastExitAt = time.Now()
		restarts := s.restarts
		s.mu.Unlock()

		if s.cfg.MaxRestarts > 0 && restarts >= s.cfg.MaxRestarts {
			s.setState(StateFailed)
			s.logger.Error("analyser restart limit reached", "restarts", restarts, "error", err)
			return fmt.Errorf("%w after %d restarts: %w", ErrGaveUp, restarts, err)
		}

		s.setState(StateBackoff)
		s.logger.Warn("analyser exited, restarting",
			"error", err,
			"uptime", uptime.Round(time.Millisecond).String(),
			"delay", backoff.String(),
		)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.setState(StateStopped)
			return nil
		case <-timer.C:
		}

		backoff = min(backoff*2, s.cfg.MaxRestartDelay)
		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()
	}
}

// runOnce starts one analyser process and waits for it to exit, for the
// watchdog to expire, or for ctx to end.
func (s *Supervisor) runOnce(ctx context.Context) error {
	s.setState(StateStarting)

	cmd := exec.Command(s.cfg.Command, s.cfg.Args...) //nolint:gosec // command comes from operator config
	cmd.Dir = s.cfg.WorkDir
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}
	// Own process group so a stop reaches anything the analyser spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("analyser: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("analyser: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("analyser: starting %s: %w", s.cfg.Command, err)
	}

	pid := cmd.Process.Pid
	started := time.Now()
	s.mu.Lock()
	s.state = StateRunning
	s.pid = pid
	s.startedAt = started
	s.mu.Unlock()
	s.logger.Info("analyser started", "pid", pid, "command", s.cfg.Command)

	// Wait must not run until both pipes are drained.
	var readers sync.WaitGroup
	readers.Add(2)
	go s.forward(&readers, stdout, "stdout")
	go s.forward(&readers, stderr, "stderr")

	exited := make(chan error, 1)
	go func() {
		readers.Wait()
		exited <- cmd.Wait()
	}()

	var tick <-chan time.Time
	if s.healthy != nil && s.cfg.Watchdog > 0 {
		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var unhealthySince time.Time
	for {
		select {
		case err := <-exited:
			s.clearPID()
			if err == nil {
				return ErrExited
			}
			return fmt.Errorf("%w: %w", ErrExited, err)

		case <-ctx.Done():
			s.terminate(pid, exited)
			return ctx.Err()

		case now := <-tick:
			if now.Sub(started) < s.cfg.StartupGrace {
				continue
			}
			healthErr := s.healthy()
			switch {
			case healthErr == nil:
				if !unhealthySince.IsZero() {
					s.logger.Info("analyser recovered", "after", now.Sub(unhealthySince).Round(time.Millisecond).String())
					unhealthySince = time.Time{}
				}
			case unhealthySince.IsZero():
				unhealthySince = now
				s.logger.Warn("analyser unhealthy", "error", healthErr)
			case now.Sub(unhealthySince) >= s.cfg.Watchdog:
				s.logger.Error("analyser watchdog expired, stopping", "pid", pid, "error", healthErr)
				s.terminate(pid, exited)
				return fmt.Errorf("%w: %w", ErrWatchdog, healthErr)
			}
		}
	}
}

// terminate stops the process group, escalating to SIGKILL after
// StopTimeout, and waits for the process to be reaped.
func (s *Supervisor) terminate(pid int, exited <-chan error) {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("analyser SIGTERM failed", "pid", pid, "error", err)
	}

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		s.logger.Warn("analyser ignored SIGTERM, killing", "pid", pid)
		_ = syscall.Kill(-pid, syscall.SIGKILL) //nolint:errcheck // best effort, Wait reports the outcome
		<-exited
	}
	s.clearPID()
}

// forward logs each line the analyser writes. stderr is logged at info
// level because most analysers write their diagnostics there.
func (s *Supervisor) forward(wg *sync.WaitGroup, r io.Reader, stream string) {
	defer wg.Done()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLength)
	for sc.Scan() {
		if stream == "stderr" {
			s.logger.Info("analyser output", "stream", stream, "line", sc.Text())
		} else {
			s.logger.Debug("analyser output", "stream", stream, "line", sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("analyser output unreadable", "stream", stream, "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r) //nolint:errcheck // drain only
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) clearPID() {
	s.mu.Lock()
	s.pid = 0
	s.mu.Unlock()
}

// Stats returns a snapshot of the supervised process.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		State:      s.state,
		PID:        s.pid,
		Restarts:   s.restarts,
		LastExitAt: s.lastExitAt,
	}
	if s.state == StateRunning {
		st.StartedAt = s.startedAt
	}
	if s.lastExit != nil {
		st.LastExit = s.lastExit.Error()
	}
	return st
}

// HealthCheck reports an error unless the analyser is running.
func (s *Supervisor) HealthCheck(_ context.Context) error {
	st := s.Stats()
	if st.State == StateRunning {
		return nil
	}
	if st.LastExit != "" {
		return fmt.Errorf("analyser %s: %s", st.State, st.LastExit)
	}
	return fmt.Errorf("analyser %s", st.State)
}

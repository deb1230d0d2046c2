package show

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lux/internal/journal"
	"github.com/nerrad567/gray-logic-lux/internal/orchestrator"
)

// Hub channels.
const (
	ChannelIntent = "intent"
	ChannelEvent  = "event"
)

const stateInterval = time.Second

// Config configures a Runner.
type Config struct {
	// FrameInterval is the render tick.
	FrameInterval time.Duration

	// StaleInput is how old the latest analysis frame may be before
	// silence is rendered instead.
	StaleInput time.Duration

	// PublishEvery sends every Nth intent to the hub and telemetry.
	// MQTT receives every frame.
	PublishEvery int

	// SessionID tags journal entries.
	SessionID string
}

// AnalysisFrame is the payload on the analysis topic.
type AnalysisFrame struct {
	Context orchestrator.MusicalContext `json:"context"`
	Audio   orchestrator.AudioFrame     `json:"audio"`
}

// Status is the runner's diagnostic snapshot.
type Status struct {
	Frames        uint64    `json:"frames"`
	InputStale    bool      `json:"input_stale"`
	LastInputAt   time.Time `json:"last_input_at,omitzero"`
	BadFrames     uint64    `json:"bad_frames"`
	PublishErrors uint64    `json:"publish_errors"`
	JournalErrors uint64    `json:"journal_errors"`
}

// Runner owns the render loop: it keeps the latest analysis frame, ticks
// the engine, publishes intents and pumps engine events to the sinks.
//
// Thread Safety: HandleAnalysis and HandleControl may be called from any
// goroutine. Run must be called once.
type Runner struct {
	cfg  Config
	deps Deps

	mu         sync.Mutex
	latest     AnalysisFrame
	receivedAt time.Time
	stale      bool
	lastState  time.Time

	frames        atomic.Uint64
	badFrames     atomic.Uint64
	publishErrors atomic.Uint64
	journalErrors atomic.Uint64

	logger Logger
}

// New validates cfg and builds a runner.
func New(cfg Config, deps Deps) (*Runner, error) {
	if deps.Engine == nil {
		return nil, ErrNoEngine
	}
	if cfg.FrameInterval <= 0 {
		return nil, fmt.Errorf("%w: frame interval must be positive", ErrInvalidConfig)
	}
	if cfg.StaleInput <= 0 {
		return nil, fmt.Errorf("%w: stale input window must be positive", ErrInvalidConfig)
	}
	if cfg.PublishEvery <= 0 {
		cfg.PublishEvery = 1
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{cfg: cfg, deps: deps, stale: true, logger: noopLogger{}}, nil
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Subscribe registers the analysis and control handlers on the bus.
func (r *Runner) Subscribe() error {
	if r.deps.Bus == nil {
		return nil
	}
	if err := r.deps.Bus.Subscribe(r.deps.Topics.Analysis(), 0, r.HandleAnalysis); err != nil {
		return fmt.Errorf("subscribing to analysis: %w", err)
	}
	if err := r.deps.Bus.Subscribe(r.deps.Topics.AllControl(), 1, r.HandleControl); err != nil {
		return fmt.Errorf("subscribing to control: %w", err)
	}
	return nil
}

// Run ticks the engine and pumps events until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.renderLoop(ctx) })
	g.Go(func() error { return r.pumpEvents(ctx) })
	return g.Wait()
}

func (r *Runner) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.FrameInterval)
	defer ticker.Stop()

	r.logger.Info("render loop started", "frame_interval", r.cfg.FrameInterval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("render loop stopped", "frames", r.frames.Load())
			return nil
		case <-ticker.C:
			r.Step(ctx)
		}
	}
}

// HandleAnalysis stores the latest analysis frame. It is the bus handler
// for the analysis topic.
func (r *Runner) HandleAnalysis(_ string, payload []byte) error {
	var f AnalysisFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		r.badFrames.Add(1)
		return fmt.Errorf("%w: %w", ErrBadFrame, err)
	}

	r.mu.Lock()
	r.latest = f
	r.receivedAt = r.deps.Now()
	r.mu.Unlock()
	return nil
}

// input returns the frame to render and whether it is stale.
func (r *Runner) input(now time.Time) (AnalysisFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stale := r.receivedAt.IsZero() || now.Sub(r.receivedAt) > r.cfg.StaleInput
	if stale != r.stale {
		if stale {
			r.logger.Warn("analysis input stale, rendering silence", "last_input", r.receivedAt)
		} else {
			r.logger.Info("analysis input resumed")
		}
		r.stale = stale
	}
	if stale {
		return AnalysisFrame{}, true
	}
	return r.latest, false
}

// Step renders and publishes one frame.
func (r *Runner) Step(ctx context.Context) orchestrator.LightingIntent {
	now := r.deps.Now()
	in, stale := r.input(now)

	var intent orchestrator.LightingIntent
	if stale {
		intent = r.deps.Engine.UpdateFallback(ctx)
	} else {
		intent = r.deps.Engine.Update(ctx, in.Context, in.Audio)
	}
	n := r.frames.Add(1)

	r.publishIntent(intent)
	if n%uint64(r.cfg.PublishEvery) == 0 {
		r.sample(intent)
	}
	r.publishState(now)
	return intent
}

func (r *Runner) publishIntent(intent orchestrator.LightingIntent) {
	if r.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(intent)
	if err == nil {
		err = r.deps.Bus.Publish(r.deps.Topics.Intent(), payload, 0, false)
	}
	if err != nil && r.publishErrors.Add(1)%100 == 1 {
		r.logger.Warn("intent publish failed", "error", err, "failures", r.publishErrors.Load())
	}
}

func (r *Runner) sample(intent orchestrator.LightingIntent) {
	if r.deps.Hub != nil {
		r.deps.Hub.Broadcast(ChannelIntent, intent)
	}
	if r.deps.Telemetry != nil {
		r.deps.Telemetry.WriteFrame(frameSample(intent))
	}
}

func (r *Runner) publishState(now time.Time) {
	if r.deps.Bus == nil {
		return
	}
	r.mu.Lock()
	due := now.Sub(r.lastState) >= stateInterval
	if due {
		r.lastState = now
	}
	r.mu.Unlock()
	if !due {
		return
	}
	if err := r.deps.Bus.PublishJSON(r.deps.Topics.State(), r.deps.Engine.State(), true); err != nil {
		r.logger.Debug("state publish failed", "error", err)
	}
}

func (r *Runner) pumpEvents(ctx context.Context) error {
	events := r.deps.Engine.Events()
	for {
		select {
		case <-ctx.Done():
			r.drainEvents(events)
			return nil
		case ev := <-events:
			r.dispatch(ev)
		}
	}
}

// drainEvents journals whatever is already queued at shutdown.
func (r *Runner) drainEvents(events <-chan orchestrator.Event) {
	for {
		select {
		case ev := <-events:
			r.dispatch(ev)
		default:
			return
		}
	}
}

// dispatch fans one event out to the journal, bus, telemetry and hub.
func (r *Runner) dispatch(ev orchestrator.Event) {
	r.logger.Info("show event", "kind", ev.Kind, "vibe", ev.VibeID)

	if r.deps.Journal != nil {
		entry := &journal.Entry{
			Kind:       string(ev.Kind),
			VibeID:     string(ev.VibeID),
			SessionID:  r.cfg.SessionID,
			Fields:     ev.Fields,
			OccurredAt: ev.At,
		}
		// Detached from the run context so shutdown drains still land.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := r.deps.Journal.Record(ctx, entry)
		cancel()
		if err != nil {
			r.journalErrors.Add(1)
			r.logger.Error("journal write failed", "kind", ev.Kind, "error", err)
		}
	}
	if r.deps.Bus != nil {
		if err := r.deps.Bus.PublishJSON(r.deps.Topics.Event(string(ev.Kind)), ev, false); err != nil {
			r.publishErrors.Add(1)
			r.logger.Debug("event publish failed", "kind", ev.Kind, "error", err)
		}
	}
	if r.deps.Telemetry != nil {
		r.deps.Telemetry.WriteEvent(string(ev.Kind), string(ev.VibeID), ev.Fields, ev.At)
	}
	if r.deps.Hub != nil {
		r.deps.Hub.Broadcast(ChannelEvent, ev)
	}
}

// Frames returns the number of rendered frames.
func (r *Runner) Frames() uint64 {
	return r.frames.Load()
}

// Status returns a diagnostic snapshot.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Frames:        r.frames.Load(),
		InputStale:    r.stale,
		LastInputAt:   r.receivedAt,
		BadFrames:     r.badFrames.Load(),
		PublishErrors: r.publishErrors.Load(),
		JournalErrors: r.journalErrors.Load(),
	}
}

func frameSample(in orchestrator.LightingIntent) influxdb.FrameSample {
	return influxdb.FrameSample{
		VibeID:          string(in.VibeID),
		Key:             in.State.StableKey,
		Emotion:         string(in.State.StableEmotion),
		Strategy:        string(in.Palette.Strategy),
		Source:          in.Source,
		Energy:          in.State.SmoothedEnergy,
		RawEnergy:       in.State.RawEnergy,
		MasterIntensity: in.MasterIntensity,
		Strobe:          in.Strobe,
		PrimaryHue:      in.Palette.Primary.H,
		BPM:             in.State.BPM,
		DropActive:      in.State.IsDropActive,
		Effects:         len(in.Effects),
		Frame:           in.Frame,
		At:              in.Timestamp,
	}
}

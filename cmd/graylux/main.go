// Gray Logic Lux - Reactive Lighting Intent Engine
//
// This is the main entry point for the lighting engine service. It listens
// to the audio analyser on MQTT, turns each analysis frame into a lighting
// intent and publishes the intent back to the rig:
//   - Stabilised key, mood and energy so the rig does not flicker
//   - Vibe profiles that bound what the rig may do
//   - Effects, manual strikes and drop flares on top of the base look
//   - An operator API and WebSocket stream for the lighting desk
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-lux/internal/analyser"
	"github.com/nerrad567/gray-logic-lux/internal/api"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lux/internal/journal"
	"github.com/nerrad567/gray-logic-lux/internal/orchestrator"
	"github.com/nerrad567/gray-logic-lux/internal/show"
	"github.com/nerrad567/gray-logic-lux/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// errNoAnalysis is the watchdog cause when analysis frames stop arriving.
var errNoAnalysis = errors.New("no analysis frames within the stale input window")

// startupCheckTimeout bounds the health checks run before the show starts.
const startupCheckTimeout = 5 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Stdout, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on Ctrl+C and SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence: one block per component
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Lux",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("show_id", cfg.Show.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database + journal
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := journal.NewSQLiteRepository(db.DB)
	pruneJournal(ctx, repo, cfg.Show.JournalRetentionDays, log)

	session := &journal.Session{ShowID: cfg.Show.ID, Version: version}
	if startErr := repo.StartSession(ctx, session); startErr != nil {
		return fmt.Errorf("starting show session: %w", startErr)
	}
	log = log.With("session_id", session.ID)
	log.Info("show session started")

	// MQTT
	topics := mqtt.NewTopics(cfg.Topics.Prefix, cfg.Topics.Analysis)
	mqttClient, err := mqtt.Connect(cfg.MQTT, topics, cfg.Show.ID)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"analysis_topic", topics.Analysis(),
	)

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB, cfg.Show.ID)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Engine
	vibes, constitutions, err := loadRegistries(cfg.Engine)
	if err != nil {
		return err
	}
	engine, err := orchestrator.NewEngine(engineConfig(cfg), orchestrator.Deps{
		Vibes:         vibes,
		Constitutions: constitutions,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	engine.SetLogger(log.Component("engine"))
	log.Info("engine initialised",
		"vibe", engine.ActiveVibe(),
		"vibes", len(vibes.List()),
		"effects", engine.EffectTypes(),
	)

	// Show runner
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	runnerDeps := show.Deps{
		Engine:  engine,
		Bus:     mqttClient,
		Topics:  topics,
		Journal: repo,
		Hub:     hub,
	}
	if influxClient != nil {
		runnerDeps.Telemetry = influxClient
	}
	runner, err := show.New(show.Config{
		FrameInterval: frameInterval(cfg.Show.FrameRate),
		StaleInput:    time.Duration(cfg.Show.StaleInputMS) * time.Millisecond,
		PublishEvery:  cfg.Show.PublishEvery,
		SessionID:     session.ID,
	}, runnerDeps)
	if err != nil {
		return fmt.Errorf("creating show runner: %w", err)
	}
	runner.SetLogger(log.Component("show"))
	if subErr := runner.Subscribe(); subErr != nil {
		return fmt.Errorf("subscribing show runner: %w", subErr)
	}
	defer func() {
		endCtx, cancel := context.WithTimeout(context.Background(), startupCheckTimeout)
		defer cancel()
		if endErr := repo.EndSession(endCtx, session.ID, runner.Frames(), time.Now()); endErr != nil {
			log.Error("error ending show session", "error", endErr)
		}
	}()

	// Managed analyser (optional)
	var supervisor *analyser.Supervisor
	if cfg.Analyser.Managed {
		supervisor, err = analyser.New(analyserConfig(cfg.Analyser), func() error {
			if runner.Status().InputStale {
				return errNoAnalysis
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("creating analyser supervisor: %w", err)
		}
		supervisor.SetLogger(log.Component("analyser"))
	}

	// API
	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	if supervisor != nil {
		checks["analyser"] = supervisor
	}
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Engine:  engine,
		Journal: repo,
		Runner:  runner,
		Hub:     hub,
		Checks:  checks,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return runner.Run(gctx)
	})
	if supervisor != nil {
		g.Go(func() error {
			// The desk can still drive effects without analysis, so a
			// supervisor that gives up degrades health instead of stopping.
			if runErr := supervisor.Run(gctx); runErr != nil {
				log.Error("analyser supervision ended", "error", runErr)
			}
			return nil
		})
	}
	if err := apiServer.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, show running",
		"frame_rate", cfg.Show.FrameRate,
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("show stopped: %w", err)
	}

	// Deferred Close() calls run in reverse order:
	// API, session end, InfluxDB (if enabled), MQTT, database.
	log.Info("shutdown signal received, cleaning up", "frames", runner.Frames())
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLUX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLUX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck probes every component and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// pruneJournal drops journal entries older than the retention window.
// Failure is logged, not fatal: the show can run on a full journal.
func pruneJournal(ctx context.Context, repo journal.Repository, days int, log *logging.Logger) {
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := repo.Prune(ctx, cutoff)
	if err != nil {
		log.Warn("journal prune failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("journal pruned", "entries", n, "before", cutoff.Format(time.DateOnly))
	}
}

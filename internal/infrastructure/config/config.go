package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Lux.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Show        ShowConfig        `yaml:"show"`
	Database    DatabaseConfig    `yaml:"database"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	API         APIConfig         `yaml:"api"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
	Engine      EngineConfig      `yaml:"engine"`
	Stabilizers StabilizersConfig `yaml:"stabilizers"`
	Topics      TopicsConfig      `yaml:"topics"`
	Analyser    AnalyserConfig    `yaml:"analyser"`
}

// ShowConfig identifies the rig and sets the render loop.
type ShowConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// FrameRate is the render tick in frames per second.
	FrameRate int `yaml:"frame_rate"`

	// StaleInputMS is how old the latest analysis frame may be before the
	// runner renders silence instead.
	StaleInputMS int `yaml:"stale_input_ms"`

	// PublishEvery publishes every Nth intent to the WebSocket hub and
	// InfluxDB. MQTT receives every frame.
	PublishEvery int `yaml:"publish_every"`

	// JournalRetentionDays prunes journal entries older than this. 0 keeps all.
	JournalRetentionDays int `yaml:"journal_retention_days"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
	Auth     APIAuthConfig    `yaml:"auth"`
}

// APIAuthConfig guards the control routes with bearer tokens.
type APIAuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  int    `yaml:"token_ttl"` // minutes
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EngineConfig tunes the intent engine. Durations are milliseconds.
type EngineConfig struct {
	InitialVibe string `yaml:"initial_vibe"`

	// ProfilesFile and ConstitutionsFile replace the embedded registries
	// when set.
	ProfilesFile      string `yaml:"profiles_file"`
	ConstitutionsFile string `yaml:"constitutions_file"`

	CrossfadeMS           int     `yaml:"crossfade_ms"`
	AITimeoutMS           int     `yaml:"ai_timeout_ms"`
	AIConfidenceThreshold float64 `yaml:"ai_confidence_threshold"`
	PhysicsVetoEnergy     float64 `yaml:"physics_veto_energy"`
	StrobeEnergy          float64 `yaml:"strobe_energy"`
	ConsciousnessEnabled  bool    `yaml:"consciousness_enabled"`
	EventBuffer           int     `yaml:"event_buffer"`
}

// StabilizersConfig overrides stabilizer defaults. Zero values keep the
// built-in defaults.
type StabilizersConfig struct {
	Key      VoteConfig   `yaml:"key"`
	Mood     VoteConfig   `yaml:"mood"`
	Strategy VoteConfig   `yaml:"strategy"`
	Energy   EnergyConfig `yaml:"energy"`
}

// VoteConfig tunes a vote-buffer stabilizer.
type VoteConfig struct {
	WindowMS           int     `yaml:"window_ms"`
	LockMS             int     `yaml:"lock_ms"`
	DominanceThreshold float64 `yaml:"dominance_threshold"`
	MinConfidence      float64 `yaml:"min_confidence"`
}

// EnergyConfig tunes the energy stabilizer.
type EnergyConfig struct {
	SmoothingWindowMS int     `yaml:"smoothing_window_ms"`
	EMAFactor         float64 `yaml:"ema_factor"`
	SilenceThreshold  float64 `yaml:"silence_threshold"`
}

// TopicsConfig names the MQTT topics the runner uses.
type TopicsConfig struct {
	Prefix string `yaml:"prefix"`

	// Analysis is the topic the audio analyser publishes frames to.
	Analysis string `yaml:"analysis"`
}

// AnalyserConfig runs the audio analyser as a supervised child process.
// When Managed is false the analyser is expected to be running elsewhere
// and publishing to the analysis topic on its own.
type AnalyserConfig struct {
	Managed bool     `yaml:"managed"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	WorkDir string   `yaml:"work_dir"`

	// RestartDelayMS is the first backoff after a crash. It doubles on
	// each consecutive crash up to MaxRestartDelayMS.
	RestartDelayMS    int `yaml:"restart_delay_ms"`
	MaxRestartDelayMS int `yaml:"max_restart_delay_ms"`

	// MaxRestarts gives up after this many restarts. 0 retries forever.
	MaxRestarts int `yaml:"max_restarts"`

	// StopTimeoutMS is how long SIGTERM has before SIGKILL.
	StopTimeoutMS int `yaml:"stop_timeout_ms"`

	// WatchdogMS restarts the analyser when no analysis frames have arrived
	// for this long. 0 disables the watchdog.
	WatchdogMS int `yaml:"watchdog_ms"`

	// StartupGraceMS holds the watchdog off after each start.
	StartupGraceMS int `yaml:"startup_grace_ms"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLUX_SECTION_KEY
// For example: GRAYLUX_DATABASE_PATH, GRAYLUX_API_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Show: ShowConfig{
			ID:                   "rig-001",
			Name:                 "Gray Logic Lux",
			FrameRate:            60,
			StaleInputMS:         500,
			PublishEvery:         4,
			JournalRetentionDays: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/graylux.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylux",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			Auth: APIAuthConfig{
				TokenTTL: 720,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "graylux",
			BatchSize:     500,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			InitialVibe:           "idle",
			CrossfadeMS:           3000,
			AITimeoutMS:           8,
			AIConfidenceThreshold: 0.6,
			PhysicsVetoEnergy:     0.85,
			StrobeEnergy:          0.95,
			ConsciousnessEnabled:  true,
			EventBuffer:           256,
		},
		Topics: TopicsConfig{
			Prefix:   "graylux",
			Analysis: "graylux/analysis",
		},
		Analyser: AnalyserConfig{
			RestartDelayMS:    1000,
			MaxRestartDelayMS: 30000,
			StopTimeoutMS:     5000,
			WatchdogMS:        5000,
			StartupGraceMS:    10000,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLUX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Show
	if v := os.Getenv("GRAYLUX_SHOW_ID"); v != "" {
		cfg.Show.ID = v
	}

	// Database
	if v := os.Getenv("GRAYLUX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLUX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v, ok := envInt("GRAYLUX_MQTT_PORT"); ok {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("GRAYLUX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLUX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLUX_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v, ok := envInt("GRAYLUX_API_PORT"); ok {
		cfg.API.Port = v
	}
	if v := os.Getenv("GRAYLUX_API_JWT_SECRET"); v != "" {
		cfg.API.Auth.JWTSecret = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLUX_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("GRAYLUX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("GRAYLUX_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Engine
	if v := os.Getenv("GRAYLUX_ENGINE_INITIAL_VIBE"); v != "" {
		cfg.Engine.InitialVibe = v
	}
	if v := os.Getenv("GRAYLUX_ENGINE_CONSCIOUSNESS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Engine.ConsciousnessEnabled = b
		}
	}

	// Analyser
	if v := os.Getenv("GRAYLUX_ANALYSER_MANAGED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analyser.Managed = b
		}
	}
	if v := os.Getenv("GRAYLUX_ANALYSER_COMMAND"); v != "" {
		cfg.Analyser.Command = v
	}
}

// envInt reads an integer environment variable. Unset or malformed values
// are ignored and reported as false.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// Show validation
	if c.Show.ID == "" {
		errs = append(errs, "show.id is required")
	}
	if c.Show.FrameRate < 1 || c.Show.FrameRate > 240 {
		errs = append(errs, "show.frame_rate must be between 1 and 240")
	}
	if c.Show.StaleInputMS <= 0 {
		errs = append(errs, "show.stale_input_ms must be positive")
	}
	if c.Show.PublishEvery < 1 {
		errs = append(errs, "show.publish_every must be at least 1")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Auth.Enabled {
		if len(c.API.Auth.JWTSecret) < 32 {
			errs = append(errs, "api.auth.jwt_secret must be at least 32 characters when auth is enabled")
		}
		if c.API.Auth.TokenTTL < 1 {
			errs = append(errs, "api.auth.token_ttl must be at least 1 minute")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Engine validation
	if c.Engine.AITimeoutMS <= 0 {
		errs = append(errs, "engine.ai_timeout_ms must be positive")
	}
	if c.Engine.CrossfadeMS < 0 {
		errs = append(errs, "engine.crossfade_ms must not be negative")
	}
	if c.Engine.EventBuffer < 1 {
		errs = append(errs, "engine.event_buffer must be at least 1")
	}

	// Topics validation
	if c.Topics.Prefix == "" || strings.ContainsAny(c.Topics.Prefix, "+#") {
		errs = append(errs, "topics.prefix must be set and contain no wildcards")
	}
	if c.Topics.Analysis == "" {
		errs = append(errs, "topics.analysis is required")
	}

	// Analyser validation
	if c.Analyser.Managed {
		if c.Analyser.Command == "" {
			errs = append(errs, "analyser.command is required when analyser is managed")
		}
		if c.Analyser.RestartDelayMS <= 0 || c.Analyser.MaxRestartDelayMS < c.Analyser.RestartDelayMS {
			errs = append(errs, "analyser.restart_delay_ms must be positive and not exceed max_restart_delay_ms")
		}
		if c.Analyser.MaxRestarts < 0 || c.Analyser.WatchdogMS < 0 || c.Analyser.StartupGraceMS < 0 {
			errs = append(errs, "analyser.max_restarts, watchdog_ms and startup_grace_ms must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetFrameInterval returns the render tick as a Duration.
func (c *Config) GetFrameInterval() time.Duration {
	return time.Second / time.Duration(c.Show.FrameRate)
}

// GetStaleInput returns the analysis staleness limit as a Duration.
func (c *Config) GetStaleInput() time.Duration {
	return ms(c.Show.StaleInputMS)
}

// GetCrossfade returns the vibe crossfade as a Duration.
func (c *Config) GetCrossfade() time.Duration {
	return ms(c.Engine.CrossfadeMS)
}

// GetAITimeout returns the consciousness call budget as a Duration.
func (c *Config) GetAITimeout() time.Duration {
	return ms(c.Engine.AITimeoutMS)
}

// Window returns the vote window, or zero when unset.
func (v VoteConfig) Window() time.Duration { return ms(v.WindowMS) }

// Lock returns the lock window, or zero when unset.
func (v VoteConfig) Lock() time.Duration { return ms(v.LockMS) }

// SmoothingWindow returns the energy smoothing window, or zero when unset.
func (e EnergyConfig) SmoothingWindow() time.Duration { return ms(e.SmoothingWindowMS) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// GetTokenTTL returns the lifetime of issued control tokens.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.API.Auth.TokenTTL) * time.Minute
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
show:
  id: "club-main"
  frame_rate: 40
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
engine:
  initial_vibe: "techno"
  ai_timeout_ms: 12
stabilizers:
  key:
    window_ms: 8000
    lock_ms: 6000
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Show.ID != "club-main" {
		t.Errorf("Show.ID = %q, want %q", cfg.Show.ID, "club-main")
	}
	if got := cfg.GetFrameInterval(); got != 25*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 25ms", got)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.Engine.InitialVibe != "techno" {
		t.Errorf("Engine.InitialVibe = %q, want %q", cfg.Engine.InitialVibe, "techno")
	}
	if got := cfg.GetAITimeout(); got != 12*time.Millisecond {
		t.Errorf("GetAITimeout() = %v, want 12ms", got)
	}
	if got := cfg.Stabilizers.Key.Lock(); got != 6*time.Second {
		t.Errorf("Stabilizers.Key.Lock() = %v, want 6s", got)
	}

	// Unset sections keep their defaults.
	if cfg.Engine.StrobeEnergy != 0.95 {
		t.Errorf("Engine.StrobeEnergy = %v, want default 0.95", cfg.Engine.StrobeEnergy)
	}
	if cfg.Topics.Analysis != "graylux/analysis" {
		t.Errorf("Topics.Analysis = %q, want default", cfg.Topics.Analysis)
	}
	if got := cfg.Stabilizers.Mood.Window(); got != 0 {
		t.Errorf("Stabilizers.Mood.Window() = %v, want 0 (use stabilizer default)", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
show:
  id: ""
`
	_, err := Load(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "show.id is required") {
		t.Errorf("Load() error = %v, want show.id validation error", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GRAYLUX_DATABASE_PATH", "/var/lib/graylux/show.db")
	t.Setenv("GRAYLUX_MQTT_HOST", "mqtt.rig")
	t.Setenv("GRAYLUX_MQTT_PORT", "8883")
	t.Setenv("GRAYLUX_API_PORT", "not-a-number")
	t.Setenv("GRAYLUX_ENGINE_INITIAL_VIBE", "chill")
	t.Setenv("GRAYLUX_ENGINE_CONSCIOUSNESS_ENABLED", "false")
	t.Setenv("GRAYLUX_API_JWT_SECRET", "from-env-secret")

	cfg, err := Load(writeConfig(t, "show:\n  name: test\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/graylux/show.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "mqtt.rig" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT broker = %s:%d, want mqtt.rig:8883", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port = %d, want default 8090 for a malformed override", cfg.API.Port)
	}
	if cfg.Engine.InitialVibe != "chill" {
		t.Errorf("Engine.InitialVibe = %q, want chill", cfg.Engine.InitialVibe)
	}
	if cfg.Engine.ConsciousnessEnabled {
		t.Error("Engine.ConsciousnessEnabled = true, want false from env")
	}
	if cfg.API.Auth.JWTSecret != "from-env-secret" {
		t.Errorf("API.Auth.JWTSecret = %q, want value from env", cfg.API.Auth.JWTSecret)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero frame rate", mutate: func(c *Config) { c.Show.FrameRate = 0 }, wantErr: "show.frame_rate"},
		{name: "bad qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "port out of range", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: "api.port"},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: "influxdb.url"},
		{name: "no ai timeout", mutate: func(c *Config) { c.Engine.AITimeoutMS = 0 }, wantErr: "engine.ai_timeout_ms"},
		{name: "wildcard prefix", mutate: func(c *Config) { c.Topics.Prefix = "graylux/#" }, wantErr: "topics.prefix"},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "auth without secret", mutate: func(c *Config) { c.API.Auth.Enabled = true }, wantErr: "api.auth.jwt_secret"},
		{
			name: "auth with zero ttl",
			mutate: func(c *Config) {
				c.API.Auth.Enabled = true
				c.API.Auth.JWTSecret = strings.Repeat("s", 32)
				c.API.Auth.TokenTTL = 0
			},
			wantErr: "api.auth.token_ttl",
		},
		{name: "disabled auth ignores secret", mutate: func(c *Config) { c.API.Auth.JWTSecret = "short" }},
		{name: "managed analyser without command", mutate: func(c *Config) { c.Analyser.Managed = true }, wantErr: "analyser.command"},
		{
			name: "analyser backoff inverted",
			mutate: func(c *Config) {
				c.Analyser.Managed = true
				c.Analyser.Command = "/usr/bin/graylux-analyser"
				c.Analyser.MaxRestartDelayMS = 10
			},
			wantErr: "analyser.restart_delay_ms",
		},
		{
			name: "unmanaged analyser ignores command",
			mutate: func(c *Config) {
				c.Analyser.Command = ""
				c.Analyser.WatchdogMS = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Show.ID = ""
	cfg.API.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil, want two problems")
	}
	if !strings.Contains(err.Error(), "show.id is required; api.port") {
		t.Errorf("Validate() error = %q, want problems joined with \"; \"", err)
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"read timeout", cfg.GetReadTimeout(), 30 * time.Second},
		{"write timeout", cfg.GetWriteTimeout(), 30 * time.Second},
		{"idle timeout", cfg.GetIdleTimeout(), 60 * time.Second},
		{"stale input", cfg.GetStaleInput(), 500 * time.Millisecond},
		{"crossfade", cfg.GetCrossfade(), 3 * time.Second},
		{"ai timeout", cfg.GetAITimeout(), 8 * time.Millisecond},
		{"token ttl", cfg.GetTokenTTL(), 12 * time.Hour},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

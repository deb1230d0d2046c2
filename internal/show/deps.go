package show

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lux/internal/journal"
	"github.com/nerrad567/gray-logic-lux/internal/orchestrator"
)

// Engine is the part of *orchestrator.Engine the runner drives.
type Engine interface {
	Update(ctx context.Context, mc orchestrator.MusicalContext, af orchestrator.AudioFrame) orchestrator.LightingIntent
	UpdateFallback(ctx context.Context) orchestrator.LightingIntent
	Events() <-chan orchestrator.Event
	State() orchestrator.State

	SetVibe(name string) (bool, error)
	SetVibeImmediate(name string) (bool, error)
	QueueStrike(effectType string, intensity float64) error
	AbortEffect(id string) error
	AbortAllEffects() int
	SetConsciousnessEnabled(enabled bool)
}

// Bus is the MQTT surface, satisfied by *mqtt.Client.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishJSON(topic string, v any, retained bool) error
}

// Telemetry is satisfied by *influxdb.Client.
type Telemetry interface {
	WriteFrame(s influxdb.FrameSample)
	WriteEvent(kind, vibeID string, fields map[string]any, at time.Time)
}

// Journal is satisfied by *journal.SQLiteRepository.
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Broadcaster fans messages out to live clients (the WebSocket hub).
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger is the logging surface the runner needs.
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

// Deps wires the runner. Engine is required; every sink is optional.
type Deps struct {
	Engine    Engine
	Bus       Bus
	Topics    mqtt.Topics
	Telemetry Telemetry
	Journal   Journal
	Hub       Broadcaster

	// Now defaults to time.Now.
	Now func() time.Time
}

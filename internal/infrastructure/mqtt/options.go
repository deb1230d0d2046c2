package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-lux/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second

	// opTimeout bounds publish, subscribe and unsubscribe acknowledgements.
	opTimeout = 5 * time.Second

	disconnectQuiesceMS = 500

	// keepAlive is short because a lighting rig that silently loses its
	// broker goes dark.
	keepAlive = 15 * time.Second

	maxQoS = 2
)

// Status values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// statusMessage is the retained payload on Topics.Status.
type statusMessage struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	ShowID    string    `json:"show_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (m statusMessage) encode() []byte {
	b, err := json.Marshal(m)
	if err != nil {
		// Only plain strings and a time are marshalled.
		return []byte(`{"status":"` + m.Status + `"}`)
	}
	return b
}

// brokerURL returns tcp:// or ssl:// for the configured broker.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp"
	if b.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, b.Host, b.Port)
}

// buildClientOptions maps the rig configuration onto paho options:
// clean session, auto-reconnect with the configured backoff, optional TLS
// and an LWT on the status topic.
func buildClientOptions(cfg config.MQTTConfig, topics Topics, showID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(max(cfg.Reconnect.InitialDelay, 1)) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(max(cfg.Reconnect.MaxDelay, 1)) * time.Second)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	will := statusMessage{
		Status:    StatusOffline,
		ClientID:  cfg.Broker.ClientID,
		ShowID:    showID,
		Reason:    "unexpected_disconnect",
		Timestamp: time.Now().UTC(),
	}
	opts.SetBinaryWill(topics.Status(), will.encode(), 1, true)

	return opts
}

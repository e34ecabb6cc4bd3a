package link

import (
	"time"

	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

// Config contains configuration for a link client.
type Config struct {
	// URL is the gateway WebSocket endpoint (e.g., ws://localhost:8765/ws)
	URL string
	// DeviceID identifies this device for the lifetime of the client. When
	// empty, Device.DeviceID is used, and when that is empty too a fresh id is
	// minted once at construction.
	DeviceID string
	// Device is announced in the registration frame of every connection.
	Device protocol.DeviceInfo
	// HeartbeatInterval is the period between heartbeats while connected.
	HeartbeatInterval time.Duration
	// ReconnectBaseDelay is multiplied by the attempt number.
	ReconnectBaseDelay time.Duration
	// MaxReconnectAttempts is the ceiling before giving up.
	MaxReconnectAttempts int
	// HandshakeTimeout bounds a single dial.
	HandshakeTimeout time.Duration
	// WriteTimeout is the write deadline for each frame.
	WriteTimeout time.Duration
	// SendQueueSize is the number of frames that may wait for the writer.
	SendQueueSize int
}

// DefaultConfig returns the default link configuration
func DefaultConfig() *Config {
	return &Config{
		URL:                  "ws://localhost:8765/ws",
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   3 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
		SendQueueSize:        64,
	}
}

// withDefaults returns a copy with zero timeouts and queue size filled in.
// Heartbeat and reconnect settings are taken as given so they can be disabled.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = def.SendQueueSize
	}
	if c.Device.Capabilities != nil {
		c.Device.Capabilities = append([]string(nil), c.Device.Capabilities...)
	}
	if c.Device.Groups != nil {
		c.Device.Groups = append([]string(nil), c.Device.Groups...)
	}
	if c.Device.Tags != nil {
		c.Device.Tags = append([]string(nil), c.Device.Tags...)
	}
	return c
}

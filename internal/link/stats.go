package link

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of a client.
type Stats struct {
	State             State     `json:"state"`
	DeviceID          string    `json:"device_id"`
	Registered        bool      `json:"registered"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	MessagesQueued    uint64    `json:"messages_queued"`
	MessagesSent      uint64    `json:"messages_sent"`
	MessagesReceived  uint64    `json:"messages_received"`
	Errors            uint64    `json:"errors"`
	Connections       uint64    `json:"connections"`
	ConnectedAt       time.Time `json:"connected_at,omitzero"`
}

type counters struct {
	queued      atomic.Uint64
	sent        atomic.Uint64
	received    atomic.Uint64
	errors      atomic.Uint64
	connections atomic.Uint64
}

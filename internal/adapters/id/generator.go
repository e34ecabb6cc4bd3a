// Package id mints the identifiers carried by link envelopes.
package id

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultLength = 21

	// ShortLength is the size of the reduced wire envelope message id. Eight
	// nanoid characters give roughly 48 bits of entropy, so collisions are
	// possible across long-lived fleets. Short ids are only fit for
	// correlating a reply to a recent request, never as a unique key.
	ShortLength = 8
)

const (
	PrefixCommand = "cmd"
	PrefixDevice  = "dev"
	PrefixTask    = "task"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string, length int) string {
	id, err := gonanoid.New(length)
	if err != nil {
		// crypto/rand failure; fall back to uuid entropy so ids stay unique
		return prefix + "_" + uuid.NewString()
	}
	return prefix + "_" + id
}

// MessageID returns a canonical envelope id (RFC 4122 v4).
func (g *Generator) MessageID() string {
	return uuid.NewString()
}

// ShortID returns a fixed-length id for the reduced wire envelope.
func (g *Generator) ShortID() string {
	id, err := gonanoid.New(ShortLength)
	if err != nil {
		return uuid.NewString()[:ShortLength]
	}
	return id
}

func (g *Generator) CommandID() string {
	return g.generate(PrefixCommand, DefaultLength)
}

func (g *Generator) DeviceID() string {
	return g.generate(PrefixDevice, DefaultLength)
}

func (g *Generator) TaskID() string {
	return g.generate(PrefixTask, DefaultLength)
}

var defaultGenerator = New()

func NewMessageID() string { return defaultGenerator.MessageID() }
func NewShortID() string   { return defaultGenerator.ShortID() }
func NewCommandID() string { return defaultGenerator.CommandID() }
func NewDeviceID() string  { return defaultGenerator.DeviceID() }
func NewTaskID() string    { return defaultGenerator.TaskID() }

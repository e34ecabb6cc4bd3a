package protocol

import (
	"time"

	"github.com/ufogalaxy/devicelink/internal/adapters/id"
)

const (
	// DefaultToolType is used for commands that do not name a tool kind.
	DefaultToolType = "action"
	// DefaultCommandTimeout is the per-command timeout in seconds.
	DefaultCommandTimeout = 30
)

// MessageEnvelope is the canonical unit of exchange between a device and the
// gateway. Envelopes are built per send and discarded after handling.
type MessageEnvelope struct {
	Version       string          `json:"version" msgpack:"version"`
	MessageID     string          `json:"message_id" msgpack:"message_id"`
	CorrelationID string          `json:"correlation_id,omitempty" msgpack:"correlation_id,omitempty"`
	Type          MessageType     `json:"type" msgpack:"type"`
	DeviceID      string          `json:"device_id" msgpack:"device_id"`
	DeviceType    DeviceType      `json:"device_type,omitempty" msgpack:"device_type,omitempty"`
	Timestamp     int64           `json:"timestamp" msgpack:"timestamp"` // epoch milliseconds
	TaskID        string          `json:"task_id,omitempty" msgpack:"task_id,omitempty"`
	TaskStatus    TaskStatus      `json:"task_status,omitempty" msgpack:"task_status,omitempty"`
	Commands      []Command       `json:"commands" msgpack:"commands"`
	Results       []CommandResult `json:"results" msgpack:"results"`
	Payload       map[string]any  `json:"payload" msgpack:"payload"`
	Error         string          `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Time returns the envelope timestamp as a time.Time.
func (e *MessageEnvelope) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// IsResponse reports whether the envelope answers an earlier one.
func (e *MessageEnvelope) IsResponse() bool {
	return e.CorrelationID != ""
}

// normalize replaces absent collections with empty ones and applies command
// defaults, so decoded and built envelopes look the same to callers.
func (e *MessageEnvelope) normalize() {
	if e.Commands == nil {
		e.Commands = []Command{}
	}
	if e.Results == nil {
		e.Results = []CommandResult{}
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	for i := range e.Commands {
		e.Commands[i].applyDefaults()
	}
}

// Command is a single tool invocation requested of a device.
type Command struct {
	CommandID  string         `json:"command_id" msgpack:"command_id"`
	ToolName   string         `json:"tool_name" msgpack:"tool_name"`
	ToolType   string         `json:"tool_type" msgpack:"tool_type"`
	Parameters map[string]any `json:"parameters" msgpack:"parameters"`
	Timeout    int            `json:"timeout" msgpack:"timeout"` // seconds
}

// NewCommand returns a command with a fresh id and default tool type and timeout.
func NewCommand(toolName string, params map[string]any) Command {
	c := Command{
		CommandID:  id.NewCommandID(),
		ToolName:   toolName,
		Parameters: params,
	}
	c.applyDefaults()
	return c
}

func (c *Command) applyDefaults() {
	if c.CommandID == "" {
		c.CommandID = id.NewCommandID()
	}
	if c.ToolType == "" {
		c.ToolType = DefaultToolType
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultCommandTimeout
	}
	if c.Parameters == nil {
		c.Parameters = map[string]any{}
	}
}

// TimeoutDuration returns the command timeout as a time.Duration.
func (c Command) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// CommandResult reports the outcome of one Command.
type CommandResult struct {
	CommandID     string       `json:"command_id" msgpack:"command_id"`
	Status        ResultStatus `json:"status" msgpack:"status"`
	Result        any          `json:"result,omitempty" msgpack:"result,omitempty"`
	Error         string       `json:"error,omitempty" msgpack:"error,omitempty"`
	ExecutionTime float64      `json:"execution_time" msgpack:"execution_time"` // seconds
}

// Succeeded reports whether the command completed successfully.
func (r CommandResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

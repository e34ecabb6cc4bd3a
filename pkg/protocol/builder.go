package protocol

import (
	"errors"
	"time"

	"github.com/ufogalaxy/devicelink/internal/adapters/id"
)

// EnvelopeOption overrides a field the builders would otherwise fill in.
type EnvelopeOption func(*MessageEnvelope)

// WithMessageID uses the given id instead of minting one.
func WithMessageID(messageID string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.MessageID = messageID }
}

// WithCorrelationID links the envelope to the one it answers.
func WithCorrelationID(correlationID string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.CorrelationID = correlationID }
}

// WithTimestamp stamps the envelope with t instead of the current time.
func WithTimestamp(t time.Time) EnvelopeOption {
	return func(e *MessageEnvelope) { e.Timestamp = t.UnixMilli() }
}

// WithTaskID correlates the envelope with an in-flight task.
func WithTaskID(taskID string) EnvelopeOption {
	return func(e *MessageEnvelope) { e.TaskID = taskID }
}

// WithDeviceType classifies the sending device.
func WithDeviceType(t DeviceType) EnvelopeOption {
	return func(e *MessageEnvelope) { e.DeviceType = t }
}

var (
	ErrTaskIDRequired   = errors.New("task id is required")
	ErrCommandsRequired = errors.New("at least one command is required")
	ErrErrorRequired    = errors.New("error text is required")
)

func newEnvelope(msgType MessageType, deviceID string, payload map[string]any, opts []EnvelopeOption) *MessageEnvelope {
	if payload == nil {
		payload = map[string]any{}
	}
	e := &MessageEnvelope{
		Version:  Version,
		Type:     msgType,
		DeviceID: deviceID,
		Commands: []Command{},
		Results:  []CommandResult{},
		Payload:  payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.MessageID == "" {
		e.MessageID = id.NewMessageID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}
	return e
}

// NewRegisterEnvelope announces the device and its full DeviceInfo.
func NewRegisterEnvelope(info DeviceInfo, opts ...EnvelopeOption) *MessageEnvelope {
	opts = append([]EnvelopeOption{WithDeviceType(info.DeviceType)}, opts...)
	return newEnvelope(TypeDeviceRegister, info.DeviceID, info.ToMap(), opts)
}

// NewHeartbeatEnvelope carries nothing beyond the device identity.
func NewHeartbeatEnvelope(deviceID string, opts ...EnvelopeOption) *MessageEnvelope {
	return newEnvelope(TypeHeartbeat, deviceID, nil, opts)
}

// NewTaskEnvelope assigns commands to a device under taskID.
func NewTaskEnvelope(deviceID, taskID string, commands []Command, opts ...EnvelopeOption) (*MessageEnvelope, error) {
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}
	if len(commands) == 0 {
		return nil, ErrCommandsRequired
	}
	e := newEnvelope(TypeTaskAssign, deviceID, nil, append(opts, WithTaskID(taskID)))
	e.TaskStatus = TaskAssigned
	e.Commands = append(e.Commands, commands...)
	for i := range e.Commands {
		e.Commands[i].applyDefaults()
	}
	return e, nil
}

// NewCommandEnvelope carries one or more commands outside of a task.
func NewCommandEnvelope(deviceID string, commands ...Command) *MessageEnvelope {
	msgType := TypeCommand
	if len(commands) > 1 {
		msgType = TypeCommandBatch
	}
	e := newEnvelope(msgType, deviceID, nil, nil)
	e.Commands = append(e.Commands, commands...)
	for i := range e.Commands {
		e.Commands[i].applyDefaults()
	}
	return e
}

// NewCommandResultEnvelope reports results for the envelope identified by
// correlationID.
func NewCommandResultEnvelope(deviceID, correlationID string, results []CommandResult, opts ...EnvelopeOption) *MessageEnvelope {
	e := newEnvelope(TypeCommandResult, deviceID, nil, append(opts, WithCorrelationID(correlationID)))
	e.Results = append(e.Results, results...)
	return e
}

// NewGUIClickEnvelope asks the device to tap at (x, y).
func NewGUIClickEnvelope(deviceID string, x, y int, opts ...EnvelopeOption) *MessageEnvelope {
	return newEnvelope(TypeGUIClick, deviceID, map[string]any{"x": x, "y": y}, opts)
}

// NewGUIInputEnvelope asks the device to type text into the focused field.
func NewGUIInputEnvelope(deviceID, text string, opts ...EnvelopeOption) *MessageEnvelope {
	return newEnvelope(TypeGUIInput, deviceID, map[string]any{"text": text}, opts)
}

// NewScreenshotEnvelope asks the device for a screenshot.
func NewScreenshotEnvelope(deviceID string, opts ...EnvelopeOption) *MessageEnvelope {
	return newEnvelope(TypeGUIScreenshot, deviceID, nil, opts)
}

// NewErrorEnvelope reports a failure, optionally correlated with the envelope
// that caused it via WithCorrelationID.
func NewErrorEnvelope(deviceID, errText string, opts ...EnvelopeOption) (*MessageEnvelope, error) {
	if errText == "" {
		return nil, ErrErrorRequired
	}
	e := newEnvelope(TypeError, deviceID, nil, opts)
	e.Error = errText
	return e, nil
}

// NewWireFrame builds a reduced wire frame with a fresh short id.
func NewWireFrame(frameType, action, deviceID string, payload map[string]any) *WireEnvelope {
	return &WireEnvelope{
		Type:      frameType,
		Action:    action,
		DeviceID:  deviceID,
		Timestamp: time.Now().UnixMilli(),
		MessageID: id.NewShortID(),
		Payload:   payload,
	}
}

// NewWireRegister is the first frame sent on every connection.
func NewWireRegister(info DeviceInfo) *WireEnvelope {
	return NewWireFrame(WireCommand, ActionRegister, info.DeviceID, info.ToMap())
}

func NewWireHeartbeat(deviceID string) *WireEnvelope {
	return NewWireFrame(WireHeartbeat, "", deviceID, nil)
}

// NewWireCommand wraps a custom action. A nil payload is sent as {}.
func NewWireCommand(deviceID, action string, payload map[string]any) *WireEnvelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return NewWireFrame(WireCommand, action, deviceID, payload)
}

func NewWireChat(deviceID, content string) *WireEnvelope {
	return NewWireFrame(WireCommand, ActionChat, deviceID, map[string]any{"content": content})
}

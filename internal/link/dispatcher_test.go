package link

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		kind    EventKind
		content string
		action  string
		payload map[string]any
		message string
		parsed  bool
	}{
		{
			name:    "command",
			frame:   `{"type":"command","action":"open_app","payload":{"app":"camera"}}`,
			kind:    EventCommand,
			action:  "open_app",
			payload: map[string]any{"app": "camera"},
			parsed:  true,
		},
		{
			name:    "command without payload",
			frame:   `{"type":"command","action":"lock_screen"}`,
			kind:    EventCommand,
			action:  "lock_screen",
			payload: map[string]any{},
			parsed:  true,
		},
		{
			name:    "response with content",
			frame:   `{"type":"response","payload":{"content":"hi there"}}`,
			kind:    EventMessage,
			content: "hi there",
			parsed:  true,
		},
		{
			name:    "response without content",
			frame:   `{"type":"response","payload":{}}`,
			kind:    EventMessage,
			content: `{"type":"response","payload":{}}`,
			parsed:  true,
		},
		{
			name:    "response with structured content",
			frame:   `{"type":"response","payload":{"content":{"steps":2}}}`,
			kind:    EventMessage,
			content: `{"steps":2}`,
			parsed:  true,
		},
		{
			name:    "error with message",
			frame:   `{"type":"error","message":"bad request"}`,
			kind:    EventError,
			message: "bad request",
			parsed:  true,
		},
		{
			name:    "error with payload message",
			frame:   `{"type":"error","payload":{"message":"quota"}}`,
			kind:    EventError,
			message: "quota",
			parsed:  true,
		},
		{
			name:    "error without message",
			frame:   `{"type":"error"}`,
			kind:    EventError,
			message: "unknown error",
			parsed:  true,
		},
		{
			name:   "ack",
			frame:  `{"type":"ack","action":"handshake"}`,
			kind:   EventAck,
			action: "handshake",
			parsed: true,
		},
		{
			name:    "unknown type with content",
			frame:   `{"type":"status","payload":{"content":"idle"}}`,
			kind:    EventMessage,
			content: "idle",
			parsed:  true,
		},
		{
			name:    "missing type",
			frame:   `{"hello":"world"}`,
			kind:    EventMessage,
			content: `{"hello":"world"}`,
			parsed:  true,
		},
		{
			name:    "malformed json",
			frame:   `not json{`,
			kind:    EventMessage,
			content: `not json{`,
		},
		{
			name:    "json array",
			frame:   `[1,2,3]`,
			kind:    EventMessage,
			content: `[1,2,3]`,
		},
		{
			name:    "json null",
			frame:   `null`,
			kind:    EventMessage,
			content: `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Parse([]byte(tt.frame))

			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.content, ev.Content)
			assert.Equal(t, tt.action, ev.Action)
			assert.Equal(t, tt.payload, ev.Payload)
			assert.Equal(t, tt.message, ev.Message)
			if tt.parsed {
				assert.NoError(t, ev.ParseErr)
			} else {
				assert.True(t, protocol.IsParseError(ev.ParseErr))
			}
		})
	}
}

func TestParseBinary(t *testing.T) {
	t.Run("task assignment becomes a command", func(t *testing.T) {
		env, err := protocol.NewTaskEnvelope("dev_1", "task_1", []protocol.Command{
			protocol.NewCommand("take_photo", nil),
		})
		require.NoError(t, err)
		data, err := env.EncodeBinary()
		require.NoError(t, err)

		ev := ParseBinary(data)
		assert.Equal(t, EventCommand, ev.Kind)
		assert.Equal(t, string(protocol.TypeTaskAssign), ev.Action)
		assert.Equal(t, "task_1", ev.Payload["task_id"])
		require.NotNil(t, ev.Envelope)
		assert.Equal(t, "take_photo", ev.Envelope.Commands[0].ToolName)
	})

	t.Run("error envelope", func(t *testing.T) {
		env, err := protocol.NewErrorEnvelope("dev_1", "disk full")
		require.NoError(t, err)
		data, err := env.EncodeBinary()
		require.NoError(t, err)

		ev := ParseBinary(data)
		assert.Equal(t, EventError, ev.Kind)
		assert.Equal(t, "disk full", ev.Message)
	})

	t.Run("other envelopes are messages", func(t *testing.T) {
		env := protocol.NewGUIInputEnvelope("dev_1", "typed")
		env.Payload["content"] = "screen updated"
		data, err := env.EncodeBinary()
		require.NoError(t, err)

		ev := ParseBinary(data)
		assert.Equal(t, EventMessage, ev.Kind)
		assert.Equal(t, "screen updated", ev.Content)
	})

	t.Run("garbage passes through", func(t *testing.T) {
		ev := ParseBinary([]byte{0xc1, 0x00})
		assert.Equal(t, EventMessage, ev.Kind)
		assert.Error(t, ev.ParseErr)
	})
}

func TestDispatch(t *testing.T) {
	rec := &recorder{}
	var acks []string
	d := NewDispatcher(rec, nil, func(action string) { acks = append(acks, action) })

	d.Dispatch(websocket.TextMessage, []byte(`{"type":"command","action":"open_app","payload":{"app":"camera"}}`))
	d.Dispatch(websocket.TextMessage, []byte(`not json{`))
	d.Dispatch(websocket.TextMessage, []byte(`{"type":"error"}`))
	d.Dispatch(websocket.TextMessage, []byte(`{"type":"ack","action":"register"}`))
	d.Dispatch(websocket.TextMessage, []byte(`{"type":"ack","action":"handshake"}`))
	d.Dispatch(websocket.TextMessage, []byte(`{"type":"ack","action":"heartbeat"}`))

	require.Len(t, rec.commandList(), 1)
	assert.Equal(t, "open_app", rec.commandList()[0].action)
	assert.Equal(t, map[string]any{"app": "camera"}, rec.commandList()[0].payload)

	assert.Equal(t, []string{"not json{"}, rec.messageList())

	require.Len(t, rec.errorList(), 1)
	assert.EqualError(t, rec.errorList()[0], "link: remote error: unknown error")

	assert.Equal(t, []string{"register", "handshake"}, acks)
}

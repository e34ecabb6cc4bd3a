package link

import (
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/ufogalaxy/devicelink/pkg/protocol"
)

// EventKind classifies a parsed inbound frame.
type EventKind int

const (
	EventMessage EventKind = iota
	EventCommand
	EventError
	EventAck
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventCommand:
		return "command"
	case EventError:
		return "error"
	case EventAck:
		return "ack"
	default:
		return "unknown"
	}
}

const unknownErrorMessage = "unknown error"

// Event is the typed form of one inbound frame.
type Event struct {
	Kind EventKind
	// Content is set for message events.
	Content string
	// Action is set for command and ack events.
	Action string
	// Payload is set for command events and is never nil for them.
	Payload map[string]any
	// Message is set for error events.
	Message string
	// Envelope is set when the frame was a binary canonical envelope.
	Envelope *protocol.MessageEnvelope
	// ParseErr records why the frame was passed through verbatim.
	ParseErr error
}

// Parse classifies a text frame in the reduced wire format. It never fails:
// a frame that is not a JSON object becomes a message event carrying the raw
// text.
func Parse(data []byte) Event {
	raw := string(data)

	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil || frame == nil {
		if err == nil {
			err = errNotObject
		}
		return Event{
			Kind:     EventMessage,
			Content:  raw,
			ParseErr: &protocol.ParseError{Reason: "not a json object", Err: err},
		}
	}

	frameType, _ := frame["type"].(string)
	switch frameType {
	case protocol.WireAck:
		action, _ := frame["action"].(string)
		return Event{Kind: EventAck, Action: action}

	case protocol.WireCommand:
		action, _ := frame["action"].(string)
		payload, ok := frame["payload"].(map[string]any)
		if !ok {
			payload = map[string]any{}
		}
		return Event{Kind: EventCommand, Action: action, Payload: payload}

	case protocol.WireError:
		msg, ok := frame["message"].(string)
		if !ok || msg == "" {
			if payload, isMap := frame["payload"].(map[string]any); isMap {
				msg, _ = payload["message"].(string)
			}
		}
		if msg == "" {
			msg = unknownErrorMessage
		}
		return Event{Kind: EventError, Message: msg}

	default:
		// response frames and anything unrecognized
		content, ok := payloadContent(frame["payload"])
		if !ok {
			content = raw
		}
		return Event{Kind: EventMessage, Content: content}
	}
}

// ParseBinary classifies a binary frame carrying a MessagePack canonical
// envelope. Undecodable frames are passed through like text frames.
func ParseBinary(data []byte) Event {
	env, err := protocol.DecodeBinaryEnvelope(data)
	if err != nil {
		return Event{Kind: EventMessage, Content: string(data), ParseErr: err}
	}

	switch env.Type {
	case protocol.TypeError:
		msg := env.Error
		if msg == "" {
			msg = unknownErrorMessage
		}
		return Event{Kind: EventError, Message: msg, Envelope: env}

	case protocol.TypeCommand, protocol.TypeCommandBatch, protocol.TypeTaskAssign:
		payload := make(map[string]any, len(env.Payload)+2)
		for k, v := range env.Payload {
			payload[k] = v
		}
		payload["commands"] = env.Commands
		if env.TaskID != "" {
			payload["task_id"] = env.TaskID
		}
		return Event{Kind: EventCommand, Action: string(env.Type), Payload: payload, Envelope: env}

	default:
		content, ok := payloadContent(env.Payload)
		if !ok {
			text, err := env.Encode()
			if err != nil {
				text = data
			}
			content = string(text)
		}
		return Event{Kind: EventMessage, Content: content, Envelope: env}
	}
}

// payloadContent returns payload.content, JSON-encoding non-string values.
func payloadContent(payload any) (string, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := m["content"]
	if !ok || v == nil {
		return "", false
	}
	if s, isString := v.(string); isString {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Dispatcher routes inbound frames to a Handler.
type Dispatcher struct {
	handler      Handler
	logger       *slog.Logger
	onRegistered func(action string)
}

// NewDispatcher returns a dispatcher delivering to h. onRegistered is called
// for handshake and register acknowledgements and may be nil.
func NewDispatcher(h Handler, logger *slog.Logger, onRegistered func(action string)) *Dispatcher {
	if h == nil {
		h = HandlerFuncs{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: h, logger: logger, onRegistered: onRegistered}
}

// Dispatch parses one frame of the given WebSocket message type and delivers
// the resulting event. It returns the event for bookkeeping.
func (d *Dispatcher) Dispatch(messageType int, data []byte) Event {
	var ev Event
	if messageType == websocket.BinaryMessage {
		ev = ParseBinary(data)
	} else {
		ev = Parse(data)
	}

	if ev.ParseErr != nil {
		d.logger.Debug("link: passing through unparseable frame", "error", ev.ParseErr, "bytes", len(data))
	}

	switch ev.Kind {
	case EventAck:
		if ev.Action == protocol.ActionHandshake || ev.Action == protocol.ActionRegister {
			d.logger.Debug("link: registration acknowledged", "action", ev.Action)
			if d.onRegistered != nil {
				d.onRegistered(ev.Action)
			}
			return ev
		}
		d.logger.Debug("link: ignoring ack", "action", ev.Action)

	case EventCommand:
		d.handler.OnCommand(ev.Action, ev.Payload)

	case EventError:
		d.handler.OnError(&RemoteError{Message: ev.Message})

	default:
		d.handler.OnMessage(ev.Content)
	}
	return ev
}

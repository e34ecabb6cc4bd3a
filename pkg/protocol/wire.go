package protocol

import (
	"encoding/json"
	"fmt"
)

// Frame types used by the reduced wire envelope.
const (
	WireCommand   = "command"
	WireHeartbeat = "heartbeat"
	WireAck       = "ack"
	WireResponse  = "response"
	WireError     = "error"
	WireStatus    = "status"
	WireEvent     = "event"
)

// Actions carried by command and ack frames.
const (
	ActionRegister  = "register"
	ActionHandshake = "handshake"
	ActionHeartbeat = "heartbeat"
	ActionChat      = "chat"
)

// WireEnvelope is the reduced envelope the transport client speaks. It is a
// flat JSON object whose payload shape depends on Action.
type WireEnvelope struct {
	Type          string         `json:"type"`
	Action        string         `json:"action,omitempty"`
	DeviceID      string         `json:"device_id"`
	Timestamp     int64          `json:"timestamp"` // epoch milliseconds
	MessageID     string         `json:"message_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Message       string         `json:"message,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// ChatPayload is the payload of an action=chat command and of response frames.
type ChatPayload struct {
	Content string `json:"content"`
}

// Encode serializes the frame as JSON text.
func (w *WireEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode wire envelope: %w", err)
	}
	return data, nil
}

// DecodeWire parses a reduced wire frame. It does not apply any routing
// defaults; see the link dispatcher for the lenient inbound path.
func DecodeWire(data []byte) (*WireEnvelope, error) {
	var w WireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ParseError{Reason: "invalid wire frame", Err: err}
	}
	return &w, nil
}

// PayloadString returns payload[key] when it is a string.
func (w *WireEnvelope) PayloadString(key string) (string, bool) {
	if w.Payload == nil {
		return "", false
	}
	s, ok := w.Payload[key].(string)
	return s, ok
}

// Registration decodes the payload of an action=register frame, requiring the
// device id to be present.
func (w *WireEnvelope) Registration() (*DeviceInfo, error) {
	if w.Action != ActionRegister {
		return nil, fmt.Errorf("frame action %q is not %q", w.Action, ActionRegister)
	}
	info, err := DecodePayload[DeviceInfo](w.Payload)
	if err != nil {
		return nil, err
	}
	if info.DeviceID == "" {
		return nil, fmt.Errorf("registration payload: device_id is required")
	}
	return info, nil
}

// Chat decodes the payload of an action=chat frame.
func (w *WireEnvelope) Chat() (*ChatPayload, error) {
	if _, ok := w.PayloadString("content"); !ok {
		return nil, fmt.Errorf("chat payload: content is required")
	}
	return DecodePayload[ChatPayload](w.Payload)
}

// DecodePayload converts a generic payload map into T. Unknown keys are
// ignored, which keeps older clients forward compatible.
func DecodePayload[T any](payload map[string]any) (*T, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("re-encode payload: %w", err)
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode payload to %T: %w", result, err)
	}
	return &result, nil
}

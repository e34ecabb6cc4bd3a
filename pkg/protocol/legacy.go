package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// LegacyEnvelope is the pre-3.0 envelope. It is only decoded from and encoded
// for older peers; new message types are never sent in this shape.
type LegacyEnvelope struct {
	Version   string         `json:"version"`
	MessageID string         `json:"message_id"`
	Timestamp string         `json:"timestamp"` // ISO-8601, UTC when no offset is given
	From      string         `json:"from"`
	To        string         `json:"to"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
}

// DecodeLegacy parses a legacy frame and validates its timestamp.
func DecodeLegacy(data []byte) (*LegacyEnvelope, error) {
	var l LegacyEnvelope
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, &ParseError{Reason: "invalid legacy envelope", Err: err}
	}
	if l.Type == "" {
		return nil, &ParseError{Reason: "legacy envelope has no type"}
	}
	if _, err := parseLegacyTime(l.Timestamp); err != nil {
		return nil, &ParseError{Reason: "legacy timestamp is not ISO-8601", Err: err}
	}
	return &l, nil
}

// naiveISO8601 is ISO-8601 without a zone, as older peers stamp local
// datetimes. Fractional seconds are optional.
const naiveISO8601 = "2006-01-02T15:04:05.999999999"

// parseLegacyTime accepts RFC 3339 and zone-less ISO-8601, the latter read
// as UTC.
func parseLegacyTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if t, nerr := time.ParseInLocation(naiveISO8601, s, time.UTC); nerr == nil {
		return t, nil
	}
	return time.Time{}, err
}

// ToCanonical upgrades the legacy envelope. The sender becomes the device id
// and the recipient is kept in the payload under "to".
func (l *LegacyEnvelope) ToCanonical() (*MessageEnvelope, error) {
	ts, err := parseLegacyTime(l.Timestamp)
	if err != nil {
		return nil, &ParseError{Reason: "legacy timestamp is not ISO-8601", Err: err}
	}

	payload := make(map[string]any, len(l.Payload)+1)
	for k, v := range l.Payload {
		payload[k] = v
	}
	if l.To != "" {
		payload["to"] = l.To
	}

	env := &MessageEnvelope{
		Version:   Version,
		MessageID: l.MessageID,
		Type:      MessageType(l.Type),
		DeviceID:  l.From,
		Timestamp: ts.UnixMilli(),
		Payload:   payload,
	}
	env.normalize()
	return env, nil
}

// LegacyFromCanonical downgrades a canonical envelope for an older peer. Types
// that did not exist before 3.0 are refused.
func LegacyFromCanonical(env *MessageEnvelope, to string) (*LegacyEnvelope, error) {
	if !legacyTypes[env.Type] {
		return nil, fmt.Errorf("message type %q has no legacy form", env.Type)
	}
	payload := make(map[string]any, len(env.Payload))
	for k, v := range env.Payload {
		payload[k] = v
	}
	return &LegacyEnvelope{
		Version:   LegacyVersion,
		MessageID: env.MessageID,
		Timestamp: env.Time().UTC().Format(time.RFC3339),
		From:      env.DeviceID,
		To:        to,
		Type:      string(env.Type),
		Payload:   payload,
	}, nil
}

// LegacyVersion is stamped on envelopes sent to pre-3.0 peers.
const LegacyVersion = "2.0"

// legacyTypes are the types older peers understand.
var legacyTypes = map[MessageType]bool{
	TypeDeviceRegister: true,
	TypeHeartbeat:      true,
	TypeDeviceStatus:   true,
	TypeCommand:        true,
	TypeCommandResult:  true,
	TypeError:          true,
}

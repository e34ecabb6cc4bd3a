package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ParseError reports an inbound frame that could not be understood.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse envelope: %s: %v", e.Reason, e.Err)
	}
	return "parse envelope: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Encode serializes the canonical envelope as JSON text.
func (e *MessageEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// EncodeBinary serializes the canonical envelope with MessagePack, used on
// binary frames between peers that negotiated it.
func (e *MessageEnvelope) EncodeBinary() ([]byte, error) {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a JSON canonical envelope. An envelope from another
// protocol generation is rejected as unparseable.
func DecodeEnvelope(data []byte) (*MessageEnvelope, error) {
	var e MessageEnvelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}
	return checkDecoded(&e)
}

// DecodeBinaryEnvelope parses a MessagePack canonical envelope.
func DecodeBinaryEnvelope(data []byte) (*MessageEnvelope, error) {
	var e MessageEnvelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, &ParseError{Reason: "invalid msgpack", Err: err}
	}
	return checkDecoded(&e)
}

func checkDecoded(e *MessageEnvelope) (*MessageEnvelope, error) {
	if e.Version != Version {
		return nil, &ParseError{Reason: fmt.Sprintf("version mismatch: got %q, want %q", e.Version, Version)}
	}
	if e.Type == "" {
		return nil, &ParseError{Reason: "missing type"}
	}
	e.normalize()
	return e, nil
}

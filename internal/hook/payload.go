package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a payload document is valid JSON but not an object.
var ErrNotObject = errors.New("payload must be a JSON object")

var emptyObject = []byte("{}")

// Payload is an immutable JSON object describing an event.
//
// The zero value is the empty object. Pipelines never edit a Payload; each
// hook that emits JSON produces a new one.
type Payload struct {
	raw []byte
}

// NewPayload marshals v into a Payload. v must encode to a JSON object.
func NewPayload(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("encoding payload: %w", err)
	}
	return ParsePayload(data)
}

// ParsePayload validates data as exactly one JSON object and stores it compacted.
func ParsePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Payload{}, fmt.Errorf("parsing payload: empty document")
	}
	if !json.Valid(trimmed) {
		return Payload{}, fmt.Errorf("parsing payload: invalid JSON")
	}
	if trimmed[0] != '{' {
		return Payload{}, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return Payload{}, fmt.Errorf("parsing payload: %w", err)
	}
	return Payload{raw: buf.Bytes()}, nil
}

// Bytes returns a copy of the compact JSON encoding.
func (p Payload) Bytes() []byte {
	return bytes.Clone(p.bytes())
}

// String returns the compact JSON encoding.
func (p Payload) String() string {
	return string(p.bytes())
}

// Decode unmarshals the payload into v.
func (p Payload) Decode(v any) error {
	if err := json.Unmarshal(p.bytes(), v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// Map returns a fresh map of the payload. Numbers decode as json.Number.
func (p Payload) Map() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(p.bytes()))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return m, nil
}

// Equal reports whether both payloads have identical encodings.
func (p Payload) Equal(other Payload) bool {
	return bytes.Equal(p.bytes(), other.bytes())
}

// Indent returns the payload pretty-printed for humans.
func (p Payload) Indent() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, p.bytes(), "", "  "); err != nil {
		return p.String()
	}
	return buf.String()
}

// MarshalJSON lets a Payload be embedded in other JSON documents verbatim.
func (p Payload) MarshalJSON() ([]byte, error) {
	return p.Bytes(), nil
}

// UnmarshalJSON accepts a JSON object.
func (p *Payload) UnmarshalJSON(data []byte) error {
	parsed, err := ParsePayload(data)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Payload) bytes() []byte {
	if len(p.raw) == 0 {
		return emptyObject
	}
	return p.raw
}

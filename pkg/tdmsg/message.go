// Package tdmsg defines the JSON message model exchanged with the TDLib
// engine: a flat field map carrying a "@type" discriminator, plus the
// "@extra" correlation envelope that ties responses back to requests.
package tdmsg

import (
	"crypto/rand"
	"encoding/hex"
)

const (
	// TypeField names the discriminator every message must carry.
	TypeField = "@type"

	// ExtraField names the correlation envelope. Requests carry
	// {"id": <extra id>}; responses echo it verbatim; push updates omit it.
	ExtraField = "@extra"
)

// Message is one structured payload crossing the engine boundary. Fields the
// core does not inspect pass through untouched.
type Message map[string]any

// New creates a message of the given type with the given fields. The fields
// map may be nil.
func New(typ string, fields map[string]any) Message {
	m := Message{TypeField: typ}
	for k, v := range fields {
		m[k] = v
	}
	return m
}

// Type returns the "@type" discriminator, or "" if absent.
func (m Message) Type() string {
	t, _ := m[TypeField].(string)
	return t
}

// ExtraID returns the correlation id carried in the "@extra" envelope, or ""
// if the message has none.
func (m Message) ExtraID() string {
	extra, ok := m[ExtraField].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := extra["id"].(string)
	return id
}

// SetExtraID attaches a correlation envelope with the given id, replacing any
// existing one.
func (m Message) SetExtraID(id string) {
	m[ExtraField] = map[string]any{"id": id}
}

// String returns a field of the message as a string, or "" if absent or not
// a string.
func (m Message) String(field string) string {
	s, _ := m[field].(string)
	return s
}

// Int64 returns a numeric field as an int64, or 0 if absent or not numeric.
// JSON numbers decode as float64; TDLib keeps 64-bit ids within the exactly
// representable range.
func (m Message) Int64(field string) int64 {
	switch v := m[field].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Object returns a nested object field as a Message, or nil if absent or not
// an object.
func (m Message) Object(field string) Message {
	obj, ok := m[field].(map[string]any)
	if !ok {
		return nil
	}
	return Message(obj)
}

// extraIDBytes is the number of random bytes in a correlation id. Nine bytes
// hex-encode to 18 characters, matching the wire format TDLib clients
// conventionally use for "@extra" ids.
const extraIDBytes = 9

// NewExtraID returns a fresh correlation id: extraIDBytes random bytes,
// hex-encoded. Collisions are only probabilistically excluded, which is
// accepted for the in-flight request volumes this client handles.
func NewExtraID() string {
	buf := make([]byte, extraIDBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic("tdmsg: read random: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

package tdmsg

import (
	"encoding/json"
	"fmt"
)

// EncodeError reports a message that cannot be represented in the exchange
// format.
type EncodeError struct {
	Type string // "@type" of the offending message, may be "".
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("tdmsg: encode: %v", e.Err)
	}
	return fmt.Sprintf("tdmsg: encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports malformed inbound bytes. It keeps a bounded prefix of
// the raw payload for diagnostics.
type DecodeError struct {
	Data []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tdmsg: decode %q: %v", e.Data, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errMissingType is the cause reported for messages without a "@type".
var errMissingType = fmt.Errorf("missing %s discriminator", TypeField)

// rawPrefixLimit bounds the payload prefix retained in a DecodeError.
const rawPrefixLimit = 256

// Encode serializes a message to the UTF-8 JSON exchange format. It fails
// with an EncodeError when the message lacks a "@type" or holds a value JSON
// cannot represent.
func Encode(m Message) ([]byte, error) {
	if m.Type() == "" {
		return nil, &EncodeError{Err: errMissingType}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, &EncodeError{Type: m.Type(), Err: err}
	}
	return data, nil
}

// Decode parses one message from the exchange format. It fails with a
// DecodeError on malformed JSON, a non-object payload, or a missing "@type".
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DecodeError{Data: rawPrefix(data), Err: err}
	}
	if m.Type() == "" {
		return nil, &DecodeError{Data: rawPrefix(data), Err: errMissingType}
	}
	return m, nil
}

func rawPrefix(data []byte) []byte {
	if len(data) > rawPrefixLimit {
		data = data[:rawPrefixLimit]
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

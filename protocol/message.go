package protocol

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Event is a single entry in a Message's events array: a timestamp, a
// type tag, and a type-specific data payload retained as raw JSON so the
// server can dispatch on Type before unmarshaling Data into the concrete
// payload struct it expects.
type Event struct {
	Timestamp float64         `json:"timestamp"`
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// Message is the wire envelope exchanged with the scheduler: the current
// simulated time and the ordered batch of events at (or, for a reply,
// triggered at or after) that time.
type Message struct {
	Now    float64 `json:"now"`
	Events []Event `json:"events"`
}

// ProtocolError is returned for a scheduler message that violates the wire
// protocol's invariants: the scheduler is buggy and retrying cannot help,
// so the server treats it as fatal.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol violation: " + e.Reason }

// Decode parses and validates raw bytes as a Message, enforcing:
//  (i)   now is a number (guaranteed by JSON unmarshaling into float64)
//  (ii)  events is an array (guaranteed by unmarshaling into []Event)
//  (iii) each event's timestamp <= now
//  (iv)  every event has type and data
//  (v)   the type is in the allowed set
func Decode(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "protocol: invalid JSON message")
	}
	for i, e := range m.Events {
		if e.Type == "" {
			return nil, &ProtocolError{Reason: "event missing type"}
		}
		if len(e.Data) == 0 {
			return nil, &ProtocolError{Reason: "event " + string(e.Type) + " missing data"}
		}
		if !IsAllowed(e.Type) {
			return nil, &ProtocolError{Reason: "unknown event type " + string(e.Type)}
		}
		if e.Timestamp > m.Now {
			return nil, &ProtocolError{Reason: "event timestamp exceeds now"}
		}
		if i > 0 && e.Timestamp < m.Events[i-1].Timestamp {
			return nil, &ProtocolError{Reason: "events out of order: timestamps must be non-decreasing"}
		}
	}
	return &m, nil
}

// Encode serializes m to its wire JSON form.
func Encode(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

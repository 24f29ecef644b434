package protocol

import "fmt"

// Writer accumulates outbound events for one round trip, enforcing that
// appended timestamps never decrease.
type Writer struct {
	now      float64
	events   []Event
	lastDate float64
	hasEvent bool
}

// NewWriter starts a Writer for the given current simulated time.
func NewWriter(now float64) *Writer {
	return &Writer{now: now}
}

// Append adds an event, panicking if its timestamp is lower than the last
// appended timestamp: this is a true implementation invariant (a bug in the
// server, not a scheduler protocol violation), so it is asserted rather
// than returned as an error.
func (w *Writer) Append(timestamp float64, typ EventType, data []byte) {
	if w.hasEvent && timestamp < w.lastDate {
		panic(fmt.Sprintf("protocol: Writer.Append called with decreasing timestamp %v < %v", timestamp, w.lastDate))
	}
	w.events = append(w.events, Event{Timestamp: timestamp, Type: typ, Data: data})
	w.lastDate = timestamp
	w.hasEvent = true
}

// Len reports how many events have been appended since the last Clear.
func (w *Writer) Len() int { return len(w.events) }

// Message builds the Message to send for this round trip.
func (w *Writer) Message() *Message {
	return &Message{Now: w.now, Events: append([]Event{}, w.events...)}
}

// Clear resets the Writer for the next round trip at a new current time.
func (w *Writer) Clear(now float64) {
	w.now = now
	w.events = nil
	w.lastDate = 0
	w.hasEvent = false
}

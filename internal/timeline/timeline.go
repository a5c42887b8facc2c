// Package timeline implements the append-only event log attached to
// resolvers and resolver containers.
package timeline

import (
	"slices"
	"time"
)

// EventType tags a Timeline entry.
type EventType string

const (
	Note    EventType = "NOTE"
	Warning EventType = "WARNING"
	Error   EventType = "ERROR"
	Success EventType = "SUCCESS"
)

// DefaultClock supplies the "when" for events that don't specify one.
// It is a process-wide knob, meant to be set once during startup (e.g.
// in tests, to pin a fake clock) and left alone afterward.
var DefaultClock func() time.Time

// Event is one entry in a Timeline.
type Event struct {
	EventType EventType
	Messages  []string
	When      *time.Time
}

// ToJSON renders the event the way the wire protocol expects: "when"
// is "--" when no timestamp is available.
func (e Event) ToJSON() map[string]any {
	when := "--"
	if e.When != nil {
		when = e.When.Format(time.RFC3339)
	}
	return map[string]any{
		"eventType": string(e.EventType),
		"messages":  e.Messages,
		"when":      when,
	}
}

func sameMessages(a, b []string) bool {
	return slices.Equal(a, b)
}

// Timeline is an ordered, append-only log of Events. Consecutive
// events with identical message lists are collapsed into one.
type Timeline struct {
	events []Event
}

// New returns an empty Timeline.
func New() *Timeline {
	return &Timeline{}
}

func (t *Timeline) add(eventType EventType, messages []string, when *time.Time) {
	if when == nil && DefaultClock != nil {
		now := DefaultClock()
		when = &now
	}
	evt := Event{EventType: eventType, Messages: messages, When: when}
	if n := len(t.events); n > 0 && sameMessages(t.events[n-1].Messages, messages) {
		return
	}
	t.events = append(t.events, evt)
}

func messagesOf(message string, extra ...string) []string {
	return append([]string{message}, extra...)
}

// Error appends an ERROR event.
func (t *Timeline) Error(message string, extra ...string) {
	t.add(Error, messagesOf(message, extra...), nil)
}

// Warning appends a WARNING event.
func (t *Timeline) Warning(message string, extra ...string) {
	t.add(Warning, messagesOf(message, extra...), nil)
}

// NoteMsg appends a NOTE event.
func (t *Timeline) NoteMsg(message string, extra ...string) {
	t.add(Note, messagesOf(message, extra...), nil)
}

// SuccessMsg appends a SUCCESS event.
func (t *Timeline) SuccessMsg(message string, extra ...string) {
	t.add(Success, messagesOf(message, extra...), nil)
}

// Events returns the underlying event slice (read-only use expected).
func (t *Timeline) Events() []Event {
	return t.events
}

// Len reports how many events the timeline currently holds.
func (t *Timeline) Len() int {
	return len(t.events)
}

// LastMessage returns the first message of the most recent event, or
// "" if the timeline is empty.
func (t *Timeline) LastMessage() string {
	if len(t.events) == 0 {
		return ""
	}
	last := t.events[len(t.events)-1]
	if len(last.Messages) == 0 {
		return ""
	}
	return last.Messages[0]
}

// ToJSON renders the full event list.
func (t *Timeline) ToJSON() []map[string]any {
	out := make([]map[string]any, len(t.events))
	for i, e := range t.events {
		out[i] = e.ToJSON()
	}
	return out
}

package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of loop event.
type EventKind string

const (
	EventUserInput     EventKind = "user_input"
	EventStepStart     EventKind = "step_start"
	EventAssistantText EventKind = "assistant_text"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventToolRejected  EventKind = "tool_rejected"
	EventLoopDetected  EventKind = "loop_detected"
	EventStepLimit     EventKind = "step_limit"
	EventWarning       EventKind = "warning"
	EventError         EventKind = "error"
	EventTurnEnd       EventKind = "turn_end"
)

// Event is a typed observability event emitted by the loop. Unlike the
// synchronous lifecycle callbacks, events carry full (untruncated) tool
// output and are delivered best-effort on a buffered channel.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	LoopID    string                 `json:"loop_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers events to the host application via a channel.
type EventEmitter struct {
	loopID string
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an emitter with a buffered channel.
func NewEventEmitter(loopID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{
		loopID: loopID,
		ch:     make(chan Event, bufferSize),
	}
}

// Emit sends an event. A full channel drops the event rather than blocking
// the loop; a closed emitter drops it silently.
func (e *EventEmitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		LoopID:    e.loopID,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

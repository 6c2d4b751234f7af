// Package input owns the live input sources. MIDI and OSC listeners
// normalize native events into one generic shape so routing upstream
// never cares where a trigger came from.
package input

import (
	"github.com/example/vjdeck/internal/mapping"
)

// Kind says what an event is asking for.
type Kind string

const (
	KindTrackSelect   Kind = "track-selection"
	KindMethodTrigger Kind = "method-trigger"
)

// Event is one normalized input event.
type Event struct {
	Kind     Kind
	Source   mapping.InputType
	Note     int    // MIDI note number
	Velocity int    // 1-127, forced to 127 when velocity sensitivity is off
	Address  string // OSC address
}

// ConnState is the connection lifecycle of a source.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
)

// Status is one entry of the source status stream.
type Status struct {
	State   ConnState `json:"state"`
	Message string    `json:"message,omitempty"`
}

// Hooks receive events and status changes. Nil hooks are skipped.
type Hooks struct {
	OnEvent  func(Event)
	OnStatus func(Status)
}

// Source is a running input listener. Close must fully tear it down:
// no callback may fire after Close returns.
type Source interface {
	Close() error
}

package actor

import (
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

// State is where an actor is in its performance.
type State int

const (
	// StateAwaitingBarrier is the state before the whole cast has handshaked.
	StateAwaitingBarrier State = iota

	// StateRunning means the interpreter is executing cues.
	StateRunning

	// StateOffstage is terminal: the actor has left the stage.
	StateOffstage
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAwaitingBarrier:
		return "awaiting_barrier"
	case StateRunning:
		return "running"
	case StateOffstage:
		return "offstage"
	default:
		return "unknown"
	}
}

// Display shows the visible side of a performance.
type Display interface {
	LocalSpeech(text string)
	OutgoingMessage(toName, text string)
	IncomingMessage(fromName, text string)
}

type nopDisplay struct{}

func (nopDisplay) LocalSpeech(string)             {}
func (nopDisplay) OutgoingMessage(string, string) {}
func (nopDisplay) IncomingMessage(string, string) {}

// Option configures an Actor.
type Option func(*Actor)

// WithLogger sets the base logger. The actor adds its name and run ID.
func WithLogger(l *logging.Logger) Option {
	return func(a *Actor) {
		a.logger = l
	}
}

// WithBus sets the bus that receives the actor's events.
func WithBus(b *event.Bus) Option {
	return func(a *Actor) {
		a.bus = b
	}
}

// WithDisplay sets the display collaborator.
func WithDisplay(d Display) Option {
	return func(a *Actor) {
		a.display = d
	}
}

// WithOffstage registers fn to run once when the actor leaves the stage.
func WithOffstage(fn func()) Option {
	return func(a *Actor) {
		a.onOffstage = fn
	}
}

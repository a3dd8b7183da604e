package latch

import (
	"context"
	"time"

	"github.com/qaznotquaz/aLexA/internal/logging"
)

const (
	defaultInterval     = 6 * time.Second
	defaultRedialRounds = 3
)

// Kind identifies what a [Signal] arrival stands for.
type Kind int

const (
	// KindDM is a received direct message.
	KindDM Kind = iota

	// KindNextCue is a received nextCue from the cue leader.
	KindNextCue

	// KindConfirmation is a received acknowledgement of a sent dm.
	KindConfirmation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindDM:
		return "dm"
	case KindNextCue:
		return "next_cue"
	case KindConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Roster is the view of the contact directory the peer wait needs.
type Roster interface {
	// Missing returns the names that are not yet registered.
	Missing(names []string) []string
	// Changed returns a channel closed on the next registration or removal.
	Changed() <-chan struct{}
}

// Redialer re-triggers the roll-call handshake toward the configured ports.
type Redialer interface {
	Redial(ctx context.Context)
}

// RoundFunc observes each failed round of a peer wait.
type RoundFunc func(round int, missing []string)

// Option configures a PeerWaiter.
type Option func(*PeerWaiter)

// WithInterval sets the longest sleep between two checks of the roster.
func WithInterval(d time.Duration) Option {
	return func(w *PeerWaiter) {
		w.interval = d
	}
}

// WithRedialRounds sets how many consecutive failed rounds trigger a redial.
func WithRedialRounds(n int) Option {
	return func(w *PeerWaiter) {
		w.redialRounds = n
	}
}

// WithTimeout bounds the whole wait. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(w *PeerWaiter) {
		w.timeout = d
	}
}

// WithMaxRounds caps the number of failed rounds. Zero disables the cap.
func WithMaxRounds(n int) Option {
	return func(w *PeerWaiter) {
		w.maxRounds = n
	}
}

// WithLogger sets the logger used for round diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(w *PeerWaiter) {
		w.logger = l
	}
}

// WithRoundFunc registers a callback invoked after every failed round.
func WithRoundFunc(fn RoundFunc) Option {
	return func(w *PeerWaiter) {
		w.onRound = fn
	}
}

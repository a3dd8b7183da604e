package latch

import (
	"context"
	"sync"

	"github.com/qaznotquaz/aLexA/internal/errors"
)

// Signal is the script sync between network handlers and the interpreter.
// The zero value is not usable; call [NewSignal].
type Signal struct {
	mu     sync.Mutex
	tokens map[Kind]int
	wake   chan struct{}
}

// NewSignal creates a Signal with no pending arrivals.
func NewSignal() *Signal {
	return &Signal{
		tokens: make(map[Kind]int),
		wake:   make(chan struct{}),
	}
}

// Notify records one arrival of kind and wakes the waiter, if any.
// It never blocks.
func (s *Signal) Notify(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[kind]++
	s.wakeLocked()
}

// Pulse wakes the waiter so it rechecks, without recording an arrival.
// A pulse with no waiter has no effect.
func (s *Signal) Pulse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wakeLocked()
}

// Wait consumes one arrival of kind, blocking until one is available or
// ctx is done.
func (s *Signal) Wait(ctx context.Context, kind Kind) error {
	for {
		s.mu.Lock()
		if s.tokens[kind] > 0 {
			s.tokens[kind]--
			s.mu.Unlock()
			return nil
		}
		wake := s.wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return errors.Join(errors.ErrCanceled, ctx.Err())
		}
	}
}

// Drain discards every pending arrival of kind and returns how many
// there were.
func (s *Signal) Drain(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tokens[kind]
	delete(s.tokens, kind)
	return n
}

// Pending returns the number of unconsumed arrivals of kind.
func (s *Signal) Pending(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[kind]
}

func (s *Signal) wakeLocked() {
	close(s.wake)
	s.wake = make(chan struct{})
}

package latch

import (
	"context"
	"slices"
	"sync"

	"github.com/qaznotquaz/aLexA/internal/errors"
)

// Barrier opens once every expected port has arrived. It is not reusable.
type Barrier struct {
	mu      sync.Mutex
	pending map[int]struct{}
	done    chan struct{}
}

// NewBarrier creates a barrier waiting on each of ports. Duplicate ports
// are counted once. A barrier with no ports is open from the start.
func NewBarrier(ports []int) *Barrier {
	b := &Barrier{
		pending: make(map[int]struct{}, len(ports)),
		done:    make(chan struct{}),
	}
	for _, p := range ports {
		b.pending[p] = struct{}{}
	}
	if len(b.pending) == 0 {
		close(b.done)
	}
	return b
}

// Arrive records the completed handshake for port. It reports whether this
// call counted; repeated or unexpected ports are ignored.
func (b *Barrier) Arrive(port int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pending[port]; !ok {
		return false
	}
	delete(b.pending, port)
	if len(b.pending) == 0 {
		close(b.done)
	}
	return true
}

// Done returns a channel closed when the barrier opens.
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// IsOpen reports whether every port has arrived.
func (b *Barrier) IsOpen() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Remaining returns the ports still outstanding, sorted.
func (b *Barrier) Remaining() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	ports := make([]int, 0, len(b.pending))
	for p := range b.pending {
		ports = append(ports, p)
	}
	slices.Sort(ports)
	return ports
}

// Wait blocks until the barrier opens or ctx is done.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.ErrCanceled, ctx.Err())
	}
}

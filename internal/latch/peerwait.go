package latch

import (
	"context"
	"time"

	"github.com/qaznotquaz/aLexA/internal/errors"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

// PeerWaiter blocks until a set of peers is present in a [Roster].
type PeerWaiter struct {
	roster   Roster
	redialer Redialer
	logger   *logging.Logger
	onRound  RoundFunc

	interval     time.Duration
	redialRounds int
	timeout      time.Duration
	maxRounds    int
}

// NewPeerWaiter creates a waiter over roster. redialer may be nil, in which
// case failed rounds never re-trigger the handshake.
func NewPeerWaiter(roster Roster, redialer Redialer, opts ...Option) *PeerWaiter {
	w := &PeerWaiter{
		roster:       roster,
		redialer:     redialer,
		logger:       logging.NopLogger(),
		interval:     defaultInterval,
		redialRounds: defaultRedialRounds,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.redialRounds < 1 {
		w.redialRounds = 1
	}
	return w
}

// Wait returns nil once every name in names is registered. It fails with a
// [errors.TimeoutError] wrapping [errors.ErrPeerWaitTimeout] when the
// timeout elapses or the round cap is reached, and with
// [errors.ErrCanceled] when ctx is done first.
func (w *PeerWaiter) Wait(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	parent := ctx
	var deadline <-chan struct{}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
		deadline = ctx.Done()
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	round := 0
	failed := 0
	for {
		// Fetch before checking so a registration between the two is not missed.
		changed := w.roster.Changed()
		missing := w.roster.Missing(names)
		if len(missing) == 0 {
			if round > 0 {
				w.logger.Debug("peers present", "rounds", round)
			}
			return nil
		}

		round++
		if w.maxRounds > 0 && round > w.maxRounds {
			return w.timeoutError(missing)
		}
		if w.onRound != nil {
			w.onRound(round, missing)
		}
		w.logger.Debug("waiting for peers", "round", round, "missing", missing)

		timer.Reset(w.interval)

		select {
		case <-parent.Done():
			return errors.Join(errors.ErrCanceled, parent.Err())
		case <-deadline:
			if parent.Err() != nil {
				return errors.Join(errors.ErrCanceled, parent.Err())
			}
			return w.timeoutError(w.roster.Missing(names))
		case <-changed:
		case <-timer.C:
		}

		failed++
		if failed >= w.redialRounds && w.redialer != nil {
			failed = 0
			if len(w.roster.Missing(names)) > 0 {
				w.logger.Info("redialing peers", "round", round, "missing", missing)
				w.redialer.Redial(ctx)
			}
		}
	}
}

func (w *PeerWaiter) timeoutError(missing []string) error {
	return errors.NewTimeoutError("waiting for peers", w.timeout).
		WithMissing(missing).
		WithCause(errors.ErrPeerWaitTimeout).
		WithRetryable(false)
}

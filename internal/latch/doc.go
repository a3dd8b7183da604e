// Package latch provides the synchronization primitives an actor uses to
// stay in lock-step with its peers.
//
// # Primitives
//
//   - [Barrier]: counts down once per configured port, including the
//     actor's own, and opens exactly once. The interpreter blocks on it
//     before the first cue.
//   - [Signal]: the script sync. Network handlers call [Signal.Notify] when
//     a dm, nextCue or confirmation arrives; the single interpreter
//     goroutine consumes one arrival per [Signal.Wait]. Arrivals are
//     counted per [Kind], so a notify that lands before the wait is not
//     lost. [Signal.Pulse] wakes the waiter without leaving an arrival.
//   - [PeerWaiter]: polls a [Roster] until every named peer is present,
//     sleeping up to an interval or until the roster changes, and asks a
//     [Redialer] to retry the handshakes after a number of failed rounds.
//     The wait is bounded by an overall timeout and an optional round cap.
//
// # Basic Usage
//
//	barrier := latch.NewBarrier(ports)
//	// transport calls barrier.Arrive(port) after each handshake
//	if err := barrier.Wait(ctx); err != nil {
//	    return err
//	}
//
//	waiter := latch.NewPeerWaiter(directory, transport,
//	    latch.WithInterval(6*time.Second),
//	    latch.WithTimeout(time.Minute),
//	)
//	if err := waiter.Wait(ctx, []string{"Xander", "Fate"}); err != nil {
//	    return err // wraps errors.ErrPeerWaitTimeout
//	}
//
// # Thread Safety
//
// All types are safe for concurrent use.
package latch

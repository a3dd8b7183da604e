// Package actor runs one participant of a performance.
//
// An [Actor] owns everything a participant needs: its own contact
// directory, the startup barrier, the script sync signal, the transport,
// and the cue interpreter. Nothing is shared between actors, so several
// can run in one process.
//
// The interpreter is a small state machine:
//
//	AwaitingBarrier -> Running(scene, cue) -> Running(next) | Offstage
//
// For each cue it resolves its own presence, waits for every other onstage
// participant to be reachable, executes the directive, and follows the
// transition. Reaching a cue where it is offstage shuts the transport down
// and ends the performance for this actor.
//
// Network callbacks never block on the interpreter. They update the
// display, answer confirmations, and notify the [latch.Signal] the
// interpreter waits on.
package actor

package actor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/qaznotquaz/aLexA/internal/ensemble"
	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/latch"
	"github.com/qaznotquaz/aLexA/internal/logging"
	"github.com/qaznotquaz/aLexA/internal/playscript"
)

// waiter is the peer wait the interpreter runs before each cue.
type waiter interface {
	Wait(ctx context.Context, names []string) error
}

// interpreter executes cues for one actor. It also implements
// transport.Handler, turning peer traffic into signal arrivals.
type interpreter struct {
	self      envelope.Identity
	cast      []string // Every configured name, self included
	script    *playscript.Script
	directory *ensemble.Directory
	signal    *latch.Signal
	waiter    waiter
	display   Display
	bus       *event.Bus
	logger    *logging.Logger

	confirmTimeout time.Duration
	acks           confirmations
	shutdown       func() error
	onOffstage     func()

	mu       sync.Mutex
	state    State
	position playscript.Position
}

// State returns the interpreter state.
func (i *interpreter) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Position returns the cue being executed.
func (i *interpreter) Position() playscript.Position {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.position
}

func (i *interpreter) enter(state State, pos playscript.Position) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = state
	i.position = pos
}

// run executes cues from start until the actor goes offstage or a cue fails.
func (i *interpreter) run(ctx context.Context, start playscript.Position) error {
	pos := start
	for {
		cue, err := i.script.Lookup(pos)
		if err != nil {
			return err
		}

		done, err := i.step(ctx, cue)
		if err != nil || done {
			return err
		}
		pos = cue.Transition
	}
}

// step executes one cue. It reports done when the actor left the stage.
func (i *interpreter) step(ctx context.Context, cue *playscript.Cue) (bool, error) {
	logger := i.logger.WithCue(cue.Scene, cue.Name)
	presence := cue.PresenceOf(i.self.Name)
	onstage, participating := i.others(cue)

	i.enter(StateRunning, cue.Position())
	logger.Debug("cue entered",
		"presence", string(presence),
		"directive", string(cue.Type),
		"onstage", onstage,
		"participating", participating,
	)
	i.publish(event.NewCueEnteredEvent(i.self.Name, cue.Scene, cue.Name,
		string(presence), string(cue.Type), onstage))

	if !presence.IsOnstage() {
		i.leave(cue, logger)
		return true, nil
	}

	if err := i.waiter.Wait(ctx, onstage); err != nil {
		return false, i.cueError("peers did not arrive", cue, err)
	}

	err := i.dispatch(ctx, cue, presence, onstage, logger)
	switch {
	case errors.Is(err, errors.ErrUnimplementedDirective):
		logger.Warn("directive skipped", "error", err)
		i.publish(event.NewDirectiveSkippedEvent(i.self.Name, cue.Scene, cue.Name, string(cue.Type)))
	case err != nil:
		return false, i.cueError("directive failed", cue, err)
	}
	return false, nil
}

// others splits the rest of the cast into onstage and participating names,
// in cast order.
func (i *interpreter) others(cue *playscript.Cue) (onstage, participating []string) {
	for _, name := range i.cast {
		if name == i.self.Name {
			continue
		}
		p := cue.PresenceOf(name)
		if p.IsOnstage() {
			onstage = append(onstage, name)
		}
		if p.IsParticipating() {
			participating = append(participating, name)
		}
	}
	return onstage, participating
}

func (i *interpreter) dispatch(ctx context.Context, cue *playscript.Cue, presence playscript.Presence, onstage []string, logger *logging.Logger) error {
	switch cue.Type {
	case playscript.DirectiveMonologue:
		return i.monologue(ctx, cue, presence, onstage, logger)
	case playscript.DirectiveConversation:
		return i.conversation(ctx, cue, onstage, logger)
	default:
		return errors.Wrapf(errors.ErrUnimplementedDirective, "%s directive", cue.Type)
	}
}

// monologue speaks every line when leading, then advances the listeners.
// Everyone else waits for the leader's nextCue.
func (i *interpreter) monologue(ctx context.Context, cue *playscript.Cue, presence playscript.Presence, onstage []string, logger *logging.Logger) error {
	if presence != playscript.PresenceLeading {
		return i.signal.Wait(ctx, latch.KindNextCue)
	}

	for idx, line := range cue.Lines {
		if err := sleep(ctx, line.Delay); err != nil {
			return err
		}
		i.display.LocalSpeech(line.Text)
		i.publish(event.NewLineSpokenEvent(i.self.Name, cue.Scene, cue.Name, idx+1, line.Text))
	}

	i.signal.Pulse()
	i.broadcast(envelope.NextCue(i.self), onstage, logger)
	return nil
}

// conversation walks the lines in order. Own lines go to every onstage
// peer; any other line is satisfied by the next dm to arrive.
func (i *interpreter) conversation(ctx context.Context, cue *playscript.Cue, onstage []string, logger *logging.Logger) error {
	for idx, line := range cue.Lines {
		if line.From != i.self.Name {
			if err := i.signal.Wait(ctx, latch.KindDM); err != nil {
				return err
			}
			continue
		}

		if err := sleep(ctx, line.Delay); err != nil {
			return err
		}
		i.display.OutgoingMessage(strings.Join(onstage, ", "), line.Text)
		i.acks.expect(onstage)
		sent := i.broadcast(envelope.DM(i.self, line.Text), onstage, logger)
		i.acks.settle(sent)
		i.publish(event.NewMessageSentEvent(i.self.Name, sent, line.Text))

		if err := i.awaitConfirmations(ctx, len(sent), logger.With("line", idx+1)); err != nil {
			return err
		}
	}
	return nil
}

// broadcast sends e to each named contact and returns the names reached.
// Unknown contacts and failed sends are logged and skipped.
func (i *interpreter) broadcast(e envelope.Envelope, names []string, logger *logging.Logger) []string {
	sent := make([]string, 0, len(names))
	for _, name := range names {
		contact := i.directory.FindByName(name)
		if contact == nil {
			err := errors.NewActorError("cannot send "+string(e.Type), errors.ErrUnknownContact).
				WithActor(i.self.Name).
				WithSeverity(errors.SeverityWarning)
			logger.Warn("recipient skipped", "to", name, "error", err, "severity", errors.GetSeverity(err).String())
			continue
		}
		if err := contact.Send(e); err != nil {
			logger.Warn("send failed", "to", name, "type", string(e.Type), "error", err)
			continue
		}
		sent = append(sent, name)
	}
	return sent
}

// awaitConfirmations consumes n confirmations. Running out of time is
// logged and the conversation moves on; acknowledgements that arrive
// after that are discarded.
func (i *interpreter) awaitConfirmations(ctx context.Context, n int, logger *logging.Logger) error {
	if n == 0 {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, i.confirmTimeout)
	defer cancel()

	for received := range n {
		if err := i.signal.Wait(wctx, latch.KindConfirmation); err != nil {
			if ctx.Err() != nil {
				return err
			}
			owed := i.acks.abandon()
			i.signal.Drain(latch.KindConfirmation)
			logger.Warn("confirmations timed out",
				"received", received,
				"expected", n,
				"missing", owed,
				"timeout", i.confirmTimeout.String(),
			)
			return nil
		}
	}
	return nil
}

// leave shuts the transport down and reports the actor offstage.
func (i *interpreter) leave(cue *playscript.Cue, logger *logging.Logger) {
	i.enter(StateOffstage, cue.Position())

	if i.shutdown != nil {
		if err := i.shutdown(); err != nil {
			logger.Warn("transport shutdown failed", "error", err)
		}
	}
	logger.Info("left the stage")
	i.publish(event.NewActorOffstageEvent(i.self.Name, cue.Scene, cue.Name))

	if i.onOffstage != nil {
		i.onOffstage()
	}
}

func (i *interpreter) cueError(msg string, cue *playscript.Cue, cause error) error {
	return errors.NewActorError(msg, cause).
		WithActor(i.self.Name).
		WithCue(cue.Scene, cue.Name)
}

// onRound publishes a failed peer wait round for the current cue.
func (i *interpreter) onRound(round int, missing []string) {
	pos := i.Position()
	i.publish(event.NewPeerWaitRoundEvent(i.self.Name, pos.Scene, pos.Cue, round, missing))
}

// DirectMessage shows the message, confirms it, then wakes the interpreter.
func (i *interpreter) DirectMessage(from envelope.Identity, text string, ack func() error) {
	i.display.IncomingMessage(from.Name, text)
	if err := ack(); err != nil {
		i.logger.Warn("confirmation failed", "peer", from.Name, "error", err)
	}
	i.publish(event.NewMessageReceivedEvent(i.self.Name, from.Name, text))
	i.signal.Notify(latch.KindDM)
}

// NextCue wakes a listener waiting on a monologue.
func (i *interpreter) NextCue(from envelope.Identity) {
	i.logger.Debug("next cue received", "peer", from.Name)
	i.signal.Notify(latch.KindNextCue)
}

// Confirmation counts an acknowledgement of the line being spoken.
// Late acknowledgements of earlier lines are dropped.
func (i *interpreter) Confirmation(from envelope.Identity, tag string) {
	if !i.acks.accept(from.Name) {
		i.logger.Debug("stale confirmation dropped", "peer", from.Name, "tag", tag)
		return
	}
	i.logger.Debug("confirmation received", "peer", from.Name, "tag", tag)
	i.signal.Notify(latch.KindConfirmation)
}

func (i *interpreter) publish(e event.Event) {
	if i.bus != nil {
		i.bus.Publish(e)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.ErrCanceled, ctx.Err())
	}
}

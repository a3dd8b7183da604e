package actor

import (
	"context"
	"slices"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/qaznotquaz/aLexA/internal/config"
	"github.com/qaznotquaz/aLexA/internal/ensemble"
	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/latch"
	"github.com/qaznotquaz/aLexA/internal/logging"
	"github.com/qaznotquaz/aLexA/internal/playscript"
	"github.com/qaznotquaz/aLexA/internal/transport"
)

// Actor is one participant of the cast performing a script.
type Actor struct {
	cfg    *config.Config
	self   envelope.Identity
	script *playscript.Script
	runID  string

	directory *ensemble.Directory
	barrier   *latch.Barrier
	signal    *latch.Signal
	transport *transport.Transport
	interp    *interpreter

	bus        *event.Bus
	logger     *logging.Logger
	display    Display
	onOffstage func()
}

// New creates the actor called name. The script is validated against the
// cast before anything is started.
func New(cfg *config.Config, name string, script *playscript.Script, opts ...Option) (*Actor, error) {
	member, ok := cfg.Member(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%q is not in the cast", name)
	}
	if err := script.Validate(cfg.Names()); err != nil {
		return nil, err
	}

	a := &Actor{
		cfg:     cfg,
		self:    member.Identity(),
		script:  script,
		runID:   uuid.NewString(),
		logger:  logging.NopLogger(),
		display: nopDisplay{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithActor(name).WithRun(a.runID)
	if a.bus == nil {
		a.bus = event.NewBus(event.WithLogger(a.logger))
	}

	a.directory = ensemble.NewDirectory()
	a.barrier = latch.NewBarrier(cfg.Ports())
	a.signal = latch.NewSignal()

	a.interp = &interpreter{
		self:           a.self,
		cast:           cfg.Names(),
		script:         script,
		directory:      a.directory,
		signal:         a.signal,
		display:        a.display,
		bus:            a.bus,
		logger:         a.logger,
		confirmTimeout: cfg.Conversation.ConfirmTimeout(),
		onOffstage:     a.onOffstage,
	}

	a.transport = transport.New(transport.Config{
		Self:             a.self,
		Ports:            cfg.Ports(),
		Host:             cfg.Network.Host,
		DialTimeout:      cfg.Network.DialTimeout(),
		HandshakeTimeout: cfg.Network.HandshakeTimeout(),
	}, a.directory, a.barrier, a.interp,
		transport.WithLogger(a.logger.With("component", "transport")),
		transport.WithBus(a.bus),
	)
	a.interp.shutdown = a.transport.Close

	a.interp.waiter = latch.NewPeerWaiter(a.directory, a.transport,
		latch.WithInterval(cfg.PeerWait.Interval()),
		latch.WithRedialRounds(cfg.PeerWait.RedialRounds),
		latch.WithTimeout(cfg.PeerWait.Timeout()),
		latch.WithMaxRounds(cfg.PeerWait.MaxRounds),
		latch.WithLogger(a.logger.With("component", "peer_wait")),
		latch.WithRoundFunc(a.interp.onRound),
	)

	return a, nil
}

// Self returns the actor's identity.
func (a *Actor) Self() envelope.Identity {
	return a.self
}

// RunID returns the identifier attached to this performance's log lines.
func (a *Actor) RunID() string {
	return a.runID
}

// State returns where the actor is in its performance.
func (a *Actor) State() State {
	return a.interp.State()
}

// Position returns the cue the actor is executing.
func (a *Actor) Position() playscript.Position {
	return a.interp.Position()
}

// Bus returns the bus the actor publishes to.
func (a *Actor) Bus() *event.Bus {
	return a.bus
}

// Run performs the script. It returns nil once the actor goes offstage and
// an error when startup or a cue fails. The transport is closed on return.
func (a *Actor) Run(ctx context.Context) error {
	header := a.script.Header
	a.logger.Info("performance starting",
		"episode", header.Episode,
		"act", header.Act,
		"initial", header.Initial.String(),
		"port", a.self.Port,
	)

	if err := a.transport.Start(ctx); err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			err = errors.Join(errors.ErrIdentityCollision, err)
		}
		return a.fail("startup failed", err)
	}
	defer func() {
		_ = a.transport.Close()
	}()

	if err := a.awaitCast(ctx); err != nil {
		return a.fail("cast did not assemble", err)
	}

	if a.directory.CollidesWithSelf(a.self.Name, a.self.Port) {
		err := errors.NewActorError("another actor holds this identity", errors.ErrIdentityCollision).
			WithActor(a.self.Name)
		return a.fail("startup failed", err)
	}

	if err := a.interp.run(ctx, header.Initial); err != nil {
		return a.fail("performance aborted", err)
	}
	return nil
}

// awaitCast blocks on the startup barrier, redialing every peer wait
// interval until the whole cast has handshaked.
func (a *Actor) awaitCast(ctx context.Context) error {
	parent := ctx
	if timeout := a.cfg.Startup.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	ticker := time.NewTicker(a.cfg.PeerWait.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-a.barrier.Done():
			waited := time.Since(start)
			a.logger.Info("cast assembled", "waited", waited.String(), "contacts", a.directory.Len())
			a.publish(event.NewBarrierOpenedEvent(a.self.Name, waited, a.directory.Len()))
			return nil
		case <-ticker.C:
			a.logger.Debug("awaiting cast", "remaining", a.barrier.Remaining())
			a.transport.Redial(ctx)
		case <-ctx.Done():
			if parent.Err() != nil {
				return errors.Join(errors.ErrCanceled, parent.Err())
			}
			return errors.NewTimeoutError("waiting for the cast", a.cfg.Startup.Timeout()).
				WithMissing(a.namesOf(a.barrier.Remaining()))
		}
	}
}

// namesOf maps ports back to cast names, in cast order.
func (a *Actor) namesOf(ports []int) []string {
	names := make([]string, 0, len(ports))
	for _, m := range a.cfg.Cast {
		if slices.Contains(ports, m.Port) {
			names = append(names, m.Name)
		}
	}
	return names
}

func (a *Actor) fail(msg string, err error) error {
	a.logger.Error(msg, "error", err, "fatal", errors.IsFatal(err), "retryable", errors.IsRetryable(err))
	return err
}

func (a *Actor) publish(e event.Event) {
	a.bus.Publish(e)
}

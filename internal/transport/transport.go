package transport

import (
	"context"
	"io"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/qaznotquaz/aLexA/internal/ensemble"
	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/latch"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

// Transport owns the listener and every connection of one actor.
type Transport struct {
	cfg       Config
	directory *ensemble.Directory
	barrier   *latch.Barrier
	handler   Handler
	bus       *event.Bus
	logger    *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	dialing  map[int]bool
	channels map[*channel]struct{}
	started  bool
	closed   bool

	ctx       context.Context
	cancel    context.CancelFunc
	wg        conc.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New creates a transport. Start must be called before it does anything.
func New(cfg Config, directory *ensemble.Directory, barrier *latch.Barrier, handler Handler, opts ...Option) *Transport {
	cfg.applyDefaults()
	t := &Transport{
		cfg:       cfg,
		directory: directory,
		barrier:   barrier,
		handler:   handler,
		logger:    logging.NopLogger(),
		dialing:   make(map[int]bool),
		channels:  make(map[*channel]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t
}

// Start binds the listener, begins accepting, and dials every configured
// port once. The local port arrives at the barrier immediately. Dial
// failures are logged and left to Redial.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started || t.closed {
		t.mu.Unlock()
		return errors.NewTransportError("transport already started", nil).WithPort(t.cfg.Self.Port)
	}
	t.started = true
	t.mu.Unlock()

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Self.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.NewTransportError("listen on "+addr, err).
			WithPeer(t.cfg.Self.Name).WithPort(t.cfg.Self.Port)
	}

	t.mu.Lock()
	t.listener = listener
	t.mu.Unlock()

	t.logger.Info("listening", "addr", listener.Addr().String())
	t.publish(event.NewTransportListeningEvent(t.cfg.Self.Name, listener.Addr().String()))

	t.wg.Go(func() { t.acceptLoop(listener) })

	t.barrier.Arrive(t.cfg.Self.Port)
	t.Redial(ctx)
	return nil
}

// Redial dials every configured peer port that has no contact yet and
// waits for those attempts to finish.
func (t *Transport) Redial(ctx context.Context) {
	p := pool.New()
	for _, port := range t.cfg.Ports {
		if port == t.cfg.Self.Port || t.directory.FindByPort(port) != nil {
			continue
		}
		p.Go(func() { t.dial(ctx, port) })
	}
	p.Wait()
}

// Addr returns the listener address, or nil before Start.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Close stops accepting, closes every connection and waits for all
// transport goroutines. Close errors are logged and returned joined.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		listener := t.listener
		channels := make([]*channel, 0, len(t.channels))
		for ch := range t.channels {
			channels = append(channels, ch)
		}
		t.mu.Unlock()

		t.cancel()

		var errs []error
		if listener != nil {
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		for _, ch := range channels {
			if err := ch.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}

		t.wg.Wait()

		for _, c := range t.directory.Clear() {
			_ = c.Channel().Close()
		}

		t.closeErr = errors.Join(errs...)
		if t.closeErr != nil {
			t.logger.Warn("transport closed with errors", "error", t.closeErr)
		} else {
			t.logger.Info("transport closed")
		}
	})
	return t.closeErr
}

func (t *Transport) acceptLoop(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.Warn("accept failed", "error", err)
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		ch := newChannel(conn)
		if !t.track(ch) {
			_ = ch.Close()
			return
		}
		t.wg.Go(func() { t.serveInbound(ch) })
	}
}

// dial performs one outbound roll-call toward port.
func (t *Transport) dial(ctx context.Context, port int) {
	if !t.beginDial(port) {
		return
	}
	defer t.endDial(port)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.ctx, cancel)
	defer stop()

	logger := t.logger.With("port", port)
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Debug("dial failed", "error", err)
		t.publish(event.NewHandshakeFailedEvent(t.cfg.Self.Name, port, err))
		return
	}

	ch := newChannel(conn)
	if !t.track(ch) {
		_ = ch.Close()
		return
	}

	peer, err := t.rollCall(ch, port)
	if err != nil {
		logger.Warn("roll-call failed", "error", err)
		t.publish(event.NewHandshakeFailedEvent(t.cfg.Self.Name, port, err))
		t.untrack(ch)
		_ = ch.Close()
		return
	}

	contact := ensemble.NewContact(peer, ch)
	switch t.directory.Register(contact) {
	case ensemble.Added:
		t.barrier.Arrive(port)
		logger.Info("contact registered", "peer", peer.Name)
		t.publish(event.NewContactRegisteredEvent(t.cfg.Self.Name, peer.Name, peer.Port))
		t.wg.Go(func() { t.serveOutbound(contact, ch) })
	case ensemble.AlreadyPresent:
		logger.Debug("contact already present", "peer", peer.Name)
		t.barrier.Arrive(port)
		t.untrack(ch)
		_ = ch.Close()
	}
}

// rollCall sends the local identity and waits for the peer's response.
func (t *Transport) rollCall(ch *channel, port int) (envelope.Identity, error) {
	if err := ch.Send(envelope.RollCall(t.cfg.Self)); err != nil {
		return envelope.Identity{}, err
	}

	resp, err := ch.readWithin(t.cfg.HandshakeTimeout)
	if err != nil {
		return envelope.Identity{}, errors.NewTransportError("await roll-call response", err).WithPort(port)
	}
	if resp.Type != envelope.MessageRollCall {
		return envelope.Identity{}, errors.NewTransportError(
			"expected roll-call response, got "+string(resp.Type), errors.ErrProtocol).WithPort(port)
	}
	if resp.Source.Port != port {
		return envelope.Identity{}, errors.NewTransportError(
			"peer on port "+strconv.Itoa(port)+" claims port "+strconv.Itoa(resp.Source.Port),
			errors.ErrProtocol).WithPeer(resp.Source.Name).WithPort(port)
	}
	return resp.Source, nil
}

// serveOutbound reads a dialed channel. Only confirmations are expected
// once the handshake is done.
func (t *Transport) serveOutbound(contact *ensemble.Contact, ch *channel) {
	logger := t.logger.With("peer", contact.Name, "port", contact.Port)
	for {
		e, err := ch.read()
		if err != nil {
			t.logReadEnd(logger, ch, err)
			break
		}
		switch e.Type {
		case envelope.MessageConfirmation:
			t.handler.Confirmation(e.Source, e.Payload)
		default:
			t.violation(logger, e.Source.Name, e.Type, "unexpected on a dialed channel")
		}
	}

	t.untrack(ch)
	_ = ch.Close()
	if t.directory.Remove(contact) {
		logger.Info("contact removed")
		t.publish(event.NewContactRemovedEvent(t.cfg.Self.Name, contact.Name, contact.Port))
	}
}

// serveInbound reads an accepted channel, answering roll-calls and
// delivering content once the sender has identified itself.
func (t *Transport) serveInbound(ch *channel) {
	defer func() {
		t.untrack(ch)
		_ = ch.Close()
	}()

	logger := t.logger.With("remote", ch.conn.RemoteAddr().String())
	var peer *envelope.Identity
	acks := 0

	for {
		e, err := ch.read()
		if err != nil {
			t.logReadEnd(logger, ch, err)
			return
		}

		switch e.Type {
		case envelope.MessageRollCall:
			if !slices.Contains(t.cfg.Ports, e.Source.Port) {
				t.violation(logger, e.Source.Name, e.Type, "port "+strconv.Itoa(e.Source.Port)+" is not in the cast")
				return
			}
			id := e.Source
			peer = &id
			logger = t.logger.With("peer", id.Name, "port", id.Port)

			if err := ch.Send(envelope.RollCall(t.cfg.Self)); err != nil {
				logger.Warn("roll-call response failed", "error", err)
				return
			}
			t.barrier.Arrive(id.Port)
			logger.Debug("answered roll-call")

			if t.directory.FindByPort(id.Port) == nil {
				t.wg.Go(func() { t.dial(t.ctx, id.Port) })
			}

		case envelope.MessageDM:
			if peer == nil || !peer.Same(e.Source) {
				t.violation(logger, e.Source.Name, e.Type, "content before roll-call")
				continue
			}
			acks++
			tag := "dm-" + strconv.Itoa(acks)
			t.handler.DirectMessage(e.Source, e.Payload, func() error {
				return ch.Send(envelope.Confirmation(t.cfg.Self, tag))
			})

		case envelope.MessageNextCue:
			if peer == nil || !peer.Same(e.Source) {
				t.violation(logger, e.Source.Name, e.Type, "content before roll-call")
				continue
			}
			t.handler.NextCue(e.Source)

		default:
			t.violation(logger, e.Source.Name, e.Type, "unexpected on an accepted channel")
		}
	}
}

func (t *Transport) logReadEnd(logger *logging.Logger, ch *channel, err error) {
	if err == io.EOF || ch.isClosed() || t.isClosed() {
		logger.Debug("channel closed")
		return
	}
	logger.Warn("channel read failed", "error", err)
}

func (t *Transport) violation(logger *logging.Logger, peer string, msgType envelope.MessageType, reason string) {
	err := errors.Wrap(errors.ErrProtocol, reason)
	logger.Warn("protocol violation", "message_type", string(msgType), "claimed_peer", peer, "error", err)
	t.publish(event.NewProtocolViolationEvent(t.cfg.Self.Name, peer, string(msgType), reason))
}

func (t *Transport) beginDial(port int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.dialing[port] || t.directory.FindByPort(port) != nil {
		return false
	}
	t.dialing[port] = true
	return true
}

func (t *Transport) endDial(port int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dialing, port)
}

func (t *Transport) track(ch *channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.channels[ch] = struct{}{}
	return true
}

func (t *Transport) untrack(ch *channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.channels, ch)
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) publish(e event.Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}

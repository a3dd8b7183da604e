package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/qaznotquaz/aLexA/internal/ensemble"
	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/latch"
	"github.com/qaznotquaz/aLexA/internal/testutil"
)

const waitFor = 5 * time.Second

type recordingHandler struct {
	mu            sync.Mutex
	dms           []string
	nextCues      []string
	confirmations []string
	ackErrs       []error
}

func (h *recordingHandler) DirectMessage(from envelope.Identity, text string, ack func() error) {
	err := ack()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dms = append(h.dms, from.Name+":"+text)
	h.ackErrs = append(h.ackErrs, err)
}

func (h *recordingHandler) NextCue(from envelope.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextCues = append(h.nextCues, from.Name)
}

func (h *recordingHandler) Confirmation(from envelope.Identity, tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.confirmations = append(h.confirmations, from.Name+":"+tag)
}

func (h *recordingHandler) counts() (dms, nextCues, confirmations int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dms), len(h.nextCues), len(h.confirmations)
}

type node struct {
	self      envelope.Identity
	directory *ensemble.Directory
	barrier   *latch.Barrier
	handler   *recordingHandler
	bus       *event.Bus
	transport *Transport
}

func newNode(t *testing.T, self envelope.Identity, ports []int) *node {
	t.Helper()
	n := &node{
		self:      self,
		directory: ensemble.NewDirectory(),
		barrier:   latch.NewBarrier(ports),
		handler:   &recordingHandler{},
		bus:       event.NewBus(),
	}
	n.transport = New(Config{
		Self:             self,
		Ports:            ports,
		Host:             testutil.Host,
		DialTimeout:      500 * time.Millisecond,
		HandshakeTimeout: time.Second,
	}, n.directory, n.barrier, n.handler, WithBus(n.bus))
	t.Cleanup(func() { _ = n.transport.Close() })
	return n
}

func (n *node) start(t *testing.T) {
	t.Helper()
	if err := n.transport.Start(context.Background()); err != nil {
		t.Fatalf("Start(%s) error = %v", n.self.Name, err)
	}
}

func connectedPair(t *testing.T) (a, b *node) {
	t.Helper()
	cast := testutil.Cast(t, "Lexa", "Xander")
	ports := testutil.Ports(cast)
	a = newNode(t, cast[0], ports)
	b = newNode(t, cast[1], ports)
	a.start(t)
	b.start(t)

	testutil.Eventually(t, waitFor, func() bool {
		return a.directory.FindByName("Xander") != nil && b.directory.FindByName("Lexa") != nil
	}, "both sides registered")
	return a, b
}

func TestTransport_SelfPortOnly(t *testing.T) {
	self := testutil.Cast(t, "Lexa")[0]
	n := newNode(t, self, []int{self.Port})
	n.start(t)

	if !n.barrier.IsOpen() {
		t.Error("barrier with only the self port should open on Start")
	}
	if n.directory.Len() != 0 {
		t.Errorf("self should not be registered as a contact, got %v", n.directory.Names())
	}
}

func TestTransport_LateStarterIsDialedBack(t *testing.T) {
	a, b := connectedPair(t)

	for _, n := range []*node{a, b} {
		select {
		case <-n.barrier.Done():
		case <-time.After(waitFor):
			t.Fatalf("%s barrier did not open; remaining %v", n.self.Name, n.barrier.Remaining())
		}
	}

	contact := a.directory.FindByName("Xander")
	if contact.Port != b.self.Port {
		t.Errorf("contact port = %d, want %d", contact.Port, b.self.Port)
	}
}

func TestTransport_DirectMessageAndConfirmation(t *testing.T) {
	a, b := connectedPair(t)

	contact := a.directory.FindByName("Xander")
	if err := contact.Send(envelope.DM(a.self, "hello")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	testutil.Eventually(t, waitFor, func() bool {
		dms, _, _ := b.handler.counts()
		_, _, confirmations := a.handler.counts()
		return dms == 1 && confirmations == 1
	}, "dm delivered and confirmed")

	b.handler.mu.Lock()
	defer b.handler.mu.Unlock()
	if b.handler.dms[0] != "Lexa:hello" {
		t.Errorf("dm = %q, want %q", b.handler.dms[0], "Lexa:hello")
	}
	if b.handler.ackErrs[0] != nil {
		t.Errorf("ack error = %v", b.handler.ackErrs[0])
	}

	a.handler.mu.Lock()
	defer a.handler.mu.Unlock()
	if a.handler.confirmations[0] != "Xander:dm-1" {
		t.Errorf("confirmation = %q", a.handler.confirmations[0])
	}
}

func TestTransport_NextCue(t *testing.T) {
	a, b := connectedPair(t)

	if err := b.directory.FindByName("Lexa").Send(envelope.NextCue(b.self)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	testutil.Eventually(t, waitFor, func() bool {
		_, nextCues, _ := a.handler.counts()
		return nextCues == 1
	}, "nextCue delivered")
}

func TestTransport_ContentBeforeRollCallIsDropped(t *testing.T) {
	cast := testutil.Cast(t, "Lexa", "Xander")
	ports := testutil.Ports(cast)
	a := newNode(t, cast[0], ports)

	var mu sync.Mutex
	var violations []event.ProtocolViolationEvent
	a.bus.Subscribe(event.TypeProtocolViolation, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		violations = append(violations, e.(event.ProtocolViolationEvent))
	})
	a.start(t)

	conn, err := net.Dial("tcp", net.JoinHostPort(testutil.Host, strconv.Itoa(a.self.Port)))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := envelope.Encode(conn, envelope.DM(cast[1], "too early")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := envelope.Encode(conn, envelope.RollCall(cast[1])); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	resp, err := envelope.NewReader(conn).Read()
	if err != nil {
		t.Fatalf("reading roll-call response: %v", err)
	}
	if resp.Type != envelope.MessageRollCall || resp.Source.Name != "Lexa" {
		t.Errorf("response = %+v, want roll-call from Lexa", resp)
	}

	if err := envelope.Encode(conn, envelope.DM(cast[1], "on time")); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	testutil.Eventually(t, waitFor, func() bool {
		dms, _, _ := a.handler.counts()
		return dms == 1
	}, "dm after roll-call delivered")

	a.handler.mu.Lock()
	if a.handler.dms[0] != "Xander:on time" {
		t.Errorf("delivered dm = %q, want the post-roll-call one", a.handler.dms[0])
	}
	a.handler.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()
	if len(violations) != 1 || violations[0].MessageType != "dm" {
		t.Errorf("violations = %+v, want one dm violation", violations)
	}
}

func TestTransport_RollCallFromOutsideCastClosesChannel(t *testing.T) {
	cast := testutil.Cast(t, "Lexa", "Stranger")
	a := newNode(t, cast[0], []int{cast[0].Port})
	a.start(t)

	conn, err := net.Dial("tcp", net.JoinHostPort(testutil.Host, strconv.Itoa(a.self.Port)))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := envelope.Encode(conn, envelope.RollCall(cast[1])); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(waitFor))
	if _, err := envelope.NewReader(conn).Read(); err == nil {
		t.Error("expected the channel to close without a roll-call response")
	}
}

func TestTransport_RedialReachesLatePeer(t *testing.T) {
	cast := testutil.Cast(t, "Lexa", "Fate")
	ports := testutil.Ports(cast)
	a := newNode(t, cast[0], ports)
	a.start(t)

	if a.barrier.IsOpen() {
		t.Fatal("barrier should wait for Fate")
	}

	l, err := net.Listen("tcp", net.JoinHostPort(testutil.Host, strconv.Itoa(cast[1].Port)))
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	served := make(chan struct{})
	go func() {
		defer close(served)
		conn, err := l.Accept()
		if err != nil {
			return
		}
		req, err := envelope.NewReader(conn).Read()
		if err != nil || req.Type != envelope.MessageRollCall {
			_ = conn.Close()
			return
		}
		_ = envelope.Encode(conn, envelope.RollCall(cast[1]))
		// Keep the channel open until the test ends.
		t.Cleanup(func() { _ = conn.Close() })
	}()

	a.transport.Redial(context.Background())
	<-served

	if a.directory.FindByName("Fate") == nil {
		t.Fatal("Redial() did not register Fate")
	}
	if !a.barrier.IsOpen() {
		t.Errorf("barrier should be open; remaining %v", a.barrier.Remaining())
	}
}

func TestTransport_ContactRemovedWhenPeerCloses(t *testing.T) {
	a, b := connectedPair(t)

	removed := make(chan event.ContactRemovedEvent, 1)
	a.bus.Subscribe(event.TypeContactRemoved, func(e event.Event) {
		select {
		case removed <- e.(event.ContactRemovedEvent):
		default:
		}
	})

	if err := b.transport.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case e := <-removed:
		if e.Peer != "Xander" {
			t.Errorf("removed peer = %q, want Xander", e.Peer)
		}
	case <-time.After(waitFor):
		t.Fatal("contact was not removed after the peer closed")
	}
	if a.directory.FindByName("Xander") != nil {
		t.Error("Xander should no longer be a contact")
	}
}

func TestTransport_CloseIsIdempotent(t *testing.T) {
	self := testutil.Cast(t, "Lexa")[0]
	n := newNode(t, self, []int{self.Port})
	n.start(t)

	if err := n.transport.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := n.transport.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := n.transport.Start(context.Background()); err == nil {
		t.Error("Start() after Close() should fail")
	}
}

func TestTransport_ListenFailure(t *testing.T) {
	self := testutil.Cast(t, "Lexa")[0]
	l, err := net.Listen("tcp", net.JoinHostPort(testutil.Host, strconv.Itoa(self.Port)))
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer l.Close()

	n := newNode(t, self, []int{self.Port})
	if err := n.transport.Start(context.Background()); err == nil {
		t.Error("Start() on a taken port should fail")
	}
}

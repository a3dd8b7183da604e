package actor

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qaznotquaz/aLexA/internal/ensemble"
	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/latch"
	"github.com/qaznotquaz/aLexA/internal/logging"
	"github.com/qaznotquaz/aLexA/internal/playscript"
	"github.com/qaznotquaz/aLexA/internal/testutil"
)

// trioJSON: Ann speaks a monologue to Bob, then the two converse, then
// everyone leaves. Cyd is offstage throughout.
const trioJSON = `{
  "header": {"episode": 1, "act": 1, "initial": {"scene": "open", "cue": "1"}},
  "open": {
    "1": {
      "actors": {"Ann": "leading", "Bob": "responding", "Cyd": "offstage"},
      "type": "monologue",
      "text": {
        "1": {"text": "Hello", "delay": 5},
        "2": {"text": "World", "delay": 5}
      },
      "cuesTo": {"scene": "open", "cue": "2"}
    },
    "2": {
      "actors": {"Ann": "leading", "Bob": "responding"},
      "type": "conversation",
      "text": {
        "1": {"from": "Ann", "text": "hi", "delay": 0},
        "2": {"from": "Bob", "text": "hey", "delay": 0}
      },
      "cuesTo": {"scene": "open", "cue": "3"}
    },
    "3": {
      "actors": {},
      "type": "exit",
      "cuesTo": {"scene": "open", "cue": "3"}
    }
  }
}`

var trio = []string{"Ann", "Bob", "Cyd"}

// transcript is the shared, ordered record of every display call.
type transcript struct {
	mu    sync.Mutex
	lines []string
}

func (tr *transcript) add(format string, args ...any) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.lines = append(tr.lines, fmt.Sprintf(format, args...))
}

func (tr *transcript) snapshot() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return slices.Clone(tr.lines)
}

func (tr *transcript) index(t *testing.T, line string) int {
	t.Helper()
	lines := tr.snapshot()
	i := slices.Index(lines, line)
	if i < 0 {
		t.Fatalf("transcript missing %q; got %q", line, lines)
	}
	return i
}

// scribe is a Display that writes to a transcript.
type scribe struct {
	tr   *transcript
	name string
}

func (s scribe) LocalSpeech(text string) {
	s.tr.add("%s says %s", s.name, text)
}

func (s scribe) OutgoingMessage(to, text string) {
	s.tr.add("%s -> %s: %s", s.name, to, text)
}

func (s scribe) IncomingMessage(from, text string) {
	s.tr.add("%s <- %s: %s", s.name, from, text)
}

// memLink delivers envelopes straight into the peer interpreter's handler.
type memLink struct {
	from, to *interpreter
}

func (l *memLink) Send(e envelope.Envelope) error {
	switch e.Type {
	case envelope.MessageDM:
		l.to.DirectMessage(e.Source, e.Payload, func() error {
			l.from.Confirmation(l.to.self, "ack")
			return nil
		})
	case envelope.MessageNextCue:
		l.to.NextCue(e.Source)
	}
	return nil
}

func (l *memLink) Close() error { return nil }

// dropLink accepts envelopes and never delivers them.
type dropLink struct{}

func (dropLink) Send(envelope.Envelope) error { return nil }
func (dropLink) Close() error                 { return nil }

type waiterFunc func(ctx context.Context, names []string) error

func (f waiterFunc) Wait(ctx context.Context, names []string) error { return f(ctx, names) }

func mustDecode(t *testing.T, doc string) *playscript.Script {
	t.Helper()
	script, err := playscript.DecodeJSON([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	return script
}

// newTestInterpreter builds an interpreter with no transport. shutdowns
// counts calls to the shutdown hook.
func newTestInterpreter(t *testing.T, name string, port int, script *playscript.Script, tr *transcript) (*interpreter, *atomic.Int32) {
	t.Helper()

	dir := ensemble.NewDirectory()
	shutdowns := &atomic.Int32{}
	i := &interpreter{
		self:           envelope.Identity{Name: name, Port: port},
		cast:           trio,
		script:         script,
		directory:      dir,
		signal:         latch.NewSignal(),
		display:        scribe{tr: tr, name: name},
		bus:            event.NewBus(event.WithLogger(logging.NopLogger())),
		logger:         logging.NopLogger(),
		confirmTimeout: time.Second,
		shutdown: func() error {
			shutdowns.Add(1)
			return nil
		},
	}
	i.waiter = latch.NewPeerWaiter(dir, nil,
		latch.WithInterval(10*time.Millisecond),
		latch.WithTimeout(2*time.Second),
	)
	return i, shutdowns
}

func connect(a, b *interpreter) {
	a.directory.Register(ensemble.NewContact(b.self, &memLink{from: a, to: b}))
	b.directory.Register(ensemble.NewContact(a.self, &memLink{from: b, to: a}))
}

func TestInterpreter_TrioPerformance(t *testing.T) {
	script := mustDecode(t, trioJSON)
	tr := &transcript{}
	ann, annDown := newTestInterpreter(t, "Ann", 5000, script, tr)
	bob, bobDown := newTestInterpreter(t, "Bob", 5001, script, tr)
	cyd, cydDown := newTestInterpreter(t, "Cyd", 5002, script, tr)
	connect(ann, bob)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for n, i := range []*interpreter{ann, bob, cyd} {
		wg.Go(func() { errs[n] = i.run(ctx, script.Header.Initial) })
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Fatalf("%s run() error = %v", trio[n], err)
		}
	}

	// Bob does not pass the monologue until Ann has spoken every line.
	if tr.index(t, "Ann says Hello") > tr.index(t, "Ann says World") {
		t.Error("monologue lines out of order")
	}
	if tr.index(t, "Ann says World") > tr.index(t, "Bob <- Ann: hi") {
		t.Error("Bob advanced before the monologue finished")
	}

	// Ann's line reaches Bob before Bob speaks.
	if tr.index(t, "Ann -> Bob: hi") > tr.index(t, "Bob <- Ann: hi") {
		t.Error("incoming shown before outgoing")
	}
	if tr.index(t, "Bob <- Ann: hi") > tr.index(t, "Bob -> Ann: hey") {
		t.Error("Bob spoke before receiving Ann's line")
	}
	tr.index(t, "Ann <- Bob: hey")

	for _, line := range tr.snapshot() {
		if strings.HasPrefix(line, "Cyd") {
			t.Errorf("offstage actor displayed %q", line)
		}
	}

	for n, i := range []*interpreter{ann, bob, cyd} {
		if i.State() != StateOffstage {
			t.Errorf("%s state = %v, want offstage", trio[n], i.State())
		}
	}
	if cyd.Position() != (playscript.Position{Scene: "open", Cue: "1"}) {
		t.Errorf("Cyd left at %v, want open/1", cyd.Position())
	}
	for n, c := range []*atomic.Int32{annDown, bobDown, cydDown} {
		if c.Load() != 1 {
			t.Errorf("%s shutdown called %d times, want 1", trio[n], c.Load())
		}
	}
}

func TestInterpreter_ResponderWaitsForNextCue(t *testing.T) {
	script := mustDecode(t, trioJSON)
	tr := &transcript{}
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, tr)
	bob, _ := newTestInterpreter(t, "Bob", 5001, script, tr)
	connect(ann, bob)

	done := make(chan error, 1)
	go func() { done <- bob.run(context.Background(), script.Header.Initial) }()

	time.Sleep(50 * time.Millisecond)
	if pos := bob.Position(); pos.Cue != "1" || bob.State() != StateRunning {
		t.Fatalf("Bob at %v (%v), want running open/1", pos, bob.State())
	}

	bob.NextCue(ann.self)
	testutil.Eventually(t, time.Second, func() bool {
		return bob.Position().Cue == "2"
	}, "Bob should advance to open/2")

	// Bob waits on Ann's line, confirms it, then sends his own.
	acked := make(chan struct{})
	bob.DirectMessage(ann.self, "hi", func() error {
		close(acked)
		return nil
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Bob did not finish")
	}

	select {
	case <-acked:
	default:
		t.Error("Bob never confirmed Ann's dm")
	}
	if tr.index(t, "Bob <- Ann: hi") > tr.index(t, "Bob -> Ann: hey") {
		t.Error("incoming dm must be shown before Bob's reply")
	}
	tr.index(t, "Ann <- Bob: hey")
}

func TestInterpreter_OffstageNeverWaits(t *testing.T) {
	script := mustDecode(t, trioJSON)
	cyd, shutdowns := newTestInterpreter(t, "Cyd", 5002, script, &transcript{})
	cyd.waiter = waiterFunc(func(context.Context, []string) error {
		t.Error("offstage actor ran the peer wait")
		return nil
	})

	offstage := 0
	cyd.onOffstage = func() { offstage++ }
	var events []string
	cyd.bus.SubscribeAll(func(e event.Event) { events = append(events, e.EventType()) })

	if err := cyd.run(context.Background(), script.Header.Initial); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if offstage != 1 {
		t.Errorf("onOffstage called %d times, want 1", offstage)
	}
	if shutdowns.Load() != 1 {
		t.Errorf("shutdown called %d times, want 1", shutdowns.Load())
	}
	want := []string{event.TypeCueEntered, event.TypeActorOffstage}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestInterpreter_PeerWaitTimeout(t *testing.T) {
	script := mustDecode(t, trioJSON)
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, &transcript{})
	rounds := 0
	ann.waiter = latch.NewPeerWaiter(ann.directory, nil,
		latch.WithInterval(10*time.Millisecond),
		latch.WithTimeout(60*time.Millisecond),
		latch.WithRoundFunc(func(int, []string) { rounds++ }),
	)

	start := time.Now()
	err := ann.run(context.Background(), script.Header.Initial)
	if err == nil {
		t.Fatal("run() should fail when Bob never arrives")
	}
	if !errors.Is(err, errors.ErrPeerWaitTimeout) {
		t.Errorf("run() error = %v, want ErrPeerWaitTimeout", err)
	}
	if !errors.IsFatal(err) {
		t.Error("peer wait timeout should be fatal")
	}
	var actorErr *errors.ActorError
	if !errors.As(err, &actorErr) || actorErr.Scene != "open" || actorErr.Cue != "1" {
		t.Errorf("error should carry the cue, got %v", err)
	}
	var timeoutErr *errors.TimeoutError
	if !errors.As(err, &timeoutErr) || !slices.Equal(timeoutErr.Missing, []string{"Bob"}) {
		t.Errorf("error should name the missing peer, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("peer wait did not respect its timeout")
	}
	if rounds == 0 {
		t.Error("expected at least one failed round")
	}
}

func TestInterpreter_UnimplementedDirectiveSkipped(t *testing.T) {
	script := mustDecode(t, `{
	  "header": {"episode": 0, "act": 0, "initial": {"scene": "r", "cue": "1"}},
	  "r": {
	    "1": {"actors": {"Ann": "idle"}, "type": "readReg", "cuesTo": {"scene": "r", "cue": "2"}},
	    "2": {"actors": {}, "type": "writeFile", "cuesTo": {"scene": "r", "cue": "2"}}
	  }
	}`)
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, &transcript{})

	var skipped []event.DirectiveSkippedEvent
	ann.bus.Subscribe(event.TypeDirectiveSkipped, func(e event.Event) {
		skipped = append(skipped, e.(event.DirectiveSkippedEvent))
	})

	if err := ann.run(context.Background(), script.Header.Initial); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(skipped) != 1 || skipped[0].Directive != "readReg" {
		t.Fatalf("skipped = %+v, want one readReg", skipped)
	}
	if ann.Position().Cue != "2" || ann.State() != StateOffstage {
		t.Errorf("Ann at %v (%v), want offstage at r/2", ann.Position(), ann.State())
	}
}

func TestInterpreter_DispatchUnimplemented(t *testing.T) {
	for _, kind := range []playscript.DirectiveType{
		playscript.DirectiveEnter, playscript.DirectiveExit,
		playscript.DirectiveReadReg, playscript.DirectiveWriteReg,
		playscript.DirectiveReadFile, playscript.DirectiveWriteFile,
	} {
		t.Run(string(kind), func(t *testing.T) {
			i, _ := newTestInterpreter(t, "Ann", 5000, nil, &transcript{})
			cue := &playscript.Cue{Scene: "s", Name: "1", Type: kind}
			err := i.dispatch(context.Background(), cue, playscript.PresenceIdle, nil, i.logger)
			if !errors.Is(err, errors.ErrUnimplementedDirective) {
				t.Errorf("dispatch(%s) = %v, want ErrUnimplementedDirective", kind, err)
			}
		})
	}
}

func TestInterpreter_ConfirmationTimeoutIsNotFatal(t *testing.T) {
	script := mustDecode(t, `{
	  "header": {"episode": 1, "act": 1, "initial": {"scene": "c", "cue": "1"}},
	  "c": {
	    "1": {
	      "actors": {"Ann": "leading", "Bob": "listening"},
	      "type": "conversation",
	      "text": {"1": {"from": "Ann", "text": "anyone?", "delay": 0}},
	      "cuesTo": {"scene": "c", "cue": "2"}
	    },
	    "2": {"actors": {}, "type": "exit", "cuesTo": {"scene": "c", "cue": "2"}}
	  }
	}`)
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, &transcript{})
	var buf bytes.Buffer
	ann.logger = logging.NewWriterLogger(&buf, logging.LevelWarn)
	ann.confirmTimeout = 30 * time.Millisecond
	ann.directory.Register(ensemble.NewContact(envelope.Identity{Name: "Bob", Port: 5001}, dropLink{}))

	if err := ann.run(context.Background(), script.Header.Initial); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "confirmations timed out") {
		t.Errorf("expected a confirmation timeout warning, got %q", buf.String())
	}
}

func TestInterpreter_BroadcastSkipsUnknownContact(t *testing.T) {
	tr := &transcript{}
	ann, _ := newTestInterpreter(t, "Ann", 5000, nil, tr)
	bob, _ := newTestInterpreter(t, "Bob", 5001, nil, tr)
	connect(ann, bob)

	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, logging.LevelWarn)

	sent := ann.broadcast(envelope.NextCue(ann.self), []string{"Ghost", "Bob"}, logger)
	if !slices.Equal(sent, []string{"Bob"}) {
		t.Errorf("broadcast() = %v, want [Bob]", sent)
	}
	if !strings.Contains(buf.String(), "unknown contact") {
		t.Errorf("expected unknown contact warning, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"severity":"warning"`) {
		t.Errorf("skipped recipient should be logged as a warning, got %q", buf.String())
	}
	if bob.signal.Pending(latch.KindNextCue) != 1 {
		t.Error("Bob should have received nextCue")
	}
}

func TestInterpreter_CanceledWhileWaiting(t *testing.T) {
	script := mustDecode(t, trioJSON)
	tr := &transcript{}
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, tr)
	bob, _ := newTestInterpreter(t, "Bob", 5001, script, tr)
	connect(ann, bob)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bob.run(ctx, script.Header.Initial) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, errors.ErrCanceled) {
			t.Errorf("run() error = %v, want ErrCanceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

func TestInterpreter_Others(t *testing.T) {
	i, _ := newTestInterpreter(t, "Ann", 5000, nil, &transcript{})
	cue := &playscript.Cue{Presences: map[string]playscript.Presence{
		"Ann": playscript.PresenceLeading,
		"Bob": playscript.PresenceIdle,
		"Cyd": playscript.PresenceListening,
	}}

	onstage, participating := i.others(cue)
	if !slices.Equal(onstage, []string{"Bob", "Cyd"}) {
		t.Errorf("onstage = %v, want [Bob Cyd]", onstage)
	}
	if !slices.Equal(participating, []string{"Cyd"}) {
		t.Errorf("participating = %v, want [Cyd]", participating)
	}

	// Omitted participants are offstage.
	delete(cue.Presences, "Cyd")
	onstage, _ = i.others(cue)
	if !slices.Equal(onstage, []string{"Bob"}) {
		t.Errorf("onstage = %v, want [Bob]", onstage)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAwaitingBarrier, "awaiting_barrier"},
		{StateRunning, "running"},
		{StateOffstage, "offstage"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// lateLink acknowledges the nth dm after delays[n-1] and never delivers
// the dm itself.
type lateLink struct {
	to     *interpreter
	from   envelope.Identity
	delays []time.Duration

	mu    sync.Mutex
	sent  int
	acked []int
}

func (l *lateLink) Send(e envelope.Envelope) error {
	if e.Type != envelope.MessageDM {
		return nil
	}
	l.mu.Lock()
	l.sent++
	n := l.sent
	l.mu.Unlock()

	time.AfterFunc(l.delays[n-1], func() {
		l.mu.Lock()
		l.acked = append(l.acked, n)
		l.mu.Unlock()
		l.to.Confirmation(l.from, fmt.Sprintf("dm-%d", n))
	})
	return nil
}

func (l *lateLink) Close() error { return nil }

func (l *lateLink) ackedLines() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.acked)
}

func TestInterpreter_LateConfirmationDoesNotSatisfyNextLine(t *testing.T) {
	script := mustDecode(t, `{
	  "header": {"episode": 1, "act": 1, "initial": {"scene": "c", "cue": "1"}},
	  "c": {
	    "1": {
	      "actors": {"Ann": "leading", "Bob": "listening"},
	      "type": "conversation",
	      "text": {
	        "1": {"from": "Ann", "text": "first", "delay": 0},
	        "2": {"from": "Ann", "text": "second", "delay": 0}
	      },
	      "cuesTo": {"scene": "c", "cue": "2"}
	    },
	    "2": {"actors": {}, "type": "exit", "cuesTo": {"scene": "c", "cue": "2"}}
	  }
	}`)
	ann, _ := newTestInterpreter(t, "Ann", 5000, script, &transcript{})
	var buf bytes.Buffer
	ann.logger = logging.NewWriterLogger(&buf, logging.LevelWarn)
	ann.confirmTimeout = 150 * time.Millisecond

	// The first ack misses its window and lands while the second line waits.
	bob := envelope.Identity{Name: "Bob", Port: 5001}
	link := &lateLink{to: ann, from: bob, delays: []time.Duration{200 * time.Millisecond, 100 * time.Millisecond}}
	ann.directory.Register(ensemble.NewContact(bob, link))

	if err := ann.run(context.Background(), script.Header.Initial); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if got := link.ackedLines(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("run() returned after acks %v, want [1 2]", got)
	}
	if n := strings.Count(buf.String(), "confirmations timed out"); n != 1 {
		t.Errorf("timeout warnings = %d, want 1 (first line only):\n%s", n, buf.String())
	}
	if ann.signal.Pending(latch.KindConfirmation) != 0 {
		t.Errorf("Pending(confirmation) = %d, want 0", ann.signal.Pending(latch.KindConfirmation))
	}
}

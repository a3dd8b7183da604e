package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "cue.entered", "contact.registered")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Fielder is implemented by events that can describe themselves as
// alternating key-value pairs for structured logging.
type Fielder interface {
	Fields() []any
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers.
const (
	TypeTransportListening = "transport.listening"
	TypeContactRegistered  = "contact.registered"
	TypeContactRemoved     = "contact.removed"
	TypeHandshakeFailed    = "handshake.failed"
	TypeProtocolViolation  = "protocol.violation"
	TypeBarrierOpened      = "barrier.opened"
	TypePeerWaitRound      = "peer_wait.round"
	TypeCueEntered         = "cue.entered"
	TypeLineSpoken         = "line.spoken"
	TypeMessageSent        = "message.sent"
	TypeMessageReceived    = "message.received"
	TypeDirectiveSkipped   = "directive.skipped"
	TypeActorOffstage      = "actor.offstage"
)

// -----------------------------------------------------------------------------
// Transport Events
// -----------------------------------------------------------------------------

// TransportListeningEvent is emitted when the listener is bound.
type TransportListeningEvent struct {
	baseEvent
	Actor string
	Addr  string
}

// NewTransportListeningEvent creates a TransportListeningEvent.
func NewTransportListeningEvent(actor, addr string) TransportListeningEvent {
	return TransportListeningEvent{
		baseEvent: newBaseEvent(TypeTransportListening),
		Actor:     actor,
		Addr:      addr,
	}
}

// Fields implements Fielder.
func (e TransportListeningEvent) Fields() []any {
	return []any{"actor", e.Actor, "addr", e.Addr}
}

// ContactRegisteredEvent is emitted when a handshake adds a peer to the
// directory.
type ContactRegisteredEvent struct {
	baseEvent
	Actor string // Local actor
	Peer  string // Registered peer name
	Port  int    // Registered peer port
}

// NewContactRegisteredEvent creates a ContactRegisteredEvent.
func NewContactRegisteredEvent(actor, peer string, port int) ContactRegisteredEvent {
	return ContactRegisteredEvent{
		baseEvent: newBaseEvent(TypeContactRegistered),
		Actor:     actor,
		Peer:      peer,
		Port:      port,
	}
}

// Fields implements Fielder.
func (e ContactRegisteredEvent) Fields() []any {
	return []any{"actor", e.Actor, "peer", e.Peer, "port", e.Port}
}

// ContactRemovedEvent is emitted when a peer's channel closes.
type ContactRemovedEvent struct {
	baseEvent
	Actor string
	Peer  string
	Port  int
}

// NewContactRemovedEvent creates a ContactRemovedEvent.
func NewContactRemovedEvent(actor, peer string, port int) ContactRemovedEvent {
	return ContactRemovedEvent{
		baseEvent: newBaseEvent(TypeContactRemoved),
		Actor:     actor,
		Peer:      peer,
		Port:      port,
	}
}

// Fields implements Fielder.
func (e ContactRemovedEvent) Fields() []any {
	return []any{"actor", e.Actor, "peer", e.Peer, "port", e.Port}
}

// HandshakeFailedEvent is emitted when an outbound roll-call does not complete.
type HandshakeFailedEvent struct {
	baseEvent
	Actor string
	Port  int
	Err   error
}

// NewHandshakeFailedEvent creates a HandshakeFailedEvent.
func NewHandshakeFailedEvent(actor string, port int, err error) HandshakeFailedEvent {
	return HandshakeFailedEvent{
		baseEvent: newBaseEvent(TypeHandshakeFailed),
		Actor:     actor,
		Port:      port,
		Err:       err,
	}
}

// Fields implements Fielder.
func (e HandshakeFailedEvent) Fields() []any {
	return []any{"actor", e.Actor, "port", e.Port, "error", errString(e.Err)}
}

// ProtocolViolationEvent is emitted when a peer sends a message the
// handshake state does not allow.
type ProtocolViolationEvent struct {
	baseEvent
	Actor       string
	Peer        string // Claimed sender, possibly empty
	MessageType string
	Reason      string
}

// NewProtocolViolationEvent creates a ProtocolViolationEvent.
func NewProtocolViolationEvent(actor, peer, messageType, reason string) ProtocolViolationEvent {
	return ProtocolViolationEvent{
		baseEvent:   newBaseEvent(TypeProtocolViolation),
		Actor:       actor,
		Peer:        peer,
		MessageType: messageType,
		Reason:      reason,
	}
}

// Fields implements Fielder.
func (e ProtocolViolationEvent) Fields() []any {
	return []any{"actor", e.Actor, "peer", e.Peer, "message_type", e.MessageType, "reason", e.Reason}
}

// -----------------------------------------------------------------------------
// Synchronization Events
// -----------------------------------------------------------------------------

// BarrierOpenedEvent is emitted when every configured port has handshaken.
type BarrierOpenedEvent struct {
	baseEvent
	Actor   string
	Waited  time.Duration
	Contact int // Contacts registered at the time the barrier opened
}

// NewBarrierOpenedEvent creates a BarrierOpenedEvent.
func NewBarrierOpenedEvent(actor string, waited time.Duration, contacts int) BarrierOpenedEvent {
	return BarrierOpenedEvent{
		baseEvent: newBaseEvent(TypeBarrierOpened),
		Actor:     actor,
		Waited:    waited,
		Contact:   contacts,
	}
}

// Fields implements Fielder.
func (e BarrierOpenedEvent) Fields() []any {
	return []any{"actor", e.Actor, "waited", e.Waited.String(), "contacts", e.Contact}
}

// PeerWaitRoundEvent is emitted for each failed round of a peer wait.
type PeerWaitRoundEvent struct {
	baseEvent
	Actor   string
	Scene   string
	Cue     string
	Round   int
	Missing []string
}

// NewPeerWaitRoundEvent creates a PeerWaitRoundEvent.
func NewPeerWaitRoundEvent(actor, scene, cue string, round int, missing []string) PeerWaitRoundEvent {
	return PeerWaitRoundEvent{
		baseEvent: newBaseEvent(TypePeerWaitRound),
		Actor:     actor,
		Scene:     scene,
		Cue:       cue,
		Round:     round,
		Missing:   missing,
	}
}

// Fields implements Fielder.
func (e PeerWaitRoundEvent) Fields() []any {
	return []any{"actor", e.Actor, "scene", e.Scene, "cue", e.Cue, "round", e.Round, "missing", e.Missing}
}

// -----------------------------------------------------------------------------
// Interpreter Events
// -----------------------------------------------------------------------------

// CueEnteredEvent is emitted when the interpreter moves to a cue.
type CueEnteredEvent struct {
	baseEvent
	Actor     string
	Scene     string
	Cue       string
	Presence  string // Resolved presence of the local actor
	Directive string
	Onstage   []string
}

// NewCueEnteredEvent creates a CueEnteredEvent.
func NewCueEnteredEvent(actor, scene, cue, presence, directive string, onstage []string) CueEnteredEvent {
	return CueEnteredEvent{
		baseEvent: newBaseEvent(TypeCueEntered),
		Actor:     actor,
		Scene:     scene,
		Cue:       cue,
		Presence:  presence,
		Directive: directive,
		Onstage:   onstage,
	}
}

// Fields implements Fielder.
func (e CueEnteredEvent) Fields() []any {
	return []any{
		"actor", e.Actor, "scene", e.Scene, "cue", e.Cue,
		"presence", e.Presence, "directive", e.Directive, "onstage", e.Onstage,
	}
}

// LineSpokenEvent is emitted for each monologue line the actor speaks.
type LineSpokenEvent struct {
	baseEvent
	Actor string
	Scene string
	Cue   string
	Index int // 1-based line index
	Text  string
}

// NewLineSpokenEvent creates a LineSpokenEvent.
func NewLineSpokenEvent(actor, scene, cue string, index int, text string) LineSpokenEvent {
	return LineSpokenEvent{
		baseEvent: newBaseEvent(TypeLineSpoken),
		Actor:     actor,
		Scene:     scene,
		Cue:       cue,
		Index:     index,
		Text:      text,
	}
}

// Fields implements Fielder.
func (e LineSpokenEvent) Fields() []any {
	return []any{"actor", e.Actor, "scene", e.Scene, "cue", e.Cue, "line", e.Index, "text", e.Text}
}

// MessageSentEvent is emitted when the actor sends a conversation line.
type MessageSentEvent struct {
	baseEvent
	Actor string
	To    []string
	Text  string
}

// NewMessageSentEvent creates a MessageSentEvent.
func NewMessageSentEvent(actor string, to []string, text string) MessageSentEvent {
	return MessageSentEvent{
		baseEvent: newBaseEvent(TypeMessageSent),
		Actor:     actor,
		To:        to,
		Text:      text,
	}
}

// Fields implements Fielder.
func (e MessageSentEvent) Fields() []any {
	return []any{"actor", e.Actor, "to", e.To, "text", e.Text}
}

// MessageReceivedEvent is emitted when a dm arrives from a peer.
type MessageReceivedEvent struct {
	baseEvent
	Actor string
	From  string
	Text  string
}

// NewMessageReceivedEvent creates a MessageReceivedEvent.
func NewMessageReceivedEvent(actor, from, text string) MessageReceivedEvent {
	return MessageReceivedEvent{
		baseEvent: newBaseEvent(TypeMessageReceived),
		Actor:     actor,
		From:      from,
		Text:      text,
	}
}

// Fields implements Fielder.
func (e MessageReceivedEvent) Fields() []any {
	return []any{"actor", e.Actor, "from", e.From, "text", e.Text}
}

// DirectiveSkippedEvent is emitted when a cue's directive kind has no
// behavior and the interpreter follows the transition directly.
type DirectiveSkippedEvent struct {
	baseEvent
	Actor     string
	Scene     string
	Cue       string
	Directive string
}

// NewDirectiveSkippedEvent creates a DirectiveSkippedEvent.
func NewDirectiveSkippedEvent(actor, scene, cue, directive string) DirectiveSkippedEvent {
	return DirectiveSkippedEvent{
		baseEvent: newBaseEvent(TypeDirectiveSkipped),
		Actor:     actor,
		Scene:     scene,
		Cue:       cue,
		Directive: directive,
	}
}

// Fields implements Fielder.
func (e DirectiveSkippedEvent) Fields() []any {
	return []any{"actor", e.Actor, "scene", e.Scene, "cue", e.Cue, "directive", e.Directive}
}

// ActorOffstageEvent is emitted when the actor's presence resolves to
// offstage and its interpreter stops.
type ActorOffstageEvent struct {
	baseEvent
	Actor string
	Scene string
	Cue   string
}

// NewActorOffstageEvent creates an ActorOffstageEvent.
func NewActorOffstageEvent(actor, scene, cue string) ActorOffstageEvent {
	return ActorOffstageEvent{
		baseEvent: newBaseEvent(TypeActorOffstage),
		Actor:     actor,
		Scene:     scene,
		Cue:       cue,
	}
}

// Fields implements Fielder.
func (e ActorOffstageEvent) Fields() []any {
	return []any{"actor", e.Actor, "scene", e.Scene, "cue", e.Cue}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

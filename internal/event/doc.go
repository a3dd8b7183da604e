// Package event provides a pub-sub event bus for decoupled communication
// between the transport, the cue interpreter and the display.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Fielder]: Optional interface for events that render as structured log fields
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Transport:
//   - [TransportListeningEvent], [ContactRegisteredEvent], [ContactRemovedEvent]
//   - [HandshakeFailedEvent], [ProtocolViolationEvent]
//
// Synchronization:
//   - [BarrierOpenedEvent], [PeerWaitRoundEvent]
//
// Interpreter:
//   - [CueEnteredEvent], [LineSpokenEvent], [MessageSentEvent], [MessageReceivedEvent]
//   - [DirectiveSkippedEvent], [ActorOffstageEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
// Handlers run on network goroutines as well as the interpreter, so they
// must not block.
//
// # Basic Usage
//
//	bus := event.NewBus(event.WithLogger(logger))
//
//	bus.Subscribe(event.TypeCueEntered, func(e event.Event) {
//	    entered := e.(event.CueEnteredEvent)
//	    fmt.Println(entered.Scene, entered.Cue)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(recorder.Record)
//
//	bus.Publish(event.NewActorOffstageEvent("Lexa", "finale", "1"))
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action", for example
// contact.registered, cue.entered and actor.offstage.
package event

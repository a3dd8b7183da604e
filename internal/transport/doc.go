// Package transport establishes the duplex channels between actors.
//
// Every actor listens on its own port and dials every other configured
// port. Each dial sends a roll-call carrying the local identity and waits
// for the peer's roll-call response; only then is the peer registered in
// the [ensemble.Directory] and its port counted at the startup
// [latch.Barrier]. The local port counts immediately without a socket.
//
// # Channel Roles
//
// A pair of actors holds two TCP connections, one dialed by each side.
// The dialed connection backs the [ensemble.Contact] and carries requests
// outward (dm, nextCue) and confirmations back. The accepted connection
// carries the peer's requests inward and this actor's confirmations out.
// A roll-call received from a peer with no contact yet triggers a dial
// back, so one side starting late still ends with both contacts.
//
// Content received on an accepted connection before its roll-call is a
// protocol error: it is logged, published as a
// [event.ProtocolViolationEvent], and dropped.
//
// # Retries
//
// The transport never retries on its own. [Transport.Redial] dials every
// configured port that still has no contact; the peer wait calls it after
// repeated failed rounds.
package transport

// Package envelope defines the messages actors exchange and the framing used
// to carry them over a stream connection.
//
// Every frame is a 4-byte big-endian length followed by that many bytes of
// JSON. One frame holds exactly one [Envelope].
package envelope

import (
	"encoding/json"
	"fmt"
)

// Identity names a participant. Name and Port are fixed for the lifetime of
// a process; Color is carried for display only.
type Identity struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Port  int    `json:"port"`
}

// String renders the identity as "name@port".
func (id Identity) String() string {
	return fmt.Sprintf("%s@%d", id.Name, id.Port)
}

// Same reports whether two identities name the same participant.
// Color is presentation and is ignored.
func (id Identity) Same(other Identity) bool {
	return id.Name == other.Name && id.Port == other.Port
}

// MessageType identifies the kind of envelope.
type MessageType string

const (
	// MessageRollCall is the handshake. A request carries the sender's
	// identity in Source; the response carries no payload.
	MessageRollCall MessageType = "rollcall"

	// MessageDM carries a line of dialogue as text.
	MessageDM MessageType = "dm"

	// MessageConfirmation acknowledges a dm. The payload is a short tag.
	MessageConfirmation MessageType = "confirmation"

	// MessageNextCue releases a peer waiting on a monologue. No payload.
	MessageNextCue MessageType = "nextCue"
)

var validMessageTypes = map[MessageType]bool{
	MessageRollCall:     true,
	MessageDM:           true,
	MessageConfirmation: true,
	MessageNextCue:      true,
}

// Valid returns true if t is a known message type.
func (t MessageType) Valid() bool {
	return validMessageTypes[t]
}

// Envelope is one message on the wire. Envelopes are values; once sent they
// are never modified.
type Envelope struct {
	Source  Identity    `json:"source"`
	Type    MessageType `json:"type"`
	Payload string      `json:"payload,omitempty"`
}

// RollCall builds a roll-call request or response from source.
func RollCall(source Identity) Envelope {
	return Envelope{Source: source, Type: MessageRollCall}
}

// DM builds a direct message carrying text.
func DM(source Identity, text string) Envelope {
	return Envelope{Source: source, Type: MessageDM, Payload: text}
}

// Confirmation builds an acknowledgement carrying tag.
func Confirmation(source Identity, tag string) Envelope {
	return Envelope{Source: source, Type: MessageConfirmation, Payload: tag}
}

// NextCue builds a signal that advances a waiting peer.
func NextCue(source Identity) Envelope {
	return Envelope{Source: source, Type: MessageNextCue}
}

// Validate checks the fields every envelope must carry.
func (e Envelope) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("envelope: unknown message type %q", e.Type)
	}
	if e.Source.Name == "" {
		return fmt.Errorf("envelope: source name is required")
	}
	if e.Source.Port <= 0 || e.Source.Port > 65535 {
		return fmt.Errorf("envelope: source port %d out of range", e.Source.Port)
	}
	return nil
}

// Marshal encodes the envelope body without framing.
func (e Envelope) Marshal() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// Unmarshal decodes an envelope body produced by Marshal.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("envelope: decode: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

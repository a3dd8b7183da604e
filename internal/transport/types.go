package transport

import (
	"time"

	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/event"
	"github.com/qaznotquaz/aLexA/internal/logging"
)

const (
	defaultHost             = "localhost"
	defaultDialTimeout      = 2 * time.Second
	defaultHandshakeTimeout = 5 * time.Second
)

// Handler receives content delivered by peers. Calls arrive on network
// goroutines and must not block on the interpreter.
type Handler interface {
	// DirectMessage delivers a dm. ack sends the confirmation back to
	// the sender.
	DirectMessage(from envelope.Identity, text string, ack func() error)
	// NextCue delivers a leader's signal to advance.
	NextCue(from envelope.Identity)
	// Confirmation delivers a peer's acknowledgement of a dm this actor sent.
	Confirmation(from envelope.Identity, tag string)
}

// Config describes one actor's place in the network.
type Config struct {
	Self  envelope.Identity
	Ports []int // Every configured port, including Self.Port

	Host             string
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the transport logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithBus sets the bus that receives transport events.
func WithBus(b *event.Bus) Option {
	return func(t *Transport) {
		t.bus = b
	}
}

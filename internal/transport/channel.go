package transport

import (
	"net"
	"sync"
	"time"

	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
)

// channel is one framed TCP connection. Writes are serialized by the
// envelope writer; reads belong to a single goroutine.
type channel struct {
	conn   net.Conn
	reader *envelope.Reader
	writer *envelope.Writer

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

func newChannel(conn net.Conn) *channel {
	return &channel{
		conn:   conn,
		reader: envelope.NewReader(conn),
		writer: envelope.NewWriter(conn),
		closed: make(chan struct{}),
	}
}

// Send implements ensemble.Sender.
func (c *channel) Send(e envelope.Envelope) error {
	select {
	case <-c.closed:
		return errors.NewTransportError("send on closed channel", errors.ErrTransportClosed).
			WithPort(remotePort(c.conn))
	default:
	}
	if err := c.writer.Write(e); err != nil {
		return errors.NewTransportError("send "+string(e.Type), err).WithPort(remotePort(c.conn))
	}
	return nil
}

// Close implements ensemble.Sender. It is idempotent.
func (c *channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *channel) read() (envelope.Envelope, error) {
	return c.reader.Read()
}

// readWithin reads one envelope under a deadline and clears it afterwards.
func (c *channel) readWithin(d time.Duration) (envelope.Envelope, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return envelope.Envelope{}, err
	}
	e, err := c.reader.Read()
	if clearErr := c.conn.SetReadDeadline(time.Time{}); err == nil && clearErr != nil {
		return envelope.Envelope{}, clearErr
	}
	return e, err
}

func (c *channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func remotePort(conn net.Conn) int {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

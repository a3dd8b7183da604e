package envelope

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// headerSize is the length prefix in bytes.
const headerSize = 4

// DefaultMaxFrame bounds a single frame so that a corrupt length prefix
// cannot make a reader allocate without limit.
const DefaultMaxFrame = 16 << 20

// Encode writes one framed envelope to w.
func Encode(w io.Writer, e Envelope) error {
	body, err := e.Marshal()
	if err != nil {
		return err
	}

	frame := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[headerSize:], body)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("envelope: write frame: %w", err)
	}
	return nil
}

// Writer serializes framed envelopes onto a stream. It is safe for
// concurrent use; each Write emits one whole frame.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes e as one frame.
func (w *Writer) Write(e Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Encode(w.w, e)
}

// Reader reads framed envelopes from a stream. It is not safe for
// concurrent use; a connection has exactly one reading goroutine.
type Reader struct {
	r        *bufio.Reader
	maxFrame int
}

// NewReader wraps r with the default frame limit.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r), maxFrame: DefaultMaxFrame}
}

// SetMaxFrame changes the largest accepted frame body. Zero or negative
// values are ignored.
func (r *Reader) SetMaxFrame(n int) {
	if n > 0 {
		r.maxFrame = n
	}
}

// Read returns the next envelope. io.EOF is returned unwrapped when the
// stream ends cleanly between frames.
func (r *Reader) Read() (Envelope, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.EOF {
			return Envelope{}, io.EOF
		}
		return Envelope{}, fmt.Errorf("envelope: read header: %w", err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if int64(size) > int64(r.maxFrame) {
		return Envelope{}, fmt.Errorf("envelope: frame of %d bytes exceeds limit %d", size, r.maxFrame)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return Envelope{}, fmt.Errorf("envelope: read body: %w", err)
	}
	return Unmarshal(body)
}

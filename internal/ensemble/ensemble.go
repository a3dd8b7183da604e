// Package ensemble keeps the live registry of discovered peers.
//
// A [Directory] maps each remote actor's identity to a [Contact], unique by
// name and by port. The transport layer is the only writer; the interpreter
// reads it to address messages and to wait for peers. All access goes
// through a single mutex.
package ensemble

import (
	"slices"
	"sync"

	"github.com/qaznotquaz/aLexA/internal/envelope"
	"github.com/qaznotquaz/aLexA/internal/errors"
)

// Sender is the live half of a channel to a peer.
type Sender interface {
	Send(e envelope.Envelope) error
	Close() error
}

// Contact is a remote actor's identity plus the channel used to reach it.
type Contact struct {
	envelope.Identity
	channel Sender
}

// NewContact binds id to a channel.
func NewContact(id envelope.Identity, channel Sender) *Contact {
	return &Contact{Identity: id, channel: channel}
}

// Send delivers e over the contact's channel.
func (c *Contact) Send(e envelope.Envelope) error {
	if c.channel == nil {
		return errors.NewTransportError("contact has no channel", errors.ErrTransportClosed).
			WithPeer(c.Name).WithPort(c.Port)
	}
	return c.channel.Send(e)
}

// Channel returns the underlying channel.
func (c *Contact) Channel() Sender {
	return c.channel
}

// Result reports the outcome of a registration.
type Result int

const (
	// Added means the contact is now in the directory.
	Added Result = iota
	// AlreadyPresent means the name or port was already registered; the
	// existing entry is kept.
	AlreadyPresent
)

// String returns the string representation of the result.
func (r Result) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already_present"
	default:
		return "unknown"
	}
}

// Directory is the contact registry of one actor. The zero value is not
// usable; call [NewDirectory].
type Directory struct {
	mu      sync.Mutex
	byName  map[string]*Contact
	byPort  map[int]*Contact
	changed chan struct{}
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byName:  make(map[string]*Contact),
		byPort:  make(map[int]*Contact),
		changed: make(chan struct{}),
	}
}

// Register adds c unless its name or port is already known. It never
// overwrites an existing entry.
func (d *Directory) Register(c *Contact) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[c.Name]; ok {
		return AlreadyPresent
	}
	if _, ok := d.byPort[c.Port]; ok {
		return AlreadyPresent
	}
	d.byName[c.Name] = c
	d.byPort[c.Port] = c
	d.notifyLocked()
	return Added
}

// Remove drops c if it is the registered entry for its name. A stale
// contact whose slot was already reused is ignored.
func (d *Directory) Remove(c *Contact) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.byName[c.Name]
	if !ok || current != c {
		return false
	}
	delete(d.byName, c.Name)
	delete(d.byPort, c.Port)
	d.notifyLocked()
	return true
}

// FindByName returns the contact registered under name, or nil.
func (d *Directory) FindByName(name string) *Contact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byName[name]
}

// FindByPort returns the contact registered on port, or nil.
func (d *Directory) FindByPort(port int) *Contact {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byPort[port]
}

// CollidesWithSelf reports whether a registered peer already holds this
// actor's own name or port.
func (d *Directory) CollidesWithSelf(name string, port int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byName[name]; ok {
		return true
	}
	_, ok := d.byPort[port]
	return ok
}

// Missing returns the names from want that have no contact, in the order given.
func (d *Directory) Missing(want []string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var missing []string
	for _, name := range want {
		if _, ok := d.byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Names returns the registered names in sorted order.
func (d *Directory) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered contacts.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byName)
}

// Changed returns a channel that is closed at the next registration or
// removal. Callers fetch a fresh channel after each wake.
func (d *Directory) Changed() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.changed
}

// Clear removes every contact and returns them so the caller can close
// their channels.
func (d *Directory) Clear() []*Contact {
	d.mu.Lock()
	defer d.mu.Unlock()

	contacts := make([]*Contact, 0, len(d.byName))
	for _, c := range d.byName {
		contacts = append(contacts, c)
	}
	d.byName = make(map[string]*Contact)
	d.byPort = make(map[int]*Contact)
	if len(contacts) > 0 {
		d.notifyLocked()
	}
	return contacts
}

// notifyLocked wakes every waiter on Changed. Caller holds d.mu.
func (d *Directory) notifyLocked() {
	close(d.changed)
	d.changed = make(chan struct{})
}

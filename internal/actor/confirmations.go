package actor

import (
	"slices"
	"sync"
)

// confirmations tracks which peers still owe an acknowledgement for the
// line being spoken. Peers that missed the confirm timeout owe a late
// acknowledgement, which is dropped when it arrives so that it cannot
// count toward a later line. Channels are ordered, so a peer's late
// acknowledgement always precedes its acknowledgement of the next line.
//
// The zero value is ready to use.
type confirmations struct {
	mu       sync.Mutex
	awaiting map[string]bool
	late     map[string]int
}

// expect starts a new line addressed to names.
func (c *confirmations) expect(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.awaiting = make(map[string]bool, len(names))
	for _, name := range names {
		c.awaiting[name] = true
	}
}

// settle forgets every awaited peer the line was not delivered to.
func (c *confirmations) settle(sent []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delivered := make(map[string]bool, len(sent))
	for _, name := range sent {
		delivered[name] = true
	}
	for name := range c.awaiting {
		if !delivered[name] {
			delete(c.awaiting, name)
		}
	}
}

// accept reports whether an acknowledgement from name confirms the
// current line.
func (c *confirmations) accept(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.late[name] > 0 {
		c.late[name]--
		return false
	}
	if c.awaiting[name] {
		delete(c.awaiting, name)
		return true
	}
	return false
}

// abandon gives up on the current line and returns, sorted, the peers
// that now owe one late acknowledgement.
func (c *confirmations) abandon() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.late == nil {
		c.late = make(map[string]int)
	}
	owed := make([]string, 0, len(c.awaiting))
	for name := range c.awaiting {
		c.late[name]++
		owed = append(owed, name)
	}
	c.awaiting = nil
	slices.Sort(owed)
	return owed
}

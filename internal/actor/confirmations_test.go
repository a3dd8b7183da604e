package actor

import (
	"slices"
	"testing"
)

func TestConfirmations_AcceptsEachAwaitedPeerOnce(t *testing.T) {
	var c confirmations
	c.expect([]string{"Bob", "Cyd"})

	if !c.accept("Bob") {
		t.Error("first ack from Bob should count")
	}
	if c.accept("Bob") {
		t.Error("second ack from Bob for the same line should not count")
	}
	if c.accept("Ann") {
		t.Error("ack from a peer the line was not sent to should not count")
	}
	if !c.accept("Cyd") {
		t.Error("ack from Cyd should count")
	}
}

func TestConfirmations_SettleDropsUndelivered(t *testing.T) {
	var c confirmations
	c.expect([]string{"Bob", "Cyd"})
	c.settle([]string{"Bob"})

	if c.accept("Cyd") {
		t.Error("Cyd was never reached, its ack should not count")
	}
	if owed := c.abandon(); !slices.Equal(owed, []string{"Bob"}) {
		t.Errorf("abandon() = %v, want [Bob]", owed)
	}
}

func TestConfirmations_LateAckDoesNotCountForNextLine(t *testing.T) {
	var c confirmations

	c.expect([]string{"Bob"})
	if owed := c.abandon(); !slices.Equal(owed, []string{"Bob"}) {
		t.Fatalf("abandon() = %v, want [Bob]", owed)
	}

	c.expect([]string{"Bob"})
	if c.accept("Bob") {
		t.Error("Bob's late ack for the first line was counted for the second")
	}
	if !c.accept("Bob") {
		t.Error("Bob's ack for the second line should count")
	}
}

func TestConfirmations_ZeroValue(t *testing.T) {
	var c confirmations
	if c.accept("Bob") {
		t.Error("nothing is awaited on a zero value")
	}
	if owed := c.abandon(); len(owed) != 0 {
		t.Errorf("abandon() = %v, want none", owed)
	}
}

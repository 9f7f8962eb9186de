package zone

import "github.com/bits-and-blooms/bitset"

// Tracker records emission state for one assembly run.
//
// The active set guards recursive emission (table cells, notes, groups):
// Enter marks an id immediately before emitting it and Leave clears it
// immediately after, so a nested reference back to it is skipped. The sent
// set makes shapes, notes and cell texts go out once however many lists,
// groups or tables mention them.
type Tracker struct {
	active *bitset.BitSet
	sent   *bitset.BitSet
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		active: bitset.New(64),
		sent:   bitset.New(64),
	}
}

// Enter marks id active. It returns false if id is already being
// emitted; the caller must then skip it and not call Leave.
func (t *Tracker) Enter(id int) bool {
	if id < 0 || t.active.Test(uint(id)) {
		return false
	}
	t.active.Set(uint(id))
	return true
}

// Leave clears the active mark set by Enter
func (t *Tracker) Leave(id int) {
	if id >= 0 {
		t.active.Clear(uint(id))
	}
}

// Active reports whether id is being emitted
func (t *Tracker) Active(id int) bool {
	return id >= 0 && t.active.Test(uint(id))
}

// MarkSent records id as emitted. It returns false if it already was.
func (t *Tracker) MarkSent(id int) bool {
	if id < 0 || t.sent.Test(uint(id)) {
		return false
	}
	t.sent.Set(uint(id))
	return true
}

// Sent reports whether id has been emitted
func (t *Tracker) Sent(id int) bool {
	return id >= 0 && t.sent.Test(uint(id))
}

// SentCount returns the number of ids marked sent
func (t *Tracker) SentCount() int {
	return int(t.sent.Count())
}

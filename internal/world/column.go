package world

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
)

// Sender is the narrow slice of session.Client the world package needs:
// enough to push a serialized packet without importing session (which
// would create an import cycle, since session has no reason to depend on
// world). *session.Client satisfies this structurally.
type Sender interface {
	SendPacket(pkt *protocol.Packet) error
}

// pendingAction is queued on a Column until it reaches requiredState, then
// run and discarded (spec §3 "pending-action queue").
type pendingAction struct {
	requiredState State
	thunk         func()
}

// MutationVeto is called before a block mutation commits; returning false
// vetoes the write.
type MutationVeto func(id ColumnID, x, y, z int, old, next Block) bool

// Column is the 16×16×256 voxel stack at a fixed (x,z) in one dimension.
type Column struct {
	ID ColumnID

	mu sync.Mutex

	blocks [blockCount]Block
	biomes [biomeCount]byte

	state       State
	targetState State
	populated   bool
	dirty       bool

	subscribers map[Sender]struct{}
	interest    atomic.Int32

	pending []pendingAction
}

func newColumn(id ColumnID) *Column {
	return &Column{
		ID:          id,
		state:       Loading,
		targetState: Generated,
		subscribers: make(map[Sender]struct{}),
	}
}

// State returns the column's current lifecycle state.
func (c *Column) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dirty reports whether the column has unsaved mutations.
func (c *Column) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Interest returns the current non-subscriber hold count.
func (c *Column) Interest() int32 { return c.interest.Load() }

// SubscriberCount returns the number of subscribed clients.
func (c *Column) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}

// Unloadable reports the spec §3 eviction invariant: no subscribers, no
// interest, and clean.
func (c *Column) Unloadable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers) == 0 && c.interest.Load() == 0 && !c.dirty
}

func (c *Column) advanceState(next State) {
	c.mu.Lock()
	if next < c.state {
		c.mu.Unlock()
		panic(fmt.Sprintf("world: column %s state went backwards %s -> %s", c.ID, c.state, next))
	}
	c.state = next
	if next == Populated {
		c.populated = true
	}
	var ready []pendingAction
	var remaining []pendingAction
	for _, a := range c.pending {
		if a.requiredState <= next {
			ready = append(ready, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	c.pending = remaining
	c.mu.Unlock()

	for _, a := range ready {
		a.thunk()
	}
}

func (c *Column) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

func (c *Column) clearDirty() {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
}

// GetBlock reads the block at the given in-column coordinates.
func (c *Column) GetBlock(x, y, z int) (Block, error) {
	if !inBounds(x, y, z) {
		return Block{}, fmt.Errorf("world: coordinate (%d,%d,%d) out of bounds", x, y, z)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[blockIndex(x, y, z)], nil
}

// setBlockLocal writes the block cell and marks dirty; it does not
// broadcast — the Store does that since it also owns the veto hook and
// subscriber packet fan-out.
func (c *Column) setBlockLocal(x, y, z int, b Block) (Block, error) {
	if !inBounds(x, y, z) {
		return Block{}, fmt.Errorf("world: coordinate (%d,%d,%d) out of bounds", x, y, z)
	}
	c.mu.Lock()
	old := c.blocks[blockIndex(x, y, z)]
	c.blocks[blockIndex(x, y, z)] = b
	c.dirty = true
	c.mu.Unlock()
	return old, nil
}

func (c *Column) addSubscriber(s Sender) {
	c.mu.Lock()
	c.subscribers[s] = struct{}{}
	c.mu.Unlock()
}

func (c *Column) removeSubscriber(s Sender) {
	c.mu.Lock()
	delete(c.subscribers, s)
	c.mu.Unlock()
}

func (c *Column) snapshotSubscribers() []Sender {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sender, 0, len(c.subscribers))
	for s := range c.subscribers {
		out = append(out, s)
	}
	return out
}

func (c *Column) addPending(requiredState State, thunk func()) {
	c.mu.Lock()
	c.pending = append(c.pending, pendingAction{requiredState: requiredState, thunk: thunk})
	c.mu.Unlock()
}

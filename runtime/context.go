package runtime

import "fmt"

// SubsystemID enumerates the fixed connection-context slots in their
// initialization order. The last four (record-transcoder,
// snapshot-subscription, price-level-book, regional-book) belong to
// domain views out of scope for this core; their slots are kept so a
// subsystem ID callers already know still indexes the same position,
// but their Init/Deinit are no-ops here.
type SubsystemID int

const (
	SubsystemNetwork SubsystemID = iota
	SubsystemDataStructures
	SubsystemBufferedInput
	SubsystemBufferedOutput
	SubsystemRecordBuffers
	SubsystemServerMsgProcessor
	SubsystemEventSubscription
	SubsystemRecordTranscoder     // out of scope: domain view, no-op
	SubsystemSnapshotSubscription // out of scope: domain view, no-op
	SubsystemPriceLevelBook       // out of scope: domain view, no-op
	SubsystemRegionalBook         // out of scope: domain view, no-op

	// NumSubsystems is the fixed slot-vector length.
	NumSubsystems
)

func (id SubsystemID) String() string {
	names := [...]string{
		"network", "data-structures", "buffered-input", "buffered-output",
		"record-buffers", "server-msg-processor", "event-subscription",
		"record-transcoder", "snapshot-subscription", "price-level-book",
		"regional-book",
	}
	if int(id) < len(names) {
		return names[id]
	}
	return fmt.Sprintf("subsystem(%d)", int(id))
}

// Subsystem is one connection-context slot: an Init that may fail and
// a Deinit that never does (teardown must not itself be the thing that
// fails).
type Subsystem struct {
	ID     SubsystemID
	Init   func() (any, error)
	Deinit func(slot any)
}

// deinitOrder is a slightly permuted reverse of the init order:
// server-msg-processor frees before event-subscription despite
// initializing before it, because the message processor's deinit may
// still touch subscription state (flushing a final DATA frame's
// dispatch) and must not run after the subscription table is gone.
var deinitOrder = [NumSubsystems]SubsystemID{
	SubsystemRegionalBook,
	SubsystemPriceLevelBook,
	SubsystemSnapshotSubscription,
	SubsystemRecordTranscoder,
	SubsystemServerMsgProcessor,
	SubsystemEventSubscription,
	SubsystemRecordBuffers,
	SubsystemBufferedOutput,
	SubsystemBufferedInput,
	SubsystemDataStructures,
	SubsystemNetwork,
}

// Context runs a fixed vector of Subsystems through ordered
// initialization, unwinding (deinitializing whatever already
// succeeded, in deinitOrder) on the first failure: a builder that owns
// everything it opened, instead of a hand-written goto-cleanup chain.
type Context struct {
	subsystems [NumSubsystems]Subsystem
	slots      [NumSubsystems]any
	live       [NumSubsystems]bool
}

// NewContext builds a Context from subsystems, which must be provided
// in init order (SubsystemNetwork first). A nil Init/Deinit for a slot
// is treated as a no-op, matching the out-of-scope domain-view slots.
func NewContext(subsystems [NumSubsystems]Subsystem) *Context {
	return &Context{subsystems: subsystems}
}

// Init runs every subsystem's initializer in order. On failure it
// deinitializes everything already brought up (in deinitOrder) before
// returning the error, so a partially-initialized Context is never
// left live.
func (c *Context) Init() error {
	for i := range c.subsystems {
		s := c.subsystems[i]
		if s.Init == nil {
			continue
		}
		slot, err := s.Init()
		if err != nil {
			c.Deinit()
			return fmt.Errorf("connection context: init %s: %w", s.ID, err)
		}
		c.slots[i] = slot
		c.live[i] = true
	}
	return nil
}

// Deinit tears down every live subsystem in deinitOrder. Safe to call
// on a partially-initialized or already-deinitialized Context.
func (c *Context) Deinit() {
	for _, id := range deinitOrder {
		if !c.live[id] {
			continue
		}
		if d := c.subsystems[id].Deinit; d != nil {
			d(c.slots[id])
		}
		c.live[id] = false
		c.slots[id] = nil
	}
}

// Slot retrieves the value an Init returned for id, bounds-checked
// rather than a raw array-by-id access.
func (c *Context) Slot(id SubsystemID) (any, bool) {
	if id < 0 || id >= NumSubsystems || !c.live[id] {
		return nil, false
	}
	return c.slots[id], true
}

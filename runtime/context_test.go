package runtime_test

import (
	"errors"
	"testing"

	"github.com/feedcore/client/internal/tassert"
	"github.com/feedcore/client/log"
	"github.com/feedcore/client/runtime"
)

func vectorRecording(order *[]runtime.SubsystemID, failAt runtime.SubsystemID) [runtime.NumSubsystems]runtime.Subsystem {
	var v [runtime.NumSubsystems]runtime.Subsystem
	for id := runtime.SubsystemNetwork; id < runtime.NumSubsystems; id++ {
		id := id
		v[id] = runtime.Subsystem{
			ID: id,
			Init: func() (any, error) {
				if id == failAt {
					return nil, errors.New("boom")
				}
				return int(id), nil
			},
			Deinit: func(any) { *order = append(*order, id) },
		}
	}
	return v
}

func TestContextInitAndSlotAccess(t *testing.T) {
	var torndown []runtime.SubsystemID
	c := runtime.NewContext(vectorRecording(&torndown, -1))
	tassert.CheckFatal(t, c.Init())

	slot, ok := c.Slot(runtime.SubsystemEventSubscription)
	tassert.Fatal(t, ok, "live slot should resolve")
	tassert.Fatal(t, slot == int(runtime.SubsystemEventSubscription), "slot value %v", slot)

	_, ok = c.Slot(runtime.SubsystemID(99))
	tassert.Fatal(t, !ok, "out-of-range slot must not resolve")
}

func TestContextDeinitOrderPermutation(t *testing.T) {
	var torndown []runtime.SubsystemID
	c := runtime.NewContext(vectorRecording(&torndown, -1))
	tassert.CheckFatal(t, c.Init())
	c.Deinit()

	tassert.Fatal(t, len(torndown) == int(runtime.NumSubsystems), "every subsystem deinitializes once")
	// the documented permutation: event-subscription is torn down after
	// server-msg-processor despite initializing after it
	var msgProcIdx, subIdx, netIdx int
	for i, id := range torndown {
		switch id {
		case runtime.SubsystemServerMsgProcessor:
			msgProcIdx = i
		case runtime.SubsystemEventSubscription:
			subIdx = i
		case runtime.SubsystemNetwork:
			netIdx = i
		}
	}
	tassert.Fatal(t, msgProcIdx < subIdx, "server-msg-processor must deinit before event-subscription")
	tassert.Fatal(t, netIdx == len(torndown)-1, "network deinitializes last")

	// idempotent: a second Deinit must not re-run anything
	c.Deinit()
	tassert.Fatal(t, len(torndown) == int(runtime.NumSubsystems), "Deinit is idempotent")
}

func TestContextInitFailureUnwinds(t *testing.T) {
	var torndown []runtime.SubsystemID
	c := runtime.NewContext(vectorRecording(&torndown, runtime.SubsystemRecordBuffers))
	err := c.Init()
	tassert.Fatal(t, err != nil, "init failure must propagate")

	// only the subsystems that came up before the failure unwind
	for _, id := range torndown {
		tassert.Fatal(t, id < runtime.SubsystemRecordBuffers,
			"subsystem %s was never initialized but got deinitialized", id)
	}
	tassert.Fatal(t, len(torndown) == int(runtime.SubsystemRecordBuffers),
		"every successfully initialized subsystem unwinds, got %v", torndown)
}

func TestRuntimeDeferredCloseQueue(t *testing.T) {
	rt := runtime.New(log.Discard{})
	ran := 0
	rt.DeferClose(func() { ran++ })
	rt.DeferClose(func() { ran++ })
	tassert.Fatal(t, rt.Pending() == 2, "two closes pending")

	rt.Drain()
	tassert.Fatal(t, ran == 2, "drain runs every deferred close")
	tassert.Fatal(t, rt.Pending() == 0, "drain clears the queue")

	rt.Drain() // draining an empty queue is a no-op
	tassert.Fatal(t, ran == 2, "nothing left to run")
}

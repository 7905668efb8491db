// Package runtime implements the connection context: the ordered
// init/deinit of a connection's subsystems, and the deferred-close
// queue a connection defers onto when it cannot safely tear itself
// down from its own reader or task-runner goroutine.
//
// Rather than process-global mutable state (a global deferred-close
// queue, a global describe-protocol key), this package uses an
// explicit Runtime value a caller constructs once at library init and
// threads through every Connection it dials.
package runtime

import (
	"sync"

	"github.com/feedcore/client/log"
)

// Runtime is the shared, explicit state every Connection a process
// dials is built against: a logger default and the deferred-close
// queue for teardown a connection's own goroutine can't perform on
// itself.
type Runtime struct {
	Logger log.Logger

	closeMu    sync.Mutex
	closeQueue []func()
}

// New returns a Runtime using l as the default logger for connections
// that don't supply their own. A nil l uses log.Discard.
func New(l log.Logger) *Runtime {
	if l == nil {
		l = log.Discard{}
	}
	return &Runtime{Logger: l}
}

// DeferClose appends fn to the close-deferral queue: used when a
// connection's Close is invoked from a goroutine that cannot safely
// join itself (the reader or task-runner loop reacting to its own
// fatal condition). A later call to Drain (typically from the
// caller's own event loop, or another connection's teardown) runs it.
func (rt *Runtime) DeferClose(fn func()) {
	rt.closeMu.Lock()
	rt.closeQueue = append(rt.closeQueue, fn)
	rt.closeMu.Unlock()
}

// Drain runs and clears every pending deferred-close function. Safe to
// call from any goroutine; typically invoked periodically by an
// application that holds many connections, or once at shutdown.
func (rt *Runtime) Drain() {
	rt.closeMu.Lock()
	fns := rt.closeQueue
	rt.closeQueue = nil
	rt.closeMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Pending reports how many deferred closes are queued, mainly for
// tests and diagnostics.
func (rt *Runtime) Pending() int {
	rt.closeMu.Lock()
	defer rt.closeMu.Unlock()
	return len(rt.closeQueue)
}

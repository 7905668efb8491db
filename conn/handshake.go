package conn

import (
	"sync"
	"time"

	"github.com/feedcore/client/protocol"
)

// hsGuard wraps protocol.HandshakeState with a mutex: the task-runner
// goroutine polls and starts it, the reader goroutine records arrivals
// on it, and Subscribe (called from any caller goroutine) reads it to
// decide whether a subscribe frame can go out yet.
type hsGuard struct {
	mu sync.Mutex
	hs protocol.HandshakeState
}

func (g *hsGuard) start() {
	g.mu.Lock()
	g.hs.Start()
	g.mu.Unlock()
}

func (g *hsGuard) checkTimeout() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hs.CheckTimeout()
}

func (g *hsGuard) onReceived(d protocol.ProtocolDescriptor) {
	g.mu.Lock()
	g.hs.OnReceived(d)
	g.mu.Unlock()
}

func (g *hsGuard) elapsed() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hs.Elapsed()
}

func (g *hsGuard) timedOut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hs.TimedOut
}

func (g *hsGuard) pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hs.Pending()
}

func (g *hsGuard) isMessageSupported(t protocol.MessageType, wantSend bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hs.IsMessageSupported(t, wantSend)
}

// reset clears the handshake state for a fresh connection attempt
// after a reconnect.
func (g *hsGuard) reset() {
	g.mu.Lock()
	g.hs = protocol.HandshakeState{}
	g.mu.Unlock()
}

package conn

import (
	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/cmn/debug"
	"github.com/feedcore/client/protocol"
	"github.com/feedcore/client/subs"
	"github.com/feedcore/client/taskqueue"
	"github.com/feedcore/client/wire"
)

// NewSubscription creates a Subscription bound to this connection's
// symbol table for the given event types. Callers add symbols and
// listeners on the returned value, then call AddSymbols to start
// receiving data; Unsubscribe (via Manager.Close, or just dropping
// every symbol) stops it.
func (c *Connection) NewSubscription(types subs.EventType) *subs.Subscription {
	c.Stats.ActiveSubs.Inc()
	return c.Subs.NewSubscription(types)
}

// AddSymbols grows s's symbol set and queues an ADD frame (per record
// type s's event mask covers) for whichever symbols are newly acquired
// in the shared table — a symbol already held by another Subscription
// on this connection generates no new wire traffic, since the table's
// refcounted acquire only reports the first caller as new.
func (c *Connection) AddSymbols(s *subs.Subscription, symbols ...string) {
	newToServer := s.AddSymbols(symbols...)
	if len(newToServer) == 0 {
		return
	}
	c.Stats.ActiveSymbols.Add(float64(len(newToServer)))
	history, timeFloor := s.History()
	for _, name := range recordNamesForEventMask(s.EventTypes()) {
		if history {
			c.queueSubscription(protocol.MessageHistoryAdd, name, newToServer, timeFloor)
		} else {
			c.queueAdd(name, newToServer)
		}
	}
}

// RemoveSymbols shrinks s's symbol set and queues a REMOVE frame for
// whichever symbols just dropped to zero references across every
// Subscription on this connection.
func (c *Connection) RemoveSymbols(s *subs.Subscription, symbols ...string) {
	goneFromServer := s.RemoveSymbols(symbols...)
	if len(goneFromServer) == 0 {
		return
	}
	c.Stats.ActiveSymbols.Sub(float64(len(goneFromServer)))
	history, _ := s.History()
	for _, name := range recordNamesForEventMask(s.EventTypes()) {
		if history {
			c.queueSubscription(protocol.MessageHistoryRemove, name, goneFromServer, 0)
		} else {
			c.queueRemove(name, goneFromServer)
		}
	}
}

// Unsubscribe detaches s from this connection. Its symbols' table
// refcounts are unaffected; call RemoveSymbols first if s should also
// release its interest.
func (c *Connection) Unsubscribe(s *subs.Subscription) {
	c.Stats.ActiveSubs.Dec()
	c.Subs.Close(s)
}

func (c *Connection) queueAdd(recordName string, symbols []string) {
	c.queueSubscription(addMessageFor(recordName), recordName, symbols, 0)
}

func (c *Connection) queueRemove(recordName string, symbols []string) {
	c.queueSubscription(removeMessageFor(recordName), recordName, symbols, 0)
}

func (c *Connection) queueSubscription(kind protocol.MessageType, recordName string, symbols []string, subTime int64) {
	c.Tq.Add(subscribeTask{
		c:          c,
		kind:       kind,
		recordName: recordName,
		symbols:    symbols,
		subTime:    subTime,
	})
}

// addMessageFor/removeMessageFor pick the ADD/REMOVE message type for
// a record name based on which wire family it belongs to; every
// built-in record defaults to the ticker (TICKER_*) family since
// this client has no per-record transport-family configuration surface
// — wire families are a DESCRIBE_RECORDS-negotiated server concept,
// not chosen per-call here.
func addMessageFor(string) protocol.MessageType    { return protocol.MessageTickerAdd }
func removeMessageFor(string) protocol.MessageType { return protocol.MessageTickerRemove }

// subscribeTask sends one ADD/REMOVE frame once the handshake has
// resolved and the target record is confirmed supported. Queued while
// the handshake is still pending, it defers behind
// handshakeTimeoutPollTask rather than firing immediately.
type subscribeTask struct {
	c          *Connection
	kind       protocol.MessageType
	recordName string
	symbols    []string
	subTime    int64
}

func (t subscribeTask) Run(cmd taskqueue.Command) taskqueue.ExecStatus {
	if cmd == taskqueue.FreeResources {
		return taskqueue.Success
	}
	if t.c.hs.pending() {
		return 0 // handshake not resolved yet: wait behind the poll task
	}
	debug.Assert(!t.c.hs.pending(), "subscribeTask ran while handshake still pending")
	if !t.c.hs.isMessageSupported(t.kind, true) {
		t.c.logf("subscribe dropped: %v", cos.NewErr(cos.LocalMessageNotSupportedByServer, "server does not accept %s", t.kind))
		return taskqueue.Success
	}
	var serverID int32
	rm := t.c.recMap.Load()
	switch {
	case rm != nil:
		id, ok := rm.ServerIDByName(t.recordName)
		if !ok {
			t.c.logf("subscribe dropped: %s", cos.NewErr(cos.RecordNotSupported, "record %q not described by server", t.recordName))
			return taskqueue.Success
		}
		serverID = id
	case t.c.hs.timedOut():
		// legacy peer: no DESCRIBE_RECORDS is coming, and legacy servers
		// share the client's own record ids
		id, ok := t.c.localServerID(t.recordName)
		if !ok {
			t.c.logf("subscribe dropped: no local record %q", t.recordName)
			return taskqueue.Success
		}
		serverID = id
	default:
		// handshake resolved but the server's DESCRIBE_RECORDS hasn't
		// been processed yet: hold the queue until it lands
		return taskqueue.Success | taskqueue.DontAdvance
	}
	// One frame per (symbol, record) pair: a failure partway through
	// ends this pass with the task still queued, and the next pass
	// sends every symbol again, including those already written.
	for _, sym := range t.symbols {
		entry := protocol.SubscriptionEntry{ServerRecordID: serverID, Symbol: sym, SubscriptionTime: t.subTime}
		body := encodeMessage(t.kind, protocol.EncodeSubscription(t.kind, entry))
		framed := wire.WriteFrame(nil, body)
		if err := t.c.writeRaw(framed); err != nil {
			t.c.logf("subscribe send failed for %q: %v", sym, err)
			return 0 // retry next pass
		}
	}
	return taskqueue.Success
}

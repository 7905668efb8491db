package conn

import (
	"time"

	"github.com/feedcore/client/cmn"
	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/protocol"
)

// readerLoop is the connection's single reader goroutine: it blocks on
// Read, feeds every chunk into the framing layer, and dispatches each
// complete frame by message type. Any socket or protocol fault trips
// the reconnect branch instead of tearing the connection down
// outright, matching reestablishConnections' default of true.
func (c *Connection) readerLoop() {
	buf := make([]byte, readChunkSize)
	for {
		if c.stopCh.IsClosed() {
			return
		}
		c.sendMu.Lock()
		sock := c.sock
		c.sendMu.Unlock()
		if sock == nil {
			return
		}
		// the inbound-silence bound: a server that has sent nothing (not
		// even heartbeats) for heartbeatTimeout is treated as faulted
		_ = sock.SetReadDeadline(time.Now().Add(cmn.Rom.HeartbeatTimeout()))
		n, err := sock.Read(buf)
		if n > 0 {
			c.Stats.BytesReceived.Add(float64(n))
			c.reader.Feed(buf[:n])
			// inOwnLoop spans dispatch so a listener callback calling
			// Close defers teardown instead of joining its own goroutine
			c.inOwnLoop.Store(true)
			derr := c.drainFrames()
			c.inOwnLoop.Store(false)
			if derr != nil {
				err = derr
			}
		}
		if err != nil {
			if c.stopCh.IsClosed() {
				return
			}
			c.lastErr.Set(err)
			c.logf("reader fault: %v", err)
			c.inOwnLoop.Store(true)
			rerr := c.reconnect()
			c.inOwnLoop.Store(false)
			if rerr != nil {
				c.logf("reconnect abandoned: %v", rerr)
				return
			}
			continue
		}
	}
}

// drainFrames pops every currently-buffered complete frame and
// dispatches it; cos.MessageIncomplete (ok==false, err==nil) just
// means wait for more bytes and is not a fault.
func (c *Connection) drainFrames() error {
	for {
		fr, ok, err := c.reader.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.Stats.FramesReceived.Inc()
		if fr.IsHeartbeat() {
			continue
		}
		if err := c.dispatchFrame(fr.Body); err != nil {
			c.Stats.DecodeErrors.Inc()
			// Record-identity errors are fatal to the message only: the
			// framing layer already consumed the whole frame, so the
			// stream stays in sync and the next frame is readable. Only
			// genuine mid-frame decode faults escalate to reconnect.
			if cos.Is(err, cos.RecordNotSupported) || cos.Is(err, cos.RecordDescriptionNotReceived) {
				c.logf("frame dropped: %v", err)
				continue
			}
			return err
		}
	}
}

func (c *Connection) dispatchFrame(body []byte) error {
	cur := codec.NewCursor(body)
	raw, err := cur.ReadCompactInt()
	if err != nil {
		return err
	}
	t := protocol.MessageType(raw)
	rest := codec.NewCursor(body[cur.Pos:])
	switch t {
	case protocol.MessageDescribeProtocol:
		d, err := protocol.DecodeDescribeProtocol(rest)
		if err != nil {
			return err
		}
		c.hs.onReceived(d)
		c.Stats.DescribeRTT.Observe(c.hs.elapsed().Seconds())
	case protocol.MessageDescribeRecords:
		descs, err := protocol.DecodeDescribeRecords(rest)
		if err != nil {
			return err
		}
		rm := protocol.BuildRecordMap(descs, c.registry)
		c.recMap.Store(rm)
	case protocol.MessageTickerData, protocol.MessageStreamData, protocol.MessageHistoryData:
		if !c.hs.isMessageSupported(t, false) {
			// data is still decoded below; the descriptor mismatch is
			// recoverable and only worth a log line
			c.logf("%v", cos.NewErr(cos.InconsistentMessageSupport, "server sent %s but its descriptor never declared it", t))
		}
		rm := c.recMap.Load()
		if rm == nil {
			return cos.NewErr(cos.RecordDescriptionNotReceived, "DATA frame before DESCRIBE_RECORDS")
		}
		decoded, err := protocol.DecodeData(rest, rm)
		if err != nil {
			return err
		}
		for _, r := range decoded {
			ev, rawOrderSource, ok := toEvent(r)
			if !ok {
				continue
			}
			c.Subs.Dispatch(ev, rawOrderSource)
		}
	default:
		c.logf("%v", cos.NewErr(cos.ServerMessageNotSupported, "unhandled message type %s", t))
	}
	return nil
}

// enqueueHandshake starts the handshake clock and queues the three
// startup tasks the task-runner drains in order: send DESCRIBE_PROTOCOL,
// send DESCRIBE_RECORDS, then poll for timeout until the handshake
// resolves.
func (c *Connection) enqueueHandshake() {
	c.hs.start()
	c.Tq.Add(describeProtocolTask{c: c})
	c.Tq.Add(describeRecordsTask{c: c})
	c.Tq.Add(handshakeTimeoutPollTask{c: c})
}

// resubscribeAll replays every live subscription's acquired symbols as
// fresh ADD frames against the newly (re)dialed socket.
func (c *Connection) resubscribeAll() {
	for _, s := range c.Subs.Subscriptions() {
		symbols := s.Symbols()
		if len(symbols) == 0 {
			continue
		}
		history, timeFloor := s.History()
		for _, name := range recordNamesForEventMask(s.EventTypes()) {
			if history {
				c.queueSubscription(protocol.MessageHistoryAdd, name, symbols, timeFloor)
			} else {
				c.queueAdd(name, symbols)
			}
		}
	}
}

package conn

import (
	"time"

	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/cmn/mono"
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/protocol"
	"github.com/feedcore/client/taskqueue"
	"github.com/feedcore/client/wire"
)

// encodeMessage prepends t's compact-int tag to payload, producing a
// full frame body ready for wire.WriteFrame.
func encodeMessage(t protocol.MessageType, payload []byte) []byte {
	buf := codec.WriteCompactInt(nil, int32(t))
	return append(buf, payload...)
}

// heartbeatInterval is the outbound heartbeat cadence, a fixed 60s:
// the client emits a zero-length frame every 60s, whether or not other
// frames went out in between. Not the configurable network.heartbeatPeriod — that
// knob is the server-side interval (see config.Config).
const heartbeatInterval = 60 * time.Second

// taskRunnerLoop is the connection's second goroutine: it drains the
// task queue and, between passes, checks whether a heartbeat is due.
func (c *Connection) taskRunnerLoop() {
	c.heartbeatDeadline = mono.NanoTime() + int64(heartbeatInterval)
	for {
		select {
		case <-c.stopCh.Listen():
			return
		default:
		}
		c.maybeSendHeartbeat()
		if c.Tq.Empty() {
			c.sleep(idleTimeout)
		} else {
			c.Tq.Execute()
			c.sleep(smallTimeout)
		}
	}
}

func (c *Connection) sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-c.stopCh.Listen():
	}
}

func (c *Connection) maybeSendHeartbeat() {
	if !mono.Expired(c.heartbeatDeadline) {
		return
	}
	c.heartbeatDeadline = mono.NanoTime() + int64(heartbeatInterval)
	c.sendMu.Lock()
	sock := c.sock
	c.sendMu.Unlock()
	if sock == nil {
		return
	}
	frame := wire.WriteFrame(nil, nil)
	if err := c.writeRaw(frame); err != nil {
		c.logf("heartbeat send failed: %v", err)
		return
	}
	c.Stats.HeartbeatsSent.Inc()
}

// writeRaw writes a fully-framed (length-prefixed) buffer to the
// socket under sendMu.
func (c *Connection) writeRaw(framed []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sock == nil {
		return cos.NewErr(cos.ConnectionClosed, "write on a connection with no live socket")
	}
	n, err := c.sock.Write(framed)
	if err == nil {
		c.Stats.BytesSent.Add(float64(n))
		c.Stats.FramesSent.Inc()
	}
	return err
}

// describeProtocolTask sends this connection's DESCRIBE_PROTOCOL
// roster once, the first task the task-runner drains after a (re)dial.
type describeProtocolTask struct{ c *Connection }

func (t describeProtocolTask) Run(cmd taskqueue.Command) taskqueue.ExecStatus {
	if cmd == taskqueue.FreeResources {
		return taskqueue.Success
	}
	desc := protocol.ProtocolDescriptor{
		Properties: t.c.props,
		Sends:      localMessageRoster(),
		Receives:   localMessageRoster(),
	}
	body := encodeMessage(protocol.MessageDescribeProtocol, protocol.EncodeDescribeProtocol(desc))
	framed := wire.WriteFrame(nil, body)
	if err := t.c.writeRaw(framed); err != nil {
		t.c.logf("describe-protocol send failed: %v", err)
		return 0 // retry next pass
	}
	return taskqueue.Success
}

// describeRecordsTask advertises this client's local record schemas,
// sent immediately after DESCRIBE_PROTOCOL.
type describeRecordsTask struct{ c *Connection }

func (t describeRecordsTask) Run(cmd taskqueue.Command) taskqueue.ExecStatus {
	if cmd == taskqueue.FreeResources {
		return taskqueue.Success
	}
	body := encodeMessage(protocol.MessageDescribeRecords, protocol.EncodeDescribeRecords(t.c.localRec))
	framed := wire.WriteFrame(nil, body)
	if err := t.c.writeRaw(framed); err != nil {
		t.c.logf("describe-records send failed: %v", err)
		return 0
	}
	return taskqueue.Success
}

// handshakeTimeoutPollTask sits at the front of the queue behind the
// two describe sends and blocks every later task (any ExecStatus with
// neither Success nor PopMe set stops Queue.Execute's pass) until the
// handshake either arrives or times out: a subscribe task queued while
// this is still pending never runs until this one pops.
type handshakeTimeoutPollTask struct{ c *Connection }

func (t handshakeTimeoutPollTask) Run(cmd taskqueue.Command) taskqueue.ExecStatus {
	if cmd == taskqueue.FreeResources {
		return taskqueue.Success
	}
	t.c.hs.checkTimeout()
	if t.c.hs.pending() {
		return 0 // still pending: block the rest of this pass
	}
	return taskqueue.Success
}

// localMessageRoster declares every message type this client sends
// and receives, used for both halves of the DESCRIBE_PROTOCOL roster
// since this client is symmetric in what it can send vs. receive. Each
// entry carries its canonical wire name alongside the id, so the peer
// can match by id AND name.
func localMessageRoster() []protocol.MessageDescriptor {
	types := []protocol.MessageType{
		protocol.MessageHeartbeat,
		protocol.MessageDescribeProtocol,
		protocol.MessageDescribeRecords,
		protocol.MessageTickerData,
		protocol.MessageTickerAdd,
		protocol.MessageTickerRemove,
		protocol.MessageStreamData,
		protocol.MessageStreamAdd,
		protocol.MessageStreamRemove,
		protocol.MessageHistoryData,
		protocol.MessageHistoryAdd,
		protocol.MessageHistoryRemove,
	}
	roster := make([]protocol.MessageDescriptor, len(types))
	for i, t := range types {
		roster[i] = protocol.MessageDescriptor{Type: t, Name: t.WireName()}
	}
	return roster
}

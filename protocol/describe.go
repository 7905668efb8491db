package protocol

import (
	"time"

	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/cmn/mono"
	"github.com/feedcore/client/codec"
)

// DescribeProtocolMagic opens every DESCRIBE_PROTOCOL body, letting a
// peer recognize the message even before parsing the rest of it.
const DescribeProtocolMagic = "DXP3"

// DescribeProtocolTimeout bounds how long a connection waits for the
// server's DESCRIBE_PROTOCOL before falling back to the legacy
// bitmask-only message support assumption. A var so tests can shrink
// the window instead of sleeping through the real one.
var DescribeProtocolTimeout int64 = 3000 // milliseconds

// WireName returns m's canonical protocol name, exactly as written in
// a DESCRIBE_PROTOCOL roster entry. The receipt side matches a remote
// roster entry against the local roster by id AND name (see
// HandshakeState.IsMessageSupported) — the id alone isn't enough
// because a peer running a different protocol revision could reuse an
// id for an unrelated message.
func (m MessageType) WireName() string {
	switch m {
	case MessageHeartbeat:
		return "HEARTBEAT"
	case MessageDescribeProtocol:
		return "DESCRIBE_PROTOCOL"
	case MessageDescribeRecords:
		return "DESCRIBE_RECORDS"
	case MessageTickerData:
		return "TICKER_DATA"
	case MessageTickerAdd:
		return "TICKER_ADD_SUBSCRIPTION"
	case MessageTickerRemove:
		return "TICKER_REMOVE_SUBSCRIPTION"
	case MessageStreamData:
		return "STREAM_DATA"
	case MessageStreamAdd:
		return "STREAM_ADD_SUBSCRIPTION"
	case MessageStreamRemove:
		return "STREAM_REMOVE_SUBSCRIPTION"
	case MessageHistoryData:
		return "HISTORY_DATA"
	case MessageHistoryAdd:
		return "HISTORY_ADD_SUBSCRIPTION"
	case MessageHistoryRemove:
		return "HISTORY_REMOVE_SUBSCRIPTION"
	default:
		return "UNKNOWN MESSAGE TYPE"
	}
}

// MessageDescriptor is one entry in a DESCRIBE_PROTOCOL roster: a
// message type this side supports, carried with its wire name so the
// receiving side can match by id AND name rather than id alone.
type MessageDescriptor struct {
	Type MessageType
	Name string
}

// ProtocolDescriptor is the full content of a DESCRIBE_PROTOCOL frame:
// the property bag (implementation name/version, etc.) plus which
// message types this side sends and receives.
type ProtocolDescriptor struct {
	Properties map[string]string
	Sends      []MessageDescriptor
	Receives   []MessageDescriptor
}

// EncodeDescribeProtocol serializes d into a DESCRIBE_PROTOCOL frame
// body (everything after the frame's length prefix and message-type
// byte, which the caller's send path adds).
func EncodeDescribeProtocol(d ProtocolDescriptor) []byte {
	var buf []byte
	buf = append(buf, DescribeProtocolMagic...)
	buf = writeProperties(buf, d.Properties)
	buf = encodeRoster(buf, d.Sends)
	buf = encodeRoster(buf, d.Receives)
	return buf
}

func writeProperties(buf []byte, props map[string]string) []byte {
	buf = codec.WriteCompactInt(buf, int32(len(props)))
	for k, v := range props {
		buf = codec.WriteUTFString(buf, k)
		buf = codec.WriteUTFString(buf, v)
	}
	return buf
}

// encodeRoster writes one (count, {id, name, message-property-count}*)
// roster. This client never attaches per-message properties, so the
// trailing count is always 0.
func encodeRoster(buf []byte, roster []MessageDescriptor) []byte {
	buf = codec.WriteCompactInt(buf, int32(len(roster)))
	for _, md := range roster {
		buf = codec.WriteCompactInt(buf, int32(md.Type))
		buf = codec.WriteUTFString(buf, md.Name)
		buf = codec.WriteCompactInt(buf, 0) // no per-message properties
	}
	return buf
}

// DecodeDescribeProtocol parses a DESCRIBE_PROTOCOL frame body. It
// fails with cos.DescribeProtocolMessageCorrupted if the magic prefix
// doesn't match.
func DecodeDescribeProtocol(c *codec.Cursor) (ProtocolDescriptor, error) {
	magic, err := c.ReadBytes(len(DescribeProtocolMagic))
	if err != nil {
		return ProtocolDescriptor{}, err
	}
	if string(magic) != DescribeProtocolMagic {
		return ProtocolDescriptor{}, cos.NewErr(cos.DescribeProtocolMessageCorrupted, "bad magic %q", magic)
	}
	props, err := readProperties(c)
	if err != nil {
		return ProtocolDescriptor{}, err
	}
	sends, err := decodeRoster(c)
	if err != nil {
		return ProtocolDescriptor{}, err
	}
	receives, err := decodeRoster(c)
	if err != nil {
		return ProtocolDescriptor{}, err
	}
	return ProtocolDescriptor{Properties: props, Sends: sends, Receives: receives}, nil
}

func readProperties(c *codec.Cursor) (map[string]string, error) {
	n, err := c.ReadCompactInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, cos.NewErr(cos.DescribeProtocolMessageCorrupted, "negative property count %d", n)
	}
	props := make(map[string]string, n)
	for i := int32(0); i < n; i++ {
		k, _, err := c.ReadUTFString()
		if err != nil {
			return nil, err
		}
		v, _, err := c.ReadUTFString()
		if err != nil {
			return nil, err
		}
		props[k] = v
	}
	return props, nil
}

// decodeRoster reads a (count, {id, name, message-property-count}*)
// roster. Each message entry's own property list is read and discarded
// (this client defines no per-message properties) to stay byte-aligned
// with the rest of the frame regardless of what the server attaches.
func decodeRoster(c *codec.Cursor) ([]MessageDescriptor, error) {
	n, err := c.ReadCompactInt()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, cos.NewErr(cos.DescribeProtocolMessageCorrupted, "negative roster count %d", n)
	}
	roster := make([]MessageDescriptor, n)
	for i := int32(0); i < n; i++ {
		t, err := c.ReadCompactInt()
		if err != nil {
			return nil, err
		}
		name, _, err := c.ReadUTFString()
		if err != nil {
			return nil, err
		}
		if _, err := readProperties(c); err != nil {
			return nil, err
		}
		roster[i] = MessageDescriptor{Type: MessageType(t), Name: name}
	}
	return roster, nil
}

// HandshakeState tracks one connection's DESCRIBE_PROTOCOL exchange:
// whether it's still pending, arrived in time, or timed out and fell
// back to the legacy bitmask assumption. A late arrival after a
// timeout is still recorded (LastRemote is updated) but TimedOut is
// not cleared, per the adopted behavior in DESIGN.md.
type HandshakeState struct {
	sentAt     int64
	Received   bool
	TimedOut   bool
	LastRemote *ProtocolDescriptor
}

// Start marks the handshake as sent, recording the current
// mono.NanoTime() as the deadline base.
func (h *HandshakeState) Start() { h.sentAt = mono.NanoTime() }

// CheckTimeout marks the handshake timed out if DescribeProtocolTimeout
// has elapsed since Start and no descriptor has arrived yet. Returns
// whether it just timed out (false on repeat calls).
func (h *HandshakeState) CheckTimeout() bool {
	if h.Received || h.TimedOut || h.sentAt == 0 {
		return false
	}
	if mono.Since(h.sentAt).Milliseconds() < DescribeProtocolTimeout {
		return false
	}
	h.TimedOut = true
	return true
}

// OnReceived records an arrived descriptor. It does not clear
// TimedOut: once legacy fallback has kicked in for this connection, it
// stays in effect for the connection's lifetime even if the server's
// descriptor shows up late.
func (h *HandshakeState) OnReceived(d ProtocolDescriptor) {
	h.Received = true
	h.LastRemote = &d
}

// Elapsed returns how long ago Start was called, the handshake's
// round-trip time when read at OnReceived time.
func (h *HandshakeState) Elapsed() time.Duration {
	if h.sentAt == 0 {
		return 0
	}
	return mono.Since(h.sentAt)
}

// Pending reports whether the handshake has neither arrived nor timed
// out yet: message support must be treated as unresolved for every
// message type while this holds, and subscription writes must defer
// rather than execute.
func (h *HandshakeState) Pending() bool { return !h.Received && !h.TimedOut }

// IsMessageSupported reports whether the remote peer's received
// descriptor (once known) supports t: wantSend=true asks "may this
// client send t", which requires t in the remote's Receives roster;
// wantSend=false asks "may the remote send t to us", requiring t in
// its Sends roster. If no descriptor has arrived (legacy fallback),
// every message type in the pre-DESCRIBE_PROTOCOL fixed bitmask roster
// is assumed supported. A remote roster entry only counts as a match
// when both its id and its name agree with t's — an id collision
// against a differently named message is not support.
func (h *HandshakeState) IsMessageSupported(t MessageType, wantSend bool) bool {
	// Once the timeout fallback has kicked in, the legacy bitmask stays
	// authoritative for the connection's lifetime; a late LastRemote is
	// kept for diagnostics only.
	if h.LastRemote == nil || h.TimedOut {
		return legacyBitmaskSupports(t)
	}
	roster := h.LastRemote.Sends
	if wantSend {
		roster = h.LastRemote.Receives
	}
	want := t.WireName()
	for _, md := range roster {
		if md.Type == t && md.Name == want {
			return true
		}
	}
	return false
}

// legacyBitmaskSupports matches the fixed message set supported from
// before DESCRIBE_PROTOCOL existed.
func legacyBitmaskSupports(t MessageType) bool {
	switch t {
	case MessageHeartbeat, MessageTickerData, MessageTickerAdd, MessageTickerRemove,
		MessageStreamData, MessageStreamAdd, MessageStreamRemove,
		MessageHistoryData, MessageHistoryAdd, MessageHistoryRemove:
		return true
	default:
		return false
	}
}

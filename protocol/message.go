// Package protocol implements the wire message types exchanged after
// a connection is established: the DESCRIBE_PROTOCOL/DESCRIBE_RECORDS
// handshake, subscription ADD/REMOVE frames, and DATA frame decode,
// all built on the codec and framing layers.
package protocol

// MessageType identifies a frame's body kind.
type MessageType int32

const (
	MessageHeartbeat MessageType = 0

	MessageDescribeProtocol MessageType = 1
	MessageDescribeRecords  MessageType = 2

	MessageTickerData   MessageType = 10
	MessageTickerAdd    MessageType = 11
	MessageTickerRemove MessageType = 12

	MessageStreamData   MessageType = 15
	MessageStreamAdd    MessageType = 16
	MessageStreamRemove MessageType = 17

	MessageHistoryData   MessageType = 20
	MessageHistoryAdd    MessageType = 21
	MessageHistoryRemove MessageType = 22
)

func (m MessageType) String() string {
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
		return "TICKER_ADD"
	case MessageTickerRemove:
		return "TICKER_REMOVE"
	case MessageStreamData:
		return "STREAM_DATA"
	case MessageStreamAdd:
		return "STREAM_ADD"
	case MessageStreamRemove:
		return "STREAM_REMOVE"
	case MessageHistoryData:
		return "HISTORY_DATA"
	case MessageHistoryAdd:
		return "HISTORY_ADD"
	case MessageHistoryRemove:
		return "HISTORY_REMOVE"
	default:
		return "UNKNOWN"
	}
}

// IsSubscriptionMessage reports whether m is one of the ADD/REMOVE
// subscription message types (as opposed to a DATA or control
// message).
func (m MessageType) IsSubscriptionMessage() bool {
	switch m {
	case MessageTickerAdd, MessageTickerRemove,
		MessageStreamAdd, MessageStreamRemove,
		MessageHistoryAdd, MessageHistoryRemove:
		return true
	default:
		return false
	}
}

// IsDataMessage reports whether m carries record DATA.
func (m MessageType) IsDataMessage() bool {
	switch m {
	case MessageTickerData, MessageStreamData, MessageHistoryData:
		return true
	default:
		return false
	}
}

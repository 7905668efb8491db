package protocol

import "github.com/feedcore/client/codec"

// SubscriptionEntry is the body of one ADD/REMOVE frame. The wire
// composes exactly one frame per (symbol, record) pair, so a subscribe
// call touching many symbols produces many frames, each carrying a
// single SubscriptionEntry.
// SubscriptionTime is only meaningful for MessageHistoryAdd (a
// "subscribe from" timestamp); it's ignored by EncodeSubscription for
// every other message type.
type SubscriptionEntry struct {
	ServerRecordID   int32
	Symbol           string
	SubscriptionTime int64
}

// EncodeSubscription serializes a single TICKER_ADD/REMOVE,
// STREAM_ADD/REMOVE, or HISTORY_ADD/REMOVE frame body: symbol,
// server record id, and (HISTORY_ADD only) a subscription-time floor.
func EncodeSubscription(kind MessageType, e SubscriptionEntry) []byte {
	var buf []byte
	buf = codec.WriteSymbol(buf, e.Symbol, false)
	buf = codec.WriteCompactInt(buf, e.ServerRecordID)
	if kind == MessageHistoryAdd {
		buf = codec.WriteCompactLong(buf, e.SubscriptionTime)
	}
	return buf
}

// DecodeSubscription parses a single ADD/REMOVE frame body of kind.
func DecodeSubscription(kind MessageType, c *codec.Cursor) (SubscriptionEntry, error) {
	symbol, void, err := c.ReadSymbol()
	if err != nil {
		return SubscriptionEntry{}, err
	}
	if void {
		symbol = ""
	}
	id, err := c.ReadCompactInt()
	if err != nil {
		return SubscriptionEntry{}, err
	}
	var subTime int64
	if kind == MessageHistoryAdd {
		subTime, err = c.ReadCompactLong()
		if err != nil {
			return SubscriptionEntry{}, err
		}
	}
	return SubscriptionEntry{ServerRecordID: id, Symbol: symbol, SubscriptionTime: subTime}, nil
}

package conn

import (
	"github.com/feedcore/client/protocol"
	"github.com/feedcore/client/subs"
)

// eventRecordNames maps each subs.EventType to the record name its
// DESCRIBE_RECORDS/DATA frames use on the wire, mirroring
// records.DefaultRegistry's built-in schema names.
var eventRecordNames = map[subs.EventType]string{
	subs.EventQuote:       "Quote",
	subs.EventTrade:       "Trade",
	subs.EventOrder:       "Order",
	subs.EventSummary:     "Summary",
	subs.EventProfile:     "Profile",
	subs.EventTimeAndSale: "TimeAndSale",
}

// recordNameEvents is eventRecordNames inverted, for turning a decoded
// record's name back into the EventType a Subscription filters on.
var recordNameEvents = func() map[string]subs.EventType {
	out := make(map[string]subs.EventType, len(eventRecordNames))
	for t, name := range eventRecordNames {
		out[name] = t
	}
	return out
}()

// toEvent converts one decoded wire record into the subs.Event shape
// Subscription.Dispatch expects, boxing each field with
// codec.FieldValue.Any() so the caller never has to re-derive
// presentation kind from the digest.
func toEvent(r protocol.DecodedRecord) (subs.Event, string, bool) {
	t, ok := recordNameEvents[r.RecordName]
	if !ok {
		return subs.Event{}, "", false
	}
	fields := make(map[string]any, len(r.Fields))
	var rawOrderSource string
	var flags uint32
	for name, v := range r.Fields {
		fields[name] = v.Any()
		if t == subs.EventOrder && name == "MarketMaker" {
			if s, ok := v.Any().(string); ok {
				rawOrderSource = s
			}
		}
		if name == "Flags" && !v.Void {
			flags = uint32(v.Int)
		}
	}
	return subs.Event{Type: t, Symbol: r.Symbol, Fields: fields, Flags: flags}, rawOrderSource, true
}

// recordNamesForEventMask lists every record name a subscription's
// event-type bitmask covers; the caller queues one ADD/REMOVE frame per
// (record name, symbol) pair from this list.
func recordNamesForEventMask(mask subs.EventType) []string {
	var names []string
	for t := subs.EventQuote; t <= subs.EventTimeAndSale; t <<= 1 {
		if mask&t == 0 {
			continue
		}
		if name, ok := eventRecordNames[t]; ok {
			names = append(names, name)
		}
	}
	return names
}

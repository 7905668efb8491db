package protocol_test

import (
	"testing"

	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/internal/tassert"
	"github.com/feedcore/client/protocol"
	"github.com/feedcore/client/records"
)

func tradeRecordMap() *protocol.RecordMap {
	descs := []protocol.RecordDescriptor{{
		ServerID: 3,
		Name:     "Trade",
		Fields: []records.ServerField{
			{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
			{Name: "Size", Serialization: codec.SerCompactLong, Presentation: codec.WirePresDecimal},
		},
	}}
	return protocol.BuildRecordMap(descs, records.DefaultRegistry())
}

func encodeTradeInstance(buf []byte, symbol string, price float64, size int64) []byte {
	buf = codec.WriteSymbol(buf, symbol, false)
	buf = codec.WriteCompactInt(buf, 3)
	buf = codec.WriteCompactInt(buf, codec.EncodeDecimal(price))
	buf = codec.WriteCompactLong(buf, codec.EncodeWideDecimal(float64(size)))
	return buf
}

func TestDecodeDataSingleRecord(t *testing.T) {
	rm := tradeRecordMap()
	buf := encodeTradeInstance(nil, "IBM", 123.5, 100)
	out, err := protocol.DecodeData(codec.NewCursor(buf), rm)
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, len(out) == 1, "expected one record, got %d", len(out))
	r := out[0]
	tassert.Fatal(t, r.RecordName == "Trade" && r.Symbol == "IBM", "record %q symbol %q", r.RecordName, r.Symbol)
	tassert.Fatal(t, r.Fields["Price"].Float == 123.5, "price %v", r.Fields["Price"].Float)
	tassert.Fatal(t, r.Fields["Size"].Float == 100, "size %v", r.Fields["Size"].Float)
}

func TestDecodeDataMultipleInstances(t *testing.T) {
	rm := tradeRecordMap()
	buf := encodeTradeInstance(nil, "IBM", 1.5, 1)
	buf = encodeTradeInstance(buf, "MSFT", 2.5, 2)
	out, err := protocol.DecodeData(codec.NewCursor(buf), rm)
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, len(out) == 2, "expected two records, got %d", len(out))
	tassert.Fatal(t, out[0].Symbol == "IBM" && out[1].Symbol == "MSFT", "order preserved: %q, %q", out[0].Symbol, out[1].Symbol)
}

func TestDecodeDataUnknownRecordID(t *testing.T) {
	rm := tradeRecordMap()
	var buf []byte
	buf = codec.WriteSymbol(buf, "IBM", false)
	buf = codec.WriteCompactInt(buf, 77) // never described
	_, err := protocol.DecodeData(codec.NewCursor(buf), rm)
	tassert.Fatal(t, cos.Is(err, cos.RecordNotSupported), "expected RecordNotSupported, got %v", err)
}

func TestDecodeDataExchangeSuffix(t *testing.T) {
	rm := tradeRecordMap()
	buf := encodeTradeInstance(nil, "AAPL&Q", 3.25, 5)
	out, err := protocol.DecodeData(codec.NewCursor(buf), rm)
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, out[0].Symbol == "AAPL", "base symbol %q", out[0].Symbol)
	tassert.Fatal(t, out[0].ExchangeCode == "Q", "exchange code %q", out[0].ExchangeCode)
}

func TestSubscriptionRoundTrip(t *testing.T) {
	for _, kind := range []protocol.MessageType{protocol.MessageTickerAdd, protocol.MessageHistoryAdd} {
		in := protocol.SubscriptionEntry{ServerRecordID: 9, Symbol: "BRK.A", SubscriptionTime: 1700000000}
		buf := protocol.EncodeSubscription(kind, in)
		out, err := protocol.DecodeSubscription(kind, codec.NewCursor(buf))
		tassert.CheckFatal(t, err)
		tassert.Fatal(t, out.ServerRecordID == 9 && out.Symbol == "BRK.A", "%s round-trip: %+v", kind, out)
		if kind == protocol.MessageHistoryAdd {
			tassert.Fatal(t, out.SubscriptionTime == in.SubscriptionTime, "HISTORY_ADD must carry the time floor")
		} else {
			tassert.Fatal(t, out.SubscriptionTime == 0, "only HISTORY_ADD carries a time floor")
		}
	}
}

func TestDescribeRecordsRoundTrip(t *testing.T) {
	in := []protocol.RecordDescriptor{{
		ServerID: 4,
		Name:     "Quote",
		Fields: []records.ServerField{
			{Name: "BidPrice", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
			{Name: "AskPrice", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
		},
	}}
	buf := protocol.EncodeDescribeRecords(in)
	out, err := protocol.DecodeDescribeRecords(codec.NewCursor(buf))
	tassert.CheckFatal(t, err)
	tassert.Fatal(t, len(out) == 1 && out[0].ServerID == 4 && out[0].Name == "Quote",
		"descriptor mismatch: %+v", out)
	tassert.Fatal(t, len(out[0].Fields) == 2, "field count mismatch")
	tassert.Fatal(t, out[0].Fields[0].Presentation == codec.WirePresDecimal,
		"field presentation lost in round-trip")
}

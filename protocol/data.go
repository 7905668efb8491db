package protocol

import (
	"strings"

	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/codec"
)

// DecodedRecord is one record instance off a DATA frame: which record
// it is, the (already exchange-suffix-stripped) symbol plus the
// suffix itself, and its decoded fields.
type DecodedRecord struct {
	RecordName   string
	Symbol       string
	ExchangeCode string // "" if the wire symbol carried no "&X" suffix
	Fields       map[string]codec.FieldValue
}

// exchangeSuffixSep is the character separating a base symbol from its
// exchange-code suffix, e.g. "AAPL&Q", the composite/regional symbol
// convention.
const exchangeSuffixSep = '&'

// splitExchangeSuffix extracts a trailing "&X" exchange code from a
// wire symbol, if present.
func splitExchangeSuffix(symbol string) (base, exchangeCode string) {
	if i := strings.IndexByte(symbol, exchangeSuffixSep); i >= 0 && i+1 < len(symbol) {
		return symbol[:i], symbol[i+1:]
	}
	return symbol, ""
}

// DecodeData parses a TICKER_DATA/STREAM_DATA/HISTORY_DATA frame body
// using rm to resolve each server record id to a decode digest. The
// body is one flat stream of (symbol, record_id, fields) record
// instances until the frame is exhausted — no per-record instance
// count or grouping by record id, so a single frame may freely
// interleave instances of different records. A
// record id rm doesn't recognize (RecordNotSupported) is a fatal
// protocol error: the server and client disagree on schema identity,
// not just on field presentation.
func DecodeData(c *codec.Cursor, rm *RecordMap) ([]DecodedRecord, error) {
	var out []DecodedRecord
	for c.Remaining() > 0 {
		wireSymbol, void, err := c.ReadSymbol()
		if err != nil {
			return nil, err
		}
		serverID, err := c.ReadCompactInt()
		if err != nil {
			return nil, err
		}
		digest, ok := rm.ByServerID(serverID)
		if !ok {
			return nil, cos.NewErr(cos.RecordNotSupported, "unknown server record id %d", serverID)
		}
		fields, err := digest.Decode(c)
		if err != nil {
			return nil, err
		}
		if void {
			continue
		}
		base, suffix := splitExchangeSuffix(wireSymbol)
		out = append(out, DecodedRecord{
			RecordName:   digest.RecordName,
			Symbol:       base,
			ExchangeCode: suffix,
			Fields:       fields,
		})
	}
	return out, nil
}

// FieldOrDefault returns r.Fields[name] if present and non-void,
// otherwise zero: a void field gets its schema default, and the caller
// passes whatever zero value its own record struct field would have.
func FieldOrDefault(r DecodedRecord, name string, zero codec.FieldValue) codec.FieldValue {
	v, ok := r.Fields[name]
	if !ok || v.Void {
		return zero
	}
	return v
}

// schemaDefault is a convenience constructor for FieldOrDefault's
// zero argument when the caller just wants "absent means zero value".
func schemaDefault() codec.FieldValue { return codec.FieldValue{} }

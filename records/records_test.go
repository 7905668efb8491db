package records_test

import (
	"testing"

	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/internal/tassert"
	"github.com/feedcore/client/records"
)

func tradeSchema() *records.Schema {
	s, ok := records.DefaultRegistry().Lookup("Trade")
	if !ok {
		panic("built-in Trade schema missing")
	}
	return s
}

func TestBuildDigestBindsMatchingFields(t *testing.T) {
	local := tradeSchema()
	server := []records.ServerField{
		{Name: "Time", Serialization: codec.SerCompactLong},
		{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
	}
	d := records.BuildDigest("Trade", server, local)
	tassert.Fatal(t, d.InSync, "matching serializations should leave the digest in sync")
	tassert.Fatal(t, len(d.Fields) == 2, "digest keeps server field order/count")
	tassert.Fatal(t, d.Fields[0].Local != nil && d.Fields[0].Local.Name == "Time", "Time should bind")
	tassert.Fatal(t, d.Fields[1].Local != nil && d.Fields[1].Local.Name == "Price", "Price should bind")
}

func TestBuildDigestSerializationMismatch(t *testing.T) {
	local := tradeSchema()
	server := []records.ServerField{
		{Name: "Time", Serialization: codec.SerCompactInt}, // local says compact long
	}
	d := records.BuildDigest("Trade", server, local)
	tassert.Fatal(t, !d.InSync, "a same-named field with a different serialization puts the digest out of sync")
	tassert.Fatal(t, d.Fields[0].Local == nil, "a mismatched field must not bind")
}

func TestBuildDigestUnknownRecord(t *testing.T) {
	server := []records.ServerField{
		{Name: "Whatever", Serialization: codec.SerCompactInt},
	}
	d := records.BuildDigest("Exotic", server, nil)
	tassert.Fatal(t, len(d.Fields) == 1, "unknown records still get positioned fields")
	tassert.Fatal(t, d.Fields[0].Local == nil, "nothing binds without a local schema")
}

// TestDecodeOmittedFieldYieldsDefault covers the boundary case where
// the server's description omits a locally-known field: decoding must
// still surface that field, as a Void value the caller defaults.
func TestDecodeOmittedFieldYieldsDefault(t *testing.T) {
	local := tradeSchema()
	server := []records.ServerField{
		{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
	}
	d := records.BuildDigest("Trade", server, local)

	buf := codec.WriteCompactInt(nil, codec.EncodeDecimal(99.5))
	vals, err := d.Decode(codec.NewCursor(buf))
	tassert.CheckFatal(t, err)

	tassert.Fatal(t, vals["Price"].Float == 99.5, "decoded price %v", vals["Price"].Float)
	size, ok := vals["Size"]
	tassert.Fatal(t, ok, "omitted local field must still appear in the decode result")
	tassert.Fatal(t, size.Void, "omitted local field decodes as Void (schema default)")
}

// TestDecodeSkipsUnboundServerFields: fields the local schema doesn't
// know are consumed (to stay positioned in the frame) but not
// reported.
func TestDecodeSkipsUnboundServerFields(t *testing.T) {
	local := tradeSchema()
	server := []records.ServerField{
		{Name: "ServerOnly", Serialization: codec.SerCompactInt},
		{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
	}
	d := records.BuildDigest("Trade", server, local)

	var buf []byte
	buf = codec.WriteCompactInt(buf, 7) // ServerOnly, consumed and discarded
	buf = codec.WriteCompactInt(buf, codec.EncodeDecimal(12.25))
	cur := codec.NewCursor(buf)
	vals, err := d.Decode(cur)
	tassert.CheckFatal(t, err)

	_, ok := vals["ServerOnly"]
	tassert.Fatal(t, !ok, "unbound server fields are not reported")
	tassert.Fatal(t, vals["Price"].Float == 12.25, "positioning across the unbound field failed: %v", vals["Price"].Float)
	tassert.Fatal(t, cur.Remaining() == 0, "decode must consume the whole instance")
}

// TestRedescribeReplacesDigest: building a fresh digest for an
// already-described record simply replaces the old decode plan.
func TestRedescribeReplacesDigest(t *testing.T) {
	local := tradeSchema()
	first := records.BuildDigest("Trade", []records.ServerField{
		{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
	}, local)
	second := records.BuildDigest("Trade", []records.ServerField{
		{Name: "Price", Serialization: codec.SerCompactInt, Presentation: codec.WirePresDecimal},
		{Name: "Size", Serialization: codec.SerCompactLong, Presentation: codec.WirePresDecimal},
	}, local)
	tassert.Fatal(t, len(first.Fields) == 1 && len(second.Fields) == 2,
		"each description produces an independent digest")
}

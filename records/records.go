// Package records holds the client's static local record schemas and
// builds the per-connection decode digest that DESCRIBE_RECORDS
// negotiation produces: for each record the server described, which of
// its fields this client recognizes and how to decode them, in the
// server's field order.
package records

import "github.com/feedcore/client/codec"

// FieldDef is one field in a local record schema: its wire name (must
// match the server's field name exactly to bind) and how this client
// expects it to be serialized.
type FieldDef struct {
	Name string
	Spec codec.FieldSpec
}

// Schema is this client's understanding of one record type. Schemas
// are immutable once registered.
type Schema struct {
	Name   string
	Fields []FieldDef
}

func (s *Schema) fieldByName(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Registry maps record names to their local Schema.
type Registry struct {
	byName map[string]*Schema
}

func NewRegistry() *Registry { return &Registry{byName: map[string]*Schema{}} }

func (r *Registry) Register(s *Schema) { r.byName[s.Name] = s }

func (r *Registry) Lookup(name string) (*Schema, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// DefaultRegistry returns the client's built-in schemas for the core
// record families (quotes, trades, orders, summaries, profiles, and
// time-and-sales). Field presentation kinds follow a decimal/time/flags
// convention.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Schema{Name: "Quote", Fields: []FieldDef{
		{"BidTime", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresTime}},
		{"BidExchangeCode", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"BidPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"BidSize", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"AskTime", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresTime}},
		{"AskExchangeCode", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"AskPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"AskSize", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
	}})
	r.Register(&Schema{Name: "Trade", Fields: []FieldDef{
		{"Time", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresTime}},
		{"ExchangeCode", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"Price", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Size", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresDecimal}},
		{"Tick", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresFlags}},
		{"Change", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"DayVolume", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresDecimal}},
	}})
	r.Register(&Schema{Name: "Order", Fields: []FieldDef{
		{"Index", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresPlain}},
		{"Time", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresTime}},
		{"Sequence", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"Price", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Size", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Flags", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresFlags}},
		{"MarketMaker", codec.FieldSpec{Serialization: codec.SerUTFString, Presentation: codec.PresPlain}},
	}})
	r.Register(&Schema{Name: "Summary", Fields: []FieldDef{
		{"DayOpenPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"DayHighPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"DayLowPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"PrevDayClosePrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"OpenInterest", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresDecimal}},
	}})
	r.Register(&Schema{Name: "Profile", Fields: []FieldDef{
		{"Description", codec.FieldSpec{Serialization: codec.SerUTFString, Presentation: codec.PresPlain}},
		{"HighLimitPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"LowLimitPrice", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
	}})
	r.Register(&Schema{Name: "TimeAndSale", Fields: []FieldDef{
		{"Time", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresTime}},
		{"Sequence", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"ExchangeCode", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresPlain}},
		{"Price", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Size", codec.FieldSpec{Serialization: codec.SerCompactLong, Presentation: codec.PresDecimal}},
		{"Bid", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Ask", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresDecimal}},
		{"Type", codec.FieldSpec{Serialization: codec.SerCompactInt, Presentation: codec.PresFlags}},
	}})
	return r
}

// ServerField is one field the server described for a record during
// DESCRIBE_RECORDS negotiation: its wire name, serialization kind, and
// presentation kind, in the order it will appear on every DATA frame
// for this record. Presentation is the server's own declaration
// (unpacked from the field's combined type int by
// codec.DecodeFieldType), not a guess from the local schema.
type ServerField struct {
	Name          string
	Serialization codec.SerKind
	Presentation  codec.WirePresentation
}

// DigestField binds one server field position to a local field, if
// this client recognizes it. Unbound fields (Local == nil) are still
// decoded, to stay positioned correctly in the frame, but discarded.
type DigestField struct {
	ServerField
	Local *FieldDef
}

// Digest is the per-record decode plan negotiated for one connection:
// exactly how to walk a DATA frame's fields in the server's order, and
// where each decoded value lands in the local schema.
type Digest struct {
	RecordName string
	Local      *Schema
	Fields     []DigestField
	// InSync is false when the server's field set and this client's
	// schema disagree on at least one field's serialization kind for a
	// same-named field. Such a field is left unbound: it is still read
	// with the server's serialization to stay positioned, then dropped,
	// and Decode reports the local field as Void.
	InSync bool
}

// BuildDigest matches serverFields (in server order) against local's
// field definitions by name, producing the Digest this connection will
// use for every DATA frame of this record. local == nil means this
// client has no schema at all for the record: every field is
// positioned but unbound (Local == nil everywhere) and the record's
// events are decoded but never dispatched to listeners.
func BuildDigest(recordName string, serverFields []ServerField, local *Schema) Digest {
	d := Digest{RecordName: recordName, Local: local, InSync: true}
	d.Fields = make([]DigestField, len(serverFields))
	for i, sf := range serverFields {
		df := DigestField{ServerField: sf}
		if local != nil {
			if lf, ok := local.fieldByName(sf.Name); ok {
				if lf.Spec.Serialization != sf.Serialization {
					d.InSync = false
				} else {
					lfCopy := lf
					df.Local = &lfCopy
				}
			}
		}
		d.Fields[i] = df
	}
	return d
}

// Decode reads one record instance off c, in the digest's field order,
// and returns the decoded local field values keyed by name. A local
// field this digest has no server-side counterpart for (present in
// Local's schema but never matched in Fields) is reported as a Void
// FieldValue so the caller substitutes its own zero-value default.
func (d Digest) Decode(c *codec.Cursor) (map[string]codec.FieldValue, error) {
	out := map[string]codec.FieldValue{}
	seen := map[string]bool{}
	for _, df := range d.Fields {
		spec := df.ServerField.Serialization
		pres := effectivePresentation(df.Local, df.ServerField.Presentation)
		v, err := codec.DecodeField(c, codec.FieldSpec{Serialization: spec, Presentation: pres})
		if err != nil {
			return nil, err
		}
		if df.Local != nil {
			out[df.Local.Name] = v
			seen[df.Local.Name] = true
		}
	}
	if d.Local != nil {
		for _, lf := range d.Local.Fields {
			if !seen[lf.Name] {
				out[lf.Name] = codec.FieldValue{Void: true}
			}
		}
	}
	return out, nil
}

// effectivePresentation resolves how to decode a field's value: the
// server's own wire presentation is authoritative when it declares
// something beyond plain, so a
// server-declared decimal field decodes as decimal even if the local
// schema disagrees or has no entry at all. Only when the server
// declares plain does the local schema get a say, for its semantic
// relabelings (PresTime, PresFlags) that the wire itself never carries.
func effectivePresentation(lf *FieldDef, wire codec.WirePresentation) codec.PresKind {
	switch wire {
	case codec.WirePresDecimal:
		return codec.PresDecimal
	case codec.WirePresString:
		return codec.PresPlain
	}
	if lf == nil {
		return codec.PresPlain
	}
	return lf.Spec.Presentation
}

package codec

import "github.com/feedcore/client/cmn/cos"

// Record fields are typed by a (serialization, presentation) pair: the
// serialization kind says how the bytes are framed on the wire
// (compact int, compact long, string, symbol), the presentation kind
// says how to interpret the decoded number once framed (plain integer,
// decimal-from-int, wide decimal, a millisecond timestamp, or a raw
// flags bitmask). The server and this client negotiate serialization
// during DESCRIBE_RECORDS; presentation only affects decoding on this
// side, so a presentation flag this client doesn't recognize degrades
// to PresPlain rather than failing the field — the in-sync schema
// invariant only requires serialization agreement.
type SerKind uint8

const (
	SerVoid SerKind = iota
	SerCompactInt
	SerCompactLong
	SerUTFString
	SerSymbol
)

type PresKind uint8

const (
	PresPlain PresKind = iota
	PresDecimal
	PresTime
	PresFlags
)

// WirePresentation is the presentation kind as the server actually
// transmits it, packed into the high bits of a DESCRIBE_RECORDS field
// type int. It is a strictly smaller set than PresKind: the wire only
// ever distinguishes plain, decimal-from-int, and string: "time" and
// "flags" are local-only relabelings this client layers on top of a
// wire-plain field once decoded (see records.Digest.Decode), never
// something the server declares.
type WirePresentation uint8

const (
	WirePresPlain WirePresentation = iota
	WirePresDecimal
	WirePresString
)

const (
	fieldTypeSerializationMask = 0x0F
	fieldTypePresentationShift = 4
)

// EncodeFieldType packs a (serialization, presentation) pair into the
// single wire int a DESCRIBE_RECORDS field entry carries: low 4 bits
// select serialization, the next 4 bits select presentation.
func EncodeFieldType(ser SerKind, pres WirePresentation) int32 {
	return int32(ser)&fieldTypeSerializationMask | int32(pres)<<fieldTypePresentationShift
}

// DecodeFieldType unpacks a DESCRIBE_RECORDS field type int into its
// serialization and presentation components. A presentation nibble
// this client doesn't recognize degrades to WirePresPlain rather than
// failing the field: unknown presentation flags are treated as plain.
func DecodeFieldType(raw int32) (ser SerKind, pres WirePresentation) {
	ser = SerKind(raw & fieldTypeSerializationMask)
	switch p := WirePresentation((raw >> fieldTypePresentationShift) & 0x0F); p {
	case WirePresPlain, WirePresDecimal, WirePresString:
		pres = p
	default:
		pres = WirePresPlain
	}
	return ser, pres
}

// FieldSpec is one entry in a record's decode digest (records.Digest):
// what to read off the wire and how to present it.
type FieldSpec struct {
	Serialization SerKind
	Presentation  PresKind
}

// FieldValue is a decoded field. Exactly one of the typed accessors is
// meaningful, selected by Serialization and IsFloat; Void means the
// field was absent from the server's digest and the caller should
// substitute the record schema's default instead of this value.
type FieldValue struct {
	Serialization SerKind
	Void          bool
	IsFloat       bool // true for PresDecimal fields: read Float, not Int
	Int           int64
	Float         float64
	Str           string
}

// Any returns v's value boxed as the Go type a caller would expect for
// it: float64 for decimal presentations, int64 for plain/time/flags,
// string for UTF/symbol fields, nil for a void field.
func (v FieldValue) Any() any {
	switch {
	case v.Void:
		return nil
	case v.IsFloat:
		return v.Float
	case v.Serialization == SerUTFString || v.Serialization == SerSymbol:
		return v.Str
	default:
		return v.Int
	}
}

// DecodeField reads one field off c according to spec. Passing
// SerVoid reads nothing and returns a Void value, used for fields the
// server's digest omitted (see records.Digest.Decode).
func DecodeField(c *Cursor, spec FieldSpec) (FieldValue, error) {
	switch spec.Serialization {
	case SerVoid:
		return FieldValue{Void: true}, nil
	case SerCompactInt:
		raw, err := c.ReadCompactInt()
		if err != nil {
			return FieldValue{}, err
		}
		return presentInt(spec.Presentation, int64(raw), false), nil
	case SerCompactLong:
		raw, err := c.ReadCompactLong()
		if err != nil {
			return FieldValue{}, err
		}
		return presentInt(spec.Presentation, raw, true), nil
	case SerUTFString:
		s, null, err := c.ReadUTFString()
		if err != nil {
			return FieldValue{}, err
		}
		if null {
			return FieldValue{Serialization: SerUTFString, Void: true}, nil
		}
		return FieldValue{Serialization: SerUTFString, Str: s}, nil
	case SerSymbol:
		s, void, err := c.ReadSymbol()
		if err != nil {
			return FieldValue{}, err
		}
		return FieldValue{Serialization: SerSymbol, Void: void, Str: s}, nil
	default:
		return FieldValue{}, cos.NewErr(cos.UnsupportedFieldType, "unknown serialization kind %d", spec.Serialization)
	}
}

func presentInt(pres PresKind, raw int64, wide bool) FieldValue {
	switch pres {
	case PresDecimal:
		if wide {
			return FieldValue{Serialization: SerCompactLong, IsFloat: true, Float: DecodeWideDecimal(raw)}
		}
		return FieldValue{Serialization: SerCompactInt, IsFloat: true, Float: DecodeDecimal(int32(raw))}
	case PresTime:
		return FieldValue{Serialization: serKindFor(wide), Int: raw}
	case PresFlags, PresPlain:
		return FieldValue{Serialization: serKindFor(wide), Int: raw}
	default:
		// Unrecognized presentation flag: degrade to plain, per the
		// in-sync invariant note above.
		return FieldValue{Serialization: serKindFor(wide), Int: raw}
	}
}

func serKindFor(wide bool) SerKind {
	if wide {
		return SerCompactLong
	}
	return SerCompactInt
}

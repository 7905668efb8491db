package protocol

import (
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/records"
)

// RecordDescriptor is one record's entry in a DESCRIBE_RECORDS
// message: its server-assigned id, name, and ordered field list.
type RecordDescriptor struct {
	ServerID int32
	Name     string
	Fields   []records.ServerField
}

// EncodeDescribeRecords serializes a DESCRIBE_RECORDS frame body
// advertising this side's own record schemas (sent once, right after
// DESCRIBE_PROTOCOL, so the server can map its ids for messages this
// client sends, e.g. HISTORY_ADD).
func EncodeDescribeRecords(descs []RecordDescriptor) []byte {
	var buf []byte
	buf = codec.WriteCompactInt(buf, int32(len(descs)))
	for _, d := range descs {
		buf = codec.WriteCompactInt(buf, d.ServerID)
		buf = codec.WriteUTFString(buf, d.Name)
		buf = codec.WriteCompactInt(buf, int32(len(d.Fields)))
		for _, f := range d.Fields {
			buf = codec.WriteUTFString(buf, f.Name)
			buf = codec.WriteCompactInt(buf, codec.EncodeFieldType(f.Serialization, f.Presentation))
		}
	}
	return buf
}

// DecodeDescribeRecords parses a DESCRIBE_RECORDS frame body into its
// record descriptors, in server order.
func DecodeDescribeRecords(c *codec.Cursor) ([]RecordDescriptor, error) {
	n, err := c.ReadCompactInt()
	if err != nil {
		return nil, err
	}
	out := make([]RecordDescriptor, n)
	for i := int32(0); i < n; i++ {
		id, err := c.ReadCompactInt()
		if err != nil {
			return nil, err
		}
		name, _, err := c.ReadUTFString()
		if err != nil {
			return nil, err
		}
		fcount, err := c.ReadCompactInt()
		if err != nil {
			return nil, err
		}
		fields := make([]records.ServerField, fcount)
		for j := int32(0); j < fcount; j++ {
			fname, _, err := c.ReadUTFString()
			if err != nil {
				return nil, err
			}
			rawType, err := c.ReadCompactInt()
			if err != nil {
				return nil, err
			}
			ser, pres := codec.DecodeFieldType(rawType)
			fields[j] = records.ServerField{Name: fname, Serialization: ser, Presentation: pres}
		}
		out[i] = RecordDescriptor{ServerID: id, Name: name, Fields: fields}
	}
	return out, nil
}

// RecordMap tracks the server-id <-> local-digest mapping this
// connection negotiated, built from DecodeDescribeRecords output
// against the client's local records.Registry.
type RecordMap struct {
	byServerID map[int32]*records.Digest
	byName     map[string]*records.Digest
	idByName   map[string]int32
}

// BuildRecordMap matches every server record description against reg,
// producing the decode digests this connection will use for DATA
// frames.
func BuildRecordMap(descs []RecordDescriptor, reg *records.Registry) *RecordMap {
	rm := &RecordMap{
		byServerID: map[int32]*records.Digest{},
		byName:     map[string]*records.Digest{},
		idByName:   map[string]int32{},
	}
	for _, d := range descs {
		local, _ := reg.Lookup(d.Name)
		digest := records.BuildDigest(d.Name, d.Fields, local)
		rm.byServerID[d.ServerID] = &digest
		rm.byName[d.Name] = &digest
		rm.idByName[d.Name] = d.ServerID
	}
	return rm
}

// ServerIDByName returns the server-assigned record id for name, if
// this connection's DESCRIBE_RECORDS negotiation covered it. A false
// result means the server never described name; the subscribe path
// drops such a subscription with RecordNotSupported.
func (rm *RecordMap) ServerIDByName(name string) (int32, bool) {
	id, ok := rm.idByName[name]
	return id, ok
}

func (rm *RecordMap) ByServerID(id int32) (*records.Digest, bool) {
	d, ok := rm.byServerID[id]
	return d, ok
}

func (rm *RecordMap) ByName(name string) (*records.Digest, bool) {
	d, ok := rm.byName[name]
	return d, ok
}

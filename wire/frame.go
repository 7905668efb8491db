// Package wire implements the connection's framing layer: a growable
// per-connection receive buffer that turns a byte stream into discrete
// protocol frames. A short header or body rewinds (by leaving roff
// untouched) and waits for more bytes rather than erroring; consumed
// bytes are compacted to the buffer start as it grows.
package wire

import (
	"github.com/feedcore/client/cmn/cos"
	"github.com/feedcore/client/codec"
	"github.com/feedcore/client/memsys"
)

// DefaultMaxFrameSize bounds a single frame's body; a declared length
// above this is treated as a fatal protocol error rather than an
// allocation a misbehaving or corrupted peer could grow without
// bound.
const DefaultMaxFrameSize = 64 * 1024 * 1024

// Reserved first bytes of a stream: a server that switched to text
// format opens with '=', a zip/gzip stream opens with 'K'/0x8B. None
// of these can begin a valid binary frame stream, and recovery is
// impossible mid-codec, so they surface as a fatal protocol error.
const (
	sentinelTextFormat = 0x3D // '='
	sentinelZip        = 0x4B // 'K', PK zip local-header second byte first on the wire here
	sentinelGzip       = 0x8B // gzip magic's second byte
)

// Frame is one decoded protocol message body. Empty (Len()==0) frames
// are heartbeats and carry no message type byte.
type Frame struct {
	Body []byte
}

func (f Frame) Len() int { return len(f.Body) }
func (f Frame) IsHeartbeat() bool { return len(f.Body) == 0 }

// Reader incrementally assembles frames from bytes appended by the
// connection's reader loop. It is not safe for concurrent use: a single
// reader goroutine per connection is expected to feed it.
type Reader struct {
	mm           *memsys.MMSA
	buf          []byte
	roff, woff   int
	maxFrameSize int
	started      bool // a first frame has begun: sentinel check no longer applies
}

func NewReader(mm *memsys.MMSA, maxFrameSize int) *Reader {
	if mm == nil {
		mm = memsys.PageMM()
	}
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Reader{
		mm:           mm,
		buf:          mm.Alloc(memsys.DefaultBufSize),
		maxFrameSize: maxFrameSize,
	}
}

// Feed appends newly read bytes from the socket to the internal
// buffer, growing it (and compacting already-consumed bytes) as
// needed.
func (r *Reader) Feed(b []byte) {
	need := r.woff + len(b)
	if need > len(r.buf) {
		r.grow(need)
	}
	r.woff += copy(r.buf[r.woff:], b)
}

func (r *Reader) grow(need int) {
	if r.roff > 0 {
		r.compact()
		if need-r.roff <= len(r.buf) {
			return
		}
	}
	// double rather than grow to exactly need, so a slow trickle of
	// reads doesn't reallocate on every Feed
	newSize := len(r.buf) * 2
	if newSize < need {
		newSize = need
	}
	nb := r.mm.Alloc(newSize)
	copy(nb, r.buf[r.roff:r.woff])
	r.mm.Free(r.buf)
	r.buf = nb
	r.woff -= r.roff
	r.roff = 0
}

func (r *Reader) compact() {
	if r.roff == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.roff:r.woff])
	r.woff = n
	r.roff = 0
}

// Next pops the next complete frame out of the buffer. ok is false
// when fewer bytes are currently buffered than a full frame needs
// (cos.MessageIncomplete, not a protocol error); the caller should
// read more from the socket and call Next again.
func (r *Reader) Next() (fr Frame, ok bool, err error) {
	if !r.started && r.woff > r.roff {
		switch b0 := r.buf[r.roff]; b0 {
		case sentinelTextFormat:
			return Frame{}, false, cos.NewErr(cos.UnexpectedMessageType, "peer switched to text format (first byte 0x%02x)", b0)
		case sentinelZip, sentinelGzip:
			return Frame{}, false, cos.NewErr(cos.UnexpectedMessageType, "peer sent a compressed stream (first byte 0x%02x)", b0)
		}
		r.started = true
	}
	c := codec.NewCursor(r.buf[r.roff:r.woff])
	bodyLen, lerr := c.ReadCompactInt()
	if lerr != nil {
		return Frame{}, false, nil // header itself incomplete: wait for more bytes
	}
	if bodyLen < 0 {
		return Frame{}, false, cos.NewErr(cos.InvalidMessageLength, "negative frame length %d", bodyLen)
	}
	if int(bodyLen) > r.maxFrameSize {
		return Frame{}, false, cos.NewErr(cos.InvalidMessageLength, "frame length %d exceeds max %d", bodyLen, r.maxFrameSize)
	}
	if c.Remaining() < int(bodyLen) {
		return Frame{}, false, nil // body not fully buffered yet
	}
	body, _ := c.ReadBytes(int(bodyLen))
	r.roff += c.Pos
	return Frame{Body: body}, true, nil
}

// Reset discards any buffered, unconsumed bytes (used when a
// connection resets and the next read starts a fresh frame stream).
func (r *Reader) Reset() {
	r.roff, r.woff = 0, 0
	r.started = false
}

// Close returns the internal buffer to its pool.
func (r *Reader) Close() {
	r.mm.Free(r.buf)
	r.buf = nil
}

// WriteFrame appends a length-prefixed frame carrying body to dst. An
// empty body encodes a heartbeat.
func WriteFrame(dst []byte, body []byte) []byte {
	dst = codec.WriteCompactInt(dst, int32(len(body)))
	return append(dst, body...)
}

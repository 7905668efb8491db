// Package codec implements the pure, no-I/O wire codec: compact
// int/long, modified-UTF8 char/string, penta-coded symbols, and typed
// record field decoding. Every operation here reports exactly one
// error kind (cmn/cos.Kind) and never performs I/O or allocates beyond
// the single returned value.
package codec

import "github.com/feedcore/client/cmn/cos"

// Cursor is a read position over a byte slice, shared by every decoder
// in this package. It never mutates the underlying slice.
type Cursor struct {
	Buf []byte
	Pos int
}

func NewCursor(buf []byte) *Cursor { return &Cursor{Buf: buf} }

func (c *Cursor) Remaining() int { return len(c.Buf) - c.Pos }

func (c *Cursor) ReadByte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, cos.NewErr(cos.BufferUnderflow, "need 1 byte, have 0")
	}
	b := c.Buf[c.Pos]
	c.Pos++
	return b, nil
}

func (c *Cursor) PeekByte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, cos.NewErr(cos.BufferUnderflow, "need 1 byte, have 0")
	}
	return c.Buf[c.Pos], nil
}

func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, cos.NewErr(cos.IndexOutOfBounds, "negative length %d", n)
	}
	if c.Remaining() < n {
		return nil, cos.NewErr(cos.BufferUnderflow, "need %d bytes, have %d", n, c.Remaining())
	}
	b := c.Buf[c.Pos : c.Pos+n]
	c.Pos += n
	return b, nil
}

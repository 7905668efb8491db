package codec

import "github.com/feedcore/client/cmn/cos"

// Compact ints/longs are variable-length signed integers: the
// leading byte's high bits select an encoded width, the
// remaining bits of every byte concatenate MSB-first into a payload,
// and the payload sign-extends via "(payload << (64-bits)) >> (64-bits)"
// using a signed arithmetic shift. The exact bit layout isn't specified
// beyond that sign-extension rule, so the byte-length thresholds below
// are this implementation's own choice rather than a transliteration
// of an undisclosed reference layout; they satisfy the stated
// properties (smallest values encode to a single byte, the scheme is
// self-delimiting from the leading byte alone, and decoding never needs
// to look past the declared length).
//
// Leading byte categories, by the position of the first zero bit:
//
//	0xxxxxxx            1 byte,  7 payload bits
//	10xxxxxx xxxxxxxx   2 bytes, 14 payload bits
//	110xxxxx ...        3 bytes, 21 payload bits
//	1110xxxx ...        4 bytes, 28 payload bits
//	11110xxx ...        5 bytes, 32 payload bits (raw, compact int's widest)
//	11111111 ...        9 bytes, 64 payload bits (raw, compact long only)
const (
	compactMaxIntLen  = 5
	compactMaxLongLen = 9
)

// lengthForByte0 returns the total encoded length (including byte0) and
// the number of payload bits carried across all bytes.
func lengthForByte0(b0 byte) (length, bits int) {
	switch {
	case b0&0x80 == 0x00:
		return 1, 7
	case b0&0xC0 == 0x80:
		return 2, 14
	case b0&0xE0 == 0xC0:
		return 3, 21
	case b0&0xF0 == 0xE0:
		return 4, 28
	case b0&0xF8 == 0xF0:
		return 5, 32
	case b0 == 0xFF:
		return 9, 64
	default:
		return 5, 32 // 11111xxx other than 0xFF: treat as the 5-byte raw form
	}
}

// ReadCompactInt decodes a compact int (up to 5 bytes, 32 payload
// bits) and returns the sign-extended value.
func (c *Cursor) ReadCompactInt() (int32, error) {
	v, err := c.readCompact(compactMaxIntLen)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadCompactLong decodes a compact long (up to 9 bytes, 64 payload
// bits) and returns the sign-extended value.
func (c *Cursor) ReadCompactLong() (int64, error) {
	return c.readCompact(compactMaxLongLen)
}

func (c *Cursor) readCompact(maxLen int) (int64, error) {
	b0, err := c.PeekByte()
	if err != nil {
		return 0, err
	}
	length, bits := lengthForByte0(b0)
	if length > maxLen {
		return 0, cos.NewErr(cos.BadSymbolFormat, "compact value length %d exceeds max %d", length, maxLen)
	}
	raw, err := c.ReadBytes(length)
	if err != nil {
		return 0, cos.NewErr(cos.BufferUnderflow, "compact value truncated: need %d bytes", length)
	}
	var payload uint64
	switch length {
	case 1:
		payload = uint64(raw[0] & 0x7F)
	case 2:
		payload = uint64(raw[0]&0x3F)<<8 | uint64(raw[1])
	case 3:
		payload = uint64(raw[0]&0x1F)<<16 | uint64(raw[1])<<8 | uint64(raw[2])
	case 4:
		payload = uint64(raw[0]&0x0F)<<24 | uint64(raw[1])<<16 | uint64(raw[2])<<8 | uint64(raw[3])
	case 5:
		payload = uint64(raw[1])<<24 | uint64(raw[2])<<16 | uint64(raw[3])<<8 | uint64(raw[4])
	case 9:
		for _, b := range raw[1:] {
			payload = payload<<8 | uint64(b)
		}
	default:
		return 0, cos.NewErr(cos.BadSymbolFormat, "unsupported compact value length %d", length)
	}
	if bits >= 64 {
		return int64(payload), nil
	}
	shifted := payload << (64 - uint(bits))
	return int64(shifted) >> (64 - uint(bits)), nil
}

// WriteCompactInt appends the compact encoding of v to dst, returning
// the extended slice.
func WriteCompactInt(dst []byte, v int32) []byte {
	return writeCompact(dst, int64(v), compactMaxIntLen)
}

// WriteCompactLong appends the compact encoding of v to dst, returning
// the extended slice.
func WriteCompactLong(dst []byte, v int64) []byte {
	return writeCompact(dst, v, compactMaxLongLen)
}

func writeCompact(dst []byte, v int64, maxLen int) []byte {
	switch {
	case maxLen >= 1 && v >= -64 && v <= 63:
		return append(dst, byte(v)&0x7F)
	case maxLen >= 2 && v >= -8192 && v <= 8191:
		u := uint16(v) & 0x3FFF
		return append(dst, 0x80|byte(u>>8), byte(u))
	case maxLen >= 3 && v >= -(1<<20) && v <= (1<<20)-1:
		u := uint32(v) & 0x1FFFFF
		return append(dst, 0xC0|byte(u>>16), byte(u>>8), byte(u))
	case maxLen >= 4 && v >= -(1<<27) && v <= (1<<27)-1:
		u := uint32(v) & 0x0FFFFFFF
		return append(dst, 0xE0|byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
	case maxLen >= 5 && v >= -(1<<31) && v <= (1<<31)-1:
		u := uint32(v)
		return append(dst, 0xF0, byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
	default:
		u := uint64(v)
		return append(dst, 0xFF,
			byte(u>>56), byte(u>>48), byte(u>>40), byte(u>>32),
			byte(u>>24), byte(u>>16), byte(u>>8), byte(u))
	}
}

package codec

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/feedcore/client/cmn/cos"
)

// Modified-UTF8 strings: a compact-long length prefix
// (-1 = null string, 0 = empty, n>0 = byte length of the encoded body)
// followed by the body itself. The body differs from plain UTF-8 in
// two spots inherited from the Java convention this wire format
// follows: the NUL code point encodes as the two-byte sequence 0xC0
// 0x80 instead of a single zero byte, and code points outside the
// Basic Multilingual Plane encode as a UTF-16 surrogate pair, each
// surrogate individually run through three-byte UTF-8 encoding (CESU-8)
// rather than the four-byte form plain UTF-8 would use.

// WriteUTFString appends the length-prefixed modified-UTF8 encoding of
// s to dst. Pass WriteUTFStringNull to encode the null string.
func WriteUTFString(dst []byte, s string) []byte {
	body := encodeModifiedUTF8(s)
	dst = WriteCompactLong(dst, int64(len(body)))
	return append(dst, body...)
}

// WriteUTFStringNull appends the null-string encoding to dst.
func WriteUTFStringNull(dst []byte) []byte {
	return WriteCompactLong(dst, -1)
}

// ReadUTFString decodes a length-prefixed modified-UTF8 string.
// null is true when the length prefix was -1.
func (c *Cursor) ReadUTFString() (s string, null bool, err error) {
	n, err := c.ReadCompactLong()
	if err != nil {
		return "", false, err
	}
	if n < -1 {
		return "", false, cos.NewErr(cos.BadUtfFormat, "negative UTF string length %d", n)
	}
	if n == -1 {
		return "", true, nil
	}
	raw, err := c.ReadBytes(int(n))
	if err != nil {
		return "", false, err
	}
	s, derr := decodeModifiedUTF8(raw)
	if derr != nil {
		return "", false, derr
	}
	return s, false, nil
}

func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r == 0 {
			out = append(out, 0xC0, 0x80)
			continue
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			out = appendUTF8Rune(out, r1)
			out = appendUTF8Rune(out, r2)
			continue
		}
		out = appendUTF8Rune(out, r)
	}
	return out
}

func appendUTF8Rune(dst []byte, r rune) []byte {
	if utf16.IsSurrogate(r) {
		// utf8.EncodeRune would substitute U+FFFD for a surrogate
		return append(dst, 0xE0|byte(r>>12), 0x80|byte(r>>6)&0x3F, 0x80|byte(r)&0x3F)
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	return append(dst, buf[:n]...)
}

func decodeModifiedUTF8(raw []byte) (string, error) {
	// decodeRune is utf8.DecodeRune extended to accept the three-byte
	// form of a UTF-16 surrogate (0xED 0xA0..0xBF xx), which plain UTF-8
	// rejects but CESU-8 pairs are made of.
	decodeRune := func(b []byte) (rune, int) {
		if len(b) >= 3 && b[0] == 0xED && b[1]&0xE0 == 0xA0 && b[2]&0xC0 == 0x80 {
			return rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F), 3
		}
		return utf8.DecodeRune(b)
	}
	var sb strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == 0xC0 && i+1 < len(raw) && raw[i+1] == 0x80 {
			sb.WriteByte(0)
			i += 2
			continue
		}
		r, size := decodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			return "", cos.NewErr(cos.BadUtfFormat, "invalid modified-UTF8 byte at offset %d", i)
		}
		if utf16.IsSurrogate(r) && i+size < len(raw) {
			r2, size2 := decodeRune(raw[i+size:])
			if combined := utf16.DecodeRune(r, r2); combined != utf8.RuneError {
				sb.WriteRune(combined)
				i += size + size2
				continue
			}
		}
		sb.WriteRune(r)
		i += size
	}
	return sb.String(), nil
}

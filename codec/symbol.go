package codec

import (
	"strings"

	"github.com/feedcore/client/cmn/cos"
)

// Penta-coded symbols: a symbol of up to
// seven characters packs into a single 64-bit cipher, five bits per
// character, so equality and hashing become integer comparisons
// instead of string work on the connection's hot decode path. Symbols
// that don't fit the alphabet, or that need more than seven
// characters, fall back to a plain string carried alongside the
// cipher (cipher == 0 then means "see the string").
//
// Plain alphabet: A-Z, '.', '/', '$' map to codes 1-29, one 5-bit slot
// each. Everything else printable-ASCII (minus quote and backtick,
// which this codec never emits to keep the wire form unambiguous from
// plain text) maps through a 64-entry escape table: a marker slot (30
// or 31) followed by a second slot selects one of 64 characters, so an
// escaped character costs two slots instead of one. A symbol therefore
// must fit within seven slots total (35 bits) to stay in cipher form;
// the all-plain-character case is exactly seven characters, so an
// eighth character always forces the plain-string fallback.
const pentaAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ./$"

const (
	escapeMarkerLo = 30
	escapeMarkerHi = 31
	maxSlots       = 7
)

var (
	charToSlot  [256]int8 // 0 = not in plain alphabet, else 1..29
	slotToChar  [30]byte  // index 1..29
	escapeChars [64]byte
	charToEsc   [256]int8 // -1 if not an escape char, else 0..63
)

func init() {
	for i := range charToSlot {
		charToSlot[i] = 0
	}
	for i := 0; i < len(pentaAlphabet); i++ {
		c := pentaAlphabet[i]
		code := int8(i + 1)
		charToSlot[c] = code
		slotToChar[code] = c
	}
	excluded := [256]bool{}
	for i := 0; i < len(pentaAlphabet); i++ {
		excluded[pentaAlphabet[i]] = true
	}
	excluded['\''] = true
	excluded['`'] = true
	n := 0
	for b := 0x20; b <= 0x7E && n < 64; b++ {
		if excluded[byte(b)] {
			continue
		}
		escapeChars[n] = byte(b)
		n = n + 1
	}
	for i := range charToEsc {
		charToEsc[i] = -1
	}
	for i, c := range escapeChars {
		charToEsc[c] = int8(i)
	}
}

// EncodeSymbolCipher packs s into a cipher. ok is false if s is empty,
// longer than seven slots' worth of characters, or contains a
// character outside the codec's supported range (control characters,
// non-ASCII, quote, or backtick) — callers then fall back to the
// string wire form.
func EncodeSymbolCipher(s string) (cipher uint64, ok bool) {
	if s == "" {
		return 0, false
	}
	slots := 0
	var word uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if code := charToSlot[c]; code != 0 {
			if slots+1 > maxSlots {
				return 0, false
			}
			word = word<<5 | uint64(code)
			slots++
			continue
		}
		if esc := charToEsc[c]; esc >= 0 {
			if slots+2 > maxSlots {
				return 0, false
			}
			marker := uint64(escapeMarkerLo + esc/32)
			tail := uint64(esc % 32)
			word = word<<5 | marker
			word = word<<5 | tail
			slots += 2
			continue
		}
		return 0, false
	}
	return word, true
}

// DecodeSymbolCipher unpacks a cipher produced by EncodeSymbolCipher.
func DecodeSymbolCipher(cipher uint64) string {
	if cipher == 0 {
		return ""
	}
	slots := slotsNeeded(cipher)
	var sb strings.Builder
	i := 0
	for i < slots {
		shift := uint(slots-1-i) * 5
		v := (cipher >> shift) & 0x1F
		if v == escapeMarkerLo || v == escapeMarkerHi {
			marker := v
			i++
			shift2 := uint(slots-1-i) * 5
			tail := (cipher >> shift2) & 0x1F
			idx := (marker-escapeMarkerLo)*32 + tail
			if idx < 64 {
				sb.WriteByte(escapeChars[idx])
			}
			i++
			continue
		}
		if v >= 1 && v <= 29 {
			sb.WriteByte(slotToChar[v])
		}
		i++
	}
	return sb.String()
}

// slotsNeeded returns how many 5-bit groups cipher's significant bits
// occupy, i.e. the number of slots written before the sign-extension
// style leading-zero padding a wire category adds.
func slotsNeeded(cipher uint64) int {
	if cipher == 0 {
		return 0
	}
	bitsLen := 0
	for v := cipher; v != 0; v >>= 1 {
		bitsLen++
	}
	slots := (bitsLen + 4) / 5
	if slots < 1 {
		slots = 1
	}
	return slots
}

// category bit widths, in the four sizes the wire format supports;
// symbolCatSlots[i] is categoryBits[i]/5.
var categoryBits = [...]int{15, 20, 30, 35}
var symbolCatSlots = [...]int{3, 4, 6, 7}

func categoryForSlots(slots int) (bits int, ok bool) {
	for i, cs := range symbolCatSlots {
		if slots <= cs {
			return categoryBits[i], true
		}
	}
	return 0, false
}

const (
	symByteVoid  = 0xFF
	symByteEmpty = 0xFE
	symByteCESU8 = 0xFD
	symByteUTF8  = 0xFC
)

// WriteSymbol appends the wire form of symbol to dst: a penta cipher
// when it fits the alphabet and length, otherwise a length-prefixed
// UTF-8 string. The empty string and "no symbol" (void) each get their
// own one-byte marker.
func WriteSymbol(dst []byte, symbol string, void bool) []byte {
	if void {
		return append(dst, symByteVoid)
	}
	if symbol == "" {
		return append(dst, symByteEmpty)
	}
	if cipher, ok := EncodeSymbolCipher(symbol); ok {
		slots := slotsNeeded(cipher)
		if bits, catOK := categoryForSlots(slots); catOK {
			return writeSymbolCipher(dst, cipher, bits)
		}
	}
	dst = append(dst, symByteUTF8)
	dst = WriteCompactInt(dst, int32(len(symbol)))
	return append(dst, symbol...)
}

func writeSymbolCipher(dst []byte, cipher uint64, bits int) []byte {
	switch bits {
	case 15:
		return append(dst, byte(cipher>>8)&0x7F, byte(cipher))
	case 20:
		return append(dst, 0xE0|byte(cipher>>16)&0x0F, byte(cipher>>8), byte(cipher))
	case 30:
		return append(dst, 0x80|byte(cipher>>24)&0x3F, byte(cipher>>16), byte(cipher>>8), byte(cipher))
	case 35:
		return append(dst, 0xF0|byte(cipher>>32)&0x07, byte(cipher>>24), byte(cipher>>16), byte(cipher>>8), byte(cipher))
	default:
		panic("codec: unreachable symbol category")
	}
}

// ReadSymbol decodes a symbol from the wire form WriteSymbol produces.
// void is true when the field carried no symbol at all (distinct from
// the empty string).
func (c *Cursor) ReadSymbol() (symbol string, void bool, err error) {
	b0, err := c.PeekByte()
	if err != nil {
		return "", false, err
	}
	switch {
	case b0 == symByteVoid:
		_, _ = c.ReadByte()
		return "", true, nil
	case b0 == symByteEmpty:
		_, _ = c.ReadByte()
		return "", false, nil
	case b0 == symByteUTF8 || b0 == symByteCESU8:
		_, _ = c.ReadByte()
		n, err := c.ReadCompactInt()
		if err != nil {
			return "", false, err
		}
		raw, err := c.ReadBytes(int(n))
		if err != nil {
			return "", false, err
		}
		return string(raw), false, nil
	case b0&0x80 == 0x00: // 15-bit
		raw, err := c.ReadBytes(2)
		if err != nil {
			return "", false, err
		}
		cipher := uint64(raw[0]&0x7F)<<8 | uint64(raw[1])
		return DecodeSymbolCipher(cipher), false, nil
	case b0&0xC0 == 0x80: // 30-bit
		raw, err := c.ReadBytes(4)
		if err != nil {
			return "", false, err
		}
		cipher := uint64(raw[0]&0x3F)<<24 | uint64(raw[1])<<16 | uint64(raw[2])<<8 | uint64(raw[3])
		return DecodeSymbolCipher(cipher), false, nil
	case b0&0xF0 == 0xE0: // 20-bit
		raw, err := c.ReadBytes(3)
		if err != nil {
			return "", false, err
		}
		cipher := uint64(raw[0]&0x0F)<<16 | uint64(raw[1])<<8 | uint64(raw[2])
		return DecodeSymbolCipher(cipher), false, nil
	case b0&0xF8 == 0xF0: // 35-bit
		raw, err := c.ReadBytes(5)
		if err != nil {
			return "", false, err
		}
		cipher := uint64(raw[0]&0x07)<<32 | uint64(raw[1])<<24 | uint64(raw[2])<<16 | uint64(raw[3])<<8 | uint64(raw[4])
		return DecodeSymbolCipher(cipher), false, nil
	default:
		return "", false, cos.NewErr(cos.BadSymbolFormat, "unrecognized symbol leading byte 0x%02x", b0)
	}
}

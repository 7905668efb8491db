package codec_test

import (
	"github.com/feedcore/client/codec"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("compact int/long", func() {
	roundtripInts := []int32{0, 1, -1, 63, -64, 64, -65, 8191, -8192, 8192, -8193,
		1<<20 - 1, -(1 << 20), 1<<27 - 1, -(1 << 27), 1<<31 - 1, -(1 << 31)}

	It("round-trips every boundary value across the 1..5 byte categories", func() {
		for _, v := range roundtripInts {
			buf := codec.WriteCompactInt(nil, v)
			cur := codec.NewCursor(buf)
			got, err := cur.ReadCompactInt()
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(v), "value %d round-tripped to %d via %x", v, got, buf)
			Expect(cur.Remaining()).To(Equal(0))
		}
	})

	It("encodes small values in a single byte", func() {
		Expect(codec.WriteCompactInt(nil, 0)).To(HaveLen(1))
		Expect(codec.WriteCompactInt(nil, 63)).To(HaveLen(1))
		Expect(codec.WriteCompactInt(nil, -64)).To(HaveLen(1))
	})

	It("round-trips compact longs needing the full 9-byte raw form", func() {
		for _, v := range []int64{0, 1 << 40, -(1 << 40), 1<<63 - 1, -(1 << 63)} {
			buf := codec.WriteCompactLong(nil, v)
			cur := codec.NewCursor(buf)
			got, err := cur.ReadCompactLong()
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(v))
		}
	})

	It("reports a truncated buffer as BufferUnderflow", func() {
		full := codec.WriteCompactInt(nil, 1<<20-1) // 3-byte form
		cur := codec.NewCursor(full[:len(full)-1])
		_, err := cur.ReadCompactInt()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("decimal presentation", func() {
	It("round-trips common price/size magnitudes through the scale table", func() {
		for _, v := range []float64{0, 1, -1, 123.5, 0.0001, 100000, -42.75} {
			raw := codec.EncodeDecimal(v)
			got := codec.DecodeDecimal(raw)
			Expect(got).To(BeNumerically("~", v, 1e-6))
		}
	})

	It("round-trips the wide form for large mantissas", func() {
		for _, v := range []float64{0, 1e8, -1e8, 123456789.0} {
			raw := codec.EncodeWideDecimal(v)
			got := codec.DecodeWideDecimal(raw)
			Expect(got).To(BeNumerically("~", v, 1e-3))
		}
	})

	It("decodes the power-0 extra-precision sub-formats", func() {
		// sub-format 2: mantissa packed in the high 25 bits, divisor 10^7
		mantissa := int32(12345678)
		raw := mantissa<<7 | (2 << 4) // sub=2, power=0
		Expect(codec.DecodeDecimal(raw)).To(BeNumerically("~", float64(mantissa)/1e7, 1e-9))

		// sub-format 3: divisor 10^8
		raw = mantissa<<7 | (3 << 4)
		Expect(codec.DecodeDecimal(raw)).To(BeNumerically("~", float64(mantissa)/1e8, 1e-9))

		// sub-format 0: canonical NaN, no decodable mantissa
		raw = mantissa<<7 | (0 << 4)
		Expect(codec.DecodeDecimal(raw)).To(Equal(0.0))
	})
})

var _ = Describe("penta-coded symbols", func() {
	It("packs every plain-alphabet symbol up to seven characters into a nonzero cipher", func() {
		for _, s := range []string{"A", "IBM", "GOOG", "BRK.A", "ABCDEFG"} {
			cipher, ok := codec.EncodeSymbolCipher(s)
			Expect(ok).To(BeTrue(), "expected %q to fit the plain alphabet", s)
			Expect(cipher).NotTo(BeZero())
			Expect(codec.DecodeSymbolCipher(cipher)).To(Equal(s))
		}
	})

	It("falls back to string form for symbols outside the alphabet or too long", func() {
		_, ok := codec.EncodeSymbolCipher("IB'M") // quote is in neither the plain nor the escape alphabet
		Expect(ok).To(BeFalse())
		_, ok = codec.EncodeSymbolCipher("ABCDEFGH") // eight characters
		Expect(ok).To(BeFalse())
	})

	It("round-trips through the wire form for both cipher and string cases", func() {
		for _, s := range []string{"IBM", "BRK.A", "ibm-pref"} {
			buf := codec.WriteSymbol(nil, s, false)
			cur := codec.NewCursor(buf)
			got, void, err := cur.ReadSymbol()
			Expect(err).NotTo(HaveOccurred())
			Expect(void).To(BeFalse())
			Expect(got).To(Equal(s))
		}
	})

	It("distinguishes void from the empty string", func() {
		voidBuf := codec.WriteSymbol(nil, "", true)
		got, void, err := codec.NewCursor(voidBuf).ReadSymbol()
		Expect(err).NotTo(HaveOccurred())
		Expect(void).To(BeTrue())
		Expect(got).To(Equal(""))

		emptyBuf := codec.WriteSymbol(nil, "", false)
		got, void, err = codec.NewCursor(emptyBuf).ReadSymbol()
		Expect(err).NotTo(HaveOccurred())
		Expect(void).To(BeFalse())
		Expect(got).To(Equal(""))
	})

	It("escapes characters outside the plain alphabet at a two-slot cost", func() {
		cipher, ok := codec.EncodeSymbolCipher("AB-C")
		Expect(ok).To(BeTrue())
		Expect(codec.DecodeSymbolCipher(cipher)).To(Equal("AB-C"))
	})
})

package wire_test

import (
	"github.com/feedcore/client/wire"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Reader framing", func() {
	var r *wire.Reader

	BeforeEach(func() {
		r = wire.NewReader(nil, 0)
	})

	It("pops a frame only once its full body has been fed", func() {
		framed := wire.WriteFrame(nil, []byte("hello"))
		r.Feed(framed[:2])
		_, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		r.Feed(framed[2:])
		fr, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(fr.Body).To(Equal([]byte("hello")))
	})

	It("treats a zero-length body as a heartbeat", func() {
		r.Feed(wire.WriteFrame(nil, nil))
		fr, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(fr.IsHeartbeat()).To(BeTrue())
	})

	It("pops several back-to-back frames fed in one chunk, in order", func() {
		buf := wire.WriteFrame(nil, []byte("a"))
		buf = wire.WriteFrame(buf, []byte("bb"))
		buf = wire.WriteFrame(buf, []byte("ccc"))
		r.Feed(buf)

		var got []string
		for i := 0; i < 3; i++ {
			fr, ok, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			got = append(got, string(fr.Body))
		}
		Expect(got).To(Equal([]string{"a", "bb", "ccc"}))

		_, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("rejects a frame length beyond the configured maximum", func() {
		small := wire.NewReader(nil, 4)
		small.Feed(wire.WriteFrame(nil, []byte("toolong")))
		_, _, err := small.Next()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a stream opening with the text-format sentinel", func() {
		r.Feed([]byte{0x3D, 0x01, 0x02})
		_, _, err := r.Next()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a stream opening with a zip/gzip sentinel", func() {
		for _, b0 := range []byte{0x4B, 0x8B} {
			rr := wire.NewReader(nil, 0)
			rr.Feed([]byte{b0, 0x00})
			_, _, err := rr.Next()
			Expect(err).To(HaveOccurred(), "first byte 0x%02x must be rejected", b0)
		}
	})

	It("only applies the sentinel check to the first byte of a stream", func() {
		// 0x3D is a legal length prefix (61) once frames are flowing
		body := make([]byte, 0x3D)
		r.Feed(wire.WriteFrame(nil, []byte("x")))
		fr, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(fr.Body).To(Equal([]byte("x")))

		r.Feed(wire.WriteFrame(nil, body))
		fr, ok, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(fr.Body).To(HaveLen(0x3D))
	})

	It("survives a Feed spanning a buffer grow boundary", func() {
		body := make([]byte, 9000)
		for i := range body {
			body[i] = byte(i)
		}
		r.Feed(wire.WriteFrame(nil, body))
		fr, ok, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(fr.Body).To(Equal(body))
	})
})

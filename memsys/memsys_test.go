package memsys_test

import (
	"testing"

	"github.com/feedcore/client/internal/tassert"
	"github.com/feedcore/client/memsys"
)

func TestAllocSizes(t *testing.T) {
	mm := &memsys.MMSA{}
	for _, size := range []int{1, memsys.PageSize, memsys.DefaultBufSize, memsys.MaxPageSlabSize} {
		buf := mm.Alloc(size)
		tassert.Fatal(t, len(buf) == size, "Alloc(%d) returned len %d", size, len(buf))
		mm.Free(buf)
	}
}

func TestAllocAboveLargestClass(t *testing.T) {
	mm := &memsys.MMSA{}
	size := memsys.MaxPageSlabSize * 3
	buf := mm.Alloc(size)
	tassert.Fatal(t, len(buf) == size, "oversize Alloc(%d) returned len %d", size, len(buf))
	tassert.Fatal(t, cap(buf) >= size, "oversize Alloc must not under-cap")
	mm.Free(buf)
}

func TestReuseAfterFree(t *testing.T) {
	mm := &memsys.MMSA{}
	a := mm.Alloc(memsys.DefaultBufSize)
	mm.Free(a)
	b := mm.Alloc(memsys.DefaultBufSize)
	tassert.Fatal(t, len(b) == memsys.DefaultBufSize, "reused buffer has the requested length")
	mm.Free(b)
	mm.Free(nil) // tolerated
}

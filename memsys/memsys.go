// Package memsys provides pooled byte buffers for the framing layer
// and the protocol engine's header scratch space: a size-classed,
// sync.Pool-backed allocator callers Alloc from and must Free back.
package memsys

import "sync"

const (
	// PageSize is the smallest size class (a typical OS page).
	PageSize = 4 * 1024
	// DefaultBufSize is the framing layer's initial growable-buffer
	// size and the protocol engine's default PDU scratch size.
	DefaultBufSize = 8 * 1024
	// MaxPageSlabSize bounds a single pooled buffer; the framing layer
	// enforces its own configurable frame cap above this using ordinary
	// slice growth, not the pool.
	MaxPageSlabSize = 128 * 1024
)

// MMSA ("memory manager, slab allocator") is a size-classed buffer
// pool. The zero value is ready to use.
type MMSA struct {
	pools [sizeClasses]sync.Pool
}

var classSizes = [...]int{PageSize, DefaultBufSize, 32 * 1024, MaxPageSlabSize}

const sizeClasses = len(classSizes)

// PageMM returns the process-wide default allocator.
var defaultMM = &MMSA{}

func PageMM() *MMSA { return defaultMM }

func classFor(size int) int {
	for i, sz := range classSizes {
		if size <= sz {
			return i
		}
	}
	return sizeClasses - 1
}

// Alloc returns a buffer of at least size bytes, possibly reused from
// the pool; callers must Free it back when done.
func (m *MMSA) Alloc(size int) []byte {
	ci := classFor(size)
	if v := m.pools[ci].Get(); v != nil {
		buf := v.([]byte)
		if cap(buf) >= size {
			return buf[:size]
		}
	}
	capacity := classSizes[ci]
	if capacity < size {
		capacity = size // above the largest class: plain allocation
	}
	return make([]byte, size, capacity)
}

// Free returns buf to its size class's pool.
func (m *MMSA) Free(buf []byte) {
	if buf == nil {
		return
	}
	ci := classFor(cap(buf))
	m.pools[ci].Put(buf[:0:cap(buf)]) //nolint:staticcheck // reset length, keep cap
}

package memory

// Heap is a Backend allocated from the Go heap.
//
// Growing a heap allocates a larger slice and copies the previous content,
// the base address of the memory changes on every growth.
type Heap struct {
	bytes []byte
	max   uint32
}

// NewHeap returns a heap memory of the given initial size in pages, that may
// grow up to maxPages. A zero maxPages allows growth up to MaxPages.
func NewHeap(pages, maxPages uint32) *Heap {
	if maxPages == 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}
	if pages > maxPages {
		pages = maxPages
	}
	return &Heap{
		bytes: make([]byte, int(pages)*PageSize),
		max:   maxPages,
	}
}

func (h *Heap) Bytes() []byte { return h.bytes }

func (h *Heap) Pages() uint32 { return uint32(len(h.bytes) / PageSize) }

func (h *Heap) MaxPages() uint32 { return h.max }

func (h *Heap) Grow(delta uint32) (uint32, bool) {
	old := h.Pages()
	if uint64(old)+uint64(delta) > uint64(h.max) {
		return old, false
	}
	if delta > 0 {
		bytes := make([]byte, (int(old)+int(delta))*PageSize)
		copy(bytes, h.bytes)
		h.bytes = bytes
	}
	return old, true
}

//go:build unix

package memory

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultArenaSize is the size of the region reserved by an Arena when none
// is specified, sized for small embedded targets.
const DefaultArenaSize = 0x300000

// Arena is a Backend over a fixed region mapped once when the memory is
// created.
//
// The memory grows in place, its base address never changes. Growth fails
// once the region is exhausted.
type Arena struct {
	region []byte
	size   int
}

// NewArena maps a region of capacity bytes, rounded down to a whole number
// of pages, and returns an arena memory of the given initial size in pages.
func NewArena(pages uint32, capacity int) (*Arena, error) {
	if capacity <= 0 {
		capacity = DefaultArenaSize
	}
	capacity -= capacity % PageSize
	if capacity == 0 || capacity > MaxPages*PageSize {
		return nil, fmt.Errorf("arena capacity out of range: %d bytes", capacity)
	}
	size := int(pages) * PageSize
	if size > capacity {
		return nil, fmt.Errorf("initial memory size of %d pages exceeds arena capacity of %d bytes", pages, capacity)
	}
	region, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mapping %d bytes arena: %w", capacity, err)
	}
	return &Arena{region: region, size: size}, nil
}

func (a *Arena) Bytes() []byte { return a.region[:a.size:a.size] }

func (a *Arena) Pages() uint32 { return uint32(a.size / PageSize) }

func (a *Arena) MaxPages() uint32 { return uint32(len(a.region) / PageSize) }

func (a *Arena) Grow(delta uint32) (uint32, bool) {
	old := a.Pages()
	size := uint64(a.size) + uint64(delta)*PageSize
	if size > uint64(len(a.region)) {
		return old, false
	}
	a.size = int(size)
	return old, true
}

// Close unmaps the arena region. The memory must not be used afterward.
func (a *Arena) Close() error {
	if a.region == nil {
		return nil
	}
	region := a.region
	a.region, a.size = nil, 0
	return unix.Munmap(region)
}

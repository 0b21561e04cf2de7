// Package memory provides the host view of a guest linear memory.
//
// All guest pointers are 32 bit offsets into a single flat memory. The View
// type validates every access against the current size of the memory and
// raises an OutOfBoundsMemoryAccess trap when the access would fall outside
// of it. Slices returned by a View alias the guest memory and are only valid
// until the memory is grown.
package memory

import (
	"encoding/binary"

	"github.com/stealthrocket/wasi-aot"
)

const (
	// PageSize is the size of a WebAssembly memory page.
	PageSize = 65536

	// MaxPages is the maximum number of pages of a 32 bit memory.
	MaxPages = 65536
)

// Backend is the storage of a guest linear memory.
//
// Implementations differ in how they obtain memory from the host, the View
// type builds the same guest-facing behavior on top of all of them.
type Backend interface {
	// Bytes returns the current content of the memory. The length of the
	// slice is always a multiple of PageSize.
	Bytes() []byte

	// Pages returns the current size of the memory in pages.
	Pages() uint32

	// MaxPages returns the size in pages that the memory cannot grow past.
	MaxPages() uint32

	// Grow extends the memory by delta pages and returns the previous size.
	// The new pages are zero. When the memory cannot be grown, ok is false
	// and the memory is left unchanged.
	Grow(delta uint32) (old uint32, ok bool)
}

// View is the bounds-checked accessor of a guest memory.
type View struct {
	backend Backend
}

// NewView returns a View of the given backend.
func NewView(backend Backend) *View {
	return &View{backend: backend}
}

// Backend returns the memory backend of v.
func (v *View) Backend() Backend {
	return v.backend
}

// Size returns the current size of the memory in bytes.
func (v *View) Size() uint32 {
	return uint32(len(v.backend.Bytes()))
}

// Pages returns the current size of the memory in pages.
func (v *View) Pages() uint32 {
	return v.backend.Pages()
}

// Grow extends the memory by delta pages. It returns the previous size in
// pages, or -1 if the memory cannot hold the new size. Growing by zero pages
// returns the current size.
func (v *View) Grow(delta uint32) int32 {
	pages := v.backend.Pages()
	if delta == 0 {
		return int32(pages)
	}
	if uint64(pages)+uint64(delta) > uint64(v.backend.MaxPages()) {
		return -1
	}
	old, ok := v.backend.Grow(delta)
	if !ok {
		return -1
	}
	return int32(old)
}

// Read returns the length bytes at ptr. The returned slice aliases the guest
// memory.
func (v *View) Read(ptr, length uint32) []byte {
	b := v.backend.Bytes()
	if uint64(ptr)+uint64(length) > uint64(len(b)) {
		outOfBounds(ptr, length, len(b))
	}
	return b[ptr : ptr+length : ptr+length]
}

// Write copies b to the guest memory at ptr.
func (v *View) Write(ptr uint32, b []byte) {
	copy(v.Read(ptr, uint32(len(b))), b)
}

// ReadString returns a copy of the length bytes at ptr.
func (v *View) ReadString(ptr, length uint32) string {
	return string(v.Read(ptr, length))
}

func (v *View) LoadUint8(ptr uint32) uint8 {
	return v.Read(ptr, 1)[0]
}

func (v *View) StoreUint8(ptr uint32, value uint8) {
	v.Read(ptr, 1)[0] = value
}

func (v *View) LoadUint16(ptr uint32) uint16 {
	return binary.LittleEndian.Uint16(v.Read(ptr, 2))
}

func (v *View) StoreUint16(ptr uint32, value uint16) {
	binary.LittleEndian.PutUint16(v.Read(ptr, 2), value)
}

func (v *View) LoadUint32(ptr uint32) uint32 {
	return binary.LittleEndian.Uint32(v.Read(ptr, 4))
}

func (v *View) StoreUint32(ptr uint32, value uint32) {
	binary.LittleEndian.PutUint32(v.Read(ptr, 4), value)
}

func (v *View) LoadUint64(ptr uint32) uint64 {
	return binary.LittleEndian.Uint64(v.Read(ptr, 8))
}

func (v *View) StoreUint64(ptr uint32, value uint64) {
	binary.LittleEndian.PutUint64(v.Read(ptr, 8), value)
}

func outOfBounds(ptr, length uint32, size int) {
	wasi.Raise(wasi.OutOfBoundsMemoryAccess, "%d bytes at offset %#x exceed memory size of %d bytes", length, ptr, size)
}

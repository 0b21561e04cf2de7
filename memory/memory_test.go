package memory_test

import (
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/memory"
	"github.com/stealthrocket/wazergo/wasm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trapKind(t *testing.T, fn func()) wasi.TrapKind {
	t.Helper()
	_, err := wasi.Run(fn)
	var trap wasi.Trap
	require.ErrorAs(t, err, &trap)
	return trap.Kind
}

func TestViewGrow(t *testing.T) {
	view := memory.NewView(memory.NewHeap(1, 4))

	assert.Equal(t, int32(1), view.Grow(0))
	assert.Equal(t, uint32(memory.PageSize), view.Size())

	view.StoreUint32(100, 0xdeadbeef)
	assert.Equal(t, int32(1), view.Grow(2))
	assert.Equal(t, uint32(3), view.Pages())
	assert.Equal(t, uint32(0xdeadbeef), view.LoadUint32(100))

	for _, b := range view.Read(memory.PageSize, 2*memory.PageSize) {
		if b != 0 {
			t.Fatal("grown pages are not zero")
		}
	}

	assert.Equal(t, int32(-1), view.Grow(2))
	assert.Equal(t, uint32(3), view.Pages())
	assert.Equal(t, int32(3), view.Grow(1))
	assert.Equal(t, int32(-1), view.Grow(1))
	assert.Equal(t, int32(-1), view.Grow(^uint32(0)))
}

func TestViewBounds(t *testing.T) {
	view := memory.NewView(memory.NewHeap(1, 1))
	size := uint32(memory.PageSize)

	assert.Len(t, view.Read(size-4, 4), 4)
	assert.Len(t, view.Read(size, 0), 0)

	tests := []struct {
		scenario string
		fn       func()
	}{
		{"read past the end", func() { view.Read(size-4, 5) }},
		{"read wrapping around", func() { view.Read(^uint32(0), 2) }},
		{"load at the end", func() { view.LoadUint64(size - 7) }},
		{"store past the end", func() { view.StoreUint32(size, 1) }},
		{"write past the end", func() { view.Write(size-1, []byte("ab")) }},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			assert.Equal(t, wasi.OutOfBoundsMemoryAccess, trapKind(t, test.fn))
		})
	}
}

func TestViewLittleEndian(t *testing.T) {
	view := memory.NewView(memory.NewHeap(1, 1))
	view.StoreUint64(8, 0x0807060504030201)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, view.Read(8, 8))
	assert.Equal(t, uint16(0x0201), view.LoadUint16(8))
	assert.Equal(t, uint8(0x05), view.LoadUint8(12))

	view.Write(32, []byte("hello"))
	assert.Equal(t, "hello", view.ReadString(32, 5))
}

func TestArena(t *testing.T) {
	arena, err := memory.NewArena(1, 0)
	require.NoError(t, err)
	defer arena.Close()

	view := memory.NewView(arena)
	assert.Equal(t, uint32(memory.DefaultArenaSize/memory.PageSize), arena.MaxPages())

	base := &view.Read(0, 1)[0]
	view.StoreUint32(0, 42)

	assert.Equal(t, int32(1), view.Grow(arena.MaxPages()-1))
	assert.Same(t, base, &view.Read(0, 1)[0])
	assert.Equal(t, uint32(42), view.LoadUint32(0))
	assert.Equal(t, int32(-1), view.Grow(1))
}

func TestArenaCapacity(t *testing.T) {
	_, err := memory.NewArena(4, 2*memory.PageSize)
	assert.Error(t, err)

	arena, err := memory.NewArena(0, 2*memory.PageSize+100)
	require.NoError(t, err)
	defer arena.Close()
	assert.Equal(t, uint32(2), arena.MaxPages())
	assert.Equal(t, int32(0), memory.NewView(arena).Grow(2))
}

func TestWazero(t *testing.T) {
	mem := wasm.NewFixedSizeMemory(memory.PageSize)
	view := memory.NewView(memory.NewWazero(mem, 1))

	assert.Equal(t, uint32(1), view.Pages())
	view.StoreUint32(4, 1234)

	v, ok := mem.ReadUint32Le(4)
	require.True(t, ok)
	assert.Equal(t, uint32(1234), v)
	assert.Equal(t, int32(-1), view.Grow(1))
}

func TestStager(t *testing.T) {
	view := memory.NewView(memory.NewHeap(1, 1))
	view.Write(1000, []byte("hello"))
	view.Write(2000, []byte("world"))

	view.StoreUint32(0, 1000)
	view.StoreUint32(4, 5)
	view.StoreUint32(8, 2000)
	view.StoreUint32(12, 5)

	var stager memory.Stager
	iovecs := stager.Stage(view, 0, 2)
	require.Len(t, iovecs, 2)
	assert.Equal(t, "hello", string(iovecs[0]))
	assert.Equal(t, "world", string(iovecs[1]))

	copy(iovecs[1], "WORLD")
	assert.Equal(t, "WORLD", view.ReadString(2000, 5))

	assert.Empty(t, stager.Stage(view, 0, 0))
}

func TestStagerOverflow(t *testing.T) {
	view := memory.NewView(memory.NewHeap(1, 1))
	var stager memory.Stager

	assert.Len(t, stager.Stage(view, 0, memory.MaxIOVecs), memory.MaxIOVecs)
	assert.Equal(t, wasi.IOVecOverflow, trapKind(t, func() {
		stager.Stage(view, 0, memory.MaxIOVecs+1)
	}))

	view.StoreUint32(0, memory.PageSize-2)
	view.StoreUint32(4, 4)
	assert.Equal(t, wasi.OutOfBoundsMemoryAccess, trapKind(t, func() {
		stager.Stage(view, 0, 1)
	}))
}

// Package abi implements the guest side of the WASI preview 1 system calls.
//
// Compiled guests call the methods of an Instance with the raw integer
// arguments of the WASI functions: pointers are 32 bit offsets in the guest
// linear memory, and every function returns a WASI errno. The Instance reads
// the arguments out of memory, invokes the wasi.System it was created with,
// and writes the results back through the guest pointers only when the call
// succeeded.
//
// Violations of the guest memory boundary raise traps (see wasi.Trap), which
// unwind to the embedder and must be recovered with wasi.Run.
package abi

import (
	"context"

	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/memory"
)

// MaxPathLength is the maximum length of path arguments. Longer paths are
// rejected with ENAMETOOLONG.
const MaxPathLength = 1024

// Instance holds the per-guest state of the system call layer.
//
// Instances are not safe for concurrent use, a guest is expected to issue
// system calls from a single thread.
type Instance struct {
	// ID identifies the guest in logs and traces.
	ID uuid.UUID

	system wasi.System
	memory *memory.View
	stager memory.Stager
	dirent []wasi.DirEntry
}

// New returns an Instance which forwards system calls to system. The guest
// memory must be bound with Bind before any function is called.
func New(system wasi.System) *Instance {
	return &Instance{
		ID:     uuid.New(),
		system: system,
	}
}

// Bind sets the guest memory that the instance reads arguments from and
// writes results to.
func (i *Instance) Bind(mem *memory.View) {
	i.memory = mem
	i.stager.Reset()
}

// Memory returns the guest memory bound to i.
func (i *Instance) Memory() *memory.View {
	return i.memory
}

// System returns the system that i forwards calls to.
func (i *Instance) System() wasi.System {
	return i.system
}

// Close closes the underlying system.
func (i *Instance) Close(ctx context.Context) error {
	i.stager.Reset()
	return i.system.Close(ctx)
}

// MemoryGrow grows the guest memory by delta pages and returns the previous
// number of pages, or -1 if the memory could not be grown.
func (i *Instance) MemoryGrow(delta int32) int32 {
	if delta < 0 {
		return -1
	}
	return i.memory.Grow(uint32(delta))
}

func (i *Instance) loadPath(ptr, length int32) (string, wasi.Errno) {
	if uint32(length) > MaxPathLength {
		return "", wasi.ENAMETOOLONG
	}
	return i.memory.ReadString(uint32(ptr), uint32(length)), wasi.ESUCCESS
}

func (i *Instance) loadPaths(ptr1, length1, ptr2, length2 int32) (string, string, wasi.Errno) {
	p1, errno := i.loadPath(ptr1, length1)
	if errno != wasi.ESUCCESS {
		return "", "", errno
	}
	p2, errno := i.loadPath(ptr2, length2)
	if errno != wasi.ESUCCESS {
		return "", "", errno
	}
	return p1, p2, wasi.ESUCCESS
}

func (i *Instance) iovecs(ptr, count int32) []wasi.IOVec {
	return i.stager.Stage(i.memory, uint32(ptr), uint32(count))
}

func (i *Instance) bytes(ptr, length int32) []byte {
	return i.memory.Read(uint32(ptr), uint32(length))
}

func ret(errno wasi.Errno) int32 {
	return int32(errno)
}

package memory

import (
	"encoding/binary"

	"github.com/stealthrocket/wasi-aot"
)

// MaxIOVecs is the maximum number of i/o vectors accepted in a single call.
const MaxIOVecs = 128

// Stager resolves arrays of guest i/o vectors into host slices.
//
// Each guest vector is a pair of little endian uint32 (buf, len). The staged
// slices alias the guest memory and are resolved again on every call, the
// stager only owns the array holding them.
type Stager struct {
	iovecs [MaxIOVecs]wasi.IOVec
}

// Stage resolves the count vectors stored at ptr. Passing more than
// MaxIOVecs vectors raises an IOVecOverflow trap, and vectors referencing
// memory out of bounds raise an OutOfBoundsMemoryAccess trap.
//
// The returned slice is only valid until the next call to Stage.
func (s *Stager) Stage(v *View, ptr, count uint32) []wasi.IOVec {
	if count > MaxIOVecs {
		wasi.Raise(wasi.IOVecOverflow, "%d i/o vectors exceed the limit of %d", count, MaxIOVecs)
	}
	array := v.Read(ptr, count*wasi.SizeOfIOVec)
	iovecs := s.iovecs[:count]
	for i := range iovecs {
		entry := array[i*wasi.SizeOfIOVec:]
		buf := binary.LittleEndian.Uint32(entry[0:])
		n := binary.LittleEndian.Uint32(entry[4:])
		iovecs[i] = v.Read(buf, n)
	}
	return iovecs
}

// Reset drops the references to guest memory held by s.
func (s *Stager) Reset() {
	for i := range s.iovecs {
		s.iovecs[i] = nil
	}
}

package abi

import (
	"encoding/binary"

	"github.com/stealthrocket/wasi-aot"
)

// The functions below encode the WASI structures in their guest memory
// layout. Padding bytes are zeroed.

func putFDStat(b []byte, s wasi.FDStat) {
	_ = b[wasi.SizeOfFDStat-1]
	b[0] = uint8(s.FileType)
	b[1] = 0
	binary.LittleEndian.PutUint16(b[2:], uint16(s.Flags))
	binary.LittleEndian.PutUint32(b[4:], 0)
	binary.LittleEndian.PutUint64(b[8:], uint64(s.RightsBase))
	binary.LittleEndian.PutUint64(b[16:], uint64(s.RightsInheriting))
}

func putFileStat(b []byte, s wasi.FileStat) {
	_ = b[wasi.SizeOfFileStat-1]
	binary.LittleEndian.PutUint64(b[0:], uint64(s.Device))
	binary.LittleEndian.PutUint64(b[8:], uint64(s.INode))
	binary.LittleEndian.PutUint64(b[16:], uint64(s.FileType))
	binary.LittleEndian.PutUint64(b[24:], uint64(s.NLink))
	binary.LittleEndian.PutUint64(b[32:], uint64(s.Size))
	binary.LittleEndian.PutUint64(b[40:], uint64(s.AccessTime))
	binary.LittleEndian.PutUint64(b[48:], uint64(s.ModifyTime))
	binary.LittleEndian.PutUint64(b[56:], uint64(s.ChangeTime))
}

func putPreStat(b []byte, s wasi.PreStat) {
	_ = b[wasi.SizeOfPreStat-1]
	binary.LittleEndian.PutUint32(b[0:], uint32(s.Type))
	binary.LittleEndian.PutUint32(b[4:], uint32(s.NameLength))
}

// putDirent writes the header of d followed by its name, and returns the
// number of bytes written.
func putDirent(b []byte, d wasi.DirEntry) int {
	_ = b[wasi.SizeOfDirent-1]
	binary.LittleEndian.PutUint64(b[0:], uint64(d.Next))
	binary.LittleEndian.PutUint64(b[8:], uint64(d.INode))
	binary.LittleEndian.PutUint32(b[16:], uint32(len(d.Name)))
	binary.LittleEndian.PutUint32(b[20:], uint32(d.Type))
	return wasi.SizeOfDirent + copy(b[wasi.SizeOfDirent:], d.Name)
}

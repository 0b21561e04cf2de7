package unix

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// struct linux_dirent64: d_ino, d_off, d_reclen, d_type, d_name
const sizeOfDirent = 19

func (d *dirbuf) getdents() (int, error) {
	return unix.Getdents(d.fd, d.buffer[:])
}

func parseDirent(b []byte) (dirent, bool) {
	if len(b) < sizeOfDirent {
		return dirent{}, false
	}
	reclen := int(binary.LittleEndian.Uint16(b[16:]))
	if reclen < sizeOfDirent || reclen > len(b) {
		return dirent{}, false
	}
	name := b[sizeOfDirent:reclen:reclen]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n:n]
	}
	return dirent{
		ino:    binary.LittleEndian.Uint64(b[0:]),
		reclen: reclen,
		typ:    b[18],
		name:   name,
	}, true
}

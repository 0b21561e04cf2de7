package unix

import (
	"encoding/binary"
	"syscall"
)

// struct dirent (64 bit inodes): d_ino, d_seekoff, d_reclen, d_namlen,
// d_type, d_name
const sizeOfDirent = 21

func (d *dirbuf) getdents() (int, error) {
	return syscall.Getdirentries(d.fd, d.buffer[:], &d.basep)
}

func parseDirent(b []byte) (dirent, bool) {
	if len(b) < sizeOfDirent {
		return dirent{}, false
	}
	reclen := int(binary.LittleEndian.Uint16(b[16:]))
	namlen := int(binary.LittleEndian.Uint16(b[18:]))
	if reclen < sizeOfDirent || reclen > len(b) || sizeOfDirent+namlen > reclen {
		return dirent{}, false
	}
	i := sizeOfDirent
	j := sizeOfDirent + namlen
	return dirent{
		ino:    binary.LittleEndian.Uint64(b[0:]),
		reclen: reclen,
		typ:    b[20],
		name:   b[i:j:j],
	}, true
}

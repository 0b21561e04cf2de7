package unix

import (
	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/sys/unix"
)

const maxNameLen = 1024
const bufferSize = 4 * maxNameLen // must be greater than sizeOfDirent

// dirbuf iterates over the entries of a directory.
//
// Cookies are entry indexes: the entry at index i has cookie i and its Next
// cookie is i+1. Reading at a cookie lower than the current position rewinds
// the directory.
type dirbuf struct {
	fd     int
	buffer *[bufferSize]byte
	offset int
	length int
	cookie wasi.DirCookie
	basep  uintptr
}

func (d *dirbuf) readDirEntries(entries []wasi.DirEntry, cookie wasi.DirCookie, bufferSizeBytes int) (int, error) {
	if d.buffer == nil {
		d.buffer = new([bufferSize]byte)
	}

	if cookie < d.cookie {
		if _, err := lseek(d.fd, 0, unix.SEEK_SET); err != nil {
			return 0, err
		}
		d.offset = 0
		d.length = 0
		d.cookie = 0
		d.basep = 0
	}

	numEntries := 0
	for numEntries < len(entries) {
		if (d.length - d.offset) < sizeOfDirent {
			// Names of the entries returned so far alias the buffer.
			if numEntries > 0 {
				return numEntries, nil
			}
			n, err := ignoreEINTR2(d.getdents)
			if err != nil {
				return numEntries, err
			}
			if n <= 0 {
				return numEntries, nil
			}
			d.offset = 0
			d.length = n
		}

		dirent, ok := parseDirent(d.buffer[d.offset:d.length])
		if !ok {
			d.offset = d.length
			continue
		}

		if dirent.ino != 0 {
			if d.cookie >= cookie {
				size := wasi.SizeOfDirent + len(dirent.name)
				if size > bufferSizeBytes {
					// Only whole entries are returned, the iteration resumes
					// at this entry.
					return numEntries, nil
				}
				bufferSizeBytes -= size
				entries[numEntries] = wasi.DirEntry{
					Next:  d.cookie + 1,
					INode: wasi.INode(dirent.ino),
					Type:  makeDirentType(dirent.typ),
					Name:  dirent.name,
				}
				numEntries++
			}
			d.cookie++
		}
		d.offset += dirent.reclen
	}
	return numEntries, nil
}

type dirent struct {
	ino    uint64
	reclen int
	typ    uint8
	name   []byte
}

package wasi

import (
	"context"
	"io"
	"io/fs"
	"path"
	"time"
)

// readOnlyRights are the rights requested for files opened by FS.
const readOnlyRights = PathOpenRight | PathFileStatGetRight |
	FDReadRight | FDReadDirRight | FDSeekRight | FDTellRight | FDFileStatGetRight

// FS returns a read-only fs.FS view of the directory open at root.
//
// Files are opened with System.PathOpen relative to root, so the view is
// bounded by the rights that root passes on to the descriptors opened beneath
// it. The error is an Errno if root is not an open directory.
func FS(ctx context.Context, system System, root FD) (fs.FS, error) {
	stat, errno := system.FDStatGet(ctx, root)
	if errno != ESUCCESS {
		return nil, errno
	}
	if stat.FileType != DirectoryType {
		return nil, ENOTDIR
	}
	return &dirFS{
		ctx:    ctx,
		system: system,
		root:   root,
		rights: readOnlyRights & stat.RightsInheriting,
	}, nil
}

type dirFS struct {
	ctx    context.Context
	system System
	root   FD
	rights Rights
}

func (d *dirFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	fd, errno := d.system.PathOpen(d.ctx, d.root, SymlinkFollow, name, 0, d.rights, d.rights, 0)
	if errno != ESUCCESS {
		return nil, &fs.PathError{Op: "open", Path: name, Err: errno}
	}
	return &dirFile{fsys: d, name: name, fd: fd}, nil
}

type dirFile struct {
	fsys   *dirFS
	name   string
	fd     FD
	closed bool

	// Directory listing state, the entries buffer is reused across calls.
	entries []DirEntry
	cookie  DirCookie
}

var (
	_ fs.ReadDirFile = (*dirFile)(nil)
	_ io.ReaderAt    = (*dirFile)(nil)
	_ io.Seeker      = (*dirFile)(nil)
)

func (f *dirFile) fail(op string, err error) error {
	return &fs.PathError{Op: op, Path: f.name, Err: err}
}

func (f *dirFile) Close() error {
	if f.closed {
		return f.fail("close", fs.ErrClosed)
	}
	f.closed = true
	if errno := f.fsys.system.FDClose(f.fsys.ctx, f.fd); errno != ESUCCESS {
		return f.fail("close", errno)
	}
	return nil
}

func (f *dirFile) Read(b []byte) (int, error) {
	if f.closed {
		return 0, f.fail("read", fs.ErrClosed)
	}
	if len(b) == 0 {
		return 0, nil
	}
	n, errno := f.fsys.system.FDRead(f.fsys.ctx, f.fd, []IOVec{b})
	switch {
	case errno != ESUCCESS:
		return int(n), f.fail("read", errno)
	case n == 0:
		return 0, io.EOF
	default:
		return int(n), nil
	}
}

func (f *dirFile) ReadAt(b []byte, off int64) (int, error) {
	if f.closed {
		return 0, f.fail("read", fs.ErrClosed)
	}
	if off < 0 {
		return 0, f.fail("read", fs.ErrInvalid)
	}
	size := 0
	for size < len(b) {
		n, errno := f.fsys.system.FDPread(f.fsys.ctx, f.fd, []IOVec{b[size:]}, FileSize(off)+FileSize(size))
		if errno != ESUCCESS {
			return size, f.fail("read", errno)
		}
		if n == 0 {
			return size, io.EOF
		}
		size += int(n)
	}
	return size, nil
}

func (f *dirFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, f.fail("seek", fs.ErrClosed)
	}
	pos, errno := f.fsys.system.FDSeek(f.fsys.ctx, f.fd, FileDelta(offset), Whence(whence))
	if errno != ESUCCESS {
		return 0, f.fail("seek", errno)
	}
	return int64(pos), nil
}

func (f *dirFile) Stat() (fs.FileInfo, error) {
	if f.closed {
		return nil, f.fail("stat", fs.ErrClosed)
	}
	stat, errno := f.fsys.system.FDFileStatGet(f.fsys.ctx, f.fd)
	if errno != ESUCCESS {
		return nil, f.fail("stat", errno)
	}
	return &fileInfo{name: path.Base(f.name), stat: stat}, nil
}

// ReadDir follows the fs.ReadDirFile contract. The "." and ".." entries
// returned by FDReadDir are not part of the listing.
func (f *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if f.closed {
		return nil, f.fail("readdir", fs.ErrClosed)
	}
	if f.entries == nil {
		f.entries = make([]DirEntry, 32)
	}

	var list []fs.DirEntry
	for n <= 0 || len(list) < n {
		limit := len(f.entries)
		if n > 0 && n-len(list) < limit {
			limit = n - len(list)
		}
		count, errno := f.fsys.system.FDReadDir(f.fsys.ctx, f.fd, f.entries[:limit], f.cookie, 4096)
		if errno != ESUCCESS {
			return list, f.fail("readdir", errno)
		}
		if count == 0 {
			if n > 0 && len(list) == 0 {
				return nil, io.EOF
			}
			break
		}
		for _, e := range f.entries[:count] {
			if name := string(e.Name); name != "." && name != ".." {
				list = append(list, &dirEntry{dir: f, name: name, typ: e.Type})
			}
		}
		f.cookie = f.entries[count-1].Next
	}
	return list, nil
}

type fileInfo struct {
	name string
	stat FileStat
}

func (info *fileInfo) Name() string       { return info.name }
func (info *fileInfo) Size() int64        { return int64(info.stat.Size) }
func (info *fileInfo) Mode() fs.FileMode  { return fileMode(info.stat.FileType) }
func (info *fileInfo) ModTime() time.Time { return time.Unix(0, int64(info.stat.ModifyTime)) }
func (info *fileInfo) IsDir() bool        { return info.stat.FileType == DirectoryType }
func (info *fileInfo) Sys() any           { return &info.stat }

type dirEntry struct {
	dir  *dirFile
	name string
	typ  FileType
}

func (e *dirEntry) Name() string      { return e.name }
func (e *dirEntry) IsDir() bool       { return e.typ == DirectoryType }
func (e *dirEntry) Type() fs.FileMode { return fileMode(e.typ) }

func (e *dirEntry) Info() (fs.FileInfo, error) {
	fsys := e.dir.fsys
	stat, errno := fsys.system.PathFileStatGet(fsys.ctx, e.dir.fd, 0, e.name)
	if errno != ESUCCESS {
		return nil, &fs.PathError{Op: "stat", Path: path.Join(e.dir.name, e.name), Err: errno}
	}
	return &fileInfo{name: e.name, stat: stat}, nil
}

func fileMode(t FileType) fs.FileMode {
	switch t {
	case BlockDeviceType:
		return fs.ModeDevice
	case CharacterDeviceType:
		return fs.ModeDevice | fs.ModeCharDevice
	case DirectoryType:
		return fs.ModeDir
	case RegularFileType:
		return 0
	case SocketDGramType, SocketStreamType:
		return fs.ModeSocket
	case SymbolicLinkType:
		return fs.ModeSymlink
	default:
		return fs.ModeIrregular
	}
}

package wasi

import (
	"context"
	"path"
	"strings"

	"github.com/stealthrocket/wasi-aot/internal/descriptor"
)

// File is an interface used as constraint in the CapabilityTable generic
// type parameter.
//
// File implements the WASI functions which operate on a host file. Rights are
// checked by the CapabilityTable before any of these methods is invoked.
type File[T any] interface {
	FDAdvise(ctx context.Context, offset, length FileSize, advice Advice) Errno

	FDAllocate(ctx context.Context, offset, length FileSize) Errno

	FDClose(ctx context.Context) Errno

	FDDataSync(ctx context.Context) Errno

	// FDStatGet returns the file type and the flags currently set on the
	// host file. Rights are not known to the file and are left zero.
	FDStatGet(ctx context.Context) (FDStat, Errno)

	FDStatSetFlags(ctx context.Context, flags FDFlags) Errno

	FDFileStatGet(ctx context.Context) (FileStat, Errno)

	FDFileStatSetSize(ctx context.Context, size FileSize) Errno

	FDFileStatSetTimes(ctx context.Context, accessTime, modifyTime Timestamp, flags FSTFlags) Errno

	FDPread(ctx context.Context, iovecs []IOVec, offset FileSize) (Size, Errno)

	FDPwrite(ctx context.Context, iovecs []IOVec, offset FileSize) (Size, Errno)

	FDRead(ctx context.Context, iovecs []IOVec) (Size, Errno)

	FDWrite(ctx context.Context, iovecs []IOVec) (Size, Errno)

	FDSync(ctx context.Context) Errno

	FDSeek(ctx context.Context, delta FileDelta, whence Whence) (FileSize, Errno)

	FDOpenDir(ctx context.Context) (Dir, Errno)

	PathCreateDirectory(ctx context.Context, path string) Errno

	PathFileStatGet(ctx context.Context, flags LookupFlags, path string) (FileStat, Errno)

	PathFileStatSetTimes(ctx context.Context, lookupFlags LookupFlags, path string, accessTime, modifyTime Timestamp, flags FSTFlags) Errno

	PathLink(ctx context.Context, flags LookupFlags, oldPath string, newFile T, newPath string) Errno

	PathOpen(ctx context.Context, lookupFlags LookupFlags, path string, openFlags OpenFlags, rightsBase, rightsInheriting Rights, fdFlags FDFlags) (T, Errno)

	PathReadLink(ctx context.Context, path string, buffer []byte) (int, Errno)

	PathRemoveDirectory(ctx context.Context, path string) Errno

	PathRename(ctx context.Context, oldPath string, newFile T, newPath string) Errno

	PathSymlink(ctx context.Context, oldPath string, newPath string) Errno

	PathUnlinkFile(ctx context.Context, path string) Errno
}

// Dir instances are returned by File.FDOpenDir and used to iterate over the
// entries of a directory.
type Dir interface {
	// FDReadDir fills entries starting at cookie. Entries are only added
	// while their encoded size (SizeOfDirent plus the name) fits in
	// bufferSizeBytes.
	FDReadDir(ctx context.Context, entries []DirEntry, cookie DirCookie, bufferSizeBytes int) (int, Errno)

	FDCloseDir(ctx context.Context) Errno
}

// CapabilityTable maintains the set of descriptors visible to a guest, the
// rights attached to each of them, and the pre-opened directories.
//
// Guest descriptor numbers are virtual: they are allocated by the table and
// never match the host descriptors of the underlying files.
//
// The type partially implements the System interface, it is common to embed
// a CapabilityTable field in a struct in order to inherit its methods:
//
//	type System struct {
//		wasi.CapabilityTable[FD]
//		...
//	}
type CapabilityTable[T File[T]] struct {
	files    descriptor.Table[FD, capability[T]]
	preopens descriptor.Table[FD, string]
	dirs     map[FD]Dir
}

type capability[T File[T]] struct {
	file T
	stat FDStat
}

// Close closes every descriptor of the table.
func (t *CapabilityTable[T]) Close(ctx context.Context) error {
	t.files.Range(func(fd FD, c capability[T]) bool {
		c.file.FDClose(ctx)
		return true
	})
	t.files.Reset()
	t.preopens.Reset()
	for fd, dir := range t.dirs {
		dir.FDCloseDir(ctx)
		delete(t.dirs, fd)
	}
	return nil
}

// Preopen registers file as a pre-opened capability named path. Pre-opens are
// assigned descriptor numbers in registration order.
func (t *CapabilityTable[T]) Preopen(file T, path string, stat FDStat) FD {
	fd := t.Register(file, stat)
	t.preopens.Assign(fd, path)
	return fd
}

// Register installs file at the lowest free descriptor number.
func (t *CapabilityTable[T]) Register(file T, stat FDStat) FD {
	stat.RightsBase &= AllRights
	stat.RightsInheriting &= AllRights
	return t.files.Insert(capability[T]{file: file, stat: stat})
}

// LookupFD returns the file registered at fd after checking that it carries
// all the requested rights.
func (t *CapabilityTable[T]) LookupFD(fd FD, rights Rights) (file T, stat FDStat, errno Errno) {
	c, errno := t.lookupFD(fd, rights)
	if c != nil {
		file, stat = c.file, c.stat
	}
	return file, stat, errno
}

// RightsOf returns the rights and file type recorded for fd.
func (t *CapabilityTable[T]) RightsOf(fd FD) (FDStat, Errno) {
	c, errno := t.lookupFD(fd, 0)
	if errno != ESUCCESS {
		return FDStat{}, errno
	}
	return c.stat, ESUCCESS
}

// SetRights narrows the rights of fd. Adding rights is not permitted.
func (t *CapabilityTable[T]) SetRights(fd FD, rightsBase, rightsInheriting Rights) Errno {
	c, errno := t.lookupFD(fd, 0)
	if errno != ESUCCESS {
		return errno
	}
	rightsBase &= AllRights
	rightsInheriting &= AllRights
	if (rightsBase&^c.stat.RightsBase) != 0 || (rightsInheriting&^c.stat.RightsInheriting) != 0 {
		return ENOTCAPABLE
	}
	c.stat.RightsBase = rightsBase
	c.stat.RightsInheriting = rightsInheriting
	return ESUCCESS
}

// PreopenInfo returns the description of a pre-opened directory. The standard
// streams are registered as pre-opens but are not directories, EBADF is
// returned for them as for any descriptor that is not a pre-open.
func (t *CapabilityTable[T]) PreopenInfo(fd FD) (PreStat, Errno) {
	name, errno := t.lookupPreopenPath(fd)
	if errno != ESUCCESS {
		return PreStat{}, errno
	}
	return PreStat{Type: PreOpenDir, NameLength: Size(len(name))}, ESUCCESS
}

func (t *CapabilityTable[T]) isPreopen(fd FD) bool {
	return t.preopens.Access(fd) != nil
}

func (t *CapabilityTable[T]) lookupFD(fd FD, rights Rights) (*capability[T], Errno) {
	c := t.files.Access(fd)
	if c == nil {
		return nil, EBADF
	}
	if !c.stat.RightsBase.Has(rights) {
		return nil, ENOTCAPABLE
	}
	return c, ESUCCESS
}

// lookupIO is lookupFD for data transfers. A descriptor lacking the read or
// write right it is used for fails with EBADF, as a host descriptor opened
// with the wrong access mode would. Other missing rights are ENOTCAPABLE.
func (t *CapabilityTable[T]) lookupIO(fd FD, rights Rights) (*capability[T], Errno) {
	c, errno := t.lookupFD(fd, rights)
	if errno == ENOTCAPABLE {
		access := rights & (FDReadRight | FDWriteRight)
		if !t.files.Access(fd).stat.RightsBase.Has(access) {
			return nil, EBADF
		}
	}
	return c, errno
}

func (t *CapabilityTable[T]) lookupPreopenPath(fd FD) (string, Errno) {
	name, ok := t.preopens.Lookup(fd)
	if !ok {
		return "", EBADF
	}
	c := t.files.Access(fd)
	if c == nil || c.stat.FileType != DirectoryType {
		return "", EBADF
	}
	return name, ESUCCESS
}

func (t *CapabilityTable[T]) FDAdvise(ctx context.Context, fd FD, offset FileSize, length FileSize, advice Advice) Errno {
	c, errno := t.lookupFD(fd, FDAdviseRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDAdvise(ctx, offset, length, advice)
}

func (t *CapabilityTable[T]) FDAllocate(ctx context.Context, fd FD, offset FileSize, length FileSize) Errno {
	c, errno := t.lookupFD(fd, FDAllocateRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDAllocate(ctx, offset, length)
}

func (t *CapabilityTable[T]) FDClose(ctx context.Context, fd FD) Errno {
	c, errno := t.lookupFD(fd, 0)
	if errno != ESUCCESS {
		return errno
	}
	// c points into the table and is erased by Delete.
	file := c.file
	t.files.Delete(fd)
	t.preopens.Delete(fd)
	if dir := t.dirs[fd]; dir != nil {
		delete(t.dirs, fd)
		dir.FDCloseDir(ctx)
	}
	return file.FDClose(ctx)
}

func (t *CapabilityTable[T]) FDDataSync(ctx context.Context, fd FD) Errno {
	c, errno := t.lookupFD(fd, FDDataSyncRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDDataSync(ctx)
}

// FDStatGet combines the rights recorded in the table with the file type and
// flags reported by the host file.
func (t *CapabilityTable[T]) FDStatGet(ctx context.Context, fd FD) (FDStat, Errno) {
	c, errno := t.lookupFD(fd, 0)
	if errno != ESUCCESS {
		return FDStat{}, errno
	}
	stat, errno := c.file.FDStatGet(ctx)
	if errno != ESUCCESS {
		return FDStat{}, errno
	}
	stat.RightsBase = c.stat.RightsBase
	stat.RightsInheriting = c.stat.RightsInheriting
	c.stat.Flags = stat.Flags
	return stat, ESUCCESS
}

func (t *CapabilityTable[T]) FDStatSetFlags(ctx context.Context, fd FD, flags FDFlags) Errno {
	c, errno := t.lookupFD(fd, FDStatSetFlagsRight)
	if errno != ESUCCESS {
		return errno
	}
	if errno := c.file.FDStatSetFlags(ctx, flags); errno != ESUCCESS {
		return errno
	}
	c.stat.Flags = flags
	return ESUCCESS
}

func (t *CapabilityTable[T]) FDStatSetRights(ctx context.Context, fd FD, rightsBase, rightsInheriting Rights) Errno {
	return t.SetRights(fd, rightsBase, rightsInheriting)
}

func (t *CapabilityTable[T]) FDFileStatGet(ctx context.Context, fd FD) (FileStat, Errno) {
	c, errno := t.lookupFD(fd, FDFileStatGetRight)
	if errno != ESUCCESS {
		return FileStat{}, errno
	}
	s, errno := c.file.FDFileStatGet(ctx)
	if errno != ESUCCESS {
		return FileStat{}, errno
	}
	if c.stat.FileType == CharacterDeviceType && fd <= 2 {
		s.Size = 0
		s.AccessTime = 0
		s.ModifyTime = 0
		s.ChangeTime = 0
	}
	return s, ESUCCESS
}

func (t *CapabilityTable[T]) FDFileStatSetSize(ctx context.Context, fd FD, size FileSize) Errno {
	c, errno := t.lookupFD(fd, FDFileStatSetSizeRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDFileStatSetSize(ctx, size)
}

func (t *CapabilityTable[T]) FDFileStatSetTimes(ctx context.Context, fd FD, accessTime, modifyTime Timestamp, flags FSTFlags) Errno {
	c, errno := t.lookupFD(fd, FDFileStatSetTimesRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDFileStatSetTimes(ctx, accessTime, modifyTime, flags)
}

func (t *CapabilityTable[T]) FDPreStatGet(ctx context.Context, fd FD) (PreStat, Errno) {
	return t.PreopenInfo(fd)
}

func (t *CapabilityTable[T]) FDPreStatDirName(ctx context.Context, fd FD) (string, Errno) {
	return t.lookupPreopenPath(fd)
}

func (t *CapabilityTable[T]) FDPread(ctx context.Context, fd FD, iovecs []IOVec, offset FileSize) (Size, Errno) {
	c, errno := t.lookupIO(fd, FDReadRight|FDSeekRight)
	if errno != ESUCCESS {
		return 0, errno
	}
	return c.file.FDPread(ctx, iovecs, offset)
}

func (t *CapabilityTable[T]) FDPwrite(ctx context.Context, fd FD, iovecs []IOVec, offset FileSize) (Size, Errno) {
	c, errno := t.lookupIO(fd, FDWriteRight|FDSeekRight)
	if errno != ESUCCESS {
		return 0, errno
	}
	return c.file.FDPwrite(ctx, iovecs, offset)
}

func (t *CapabilityTable[T]) FDRead(ctx context.Context, fd FD, iovecs []IOVec) (Size, Errno) {
	c, errno := t.lookupIO(fd, FDReadRight)
	if errno != ESUCCESS {
		return 0, errno
	}
	return c.file.FDRead(ctx, iovecs)
}

func (t *CapabilityTable[T]) FDWrite(ctx context.Context, fd FD, iovecs []IOVec) (Size, Errno) {
	c, errno := t.lookupIO(fd, FDWriteRight)
	if errno != ESUCCESS {
		return 0, errno
	}
	return c.file.FDWrite(ctx, iovecs)
}

func (t *CapabilityTable[T]) FDReadDir(ctx context.Context, fd FD, entries []DirEntry, cookie DirCookie, bufferSizeBytes int) (int, Errno) {
	c, errno := t.lookupFD(fd, FDReadDirRight)
	if errno != ESUCCESS {
		return 0, errno
	}
	if len(entries) == 0 {
		return 0, EINVAL
	}
	d := t.dirs[fd]
	if d == nil {
		d, errno = c.file.FDOpenDir(ctx)
		if errno != ESUCCESS {
			return 0, errno
		}
		if t.dirs == nil {
			t.dirs = make(map[FD]Dir)
		}
		t.dirs[fd] = d
	}
	return d.FDReadDir(ctx, entries, cookie, bufferSizeBytes)
}

// FDRenumber closes the descriptor at to and moves from in its place. Both
// descriptors must be open, and pre-opens cannot be renumbered.
func (t *CapabilityTable[T]) FDRenumber(ctx context.Context, from, to FD) Errno {
	if t.isPreopen(from) || t.isPreopen(to) {
		return ENOTSUP
	}
	c, errno := t.lookupFD(from, 0)
	if errno != ESUCCESS {
		return errno
	}
	if t.files.Access(to) == nil {
		return EBADF
	}
	if from == to {
		return ESUCCESS
	}
	d := t.dirs[from]
	if prev, replaced := t.files.Assign(to, *c); replaced {
		prev.file.FDClose(ctx)
	}
	if dir := t.dirs[to]; dir != nil {
		delete(t.dirs, to)
		dir.FDCloseDir(ctx)
	}
	t.files.Delete(from)
	if d != nil {
		delete(t.dirs, from)
		t.dirs[to] = d
	}
	return ESUCCESS
}

func (t *CapabilityTable[T]) FDSync(ctx context.Context, fd FD) Errno {
	c, errno := t.lookupFD(fd, FDSyncRight)
	if errno != ESUCCESS {
		return errno
	}
	return c.file.FDSync(ctx)
}

func (t *CapabilityTable[T]) FDSeek(ctx context.Context, fd FD, delta FileDelta, whence Whence) (FileSize, Errno) {
	// FDTellRight allows seeking in a way that leaves the offset unchanged.
	c, errno := t.lookupFD(fd, FDSeekRight)
	if errno != ESUCCESS {
		if errno != ENOTCAPABLE || delta != 0 || whence != SeekCurrent {
			return 0, errno
		}
		c, errno = t.lookupFD(fd, FDTellRight)
		if errno != ESUCCESS {
			return 0, errno
		}
	}
	return c.file.FDSeek(ctx, delta, whence)
}

func (t *CapabilityTable[T]) FDTell(ctx context.Context, fd FD) (FileSize, Errno) {
	return t.FDSeek(ctx, fd, 0, SeekCurrent)
}

func (t *CapabilityTable[T]) PathCreateDirectory(ctx context.Context, fd FD, path string) Errno {
	d, errno := t.lookupDir(fd, PathCreateDirectoryRight, path)
	if errno != ESUCCESS {
		return errno
	}
	return d.file.PathCreateDirectory(ctx, path)
}

func (t *CapabilityTable[T]) PathFileStatGet(ctx context.Context, fd FD, lookupFlags LookupFlags, path string) (FileStat, Errno) {
	d, errno := t.lookupDir(fd, PathFileStatGetRight, path)
	if errno != ESUCCESS {
		return FileStat{}, errno
	}
	return d.file.PathFileStatGet(ctx, lookupFlags, path)
}

func (t *CapabilityTable[T]) PathFileStatSetTimes(ctx context.Context, fd FD, lookupFlags LookupFlags, path string, accessTime, modifyTime Timestamp, fstFlags FSTFlags) Errno {
	d, errno := t.lookupDir(fd, PathFileStatSetTimesRight, path)
	if errno != ESUCCESS {
		return errno
	}
	return d.file.PathFileStatSetTimes(ctx, lookupFlags, path, accessTime, modifyTime, fstFlags)
}

func (t *CapabilityTable[T]) PathLink(ctx context.Context, fd FD, flags LookupFlags, oldPath string, newFD FD, newPath string) Errno {
	oldDir, errno := t.lookupDir(fd, PathLinkSourceRight, oldPath)
	if errno != ESUCCESS {
		return errno
	}
	newDir, errno := t.lookupDir(newFD, PathLinkTargetRight, newPath)
	if errno != ESUCCESS {
		return errno
	}
	return oldDir.file.PathLink(ctx, flags, oldPath, newDir.file, newPath)
}

// PathOpen opens path relative to the directory at fd and registers the new
// file. The requested rights must be a subset of the directory's inheriting
// rights, they are recorded on the new descriptor.
func (t *CapabilityTable[T]) PathOpen(ctx context.Context, fd FD, lookupFlags LookupFlags, path string, openFlags OpenFlags, rightsBase, rightsInheriting Rights, fdFlags FDFlags) (FD, Errno) {
	d, errno := t.lookupDir(fd, PathOpenRight, path)
	if errno != ESUCCESS {
		return -1, errno
	}

	rightsBase &= AllRights
	rightsInheriting &= AllRights
	if (rightsBase&^d.stat.RightsInheriting) != 0 || (rightsInheriting&^d.stat.RightsInheriting) != 0 {
		return -1, ENOTCAPABLE
	}
	if openFlags.Has(OpenDirectory) {
		rightsBase &= DirectoryRights
	}
	if openFlags.Has(OpenCreate) && !d.stat.RightsBase.Has(PathCreateFileRight) {
		return -1, ENOTCAPABLE
	}
	if openFlags.Has(OpenTruncate) && !d.stat.RightsBase.Has(PathFileStatSetSizeRight) {
		return -1, ENOTCAPABLE
	}

	newFile, errno := d.file.PathOpen(ctx, lookupFlags, path, openFlags, rightsBase, rightsInheriting, fdFlags)
	if errno != ESUCCESS {
		return -1, errno
	}

	stat, errno := newFile.FDStatGet(ctx)
	if errno != ESUCCESS {
		newFile.FDClose(ctx)
		return -1, errno
	}
	if stat.FileType != DirectoryType {
		rightsInheriting = 0
	}
	stat.Flags = fdFlags
	stat.RightsBase = rightsBase
	stat.RightsInheriting = rightsInheriting
	return t.Register(newFile, stat), ESUCCESS
}

func (t *CapabilityTable[T]) PathReadLink(ctx context.Context, fd FD, path string, buffer []byte) (int, Errno) {
	d, errno := t.lookupDir(fd, PathReadLinkRight, path)
	if errno != ESUCCESS {
		return 0, errno
	}
	return d.file.PathReadLink(ctx, path, buffer)
}

func (t *CapabilityTable[T]) PathRemoveDirectory(ctx context.Context, fd FD, path string) Errno {
	d, errno := t.lookupDir(fd, PathRemoveDirectoryRight, path)
	if errno != ESUCCESS {
		return errno
	}
	return d.file.PathRemoveDirectory(ctx, path)
}

func (t *CapabilityTable[T]) PathRename(ctx context.Context, fd FD, oldPath string, newFD FD, newPath string) Errno {
	oldDir, errno := t.lookupDir(fd, PathRenameSourceRight, oldPath)
	if errno != ESUCCESS {
		return errno
	}
	newDir, errno := t.lookupDir(newFD, PathRenameTargetRight, newPath)
	if errno != ESUCCESS {
		return errno
	}
	return oldDir.file.PathRename(ctx, oldPath, newDir.file, newPath)
}

func (t *CapabilityTable[T]) PathSymlink(ctx context.Context, oldPath string, fd FD, newPath string) Errno {
	d, errno := t.lookupDir(fd, PathSymlinkRight, newPath)
	if errno != ESUCCESS {
		return errno
	}
	return d.file.PathSymlink(ctx, oldPath, newPath)
}

func (t *CapabilityTable[T]) PathUnlinkFile(ctx context.Context, fd FD, path string) Errno {
	d, errno := t.lookupDir(fd, PathUnlinkFileRight, path)
	if errno != ESUCCESS {
		return errno
	}
	return d.file.PathUnlinkFile(ctx, path)
}

// lookupDir returns the directory at fd if it has the rights, and path stays
// beneath it.
func (t *CapabilityTable[T]) lookupDir(fd FD, rights Rights, p string) (*capability[T], Errno) {
	d, errno := t.lookupFD(fd, rights)
	if errno != ESUCCESS {
		return nil, errno
	}
	if d.stat.FileType != DirectoryType {
		return nil, ENOTDIR
	}
	if !isRelativePath(p) {
		return nil, EPERM
	}
	return d, ESUCCESS
}

// isRelativePath reports whether p names a location beneath the directory it
// is resolved against.
func isRelativePath(p string) bool {
	if strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

package abi

import (
	"context"
	"encoding/binary"

	"github.com/stealthrocket/wasi-aot"
	"github.com/tetratelabs/wazero/sys"
)

func (i *Instance) ArgsSizesGet(ctx context.Context, argcPtr, bufSizePtr int32) int32 {
	count, size, errno := i.system.ArgsSizesGet(ctx)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(argcPtr), uint32(count))
	i.memory.StoreUint32(uint32(bufSizePtr), uint32(size))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) ArgsGet(ctx context.Context, argvPtr, bufPtr int32) int32 {
	args, errno := i.system.ArgsGet(ctx)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.storeStrings(args, argvPtr, bufPtr)
	return ret(wasi.ESUCCESS)
}

func (i *Instance) EnvironSizesGet(ctx context.Context, envcPtr, bufSizePtr int32) int32 {
	count, size, errno := i.system.EnvironSizesGet(ctx)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(envcPtr), uint32(count))
	i.memory.StoreUint32(uint32(bufSizePtr), uint32(size))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) EnvironGet(ctx context.Context, envvPtr, bufPtr int32) int32 {
	env, errno := i.system.EnvironGet(ctx)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.storeStrings(env, envvPtr, bufPtr)
	return ret(wasi.ESUCCESS)
}

// storeStrings copies values contiguously at bufPtr, each terminated by a
// null byte, and writes the offset of each value in the array at arrayPtr.
func (i *Instance) storeStrings(values []string, arrayPtr, bufPtr int32) {
	count, size := wasi.SizesGet(values)
	array := i.memory.Read(uint32(arrayPtr), uint32(count)*4)
	buf := i.memory.Read(uint32(bufPtr), uint32(size))
	offset := 0
	for j, value := range values {
		binary.LittleEndian.PutUint32(array[4*j:], uint32(bufPtr)+uint32(offset))
		offset += copy(buf[offset:], value)
		buf[offset] = 0
		offset++
	}
}

func (i *Instance) ClockResGet(ctx context.Context, clockID, resolutionPtr int32) int32 {
	t, errno := i.system.ClockResGet(ctx, wasi.ClockID(clockID))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint64(uint32(resolutionPtr), uint64(t))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) ClockTimeGet(ctx context.Context, clockID int32, precision int64, timePtr int32) int32 {
	t, errno := i.system.ClockTimeGet(ctx, wasi.ClockID(clockID), wasi.Timestamp(precision))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint64(uint32(timePtr), uint64(t))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDAdvise(ctx context.Context, fd int32, offset, length int64, advice int32) int32 {
	return ret(i.system.FDAdvise(ctx, wasi.FD(fd), wasi.FileSize(offset), wasi.FileSize(length), wasi.Advice(advice)))
}

func (i *Instance) FDAllocate(ctx context.Context, fd int32, offset, length int64) int32 {
	return ret(i.system.FDAllocate(ctx, wasi.FD(fd), wasi.FileSize(offset), wasi.FileSize(length)))
}

func (i *Instance) FDClose(ctx context.Context, fd int32) int32 {
	return ret(i.system.FDClose(ctx, wasi.FD(fd)))
}

func (i *Instance) FDDataSync(ctx context.Context, fd int32) int32 {
	return ret(i.system.FDDataSync(ctx, wasi.FD(fd)))
}

func (i *Instance) FDStatGet(ctx context.Context, fd, statPtr int32) int32 {
	stat, errno := i.system.FDStatGet(ctx, wasi.FD(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	putFDStat(i.memory.Read(uint32(statPtr), wasi.SizeOfFDStat), stat)
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDStatSetFlags(ctx context.Context, fd, flags int32) int32 {
	return ret(i.system.FDStatSetFlags(ctx, wasi.FD(fd), wasi.FDFlags(flags)))
}

func (i *Instance) FDStatSetRights(ctx context.Context, fd int32, rightsBase, rightsInheriting int64) int32 {
	return ret(i.system.FDStatSetRights(ctx, wasi.FD(fd), wasi.Rights(rightsBase), wasi.Rights(rightsInheriting)))
}

func (i *Instance) FDFileStatGet(ctx context.Context, fd, statPtr int32) int32 {
	stat, errno := i.system.FDFileStatGet(ctx, wasi.FD(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	putFileStat(i.memory.Read(uint32(statPtr), wasi.SizeOfFileStat), stat)
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDFileStatSetSize(ctx context.Context, fd int32, size int64) int32 {
	return ret(i.system.FDFileStatSetSize(ctx, wasi.FD(fd), wasi.FileSize(size)))
}

func (i *Instance) FDFileStatSetTimes(ctx context.Context, fd int32, accessTime, modifyTime int64, flags int32) int32 {
	return ret(i.system.FDFileStatSetTimes(ctx, wasi.FD(fd), wasi.Timestamp(accessTime), wasi.Timestamp(modifyTime), wasi.FSTFlags(flags)))
}

func (i *Instance) FDPread(ctx context.Context, fd, iovsPtr, iovsLen int32, offset int64, nreadPtr int32) int32 {
	n, errno := i.system.FDPread(ctx, wasi.FD(fd), i.iovecs(iovsPtr, iovsLen), wasi.FileSize(offset))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(nreadPtr), uint32(n))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDPreStatGet(ctx context.Context, fd, prestatPtr int32) int32 {
	prestat, errno := i.system.FDPreStatGet(ctx, wasi.FD(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	putPreStat(i.memory.Read(uint32(prestatPtr), wasi.SizeOfPreStat), prestat)
	return ret(wasi.ESUCCESS)
}

// FDPreStatDirName copies the name of the pre-opened directory at fd, it is
// truncated if the buffer is too short.
func (i *Instance) FDPreStatDirName(ctx context.Context, fd, bufPtr, bufLen int32) int32 {
	name, errno := i.system.FDPreStatDirName(ctx, wasi.FD(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	if uint32(len(name)) > uint32(bufLen) {
		name = name[:uint32(bufLen)]
	}
	i.memory.Write(uint32(bufPtr), []byte(name))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDPwrite(ctx context.Context, fd, iovsPtr, iovsLen int32, offset int64, nwrittenPtr int32) int32 {
	n, errno := i.system.FDPwrite(ctx, wasi.FD(fd), i.iovecs(iovsPtr, iovsLen), wasi.FileSize(offset))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(nwrittenPtr), uint32(n))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDRead(ctx context.Context, fd, iovsPtr, iovsLen, nreadPtr int32) int32 {
	n, errno := i.system.FDRead(ctx, wasi.FD(fd), i.iovecs(iovsPtr, iovsLen))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(nreadPtr), uint32(n))
	return ret(wasi.ESUCCESS)
}

// FDReadDir fills the buffer with whole directory entries starting at
// cookie. The number of bytes used is less than the buffer size only when
// the end of the directory was reached, or when the next entry does not fit.
func (i *Instance) FDReadDir(ctx context.Context, fd, bufPtr, bufLen int32, cookie int64, bufUsedPtr int32) int32 {
	if i.dirent == nil {
		i.dirent = make([]wasi.DirEntry, 256)
	}
	buf := i.bytes(bufPtr, bufLen)
	next := wasi.DirCookie(cookie)
	used := 0

	for used < len(buf) {
		n, errno := i.system.FDReadDir(ctx, wasi.FD(fd), i.dirent, next, len(buf)-used)
		if errno != wasi.ESUCCESS {
			return ret(errno)
		}
		if n == 0 {
			break
		}
		for _, d := range i.dirent[:n] {
			used += putDirent(buf[used:], d)
			next = d.Next
		}
	}

	for j := range i.dirent {
		i.dirent[j].Name = nil
	}
	i.memory.StoreUint32(uint32(bufUsedPtr), uint32(used))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDRenumber(ctx context.Context, from, to int32) int32 {
	return ret(i.system.FDRenumber(ctx, wasi.FD(from), wasi.FD(to)))
}

func (i *Instance) FDSeek(ctx context.Context, fd int32, offset int64, whence, newOffsetPtr int32) int32 {
	pos, errno := i.system.FDSeek(ctx, wasi.FD(fd), wasi.FileDelta(offset), wasi.Whence(whence))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint64(uint32(newOffsetPtr), uint64(pos))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDSync(ctx context.Context, fd int32) int32 {
	return ret(i.system.FDSync(ctx, wasi.FD(fd)))
}

func (i *Instance) FDTell(ctx context.Context, fd, offsetPtr int32) int32 {
	pos, errno := i.system.FDTell(ctx, wasi.FD(fd))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint64(uint32(offsetPtr), uint64(pos))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) FDWrite(ctx context.Context, fd, iovsPtr, iovsLen, nwrittenPtr int32) int32 {
	n, errno := i.system.FDWrite(ctx, wasi.FD(fd), i.iovecs(iovsPtr, iovsLen))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(nwrittenPtr), uint32(n))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) PathCreateDirectory(ctx context.Context, fd, pathPtr, pathLen int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathCreateDirectory(ctx, wasi.FD(fd), path))
}

func (i *Instance) PathFileStatGet(ctx context.Context, fd, lookupFlags, pathPtr, pathLen, statPtr int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	stat, errno := i.system.PathFileStatGet(ctx, wasi.FD(fd), wasi.LookupFlags(lookupFlags), path)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	putFileStat(i.memory.Read(uint32(statPtr), wasi.SizeOfFileStat), stat)
	return ret(wasi.ESUCCESS)
}

func (i *Instance) PathFileStatSetTimes(ctx context.Context, fd, lookupFlags, pathPtr, pathLen int32, accessTime, modifyTime int64, flags int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathFileStatSetTimes(ctx, wasi.FD(fd), wasi.LookupFlags(lookupFlags), path, wasi.Timestamp(accessTime), wasi.Timestamp(modifyTime), wasi.FSTFlags(flags)))
}

func (i *Instance) PathLink(ctx context.Context, oldFD, oldFlags, oldPathPtr, oldPathLen, newFD, newPathPtr, newPathLen int32) int32 {
	oldPath, newPath, errno := i.loadPaths(oldPathPtr, oldPathLen, newPathPtr, newPathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathLink(ctx, wasi.FD(oldFD), wasi.LookupFlags(oldFlags), oldPath, wasi.FD(newFD), newPath))
}

func (i *Instance) PathOpen(ctx context.Context, fd, dirFlags, pathPtr, pathLen, openFlags int32, rightsBase, rightsInheriting int64, fdFlags, fdPtr int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	newFD, errno := i.system.PathOpen(ctx, wasi.FD(fd), wasi.LookupFlags(dirFlags), path, wasi.OpenFlags(openFlags), wasi.Rights(rightsBase), wasi.Rights(rightsInheriting), wasi.FDFlags(fdFlags))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(fdPtr), uint32(newFD))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) PathReadLink(ctx context.Context, fd, pathPtr, pathLen, bufPtr, bufLen, bufUsedPtr int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	n, errno := i.system.PathReadLink(ctx, wasi.FD(fd), path, i.bytes(bufPtr, bufLen))
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	i.memory.StoreUint32(uint32(bufUsedPtr), uint32(n))
	return ret(wasi.ESUCCESS)
}

func (i *Instance) PathRemoveDirectory(ctx context.Context, fd, pathPtr, pathLen int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathRemoveDirectory(ctx, wasi.FD(fd), path))
}

func (i *Instance) PathRename(ctx context.Context, fd, oldPathPtr, oldPathLen, newFD, newPathPtr, newPathLen int32) int32 {
	oldPath, newPath, errno := i.loadPaths(oldPathPtr, oldPathLen, newPathPtr, newPathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathRename(ctx, wasi.FD(fd), oldPath, wasi.FD(newFD), newPath))
}

func (i *Instance) PathSymlink(ctx context.Context, oldPathPtr, oldPathLen, fd, newPathPtr, newPathLen int32) int32 {
	oldPath, newPath, errno := i.loadPaths(oldPathPtr, oldPathLen, newPathPtr, newPathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathSymlink(ctx, oldPath, wasi.FD(fd), newPath))
}

func (i *Instance) PathUnlinkFile(ctx context.Context, fd, pathPtr, pathLen int32) int32 {
	path, errno := i.loadPath(pathPtr, pathLen)
	if errno != wasi.ESUCCESS {
		return ret(errno)
	}
	return ret(i.system.PathUnlinkFile(ctx, wasi.FD(fd), path))
}

// ProcExit gives the system a chance to observe the exit code, then unwinds
// the guest with a *sys.ExitError. It never returns.
func (i *Instance) ProcExit(ctx context.Context, code int32) {
	i.system.ProcExit(ctx, wasi.ExitCode(code))
	panic(sys.NewExitError(uint32(code)))
}

func (i *Instance) SchedYield(ctx context.Context) int32 {
	return ret(i.system.SchedYield(ctx))
}

func (i *Instance) RandomGet(ctx context.Context, bufPtr, bufLen int32) int32 {
	return ret(i.system.RandomGet(ctx, i.bytes(bufPtr, bufLen)))
}

// The functions below are not supported, they return ENOSYS without
// accessing the guest memory.

func (i *Instance) PollOneOff(ctx context.Context, inPtr, outPtr, nsubscriptions, neventsPtr int32) int32 {
	return ret(wasi.ENOSYS)
}

func (i *Instance) ProcRaise(ctx context.Context, signal int32) int32 {
	return ret(wasi.ENOSYS)
}

func (i *Instance) SockAccept(ctx context.Context, fd, flags, connFDPtr int32) int32 {
	return ret(wasi.ENOSYS)
}

func (i *Instance) SockRecv(ctx context.Context, fd, riDataPtr, riDataLen, riFlags, roDataLenPtr, roFlagsPtr int32) int32 {
	return ret(wasi.ENOSYS)
}

func (i *Instance) SockSend(ctx context.Context, fd, siDataPtr, siDataLen, siFlags, soDataLenPtr int32) int32 {
	return ret(wasi.ENOSYS)
}

func (i *Instance) SockShutdown(ctx context.Context, fd, how int32) int32 {
	return ret(wasi.ENOSYS)
}

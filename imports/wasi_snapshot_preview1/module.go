package wasi_snapshot_preview1

import (
	"context"
	"fmt"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/stealthrocket/wasi-aot/memory"
	"github.com/stealthrocket/wazergo"
	. "github.com/stealthrocket/wazergo/types"
	"github.com/tetratelabs/wazero/api"
)

// HostModuleName is the name of the WASI preview 1 host module.
const HostModuleName = abi.SnapshotPreview1

// HostModule is a wazero host module for WASI preview 1.
//
// The host module does not implement WASI on its own. Each function decodes
// its arguments from the wazero stack and calls the method of the same name
// on an abi.Instance, which takes care of guest memory access and calls out
// to the wasi.System provided via the WithWASI option.
var HostModule wazergo.HostModule[*Module] = hostModule(abi.SnapshotPreview1)

// UnstableHostModule is the same host module exported under the name used
// by the first WASI snapshot.
var UnstableHostModule wazergo.HostModule[*Module] = hostModule(abi.Unstable)

var functions = wazergo.Functions[*Module]{
	"args_get":                shim(wazergo.F2((*Module).ArgsGet)),
	"args_sizes_get":          shim(wazergo.F2((*Module).ArgsSizesGet)),
	"environ_get":             shim(wazergo.F2((*Module).EnvironGet)),
	"environ_sizes_get":       shim(wazergo.F2((*Module).EnvironSizesGet)),
	"clock_res_get":           shim(wazergo.F2((*Module).ClockResGet)),
	"clock_time_get":          shim(wazergo.F3((*Module).ClockTimeGet)),
	"fd_advise":               shim(wazergo.F4((*Module).FDAdvise)),
	"fd_allocate":             shim(wazergo.F3((*Module).FDAllocate)),
	"fd_close":                shim(wazergo.F1((*Module).FDClose)),
	"fd_datasync":             shim(wazergo.F1((*Module).FDDataSync)),
	"fd_fdstat_get":           shim(wazergo.F2((*Module).FDStatGet)),
	"fd_fdstat_set_flags":     shim(wazergo.F2((*Module).FDStatSetFlags)),
	"fd_fdstat_set_rights":    shim(wazergo.F3((*Module).FDStatSetRights)),
	"fd_filestat_get":         shim(wazergo.F2((*Module).FDFileStatGet)),
	"fd_filestat_set_size":    shim(wazergo.F2((*Module).FDFileStatSetSize)),
	"fd_filestat_set_times":   shim(wazergo.F4((*Module).FDFileStatSetTimes)),
	"fd_pread":                shim(wazergo.F5((*Module).FDPread)),
	"fd_prestat_get":          shim(wazergo.F2((*Module).FDPreStatGet)),
	"fd_prestat_dir_name":     shim(wazergo.F3((*Module).FDPreStatDirName)),
	"fd_pwrite":               shim(wazergo.F5((*Module).FDPwrite)),
	"fd_read":                 shim(wazergo.F4((*Module).FDRead)),
	"fd_readdir":              shim(wazergo.F5((*Module).FDReadDir)),
	"fd_renumber":             shim(wazergo.F2((*Module).FDRenumber)),
	"fd_seek":                 shim(wazergo.F4((*Module).FDSeek)),
	"fd_sync":                 shim(wazergo.F1((*Module).FDSync)),
	"fd_tell":                 shim(wazergo.F2((*Module).FDTell)),
	"fd_write":                shim(wazergo.F4((*Module).FDWrite)),
	"path_create_directory":   shim(wazergo.F3((*Module).PathCreateDirectory)),
	"path_filestat_get":       shim(wazergo.F5((*Module).PathFileStatGet)),
	"path_filestat_set_times": shim(wazergo.F7((*Module).PathFileStatSetTimes)),
	"path_link":               shim(wazergo.F7((*Module).PathLink)),
	"path_open":               shim(pathOpenShape((*Module).PathOpen)),
	"path_readlink":           shim(wazergo.F6((*Module).PathReadLink)),
	"path_remove_directory":   shim(wazergo.F3((*Module).PathRemoveDirectory)),
	"path_rename":             shim(wazergo.F6((*Module).PathRename)),
	"path_symlink":            shim(wazergo.F5((*Module).PathSymlink)),
	"path_unlink_file":        shim(wazergo.F3((*Module).PathUnlinkFile)),
	"poll_oneoff":             shim(wazergo.F4((*Module).PollOneOff)),
	"proc_exit":               shim(procExitShape((*Module).ProcExit)),
	"proc_raise":              shim(wazergo.F1((*Module).ProcRaise)),
	"sched_yield":             shim(wazergo.F0((*Module).SchedYield)),
	"random_get":              shim(wazergo.F2((*Module).RandomGet)),
	"sock_accept":             shim(wazergo.F3((*Module).SockAccept)),
	"sock_recv":               shim(wazergo.F6((*Module).SockRecv)),
	"sock_send":               shim(wazergo.F5((*Module).SockSend)),
	"sock_shutdown":           shim(wazergo.F2((*Module).SockShutdown)),
}

// Option configures the host module.
type Option = wazergo.Option[*Module]

// WithWASI sets the WASI implementation. The module creates its own
// abi.Instance for it and closes the system when the module is closed.
func WithWASI(system wasi.System) Option {
	return wazergo.OptionFunc(func(m *Module) { m.WASI = system })
}

// WithInstance shares an existing abi.Instance with the module, so that
// guests importing both WASI namespaces see the same descriptors. The caller
// remains responsible for closing the instance.
func WithInstance(instance *abi.Instance) Option {
	return wazergo.OptionFunc(func(m *Module) { m.instance = instance })
}

// WithMaxPages sets the number of pages the guest memory is allowed to grow
// to. It defaults to memory.MaxPages.
func WithMaxPages(maxPages uint32) Option {
	return wazergo.OptionFunc(func(m *Module) { m.maxPages = maxPages })
}

type hostModule string

func (name hostModule) Name() string {
	return string(name)
}

func (name hostModule) Functions() wazergo.Functions[*Module] {
	return functions
}

func (name hostModule) Instantiate(ctx context.Context, opts ...Option) (*Module, error) {
	mod := &Module{maxPages: memory.MaxPages}
	wazergo.Configure(mod, opts...)
	if mod.instance == nil {
		if mod.WASI == nil {
			return nil, fmt.Errorf("%s: WASI implementation not provided", name)
		}
		mod.instance = abi.New(mod.WASI)
		mod.owned = true
	}
	return mod, nil
}

type Module struct {
	WASI wasi.System

	instance *abi.Instance
	owned    bool
	maxPages uint32
	memory   api.Memory
}

// Instance returns the abi.Instance that the module forwards calls to.
func (m *Module) Instance() *abi.Instance {
	return m.instance
}

// bindMemory points the instance at the memory of the calling guest. The
// view is only rebuilt when the guest memory changes.
func (m *Module) bindMemory(mem api.Memory) {
	if mem == nil || mem == m.memory {
		return
	}
	m.memory = mem
	m.instance.Bind(memory.NewView(memory.NewWazero(mem, m.maxPages)))
}

func (m *Module) ArgsGet(ctx context.Context, argv, buf Int32) Errno {
	return Errno(m.instance.ArgsGet(ctx, int32(argv), int32(buf)))
}

func (m *Module) ArgsSizesGet(ctx context.Context, argc, bufLen Int32) Errno {
	return Errno(m.instance.ArgsSizesGet(ctx, int32(argc), int32(bufLen)))
}

func (m *Module) EnvironGet(ctx context.Context, envv, buf Int32) Errno {
	return Errno(m.instance.EnvironGet(ctx, int32(envv), int32(buf)))
}

func (m *Module) EnvironSizesGet(ctx context.Context, envc, bufLen Int32) Errno {
	return Errno(m.instance.EnvironSizesGet(ctx, int32(envc), int32(bufLen)))
}

func (m *Module) ClockResGet(ctx context.Context, clockID, precision Int32) Errno {
	return Errno(m.instance.ClockResGet(ctx, int32(clockID), int32(precision)))
}

func (m *Module) ClockTimeGet(ctx context.Context, clockID Int32, precision Int64, timestamp Int32) Errno {
	return Errno(m.instance.ClockTimeGet(ctx, int32(clockID), int64(precision), int32(timestamp)))
}

func (m *Module) FDAdvise(ctx context.Context, fd Int32, offset, length Int64, advice Int32) Errno {
	return Errno(m.instance.FDAdvise(ctx, int32(fd), int64(offset), int64(length), int32(advice)))
}

func (m *Module) FDAllocate(ctx context.Context, fd Int32, offset, length Int64) Errno {
	return Errno(m.instance.FDAllocate(ctx, int32(fd), int64(offset), int64(length)))
}

func (m *Module) FDClose(ctx context.Context, fd Int32) Errno {
	return Errno(m.instance.FDClose(ctx, int32(fd)))
}

func (m *Module) FDDataSync(ctx context.Context, fd Int32) Errno {
	return Errno(m.instance.FDDataSync(ctx, int32(fd)))
}

func (m *Module) FDStatGet(ctx context.Context, fd, stat Int32) Errno {
	return Errno(m.instance.FDStatGet(ctx, int32(fd), int32(stat)))
}

func (m *Module) FDStatSetFlags(ctx context.Context, fd, flags Int32) Errno {
	return Errno(m.instance.FDStatSetFlags(ctx, int32(fd), int32(flags)))
}

func (m *Module) FDStatSetRights(ctx context.Context, fd Int32, rightsBase, rightsInheriting Int64) Errno {
	return Errno(m.instance.FDStatSetRights(ctx, int32(fd), int64(rightsBase), int64(rightsInheriting)))
}

func (m *Module) FDFileStatGet(ctx context.Context, fd, stat Int32) Errno {
	return Errno(m.instance.FDFileStatGet(ctx, int32(fd), int32(stat)))
}

func (m *Module) FDFileStatSetSize(ctx context.Context, fd Int32, size Int64) Errno {
	return Errno(m.instance.FDFileStatSetSize(ctx, int32(fd), int64(size)))
}

func (m *Module) FDFileStatSetTimes(ctx context.Context, fd Int32, accessTime, modifyTime Int64, flags Int32) Errno {
	return Errno(m.instance.FDFileStatSetTimes(ctx, int32(fd), int64(accessTime), int64(modifyTime), int32(flags)))
}

func (m *Module) FDPread(ctx context.Context, fd, iovecs, iovecsLen Int32, offset Int64, nread Int32) Errno {
	return Errno(m.instance.FDPread(ctx, int32(fd), int32(iovecs), int32(iovecsLen), int64(offset), int32(nread)))
}

func (m *Module) FDPreStatGet(ctx context.Context, fd, prestat Int32) Errno {
	return Errno(m.instance.FDPreStatGet(ctx, int32(fd), int32(prestat)))
}

func (m *Module) FDPreStatDirName(ctx context.Context, fd, dirName, dirNameLen Int32) Errno {
	return Errno(m.instance.FDPreStatDirName(ctx, int32(fd), int32(dirName), int32(dirNameLen)))
}

func (m *Module) FDPwrite(ctx context.Context, fd, iovecs, iovecsLen Int32, offset Int64, nwritten Int32) Errno {
	return Errno(m.instance.FDPwrite(ctx, int32(fd), int32(iovecs), int32(iovecsLen), int64(offset), int32(nwritten)))
}

func (m *Module) FDRead(ctx context.Context, fd, iovecs, iovecsLen, nread Int32) Errno {
	return Errno(m.instance.FDRead(ctx, int32(fd), int32(iovecs), int32(iovecsLen), int32(nread)))
}

func (m *Module) FDReadDir(ctx context.Context, fd, buf, bufLen Int32, cookie Int64, nwritten Int32) Errno {
	return Errno(m.instance.FDReadDir(ctx, int32(fd), int32(buf), int32(bufLen), int64(cookie), int32(nwritten)))
}

func (m *Module) FDRenumber(ctx context.Context, from, to Int32) Errno {
	return Errno(m.instance.FDRenumber(ctx, int32(from), int32(to)))
}

func (m *Module) FDSeek(ctx context.Context, fd Int32, delta Int64, whence, offset Int32) Errno {
	return Errno(m.instance.FDSeek(ctx, int32(fd), int64(delta), int32(whence), int32(offset)))
}

func (m *Module) FDSync(ctx context.Context, fd Int32) Errno {
	return Errno(m.instance.FDSync(ctx, int32(fd)))
}

func (m *Module) FDTell(ctx context.Context, fd, offset Int32) Errno {
	return Errno(m.instance.FDTell(ctx, int32(fd), int32(offset)))
}

func (m *Module) FDWrite(ctx context.Context, fd, iovecs, iovecsLen, nwritten Int32) Errno {
	return Errno(m.instance.FDWrite(ctx, int32(fd), int32(iovecs), int32(iovecsLen), int32(nwritten)))
}

func (m *Module) PathCreateDirectory(ctx context.Context, fd, path, pathLen Int32) Errno {
	return Errno(m.instance.PathCreateDirectory(ctx, int32(fd), int32(path), int32(pathLen)))
}

func (m *Module) PathFileStatGet(ctx context.Context, fd, flags, path, pathLen, stat Int32) Errno {
	return Errno(m.instance.PathFileStatGet(ctx, int32(fd), int32(flags), int32(path), int32(pathLen), int32(stat)))
}

func (m *Module) PathFileStatSetTimes(ctx context.Context, fd, lookupFlags, path, pathLen Int32, accessTime, modifyTime Int64, fstFlags Int32) Errno {
	return Errno(m.instance.PathFileStatSetTimes(ctx, int32(fd), int32(lookupFlags), int32(path), int32(pathLen), int64(accessTime), int64(modifyTime), int32(fstFlags)))
}

func (m *Module) PathLink(ctx context.Context, oldFD, oldFlags, oldPath, oldPathLen, newFD, newPath, newPathLen Int32) Errno {
	return Errno(m.instance.PathLink(ctx, int32(oldFD), int32(oldFlags), int32(oldPath), int32(oldPathLen), int32(newFD), int32(newPath), int32(newPathLen)))
}

func (m *Module) PathOpen(ctx context.Context, fd, dirFlags, path, pathLen, openFlags int32, rightsBase, rightsInheriting int64, fdFlags, openfd int32) Errno {
	return Errno(m.instance.PathOpen(ctx, fd, dirFlags, path, pathLen, openFlags, rightsBase, rightsInheriting, fdFlags, openfd))
}

func (m *Module) PathReadLink(ctx context.Context, fd, path, pathLen, buf, bufLen, nwritten Int32) Errno {
	return Errno(m.instance.PathReadLink(ctx, int32(fd), int32(path), int32(pathLen), int32(buf), int32(bufLen), int32(nwritten)))
}

func (m *Module) PathRemoveDirectory(ctx context.Context, fd, path, pathLen Int32) Errno {
	return Errno(m.instance.PathRemoveDirectory(ctx, int32(fd), int32(path), int32(pathLen)))
}

func (m *Module) PathRename(ctx context.Context, oldFD, oldPath, oldPathLen, newFD, newPath, newPathLen Int32) Errno {
	return Errno(m.instance.PathRename(ctx, int32(oldFD), int32(oldPath), int32(oldPathLen), int32(newFD), int32(newPath), int32(newPathLen)))
}

func (m *Module) PathSymlink(ctx context.Context, oldPath, oldPathLen, fd, newPath, newPathLen Int32) Errno {
	return Errno(m.instance.PathSymlink(ctx, int32(oldPath), int32(oldPathLen), int32(fd), int32(newPath), int32(newPathLen)))
}

func (m *Module) PathUnlinkFile(ctx context.Context, fd, path, pathLen Int32) Errno {
	return Errno(m.instance.PathUnlinkFile(ctx, int32(fd), int32(path), int32(pathLen)))
}

func (m *Module) PollOneOff(ctx context.Context, in, out, nsubscriptions, nevents Int32) Errno {
	return Errno(m.instance.PollOneOff(ctx, int32(in), int32(out), int32(nsubscriptions), int32(nevents)))
}

func (m *Module) ProcExit(ctx context.Context, mod api.Module, exitCode Int32) {
	// Ensure other callers see the exit code.
	_ = mod.CloseWithExitCode(ctx, uint32(exitCode))

	// Does not return, the *sys.ExitError unwinds through wazero to the
	// caller of the guest function.
	m.instance.ProcExit(ctx, int32(exitCode))
}

func (m *Module) ProcRaise(ctx context.Context, signal Int32) Errno {
	return Errno(m.instance.ProcRaise(ctx, int32(signal)))
}

func (m *Module) SchedYield(ctx context.Context) Errno {
	return Errno(m.instance.SchedYield(ctx))
}

func (m *Module) RandomGet(ctx context.Context, buf, bufLen Int32) Errno {
	return Errno(m.instance.RandomGet(ctx, int32(buf), int32(bufLen)))
}

func (m *Module) SockAccept(ctx context.Context, fd, flags, connfd Int32) Errno {
	return Errno(m.instance.SockAccept(ctx, int32(fd), int32(flags), int32(connfd)))
}

func (m *Module) SockRecv(ctx context.Context, fd, riData, riDataLen, riFlags, roDataLen, roFlags Int32) Errno {
	return Errno(m.instance.SockRecv(ctx, int32(fd), int32(riData), int32(riDataLen), int32(riFlags), int32(roDataLen), int32(roFlags)))
}

func (m *Module) SockSend(ctx context.Context, fd, siData, siDataLen, siFlags, soDataLen Int32) Errno {
	return Errno(m.instance.SockSend(ctx, int32(fd), int32(siData), int32(siDataLen), int32(siFlags), int32(soDataLen)))
}

func (m *Module) SockShutdown(ctx context.Context, fd, how Int32) Errno {
	return Errno(m.instance.SockShutdown(ctx, int32(fd), int32(how)))
}

func (m *Module) Close(ctx context.Context) error {
	if !m.owned {
		return nil
	}
	return m.instance.Close(ctx)
}

// shim binds the memory of the calling guest to the instance before the
// function runs.
func shim(fn wazergo.Function[*Module]) wazergo.Function[*Module] {
	call := fn.Func
	fn.Func = func(m *Module, ctx context.Context, module api.Module, stack []uint64) {
		m.bindMemory(module.Memory())
		call(m, ctx, module, stack)
	}
	return fn
}

// path_open takes more parameters than the wazergo.F* helpers support.
func pathOpenShape(fn func(*Module, context.Context, int32, int32, int32, int32, int32, int64, int64, int32, int32) Errno) wazergo.Function[*Module] {
	return wazergo.Function[*Module]{
		Params: []Value{
			Int32(0), Int32(0), Int32(0), Int32(0), Int32(0),
			Int64(0), Int64(0),
			Int32(0), Int32(0),
		},
		Results: []Value{Errno(0)},
		Func: func(m *Module, ctx context.Context, module api.Module, stack []uint64) {
			errno := fn(m, ctx,
				api.DecodeI32(stack[0]),
				api.DecodeI32(stack[1]),
				api.DecodeI32(stack[2]),
				api.DecodeI32(stack[3]),
				api.DecodeI32(stack[4]),
				int64(stack[5]),
				int64(stack[6]),
				api.DecodeI32(stack[7]),
				api.DecodeI32(stack[8]),
			)
			stack[0] = api.EncodeI32(int32(errno))
		},
	}
}

// procExit is a bit different; it doesn't have a return result,
// and needs access to api.Module.
func procExitShape[T any, P Param[P]](fn func(T, context.Context, api.Module, P)) wazergo.Function[T] {
	var arg P
	return wazergo.Function[T]{
		Params: []Value{arg},
		Func: func(this T, ctx context.Context, module api.Module, stack []uint64) {
			var arg P
			var memory = module.Memory()
			fn(this, ctx, module, arg.LoadValue(memory, stack))
		},
	}
}

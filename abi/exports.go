package abi

import "github.com/stealthrocket/wasi-aot"

const (
	// Unstable is the namespace of the earliest WASI snapshot, compiled
	// guests still commonly import it.
	Unstable = "wasi_unstable"

	// SnapshotPreview1 is the namespace of WASI preview 1.
	SnapshotPreview1 = "wasi_snapshot_preview1"
)

// Namespaces are the import namespaces served by an Instance.
var Namespaces = []string{Unstable, SnapshotPreview1}

// Exports returns the functions of i by import name, or nil if namespace is
// not a WASI namespace. The same functions are exported in every namespace.
//
// The values are method values of i, for example the "fd_write" entry has
// the type func(context.Context, int32, int32, int32, int32) int32.
func (i *Instance) Exports(namespace string) map[string]any {
	if namespace != Unstable && namespace != SnapshotPreview1 {
		return nil
	}
	return map[string]any{
		"args_get":                i.ArgsGet,
		"args_sizes_get":          i.ArgsSizesGet,
		"environ_get":             i.EnvironGet,
		"environ_sizes_get":       i.EnvironSizesGet,
		"clock_res_get":           i.ClockResGet,
		"clock_time_get":          i.ClockTimeGet,
		"fd_advise":               i.FDAdvise,
		"fd_allocate":             i.FDAllocate,
		"fd_close":                i.FDClose,
		"fd_datasync":             i.FDDataSync,
		"fd_fdstat_get":           i.FDStatGet,
		"fd_fdstat_set_flags":     i.FDStatSetFlags,
		"fd_fdstat_set_rights":    i.FDStatSetRights,
		"fd_filestat_get":         i.FDFileStatGet,
		"fd_filestat_set_size":    i.FDFileStatSetSize,
		"fd_filestat_set_times":   i.FDFileStatSetTimes,
		"fd_pread":                i.FDPread,
		"fd_prestat_get":          i.FDPreStatGet,
		"fd_prestat_dir_name":     i.FDPreStatDirName,
		"fd_pwrite":               i.FDPwrite,
		"fd_read":                 i.FDRead,
		"fd_readdir":              i.FDReadDir,
		"fd_renumber":             i.FDRenumber,
		"fd_seek":                 i.FDSeek,
		"fd_sync":                 i.FDSync,
		"fd_tell":                 i.FDTell,
		"fd_write":                i.FDWrite,
		"path_create_directory":   i.PathCreateDirectory,
		"path_filestat_get":       i.PathFileStatGet,
		"path_filestat_set_times": i.PathFileStatSetTimes,
		"path_link":               i.PathLink,
		"path_open":               i.PathOpen,
		"path_readlink":           i.PathReadLink,
		"path_remove_directory":   i.PathRemoveDirectory,
		"path_rename":             i.PathRename,
		"path_symlink":            i.PathSymlink,
		"path_unlink_file":        i.PathUnlinkFile,
		"poll_oneoff":             i.PollOneOff,
		"proc_exit":               i.ProcExit,
		"proc_raise":              i.ProcRaise,
		"sched_yield":             i.SchedYield,
		"random_get":              i.RandomGet,
		"sock_accept":             i.SockAccept,
		"sock_recv":               i.SockRecv,
		"sock_send":               i.SockSend,
		"sock_shutdown":           i.SockShutdown,
	}
}

// Intrinsics returns the runtime support functions called by compiled code
// outside of the WASI namespaces.
func (i *Instance) Intrinsics() map[string]any {
	return map[string]any{
		"memory_grow":                             i.MemoryGrow,
		"call_indirect_fail":                      i.CallIndirectFail,
		"unreachable_trap":                        i.UnreachableTrap,
		"divide_by_zero_or_integer_overflow_trap": i.DivideByZeroOrIntegerOverflowTrap,
		"invalid_float_operation_trap":            i.InvalidFloatOperationTrap,
	}
}

// CallIndirectFail is called when an indirect call targets a missing table
// element or a function of the wrong type.
func (i *Instance) CallIndirectFail() {
	wasi.Raise(wasi.CallIndirectFail, "call_indirect")
}

// UnreachableTrap is called when the guest executes an unreachable
// instruction.
func (i *Instance) UnreachableTrap() {
	wasi.Raise(wasi.Unreachable, "unreachable instruction executed")
}

func (i *Instance) DivideByZeroOrIntegerOverflowTrap() {
	wasi.Raise(wasi.IntegerDivideByZeroOrOverflow, "integer division")
}

func (i *Instance) InvalidFloatOperationTrap() {
	wasi.Raise(wasi.InvalidFloatOperation, "float to integer conversion")
}

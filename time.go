package wasi

import (
	"fmt"
	"time"
)

// Timestamp is a point in time or a duration in nanoseconds.
type Timestamp uint64

// TimespecToTimestamp converts a POSIX timespec to a timestamp.
func TimespecToTimestamp(sec, nsec int64) Timestamp {
	return Timestamp(sec*1e9 + nsec)
}

// Timespec splits t into seconds and nanoseconds, it is the inverse of
// TimespecToTimestamp.
func (t Timestamp) Timespec() (sec, nsec int64) {
	return int64(t / 1e9), int64(t % 1e9)
}

func (t Timestamp) Duration() time.Duration {
	return time.Duration(t)
}

func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

func (t Timestamp) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

// TimeUpdate describes how one timestamp of a file is updated by the
// *_set_times functions.
type TimeUpdate struct {
	// Omit is true when the timestamp must be left unchanged.
	Omit bool
	Time Timestamp
}

// ResolveTimes computes the access and modification time updates requested
// by flags.
//
// now is sampled once by the caller, so that setting both timestamps to the
// current time yields the same value. Requesting both an explicit value and
// the current time for the same timestamp is invalid.
func ResolveTimes(now, accessTime, modifyTime Timestamp, flags FSTFlags) (atim, mtim TimeUpdate, errno Errno) {
	if flags.Has(AccessTime|AccessTimeNow) || flags.Has(ModifyTime|ModifyTimeNow) {
		return atim, mtim, EINVAL
	}
	atim = resolveTime(now, accessTime, flags.Has(AccessTime), flags.Has(AccessTimeNow))
	mtim = resolveTime(now, modifyTime, flags.Has(ModifyTime), flags.Has(ModifyTimeNow))
	return atim, mtim, ESUCCESS
}

func resolveTime(now, t Timestamp, set, setNow bool) TimeUpdate {
	switch {
	case setNow:
		return TimeUpdate{Time: now}
	case set:
		return TimeUpdate{Time: t}
	default:
		return TimeUpdate{Omit: true}
	}
}

// ClockID is an identifier for clocks.
type ClockID uint32

const (
	// Realtime is the wall clock; zero is 1970-01-01T00:00:00Z.
	Realtime ClockID = iota

	// Monotonic is a clock that cannot be adjusted and never jumps backward.
	// Its epoch is undefined.
	Monotonic

	// ProcessCPUTimeID is the CPU-time clock of the current process.
	ProcessCPUTimeID

	// ThreadCPUTimeID is the CPU-time clock of the current thread.
	ThreadCPUTimeID
)

func (c ClockID) String() string {
	switch c {
	case Realtime:
		return "Realtime"
	case Monotonic:
		return "Monotonic"
	case ProcessCPUTimeID:
		return "ProcessCPUTimeID"
	case ThreadCPUTimeID:
		return "ThreadCPUTimeID"
	default:
		return fmt.Sprintf("ClockID(%d)", c)
	}
}

package wasi

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/tetratelabs/wazero/sys"
)

// TrapKind classifies fatal guest execution faults.
type TrapKind uint8

const (
	// CallIndirectFail indicates that an indirect call targeted a missing
	// table element or a function with the wrong signature.
	CallIndirectFail TrapKind = iota + 1

	// Unreachable indicates the execution of an unreachable instruction.
	Unreachable

	// IntegerDivideByZeroOrOverflow indicates an integer division by zero or
	// a signed division overflow.
	IntegerDivideByZeroOrOverflow

	// InvalidFloatOperation indicates an invalid conversion from a floating
	// point value to an integer.
	InvalidFloatOperation

	// OutOfBoundsMemoryAccess indicates an access past the end of the guest
	// linear memory.
	OutOfBoundsMemoryAccess

	// IOVecOverflow indicates that a guest passed more i/o vectors than the
	// host staging buffer can hold.
	IOVecOverflow

	// UnmappedErrno indicates that a host system call failed with an error
	// code that the errno translation table does not cover.
	UnmappedErrno
)

func (k TrapKind) String() string {
	switch k {
	case CallIndirectFail:
		return "indirect call failure"
	case Unreachable:
		return "unreachable"
	case IntegerDivideByZeroOrOverflow:
		return "integer divide by zero or overflow"
	case InvalidFloatOperation:
		return "invalid float operation"
	case OutOfBoundsMemoryAccess:
		return "out of bounds memory access"
	case IOVecOverflow:
		return "i/o vector overflow"
	case UnmappedErrno:
		return "unmapped errno"
	default:
		return fmt.Sprintf("TrapKind(%d)", k)
	}
}

// ExitCode is the process exit code conventionally used on POSIX hosts when
// a trap of this kind terminates the guest.
func (k TrapKind) ExitCode() int {
	switch k {
	case CallIndirectFail:
		return 255
	case Unreachable:
		return 254
	case IntegerDivideByZeroOrOverflow:
		return 253
	case InvalidFloatOperation:
		return 252
	default:
		return 251
	}
}

// Trap is a fatal fault raised while executing guest code or one of the host
// functions it called.
//
// Traps never return to the guest. They are raised by panicking with a Trap
// value, and unwind to the embedding layer which recovers them with Run or
// Recover and decides how to terminate.
type Trap struct {
	Kind TrapKind
	Msg  string
}

func (t Trap) Error() string {
	if t.Msg == "" {
		return "trap: " + t.Kind.String()
	}
	return "trap: " + t.Kind.String() + ": " + t.Msg
}

// Raise panics with a trap of the given kind.
func Raise(kind TrapKind, msg string, args ...any) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	panic(Trap{Kind: kind, Msg: msg})
}

// Recover converts the value returned by recover() into a trap.
//
// Go runtime errors raised by compiled guest code (index out of range,
// integer divide by zero) are translated to their trap equivalent. Any other
// non-nil value is not a trap, and Recover panics again with it.
func Recover(v any) (trap Trap, ok bool) {
	switch x := v.(type) {
	case nil:
		return trap, false
	case Trap:
		return x, true
	case *Trap:
		return *x, true
	case runtime.Error:
		if trap, ok := translateRuntimeError(x); ok {
			return trap, true
		}
	}
	panic(v)
}

func translateRuntimeError(err runtime.Error) (Trap, bool) {
	switch msg := err.Error(); {
	case strings.HasPrefix(msg, "runtime error: index out of range"),
		strings.HasPrefix(msg, "runtime error: slice bounds out of range"):
		return Trap{Kind: OutOfBoundsMemoryAccess, Msg: msg}, true
	case strings.HasPrefix(msg, "runtime error: integer divide by zero"):
		return Trap{Kind: IntegerDivideByZeroOrOverflow, Msg: msg}, true
	default:
		return Trap{}, false
	}
}

// Run calls fn and converts the ways guest execution can end into an exit
// code: normal return is zero, proc_exit yields the code the guest passed,
// and a trap yields the trap's exit code along with the trap as error.
func Run(fn func()) (exitCode int, err error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if e, ok := v.(error); ok {
			var exitErr *sys.ExitError
			if errors.As(e, &exitErr) {
				exitCode, err = int(exitErr.ExitCode()), nil
				return
			}
		}
		trap, _ := Recover(v)
		exitCode, err = trap.Kind.ExitCode(), trap
	}()
	fn()
	return 0, nil
}

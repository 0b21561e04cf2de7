package imports

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
)

// Builder configures a unix.System and the host modules exposing it to a
// guest. Configuration errors are collected and reported by Instantiate.
type Builder struct {
	name               string
	id                 uuid.UUID
	args               []string
	env                []string
	mounts             []mount
	customStdio        bool
	stdin              int
	stdout             int
	stderr             int
	realtime           func(context.Context) (uint64, error)
	realtimePrecision  time.Duration
	monotonic          func(context.Context) (uint64, error)
	monotonicPrecision time.Duration
	yield              func(context.Context) error
	exit               func(context.Context, int) error
	rand               io.Reader
	maxPages           uint32
	namespaces         []string
	wrappers           []func(wasi.System) wasi.System
	errors             []error
}

// NewBuilder creates a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

type mount struct {
	dir      string
	readOnly bool
}

// WithName sets argv[0].
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithInstanceID sets the ID of the abi.Instance, for example to match the
// instance of a trace.Wrap wrapper. A random ID is used by default.
func (b *Builder) WithInstanceID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithArgs sets the arguments following argv[0].
func (b *Builder) WithArgs(args ...string) *Builder {
	b.args = args
	return b
}

// WithEnv sets the environment as "key=value" strings.
func (b *Builder) WithEnv(env ...string) *Builder {
	b.env = env
	return b
}

// WithDirs mounts host directories as preopens, installed at fd 3 and above
// in order. Without mounts, wasi.DefaultPreopens are installed: the working
// directory, its parent, the root and /tmp.
//
// Each entry is a host path, optionally suffixed with ":ro" to make the
// mount read-only. The "host:guest" form accepted by wazero is allowed when
// both paths are equal, since guest paths are never remapped.
func (b *Builder) WithDirs(dirs ...string) *Builder {
	for _, dir := range dirs {
		m, err := parseMount(dir)
		if err != nil {
			b.errors = append(b.errors, err)
		}
		b.mounts = append(b.mounts, m)
	}
	return b
}

func parseMount(s string) (mount, error) {
	dir, readOnly := strings.CutSuffix(s, ":ro")
	host, guest, remapped := strings.Cut(dir, ":")
	switch {
	case host == "":
		return mount{}, fmt.Errorf("invalid directory %q", s)
	case !remapped:
		return mount{dir: host, readOnly: readOnly}, nil
	case strings.Contains(guest, ":"):
		return mount{}, fmt.Errorf("invalid directory %q", s)
	case host != guest:
		return mount{}, fmt.Errorf("cannot mount %q: guest paths cannot differ from host paths", s)
	default:
		return mount{dir: host, readOnly: readOnly}, nil
	}
}

// WithStdio sets the host descriptors installed at fd 0, 1 and 2. They are
// duplicated, the caller keeps ownership of the originals.
func (b *Builder) WithStdio(stdin, stdout, stderr int) *Builder {
	b.customStdio = true
	b.stdin = stdin
	b.stdout = stdout
	b.stderr = stderr
	return b
}

// WithRealtimeClock sets the realtime clock and precision.
func (b *Builder) WithRealtimeClock(clock func(context.Context) (uint64, error), precision time.Duration) *Builder {
	b.realtime = clock
	b.realtimePrecision = precision
	return b
}

// WithMonotonicClock sets the monotonic clock and precision.
func (b *Builder) WithMonotonicClock(clock func(context.Context) (uint64, error), precision time.Duration) *Builder {
	b.monotonic = clock
	b.monotonicPrecision = precision
	return b
}

// WithYield sets the sched_yield function.
func (b *Builder) WithYield(fn func(context.Context) error) *Builder {
	b.yield = fn
	return b
}

// WithExit sets a function observing proc_exit. The guest is unwound after
// the function returns.
func (b *Builder) WithExit(fn func(context.Context, int) error) *Builder {
	b.exit = fn
	return b
}

// WithRand sets the source of random_get.
func (b *Builder) WithRand(rand io.Reader) *Builder {
	b.rand = rand
	return b
}

// WithMaxPages sets the number of pages that the guest memory may grow to.
func (b *Builder) WithMaxPages(maxPages uint32) *Builder {
	b.maxPages = maxPages
	return b
}

// WithNamespaces sets the WASI namespaces that the host modules are
// instantiated under. The default is all of abi.Namespaces.
func (b *Builder) WithNamespaces(namespaces ...string) *Builder {
	for _, ns := range namespaces {
		if ns != abi.Unstable && ns != abi.SnapshotPreview1 {
			b.errors = append(b.errors, fmt.Errorf("invalid WASI namespace %q", ns))
		}
	}
	b.namespaces = namespaces
	return b
}

// WithWrappers sets the wasi.System wrappers, applied in order, for example
// to trace the system calls.
func (b *Builder) WithWrappers(wrappers ...func(wasi.System) wasi.System) *Builder {
	b.wrappers = wrappers
	return b
}

func (b *Builder) preopens() []wasi.Preopen {
	if len(b.mounts) == 0 {
		return wasi.DefaultPreopens
	}
	dirs := make([]string, len(b.mounts))
	for i, m := range b.mounts {
		dirs[i] = m.dir
	}
	return wasi.MakePreopens(dirs...)
}

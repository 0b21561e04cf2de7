package wasitest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TestConfig carries the configuration used to create systems to run the test
// suites against.
type TestConfig struct {
	Args    []string
	Environ []string
	Rand    io.Reader
	Now     func() time.Time

	// RootFS is a directory installed as the preopen at fd 3, after the
	// standard streams.
	RootFS string
}

// MakeSystem is a function used to create a system to run the test suites
// against.
type MakeSystem func(TestConfig) (wasi.System, error)

// rootFD is the descriptor of TestConfig.RootFS in the systems under test.
const rootFD wasi.FD = 3

// TestSystem is a test suite which validates the behavior of wasi.System
// implementations.
func TestSystem(t *testing.T, makeSystem MakeSystem) {
	t.Run("file", file.runFunc(makeSystem))
	t.Run("fs", fsys.runFunc(makeSystem))
	t.Run("proc", proc.runFunc(makeSystem))
	t.Run("rights", rights.runFunc(makeSystem))
}

type newSystem func(TestConfig) wasi.System

type testFunc func(*testing.T, context.Context, newSystem)

type testSuite map[string]testFunc

func (tests testSuite) names() []string {
	names := maps.Keys(tests)
	slices.Sort(names)
	return names
}

func (tests testSuite) runFunc(makeSystem MakeSystem) func(*testing.T) {
	return func(t *testing.T) { tests.run(t, makeSystem) }
}

func (tests testSuite) run(t *testing.T, makeSystem MakeSystem) {
	for _, name := range tests.names() {
		test := tests[name]
		t.Run(name, func(t *testing.T) {
			ctx, cancel := testContext(t)
			defer cancel()

			test(t, ctx, func(c TestConfig) wasi.System {
				if c.RootFS == "" {
					c.RootFS = t.TempDir()
				}
				s, err := makeSystem(c)
				if err != nil {
					t.Fatalf("system initialization failed: %s", err)
				}
				t.Cleanup(func() {
					if err := s.Close(ctx); err != nil {
						t.Errorf("system closure failed: %s", err)
					}
				})
				return s
			})
		})
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/sys"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wasiaot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
dirs:
  - /data
  - /etc:/etc:ro
env: [A=1]
max-pages: 16
trace: trace.csv.zst
log-level: debug
log-format: json
`)
	c := defaultConfig()
	require.NoError(t, loadConfig(path, &c))

	want := config{
		Dirs:        []string{"/data", "/etc:/etc:ro"},
		Env:         []string{"A=1"},
		MaxPages:    16,
		Trace:       "trace.csv.zst",
		TraceFormat: "csv",
		LogLevel:    "debug",
		LogFormat:   "json",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEmpty(t *testing.T) {
	c := defaultConfig()
	require.NoError(t, loadConfig(writeConfig(t, ""), &c))
	assert.Equal(t, defaultConfig(), c)
}

func TestLoadConfigErrors(t *testing.T) {
	for _, content := range []string{
		"unknown: 1\n",
		"trace-format: xml\n",
		"log-format: logfmt\n",
		"log-level: loud\n",
		"max-pages: -1\n",
	} {
		c := defaultConfig()
		assert.Error(t, loadConfig(writeConfig(t, content), &c), strings.TrimSpace(content))
	}
}

func TestMergeConfig(t *testing.T) {
	file := config{
		Dirs:        []string{"/data"},
		Env:         []string{"A=1"},
		MaxPages:    16,
		TraceFormat: "csv",
		LogLevel:    "debug",
		LogFormat:   "json",
	}
	flags := defaultConfig()
	flags.Env = []string{"B=2"}
	flags.LogLevel = "warn"

	changed := map[string]bool{"env": true, "log-level": true}
	got := mergeConfig(file, flags, func(name string) bool { return changed[name] })

	want := file
	want.Env = []string{"B=2"}
	want.LogLevel = "warn"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigLogger(t *testing.T) {
	var buf bytes.Buffer
	c := defaultConfig()
	c.LogFormat = "json"
	c.LogLevel = "warn"

	log := c.logger(&buf)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestExitStatus(t *testing.T) {
	code, err := exitStatus(sys.NewExitError(3))
	assert.Equal(t, 3, code)
	assert.NoError(t, err)

	trap := wasi.Trap{Kind: wasi.Unreachable}
	code, err = exitStatus(trap)
	assert.Equal(t, 254, code)
	assert.Equal(t, trap, err)

	code, err = exitStatus(os.ErrNotExist)
	assert.Equal(t, 1, code)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

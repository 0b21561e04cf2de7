package wasi_test

import (
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stretchr/testify/assert"
)

func TestRightsString(t *testing.T) {
	tests := []struct {
		rights wasi.Rights
		string string
	}{
		{0, "Rights(0)"},
		{wasi.AllRights, "AllRights"},
		{wasi.StdioRights, "StdioRights"},
		{wasi.FDReadRight, "FDReadRight"},
		{wasi.FDReadRight | wasi.FDWriteRight, "FDReadRight|FDWriteRight"},
		{1 << 40, "Rights(0x10000000000)"},
	}

	for _, test := range tests {
		assert.Equal(t, test.string, test.rights.String())
	}
}

func TestRightsPresets(t *testing.T) {
	assert.True(t, wasi.InheritingDirectoryRights.Has(wasi.DirectoryRights))
	assert.True(t, wasi.InheritingDirectoryRights.Has(wasi.RegularFileRights))
	assert.False(t, wasi.StdioRights.HasAny(wasi.FDSeekRight|wasi.PathOpenRight))
	assert.False(t, wasi.DirectoryRights.HasAny(wasi.FDReadRight|wasi.FDWriteRight))
	assert.Zero(t, wasi.AllRights&(wasi.AllRights+1))
}

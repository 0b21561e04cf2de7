package wasi_test

import (
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stretchr/testify/assert"
)

func TestTimespecToTimestamp(t *testing.T) {
	ts := wasi.TimespecToTimestamp(1, 500_000_000)
	assert.Equal(t, wasi.Timestamp(1_500_000_000), ts)

	sec, nsec := ts.Timespec()
	assert.Equal(t, int64(1), sec)
	assert.Equal(t, int64(500_000_000), nsec)
}

func TestResolveTimes(t *testing.T) {
	const now = wasi.Timestamp(1e18)
	const atime = wasi.Timestamp(1)
	const mtime = wasi.Timestamp(2)

	tests := []struct {
		scenario string
		flags    wasi.FSTFlags
		atim     wasi.TimeUpdate
		mtim     wasi.TimeUpdate
		errno    wasi.Errno
	}{
		{
			scenario: "no flags leaves both timestamps unchanged",
			atim:     wasi.TimeUpdate{Omit: true},
			mtim:     wasi.TimeUpdate{Omit: true},
		},
		{
			scenario: "explicit values",
			flags:    wasi.AccessTime | wasi.ModifyTime,
			atim:     wasi.TimeUpdate{Time: atime},
			mtim:     wasi.TimeUpdate{Time: mtime},
		},
		{
			scenario: "both set to now share the same sample",
			flags:    wasi.AccessTimeNow | wasi.ModifyTimeNow,
			atim:     wasi.TimeUpdate{Time: now},
			mtim:     wasi.TimeUpdate{Time: now},
		},
		{
			scenario: "access time only",
			flags:    wasi.AccessTimeNow,
			atim:     wasi.TimeUpdate{Time: now},
			mtim:     wasi.TimeUpdate{Omit: true},
		},
		{
			scenario: "explicit and now on the access time",
			flags:    wasi.AccessTime | wasi.AccessTimeNow,
			errno:    wasi.EINVAL,
		},
		{
			scenario: "explicit and now on the modification time",
			flags:    wasi.ModifyTime | wasi.ModifyTimeNow,
			errno:    wasi.EINVAL,
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			atim, mtim, errno := wasi.ResolveTimes(now, atime, mtime, test.flags)
			assert.Equal(t, test.errno, errno)
			if errno == wasi.ESUCCESS {
				assert.Equal(t, test.atim, atim)
				assert.Equal(t, test.mtim, mtim)
			}
		})
	}
}

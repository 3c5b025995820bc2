//go:build linux

package bigcache

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves disk space for the artifact up front. Advisory:
// fallocate is not supported on all filesystems, so errors are ignored
// and the subsequent Truncate establishes the file length either way.
func preallocate(f *os.File, size int64) {
	//nolint:errcheck // advisory
	unix.Fallocate(int(f.Fd()), 0, 0, size)
}

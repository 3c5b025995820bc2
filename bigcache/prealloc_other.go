//go:build !linux

package bigcache

import "os"

// preallocate is a no-op off Linux; Truncate establishes the file length.
func preallocate(_ *os.File, _ int64) {}

// Package trace loads cold-start I/O traces from tabular input and defines
// the page-addressing primitives shared by the packager and the simulator.
package trace

// PageSize is the unit of deduplication and packaging (bytes).
// Every offset in a packaged artifact's data region is a multiple of this.
const PageSize = 4096

// Record is a single I/O access observed during a cold start.
type Record struct {
	File   string // source file path as reported by the tracer
	Offset int64  // byte offset within File, not necessarily page-aligned
	Order  int64  // access sequence number, non-decreasing within a trace
}

// PageKey identifies one page of one source file. Two records map to the
// same PageKey iff they touch the same 4KiB page of the same file.
type PageKey struct {
	File   string
	Offset int64 // page-aligned
}

// PageAlign rounds offset down to the containing page boundary.
func PageAlign(offset int64) int64 {
	return offset / PageSize * PageSize
}

// Key returns the deduplication identity of the page touched by r.
func (r Record) Key() PageKey {
	return PageKey{File: r.File, Offset: PageAlign(r.Offset)}
}

// Package bigcache packages the distinct hot pages of a cold-start I/O
// trace into one contiguous binary artifact, and reads such artifacts back.
package bigcache

import (
	"fmt"

	"github.com/coldboot/bigcache/trace"
)

// PageEntry is one distinct page selected for packaging. Entries are
// created in order of first observation in the trace; that order is the
// artifact's data-region order.
type PageEntry struct {
	File             string // owning source file path
	SourceOffset     int64  // page-aligned offset within the source file
	FirstAccessOrder int64  // order value of the first record touching this page
	BigCacheOffset   int64  // offset of the page in the artifact; set by Finalize
}

// FileEntry describes one source file referenced by the page set.
type FileEntry struct {
	ID           uint32 // dense, zero-based, assigned in first-appearance order
	Path         string
	PageCount    uint32 // pages of this file in the artifact
	OriginalSize int64  // source file size if known, else 0
}

// Deduplicator reduces a trace to its distinct pages in first-touch order
// and assigns stable file ids. Membership tests are O(1) per record.
type Deduplicator struct {
	pages     []PageEntry
	pageIndex map[trace.PageKey]int
	files     map[string]int // path -> index into fileList
	fileList  []FileEntry
}

// NewDeduplicator returns an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		pageIndex: make(map[trace.PageKey]int),
		files:     make(map[string]int),
	}
}

// Add observes one trace record. It returns true if the record touched a
// page not seen before. Paths that cannot fit the file table are rejected.
func (d *Deduplicator) Add(rec trace.Record) (bool, error) {
	if len(rec.File) > MaxPathLen-1 {
		return false, fmt.Errorf("path %q exceeds %d bytes", rec.File, MaxPathLen-1)
	}

	key := rec.Key()
	if _, seen := d.pageIndex[key]; seen {
		return false, nil
	}

	fi, ok := d.files[rec.File]
	if !ok {
		fi = len(d.fileList)
		d.files[rec.File] = fi
		d.fileList = append(d.fileList, FileEntry{
			ID:   uint32(fi),
			Path: rec.File,
		})
	}
	d.fileList[fi].PageCount++

	d.pageIndex[key] = len(d.pages)
	d.pages = append(d.pages, PageEntry{
		File:             rec.File,
		SourceOffset:     key.Offset,
		FirstAccessOrder: rec.Order,
	})
	return true, nil
}

// AddTrace observes every record of a trace in order.
func (d *Deduplicator) AddTrace(records []trace.Record) error {
	for _, rec := range records {
		if _, err := d.Add(rec); err != nil {
			return err
		}
	}
	return nil
}

// Pages returns the distinct pages in first-touch order. The returned
// slice is owned by the Deduplicator.
func (d *Deduplicator) Pages() []PageEntry { return d.pages }

// Files returns the file table in file-id order.
func (d *Deduplicator) Files() []FileEntry { return d.fileList }

// PageCount returns the number of distinct pages observed.
func (d *Deduplicator) PageCount() int { return len(d.pages) }

// FileCount returns the number of distinct files observed.
func (d *Deduplicator) FileCount() int { return len(d.fileList) }

// Index returns the first-touch position of the page identified by key.
func (d *Deduplicator) Index(key trace.PageKey) (int, bool) {
	i, ok := d.pageIndex[key]
	return i, ok
}

func (d *Deduplicator) fileID(path string) (uint32, bool) {
	i, ok := d.files[path]
	return uint32(i), ok
}

// Finalize assigns each page its artifact offset per the planned layout.
// Offsets are never reassigned; calling Finalize with a different layout
// after packaging began is a caller bug.
func (d *Deduplicator) Finalize(layout Layout) {
	for i := range d.pages {
		d.pages[i].BigCacheOffset = layout.DataOffset + int64(i)*PageSize
	}
}

// DistinctPageCount runs the packager's deduplication over records and
// returns the distinct page count. Simulation artifact-size figures can
// be cross-checked against it without building a Deduplicator.
func DistinctPageCount(records []trace.Record) int {
	seen := make(map[trace.PageKey]struct{}, len(records))
	for _, rec := range records {
		seen[rec.Key()] = struct{}{}
	}
	return len(seen)
}

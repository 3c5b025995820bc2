package bigcache

import (
	"fmt"
	"hash/crc32"
	"os"

	"github.com/coldboot/bigcache/trace"
)

// Reader provides validated access to a packaged artifact: the decoded
// header, index and file tables, page content, and a (file, offset) →
// artifact-offset lookup table.
type Reader struct {
	Header Header
	Pages  []PageEntry
	Files  []FileEntry

	f      *os.File
	lookup map[trace.PageKey]int64
	meta   []byte // index + file table regions, kept for checksum verification
}

// Open validates and indexes the artifact at path. An artifact whose file
// length does not equal the header's recorded total size is invalid.
// Reserved header bytes and unknown page flags are ignored.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	r, err := readArtifact(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return r, nil
}

func readArtifact(f *os.File) (*Reader, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := decodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if uint64(info.Size()) != h.TotalSize {
		return nil, fmt.Errorf("file length %d does not match recorded total size %d; artifact is incomplete or corrupt",
			info.Size(), h.TotalSize)
	}

	indexSize := int64(h.PageCount) * IndexRecordSize
	fileTableSize := int64(h.FileCount) * FileRecordSize
	if int64(h.FileTableOffset) != int64(h.IndexOffset)+indexSize {
		return nil, fmt.Errorf("file table offset %d does not follow index table (%d+%d)",
			h.FileTableOffset, h.IndexOffset, indexSize)
	}
	if h.DataOffset%PageSize != 0 {
		return nil, fmt.Errorf("data offset %d is not page-aligned", h.DataOffset)
	}
	if h.DataOffset < h.FileTableOffset+uint64(fileTableSize) {
		return nil, fmt.Errorf("data offset %d overlaps metadata regions ending at %d",
			h.DataOffset, h.FileTableOffset+uint64(fileTableSize))
	}
	if h.DataOffset+uint64(h.PageCount)*PageSize != h.TotalSize {
		return nil, fmt.Errorf("data region %d+%d*%d does not end at recorded total size %d",
			h.DataOffset, h.PageCount, PageSize, h.TotalSize)
	}

	meta := make([]byte, indexSize+fileTableSize)
	if _, err := f.ReadAt(meta, int64(h.IndexOffset)); err != nil {
		return nil, fmt.Errorf("read metadata regions: %w", err)
	}

	files := make([]FileEntry, h.FileCount)
	for i := range files {
		rec := meta[indexSize+int64(i)*FileRecordSize:]
		files[i], err = decodeFileRecord(rec[:FileRecordSize])
		if err != nil {
			return nil, fmt.Errorf("file record %d: %w", i, err)
		}
	}

	pages := make([]PageEntry, h.PageCount)
	lookup := make(map[trace.PageKey]int64, h.PageCount)
	for i := range pages {
		rec := decodeIndexRecord(meta[int64(i)*IndexRecordSize:])
		if int(rec.FileID) >= len(files) {
			return nil, fmt.Errorf("index record %d references file id %d of %d", i, rec.FileID, len(files))
		}
		offset := int64(h.DataOffset) + int64(i)*PageSize
		pages[i] = PageEntry{
			File:             files[rec.FileID].Path,
			SourceOffset:     int64(rec.SourceOffset),
			FirstAccessOrder: int64(rec.FirstAccessOrder),
			BigCacheOffset:   offset,
		}
		lookup[trace.PageKey{File: pages[i].File, Offset: pages[i].SourceOffset}] = offset
	}

	return &Reader{Header: h, Pages: pages, Files: files, f: f, lookup: lookup, meta: meta}, nil
}

// Lookup resolves a source file offset (any alignment) to the artifact
// offset of its page.
func (r *Reader) Lookup(file string, offset int64) (int64, bool) {
	off, ok := r.lookup[trace.PageKey{File: file, Offset: trace.PageAlign(offset)}]
	return off, ok
}

// ReadPage returns the content of the i-th page in artifact order.
func (r *Reader) ReadPage(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, len(r.Pages))
	}
	buf := make([]byte, PageSize)
	if _, err := r.f.ReadAt(buf, r.Pages[i].BigCacheOffset); err != nil {
		return nil, fmt.Errorf("read page %d: %w", i, err)
	}
	return buf, nil
}

// VerifyChecksum recomputes the metadata CRC and compares it against the
// header.
func (r *Reader) VerifyChecksum() error {
	if sum := crc32.ChecksumIEEE(r.meta); sum != r.Header.Checksum {
		return fmt.Errorf("metadata checksum 0x%08x, header records 0x%08x", sum, r.Header.Checksum)
	}
	return nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error { return r.f.Close() }

package bigcache

import (
	"fmt"
	"math"
)

// Layout holds the computed region offsets and sizes of an artifact.
// All values are byte quantities. In-memory arithmetic is int64 and any
// input that would overflow it is rejected; on disk the same values are
// stored as unsigned 64-bit fields (counts as 32-bit).
type Layout struct {
	HeaderSize      int64
	IndexOffset     int64
	IndexSize       int64
	FileTableOffset int64
	FileTableSize   int64
	DataOffset      int64 // always a multiple of PageSize, even with zero pages
	DataSize        int64
	TotalSize       int64
}

// PlanLayout computes the artifact layout for a page/file set. It fails
// rather than truncate when a region size or offset would overflow the
// stored field widths.
func PlanLayout(pageCount, fileCount int) (Layout, error) {
	if pageCount < 0 || fileCount < 0 {
		return Layout{}, fmt.Errorf("negative counts: pages=%d files=%d", pageCount, fileCount)
	}
	if int64(pageCount) > math.MaxUint32 {
		return Layout{}, fmt.Errorf("page count %d exceeds 32-bit header field", pageCount)
	}
	if int64(fileCount) > math.MaxUint32 {
		return Layout{}, fmt.Errorf("file count %d exceeds 32-bit header field", fileCount)
	}

	indexSize, err := mulInt64(int64(pageCount), IndexRecordSize)
	if err != nil {
		return Layout{}, fmt.Errorf("index table: %w", err)
	}
	fileTableSize, err := mulInt64(int64(fileCount), FileRecordSize)
	if err != nil {
		return Layout{}, fmt.Errorf("file table: %w", err)
	}
	dataSize, err := mulInt64(int64(pageCount), PageSize)
	if err != nil {
		return Layout{}, fmt.Errorf("data region: %w", err)
	}

	metaEnd, err := addInt64(HeaderSize, indexSize)
	if err == nil {
		metaEnd, err = addInt64(metaEnd, fileTableSize)
	}
	if err != nil {
		return Layout{}, fmt.Errorf("metadata regions: %w", err)
	}

	// The data region begins on a page boundary regardless of page count,
	// so an empty artifact has the same shape as a populated one.
	dataOffset, err := roundUpPage(metaEnd)
	if err != nil {
		return Layout{}, fmt.Errorf("data offset: %w", err)
	}
	totalSize, err := addInt64(dataOffset, dataSize)
	if err != nil {
		return Layout{}, fmt.Errorf("total size: %w", err)
	}

	return Layout{
		HeaderSize:      HeaderSize,
		IndexOffset:     HeaderSize,
		IndexSize:       indexSize,
		FileTableOffset: HeaderSize + indexSize,
		FileTableSize:   fileTableSize,
		DataOffset:      dataOffset,
		DataSize:        dataSize,
		TotalSize:       totalSize,
	}, nil
}

func mulInt64(a, b int64) (int64, error) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, fmt.Errorf("size overflow: %d * %d", a, b)
	}
	return a * b, nil
}

func addInt64(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("size overflow: %d + %d", a, b)
	}
	return a + b, nil
}

func roundUpPage(n int64) (int64, error) {
	r, err := addInt64(n, PageSize-1)
	if err != nil {
		return 0, err
	}
	return r / PageSize * PageSize, nil
}

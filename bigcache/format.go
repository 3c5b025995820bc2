package bigcache

import (
	"encoding/binary"
	"fmt"
)

// On-disk format constants. All multi-byte fields are little-endian.
const (
	// Magic reads as "BIGC" in the first four bytes of an artifact.
	Magic uint32 = 0x42494743
	// FormatVersion is bumped on incompatible layout changes.
	FormatVersion uint32 = 1

	// PageSize mirrors trace.PageSize; the data region is packed in
	// whole pages of this size.
	PageSize = 4096

	// HeaderSize is the fixed byte width of the artifact header.
	HeaderSize = 88
	// IndexRecordSize is the fixed byte width of one index record.
	IndexRecordSize = 24
	// FileRecordSize is the fixed byte width of one file-table record.
	FileRecordSize = 536
	// MaxPathLen is the file-table path field width, including the
	// terminating zero byte.
	MaxPathLen = 512
)

// Per-page flags, recorded in index records. Writers currently emit zero;
// readers must tolerate unknown bits.
const (
	PageFlagExecutable uint16 = 1 << iota
	PageFlagReadOnly
	PageFlagCritical
	PageFlagCompressed
)

// Header is the fixed-size record at offset 0 of every artifact. It
// locates all other regions so a reader never recomputes the layout.
type Header struct {
	Magic           uint32
	Version         uint32
	PageCount       uint32
	FileCount       uint32
	DataOffset      uint64
	IndexOffset     uint64
	FileTableOffset uint64
	TotalSize       uint64
	Checksum        uint32 // CRC-32 (IEEE) over the index and file-table regions
	Flags           uint32
	// 32 reserved bytes follow on disk; zero-filled on write, ignored on read.
}

func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.PageCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.FileCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.DataOffset)
	binary.LittleEndian.PutUint64(buf[24:32], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[32:40], h.FileTableOffset)
	binary.LittleEndian.PutUint64(buf[40:48], h.TotalSize)
	binary.LittleEndian.PutUint32(buf[48:52], h.Checksum)
	binary.LittleEndian.PutUint32(buf[52:56], h.Flags)
	// buf[56:88] reserved
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("header truncated: %d bytes, need %d", len(buf), HeaderSize)
	}
	h := Header{
		Magic:           binary.LittleEndian.Uint32(buf[0:4]),
		Version:         binary.LittleEndian.Uint32(buf[4:8]),
		PageCount:       binary.LittleEndian.Uint32(buf[8:12]),
		FileCount:       binary.LittleEndian.Uint32(buf[12:16]),
		DataOffset:      binary.LittleEndian.Uint64(buf[16:24]),
		IndexOffset:     binary.LittleEndian.Uint64(buf[24:32]),
		FileTableOffset: binary.LittleEndian.Uint64(buf[32:40]),
		TotalSize:       binary.LittleEndian.Uint64(buf[40:48]),
		Checksum:        binary.LittleEndian.Uint32(buf[48:52]),
		Flags:           binary.LittleEndian.Uint32(buf[52:56]),
	}
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("bad magic 0x%08x, want 0x%08x", h.Magic, Magic)
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("unsupported format version %d", h.Version)
	}
	return h, nil
}

// indexRecord is the decoded form of one 24-byte index entry. The page's
// artifact offset is implied by record position: data_offset + i*PageSize.
type indexRecord struct {
	FileID           uint32
	Flags            uint16
	SourceOffset     uint64
	FirstAccessOrder uint64
}

func encodeIndexRecord(buf []byte, r indexRecord) {
	binary.LittleEndian.PutUint32(buf[0:4], r.FileID)
	binary.LittleEndian.PutUint16(buf[4:6], r.Flags)
	// buf[6:8] reserved
	binary.LittleEndian.PutUint64(buf[8:16], r.SourceOffset)
	binary.LittleEndian.PutUint64(buf[16:24], r.FirstAccessOrder)
}

func decodeIndexRecord(buf []byte) indexRecord {
	return indexRecord{
		FileID:           binary.LittleEndian.Uint32(buf[0:4]),
		Flags:            binary.LittleEndian.Uint16(buf[4:6]),
		SourceOffset:     binary.LittleEndian.Uint64(buf[8:16]),
		FirstAccessOrder: binary.LittleEndian.Uint64(buf[16:24]),
	}
}

func encodeFileRecord(buf []byte, f FileEntry) error {
	path := []byte(f.Path)
	if len(path) > MaxPathLen-1 {
		return fmt.Errorf("path %q exceeds %d bytes", f.Path, MaxPathLen-1)
	}
	binary.LittleEndian.PutUint32(buf[0:4], f.ID)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(path)))
	binary.LittleEndian.PutUint32(buf[8:12], f.PageCount)
	// buf[12:16] reserved
	binary.LittleEndian.PutUint64(buf[16:24], uint64(f.OriginalSize))
	copy(buf[24:24+MaxPathLen], path) // remainder stays zero
	return nil
}

func decodeFileRecord(buf []byte) (FileEntry, error) {
	pathLen := binary.LittleEndian.Uint32(buf[4:8])
	if pathLen > MaxPathLen-1 {
		return FileEntry{}, fmt.Errorf("file record path length %d exceeds %d", pathLen, MaxPathLen-1)
	}
	return FileEntry{
		ID:           binary.LittleEndian.Uint32(buf[0:4]),
		PageCount:    binary.LittleEndian.Uint32(buf[8:12]),
		OriginalSize: int64(binary.LittleEndian.Uint64(buf[16:24])),
		Path:         string(buf[24 : 24+pathLen]),
	}, nil
}

package bigcache

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// PackOptions controls artifact generation.
type PackOptions struct {
	// SourceRoot, when set, is the directory real page bytes are read
	// from (trace paths are resolved beneath it). When empty, or when a
	// source file is missing or unreadable, pages get deterministic
	// placeholder content instead.
	SourceRoot string
	// Workers is the page-resolution concurrency. Values below 1 mean 1.
	// Workers write disjoint byte ranges of the pre-sized artifact, so
	// no write ordering is required between them.
	Workers int
}

// PackResult summarizes one completed packaging run.
type PackResult struct {
	Layout           Layout
	PageCount        int
	FileCount        int
	PlaceholderPages int    // pages synthesized because source bytes were unavailable
	Digest           string // blake3 hex digest of the finished artifact
}

// Pack writes the artifact for the deduplicated page set to outPath. The
// output is pre-sized to the layout's total size before any page is
// written, so a crash mid-run leaves a file whose recorded total size
// still matches its length but whose checksum exposes it; a failed run
// removes the output entirely. Source-read failures degrade to
// placeholder pages and never fail the run.
func Pack(ctx context.Context, d *Deduplicator, outPath string, opts PackOptions) (*PackResult, error) {
	layout, err := PlanLayout(d.PageCount(), d.FileCount())
	if err != nil {
		return nil, fmt.Errorf("plan layout: %w", err)
	}
	d.Finalize(layout)

	if opts.SourceRoot != "" {
		fillOriginalSizes(d.Files(), opts.SourceRoot)
	}

	meta, err := encodeMetadata(d, layout)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	// A failed or cancelled run must not leave a plausible-looking partial
	// artifact behind.
	discard := func(cause error) error {
		f.Close()
		if rmErr := os.Remove(outPath); rmErr != nil {
			logrus.Warnf("could not remove invalid artifact %s: %v", outPath, rmErr)
		}
		return cause
	}

	preallocate(f, layout.TotalSize)
	if err := f.Truncate(layout.TotalSize); err != nil {
		return nil, discard(fmt.Errorf("pre-size artifact to %d bytes: %w", layout.TotalSize, err))
	}
	if _, err := f.WriteAt(meta, 0); err != nil {
		return nil, discard(fmt.Errorf("write metadata regions: %w", err))
	}

	placeholders, err := writePages(ctx, f, d.Pages(), layout, opts)
	if err != nil {
		return nil, discard(err)
	}

	info, err := f.Stat()
	if err == nil && info.Size() != layout.TotalSize {
		err = fmt.Errorf("artifact size %d, want %d", info.Size(), layout.TotalSize)
	}
	if err != nil {
		return nil, discard(err)
	}

	digest, err := digestFile(f)
	if err != nil {
		return nil, discard(fmt.Errorf("digest artifact: %w", err))
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close artifact: %w", err)
	}

	logrus.Infof("packed %d pages from %d files into %s (%d bytes, %d placeholder pages)",
		d.PageCount(), d.FileCount(), outPath, layout.TotalSize, placeholders)

	return &PackResult{
		Layout:           layout,
		PageCount:        d.PageCount(),
		FileCount:        d.FileCount(),
		PlaceholderPages: placeholders,
		Digest:           digest,
	}, nil
}

// encodeMetadata builds the header, index table and file table as one
// contiguous buffer starting at offset 0.
func encodeMetadata(d *Deduplicator, layout Layout) ([]byte, error) {
	buf := make([]byte, layout.FileTableOffset+layout.FileTableSize)

	for i, page := range d.Pages() {
		fileID, ok := d.fileID(page.File)
		if !ok {
			return nil, fmt.Errorf("page %d references unknown file %q", i, page.File)
		}
		encodeIndexRecord(buf[layout.IndexOffset+int64(i)*IndexRecordSize:], indexRecord{
			FileID:           fileID,
			SourceOffset:     uint64(page.SourceOffset),
			FirstAccessOrder: uint64(page.FirstAccessOrder),
		})
	}
	for i, file := range d.Files() {
		off := layout.FileTableOffset + int64(i)*FileRecordSize
		if err := encodeFileRecord(buf[off:off+FileRecordSize], file); err != nil {
			return nil, fmt.Errorf("file table entry %d: %w", i, err)
		}
	}

	header := Header{
		Magic:           Magic,
		Version:         FormatVersion,
		PageCount:       uint32(d.PageCount()),
		FileCount:       uint32(d.FileCount()),
		DataOffset:      uint64(layout.DataOffset),
		IndexOffset:     uint64(layout.IndexOffset),
		FileTableOffset: uint64(layout.FileTableOffset),
		TotalSize:       uint64(layout.TotalSize),
		Checksum:        crc32.ChecksumIEEE(buf[layout.IndexOffset:]),
	}
	copy(buf, encodeHeader(header))
	return buf, nil
}

// writePages resolves page content and writes the data region with a
// fixed pool of workers, each writing only its own byte ranges.
func writePages(ctx context.Context, f *os.File, pages []PageEntry, layout Layout, opts PackOptions) (int, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(pages) {
		workers = len(pages)
	}
	if len(pages) == 0 {
		return 0, nil
	}

	tasks := make(chan int, len(pages))
	for i := range pages {
		tasks <- i
	}
	close(tasks)

	errs := make(chan error, 1)
	var failed atomic.Bool
	var placeholders atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resolver := newPageResolver(opts.SourceRoot)
			defer resolver.close()
			buf := make([]byte, PageSize)
			for i := range tasks {
				if ctx.Err() != nil || failed.Load() {
					return
				}
				if resolver.resolve(pages[i], buf) {
					placeholders.Add(1)
				}
				if _, err := f.WriteAt(buf, layout.DataOffset+int64(i)*PageSize); err != nil {
					failed.Store(true)
					select {
					case errs <- fmt.Errorf("write page %d at offset %d: %w", i, layout.DataOffset+int64(i)*PageSize, err):
					default:
					}
					return
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errs:
		return 0, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int(placeholders.Load()), nil
}

// pageResolver reads page bytes from the source tree, keeping per-worker
// open file handles. A nil cache entry marks a file already known to be
// unreadable.
type pageResolver struct {
	root  string
	cache map[string]*os.File
}

func newPageResolver(root string) *pageResolver {
	return &pageResolver{root: root, cache: make(map[string]*os.File)}
}

func (r *pageResolver) close() {
	for _, f := range r.cache {
		if f != nil {
			f.Close()
		}
	}
}

// resolve fills buf with exactly PageSize bytes for page. Returns true
// when placeholder content was synthesized.
func (r *pageResolver) resolve(page PageEntry, buf []byte) bool {
	if r.root != "" {
		if f := r.open(page.File); f != nil {
			n, err := f.ReadAt(buf, page.SourceOffset)
			if n > 0 && (err == nil || err == io.EOF) {
				// Zero-pad a short read to a full page.
				for i := n; i < PageSize; i++ {
					buf[i] = 0
				}
				return false
			}
		}
	}
	synthesizePlaceholder(page, buf)
	return true
}

func (r *pageResolver) open(path string) *os.File {
	f, cached := r.cache[path]
	if cached {
		return f
	}
	full := filepath.Join(r.root, strings.TrimPrefix(path, "/"))
	f, err := os.Open(full)
	if err != nil {
		f = nil
	}
	r.cache[path] = f
	return f
}

// synthesizePlaceholder writes deterministic page metadata so repeated
// runs over the same trace stay byte-identical even without source data.
func synthesizePlaceholder(page PageEntry, buf []byte) {
	content := fmt.Sprintf("SIMULATED PAGE\nFile: %s\nOffset: %d\nOrder: %d\n",
		page.File, page.SourceOffset, page.FirstAccessOrder)
	n := copy(buf, content)
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
}

func fillOriginalSizes(files []FileEntry, root string) {
	for i := range files {
		full := filepath.Join(root, strings.TrimPrefix(files[i].Path, "/"))
		if info, err := os.Stat(full); err == nil {
			files[i].OriginalSize = info.Size()
		}
	}
}

// DigestArtifact returns the blake3 hex digest of the file at path.
func DigestArtifact(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	return digestFile(f)
}

func digestFile(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

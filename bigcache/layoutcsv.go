package bigcache

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// layoutColumns is the canonical layout-CSV column set, one row per page
// in artifact order. Downstream tooling and the simulator consume this.
var layoutColumns = []string{"bigcache_offset", "source_file", "source_offset", "size", "first_access_order"}

// ExportLayoutCSV writes the finalized page sequence as a layout CSV.
// Call Deduplicator.Finalize (or Pack) first so artifact offsets are set.
func ExportLayoutCSV(w io.Writer, pages []PageEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(layoutColumns); err != nil {
		return err
	}
	for _, p := range pages {
		row := []string{
			strconv.FormatInt(p.BigCacheOffset, 10),
			p.File,
			strconv.FormatInt(p.SourceOffset, 10),
			strconv.Itoa(PageSize),
			strconv.FormatInt(p.FirstAccessOrder, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLayoutCSV exports the page sequence to a file.
func WriteLayoutCSV(path string, pages []PageEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create layout csv: %w", err)
	}
	if err := ExportLayoutCSV(f, pages); err != nil {
		f.Close()
		return fmt.Errorf("write layout csv: %w", err)
	}
	return f.Close()
}

// ImportLayoutCSV reads a layout CSV back into an equivalent PageEntry
// sequence. Columns may appear in any order; extra columns are ignored.
func ImportLayoutCSV(r io.Reader) ([]PageEntry, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read layout csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range layoutColumns {
		if name == "size" {
			continue // size is redundant (always PageSize); tolerate its absence
		}
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("layout csv missing column %q", name)
		}
	}

	var pages []PageEntry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("layout csv row %d: %w", len(pages)+2, err)
		}
		p := PageEntry{File: row[col["source_file"]]}
		if p.BigCacheOffset, err = strconv.ParseInt(row[col["bigcache_offset"]], 10, 64); err != nil {
			return nil, fmt.Errorf("layout csv row %d: bad bigcache_offset: %w", len(pages)+2, err)
		}
		if p.SourceOffset, err = strconv.ParseInt(row[col["source_offset"]], 10, 64); err != nil {
			return nil, fmt.Errorf("layout csv row %d: bad source_offset: %w", len(pages)+2, err)
		}
		if p.FirstAccessOrder, err = strconv.ParseInt(row[col["first_access_order"]], 10, 64); err != nil {
			return nil, fmt.Errorf("layout csv row %d: bad first_access_order: %w", len(pages)+2, err)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

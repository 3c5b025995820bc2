package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Column name variants accepted for each required field. The lowercase
// names are written by the layout exporter; the capitalized names come
// from the raw kernel tracer dumps.
var (
	fileColumns   = []string{"source_file", "Filename"}
	offsetColumns = []string{"source_offset", "Offset"}
	orderColumns  = []string{"first_access_order", "Order"}
)

// LoadResult is the outcome of parsing one trace input.
type LoadResult struct {
	Records []Record
	Skipped int // rows dropped due to missing fields or unparseable numbers
}

// Load reads a trace CSV from path. See Read for the accepted format.
func Load(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	defer f.Close()

	res, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read trace %s: %w", path, err)
	}
	return res, nil
}

// Read parses a trace from CSV input. The header row must contain a file,
// an offset and an order column under either naming convention. Rows with
// missing or unparseable required fields are skipped and counted, never
// fatal. An input with zero usable rows is an error.
func Read(r io.Reader) (*LoadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tracer dumps have trailing junk columns on some rows
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("trace input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	fileIdx, err := findColumn(header, fileColumns)
	if err != nil {
		return nil, err
	}
	offsetIdx, err := findColumn(header, offsetColumns)
	if err != nil {
		return nil, err
	}
	orderIdx, err := findColumn(header, orderColumns)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{}
	row := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			logrus.Warnf("trace row %d: %v, skipping", row, err)
			res.Skipped++
			continue
		}
		rec, ok := parseRow(fields, fileIdx, offsetIdx, orderIdx, row)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if len(res.Records) == 0 {
		return nil, fmt.Errorf("trace input has no usable rows (%d skipped)", res.Skipped)
	}
	if res.Skipped > 0 {
		logrus.Warnf("trace load: skipped %d of %d rows", res.Skipped, res.Skipped+len(res.Records))
	}
	return res, nil
}

func parseRow(fields []string, fileIdx, offsetIdx, orderIdx, row int) (Record, bool) {
	maxIdx := fileIdx
	if offsetIdx > maxIdx {
		maxIdx = offsetIdx
	}
	if orderIdx > maxIdx {
		maxIdx = orderIdx
	}
	if len(fields) <= maxIdx {
		logrus.Warnf("trace row %d: %d fields, need %d, skipping", row, len(fields), maxIdx+1)
		return Record{}, false
	}

	file := fields[fileIdx]
	if file == "" {
		logrus.Warnf("trace row %d: empty file path, skipping", row)
		return Record{}, false
	}
	offset, err := strconv.ParseInt(fields[offsetIdx], 10, 64)
	if err != nil || offset < 0 {
		logrus.Warnf("trace row %d: bad offset %q, skipping", row, fields[offsetIdx])
		return Record{}, false
	}
	order, err := strconv.ParseInt(fields[orderIdx], 10, 64)
	if err != nil {
		logrus.Warnf("trace row %d: bad order %q, skipping", row, fields[orderIdx])
		return Record{}, false
	}
	return Record{File: file, Offset: offset, Order: order}, true
}

func findColumn(header []string, names []string) (int, error) {
	for _, name := range names {
		for i, col := range header {
			if col == name {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("trace header %v has none of the required columns %v", header, names)
}

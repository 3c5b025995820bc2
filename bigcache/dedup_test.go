package bigcache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldboot/bigcache/trace"
)

// scenarioTrace is the canonical 5-record trace: four distinct pages over
// two files, with the final record re-touching an already-seen page.
func scenarioTrace() []trace.Record {
	return []trace.Record{
		{File: "fileA", Offset: 0, Order: 1},
		{File: "fileA", Offset: 4096, Order: 2},
		{File: "fileB", Offset: 0, Order: 3},
		{File: "fileA", Offset: 8192, Order: 4},
		{File: "fileA", Offset: 4096, Order: 5}, // duplicate page
	}
}

func TestDeduplicatorScenario(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))

	require.Equal(t, 4, d.PageCount())
	require.Equal(t, 2, d.FileCount())

	pages := d.Pages()
	require.Equal(t, "fileA", pages[0].File)
	require.Equal(t, int64(0), pages[0].SourceOffset)
	require.Equal(t, "fileA", pages[1].File)
	require.Equal(t, int64(4096), pages[1].SourceOffset)
	require.Equal(t, "fileB", pages[2].File)
	require.Equal(t, "fileA", pages[3].File)
	require.Equal(t, int64(8192), pages[3].SourceOffset)

	// The duplicate record contributed no entry and kept order 2.
	require.Equal(t, int64(2), pages[1].FirstAccessOrder)
}

func TestDeduplicatorDuplicateReporting(t *testing.T) {
	d := NewDeduplicator()

	fresh, err := d.Add(trace.Record{File: "a", Offset: 100, Order: 1})
	require.NoError(t, err)
	require.True(t, fresh)

	// Same page, different in-page offset.
	fresh, err = d.Add(trace.Record{File: "a", Offset: 4000, Order: 2})
	require.NoError(t, err)
	require.False(t, fresh)
}

func TestDeduplicatorOrderPreservation(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))

	pages := d.Pages()
	for i := 1; i < len(pages); i++ {
		if pages[i-1].FirstAccessOrder > pages[i].FirstAccessOrder {
			t.Errorf("page %d order %d > page %d order %d",
				i-1, pages[i-1].FirstAccessOrder, i, pages[i].FirstAccessOrder)
		}
	}
}

func TestDeduplicatorDenseFileIDs(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))

	files := d.Files()
	for i, f := range files {
		require.Equal(t, uint32(i), f.ID)
	}
	require.Equal(t, "fileA", files[0].Path)
	require.Equal(t, uint32(3), files[0].PageCount)
	require.Equal(t, "fileB", files[1].Path)
	require.Equal(t, uint32(1), files[1].PageCount)
}

func TestDeduplicatorDeterminism(t *testing.T) {
	a, b := NewDeduplicator(), NewDeduplicator()
	require.NoError(t, a.AddTrace(scenarioTrace()))
	require.NoError(t, b.AddTrace(scenarioTrace()))
	require.Equal(t, a.Pages(), b.Pages())
	require.Equal(t, a.Files(), b.Files())
}

func TestDeduplicatorRejectsOverlongPath(t *testing.T) {
	d := NewDeduplicator()
	long := "/" + strings.Repeat("x", MaxPathLen)
	_, err := d.Add(trace.Record{File: long, Offset: 0, Order: 1})
	require.Error(t, err)
}

func TestDeduplicatorIndex(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))

	i, ok := d.Index(trace.PageKey{File: "fileB", Offset: 0})
	require.True(t, ok)
	require.Equal(t, 2, i)

	_, ok = d.Index(trace.PageKey{File: "fileB", Offset: 4096})
	require.False(t, ok)
}

func TestFinalizeAssignsSequentialOffsets(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))

	layout, err := PlanLayout(d.PageCount(), d.FileCount())
	require.NoError(t, err)
	d.Finalize(layout)

	for i, p := range d.Pages() {
		require.Equal(t, layout.DataOffset+int64(i)*PageSize, p.BigCacheOffset)
	}
}

func TestDistinctPageCountMatchesDeduplicator(t *testing.T) {
	d := NewDeduplicator()
	require.NoError(t, d.AddTrace(scenarioTrace()))
	require.Equal(t, d.PageCount(), DistinctPageCount(scenarioTrace()))
}

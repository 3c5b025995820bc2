package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldboot/bigcache/bigcache"
	"github.com/coldboot/bigcache/trace"
)

// scenarioTrace is the canonical 5-record trace: four distinct pages over
// two files.
func scenarioTrace() []trace.Record {
	return []trace.Record{
		{File: "fileA", Offset: 0, Order: 1},
		{File: "fileA", Offset: 4096, Order: 2},
		{File: "fileB", Offset: 0, Order: 3},
		{File: "fileA", Offset: 8192, Order: 4},
		{File: "fileA", Offset: 4096, Order: 5},
	}
}

func testProfile() StorageProfile {
	return StorageProfile{
		Name:               "test",
		SequentialReadMBps: 100,
		RandomReadIOPS:     10000,
		SeekTimeMs:         1.0,
		PageReadUs:         100, // 0.1ms
	}
}

func TestTraditionalScenarioElapsed(t *testing.T) {
	res := SimulateTraditional(scenarioTrace(), testProfile(), DefaultParams())

	// Exactly two file switches (fileA→fileB, fileB→fileA); the first
	// record and small same-file jumps seek nowhere.
	require.Equal(t, 2, res.FileSwitches)
	require.Equal(t, 2, res.Seeks)
	require.Equal(t, 5, res.IOCount)

	// 2 × 1ms seek + 5 × 0.1ms page reads
	require.InDelta(t, 2.5, res.ElapsedMs, 1e-9)
}

func TestTraditionalMinorSeek(t *testing.T) {
	records := []trace.Record{
		{File: "a", Offset: 0, Order: 1},
		{File: "a", Offset: 4096, Order: 2},       // sequential, no penalty
		{File: "a", Offset: 300 * 1024, Order: 3}, // jump beyond 128KiB
		{File: "a", Offset: 0, Order: 4},          // backward jump counts too
	}
	res := SimulateTraditional(records, testProfile(), DefaultParams())

	require.Equal(t, 0, res.FileSwitches)
	require.Equal(t, 2, res.Seeks)
	// 2 × 0.5ms minor seeks + 4 × 0.1ms page reads
	require.InDelta(t, 1.4, res.ElapsedMs, 1e-9)
}

func TestFullPreloadMatchesPackagerDedup(t *testing.T) {
	records := scenarioTrace()
	res := SimulateFullPreload(records, testProfile(), DefaultParams())

	require.Equal(t, bigcache.DistinctPageCount(records), res.DistinctPages)
	require.Equal(t, int64(4*4096), res.ArtifactBytes)
	require.Equal(t, 5, res.IOCount)

	wantPreheat := float64(4*4096) / (1024 * 1024) / 100 * 1000
	require.InDelta(t, wantPreheat, res.PreheatMs, 1e-9)
	require.InDelta(t, 5*0.1/1000, res.AccessMs, 1e-9)
	require.InDelta(t, res.PreheatMs+res.AccessMs, res.ElapsedMs, 1e-9)
}

func TestSizingAgreesWithPackagerLayout(t *testing.T) {
	records := scenarioTrace()
	profile := testProfile()
	params := DefaultParams()

	layout, err := bigcache.PlanLayout(bigcache.DistinctPageCount(records), 2)
	require.NoError(t, err)

	// Artifact and preheat sizes are derived from the format's page
	// size, never from tunable parameters, so they always match the
	// data region Pack writes.
	full := SimulateFullPreload(records, profile, params)
	require.Equal(t, layout.DataSize, full.ArtifactBytes)

	dp, err := SimulateDemandPaging(records, profile, params, 100)
	require.NoError(t, err)
	require.InDelta(t, sequentialReadMs(layout.DataSize, profile), dp.PreheatMs, 1e-9)
}

func TestDemandPagingDegenerateCases(t *testing.T) {
	records := scenarioTrace()
	profile := testProfile()
	params := DefaultParams()

	full := SimulateFullPreload(records, profile, params)

	t.Run("preheat 100 equals full preload preheat", func(t *testing.T) {
		res, err := SimulateDemandPaging(records, profile, params, 100)
		require.NoError(t, err)
		require.Equal(t, 4, res.PreheatedPages)
		require.Equal(t, 5, res.PagesHit)
		require.Equal(t, 0, res.PagesMiss)
		require.InDelta(t, full.PreheatMs, res.PreheatMs, 1e-9)
		// Per-record access overhead still applies at 100%.
		require.InDelta(t, full.AccessMs, res.AccessMs, 1e-9)
	})

	t.Run("preheat 0 is all faults", func(t *testing.T) {
		res, err := SimulateDemandPaging(records, profile, params, 0)
		require.NoError(t, err)
		require.Equal(t, 0, res.PreheatedPages)
		require.Zero(t, res.PreheatMs)
		require.Equal(t, 0, res.PagesHit)
		require.Equal(t, 5, res.PagesMiss)
		require.InDelta(t, 5*(params.FaultOverheadUs+params.FaultCopyUs)/1000, res.AccessMs, 1e-9)
	})

	t.Run("out of range rejected", func(t *testing.T) {
		_, err := SimulateDemandPaging(records, profile, params, -1)
		require.Error(t, err)
		_, err = SimulateDemandPaging(records, profile, params, 100.5)
		require.Error(t, err)
	})
}

func TestDemandPagingHitIsPageMembershipNotRecordIndex(t *testing.T) {
	// Record 5 re-touches the second distinct page; with half the pages
	// preheated it must be a hit even though its record index is past the
	// preheat count.
	res, err := SimulateDemandPaging(scenarioTrace(), testProfile(), DefaultParams(), 50)
	require.NoError(t, err)
	require.Equal(t, 2, res.PreheatedPages)
	// Hits: records 1, 2 and 5 (pages 0 and 1); misses: records 3 and 4.
	require.Equal(t, 3, res.PagesHit)
	require.Equal(t, 2, res.PagesMiss)
}

func TestSpeedup(t *testing.T) {
	s, err := Speedup(2.5, 0.5)
	require.NoError(t, err)
	require.InDelta(t, 5.0, s, 1e-9)

	_, err = Speedup(2.5, 0)
	require.Error(t, err)
	_, err = Speedup(2.5, -1)
	require.Error(t, err)
}

func TestEvaluateAll(t *testing.T) {
	profiles := map[string]StorageProfile{
		"emmc": BuiltinProfiles()["emmc"],
		"ufs":  BuiltinProfiles()["ufs"],
	}
	report, err := EvaluateAll(scenarioTrace(), profiles, DefaultParams(), []float64{0, 50, 100})
	require.NoError(t, err)

	// 2 profiles × (traditional + preload + 3 preheat levels)
	require.Len(t, report, 10)

	for _, key := range []string{
		"emmc/traditional", "emmc/preload", "emmc/preheat-0", "emmc/preheat-50", "emmc/preheat-100",
		"ufs/traditional", "ufs/preload", "ufs/preheat-0", "ufs/preheat-50", "ufs/preheat-100",
	} {
		m, ok := report[key]
		require.True(t, ok, "missing report key %s", key)
		require.Greater(t, m.ElapsedMs, 0.0)
	}

	trad := report["emmc/traditional"]
	preload := report["emmc/preload"]
	require.InDelta(t, trad.ElapsedMs/preload.ElapsedMs, preload.SpeedupVsTraditional, 1e-9)
}

func TestEvaluateAllDeterministic(t *testing.T) {
	profiles := BuiltinProfiles()
	a, err := EvaluateAll(scenarioTrace(), profiles, DefaultParams(), []float64{25, 75})
	require.NoError(t, err)
	b, err := EvaluateAll(scenarioTrace(), profiles, DefaultParams(), []float64{25, 75})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEvaluateAllRejectsBadInput(t *testing.T) {
	profiles := BuiltinProfiles()

	_, err := EvaluateAll(nil, profiles, DefaultParams(), nil)
	require.Error(t, err)

	_, err = EvaluateAll(scenarioTrace(), profiles, DefaultParams(), []float64{150})
	require.Error(t, err)

	bad := DefaultParams()
	bad.MinorSeekFactor = 2
	_, err = EvaluateAll(scenarioTrace(), profiles, bad, nil)
	require.Error(t, err)
}

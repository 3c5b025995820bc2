package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldboot/bigcache/bigcache"
	"github.com/coldboot/bigcache/simulator"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultTraceConfig()
	g1, err := NewGenerator(cfg)
	require.NoError(t, err)
	g2, err := NewGenerator(cfg)
	require.NoError(t, err)
	require.Equal(t, g1.Generate(), g2.Generate())
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultTraceConfig()
	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	records := g.Generate()

	require.Len(t, records, cfg.RecordCount)

	files := make(map[string]struct{})
	for i, rec := range records {
		require.Equal(t, int64(i+1), rec.Order)
		require.Zero(t, rec.Offset%4096, "offset %d not page aligned", rec.Offset)
		require.Less(t, rec.Offset, int64(cfg.PagesPerFile)*4096)
		files[rec.File] = struct{}{}
	}
	require.LessOrEqual(t, len(files), cfg.FileCount)
	require.Greater(t, len(files), 1, "trace never switched files")

	// Revisits must produce duplicate pages for the packager to remove.
	require.Less(t, bigcache.DistinctPageCount(records), len(records))
}

func TestTraceConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TraceConfig)
	}{
		{"zero files", func(c *TraceConfig) { c.FileCount = 0 }},
		{"zero records", func(c *TraceConfig) { c.RecordCount = 0 }},
		{"zero pages per file", func(c *TraceConfig) { c.PagesPerFile = 0 }},
		{"switch probability above one", func(c *TraceConfig) { c.FileSwitchProbability = 1.1 }},
		{"negative revisit probability", func(c *TraceConfig) { c.RevisitProbability = -0.1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTraceConfig()
			tc.mutate(&cfg)
			if _, err := NewGenerator(cfg); err == nil {
				t.Errorf("NewGenerator accepted %s", tc.name)
			}
		})
	}
}

// TestPackAndSimulateEndToEnd drives the whole pipeline over a synthetic
// trace: generate, deduplicate, pack, read back, simulate.
func TestPackAndSimulateEndToEnd(t *testing.T) {
	g, err := NewGenerator(DefaultTraceConfig())
	require.NoError(t, err)
	records := g.Generate()

	d := bigcache.NewDeduplicator()
	require.NoError(t, d.AddTrace(records))

	out := filepath.Join(t.TempDir(), "bigcache.bin")
	res, err := bigcache.Pack(context.Background(), d, out, bigcache.PackOptions{Workers: 4})
	require.NoError(t, err)
	require.Equal(t, bigcache.DistinctPageCount(records), res.PageCount)
	// No source tree was given, so every page is synthesized.
	require.Equal(t, res.PageCount, res.PlaceholderPages)

	r, err := bigcache.Open(out)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.VerifyChecksum())
	require.Len(t, r.Pages, res.PageCount)

	// Every trace record must resolve to a page in the artifact.
	for _, rec := range records {
		_, ok := r.Lookup(rec.File, rec.Offset)
		require.True(t, ok, "no artifact page for %s@%d", rec.File, rec.Offset)
	}

	report, err := simulator.EvaluateAll(records, simulator.BuiltinProfiles(),
		simulator.DefaultParams(), []float64{0, 25, 50, 75, 100})
	require.NoError(t, err)

	// Sequentialized access beats scattered reads on every device class.
	for key, m := range report {
		if m.Strategy == "traditional" {
			continue
		}
		require.Greater(t, m.SpeedupVsTraditional, 1.0, "strategy %s did not win", key)
	}
}

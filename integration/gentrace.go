// Package integration generates synthetic cold-start traces for
// end-to-end exercising of the packager and the simulator without real
// application captures.
package integration

import (
	"fmt"
	"math/rand"

	"github.com/coldboot/bigcache/trace"
)

// TraceConfig defines the shape of a generated cold-start trace.
type TraceConfig struct {
	// Number of distinct source files touched during startup.
	FileCount int `yaml:"file_count" json:"file_count"`
	// Total access records to emit.
	RecordCount int `yaml:"record_count" json:"record_count"`
	// Size of each source file in pages; accesses stay inside this range.
	PagesPerFile int `yaml:"pages_per_file" json:"pages_per_file"`
	// Probability of switching to a different file between records.
	// Startup traces are bursty, so the default keeps runs within one file.
	FileSwitchProbability float64 `yaml:"file_switch_probability" json:"file_switch_probability"`
	// Probability that a record re-touches an already visited page
	// instead of advancing, producing realistic duplicate rates.
	RevisitProbability float64 `yaml:"revisit_probability" json:"revisit_probability"`
	// Seed for deterministic generation.
	RandomSeed int64 `yaml:"random_seed" json:"random_seed"`
}

// DefaultTraceConfig returns a trace shape resembling a mid-size
// application startup: a few dozen libraries, mostly sequential reads
// with occasional cross-file jumps.
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		FileCount:             24,
		RecordCount:           2000,
		PagesPerFile:          256,
		FileSwitchProbability: 0.15,
		RevisitProbability:    0.2,
		RandomSeed:            1,
	}
}

// Validate checks that the configuration can drive generation.
func (c TraceConfig) Validate() error {
	if c.FileCount <= 0 {
		return fmt.Errorf("file_count must be positive, got %d", c.FileCount)
	}
	if c.RecordCount <= 0 {
		return fmt.Errorf("record_count must be positive, got %d", c.RecordCount)
	}
	if c.PagesPerFile <= 0 {
		return fmt.Errorf("pages_per_file must be positive, got %d", c.PagesPerFile)
	}
	if c.FileSwitchProbability < 0 || c.FileSwitchProbability > 1 {
		return fmt.Errorf("file_switch_probability must be in [0,1], got %g", c.FileSwitchProbability)
	}
	if c.RevisitProbability < 0 || c.RevisitProbability > 1 {
		return fmt.Errorf("revisit_probability must be in [0,1], got %g", c.RevisitProbability)
	}
	return nil
}

// Generator produces synthetic traces from one seeded source. It is not
// safe for concurrent use.
type Generator struct {
	cfg TraceConfig
	rng *rand.Rand
}

// NewGenerator creates a generator after validating the configuration.
func NewGenerator(cfg TraceConfig) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.RandomSeed)),
	}, nil
}

// Generate emits RecordCount access records in startup order. Runs
// within a file advance mostly page by page; revisits jump back to a
// page already seen in the current file.
func (g *Generator) Generate() []trace.Record {
	records := make([]trace.Record, 0, g.cfg.RecordCount)

	file := g.rng.Intn(g.cfg.FileCount)
	page := 0
	visited := map[int][]int{file: {0}}

	for order := 1; order <= g.cfg.RecordCount; order++ {
		records = append(records, trace.Record{
			File:   g.filePath(file),
			Offset: int64(page) * trace.PageSize,
			Order:  int64(order),
		})

		switch {
		case g.rng.Float64() < g.cfg.FileSwitchProbability:
			file = g.rng.Intn(g.cfg.FileCount)
			page = g.rng.Intn(g.cfg.PagesPerFile)
		case g.rng.Float64() < g.cfg.RevisitProbability && len(visited[file]) > 0:
			seen := visited[file]
			page = seen[g.rng.Intn(len(seen))]
		default:
			page = (page + 1) % g.cfg.PagesPerFile
		}
		visited[file] = append(visited[file], page)
	}
	return records
}

func (g *Generator) filePath(id int) string {
	return fmt.Sprintf("/opt/app/lib/module%03d.so", id)
}

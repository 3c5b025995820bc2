package simulator

import (
	"fmt"

	"github.com/coldboot/bigcache/trace"
)

// TraditionalResult is the estimated cost of replaying the trace as the
// application originally issued it: scattered, cross-file page reads.
type TraditionalResult struct {
	ElapsedMs    float64 `json:"elapsedMs"`
	FileSwitches int     `json:"fileSwitches"`
	Seeks        int     `json:"seeks"`
	IOCount      int     `json:"ioCount"`
}

// SimulateTraditional walks the trace in order. Every record costs one
// page read; switching files costs a full seek (readahead breakdown), and
// a same-file jump beyond the locality threshold costs a minor seek.
// The first record seeks nowhere: there is no previous position.
func SimulateTraditional(records []trace.Record, profile StorageProfile, params Params) TraditionalResult {
	res := TraditionalResult{IOCount: len(records)}

	var prevFile string
	var prevOffset int64
	for i, rec := range records {
		if i > 0 {
			if rec.File != prevFile {
				res.FileSwitches++
				res.Seeks++
				res.ElapsedMs += profile.SeekTimeMs
			} else if delta := rec.Offset - prevOffset; delta > params.MinorSeekThresholdBytes || delta < -params.MinorSeekThresholdBytes {
				res.Seeks++
				res.ElapsedMs += profile.SeekTimeMs * params.MinorSeekFactor
			}
		}
		res.ElapsedMs += profile.PageReadUs / 1000
		prevFile = rec.File
		prevOffset = rec.Offset
	}
	return res
}

// PreloadResult is the estimated cost of one sequential read of the whole
// packaged artifact followed by in-memory accesses.
type PreloadResult struct {
	ElapsedMs     float64 `json:"elapsedMs"`
	PreheatMs     float64 `json:"preheatMs"`
	AccessMs      float64 `json:"accessMs"`
	ArtifactBytes int64   `json:"artifactBytes"`
	DistinctPages int     `json:"distinctPages"`
	IOCount       int     `json:"ioCount"`
}

// SimulateFullPreload estimates the full-preload strategy. The artifact
// size comes from the packager's own deduplication semantics, so the
// figure matches what Pack would produce. Every original access still
// costs the in-memory constant; the trace is not deduplicated for the
// access phase.
func SimulateFullPreload(records []trace.Record, profile StorageProfile, params Params) PreloadResult {
	distinct := distinctPageSequence(records)
	artifactBytes := int64(len(distinct)) * trace.PageSize

	res := PreloadResult{
		ArtifactBytes: artifactBytes,
		DistinctPages: len(distinct),
		IOCount:       len(records),
	}
	res.PreheatMs = sequentialReadMs(artifactBytes, profile)
	res.AccessMs = float64(len(records)) * params.MemoryAccessUs / 1000
	res.ElapsedMs = res.PreheatMs + res.AccessMs
	return res
}

// DemandPagingResult is the estimated cost of preheating a fraction of
// the artifact sequentially and fault-handling the rest on access.
type DemandPagingResult struct {
	ElapsedMs      float64 `json:"elapsedMs"`
	PreheatMs      float64 `json:"preheatMs"`
	AccessMs       float64 `json:"accessMs"`
	PreheatPercent float64 `json:"preheatPercent"`
	PreheatedPages int     `json:"preheatedPages"`
	PagesHit       int     `json:"pagesHit"`  // record accesses landing in the preheated region
	PagesMiss      int     `json:"pagesMiss"` // record accesses taking the fault path
	DistinctPages  int     `json:"distinctPages"`
}

// SimulateDemandPaging estimates partial-preheat demand paging with the
// first preheatPercent of distinct pages (in first-access order) loaded
// by one scaled sequential read. A record is a hit when its page lies in
// that preheated prefix; otherwise it pays the fault-handling constants.
// preheatPercent 0 and 100 are valid degenerate cases.
func SimulateDemandPaging(records []trace.Record, profile StorageProfile, params Params, preheatPercent float64) (DemandPagingResult, error) {
	if preheatPercent < 0 || preheatPercent > 100 {
		return DemandPagingResult{}, ErrInvalidConfig(fmt.Sprintf("preheat percent %g outside [0,100]", preheatPercent))
	}

	distinct := distinctPageSequence(records)
	preheated := int(float64(len(distinct)) * preheatPercent / 100)

	res := DemandPagingResult{
		PreheatPercent: preheatPercent,
		PreheatedPages: preheated,
		DistinctPages:  len(distinct),
	}
	res.PreheatMs = sequentialReadMs(int64(preheated)*trace.PageSize, profile)

	index := make(map[trace.PageKey]int, len(distinct))
	for i, key := range distinct {
		index[key] = i
	}
	for _, rec := range records {
		if index[rec.Key()] < preheated {
			res.PagesHit++
			res.AccessMs += params.MemoryAccessUs / 1000
		} else {
			res.PagesMiss++
			res.AccessMs += (params.FaultOverheadUs + params.FaultCopyUs) / 1000
		}
	}
	res.ElapsedMs = res.PreheatMs + res.AccessMs
	return res, nil
}

// Speedup reports how much faster the alternative strategy is than the
// baseline. A non-positive alternative elapsed time is an error, never a
// silent infinite ratio.
func Speedup(baselineMs, alternativeMs float64) (float64, error) {
	if alternativeMs <= 0 {
		return 0, SimError{Message: fmt.Sprintf("non-positive elapsed time %g in speedup denominator", alternativeMs)}
	}
	return baselineMs / alternativeMs, nil
}

// distinctPageSequence returns the trace's distinct pages in first-touch
// order, using the same PageKey identity the packager dedupes on.
func distinctPageSequence(records []trace.Record) []trace.PageKey {
	seen := make(map[trace.PageKey]struct{}, len(records))
	keys := make([]trace.PageKey, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func sequentialReadMs(bytes int64, profile StorageProfile) float64 {
	return float64(bytes) / (1024 * 1024) / profile.SequentialReadMBps * 1000
}

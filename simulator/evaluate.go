package simulator

import (
	"fmt"
	"sync"

	"github.com/coldboot/bigcache/trace"
)

// StrategyMetrics is one (profile, strategy) cell of an evaluation,
// shaped for reporting tools that never re-run the simulation.
type StrategyMetrics struct {
	Profile              string  `json:"profile"`
	Strategy             string  `json:"strategy"`
	ElapsedMs            float64 `json:"elapsedMs"`
	PreheatMs            float64 `json:"preheatMs"`
	AccessMs             float64 `json:"accessMs"`
	PreheatPercent       float64 `json:"preheatPercent,omitempty"`
	SpeedupVsTraditional float64 `json:"speedupVsTraditional,omitempty"`
}

// Report maps "<profile>/<strategy>" keys to their metrics.
type Report map[string]StrategyMetrics

// EvaluateAll runs every strategy for every profile, plus one demand
// paging run per preheat percent. Each cell is a pure function of
// (records, profile, params), so profiles run in parallel and the result
// does not depend on scheduling.
func EvaluateAll(records []trace.Record, profiles map[string]StorageProfile, params Params, preheatPercents []float64) (Report, error) {
	if len(records) == 0 {
		return nil, SimError{Message: "empty trace"}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	for _, pct := range preheatPercents {
		if pct < 0 || pct > 100 {
			return nil, ErrInvalidConfig(fmt.Sprintf("preheat percent %g outside [0,100]", pct))
		}
	}

	report := make(Report)
	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup

	for key, profile := range profiles {
		wg.Add(1)
		go func(key string, profile StorageProfile) {
			defer wg.Done()
			cells, err := evaluateProfile(records, key, profile, params, preheatPercents)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for k, m := range cells {
				report[k] = m
			}
		}(key, profile)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return report, nil
}

func evaluateProfile(records []trace.Record, key string, profile StorageProfile, params Params, preheatPercents []float64) (Report, error) {
	cells := make(Report)

	trad := SimulateTraditional(records, profile, params)
	cells[key+"/traditional"] = StrategyMetrics{
		Profile:   profile.Name,
		Strategy:  "traditional",
		ElapsedMs: trad.ElapsedMs,
		AccessMs:  trad.ElapsedMs,
	}

	preload := SimulateFullPreload(records, profile, params)
	speedup, err := Speedup(trad.ElapsedMs, preload.ElapsedMs)
	if err != nil {
		return nil, err
	}
	cells[key+"/preload"] = StrategyMetrics{
		Profile:              profile.Name,
		Strategy:             "preload",
		ElapsedMs:            preload.ElapsedMs,
		PreheatMs:            preload.PreheatMs,
		AccessMs:             preload.AccessMs,
		SpeedupVsTraditional: speedup,
	}

	for _, pct := range preheatPercents {
		dp, err := SimulateDemandPaging(records, profile, params, pct)
		if err != nil {
			return nil, err
		}
		speedup, err := Speedup(trad.ElapsedMs, dp.ElapsedMs)
		if err != nil {
			return nil, err
		}
		cells[fmt.Sprintf("%s/preheat-%g", key, pct)] = StrategyMetrics{
			Profile:              profile.Name,
			Strategy:             "demand-paging",
			ElapsedMs:            dp.ElapsedMs,
			PreheatMs:            dp.PreheatMs,
			AccessMs:             dp.AccessMs,
			PreheatPercent:       pct,
			SpeedupVsTraditional: speedup,
		}
	}
	return cells, nil
}

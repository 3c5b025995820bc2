package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coldboot/bigcache/simulator"
)

var (
	simulationsRun = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bigcache_simulations_total",
		Help: "Number of simulation requests served",
	})
	elapsedGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bigcache_strategy_elapsed_ms",
		Help: "Estimated cold-start elapsed time of the last simulation",
	}, []string{"profile", "strategy"})
	speedupGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bigcache_strategy_speedup",
		Help: "Speedup over the traditional strategy in the last simulation",
	}, []string{"profile", "strategy"})
	traceRecordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bigcache_trace_records",
		Help: "Access records in the loaded trace",
	})
	distinctPagesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bigcache_trace_distinct_pages",
		Help: "Distinct pages in the loaded trace",
	})
)

func initPromMetrics() {
	prometheus.MustRegister(simulationsRun, elapsedGauge, speedupGauge,
		traceRecordsGauge, distinctPagesGauge)
}

func updatePromMetrics(report simulator.Report) {
	for _, m := range report {
		labels := prometheus.Labels{"profile": m.Profile, "strategy": m.Strategy}
		elapsedGauge.With(labels).Set(m.ElapsedMs)
		if m.Strategy != "traditional" {
			speedupGauge.With(labels).Set(m.SpeedupVsTraditional)
		}
	}
}

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── API ─────────────────────────────────────────────────────────────────────

	APITasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "api",
		Name:      "tasks_submitted_total",
		Help:      "Total download jobs submitted, labelled by site profile.",
	}, []string{"model"})

	APIFormatProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "api",
		Name:      "format_probes_total",
		Help:      "Total format-listing calls, labelled by site profile.",
	}, []string{"model"})

	// ─── Worker ──────────────────────────────────────────────────────────────────

	WorkerJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "worker",
		Name:      "jobs_processed_total",
		Help:      "Total jobs finished, labelled by site profile and terminal status.",
	}, []string{"model", "status"})

	WorkerJobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamfetch",
		Subsystem: "worker",
		Name:      "jobs_inflight",
		Help:      "Download jobs currently executing.",
	})

	WorkerJobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streamfetch",
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "End-to-end download job time in seconds.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"model"})

	// ─── Storage ─────────────────────────────────────────────────────────────────

	SweeperDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "sweeper",
		Name:      "files_deleted_total",
		Help:      "Total artifacts removed by the retention sweeper.",
	})

	// ─── Music lookup ────────────────────────────────────────────────────────────

	LookupCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "lookup",
		Name:      "cache_hits_total",
		Help:      "Lookup requests served from the in-process cache.",
	})

	LookupCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "streamfetch",
		Subsystem: "lookup",
		Name:      "cache_misses_total",
		Help:      "Lookup requests that had to call the upstream API.",
	})
)

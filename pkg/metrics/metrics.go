package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsCreatedTotal 已受理的分离任务
	JobsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stem_jobs_created_total",
		Help: "Total number of separation jobs accepted",
	})

	// JobsFinishedTotal 结束的任务，status: completed/error
	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stem_jobs_finished_total",
		Help: "Total number of separation jobs that reached a final status",
	}, []string{"status"})

	// JobsInFlight 当前注册表中尚未结束的任务
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stem_jobs_in_flight",
		Help: "Number of jobs that are pending or processing",
	})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stem_job_duration_seconds",
		Help:    "Wall time from job creation to final status",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	// ToolInvocationsTotal 外部工具调用，result: ok/error
	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stem_tool_invocations_total",
		Help: "Total number of external tool invocations",
	}, []string{"tool", "result"})

	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stem_tool_duration_seconds",
		Help:    "External tool run time in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"tool"})

	// ReconcileRecordsTotal 对账插入的记录数，kind: track/stem/sample/loop
	ReconcileRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stem_reconcile_records_total",
		Help: "Total number of catalog records inserted by reconciliation",
	}, []string{"kind"})

	ReconcileErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stem_reconcile_errors_total",
		Help: "Total number of per-file reconciliation errors",
	})
)

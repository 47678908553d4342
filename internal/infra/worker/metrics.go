package worker

import (
	"flaghook/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics embeds the configuration metrics and adds the retention
// job metrics:
//   - worker_retention_job_runs_total{status}
//   - worker_retention_job_duration_seconds
//   - worker_retention_job_deleted_total
//   - worker_retention_job_last_success_timestamp
type WorkerMetrics struct {
	*config.ConfigMetrics

	RetentionJobRunsTotal        *prometheus.CounterVec
	RetentionJobDurationSeconds  prometheus.Histogram
	RetentionJobDeletedTotal     prometheus.Counter
	RetentionJobLastSuccessStamp prometheus.Gauge
}

// NewWorkerMetrics creates the worker metrics and registers them with reg.
// A nil reg leaves them unregistered, which keeps tests independent.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),
		RetentionJobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_retention_job_runs_total",
			Help: "Total number of integration event retention runs by status",
		}, []string{"status"}),
		RetentionJobDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_retention_job_duration_seconds",
			Help:    "Duration of integration event retention runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		RetentionJobDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "worker_retention_job_deleted_total",
			Help: "Total number of integration events deleted by retention",
		}),
		RetentionJobLastSuccessStamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_retention_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful retention run",
		}),
	}
}

// RecordJobRun counts a run with status "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.RetentionJobRunsTotal.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.RetentionJobDurationSeconds.Observe(seconds)
}

func (m *WorkerMetrics) RecordDeleted(n int64) {
	if n > 0 {
		m.RetentionJobDeletedTotal.Add(float64(n))
	}
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.RetentionJobLastSuccessStamp.SetToCurrentTime()
}

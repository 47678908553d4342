package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"flaghook/internal/handler/http/respond"

	"github.com/robfig/cron/v3"
)

// Cleaner deletes delivery records older than the retention period.
type Cleaner interface {
	CleanUp(ctx context.Context, retention time.Duration) (int64, error)
}

// RetentionJob trims the integration event log on a cron schedule.
type RetentionJob struct {
	Cleaner   Cleaner
	Retention time.Duration
	Timeout   time.Duration
	Metrics   *WorkerMetrics
	Logger    *slog.Logger
}

const defaultRetentionTimeout = 5 * time.Minute

// Run executes one cleanup pass. Failures are logged and counted; they
// never stop the scheduler.
func (j *RetentionJob) Run(ctx context.Context) {
	start := time.Now()
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = defaultRetentionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	deleted, err := j.Cleaner.CleanUp(ctx, j.Retention)
	j.Metrics.RecordJobDuration(time.Since(start).Seconds())
	if err != nil {
		j.Logger.Error("integration event cleanup failed", slog.String("error", respond.SanitizeError(err)))
		j.Metrics.RecordJobRun("failure")
		return
	}

	j.Metrics.RecordJobRun("success")
	j.Metrics.RecordDeleted(deleted)
	j.Metrics.RecordLastSuccess()
	j.Logger.Info("integration event cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Duration("retention", j.Retention),
		slog.Duration("duration", time.Since(start)))
}

// NewScheduler returns a cron scheduler running job on cfg's cleanup
// schedule in cfg's timezone. ctx is handed to every run.
func NewScheduler(ctx context.Context, cfg *WorkerConfig, job *RetentionJob) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		job.Logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.CleanupSchedule, func() { job.Run(ctx) }); err != nil {
		return nil, fmt.Errorf("add retention job: %w", err)
	}
	return c, nil
}

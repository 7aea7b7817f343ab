package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Task is a unit of background work run on a cron schedule.
type Task interface {
	Run(ctx context.Context) error
}

// CronJob runs a task on a cron spec such as "@every 30m". Overlapping runs
// are skipped and panics are recovered.
type CronJob struct {
	cron    *cron.Cron
	task    Task
	name    string
	timeout time.Duration
	logger  *slog.Logger
	baseCtx context.Context
}

func NewCronJob(name, spec string, task Task, timeout time.Duration, logger *slog.Logger) (*CronJob, error) {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))

	j := &CronJob{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		task:    task,
		name:    name,
		timeout: timeout,
		logger:  logger.With("job", name),
		baseCtx: context.Background(),
	}

	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return nil, fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return j, nil
}

// Start blocks until ctx is cancelled, then waits for a running task.
func (j *CronJob) Start(ctx context.Context) error {
	j.baseCtx = ctx
	j.cron.Start()
	j.logger.Info("cron job started", "entries", len(j.cron.Entries()))

	<-ctx.Done()

	<-j.cron.Stop().Done()
	j.logger.Info("cron job stopped")
	return ctx.Err()
}

func (j *CronJob) run() {
	ctx := j.baseCtx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := j.task.Run(ctx); err != nil {
		j.logger.Error("cron task failed", "error", err, "duration", time.Since(start))
		return
	}
	j.logger.Info("cron task done", "duration", time.Since(start))
}

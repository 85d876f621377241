package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/resumepilot/resume-optimizer/internal/core/domain"
	"github.com/resumepilot/resume-optimizer/internal/core/ports"
	"github.com/resumepilot/resume-optimizer/internal/observability/metrics"
)

const serviceName = "worker"

// Worker pulls upload jobs from the queue and runs them through the
// processor one at a time. Shutdown is cooperative: the loop stops taking
// new jobs when ctx is cancelled but lets the in-flight job finish under
// its own timeout.
type Worker struct {
	queue      ports.JobQueue
	processor  ports.JobProcessor
	metrics    *metrics.WorkerMetrics
	pollWait   time.Duration
	jobTimeout time.Duration
}

func New(
	queue ports.JobQueue,
	processor ports.JobProcessor,
	workerMetrics *metrics.WorkerMetrics,
	pollWait time.Duration,
	jobTimeout time.Duration,
) *Worker {
	if pollWait <= 0 {
		pollWait = 5 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &Worker{
		queue:      queue,
		processor:  processor,
		metrics:    workerMetrics,
		pollWait:   pollWait,
		jobTimeout: jobTimeout,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("worker started", "poll_wait", w.pollWait, "job_timeout", w.jobTimeout)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, w.pollWait)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("worker stopping")
				return
			}
			slog.Error("dequeue failed", "error", err)
			w.sleep(ctx, w.pollWait)
			continue
		}
		if job == nil {
			continue
		}

		w.processJob(ctx, *job)
	}
}

func (w *Worker) processJob(ctx context.Context, job domain.UploadJob) {
	if w.metrics != nil {
		w.metrics.StartJob()
		if !job.EnqueuedAt.IsZero() {
			w.metrics.ObserveQueueLag(serviceName, time.Since(job.EnqueuedAt))
		}
	}

	// Detach from the loop context so shutdown does not abort a job that is
	// already halfway through a paid optimization.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.processor.Process(jobCtx, job)
	duration := time.Since(start)

	if w.metrics != nil {
		w.metrics.FinishJob(serviceName, duration, err)
	}
	if err != nil {
		slog.Error("process job failed",
			"resume_id", job.ResumeID,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return
	}
	slog.Info("job processed",
		"resume_id", job.ResumeID,
		"duration_ms", duration.Milliseconds(),
	)
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

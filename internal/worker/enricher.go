// Package worker runs deferred units of work after the request that created
// them has already been answered.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/forecastlabs/commentd/internal/service"
)

const (
	// queueSize bounds how many pending enrichment jobs can be buffered
	// before new ones are dropped.
	queueSize = 1024

	// jobTimeout caps a single enrichment pass. Exceeding it abandons the
	// pass; every mutation inside it is atomic, so abandonment is safe.
	jobTimeout = 30 * time.Second
)

// Job is one deferred enrichment pass for a published comment.
type Job struct {
	CommentID string
	Run       service.Continuation
}

// Enricher consumes enrichment jobs from a queue and executes them with a
// per-job timeout. Jobs are independent; failures are logged, never retried
// here, and never surface to the request that enqueued them.
type Enricher struct {
	jobs    chan Job
	workers int
	logger  *slog.Logger
}

// NewEnricher creates an Enricher running the given number of workers.
func NewEnricher(workers int, logger *slog.Logger) *Enricher {
	if workers <= 0 {
		workers = 4
	}
	return &Enricher{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  logger.With(slog.String("component", "enricher")),
	}
}

// Enqueue schedules a job without blocking. When the queue is full the job is
// dropped: the comment simply stays unenriched.
func (e *Enricher) Enqueue(job Job) {
	select {
	case e.jobs <- job:
	default:
		e.logger.Warn("enrichment queue full, dropping job",
			slog.String("comment_id", job.CommentID),
		)
	}
}

// Run starts the worker goroutines and blocks until the context is
// cancelled. Jobs still queued at shutdown are abandoned.
func (e *Enricher) Run(ctx context.Context) error {
	e.logger.Info("enricher started", slog.Int("workers", e.workers))
	defer e.logger.Info("enricher stopped")

	done := make(chan struct{})
	for i := 0; i < e.workers; i++ {
		go e.worker(ctx, done)
	}

	<-ctx.Done()
	close(done)

	if n := len(e.jobs); n > 0 {
		e.logger.Warn("abandoning queued enrichment jobs", slog.Int("count", n))
	}
	return ctx.Err()
}

func (e *Enricher) worker(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case job := <-e.jobs:
			e.run(ctx, job)
		}
	}
}

func (e *Enricher) run(ctx context.Context, job Job) {
	// The job must not inherit request cancellation; only shutdown and the
	// per-job timeout bound it.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(jobCtx); err != nil {
		e.logger.Error("enrichment failed",
			slog.String("comment_id", job.CommentID),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return
	}
	e.logger.Debug("enrichment complete",
		slog.String("comment_id", job.CommentID),
		slog.Duration("elapsed", time.Since(start)),
	)
}

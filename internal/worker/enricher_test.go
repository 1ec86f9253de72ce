package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnricherRunsQueuedJobs(t *testing.T) {
	e := NewEnricher(2, testLogger())

	var ran atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		e.Enqueue(Job{CommentID: "c", Run: func(ctx context.Context) error {
			if ran.Add(1) == 3 {
				close(done)
			}
			return nil
		}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs were not executed")
	}
	assert.Equal(t, int32(3), ran.Load())

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestEnricherSwallowsJobFailures(t *testing.T) {
	e := NewEnricher(1, testLogger())

	done := make(chan struct{})
	e.Enqueue(Job{CommentID: "bad", Run: func(ctx context.Context) error {
		return errors.New("boom")
	}})
	e.Enqueue(Job{CommentID: "good", Run: func(ctx context.Context) error {
		close(done)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	select {
	case <-done:
		// The failing job did not take the worker down.
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped after a failing job")
	}
}

func TestEnricherJobsOutliveRequestCancellation(t *testing.T) {
	e := NewEnricher(1, testLogger())

	observed := make(chan error, 1)
	e.Enqueue(Job{CommentID: "c", Run: func(ctx context.Context) error {
		observed <- ctx.Err()
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	select {
	case err := <-observed:
		// The job context is detached from the request; it only carries the
		// per-job timeout.
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

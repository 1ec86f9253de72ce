// Package pipeline contains background jobs that run alongside the API
// server. The exporter periodically archives published comments to object
// storage as newline-delimited JSON.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/forecastlabs/commentd/internal/domain"
)

// exportPageSize is the number of comments fetched per page during an
// export run.
const exportPageSize = 500

// multipartThreshold is the payload size above which the exporter switches
// to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// ObjectWriter uploads a single object to blob storage.
type ObjectWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// Exporter periodically writes comment batches to object storage. Comments
// are append-only, so each run exports only the window since the previous
// run's cutoff. The first run of a process exports the full history, giving
// a fresh snapshot after every deploy.
type Exporter struct {
	comments domain.CommentStore
	writer   ObjectWriter
	interval time.Duration
	prefix   string
	logger   *slog.Logger

	// since is the exclusive lower bound of the next export window.
	since time.Time
}

// NewExporter creates an Exporter that archives comments under the given
// key prefix at the given interval.
func NewExporter(comments domain.CommentStore, writer ObjectWriter, interval time.Duration, prefix string, logger *slog.Logger) *Exporter {
	if prefix == "" {
		prefix = "comments"
	}
	return &Exporter{
		comments: comments,
		writer:   writer,
		interval: interval,
		prefix:   prefix,
		logger:   logger,
	}
}

// RunInterval runs the exporter on a fixed interval until the context is
// cancelled.
func (e *Exporter) RunInterval(ctx context.Context) error {
	e.logger.Info("exporter: started",
		slog.Duration("interval", e.interval),
		slog.String("prefix", e.prefix),
	)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("exporter: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := e.Run(ctx); err != nil {
				e.logger.Error("exporter: run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Run executes a single export. It collects all comments created in the
// window (since, cutoff], serializes them as NDJSON, and uploads them as a
// single object keyed by the cutoff timestamp. The watermark only advances
// after a successful upload, so a failed run is retried in full on the next
// tick.
func (e *Exporter) Run(ctx context.Context) error {
	cutoff := time.Now().UTC()

	batch, err := e.collect(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pipeline: collect comments: %w", err)
	}
	if len(batch) == 0 {
		e.since = cutoff
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			return fmt.Errorf("pipeline: encode comment %s: %w", batch[i].ID, err)
		}
	}

	key := fmt.Sprintf("%s/%s/comments-%d.ndjson",
		e.prefix,
		cutoff.Format("2006/01/02"),
		cutoff.UnixMilli(),
	)

	if buf.Len() > multipartThreshold {
		err = e.writer.PutMultipart(ctx, key, &buf, "application/x-ndjson", 0)
	} else {
		err = e.writer.Put(ctx, key, &buf, "application/x-ndjson")
	}
	if err != nil {
		return fmt.Errorf("pipeline: upload %s: %w", key, err)
	}

	e.since = cutoff
	e.logger.Info("exporter: batch uploaded",
		slog.String("key", key),
		slog.Int("count", len(batch)),
		slog.Time("cutoff", cutoff),
	)
	return nil
}

// collect pages through comments created before the cutoff and keeps those
// newer than the current watermark.
func (e *Exporter) collect(ctx context.Context, cutoff time.Time) ([]domain.Comment, error) {
	var batch []domain.Comment

	for offset := 0; ; offset += exportPageSize {
		page, err := e.comments.ListCreatedBefore(ctx, cutoff, domain.ListOpts{
			Limit:  exportPageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		for _, c := range page {
			if c.CreatedTime.After(e.since) {
				batch = append(batch, c)
			}
		}

		if len(page) < exportPageSize {
			return batch, nil
		}
	}
}

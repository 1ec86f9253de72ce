package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/commentd/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memCommentStore struct {
	comments []domain.Comment
}

func (s *memCommentStore) Insert(ctx context.Context, c domain.Comment) error { return nil }
func (s *memCommentStore) Update(ctx context.Context, c domain.Comment) error { return nil }
func (s *memCommentStore) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	return domain.Comment{}, domain.ErrNotFound
}
func (s *memCommentStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Comment, error) {
	return nil, nil
}
func (s *memCommentStore) LastAttributedBefore(ctx context.Context, marketID, userID string, before, since time.Time) (domain.Comment, error) {
	return domain.Comment{}, domain.ErrNotFound
}

func (s *memCommentStore) ListCreatedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Comment, error) {
	var matched []domain.Comment
	for _, c := range s.comments {
		if c.CreatedTime.Before(cutoff) {
			matched = append(matched, c)
		}
	}
	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

type memWriter struct {
	keys    []string
	objects [][]byte
	err     error
}

func (w *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	w.keys = append(w.keys, path)
	w.objects = append(w.objects, buf.Bytes())
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error {
	return w.Put(ctx, path, data, contentType)
}

func TestExporterWritesNDJSON(t *testing.T) {
	now := time.Now().UTC()
	store := &memCommentStore{comments: []domain.Comment{
		{ID: "c1", MarketID: "m1", CreatedTime: now.Add(-2 * time.Hour)},
		{ID: "c2", MarketID: "m1", CreatedTime: now.Add(-1 * time.Hour)},
	}}
	writer := &memWriter{}
	e := NewExporter(store, writer, time.Hour, "comments", testLogger())

	require.NoError(t, e.Run(context.Background()))
	require.Len(t, writer.keys, 1)
	assert.True(t, strings.HasPrefix(writer.keys[0], "comments/"))
	assert.True(t, strings.HasSuffix(writer.keys[0], ".ndjson"))

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(writer.objects[0]))
	for sc.Scan() {
		var c domain.Comment
		require.NoError(t, json.Unmarshal(sc.Bytes(), &c))
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestExporterIsIncremental(t *testing.T) {
	now := time.Now().UTC()
	store := &memCommentStore{comments: []domain.Comment{
		{ID: "c1", CreatedTime: now.Add(-2 * time.Hour)},
	}}
	writer := &memWriter{}
	e := NewExporter(store, writer, time.Hour, "comments", testLogger())

	require.NoError(t, e.Run(context.Background()))
	require.Len(t, writer.objects, 1)

	// A second run with no new comments uploads nothing.
	require.NoError(t, e.Run(context.Background()))
	assert.Len(t, writer.objects, 1)

	// New comments after the watermark are picked up alone.
	store.comments = append(store.comments, domain.Comment{ID: "c2", CreatedTime: time.Now().UTC()})
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, e.Run(context.Background()))
	require.Len(t, writer.objects, 2)
	assert.Contains(t, string(writer.objects[1]), `"id":"c2"`)
	assert.NotContains(t, string(writer.objects[1]), `"id":"c1"`)
}

func TestExporterKeepsWatermarkOnFailure(t *testing.T) {
	store := &memCommentStore{comments: []domain.Comment{
		{ID: "c1", CreatedTime: time.Now().UTC().Add(-time.Hour)},
	}}
	writer := &memWriter{err: errors.New("bucket gone")}
	e := NewExporter(store, writer, time.Hour, "comments", testLogger())

	require.Error(t, e.Run(context.Background()))

	// After the failure clears, the same comments are retried.
	writer.err = nil
	require.NoError(t, e.Run(context.Background()))
	require.Len(t, writer.objects, 1)
	assert.Contains(t, string(writer.objects[0]), `"id":"c1"`)
}

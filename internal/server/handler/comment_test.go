package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/commentd/internal/domain"
	"github.com/forecastlabs/commentd/internal/server/middleware"
	"github.com/forecastlabs/commentd/internal/service"
	"github.com/forecastlabs/commentd/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubPublisher implements CommentPublisher with canned responses.
type stubPublisher struct {
	comment  domain.Comment
	err      error
	contRan  bool
	list     []domain.Comment
	listErr  error
	lastUser string
	lastKind domain.CredentialKind
	lastReq  service.PublishRequest
}

func (s *stubPublisher) Publish(ctx context.Context, userID string, kind domain.CredentialKind, req service.PublishRequest) (domain.Comment, service.Continuation, error) {
	s.lastUser = userID
	s.lastKind = kind
	s.lastReq = req
	if s.err != nil {
		return domain.Comment{}, nil, s.err
	}
	return s.comment, func(ctx context.Context) error {
		s.contRan = true
		return nil
	}, nil
}

func (s *stubPublisher) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Comment, error) {
	return s.list, s.listErr
}

// stubAuth resolves fixed tokens for middleware-driven tests.
type stubAuth struct{}

func (stubAuth) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "good-session" {
		return "u1", nil
	}
	return "", domain.ErrUnauthorized
}

func (stubAuth) ResolveAPIKey(ctx context.Context, key string) (string, error) {
	if key == "good-key" {
		return "u1", nil
	}
	return "", domain.ErrUnauthorized
}

func newCommentTestServer(pub *stubPublisher) http.Handler {
	logger := testLogger()
	h := NewCommentHandler(pub, worker.NewEnricher(1, logger), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/comments", h.CreateComment)
	mux.HandleFunc("GET /api/markets/{id}/comments", h.ListComments)
	return middleware.Auth(stubAuth{}, logger)(mux)
}

func TestCreateCommentRequiresAuth(t *testing.T) {
	srv := newCommentTestServer(&stubPublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments",
		strings.NewReader(`{"marketId":"m1","markdown":"hi"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCommentRejectsBadToken(t *testing.T) {
	srv := newCommentTestServer(&stubPublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments",
		strings.NewReader(`{"marketId":"m1","markdown":"hi"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateCommentRejectsBadBody(t *testing.T) {
	srv := newCommentTestServer(&stubPublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer good-session")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCommentRequiresMarketID(t *testing.T) {
	srv := newCommentTestServer(&stubPublisher{})

	req := httptest.NewRequest(http.MethodPost, "/api/comments",
		strings.NewReader(`{"markdown":"hi"}`))
	req.Header.Set("Authorization", "Bearer good-session")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateCommentReturnsPublishedComment(t *testing.T) {
	pub := &stubPublisher{comment: domain.Comment{ID: "c1", MarketID: "m1", UserID: "u1"}}
	srv := newCommentTestServer(pub)

	req := httptest.NewRequest(http.MethodPost, "/api/comments",
		strings.NewReader(`{"marketId":"m1","markdown":"hi"}`))
	req.Header.Set("Authorization", "Bearer good-session")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got domain.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "c1", got.ID)

	assert.Equal(t, "u1", pub.lastUser)
	assert.Equal(t, domain.CredentialUser, pub.lastKind)
	assert.Equal(t, "m1", pub.lastReq.MarketID)
}

func TestCreateCommentAPIKeyCredentialKind(t *testing.T) {
	pub := &stubPublisher{comment: domain.Comment{ID: "c1"}}
	srv := newCommentTestServer(pub)

	req := httptest.NewRequest(http.MethodPost, "/api/comments",
		strings.NewReader(`{"marketId":"m1","markdown":"hi"}`))
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.CredentialAPIKey, pub.lastKind)
}

func TestCreateCommentErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		srv := newCommentTestServer(&stubPublisher{err: tc.err})

		req := httptest.NewRequest(http.MethodPost, "/api/comments",
			strings.NewReader(`{"marketId":"m1","markdown":"hi"}`))
		req.Header.Set("Authorization", "Bearer good-session")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}

func TestListComments(t *testing.T) {
	pub := &stubPublisher{list: []domain.Comment{{ID: "c1"}, {ID: "c2"}}}
	srv := newCommentTestServer(pub)

	req := httptest.NewRequest(http.MethodGet, "/api/markets/m1/comments", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got listCommentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Comments, 2)
}

func TestListCommentsEmptyIsArray(t *testing.T) {
	srv := newCommentTestServer(&stubPublisher{})

	req := httptest.NewRequest(http.MethodGet, "/api/markets/m1/comments", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"comments":[]}`, rec.Body.String())
}

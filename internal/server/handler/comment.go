package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/forecastlabs/commentd/internal/domain"
	"github.com/forecastlabs/commentd/internal/server/middleware"
	"github.com/forecastlabs/commentd/internal/service"
	"github.com/forecastlabs/commentd/internal/worker"
)

// CommentPublisher defines the methods that the comment handler requires from
// the service layer.
type CommentPublisher interface {
	Publish(ctx context.Context, userID string, kind domain.CredentialKind, req service.PublishRequest) (domain.Comment, service.Continuation, error)
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Comment, error)
}

// CommentHandler serves comment-related HTTP endpoints.
type CommentHandler struct {
	comments CommentPublisher
	enricher *worker.Enricher
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler with the given service, enricher
// and logger.
func NewCommentHandler(comments CommentPublisher, enricher *worker.Enricher, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments: comments,
		enricher: enricher,
		logger:   logger,
	}
}

// CreateComment publishes a new comment on a market. The response carries the
// comment as constructed at publish time; the enrichment pass is queued after
// the response is written.
// POST /api/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req service.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "marketId is required")
		return
	}

	comment, cont, err := h.comments.Publish(r.Context(), cred.UserID, cred.Kind, req)
	if err != nil {
		h.writePublishError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)

	// The response is already written; the enrichment pass runs in the
	// background and its failures never reach this caller.
	h.enricher.Enqueue(worker.Job{CommentID: comment.ID, Run: cont})
}

// listCommentsResponse wraps the list comments response.
type listCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

// ListComments returns a market's comments, newest first.
// GET /api/markets/{id}/comments?limit=50&offset=0
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	comments, err := h.comments.ListByMarket(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list comments failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}

	if comments == nil {
		comments = []domain.Comment{}
	}
	writeJSON(w, http.StatusOK, listCommentsResponse{Comments: comments})
}

func (h *CommentHandler) writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "handler: create comment failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create comment: "+err.Error())
	}
}

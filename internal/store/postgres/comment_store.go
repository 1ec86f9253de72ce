package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastlabs/commentd/internal/domain"
)

// CommentStore implements domain.CommentStore using PostgreSQL. The full
// comment payload lives in a JSONB column; the indexed columns alongside it
// exist only for querying.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore creates a new CommentStore backed by the given connection pool.
func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// Insert writes a new comment. The insert is all-or-nothing; a conflicting
// comment id is surfaced as an error rather than silently overwritten.
func (s *CommentStore) Insert(ctx context.Context, c domain.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("postgres: marshal comment %s: %w", c.ID, err)
	}

	const query = `
		INSERT INTO comments (comment_id, market_id, user_id, created_time, data)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query,
		c.ID, c.MarketID, c.UserID, c.CreatedTime, data,
	); err != nil {
		return fmt.Errorf("postgres: insert comment %s: %w", c.ID, err)
	}
	return nil
}

// Update overwrites the stored comment payload by id. The whole record is
// replaced in a single statement.
func (s *CommentStore) Update(ctx context.Context, c domain.Comment) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("postgres: marshal comment %s: %w", c.ID, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET data = $2 WHERE comment_id = $1`, c.ID, data)
	if err != nil {
		return fmt.Errorf("postgres: update comment %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update comment %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns a single comment by its id.
func (s *CommentStore) GetByID(ctx context.Context, commentID string) (domain.Comment, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM comments WHERE comment_id = $1`, commentID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("postgres: get comment %s: %w", commentID, err)
	}
	return unmarshalComment(data)
}

// ListByMarket returns a market's comments, newest first, with pagination.
func (s *CommentStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Comment, error) {
	query := `SELECT data FROM comments WHERE market_id = $1 ORDER BY created_time DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list comments by market %s: %w", marketID, err)
	}
	defer rows.Close()

	return scanCommentRows(rows)
}

// LastAttributedBefore returns the user's most recent comment on the market
// carrying an attributed bet, created inside the half-open window
// (since, before). Returns domain.ErrNotFound when no such comment exists.
func (s *CommentStore) LastAttributedBefore(ctx context.Context, marketID, userID string, before, since time.Time) (domain.Comment, error) {
	const query = `
		SELECT data FROM comments
		WHERE market_id = $1
		  AND user_id = $2
		  AND created_time < $3
		  AND created_time > $4
		  AND data ->> 'betId' IS NOT NULL
		ORDER BY created_time DESC
		LIMIT 1`

	var data []byte
	err := s.pool.QueryRow(ctx, query, marketID, userID, before, since).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("postgres: last attributed comment: %w", err)
	}
	return unmarshalComment(data)
}

// ListCreatedBefore returns comments created strictly before the cutoff,
// oldest first. Used by the export pipeline.
func (s *CommentStore) ListCreatedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Comment, error) {
	query := `SELECT data FROM comments WHERE created_time < $1 ORDER BY created_time ASC`
	args := []any{cutoff}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list comments before: %w", err)
	}
	defer rows.Close()

	return scanCommentRows(rows)
}

func scanCommentRows(rows pgx.Rows) ([]domain.Comment, error) {
	var comments []domain.Comment
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan comment: %w", err)
		}
		c, err := unmarshalComment(data)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func unmarshalComment(data []byte) (domain.Comment, error) {
	var c domain.Comment
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.Comment{}, fmt.Errorf("postgres: unmarshal comment: %w", err)
	}
	return c, nil
}

// Compile-time interface check.
var _ domain.CommentStore = (*CommentStore)(nil)

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastlabs/commentd/internal/domain"
)

// SessionStore implements domain.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new SessionStore backed by the given connection pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create inserts a new session.
func (s *SessionStore) Create(ctx context.Context, sess domain.Session) error {
	const query = `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query,
		sess.Token, sess.UserID, sess.CreatedAt, sess.ExpiresAt,
	); err != nil {
		return fmt.Errorf("postgres: create session: %w", err)
	}
	return nil
}

// GetByToken returns the session for the given token. Expired sessions are
// treated as missing.
func (s *SessionStore) GetByToken(ctx context.Context, token string) (domain.Session, error) {
	var sess domain.Session
	err := s.pool.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at
		 FROM sessions WHERE token = $1 AND expires_at > NOW()`, token).Scan(
		&sess.Token, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("postgres: get session: %w", err)
	}
	return sess, nil
}

// Compile-time interface check.
var _ domain.SessionStore = (*SessionStore)(nil)

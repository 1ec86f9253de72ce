package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/forecastlabs/commentd/internal/domain"
)

// sessionTTL is how long a login session stays valid.
const sessionTTL = 30 * 24 * time.Hour

// SessionService handles login and request authentication: password logins
// that mint session tokens, and resolution of session tokens or API keys into
// user credentials.
type SessionService struct {
	users    domain.UserStore
	sessions domain.SessionStore
	logger   *slog.Logger
}

// NewSessionService creates a SessionService with all required dependencies.
func NewSessionService(
	users domain.UserStore,
	sessions domain.SessionStore,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_service")),
	}
}

// Login verifies the username and password and creates a new session.
// Invalid credentials always surface as ErrUnauthorized, without revealing
// whether the username exists.
func (s *SessionService) Login(ctx context.Context, username, password string) (domain.Session, domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.User{}, domain.ErrUnauthorized
		}
		return domain.Session{}, domain.User{}, fmt.Errorf("session_service: get user: %w", err)
	}
	if user.IsDeleted {
		return domain.Session{}, domain.User{}, domain.ErrUnauthorized
	}

	hash, err := s.users.GetPasswordHash(ctx, user.ID)
	if err != nil {
		return domain.Session{}, domain.User{}, fmt.Errorf("session_service: get password hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return domain.Session{}, domain.User{}, domain.ErrUnauthorized
	}

	now := time.Now().UTC()
	sess := domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.Session{}, domain.User{}, fmt.Errorf("session_service: create session: %w", err)
	}

	s.logger.InfoContext(ctx, "session created", slog.String("user_id", user.ID))
	return sess, user, nil
}

// ResolveSession maps a bearer session token to a user id. Unknown or expired
// tokens surface as ErrUnauthorized.
func (s *SessionService) ResolveSession(ctx context.Context, token string) (string, error) {
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("session_service: get session: %w", err)
	}
	return sess.UserID, nil
}

// ResolveAPIKey maps an API key to a user id via its SHA-256 digest. Keys are
// stored only as digests, so a leaked database never reveals them.
func (s *SessionService) ResolveAPIKey(ctx context.Context, key string) (string, error) {
	sum := sha256.Sum256([]byte(key))
	user, err := s.users.GetByAPIKeyDigest(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("session_service: get user by api key: %w", err)
	}
	return user.ID, nil
}

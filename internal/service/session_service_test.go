package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/forecastlabs/commentd/internal/domain"
)

// credStore extends the user fake with password hashes and API key digests.
type credStore struct {
	fakeUserStore
	hashes  map[string][]byte
	digests map[string]domain.User
}

func (s *credStore) GetPasswordHash(ctx context.Context, userID string) ([]byte, error) {
	if h, ok := s.hashes[userID]; ok {
		return h, nil
	}
	return nil, domain.ErrNotFound
}

func (s *credStore) GetByAPIKeyDigest(ctx context.Context, digest string) (domain.User, error) {
	if u, ok := s.digests[digest]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrNotFound
}

type fakeSessionStore struct {
	sessions map[string]domain.Session
}

func (s *fakeSessionStore) Create(ctx context.Context, sess domain.Session) error {
	s.sessions[sess.Token] = sess
	return nil
}

func (s *fakeSessionStore) GetByToken(ctx context.Context, token string) (domain.Session, error) {
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return domain.Session{}, domain.ErrNotFound
}

func newSessionFixture(t *testing.T) (*SessionService, *credStore, *fakeSessionStore) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("api-key-1"))
	users := &credStore{
		fakeUserStore: fakeUserStore{users: map[string]domain.User{
			"u1": {ID: "u1", Username: "ada"},
		}},
		hashes: map[string][]byte{"u1": hash},
		digests: map[string]domain.User{
			hex.EncodeToString(digest[:]): {ID: "u1"},
		},
	}
	sessions := &fakeSessionStore{sessions: map[string]domain.Session{}}
	return NewSessionService(users, sessions, testLogger()), users, sessions
}

func TestLoginSuccess(t *testing.T) {
	svc, _, sessions := newSessionFixture(t)

	sess, user, err := svc.Login(context.Background(), "ada", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.ExpiresAt.After(time.Now()))

	stored, err := sessions.GetByToken(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	_, _, err := svc.Login(context.Background(), "ada", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginRejectsUnknownUserUniformly(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	// Unknown usernames fail the same way wrong passwords do.
	_, _, err := svc.Login(context.Background(), "nobody", "hunter2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestLoginRejectsDeletedUser(t *testing.T) {
	svc, users, _ := newSessionFixture(t)
	users.users["u1"] = domain.User{ID: "u1", Username: "ada", IsDeleted: true}

	_, _, err := svc.Login(context.Background(), "ada", "hunter2")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveSession(t *testing.T) {
	svc, _, sessions := newSessionFixture(t)
	sessions.sessions["tok"] = domain.Session{Token: "tok", UserID: "u1"}

	userID, err := svc.ResolveSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = svc.ResolveSession(context.Background(), "expired-or-missing")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveAPIKey(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	userID, err := svc.ResolveAPIKey(context.Background(), "api-key-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	_, err = svc.ResolveAPIKey(context.Background(), "stolen-key")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

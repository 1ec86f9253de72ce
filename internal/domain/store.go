package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// CommentStore persists comment records. A comment is inserted exactly once
// and may be overwritten exactly once (by the enrichment pass); it is never
// deleted.
type CommentStore interface {
	// Insert writes a new comment as a single atomic insert keyed by
	// (marketID, commentID).
	Insert(ctx context.Context, c Comment) error
	// Update overwrites the full comment record by id.
	Update(ctx context.Context, c Comment) error
	GetByID(ctx context.Context, commentID string) (Comment, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Comment, error)
	// LastAttributedBefore returns the user's most recent comment on the
	// market that carries an attributed bet and was created in the half-open
	// window (since, before). ErrNotFound when there is none.
	LastAttributedBefore(ctx context.Context, marketID, userID string, before, since time.Time) (Comment, error)
	// ListCreatedBefore returns comments created strictly before the cutoff,
	// oldest first. Used by the export pipeline.
	ListCreatedBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]Comment, error)
}

// BetStore reads bets written by the trading engine.
type BetStore interface {
	GetByID(ctx context.Context, id string) (Bet, error)
	// MostRecentIn returns the user's most recent non-redemption bet on the
	// market with createdTime in the open interval (after, before). When
	// answerID is non-empty only bets on that answer qualify. Ties on
	// createdTime are broken by bet id descending. ErrNotFound when no bet
	// qualifies.
	MostRecentIn(ctx context.Context, marketID, userID, answerID string, after, before time.Time) (Bet, error)
	// ListByUserMarket returns all of the user's bets on the market,
	// redemptions included.
	ListByUserMarket(ctx context.Context, marketID, userID string) ([]Bet, error)
}

// UserStore reads account records.
type UserStore interface {
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	// GetPasswordHash returns the bcrypt hash for the user, for session login.
	GetPasswordHash(ctx context.Context, userID string) ([]byte, error)
	// GetByAPIKeyDigest resolves a user from the SHA-256 digest of an API key.
	GetByAPIKeyDigest(ctx context.Context, digest string) (User, error)
}

// MarketStore reads market metadata.
type MarketStore interface {
	GetByID(ctx context.Context, id string) (Market, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	GetByToken(ctx context.Context, token string) (Session, error)
}

// Ledger atomically moves currency between two accounts. Transfers fail
// loudly with ErrInsufficientFunds or ErrNotFound; no partial transfer is
// ever left behind.
type Ledger interface {
	Transfer(ctx context.Context, fromID, toID string, amount float64, category string) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

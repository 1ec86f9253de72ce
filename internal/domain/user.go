package domain

import "time"

// CredentialKind distinguishes how a request was authenticated.
type CredentialKind string

const (
	CredentialUser   CredentialKind = "user" // browser session
	CredentialAPIKey CredentialKind = "key"  // programmatic API key
)

// User is an account record. Read-only input to this service except for
// balance changes made through the ledger.
type User struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Username            string    `json:"username"`
	AvatarURL           string    `json:"avatarUrl,omitempty"`
	Balance             float64   `json:"balance"`
	IsBannedFromPosting bool      `json:"isBannedFromPosting,omitempty"`
	IsDeleted           bool      `json:"userDeleted,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Session is a login session mapping an opaque token to a user.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

package domain

import "time"

// Market visibility values.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
)

// MechanismCPMM is the settlement mechanism with a single scalar probability.
// Only markets with this mechanism get a probability snapshot on enriched
// comments.
const MechanismCPMM = "cpmm-1"

// Market is a tradable question. Read-only input to this service.
type Market struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Question   string    `json:"question"`
	Visibility string    `json:"visibility"`
	Mechanism  string    `json:"mechanism"`
	Prob       float64   `json:"prob"`
	CreatorID  string    `json:"creatorId"`
	CreatedAt  time.Time `json:"createdAt"`
}

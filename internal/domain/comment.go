package domain

import "time"

// FlatCommentFee is the flat amount debited from a user's balance for every
// comment created through an API key.
const FlatCommentFee = 1.0

// TxnCategoryBotCommentFee labels ledger transfers that collect the API
// comment fee.
const TxnCategoryBotCommentFee = "BOT_COMMENT_FEE"

// BankAccountID is the platform account that collects fees.
const BankAccountID = "BANK"

// Comment is a user comment on a market. The author and market fields are a
// denormalized snapshot taken at creation time and are never refreshed. The
// bet and position fields are filled in by the enrichment pass after the
// comment has been published; they are replaced wholesale, never merged
// field by field.
type Comment struct {
	ID          string    `json:"id"`
	Content     *Document `json:"content"`
	CreatedTime time.Time `json:"createdTime"`

	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
	UserUsername  string `json:"userUsername"`
	UserAvatarURL string `json:"userAvatarUrl,omitempty"`

	MarketID       string `json:"marketId"`
	MarketSlug     string `json:"marketSlug"`
	MarketQuestion string `json:"marketQuestion"`
	Visibility     string `json:"visibility"`

	ReplyToCommentID string `json:"replyToCommentId,omitempty"`
	ReplyToAnswerID  string `json:"replyToAnswerId,omitempty"`

	IsAPI    bool `json:"isApi"`
	IsRepost bool `json:"isRepost,omitempty"`

	// Bet attribution, set either eagerly (explicit reply to a bet) or by the
	// enrichment pass.
	BetID          string   `json:"betId,omitempty"`
	BetAmount      *float64 `json:"betAmount,omitempty"`
	BetOutcome     string   `json:"betOutcome,omitempty"`
	BetAnswerID    string   `json:"betAnswerId,omitempty"`
	BettorID       string   `json:"bettorId,omitempty"`
	BetOrderAmount *float64 `json:"betOrderAmount,omitempty"`
	BetLimitProb   *float64 `json:"betLimitProb,omitempty"`

	// Position snapshot, set by the enrichment pass.
	PositionShares   *float64 `json:"positionShares,omitempty"`
	PositionOutcome  string   `json:"positionOutcome,omitempty"`
	PositionAnswerID string   `json:"positionAnswerId,omitempty"`
	PositionProb     *float64 `json:"positionProb,omitempty"`
}

// AttachBet copies the denormalized bet fields from the given bet and bettor
// onto the comment. A nil bet clears nothing and is a no-op.
func (c *Comment) AttachBet(bet *Bet, bettor *User) {
	if bet == nil {
		return
	}
	c.BetID = bet.ID
	c.BetAmount = ptr(bet.Amount)
	c.BetOutcome = bet.Outcome
	c.BetAnswerID = bet.AnswerID
	c.BetOrderAmount = bet.OrderAmount
	c.BetLimitProb = bet.LimitProb
	if bettor != nil {
		c.BettorID = bettor.ID
	}
}

func ptr[T any](v T) *T { return &v }

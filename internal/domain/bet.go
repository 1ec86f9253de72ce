package domain

import "time"

// Bet is a single trade by a user on a market outcome. Bets are written by
// the trading engine; this service only reads them.
type Bet struct {
	ID           string
	UserID       string
	MarketID     string
	AnswerID     string // empty for binary markets
	Amount       float64
	Shares       float64
	Outcome      string
	OrderAmount  *float64 // limit orders only
	LimitProb    *float64 // limit orders only
	CreatedTime  time.Time
	IsRedemption bool
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/forecastlabs/commentd/internal/domain"
)

// CommentBetWindow is how far back a bet may be and still get attached to a
// new comment.
const CommentBetWindow = 5 * time.Minute

// AttributionService links comments to the trading activity that most
// plausibly motivated them. Both lookups are best-effort enhancements: any
// failure is logged and reported as "nothing found", never as an error.
type AttributionService struct {
	comments domain.CommentStore
	bets     domain.BetStore
	logger   *slog.Logger
}

// NewAttributionService creates an AttributionService with all required
// dependencies.
func NewAttributionService(
	comments domain.CommentStore,
	bets domain.BetStore,
	logger *slog.Logger,
) *AttributionService {
	return &AttributionService{
		comments: comments,
		bets:     bets,
		logger:   logger.With(slog.String("component", "attribution")),
	}
}

// CommentableBet finds the single bet to attach to a comment the user posted
// at asOf. The search window starts CommentBetWindow before asOf, but is
// clipped at the user's most recent prior comment on the market that already
// carries a bet: once a bet has been attached to one comment it can never be
// attached to a later one. When answerID is non-empty only bets on that
// answer qualify. Returns nil when no bet qualifies or a lookup fails.
func (s *AttributionService) CommentableBet(ctx context.Context, marketID, userID string, asOf time.Time, answerID string) *domain.Bet {
	cutoff := asOf.Add(-CommentBetWindow)

	prior, err := s.comments.LastAttributedBefore(ctx, marketID, userID, asOf, cutoff)
	switch {
	case err == nil:
		cutoff = prior.CreatedTime
	case errors.Is(err, domain.ErrNotFound):
		// No prior attributed comment; the plain window applies.
	default:
		s.logger.WarnContext(ctx, "prior comment lookup failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	bet, err := s.bets.MostRecentIn(ctx, marketID, userID, answerID, cutoff, asOf)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "bet lookup failed",
				slog.String("market_id", marketID),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return &bet
}

// LargestPosition returns the user's largest current position on the market,
// by net shares per (answer, outcome). Redemptions count toward the net sum.
// Returns nil when the user has no bets or the lookup fails.
func (s *AttributionService) LargestPosition(ctx context.Context, marketID, userID string) *domain.Position {
	bets, err := s.bets.ListByUserMarket(ctx, marketID, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "position lookup failed",
			slog.String("market_id", marketID),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return domain.LargestPosition(bets)
}

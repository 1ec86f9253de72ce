package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastlabs/commentd/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. Bets are written by
// the trading engine; this store only reads them.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betSelectCols = `id, user_id, market_id, COALESCE(answer_id, ''), amount, shares,
	outcome, order_amount, limit_prob, is_redemption, created_time`

func scanBet(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	err := row.Scan(
		&b.ID, &b.UserID, &b.MarketID, &b.AnswerID, &b.Amount, &b.Shares,
		&b.Outcome, &b.OrderAmount, &b.LimitProb, &b.IsRedemption, &b.CreatedTime,
	)
	return b, err
}

// GetByID returns a single bet by its id.
func (s *BetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betSelectCols+` FROM bets WHERE id = $1`, id)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %s: %w", id, err)
	}
	return b, nil
}

// MostRecentIn returns the user's most recent non-redemption bet on the
// market with created_time in the open interval (after, before), optionally
// restricted to one answer. Ties on created_time are broken by id descending
// so the result is deterministic.
func (s *BetStore) MostRecentIn(ctx context.Context, marketID, userID, answerID string, after, before time.Time) (domain.Bet, error) {
	const query = `
		SELECT ` + betSelectCols + ` FROM bets
		WHERE market_id = $1
		  AND user_id = $2
		  AND ($3 = '' OR answer_id = $3)
		  AND created_time < $4
		  AND created_time > $5
		  AND NOT is_redemption
		ORDER BY created_time DESC, id DESC
		LIMIT 1`

	row := s.pool.QueryRow(ctx, query, marketID, userID, answerID, before, after)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: most recent bet: %w", err)
	}
	return b, nil
}

// ListByUserMarket returns all of the user's bets on the market, redemptions
// included, oldest first.
func (s *BetStore) ListByUserMarket(ctx context.Context, marketID, userID string) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betSelectCols+` FROM bets
		 WHERE market_id = $1 AND user_id = $2
		 ORDER BY created_time ASC`, marketID, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)

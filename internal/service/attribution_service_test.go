package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/commentd/internal/domain"
)

func newAttribution(comments *fakeCommentStore, bets *fakeBetStore) *AttributionService {
	return NewAttributionService(comments, bets, testLogger())
}

func TestCommentableBetUsesFullWindow(t *testing.T) {
	comments := &fakeCommentStore{}
	bets := &fakeBetStore{recent: &domain.Bet{ID: "bet1", UserID: "u1"}}
	svc := newAttribution(comments, bets)

	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bet := svc.CommentableBet(context.Background(), "m1", "u1", asOf, "")

	require.NotNil(t, bet)
	assert.Equal(t, "bet1", bet.ID)
	// Without a prior attributed comment the window reaches back the full
	// lookback period.
	assert.Equal(t, asOf.Add(-CommentBetWindow), bets.lastAfter)
	assert.Equal(t, asOf, bets.lastBefore)
}

func TestCommentableBetClipsWindowAtPriorComment(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	priorTime := asOf.Add(-2 * time.Minute)

	comments := &fakeCommentStore{priorAttributed: &domain.Comment{ID: "c0", CreatedTime: priorTime}}
	bets := &fakeBetStore{}
	svc := newAttribution(comments, bets)

	svc.CommentableBet(context.Background(), "m1", "u1", asOf, "")

	// A bet already attributed to a prior comment must never attach again,
	// so the window starts at that comment instead of the full lookback.
	assert.Equal(t, priorTime, bets.lastAfter)
}

func TestCommentableBetForwardsAnswerFilter(t *testing.T) {
	comments := &fakeCommentStore{}
	bets := &fakeBetStore{}
	svc := newAttribution(comments, bets)

	svc.CommentableBet(context.Background(), "m1", "u1", time.Now().UTC(), "a7")
	assert.Equal(t, "a7", bets.lastAnswer)
}

func TestCommentableBetNoneFound(t *testing.T) {
	svc := newAttribution(&fakeCommentStore{}, &fakeBetStore{})
	assert.Nil(t, svc.CommentableBet(context.Background(), "m1", "u1", time.Now().UTC(), ""))
}

func TestCommentableBetLookupFailuresDegrade(t *testing.T) {
	// A failing prior-comment lookup must not fall back to the unclipped
	// window; it reports no bet at all.
	comments := &fakeCommentStore{priorErr: errors.New("timeout")}
	bets := &fakeBetStore{recent: &domain.Bet{ID: "bet1"}}
	svc := newAttribution(comments, bets)
	assert.Nil(t, svc.CommentableBet(context.Background(), "m1", "u1", time.Now().UTC(), ""))

	svc = newAttribution(&fakeCommentStore{}, &fakeBetStore{recentErr: errors.New("timeout")})
	assert.Nil(t, svc.CommentableBet(context.Background(), "m1", "u1", time.Now().UTC(), ""))
}

// filteringBetStore applies the documented MostRecentIn selection rules over
// an in-memory slice so window edges and ordering are exercised rather than
// just recorded.
type filteringBetStore struct {
	bets []domain.Bet
}

func (f *filteringBetStore) GetByID(ctx context.Context, id string) (domain.Bet, error) {
	for _, b := range f.bets {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Bet{}, domain.ErrNotFound
}

func (f *filteringBetStore) MostRecentIn(ctx context.Context, marketID, userID, answerID string, after, before time.Time) (domain.Bet, error) {
	var best *domain.Bet
	for i := range f.bets {
		b := f.bets[i]
		if b.IsRedemption {
			continue
		}
		if !b.CreatedTime.After(after) || !b.CreatedTime.Before(before) {
			continue
		}
		if answerID != "" && b.AnswerID != answerID {
			continue
		}
		if best == nil || b.CreatedTime.After(best.CreatedTime) ||
			(b.CreatedTime.Equal(best.CreatedTime) && b.ID > best.ID) {
			pick := b
			best = &pick
		}
	}
	if best == nil {
		return domain.Bet{}, domain.ErrNotFound
	}
	return *best, nil
}

func (f *filteringBetStore) ListByUserMarket(ctx context.Context, marketID, userID string) ([]domain.Bet, error) {
	return f.bets, nil
}

func TestCommentableBetWindowEdgesAreExclusive(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cutoff := asOf.Add(-CommentBetWindow)

	bets := &filteringBetStore{bets: []domain.Bet{
		// Exactly at the lookback cutoff: outside the open interval.
		{ID: "bet-cutoff", UserID: "u1", CreatedTime: cutoff},
		{ID: "bet-inside", UserID: "u1", CreatedTime: cutoff.Add(time.Second)},
		// Exactly at the comment's creation time: outside as well.
		{ID: "bet-asof", UserID: "u1", CreatedTime: asOf},
		// Newer than bet-inside but a redemption, so never attributed.
		{ID: "bet-redeem", UserID: "u1", CreatedTime: asOf.Add(-time.Second), IsRedemption: true},
	}}
	svc := NewAttributionService(&fakeCommentStore{}, bets, testLogger())

	bet := svc.CommentableBet(context.Background(), "m1", "u1", asOf, "")
	require.NotNil(t, bet)
	assert.Equal(t, "bet-inside", bet.ID)
}

func TestCommentableBetOnlyEdgeBetsFindsNothing(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bets := &filteringBetStore{bets: []domain.Bet{
		{ID: "bet-cutoff", UserID: "u1", CreatedTime: asOf.Add(-CommentBetWindow)},
		{ID: "bet-asof", UserID: "u1", CreatedTime: asOf},
	}}
	svc := NewAttributionService(&fakeCommentStore{}, bets, testLogger())

	assert.Nil(t, svc.CommentableBet(context.Background(), "m1", "u1", asOf, ""))
}

func TestCommentableBetTieBrokenByBetID(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	placed := asOf.Add(-time.Minute)

	bets := &filteringBetStore{bets: []domain.Bet{
		{ID: "bet-a", UserID: "u1", CreatedTime: placed},
		{ID: "bet-b", UserID: "u1", CreatedTime: placed},
	}}
	svc := NewAttributionService(&fakeCommentStore{}, bets, testLogger())

	bet := svc.CommentableBet(context.Background(), "m1", "u1", asOf, "")
	require.NotNil(t, bet)
	assert.Equal(t, "bet-b", bet.ID)
}

func TestLargestPositionDelegates(t *testing.T) {
	bets := &fakeBetStore{userBets: []domain.Bet{
		{ID: "b1", AnswerID: "a1", Outcome: "YES", Shares: 40},
		{ID: "b2", AnswerID: "a1", Outcome: "YES", Shares: -10, IsRedemption: true},
	}}
	svc := newAttribution(&fakeCommentStore{}, bets)

	pos := svc.LargestPosition(context.Background(), "m1", "u1")
	require.NotNil(t, pos)
	assert.Equal(t, 30.0, pos.Shares)
}

func TestLargestPositionFailureDegrades(t *testing.T) {
	svc := newAttribution(&fakeCommentStore{}, &fakeBetStore{listErr: errors.New("timeout")})
	assert.Nil(t, svc.LargestPosition(context.Background(), "m1", "u1"))
}

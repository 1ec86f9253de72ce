package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLargestPositionEmpty(t *testing.T) {
	assert.Nil(t, LargestPosition(nil))
	assert.Nil(t, LargestPosition([]Bet{}))
}

func TestLargestPositionNetsSharesPerPair(t *testing.T) {
	bets := []Bet{
		{ID: "b1", AnswerID: "a1", Outcome: "YES", Shares: 100},
		{ID: "b2", AnswerID: "a1", Outcome: "YES", Shares: 50},
		{ID: "b3", AnswerID: "a1", Outcome: "NO", Shares: 120},
	}

	pos := LargestPosition(bets)
	require.NotNil(t, pos)
	assert.Equal(t, "a1", pos.AnswerID)
	assert.Equal(t, "YES", pos.Outcome)
	assert.Equal(t, 150.0, pos.Shares)
}

func TestLargestPositionIncludesRedemptions(t *testing.T) {
	// Redemptions carry negative shares and reduce the net position.
	bets := []Bet{
		{ID: "b1", AnswerID: "a1", Outcome: "YES", Shares: 100},
		{ID: "b2", AnswerID: "a1", Outcome: "YES", Shares: -80, IsRedemption: true},
		{ID: "b3", AnswerID: "a2", Outcome: "NO", Shares: 60},
	}

	pos := LargestPosition(bets)
	require.NotNil(t, pos)
	assert.Equal(t, "a2", pos.AnswerID)
	assert.Equal(t, "NO", pos.Outcome)
	assert.Equal(t, 60.0, pos.Shares)
}

func TestLargestPositionTieBreakIsDeterministic(t *testing.T) {
	bets := []Bet{
		{ID: "b1", AnswerID: "a2", Outcome: "YES", Shares: 50},
		{ID: "b2", AnswerID: "a1", Outcome: "NO", Shares: 50},
		{ID: "b3", AnswerID: "a1", Outcome: "YES", Shares: 50},
	}

	// Ties resolve to the smallest (answerID, outcome) pair, regardless of
	// input order.
	for i := 0; i < 10; i++ {
		pos := LargestPosition(bets)
		require.NotNil(t, pos)
		assert.Equal(t, "a1", pos.AnswerID)
		assert.Equal(t, "NO", pos.Outcome)
	}
}

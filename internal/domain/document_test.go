package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializedLenNil(t *testing.T) {
	var d *Document
	assert.Equal(t, 0, d.SerializedLen())
}

func TestSerializedLenGrowsWithText(t *testing.T) {
	base := TextDocument("").SerializedLen()
	withText := TextDocument(strings.Repeat("a", 100)).SerializedLen()
	assert.Equal(t, base+100, withText)
}

func TestTextDocumentShape(t *testing.T) {
	doc := TextDocument("hello")
	require.NotNil(t, doc)
	assert.Equal(t, "doc", doc.Type)
	require.Len(t, doc.Content, 1)
	assert.Equal(t, "paragraph", doc.Content[0].Type)
	require.Len(t, doc.Content[0].Content, 1)
	assert.Equal(t, "hello", doc.Content[0].Content[0].Text)
}

func TestAttachBet(t *testing.T) {
	order := 25.0
	bet := &Bet{
		ID:          "bet1",
		UserID:      "u1",
		Amount:      10,
		Outcome:     "YES",
		AnswerID:    "a1",
		OrderAmount: &order,
	}
	bettor := &User{ID: "u1"}

	var c Comment
	c.AttachBet(bet, bettor)

	assert.Equal(t, "bet1", c.BetID)
	require.NotNil(t, c.BetAmount)
	assert.Equal(t, 10.0, *c.BetAmount)
	assert.Equal(t, "YES", c.BetOutcome)
	assert.Equal(t, "a1", c.BetAnswerID)
	assert.Equal(t, "u1", c.BettorID)
	require.NotNil(t, c.BetOrderAmount)
	assert.Equal(t, 25.0, *c.BetOrderAmount)
}

func TestAttachBetNilIsNoOp(t *testing.T) {
	c := Comment{BetID: "existing"}
	c.AttachBet(nil, nil)
	assert.Equal(t, "existing", c.BetID)
}

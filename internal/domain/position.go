package domain

// Position is a user's net outstanding shares in one (answer, outcome) pair
// of a market. Derived from bets, never stored.
type Position struct {
	AnswerID string
	Outcome  string
	Shares   float64
}

// LargestPosition aggregates net shares per (answerID, outcome) across the
// given bets and returns the pair with the most shares. Redemptions count
// toward the net sum. Ties are broken by (answerID, outcome) ascending so the
// result is deterministic for a given set of bets. Returns nil when there are
// no bets.
func LargestPosition(bets []Bet) *Position {
	if len(bets) == 0 {
		return nil
	}

	type key struct {
		answerID string
		outcome  string
	}
	sums := make(map[key]float64)
	for _, b := range bets {
		sums[key{b.AnswerID, b.Outcome}] += b.Shares
	}

	var best *Position
	for k, shares := range sums {
		if best == nil ||
			shares > best.Shares ||
			(shares == best.Shares && (k.answerID < best.AnswerID ||
				(k.answerID == best.AnswerID && k.outcome < best.Outcome))) {
			best = &Position{AnswerID: k.answerID, Outcome: k.outcome, Shares: shares}
		}
	}
	return best
}

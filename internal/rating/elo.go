// Package rating holds the pairwise rating update, win-streak sensitivity and
// the matchup selection used by battle sessions.
package rating

import "math"

// DefaultK is the base sensitivity factor
const DefaultK = 32.0

// ratingSpread is the gap at which the stronger side is expected to win 10:1
const ratingSpread = 400.0

// ExpectedScore returns the probability that a player rated r beats one rated opp
func ExpectedScore(r, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-r)/ratingSpread))
}

// Calculate returns the new winner and loser ratings after one comparison.
// Results are rounded to the nearest integer; the two deltas are zero-sum
// before rounding and may differ by one afterwards.
func Calculate(winner, loser, k float64) (newWinner, newLoser float64) {
	expectedWinner := ExpectedScore(winner, loser)
	expectedLoser := ExpectedScore(loser, winner)

	newWinner = math.Round(winner + k*(1-expectedWinner))
	newLoser = math.Round(loser + k*(0-expectedLoser))
	return newWinner, newLoser
}

// Package elo owns per-team ratings, tallies and rank-history snapshots.
// It is the sole writer of those columns.
package elo

import "math"

// Outcome is the home side's score for one match: 1 win, 0.5 draw, 0 loss.
type Outcome float64

const (
	HomeWin  Outcome = 1
	Draw     Outcome = 0.5
	HomeLoss Outcome = 0
)

// OutcomeOf maps a completed score pair to the home outcome.
func OutcomeOf(homeScore, awayScore int) Outcome {
	switch {
	case homeScore > awayScore:
		return HomeWin
	case homeScore < awayScore:
		return HomeLoss
	default:
		return Draw
	}
}

// Expected is the standard Elo expectation of the first rating against the
// second.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// Update applies one match to both ratings. Ratings are rounded to whole
// points after every match, so replay order fully determines the result.
func Update(home, away float64, outcome Outcome, k float64) (newHome, newAway float64) {
	eHome := Expected(home, away)
	newHome = math.Round(home + k*(float64(outcome)-eHome))
	newAway = math.Round(away + k*((1-float64(outcome))-(1-eHome)))
	return newHome, newAway
}

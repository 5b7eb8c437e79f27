package elo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

// Store is the slice of the storage layer the rating engine uses.
type Store interface {
	CompletedSeasonMatches(ctx context.Context, seasonStart, seasonEnd time.Time) ([]*storage.Match, error)
	CompletedMatchesSince(ctx context.Context, since time.Time) ([]*storage.Match, error)
	LatestRatingWatermark(ctx context.Context) (time.Time, error)
	SetRatingWatermark(ctx context.Context, ts time.Time) error
	TeamByID(ctx context.Context, id int64) (*storage.Team, error)
	UpdateTeamRating(ctx context.Context, teamID int64, rating float64, wins, losses, draws int, lastMatch any) error
	UpsertRankSnapshot(ctx context.Context, teamID int64, date time.Time, rating float64) error
	RecomputeCurrentRanks(ctx context.Context) error
	BackfillHistoricalRanks(ctx context.Context) (int64, error)
}

// tally accumulates one team's running state during a replay.
type tally struct {
	rating    float64
	wins      int
	losses    int
	draws     int
	lastMatch time.Time
}

// Result of a replay or incremental recalculation.
type Result struct {
	Matches int
	Teams   int
	// Final ratings keyed by team id; exposed for determinism checks.
	Final map[int64]float64
}

// Engine replays or incrementally updates ratings.
type Engine struct {
	store  Store
	k      float64
	start  float64
	dryRun bool
}

func New(store Store, kFactor, startingRating float64, dryRun bool) *Engine {
	return &Engine{store: store, k: kFactor, start: startingRating, dryRun: dryRun}
}

// Replay rebuilds every rating from scratch over the season's completed
// matches in (date, id) order. Identical inputs produce identical ratings
// and identical history.
func (e *Engine) Replay(ctx context.Context, seasonStart, seasonEnd time.Time) (*Result, error) {
	matches, err := e.store.CompletedSeasonMatches(ctx, seasonStart, seasonEnd)
	if err != nil {
		return nil, err
	}

	tallies := map[int64]*tally{}
	res, err := e.apply(ctx, matches, tallies, func(id int64) (*tally, error) {
		return &tally{rating: e.start}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.writeBack(ctx, tallies, maxUpdated(matches)); err != nil {
		return nil, err
	}
	slog.Info("elo replay complete", "matches", res.Matches, "teams", res.Teams)
	return res, nil
}

// Incremental applies only matches written since the last run's consumed
// updated_at watermark, starting from the teams' stored ratings. The
// watermark lives in wall-clock updated_at space because matches are
// validated long after they were played.
func (e *Engine) Incremental(ctx context.Context) (*Result, error) {
	watermark, err := e.store.LatestRatingWatermark(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := e.store.CompletedMatchesSince(ctx, watermark)
	if err != nil {
		return nil, err
	}

	tallies := map[int64]*tally{}
	res, err := e.apply(ctx, matches, tallies, func(id int64) (*tally, error) {
		team, err := e.store.TeamByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load team %d: %w", id, err)
		}
		t := &tally{rating: team.EloRating, wins: team.Wins, losses: team.Losses, draws: team.Draws}
		if t.rating == 0 {
			t.rating = e.start
		}
		if team.LastMatchDate != nil {
			t.lastMatch = *team.LastMatchDate
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.writeBack(ctx, tallies, maxUpdated(matches)); err != nil {
		return nil, err
	}
	slog.Info("elo incremental complete", "since", watermark, "matches", res.Matches, "teams", res.Teams)
	return res, nil
}

func maxUpdated(matches []*storage.Match) time.Time {
	var max time.Time
	for _, m := range matches {
		if m.UpdatedAt.After(max) {
			max = m.UpdatedAt
		}
	}
	return max
}

// apply runs the rating updates over already-ordered matches, writing one
// snapshot per (team, day); the upsert makes the last match of a day win.
func (e *Engine) apply(ctx context.Context, matches []*storage.Match, tallies map[int64]*tally, load func(int64) (*tally, error)) (*Result, error) {
	get := func(id int64) (*tally, error) {
		if t, ok := tallies[id]; ok {
			return t, nil
		}
		t, err := load(id)
		if err != nil {
			return nil, err
		}
		tallies[id] = t
		return t, nil
	}

	count := 0
	for _, m := range matches {
		if m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		home, err := get(m.HomeTeamID)
		if err != nil {
			return nil, err
		}
		away, err := get(m.AwayTeamID)
		if err != nil {
			return nil, err
		}

		outcome := OutcomeOf(*m.HomeScore, *m.AwayScore)
		home.rating, away.rating = Update(home.rating, away.rating, outcome, e.k)
		switch outcome {
		case HomeWin:
			home.wins++
			away.losses++
		case HomeLoss:
			home.losses++
			away.wins++
		default:
			home.draws++
			away.draws++
		}
		home.lastMatch = m.MatchDate
		away.lastMatch = m.MatchDate

		if !e.dryRun {
			day := m.MatchDate.Truncate(24 * time.Hour)
			if err := e.store.UpsertRankSnapshot(ctx, m.HomeTeamID, day, home.rating); err != nil {
				return nil, err
			}
			if err := e.store.UpsertRankSnapshot(ctx, m.AwayTeamID, day, away.rating); err != nil {
				return nil, err
			}
		}
		count++
	}

	res := &Result{Matches: count, Teams: len(tallies), Final: make(map[int64]float64, len(tallies))}
	for id, t := range tallies {
		res.Final[id] = t.rating
	}
	return res, nil
}

func (e *Engine) writeBack(ctx context.Context, tallies map[int64]*tally, through time.Time) error {
	if e.dryRun || len(tallies) == 0 {
		return nil
	}
	for id, t := range tallies {
		var last any
		if !t.lastMatch.IsZero() {
			last = t.lastMatch
		}
		if err := e.store.UpdateTeamRating(ctx, id, t.rating, t.wins, t.losses, t.draws, last); err != nil {
			return err
		}
	}
	if err := e.store.RecomputeCurrentRanks(ctx); err != nil {
		return err
	}
	if through.IsZero() {
		return nil
	}
	return e.store.SetRatingWatermark(ctx, through)
}

// BackfillRanks recomputes national and state ranks across every historical
// snapshot.
func (e *Engine) BackfillRanks(ctx context.Context) (int64, error) {
	if e.dryRun {
		return 0, nil
	}
	n, err := e.store.BackfillHistoricalRanks(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("rank backfill complete", "snapshots", n)
	return n, nil
}

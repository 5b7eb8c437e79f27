package elo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/storage"
)

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		home, away int
		want       Outcome
	}{
		{3, 1, HomeWin},
		{0, 2, HomeLoss},
		{2, 2, Draw},
		{0, 0, Draw},
	}
	for _, tt := range tests {
		if got := OutcomeOf(tt.home, tt.away); got != tt.want {
			t.Errorf("OutcomeOf(%d, %d) = %v, want %v", tt.home, tt.away, got, tt.want)
		}
	}
}

func TestExpected(t *testing.T) {
	if got := Expected(1500, 1500); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected(equal) = %v, want 0.5", got)
	}
	// A 400-point edge is a 10:1 expectation.
	if got := Expected(1900, 1500); math.Abs(got-10.0/11.0) > 1e-9 {
		t.Errorf("Expected(+400) = %v, want %v", got, 10.0/11.0)
	}
	sum := Expected(1612, 1487) + Expected(1487, 1612)
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("expectations sum to %v, want 1", sum)
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name               string
		home, away         float64
		outcome            Outcome
		wantHome, wantAway float64
	}{
		{"equal ratings, home win", 1500, 1500, HomeWin, 1516, 1484},
		{"equal ratings, draw", 1500, 1500, Draw, 1500, 1500},
		{"favorite wins, small gain", 1700, 1400, HomeWin, 1705, 1395},
		{"underdog wins, big gain", 1400, 1700, HomeWin, 1427, 1673},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotHome, gotAway := Update(tt.home, tt.away, tt.outcome, 32)
			if gotHome != tt.wantHome || gotAway != tt.wantAway {
				t.Errorf("Update() = (%v, %v), want (%v, %v)", gotHome, gotAway, tt.wantHome, tt.wantAway)
			}
		})
	}
}

func TestUpdateRoundsEveryMatch(t *testing.T) {
	home, away := Update(1516, 1484, Draw, 32)
	if home != math.Trunc(home) || away != math.Trunc(away) {
		t.Errorf("ratings not whole points: %v %v", home, away)
	}
}

type fakeEloStore struct {
	matches   []*storage.Match
	teams     map[int64]*storage.Team
	watermark time.Time

	snapshots  []storage.RankSnapshot
	updated    map[int64]float64
	recomputed bool
	backfilled int64
}

func (f *fakeEloStore) CompletedSeasonMatches(context.Context, time.Time, time.Time) ([]*storage.Match, error) {
	return f.matches, nil
}

// CompletedMatchesSince mirrors the SQL store's filter on updated_at.
func (f *fakeEloStore) CompletedMatchesSince(_ context.Context, since time.Time) ([]*storage.Match, error) {
	var out []*storage.Match
	for _, m := range f.matches {
		if m.UpdatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeEloStore) LatestRatingWatermark(context.Context) (time.Time, error) {
	return f.watermark, nil
}

func (f *fakeEloStore) SetRatingWatermark(_ context.Context, ts time.Time) error {
	f.watermark = ts
	return nil
}

func (f *fakeEloStore) TeamByID(_ context.Context, id int64) (*storage.Team, error) {
	if t, ok := f.teams[id]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeEloStore) UpdateTeamRating(_ context.Context, teamID int64, rating float64, wins, losses, draws int, lastMatch any) error {
	if f.updated == nil {
		f.updated = map[int64]float64{}
	}
	f.updated[teamID] = rating
	if t, ok := f.teams[teamID]; ok {
		t.EloRating = rating
		t.Wins, t.Losses, t.Draws = wins, losses, draws
	}
	return nil
}

func (f *fakeEloStore) UpsertRankSnapshot(_ context.Context, teamID int64, date time.Time, rating float64) error {
	f.snapshots = append(f.snapshots, storage.RankSnapshot{TeamID: teamID, SnapshotDate: date, EloRating: rating})
	return nil
}

func (f *fakeEloStore) RecomputeCurrentRanks(context.Context) error {
	f.recomputed = true
	return nil
}

func (f *fakeEloStore) BackfillHistoricalRanks(context.Context) (int64, error) {
	return f.backfilled, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func completedMatch(id, home, away int64, d int, hs, as int) *storage.Match {
	return &storage.Match{
		ID: id, MatchDate: day(d), HomeTeamID: home, AwayTeamID: away,
		HomeScore: &hs, AwayScore: &as,
		// Validated the evening the match was played.
		UpdatedAt: day(d).Add(20 * time.Hour),
	}
}

// Three teams, three days: A beats B, B beats C, A draws C.
func seasonMatches() []*storage.Match {
	return []*storage.Match{
		completedMatch(1, 1, 2, 1, 2, 0),
		completedMatch(2, 2, 3, 2, 1, 0),
		completedMatch(3, 1, 3, 3, 1, 1),
	}
}

func TestReplayRatings(t *testing.T) {
	store := &fakeEloStore{matches: seasonMatches()}
	eng := New(store, 32, 1500, false)

	res, err := eng.Replay(context.Background(), day(1), day(30))
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 3 || res.Teams != 3 {
		t.Fatalf("result = %+v", res)
	}

	want := map[int64]float64{1: 1514, 2: 1501, 3: 1485}
	for id, rating := range want {
		if got := res.Final[id]; got != rating {
			t.Errorf("team %d rating = %v, want %v", id, got, rating)
		}
		if got := store.updated[id]; got != rating {
			t.Errorf("team %d stored rating = %v, want %v", id, got, rating)
		}
	}
	if !store.recomputed {
		t.Error("current ranks never recomputed")
	}
	// Two snapshots per match, one per side.
	if len(store.snapshots) != 6 {
		t.Errorf("snapshots = %d, want 6", len(store.snapshots))
	}
}

func TestReplayDeterministic(t *testing.T) {
	first, err := New(&fakeEloStore{matches: seasonMatches()}, 32, 1500, false).
		Replay(context.Background(), day(1), day(30))
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(&fakeEloStore{matches: seasonMatches()}, 32, 1500, false).
		Replay(context.Background(), day(1), day(30))
	if err != nil {
		t.Fatal(err)
	}
	for id, rating := range first.Final {
		if second.Final[id] != rating {
			t.Errorf("team %d: %v then %v", id, rating, second.Final[id])
		}
	}
}

func TestReplaySkipsNilScores(t *testing.T) {
	matches := seasonMatches()
	matches[1].HomeScore = nil
	store := &fakeEloStore{matches: matches}

	res, err := New(store, 32, 1500, false).Replay(context.Background(), day(1), day(30))
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 2 {
		t.Errorf("Matches = %d, want 2", res.Matches)
	}
}

func TestReplayDryRun(t *testing.T) {
	store := &fakeEloStore{matches: seasonMatches()}
	res, err := New(store, 32, 1500, true).Replay(context.Background(), day(1), day(30))
	if err != nil {
		t.Fatal(err)
	}
	if res.Matches != 3 {
		t.Errorf("Matches = %d", res.Matches)
	}
	if len(store.snapshots) != 0 || len(store.updated) != 0 || store.recomputed {
		t.Error("dry run wrote to the store")
	}
	// The math still runs so the operator can inspect the outcome.
	if store.matches[0].HomeScore == nil || res.Final[1] != 1514 {
		t.Errorf("Final = %v", res.Final)
	}
}

func TestIncrementalStartsFromStoredRatings(t *testing.T) {
	last := day(1)
	store := &fakeEloStore{
		matches: []*storage.Match{completedMatch(9, 1, 2, 5, 3, 0)},
		teams: map[int64]*storage.Team{
			1: {ID: 1, EloRating: 1600, Wins: 4, LastMatchDate: &last},
			2: {ID: 2, EloRating: 1550, Losses: 1},
		},
		watermark: day(4),
	}

	res, err := New(store, 32, 1500, false).Incremental(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// E(1600 vs 1550) rounds the winner up by 14.
	if res.Final[1] != 1614 || res.Final[2] != 1536 {
		t.Errorf("Final = %v", res.Final)
	}
}

func TestIncrementalConsumesEachMatchOnce(t *testing.T) {
	// The watermark advances to the newest updated_at applied, so the
	// next run sees nothing and ratings stay put.
	store := &fakeEloStore{
		matches: []*storage.Match{completedMatch(9, 1, 2, 5, 2, 0)},
		teams: map[int64]*storage.Team{
			1: {ID: 1},
			2: {ID: 2},
		},
	}
	eng := New(store, 32, 1500, false)

	first, err := eng.Incremental(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Matches != 1 || first.Final[1] != 1516 || store.teams[1].Wins != 1 {
		t.Fatalf("first run = %+v, wins = %d", first, store.teams[1].Wins)
	}

	second, err := eng.Incremental(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Matches != 0 {
		t.Fatalf("second run reapplied %d matches", second.Matches)
	}
	if store.teams[1].EloRating != 1516 || store.teams[1].Wins != 1 {
		t.Errorf("second run drifted team 1 to %v rating, %d wins",
			store.teams[1].EloRating, store.teams[1].Wins)
	}
	if store.teams[2].EloRating != 1484 || store.teams[2].Losses != 1 {
		t.Errorf("second run drifted team 2 to %v rating, %d losses",
			store.teams[2].EloRating, store.teams[2].Losses)
	}
}

func TestIncrementalDefaultsUnratedTeams(t *testing.T) {
	store := &fakeEloStore{
		matches: []*storage.Match{completedMatch(9, 1, 2, 5, 1, 0)},
		teams: map[int64]*storage.Team{
			1: {ID: 1},
			2: {ID: 2},
		},
	}

	res, err := New(store, 32, 1500, false).Incremental(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Final[1] != 1516 || res.Final[2] != 1484 {
		t.Errorf("Final = %v", res.Final)
	}
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UpsertMatches writes canonical matches in one statement, updating on
// source_match_key conflicts so re-validated rows converge.
func (s *Store) UpsertMatches(ctx context.Context, matches []*Match) error {
	if len(matches) == 0 {
		return nil
	}
	args := make([]any, 0, len(matches)*10)
	placeholders := make([]string, 0, len(matches))
	for i, m := range matches {
		base := i * 10
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5,
			base+6, base+7, base+8, base+9, base+10))
		args = append(args,
			m.MatchDate, m.MatchTime, m.HomeTeamID, m.AwayTeamID,
			m.HomeScore, m.AwayScore, m.LeagueID, m.TournamentID,
			m.SourcePlatform, m.SourceMatchKey)
	}

	query := `
	INSERT INTO matches (
		match_date, match_time, home_team_id, away_team_id,
		home_score, away_score, league_id, tournament_id,
		source_platform, source_match_key
	) VALUES ` + strings.Join(placeholders, ",") + `
	ON CONFLICT (source_match_key) DO UPDATE SET
		match_date = EXCLUDED.match_date,
		match_time = EXCLUDED.match_time,
		home_score = EXCLUDED.home_score,
		away_score = EXCLUDED.away_score,
		league_id = COALESCE(EXCLUDED.league_id, matches.league_id),
		tournament_id = COALESCE(EXCLUDED.tournament_id, matches.tournament_id),
		updated_at = NOW()`

	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert matches: %w", err)
	}
	return nil
}

// CompletedSeasonMatches returns the season's completed live matches in
// strict (match_date, id) order. The Elo replay is the only consumer that
// needs a total order.
func (s *Store) CompletedSeasonMatches(ctx context.Context, seasonStart, seasonEnd time.Time) ([]*Match, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, match_date, home_team_id, away_team_id, home_score, away_score, updated_at
		FROM matches
		WHERE deleted_at IS NULL
		  AND home_score IS NOT NULL
		  AND match_date BETWEEN $1 AND $2
		ORDER BY match_date ASC, id ASC`, seasonStart, seasonEnd)
	if err != nil {
		return nil, fmt.Errorf("completed season matches: %w", err)
	}
	defer rows.Close()

	var out []*Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.MatchDate, &m.HomeTeamID, &m.AwayTeamID,
			&m.HomeScore, &m.AwayScore, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// CompletedMatchesSince returns completed matches updated after a watermark,
// for incremental Elo recalculation.
func (s *Store) CompletedMatchesSince(ctx context.Context, since time.Time) ([]*Match, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, match_date, home_team_id, away_team_id, home_score, away_score, updated_at
		FROM matches
		WHERE deleted_at IS NULL AND home_score IS NOT NULL AND updated_at > $1
		ORDER BY match_date ASC, id ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("completed matches since: %w", err)
	}
	defer rows.Close()

	var out []*Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.MatchDate, &m.HomeTeamID, &m.AwayTeamID,
			&m.HomeScore, &m.AwayScore, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// SoftDeleteMatch marks a match deleted with a reason rather than destroying
// provenance. Operator-driven; merges carry their own bulk variant.
func (s *Store) SoftDeleteMatch(ctx context.Context, matchID int64, reason string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE matches SET deleted_at = NOW(), delete_reason = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, matchID, reason)
	if err != nil {
		return fmt.Errorf("soft delete match %d: %w", matchID, err)
	}
	return nil
}

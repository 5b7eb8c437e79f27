package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// BirthYearMismatch is a team whose display name carries a 4-digit year that
// disagrees with the stored birth_year.
type BirthYearMismatch struct {
	TeamID        int64
	CanonicalName string
	DisplayName   string
	StoredYear    *int
	NameYear      int
	Gender        string
	State         string
	MatchesPlayed int
}

// TeamsWithBirthYearMismatch finds repair candidates. The year token is
// extracted in SQL and bounded to the plausible range for the season.
func (s *Store) TeamsWithBirthYearMismatch(ctx context.Context, minYear, maxYear int) ([]BirthYearMismatch, error) {
	rows, err := s.q.QueryContext(ctx, `
		WITH extracted AS (
			SELECT id, canonical_name, display_name, birth_year, gender,
			       COALESCE(state, '') AS state, matches_played,
			       (substring(display_name from '((19|20)[0-9]{2})'))::int AS name_year
			FROM teams
			WHERE deleted_at IS NULL
			  AND display_name ~ '(19|20)[0-9]{2}'
		)
		SELECT id, canonical_name, display_name, birth_year, name_year, gender, state, matches_played
		FROM extracted
		WHERE name_year BETWEEN $1 AND $2
		  AND (birth_year IS NULL OR birth_year <> name_year)
		ORDER BY canonical_name, matches_played DESC`, minYear, maxYear)
	if err != nil {
		return nil, fmt.Errorf("birth year mismatches: %w", err)
	}
	defer rows.Close()

	var out []BirthYearMismatch
	for rows.Next() {
		var m BirthYearMismatch
		var stored sql.NullInt64
		if err := rows.Scan(&m.TeamID, &m.CanonicalName, &m.DisplayName, &stored,
			&m.NameYear, &m.Gender, &m.State, &m.MatchesPlayed); err != nil {
			return nil, err
		}
		if stored.Valid {
			y := int(stored.Int64)
			m.StoredYear = &y
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindIdentityTeam locates the live team a repaired row would collide with.
func (s *Store) FindIdentityTeam(ctx context.Context, canonical string, birthYear int, gender, state string) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `
		SELECT id FROM teams
		WHERE deleted_at IS NULL
		  AND LOWER(canonical_name) = LOWER($1)
		  AND birth_year = $2 AND gender = $3
		  AND COALESCE(state, '--') = COALESCE(NULLIF($4, ''), '--')`,
		canonical, birthYear, gender, state).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find identity team: %w", err)
	}
	return id, nil
}

// MergeTeams folds loser into keeper: matches and aliases move, duplicate
// match pairs and post-merge self-matches are soft-deleted, the loser is
// soft-deleted. Runs in one transaction.
func (s *Store) MergeTeams(ctx context.Context, keeperID, loserID int64, reason string) error {
	tx, err := s.q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	// Matches that would duplicate an existing keeper match (same date,
	// same opponent, played on both sides of the merge) go first.
	if _, err := tx.ExecContext(ctx, `
		UPDATE matches m
		SET deleted_at = NOW(), delete_reason = $3, updated_at = NOW()
		WHERE m.deleted_at IS NULL
		  AND (m.home_team_id = $2 OR m.away_team_id = $2)
		  AND EXISTS (
			SELECT 1 FROM matches k
			WHERE k.deleted_at IS NULL AND k.id <> m.id
			  AND k.match_date = m.match_date
			  AND (k.home_team_id = $1 OR k.away_team_id = $1)
			  AND (k.home_team_id IN (m.home_team_id, m.away_team_id)
			       OR k.away_team_id IN (m.home_team_id, m.away_team_id))
		  )`, keeperID, loserID, reason); err != nil {
		return fmt.Errorf("merge: delete duplicate matches: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE matches SET home_team_id = $1, updated_at = NOW()
		WHERE home_team_id = $2 AND deleted_at IS NULL AND away_team_id <> $1`, keeperID, loserID); err != nil {
		return fmt.Errorf("merge: move home matches: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE matches SET away_team_id = $1, updated_at = NOW()
		WHERE away_team_id = $2 AND deleted_at IS NULL AND home_team_id <> $1`, keeperID, loserID); err != nil {
		return fmt.Errorf("merge: move away matches: %w", err)
	}

	// Whatever still references the loser would become a self-match.
	if _, err := tx.ExecContext(ctx, `
		UPDATE matches SET deleted_at = NOW(), delete_reason = $3, updated_at = NOW()
		WHERE deleted_at IS NULL AND (home_team_id = $2 OR away_team_id = $2)`,
		keeperID, loserID, reason+" (self-match after merge)"); err != nil {
		return fmt.Errorf("merge: delete self matches: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO team_name_aliases (team_id, alias_name, source)
		SELECT $1, alias_name, source FROM team_name_aliases WHERE team_id = $2
		ON CONFLICT (team_id, alias_name) DO NOTHING`, keeperID, loserID); err != nil {
		return fmt.Errorf("merge: move aliases: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM team_name_aliases WHERE team_id = $1`, loserID); err != nil {
		return fmt.Errorf("merge: drop loser aliases: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM rank_history WHERE team_id = $1`, loserID); err != nil {
		return fmt.Errorf("merge: drop loser rank history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE teams SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1`, loserID); err != nil {
		return fmt.Errorf("merge: soft delete loser: %w", err)
	}

	return tx.Commit()
}

// SetTeamBirthYear bulk-updates a repaired birth year.
func (s *Store) SetTeamBirthYear(ctx context.Context, teamID int64, birthYear int) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE teams
		SET birth_year = $2, birth_year_source = 'parsed_4digit', updated_at = NOW()
		WHERE id = $1`, teamID, birthYear)
	if err != nil {
		return fmt.Errorf("set team birth year: %w", err)
	}
	return nil
}

// UnlinkedMatch is a canonical match missing its event foreign key.
type UnlinkedMatch struct {
	MatchID        int64
	SourceMatchKey string
	EventName      string
	EventID        string
	SourcePlatform string
}

// UnlinkedMatchesWithKey joins event metadata back from staging for matches
// with no league or tournament but a source key.
func (s *Store) UnlinkedMatchesWithKey(ctx context.Context, limit int) ([]UnlinkedMatch, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT m.id, m.source_match_key,
		       COALESCE(sg.event_name, ''), COALESCE(sg.event_id, ''), sg.source_platform
		FROM matches m
		JOIN staging_games sg ON sg.source_match_key = m.source_match_key
		WHERE m.deleted_at IS NULL
		  AND m.league_id IS NULL AND m.tournament_id IS NULL
		  AND m.source_match_key IS NOT NULL
		  AND (sg.event_name <> '' OR sg.event_id <> '')
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("unlinked matches: %w", err)
	}
	defer rows.Close()

	var out []UnlinkedMatch
	for rows.Next() {
		var u UnlinkedMatch
		if err := rows.Scan(&u.MatchID, &u.SourceMatchKey, &u.EventName, &u.EventID, &u.SourcePlatform); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LegacyMatchesWithoutKey joins staging by date plus normalized team names,
// in both orientations, for matches predating source keys. Only rows with a
// single staging candidate are returned; ambiguous joins stay untouched.
func (s *Store) LegacyMatchesWithoutKey(ctx context.Context, limit int) ([]UnlinkedMatch, error) {
	rows, err := s.q.QueryContext(ctx, `
		WITH candidates AS (
			SELECT m.id AS match_id, sg.source_match_key,
			       COALESCE(sg.event_name, '') AS event_name,
			       COALESCE(sg.event_id, '') AS event_id,
			       sg.source_platform,
			       COUNT(*) OVER (PARTITION BY m.id) AS n
			FROM matches m
			JOIN teams h ON h.id = m.home_team_id
			JOIN teams a ON a.id = m.away_team_id
			JOIN staging_games sg ON sg.match_date = m.match_date
			 AND (
				(LOWER(TRIM(sg.home_team_name)) = h.canonical_name
				 AND LOWER(TRIM(sg.away_team_name)) = a.canonical_name)
				OR
				(LOWER(TRIM(sg.home_team_name)) = a.canonical_name
				 AND LOWER(TRIM(sg.away_team_name)) = h.canonical_name)
			 )
			WHERE m.deleted_at IS NULL
			  AND m.league_id IS NULL AND m.tournament_id IS NULL
			  AND m.source_match_key IS NULL
			  AND (sg.event_name <> '' OR sg.event_id <> '')
		)
		SELECT match_id, source_match_key, event_name, event_id, source_platform
		FROM candidates WHERE n = 1
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("legacy matches: %w", err)
	}
	defer rows.Close()

	var out []UnlinkedMatch
	for rows.Next() {
		var u UnlinkedMatch
		if err := rows.Scan(&u.MatchID, &u.SourceMatchKey, &u.EventName, &u.EventID, &u.SourcePlatform); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// LinkMatchEvent sets exactly one of league_id/tournament_id.
func (s *Store) LinkMatchEvent(ctx context.Context, matchID int64, leagueID, tournamentID *int64) error {
	if (leagueID == nil) == (tournamentID == nil) {
		return fmt.Errorf("link match %d: exactly one of league/tournament required", matchID)
	}
	_, err := s.q.ExecContext(ctx, `
		UPDATE matches SET league_id = $2, tournament_id = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, matchID, leagueID, tournamentID)
	if err != nil {
		return fmt.Errorf("link match event: %w", err)
	}
	return nil
}

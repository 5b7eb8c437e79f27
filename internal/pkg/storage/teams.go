package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned by single-row lookups with no live match.
var ErrNotFound = errors.New("not found")

const teamColumns = `
	id, canonical_name, display_name, birth_year, gender, COALESCE(age_group, ''),
	COALESCE(state, ''), club_id, elo_rating, wins, losses, draws, matches_played,
	last_match_date, data_quality_score, birth_year_source, gender_source`

func scanTeam(row interface{ Scan(...any) error }) (*Team, error) {
	var t Team
	var clubID sql.NullInt64
	var birthYear sql.NullInt64
	var lastMatch sql.NullTime
	err := row.Scan(&t.ID, &t.CanonicalName, &t.DisplayName, &birthYear, &t.Gender,
		&t.AgeGroup, &t.State, &clubID, &t.EloRating, &t.Wins, &t.Losses, &t.Draws,
		&t.MatchesPlayed, &lastMatch, &t.DataQualityScore, &t.BirthYearSource, &t.GenderSource)
	if err != nil {
		return nil, err
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		t.BirthYear = &y
	}
	if clubID.Valid {
		t.ClubID = &clubID.Int64
	}
	if lastMatch.Valid {
		t.LastMatchDate = &lastMatch.Time
	}
	return &t, nil
}

// TeamByID loads one live team.
func (s *Store) TeamByID(ctx context.Context, id int64) (*Team, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE id = $1 AND deleted_at IS NULL", id)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// TeamsByCanonicalName is the level-1 resolver lookup: case-insensitive
// canonical-name equality, optionally filtered by birth year.
func (s *Store) TeamsByCanonicalName(ctx context.Context, canonical string, birthYear *int) ([]*Team, error) {
	query := "SELECT " + teamColumns + ` FROM teams
		WHERE LOWER(canonical_name) = LOWER($1) AND deleted_at IS NULL`
	args := []any{canonical}
	if birthYear != nil {
		query += " AND birth_year = $2"
		args = append(args, *birthYear)
	}
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("teams by canonical name: %w", err)
	}
	defer rows.Close()
	return collectTeams(rows)
}

// TeamsByKeyParts is the level-2 resolver lookup: canonical names containing
// every key part, same birth year, at most limit candidates.
func (s *Store) TeamsByKeyParts(ctx context.Context, keyParts []string, birthYear *int, limit int) ([]*Team, error) {
	if len(keyParts) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(keyParts)+1)
	args := make([]any, 0, len(keyParts)+1)
	for i, part := range keyParts {
		conds = append(conds, fmt.Sprintf("canonical_name ILIKE $%d", i+1))
		args = append(args, "%"+part+"%")
	}
	if birthYear != nil {
		conds = append(conds, fmt.Sprintf("birth_year = $%d", len(args)+1))
		args = append(args, *birthYear)
	}
	query := "SELECT " + teamColumns + ` FROM teams
		WHERE deleted_at IS NULL AND ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("teams by key parts: %w", err)
	}
	defer rows.Close()
	return collectTeams(rows)
}

func collectTeams(rows *sql.Rows) ([]*Team, error) {
	var out []*Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// IsUniqueViolation reports a Postgres unique-constraint error, the signal
// for the resolver's create-collision retry.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateTeam inserts a new canonical team and returns it with its ID set.
func (s *Store) CreateTeam(ctx context.Context, t *Team) (*Team, error) {
	var birthYear any
	if t.BirthYear != nil {
		birthYear = *t.BirthYear
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO teams (
			canonical_name, display_name, birth_year, gender, age_group, state,
			club_id, elo_rating, data_quality_score, birth_year_source, gender_source
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11)
		RETURNING id`,
		t.CanonicalName, t.DisplayName, birthYear, t.Gender, t.AgeGroup, t.State,
		t.ClubID, t.EloRating, t.DataQualityScore, t.BirthYearSource, t.GenderSource,
	).Scan(&t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindOrCreateClub upserts by canonical club name.
func (s *Store) FindOrCreateClub(ctx context.Context, name, canonical, state string) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO clubs (name, canonical_name, state)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (canonical_name) DO UPDATE SET name = clubs.name
		RETURNING id`, name, canonical, state).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("find or create club: %w", err)
	}
	return id, nil
}

// SetTeamClub links a team to its club.
func (s *Store) SetTeamClub(ctx context.Context, teamID, clubID int64) error {
	_, err := s.q.ExecContext(ctx, `UPDATE teams SET club_id = $2, updated_at = NOW() WHERE id = $1`, teamID, clubID)
	return err
}

// UpdateTeamRating is the Elo engine's write path for one team's rating and
// tallies. No other component touches these columns.
func (s *Store) UpdateTeamRating(ctx context.Context, teamID int64, rating float64, wins, losses, draws int, lastMatch any) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE teams
		SET elo_rating = $2, wins = $3, losses = $4, draws = $5,
		    matches_played = $3 + $4 + $5, last_match_date = $6, updated_at = NOW()
		WHERE id = $1`, teamID, rating, wins, losses, draws, lastMatch)
	if err != nil {
		return fmt.Errorf("update team rating: %w", err)
	}
	return nil
}

// SeedCuratedTeams marks established teams (>= minMatches live matches) as
// curated registry entries.
func (s *Store) SeedCuratedTeams(ctx context.Context, minMatches int) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE teams SET is_curated = true
		WHERE deleted_at IS NULL AND NOT is_curated AND matches_played >= $1`, minMatches)
	if err != nil {
		return 0, fmt.Errorf("seed curated teams: %w", err)
	}
	return res.RowsAffected()
}


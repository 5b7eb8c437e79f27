package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// AliasLookup is the phase-1/phase-2 equality probe: exact match on the
// normalized alias name. Returns ErrNotFound on a miss.
func (s *Store) AliasLookup(ctx context.Context, normalizedName string) (int64, error) {
	var teamID int64
	err := s.q.QueryRowContext(ctx, `
		SELECT a.team_id
		FROM team_name_aliases a
		JOIN teams t ON t.id = a.team_id AND t.deleted_at IS NULL
		WHERE a.alias_name = $1
		LIMIT 1`, normalizedName).Scan(&teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("alias lookup: %w", err)
	}
	return teamID, nil
}

// FuzzyAliasCandidates retrieves up to limit trigram candidates at or above
// threshold, best first. Similarity is computed by pg_trgm; the Go side only
// applies guards and the ambiguity gap.
func (s *Store) FuzzyAliasCandidates(ctx context.Context, normalizedName string, threshold float64, limit int, stateFilter string) ([]FuzzyCandidate, error) {
	query := `
	SELECT a.team_id, a.alias_name, similarity(a.alias_name, $1) AS sim,
	       t.birth_year, t.gender, COALESCE(t.state, '')
	FROM team_name_aliases a
	JOIN teams t ON t.id = a.team_id AND t.deleted_at IS NULL
	WHERE similarity(a.alias_name, $1) >= $2`
	args := []any{normalizedName, threshold}
	if stateFilter != "" {
		query += " AND t.state = $3"
		args = append(args, stateFilter)
	}
	query += fmt.Sprintf(" ORDER BY sim DESC LIMIT %d", limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fuzzy alias candidates: %w", err)
	}
	defer rows.Close()

	var out []FuzzyCandidate
	for rows.Next() {
		var c FuzzyCandidate
		var by sql.NullInt64
		if err := rows.Scan(&c.TeamID, &c.AliasName, &c.Similarity, &by, &c.Gender, &c.State); err != nil {
			return nil, err
		}
		if by.Valid {
			y := int(by.Int64)
			c.BirthYear = &y
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertAlias adds an alias; duplicates are idempotent no-ops.
func (s *Store) InsertAlias(ctx context.Context, teamID int64, aliasName string, source models.AliasSource) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO team_name_aliases (team_id, alias_name, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, alias_name) DO NOTHING`, teamID, aliasName, source)
	if err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}

// DeleteAlias removes a single alias row; only alias cleanup calls this.
func (s *Store) DeleteAlias(ctx context.Context, aliasID int64) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM team_name_aliases WHERE id = $1`, aliasID)
	return err
}

// AllAliases streams every alias with the owning team's guard fields,
// for the cleanup op.
func (s *Store) AllAliases(ctx context.Context) ([]AliasWithTeam, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT a.id, a.team_id, a.alias_name, a.source, t.birth_year, t.gender
		FROM team_name_aliases a
		JOIN teams t ON t.id = a.team_id
		WHERE t.deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("all aliases: %w", err)
	}
	defer rows.Close()

	var out []AliasWithTeam
	for rows.Next() {
		var a AliasWithTeam
		var by sql.NullInt64
		if err := rows.Scan(&a.ID, &a.TeamID, &a.AliasName, &a.Source, &by, &a.TeamGender); err != nil {
			return nil, err
		}
		if by.Valid {
			y := int(by.Int64)
			a.TeamBirthYear = &y
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AliasWithTeam is an alias row joined to its team's year/gender.
type AliasWithTeam struct {
	ID            int64
	TeamID        int64
	AliasName     string
	Source        models.AliasSource
	TeamBirthYear *int
	TeamGender    models.Gender
}

// UnlinkedName is a staged team name with no alias link, with how often it
// occurs. Frequent names are worth an aggressive pass.
type UnlinkedName struct {
	Name           string
	SourcePlatform string
	Occurrences    int
}

// UnlinkedStagedNames returns the most frequent staged names that still
// have no alias, best first.
func (s *Store) UnlinkedStagedNames(ctx context.Context, limit int) ([]UnlinkedName, error) {
	rows, err := s.q.QueryContext(ctx, `
		WITH names AS (
			SELECT LOWER(TRIM(home_team_name)) AS name, source_platform FROM staging_games
			UNION ALL
			SELECT LOWER(TRIM(away_team_name)), source_platform FROM staging_games
		)
		SELECT n.name, MIN(n.source_platform), COUNT(*) AS occurrences
		FROM names n
		LEFT JOIN team_name_aliases a ON a.alias_name = n.name
		WHERE a.id IS NULL AND n.name <> ''
		GROUP BY n.name
		ORDER BY occurrences DESC, n.name
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("unlinked staged names: %w", err)
	}
	defer rows.Close()

	var out []UnlinkedName
	for rows.Next() {
		var u UnlinkedName
		if err := rows.Scan(&u.Name, &u.SourcePlatform, &u.Occurrences); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

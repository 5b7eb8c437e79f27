package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// StagedInsert is one normalized record plus its computed staging key.
type StagedInsert struct {
	Key    string
	Record *models.MatchRecord
	Source string
}

// StageGames bulk-upserts normalized records into staging_games. Duplicate
// keys are silently dropped; the return value counts rows actually written.
func (s *Store) StageGames(ctx context.Context, batch []StagedInsert) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(batch)*12)
	placeholders := make([]string, 0, len(batch))
	for i, in := range batch {
		r := in.Record
		base := i * 12
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12))
		args = append(args,
			in.Key, nullDate(r.MatchDate), nullStr(r.MatchTime),
			r.HomeTeam, r.AwayTeam, r.HomeScore, r.AwayScore,
			nullStr(r.EventName), nullStr(r.EventID), in.Source,
			r.RawJSON(), false)
	}

	query := `
	INSERT INTO staging_games (
		source_match_key, match_date, match_time,
		home_team_name, away_team_name, home_score, away_score,
		event_name, event_id, source_platform, raw_data, processed
	) VALUES ` + strings.Join(placeholders, ",") + `
	ON CONFLICT (source_match_key) DO NOTHING`

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stage games batch: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// StageEvent records a discovered event for provenance and recovery joins.
func (s *Store) StageEvent(ctx context.Context, key string, ev models.EventRef, source string, raw []byte) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO staging_events (source_event_key, event_id, event_name, event_type, state, source_platform, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_event_key) DO NOTHING`,
		key, ev.ID, ev.Name, nullStr(ev.Type), nullStr(ev.State), source, raw)
	if err != nil {
		return fmt.Errorf("stage event: %w", err)
	}
	return nil
}

// StageStandings bulk-upserts standings rows.
func (s *Store) StageStandings(ctx context.Context, source string, rows []models.StandingsRow) (int, error) {
	written := 0
	for _, row := range rows {
		key := fmt.Sprintf("%s-%s-%s", source, row.EventID, strings.ToLower(strings.TrimSpace(row.TeamName)))
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO staging_standings (
				source_row_key, event_id, team_name, played, wins, losses, draws, points, division, source_platform
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (source_row_key) DO NOTHING`,
			key, row.EventID, row.TeamName, row.Played, row.Wins, row.Losses, row.Draws, row.Points,
			nullStr(row.Division), source)
		if err != nil {
			return written, fmt.Errorf("stage standings row: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
		}
	}
	return written, nil
}

// FetchUnprocessed returns a bounded batch of staged rows awaiting
// validation, oldest first. Source filters by platform when non-empty.
// Offset pages through the backlog for scans that mark nothing.
func (s *Store) FetchUnprocessed(ctx context.Context, source string, limit, offset int) ([]StagedGame, error) {
	query := `
	SELECT source_match_key, match_date, match_time,
	       COALESCE(home_team_name, ''), COALESCE(away_team_name, ''),
	       home_score, away_score,
	       COALESCE(event_name, ''), COALESCE(event_id, ''),
	       source_platform, raw_data, scraped_at
	FROM staging_games
	WHERE NOT processed`
	args := []any{}
	if source != "" {
		query += " AND source_platform = $1"
		args = append(args, source)
	}
	query += fmt.Sprintf(" ORDER BY scraped_at LIMIT %d OFFSET %d", limit, offset)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed: %w", err)
	}
	defer rows.Close()

	var out []StagedGame
	for rows.Next() {
		var g StagedGame
		if err := rows.Scan(&g.SourceMatchKey, &g.MatchDate, &g.MatchTime,
			&g.HomeTeamName, &g.AwayTeamName, &g.HomeScore, &g.AwayScore,
			&g.EventName, &g.EventID, &g.SourcePlatform, &g.RawData, &g.ScrapedAt); err != nil {
			return nil, fmt.Errorf("scan staged row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// MarkProcessed flags staged rows as successfully consumed.
func (s *Store) MarkProcessed(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.q.ExecContext(ctx, `
		UPDATE staging_games
		SET processed = true, processed_at = NOW(), error_message = NULL
		WHERE source_match_key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// MarkProcessedError flags a staged row as consumed with an error. The row
// is never deleted; the message is the observability trail.
func (s *Store) MarkProcessedError(ctx context.Context, key, message string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE staging_games
		SET processed = true, processed_at = NOW(), error_message = $2
		WHERE source_match_key = $1`, key, message)
	if err != nil {
		return fmt.Errorf("mark processed error: %w", err)
	}
	return nil
}

// ActiveSourceEvents returns source event IDs with staged activity inside
// the recency window. The engine unions these with adapter discovery.
func (s *Store) ActiveSourceEvents(ctx context.Context, source string, windowDays int) ([]models.EventRef, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT event_id, COALESCE(MAX(event_name), '')
		FROM staging_games
		WHERE source_platform = $1
		  AND event_id IS NOT NULL AND event_id <> ''
		  AND scraped_at > NOW() - ($2 || ' days')::interval
		GROUP BY event_id`, source, windowDays)
	if err != nil {
		return nil, fmt.Errorf("active source events: %w", err)
	}
	defer rows.Close()

	var out []models.EventRef
	for rows.Next() {
		var ev models.EventRef
		if err := rows.Scan(&ev.ID, &ev.Name); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RecordFailedItems mirrors the file-based failed-items log into the DB so
// nightly jobs can retry without access to the runner's filesystem.
func (s *Store) RecordFailedItems(ctx context.Context, adapter, runID string, items []FailedItemRow) error {
	for _, it := range items {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO failed_items (adapter, kind, item_id, reason, run_id)
			VALUES ($1, $2, $3, $4, $5)`,
			adapter, it.Kind, it.ItemID, it.Reason, runID); err != nil {
			return fmt.Errorf("record failed item: %w", err)
		}
	}
	return nil
}

// FailedItemRow mirrors checkpoint.FailedItem without importing it.
type FailedItemRow struct {
	Kind   string
	ItemID string
	Reason string
}

func nullStr[T ~string](v T) sql.NullString {
	return sql.NullString{String: string(v), Valid: v != ""}
}

func nullDate(iso string) sql.NullString {
	return sql.NullString{String: iso, Valid: iso != ""}
}

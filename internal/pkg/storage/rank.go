package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertRankSnapshot writes one per-team per-day rating snapshot.
func (s *Store) UpsertRankSnapshot(ctx context.Context, teamID int64, date time.Time, rating float64) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rank_history (team_id, snapshot_date, elo_rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, snapshot_date) DO UPDATE SET elo_rating = EXCLUDED.elo_rating`,
		teamID, date, rating)
	if err != nil {
		return fmt.Errorf("upsert rank snapshot: %w", err)
	}
	return nil
}

// RecomputeCurrentRanks assigns national and state ranks from the latest
// ratings. Rank = count of strictly higher ratings + 1 within the group;
// ties break on team id for determinism. The work stays in the database.
func (s *Store) RecomputeCurrentRanks(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, `
	WITH ranked AS (
		SELECT id,
		       RANK() OVER (PARTITION BY birth_year, gender
		                    ORDER BY elo_rating DESC, id) AS national_rank,
		       RANK() OVER (PARTITION BY state, birth_year, gender
		                    ORDER BY elo_rating DESC, id) AS state_rank
		FROM teams
		WHERE deleted_at IS NULL AND matches_played > 0
	)
	UPDATE rank_history rh
	SET elo_national_rank = r.national_rank,
	    elo_state_rank = r.state_rank
	FROM ranked r
	WHERE rh.team_id = r.id
	  AND rh.snapshot_date = (
		SELECT MAX(snapshot_date) FROM rank_history WHERE team_id = rh.team_id
	  )`)
	if err != nil {
		return fmt.Errorf("recompute current ranks: %w", err)
	}
	return nil
}

// BackfillHistoricalRanks recomputes ranks for every historical snapshot,
// grouped per snapshot date, with a single bulk CASE-style update keyed by
// the snapshot's surrogate id.
func (s *Store) BackfillHistoricalRanks(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
	WITH day_ranked AS (
		SELECT rh.id,
		       RANK() OVER (PARTITION BY rh.snapshot_date, t.birth_year, t.gender
		                    ORDER BY rh.elo_rating DESC, rh.team_id) AS national_rank,
		       RANK() OVER (PARTITION BY rh.snapshot_date, t.state, t.birth_year, t.gender
		                    ORDER BY rh.elo_rating DESC, rh.team_id) AS state_rank
		FROM rank_history rh
		JOIN teams t ON t.id = rh.team_id AND t.deleted_at IS NULL
	)
	UPDATE rank_history rh
	SET elo_national_rank = CASE WHEN dr.id = rh.id THEN dr.national_rank ELSE rh.elo_national_rank END,
	    elo_state_rank   = CASE WHEN dr.id = rh.id THEN dr.state_rank ELSE rh.elo_state_rank END
	FROM day_ranked dr
	WHERE dr.id = rh.id`)
	if err != nil {
		return 0, fmt.Errorf("backfill historical ranks: %w", err)
	}
	return res.RowsAffected()
}

// LatestRatingWatermark returns the matches.updated_at high-water mark the
// last rating run consumed, or the zero time before the first run.
func (s *Store) LatestRatingWatermark(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := s.q.QueryRowContext(ctx,
		`SELECT matches_through FROM rating_watermark WHERE id = 1`).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest rating watermark: %w", err)
	}
	return ts, nil
}

// SetRatingWatermark records the newest matches.updated_at a rating run has
// applied so the next incremental run skips everything already rated.
func (s *Store) SetRatingWatermark(ctx context.Context, ts time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rating_watermark (id, matches_through) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET matches_through = EXCLUDED.matches_through`, ts)
	if err != nil {
		return fmt.Errorf("set rating watermark: %w", err)
	}
	return nil
}

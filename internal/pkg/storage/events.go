package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

func eventTable(t models.EventType) string {
	if t == models.EventLeague {
		return "leagues"
	}
	return "tournaments"
}

// EventBySourceID looks up a league or tournament by its source identity.
func (s *Store) EventBySourceID(ctx context.Context, t models.EventType, source, sourceEventID string) (*Event, error) {
	var ev Event
	ev.Type = t
	err := s.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, COALESCE(source_event_id, ''), COALESCE(state, ''), COALESCE(season_id, 0)
		FROM %s WHERE source_platform = $1 AND source_event_id = $2`, eventTable(t)),
		source, sourceEventID,
	).Scan(&ev.ID, &ev.Name, &ev.SourceEventID, &ev.State, &ev.SeasonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event by source id: %w", err)
	}
	return &ev, nil
}

// EventByName looks up a league or tournament case-insensitively within a season.
func (s *Store) EventByName(ctx context.Context, t models.EventType, name string, seasonID int64) (*Event, error) {
	var ev Event
	ev.Type = t
	err := s.q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, COALESCE(source_event_id, ''), COALESCE(state, ''), COALESCE(season_id, 0)
		FROM %s WHERE LOWER(name) = LOWER($1) AND season_id = $2`, eventTable(t)),
		name, seasonID,
	).Scan(&ev.ID, &ev.Name, &ev.SourceEventID, &ev.State, &ev.SeasonID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("event by name: %w", err)
	}
	return &ev, nil
}

// CreateLeague inserts a league row.
func (s *Store) CreateLeague(ctx context.Context, name, source, sourceEventID, state string, seasonID int64) (*Event, error) {
	ev := &Event{Type: models.EventLeague, Name: name, SourceEventID: sourceEventID, State: state, SeasonID: seasonID}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO leagues (name, source_event_id, source_platform, state, season_id)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5)
		RETURNING id`, name, sourceEventID, source, state, seasonID).Scan(&ev.ID)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// CreateTournament inserts a tournament row. Unknown dates get today as a
// placeholder and are flagged estimated so consumers can tell.
func (s *Store) CreateTournament(ctx context.Context, name, source, sourceEventID, state string, seasonID int64, start, end *time.Time) (*Event, error) {
	estimated := start == nil || end == nil
	today := time.Now().UTC().Truncate(24 * time.Hour)
	startDate, endDate := today, today
	if start != nil {
		startDate = *start
	}
	if end != nil {
		endDate = *end
	}
	ev := &Event{Type: models.EventTournament, Name: name, SourceEventID: sourceEventID, State: state, SeasonID: seasonID}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO tournaments (name, source_event_id, source_platform, state, season_id, start_date, end_date, date_estimated)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id`, name, sourceEventID, source, state, seasonID, startDate, endDate, estimated).Scan(&ev.ID)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// SeedCuratedEvents marks leagues and tournaments with at least minMatches
// linked live matches as curated registry entries.
func (s *Store) SeedCuratedEvents(ctx context.Context, minMatches int) (int64, error) {
	var total int64
	for _, stmt := range []string{
		`UPDATE leagues l SET is_curated = true
		 WHERE NOT is_curated AND (
			SELECT COUNT(*) FROM matches m WHERE m.league_id = l.id AND m.deleted_at IS NULL
		 ) >= $1`,
		`UPDATE tournaments t SET is_curated = true
		 WHERE NOT is_curated AND (
			SELECT COUNT(*) FROM matches m WHERE m.tournament_id = t.id AND m.deleted_at IS NULL
		 ) >= $1`,
	} {
		res, err := s.q.ExecContext(ctx, stmt, minMatches)
		if err != nil {
			return total, fmt.Errorf("seed curated events: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/MGMAppDev/soccerview/internal/pkg/models"
)

// EnqueueAmbiguous records a deferred link decision. Ambiguity is not an
// error; the row waits for human review.
func (s *Store) EnqueueAmbiguous(ctx context.Context, e *QueueEntry) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO ambiguous_match_queue (
			match_key, field_type, raw_name,
			candidate_1_team, candidate_1_sim, candidate_2_team, candidate_2_sim, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING id`,
		nullStr(e.MatchKey), e.FieldType, e.RawName,
		e.Candidate1Team, e.Candidate1Sim, e.Candidate2Team, e.Candidate2Sim,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("enqueue ambiguous: %w", err)
	}
	e.Status = models.QueuePending
	return nil
}

// PendingAmbiguous lists queue entries awaiting review.
func (s *Store) PendingAmbiguous(ctx context.Context, limit int) ([]QueueEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, COALESCE(match_key, ''), field_type, raw_name,
		       candidate_1_team, candidate_1_sim, candidate_2_team, candidate_2_sim, status
		FROM ambiguous_match_queue
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending ambiguous: %w", err)
	}
	defer rows.Close()

	var out []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.ID, &e.MatchKey, &e.FieldType, &e.RawName,
			&e.Candidate1Team, &e.Candidate1Sim, &e.Candidate2Team, &e.Candidate2Sim, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResolveAmbiguous settles one queue entry with the chosen team and emits a
// manual alias so the name resolves in phase 1 from now on.
func (s *Store) ResolveAmbiguous(ctx context.Context, entryID, teamID int64, resolvedBy string) error {
	var rawName string
	err := s.q.QueryRowContext(ctx, `
		UPDATE ambiguous_match_queue
		SET status = 'resolved', resolved_team = $2, resolved_by = $3, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING raw_name`, entryID, teamID, resolvedBy).Scan(&rawName)
	if err != nil {
		return fmt.Errorf("resolve ambiguous %d: %w", entryID, err)
	}
	// Aliases are stored normalized; the raw name is kept raw for review.
	normalized := strings.Join(strings.Fields(strings.ToLower(rawName)), " ")
	return s.InsertAlias(ctx, teamID, normalized, models.AliasManual)
}

// DismissAmbiguous marks a queue entry as not actionable.
func (s *Store) DismissAmbiguous(ctx context.Context, entryID int64, resolvedBy string) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE ambiguous_match_queue
		SET status = 'dismissed', resolved_by = $2, resolved_at = NOW()
		WHERE id = $1 AND status = 'pending'`, entryID, resolvedBy)
	if err != nil {
		return fmt.Errorf("dismiss ambiguous %d: %w", entryID, err)
	}
	return nil
}

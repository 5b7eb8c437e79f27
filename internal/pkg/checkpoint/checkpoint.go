package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Counters carried across a scraping run and persisted with the checkpoint.
type Counters struct {
	Requests       int `json:"requests"`
	Retries        int `json:"retries"`
	RateLimitHits  int `json:"rate_limit_hits"`
	ItemsProcessed int `json:"items_processed"`
	ItemsSkipped   int `json:"items_skipped"`
	ItemsFailed    int `json:"items_failed"`
	EventsDone     int `json:"events_done"`
	EventsFailed   int `json:"events_failed"`
}

// Checkpoint records the position of a scraping run so the next run can
// resume after the last fully processed event.
type Checkpoint struct {
	Offset     int       `json:"offset"`
	LastItemID string    `json:"last_item_id"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Counters   Counters  `json:"counters"`
}

// Store reads and writes checkpoint files under a conventional directory,
// one file per adapter.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Load returns the stored checkpoint, or a zero checkpoint when none exists.
func (s *Store) Load(filename string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path(filename))
	if errors.Is(err, os.ErrNotExist) {
		return &Checkpoint{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", filename, err)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically (temp file + rename) so a kill mid
// write never leaves a torn file behind.
func (s *Store) Save(filename string, cp *Checkpoint) error {
	cp.Timestamp = time.Now().UTC()
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	tmp := s.path(filename) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path(filename)); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// Reset deletes the checkpoint file. Missing files are not an error.
func (s *Store) Reset(filename string) error {
	err := os.Remove(s.path(filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

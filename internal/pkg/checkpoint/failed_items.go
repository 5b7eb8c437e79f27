package checkpoint

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FailedItem is one failed unit of work (a team, event or division
// identifier) recorded for later retry. The log is appended across runs.
type FailedItem struct {
	Adapter  string    `json:"adapter"`
	Kind     string    `json:"kind"` // "event", "team", "division", "standings"
	ItemID   string    `json:"item_id"`
	Reason   string    `json:"reason"`
	RunID    string    `json:"run_id"`
	FailedAt time.Time `json:"failed_at"`
}

// AppendFailedItems appends entries to the shared failed-items log, one JSON
// document per line.
func (s *Store) AppendFailedItems(items []FailedItem) error {
	if len(items) == 0 {
		return nil
	}
	f, err := os.OpenFile(s.path("failed_items.json"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open failed-items log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := range items {
		if items[i].FailedAt.IsZero() {
			items[i].FailedAt = time.Now().UTC()
		}
		line, err := json.Marshal(items[i])
		if err != nil {
			return fmt.Errorf("marshal failed item: %w", err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// ReadFailedItems loads the whole failed-items log. Used by retry tooling.
func (s *Store) ReadFailedItems() ([]FailedItem, error) {
	f, err := os.Open(s.path("failed_items.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open failed-items log: %w", err)
	}
	defer f.Close()

	var out []FailedItem
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var item FailedItem
		if err := json.Unmarshal(sc.Bytes(), &item); err != nil {
			// A torn tail line from a crashed run is skipped, not fatal.
			continue
		}
		out = append(out, item)
	}
	return out, sc.Err()
}
